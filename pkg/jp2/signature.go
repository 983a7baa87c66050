package jp2

import (
	"bytes"
	"io"
	"os"
)

// SignatureLen is the number of leading bytes inspected by the sniffer
const SignatureLen = 12

var (
	rfc3745Magic = []byte("\x00\x00\x00\x0c\x6a\x50\x20\x20\x0d\x0a\x87\x0a")
	jp2Magic     = []byte("\x0d\x0a\x87\x0a")
)

// HasJP2Signature reports whether prefix starts a JP2 file, either with the
// full RFC 3745 signature box or with the short JP2 magic
func HasJP2Signature(prefix []byte) bool {
	if len(prefix) >= SignatureLen && bytes.Equal(prefix[:SignatureLen], rfc3745Magic) {
		return true
	}
	return len(prefix) >= len(jp2Magic) && bytes.Equal(prefix[:len(jp2Magic)], jp2Magic)
}

// IsJP2File sniffs the first bytes of the file at path. The handle used for
// the check is always closed; missing or unreadable files are reported as
// non-JP2 so the caller's own open surfaces the real error.
func IsJP2File(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var buf [SignatureLen]byte
	n, err := io.ReadFull(f, buf[:])
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}
	return HasJP2Signature(buf[:n])
}

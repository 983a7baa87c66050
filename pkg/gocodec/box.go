package gocodec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	boxSignature  = 0x6A502020 // "jP  "
	boxCodestream = 0x6A703263 // "jp2c"
)

// ErrNoCodestream is returned when a file has no contiguous codestream box
var ErrNoCodestream = errors.New("gocodec: no jp2c box")

// parseBoxHeader reads the box at pos. A length of 0 means the box runs to
// the end of data.
func parseBoxHeader(data []byte, pos int) (boxLen int, boxType uint32, headerLen int, err error) {
	if pos+8 > len(data) {
		return 0, 0, 0, fmt.Errorf("insufficient data for box header at %d", pos)
	}
	boxLen = int(binary.BigEndian.Uint32(data[pos:]))
	boxType = binary.BigEndian.Uint32(data[pos+4:])
	headerLen = 8

	switch {
	case boxLen == 1:
		if pos+16 > len(data) {
			return 0, 0, 0, fmt.Errorf("insufficient data for extended box length at %d", pos)
		}
		ext := binary.BigEndian.Uint64(data[pos+8:])
		if ext > uint64(len(data)-pos) {
			return 0, 0, 0, fmt.Errorf("box at %d overruns file (%d bytes)", pos, ext)
		}
		boxLen = int(ext)
		headerLen = 16
	case boxLen == 0:
		boxLen = len(data) - pos
	}
	if boxLen < headerLen {
		return 0, 0, 0, fmt.Errorf("invalid box length %d at %d", boxLen, pos)
	}
	if pos+boxLen > len(data) {
		return 0, 0, 0, fmt.Errorf("box at %d overruns file (%d bytes)", pos, boxLen)
	}
	return boxLen, boxType, headerLen, nil
}

// findCodestream walks the top-level boxes of a JP2 file and returns the
// payload of the first jp2c box
func findCodestream(data []byte) ([]byte, error) {
	pos := 0
	for pos < len(data) {
		boxLen, boxType, headerLen, err := parseBoxHeader(data, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoCodestream, err)
		}
		if pos == 0 && boxType != boxSignature {
			return nil, fmt.Errorf("%w: file does not start with a signature box", ErrNoCodestream)
		}
		if boxType == boxCodestream {
			return data[pos+headerLen : pos+boxLen], nil
		}
		pos += boxLen
	}
	return nil, ErrNoCodestream
}

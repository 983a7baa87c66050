package jp2_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luismi/jp2_tiles/internal/jp2test"
	"github.com/luismi/jp2_tiles/pkg/jp2"
)

func TestHasJP2Signature(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   bool
	}{
		{"rfc3745", []byte("\x00\x00\x00\x0c\x6a\x50\x20\x20\x0d\x0a\x87\x0a"), true},
		{"rfc3745 with trailing data", []byte("\x00\x00\x00\x0c\x6a\x50\x20\x20\x0d\x0a\x87\x0a\x00\x00\x00\x14ftyp"), true},
		{"short magic", []byte("\x0d\x0a\x87\x0a"), true},
		{"short magic padded", []byte("\x0d\x0a\x87\x0a\xde\xad\xbe\xef\x00\x01\x02\x03"), true},
		{"truncated rfc3745", []byte("\x00\x00\x00\x0c\x6a\x50\x20\x20\x0d\x0a\x87"), false},
		{"truncated short magic", []byte("\x0d\x0a\x87"), false},
		{"raw codestream", []byte("\xff\x4f\xff\x51\x00\x2f\x00\x00\x00\x00\x00\x40"), false},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0d"), false},
		{"wrong box type", []byte("\x00\x00\x00\x0c\x6a\x50\x20\x21\x0d\x0a\x87\x0a"), false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jp2.HasJP2Signature(tt.prefix))
		})
	}
}

func TestIsJP2File(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, jp2.IsJP2File(jp2test.WriteJP2(t, dir, "long.jp2")))
	assert.True(t, jp2.IsJP2File(jp2test.WriteFile(t, dir, "short.jp2", []byte("\x0d\x0a\x87\x0a"))))
	assert.False(t, jp2.IsJP2File(jp2test.WriteFile(t, dir, "tiny.jp2", []byte("\x0d\x0a\x87"))))
	assert.False(t, jp2.IsJP2File(jp2test.WriteFile(t, dir, "empty.jp2", nil)))
	assert.False(t, jp2.IsJP2File(jp2test.WriteFile(t, dir, "image.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"))))
	assert.False(t, jp2.IsJP2File(filepath.Join(dir, "missing.jp2")))
	assert.False(t, jp2.IsJP2File(dir), "a directory is not a JP2 file")
}

//go:build openjpeg && cgo

package main

import (
	"github.com/luismi/jp2_tiles/config"
	"github.com/luismi/jp2_tiles/internal/cgo/openjpeg"
	"github.com/luismi/jp2_tiles/pkg/jp2"
)

func init() {
	codecs[config.CodecOpenJPEG] = func() jp2.Codec { return openjpeg.New() }
}

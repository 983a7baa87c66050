package main

import (
	"fmt"
	"sort"

	"github.com/luismi/jp2_tiles/config"
	"github.com/luismi/jp2_tiles/pkg/gocodec"
	"github.com/luismi/jp2_tiles/pkg/jp2"
)

// codecs holds the backends compiled into this binary
var codecs = map[string]func() jp2.Codec{
	config.CodecGo: func() jp2.Codec { return gocodec.New() },
}

func newCodec(name string) (jp2.Codec, error) {
	factory, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("codec %q is not available in this build (have %v)", name, codecNames())
	}
	return factory(), nil
}

func codecNames() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

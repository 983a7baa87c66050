package config

import (
	"errors"
	"fmt"
)

const (
	// DefaultQualityLayers is the layer limit used for tile decodes
	DefaultQualityLayers = 100
	// MaxThreadsPerJob bounds the number of tiles decoded at once for a region
	MaxThreadsPerJob = 8
)

// Codec backend names
const (
	CodecGo       = "go"
	CodecOpenJPEG = "openjpeg"
)

// Config holds the runtime settings of the jp2read tool
type Config struct {
	File         string
	Codec        string
	Reduction    int
	Region       []int // x, y, w, h; empty means the full image
	Threads      []int // worker pool sizes to benchmark
	Iterations   int
	Layers       int
	CodecThreads int // per-decode thread hint, 0 leaves it to the codec
	Output       string
	ThumbWidth   int
	SpecsOnly    bool
	Verbose      bool
}

// Default returns the settings used when no flag overrides them
func Default() *Config {
	return &Config{
		Codec:      CodecGo,
		Threads:    []int{MaxThreadsPerJob},
		Iterations: 1,
		Layers:     DefaultQualityLayers,
	}
}

// Validate checks the settings for consistency
func (c *Config) Validate() error {
	if c.File == "" {
		return errors.New("input file must be specified")
	}
	if c.Codec != CodecGo && c.Codec != CodecOpenJPEG {
		return fmt.Errorf("unknown codec %q", c.Codec)
	}
	if c.Reduction < 0 {
		return fmt.Errorf("invalid reduction %d", c.Reduction)
	}
	if len(c.Region) != 0 && len(c.Region) != 4 {
		return fmt.Errorf("region needs 4 values (x,y,w,h), got %d", len(c.Region))
	}
	if len(c.Threads) == 0 {
		return errors.New("at least one thread configuration is required")
	}
	for _, t := range c.Threads {
		if t < 1 {
			return fmt.Errorf("invalid thread configuration: %d", t)
		}
	}
	if c.Iterations < 1 {
		return fmt.Errorf("invalid iteration count %d", c.Iterations)
	}
	if c.Layers < 0 {
		return fmt.Errorf("invalid layer limit %d", c.Layers)
	}
	if c.CodecThreads < 0 {
		return fmt.Errorf("invalid codec thread hint %d", c.CodecThreads)
	}
	if c.ThumbWidth < 0 {
		return fmt.Errorf("invalid thumbnail width %d", c.ThumbWidth)
	}
	return nil
}

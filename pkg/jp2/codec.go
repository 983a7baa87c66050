package jp2

import (
	"io"
	"os"
)

// DecodeParams configures a decoder before the header is read
type DecodeParams struct {
	// Reduce discards the N finest resolution levels (0 = full resolution)
	Reduce int
	// Layers caps the number of quality layers decoded (0 = all layers)
	Layers int
	// Threads is a hint for codecs with an internal worker pool; 0 or 1 decodes
	// on the calling goroutine
	Threads int
}

// ComponentInfo describes one component as reported by the codec
type ComponentInfo struct {
	Width, Height int
	Precision     int
	Signed        bool
}

// ImageHeader is the image descriptor produced by reading the codestream
// header, and refreshed by every tile decode
type ImageHeader struct {
	X0, Y0, X1, Y1 int
	Components     []ComponentInfo
}

// TileGrid is the header-level tiling reported by the codec info structure
type TileGrid struct {
	TilesX, TilesY int // tw, th
	TileW, TileH   int // tdx, tdy
	// Resolutions is the number of resolution levels of the first
	// tile-component
	Resolutions int
}

// Codec is the external JPEG2000 capability a Session drives. Implementations
// only need to decode JP2-wrapped codestreams.
type Codec interface {
	// Name identifies the backend in logs and metrics
	Name() string
	// NewStream binds a buffered input stream to an open file
	NewStream(f *os.File) (Stream, error)
	// NewDecoder creates a JP2 decoder whose messages go to diag
	NewDecoder(diag Diagnostics) (Decoder, error)
}

// Stream is a codec input stream
type Stream interface {
	io.Closer
}

// Decoder is a codec decompression handle
type Decoder interface {
	io.Closer
	Setup(params DecodeParams) error
	// ReadHeader reads the main header without decoding pixel data
	ReadHeader(s Stream) (Image, error)
	// DecodeTile decodes the tile at the zero-based index into img
	DecodeTile(s Stream, img Image, tileIndex int) error
	// CodestreamInfo returns header-level information; the handle is owned
	// by the caller and must be closed on its own
	CodestreamInfo() (InfoHandle, error)
}

// Image is a codec image handle
type Image interface {
	io.Closer
	Header() ImageHeader
	// Samples returns the sample buffer for component comp. The slice is
	// owned by the codec and is only valid until the image is closed.
	Samples(comp int) []int32
}

// InfoHandle is a codec codestream info structure
type InfoHandle interface {
	io.Closer
	Grid() TileGrid
}

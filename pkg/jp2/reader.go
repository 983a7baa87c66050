package jp2

import (
	"fmt"
	"time"

	"github.com/luismi/jp2_tiles/config"
	"github.com/luismi/jp2_tiles/pkg/metrics"
)

// TileResult contains a decoded tile and its reading metrics
type TileResult struct {
	Image   *DecodedImage
	Metrics metrics.ReadMetrics
}

// SpecsResult contains the codestream geometry and its reading metrics
type SpecsResult struct {
	Info    *CodestreamInfo
	Metrics metrics.ReadMetrics
}

// Free releases memory used by TileResult
func (tr *TileResult) Free() {
	if tr == nil {
		return
	}
	if tr.Image != nil {
		tr.Image.Free()
		tr.Image = nil
	}
}

// Reader runs one self-contained session per call: sniff, open, decode,
// close. A Reader holds no per-file state and may be shared between
// goroutines as long as its Codec allows concurrent sessions.
type Reader struct {
	codec   Codec
	diag    Diagnostics
	layers  int
	threads int
}

// ReaderOption configures a Reader
type ReaderOption func(r *Reader)

// WithDiagnostics routes codec messages to d
func WithDiagnostics(d Diagnostics) ReaderOption {
	return func(r *Reader) {
		r.diag = d
	}
}

// WithLayers sets the quality-layer limit used for tile decodes
func WithLayers(layers int) ReaderOption {
	return func(r *Reader) {
		r.layers = layers
	}
}

// WithThreads passes a thread hint to the codec
func WithThreads(threads int) ReaderOption {
	return func(r *Reader) {
		r.threads = threads
	}
}

// NewReader creates a reader on top of codec
func NewReader(codec Codec, opts ...ReaderOption) *Reader {
	r := &Reader{
		codec:  codec,
		diag:   NopDiagnostics{},
		layers: config.DefaultQualityLayers,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.diag == nil {
		r.diag = NopDiagnostics{}
	}
	return r
}

// Codec returns the backend used by the reader
func (r *Reader) Codec() Codec {
	return r.codec
}

// Specs reads the header geometry of the file at path
func (r *Reader) Specs(path string) (res *SpecsResult, err error) {
	res = &SpecsResult{}
	startTotal := time.Now()

	startFile := time.Now()
	if !IsJP2File(path) {
		r.diag.Error("Cannot read file:")
		r.diag.Error(path)
		return nil, fmt.Errorf("%s: %w", path, ErrNotJP2)
	}
	res.Metrics.FileTime = time.Since(startFile)

	startParse := time.Now()
	sess, err := OpenSession(r.codec, path, DecodeParams{Threads: r.threads}, r.diag)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			res, err = nil, fmt.Errorf("%s: close session: %w", path, cerr)
		}
	}()
	res.Metrics.ParseTime = time.Since(startParse)

	startInfo := time.Now()
	info, err := sess.ReadSpecs()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Metrics.GetInfoTime = time.Since(startInfo)
	res.Metrics.NumTiles = info.TilesX * info.TilesY
	res.Metrics.TotalTime = time.Since(startTotal)
	res.Info = info
	return res, nil
}

// Tile decodes one tile of the file at path at the given reduction factor
func (r *Reader) Tile(path string, tileIndex, reduction int) (res *TileResult, err error) {
	if reduction < 0 {
		return nil, fmt.Errorf("%s: %w (%d)", path, ErrBadReduction, reduction)
	}
	res = &TileResult{}
	startTotal := time.Now()

	startFile := time.Now()
	if !IsJP2File(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotJP2)
	}
	res.Metrics.FileTime = time.Since(startFile)

	startParse := time.Now()
	params := DecodeParams{Reduce: reduction, Layers: r.layers, Threads: r.threads}
	sess, err := OpenSession(r.codec, path, params, r.diag)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			res, err = nil, fmt.Errorf("%s: close session: %w", path, cerr)
		}
	}()
	res.Metrics.ParseTime = time.Since(startParse)

	startDecode := time.Now()
	img, err := sess.DecodeTile(tileIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Metrics.DecodeTime = time.Since(startDecode)
	res.Metrics.NumTiles = 1
	res.Metrics.TotalTime = time.Since(startTotal)
	res.Image = img
	return res, nil
}

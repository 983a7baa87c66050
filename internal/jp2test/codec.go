// Package jp2test provides a resource-accounting fake of the codec
// capability for tests.
package jp2test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luismi/jp2_tiles/pkg/jp2"
)

// Handle kinds tracked by Codec
const (
	KindStream  = "stream"
	KindDecoder = "decoder"
	KindImage   = "image"
	KindInfo    = "info"
)

var (
	ErrInjected   = errors.New("jp2test: injected failure")
	ErrNoSuchTile = errors.New("jp2test: tile index out of range")
)

// Layout describes the synthetic image served by Codec
type Layout struct {
	Width, Height int
	TileW, TileH  int
	Components    int
	Resolutions   int
	Precision     int
}

// DefaultLayout is a 3-component 100x60 image in 32x32 tiles
var DefaultLayout = Layout{
	Width: 100, Height: 60,
	TileW: 32, TileH: 32,
	Components:  3,
	Resolutions: 6,
	Precision:   8,
}

func (l Layout) tilesX() int { return (l.Width + l.TileW - 1) / l.TileW }
func (l Layout) tilesY() int { return (l.Height + l.TileH - 1) / l.TileH }

// Sample is the value served for component comp at (x, y) of the reduced
// image grid
func Sample(comp, x, y int) int32 {
	return int32((x + 2*y + 40*comp) % 256)
}

// Codec is a fake jp2.Codec. Failure flags make the matching stage fail;
// every handle it hands out is counted until closed.
type Codec struct {
	Layout Layout

	FailStream     bool
	FailNewDecoder bool
	FailSetup      bool
	FailHeader     bool
	PartialHeader  bool // return a half-built image alongside the header error
	FailInfo       bool

	mu          sync.Mutex
	live        map[string]int
	created     map[string]int
	doubleClose int
	params      []jp2.DecodeParams
}

// NewCodec returns a fake serving layout
func NewCodec(layout Layout) *Codec {
	return &Codec{Layout: layout}
}

func (c *Codec) Name() string { return "fake" }

func (c *Codec) acquire(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live == nil {
		c.live = make(map[string]int)
		c.created = make(map[string]int)
	}
	c.live[kind]++
	c.created[kind]++
}

func (c *Codec) release(kind string, closed *bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *closed {
		c.doubleClose++
		return fmt.Errorf("jp2test: %s closed twice", kind)
	}
	*closed = true
	c.live[kind]--
	return nil
}

// Live returns the number of handles of kind that are still open. An empty
// kind counts every kind.
func (c *Codec) Live(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if kind != "" {
		return c.live[kind]
	}
	total := 0
	for _, n := range c.live {
		total += n
	}
	return total
}

// Created returns how many handles of kind were ever handed out; an empty
// kind counts every kind
func (c *Codec) Created(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if kind != "" {
		return c.created[kind]
	}
	total := 0
	for _, n := range c.created {
		total += n
	}
	return total
}

// DoubleCloses counts handles that were closed more than once
func (c *Codec) DoubleCloses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doubleClose
}

// Params returns the decode parameters of every Setup call
func (c *Codec) Params() []jp2.DecodeParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]jp2.DecodeParams(nil), c.params...)
}

func (c *Codec) NewStream(f *os.File) (jp2.Stream, error) {
	if f == nil || c.FailStream {
		return nil, ErrInjected
	}
	c.acquire(KindStream)
	return &stream{codec: c}, nil
}

func (c *Codec) NewDecoder(diag jp2.Diagnostics) (jp2.Decoder, error) {
	if c.FailNewDecoder {
		return nil, ErrInjected
	}
	c.acquire(KindDecoder)
	return &decoder{codec: c, diag: diag}, nil
}

type stream struct {
	codec  *Codec
	closed bool
}

func (s *stream) Close() error { return s.codec.release(KindStream, &s.closed) }

type decoder struct {
	codec  *Codec
	diag   jp2.Diagnostics
	params jp2.DecodeParams
	closed bool
}

func (d *decoder) Close() error { return d.codec.release(KindDecoder, &d.closed) }

func (d *decoder) Setup(params jp2.DecodeParams) error {
	d.codec.mu.Lock()
	d.codec.params = append(d.codec.params, params)
	d.codec.mu.Unlock()
	if d.codec.FailSetup {
		d.diag.Error("setup rejected")
		return ErrInjected
	}
	d.params = params
	return nil
}

func (d *decoder) ReadHeader(s jp2.Stream) (jp2.Image, error) {
	l := d.codec.Layout
	if d.codec.FailHeader {
		d.diag.Error("header rejected")
		if d.codec.PartialHeader {
			d.codec.acquire(KindImage)
			return &image{codec: d.codec}, ErrInjected
		}
		return nil, ErrInjected
	}
	if d.params.Reduce >= l.Resolutions {
		d.diag.Error("reduction exceeds resolution levels")
		return nil, ErrInjected
	}
	d.codec.acquire(KindImage)
	img := &image{codec: d.codec}
	img.header = jp2.ImageHeader{X1: l.Width, Y1: l.Height}
	w, h := jp2.Reduce(l.Width, d.params.Reduce), jp2.Reduce(l.Height, d.params.Reduce)
	for i := 0; i < l.Components; i++ {
		img.header.Components = append(img.header.Components, jp2.ComponentInfo{
			Width: w, Height: h, Precision: l.Precision,
		})
	}
	d.diag.Info("header read")
	return img, nil
}

func (d *decoder) DecodeTile(s jp2.Stream, ji jp2.Image, tileIndex int) error {
	l := d.codec.Layout
	img := ji.(*image)
	if tileIndex < 0 || tileIndex >= l.tilesX()*l.tilesY() {
		d.diag.Error("tile index out of range")
		return ErrNoSuchTile
	}
	tx, ty := tileIndex%l.tilesX(), tileIndex/l.tilesX()
	r := d.params.Reduce
	x0, x1 := jp2.Reduce(tx*l.TileW, r), jp2.Reduce(min((tx+1)*l.TileW, l.Width), r)
	y0, y1 := jp2.Reduce(ty*l.TileH, r), jp2.Reduce(min((ty+1)*l.TileH, l.Height), r)
	w, h := x1-x0, y1-y0

	img.samples = make([][]int32, l.Components)
	for comp := range img.header.Components {
		img.header.Components[comp].Width = w
		img.header.Components[comp].Height = h
		buf := make([]int32, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				buf[y*w+x] = Sample(comp, x0+x, y0+y)
			}
		}
		img.samples[comp] = buf
	}
	return nil
}

func (d *decoder) CodestreamInfo() (jp2.InfoHandle, error) {
	if d.codec.FailInfo {
		return nil, ErrInjected
	}
	d.codec.acquire(KindInfo)
	l := d.codec.Layout
	return &info{codec: d.codec, grid: jp2.TileGrid{
		TilesX: l.tilesX(), TilesY: l.tilesY(),
		TileW: l.TileW, TileH: l.TileH,
		Resolutions: l.Resolutions,
	}}, nil
}

type image struct {
	codec   *Codec
	header  jp2.ImageHeader
	samples [][]int32
	closed  bool
}

func (i *image) Close() error            { return i.codec.release(KindImage, &i.closed) }
func (i *image) Header() jp2.ImageHeader { return i.header }

func (i *image) Samples(comp int) []int32 {
	if comp < 0 || comp >= len(i.samples) {
		return nil
	}
	return i.samples[comp]
}

type info struct {
	codec  *Codec
	grid   jp2.TileGrid
	closed bool
}

func (i *info) Close() error       { return i.codec.release(KindInfo, &i.closed) }
func (i *info) Grid() jp2.TileGrid { return i.grid }

// WriteJP2 writes a file carrying the RFC 3745 signature followed by filler
func WriteJP2(tb testing.TB, dir, name string) string {
	tb.Helper()
	data := append([]byte("\x00\x00\x00\x0c\x6a\x50\x20\x20\x0d\x0a\x87\x0a"), make([]byte, 64)...)
	return WriteFile(tb, dir, name, data)
}

// WriteFile writes data to dir/name and returns the path
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(path, data, 0o644))
	return path
}

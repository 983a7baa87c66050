// Package gocodec implements jp2.Codec on the pure-Go JPEG2000 decoder of
// github.com/cocosip/go-dicom-codec. The decoder has no resolution
// reduction, so only full-resolution sessions can be set up.
//
// The decoder works on whole images. A session decodes the full codestream
// on its first DecodeTile and slices tiles out of the cached planes, so a
// region read, which opens one session per tile, pays for one full decode
// per tile. Every quality layer is always decoded.
package gocodec

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cocosip/go-dicom-codec/jpeg2000"
	"github.com/cocosip/go-dicom-codec/jpeg2000/codestream"

	"github.com/luismi/jp2_tiles/config"
	"github.com/luismi/jp2_tiles/pkg/jp2"
)

// ErrReduceUnsupported is returned by Setup for any reduction above zero
var ErrReduceUnsupported = errors.New("gocodec: resolution reduction is not supported")

// Codec is the pure-Go backend
type Codec struct{}

// New returns the pure-Go codec
func New() *Codec {
	return &Codec{}
}

// Name implements jp2.Codec
func (*Codec) Name() string {
	return config.CodecGo
}

type stream struct {
	data []byte // raw codestream, jp2c payload
}

func (s *stream) Close() error {
	s.data = nil
	return nil
}

// NewStream reads the whole file and locates the codestream box
func (*Codec) NewStream(f *os.File) (jp2.Stream, error) {
	if f == nil {
		return nil, errors.New("gocodec: nil file")
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("gocodec: read %s: %w", f.Name(), err)
	}
	cs, err := findCodestream(data)
	if err != nil {
		return nil, err
	}
	return &stream{data: cs}, nil
}

type decoder struct {
	diag   jp2.Diagnostics
	params jp2.DecodeParams
	cs     *codestream.Codestream
	layout *jpeg2000.TileLayout

	// full image, decoded on the first tile request
	planes [][]int32
}

// NewDecoder implements jp2.Codec
func (*Codec) NewDecoder(diag jp2.Diagnostics) (jp2.Decoder, error) {
	if diag == nil {
		diag = jp2.NopDiagnostics{}
	}
	return &decoder{diag: diag}, nil
}

// Setup accepts a quality-layer limit but always decodes every layer
func (d *decoder) Setup(params jp2.DecodeParams) error {
	if params.Reduce != 0 {
		return fmt.Errorf("%w (reduce=%d)", ErrReduceUnsupported, params.Reduce)
	}
	d.params = params
	return nil
}

func (d *decoder) ReadHeader(s jp2.Stream) (jp2.Image, error) {
	st, ok := s.(*stream)
	if !ok || st.data == nil {
		return nil, fmt.Errorf("gocodec: foreign or closed stream %T", s)
	}
	cs, err := codestream.NewParser(st.data).Parse()
	if err != nil {
		d.diag.Error(err.Error())
		return nil, fmt.Errorf("gocodec: %w", err)
	}
	siz := cs.SIZ
	if siz == nil || cs.COD == nil {
		return nil, errors.New("gocodec: codestream has no SIZ or COD segment")
	}
	if siz.XTsiz == 0 || siz.YTsiz == 0 {
		return nil, errors.New("gocodec: zero tile size")
	}
	d.cs = cs
	d.layout = jpeg2000.NewTileLayout(siz)
	d.diag.Info(fmt.Sprintf("main header: %dx%d, %d components, %d tiles",
		siz.Xsiz-siz.XOsiz, siz.Ysiz-siz.YOsiz, siz.Csiz, d.layout.GetTileCount()))
	if n := int(cs.COD.NumberOfLayers); d.params.Layers > 0 && d.params.Layers < n {
		d.diag.Warning(fmt.Sprintf("layer limit %d ignored, decoding all %d layers", d.params.Layers, n))
	}

	img := &image{hdr: jp2.ImageHeader{
		X0: int(siz.XOsiz),
		Y0: int(siz.YOsiz),
		X1: int(siz.Xsiz),
		Y1: int(siz.Ysiz),
	}}
	img.hdr.Components = d.components(img.hdr.X0, img.hdr.Y0, img.hdr.X1, img.hdr.Y1)
	return img, nil
}

// components sizes every component over the reference-grid window
// [x0,x1)x[y0,y1)
func (d *decoder) components(x0, y0, x1, y1 int) []jp2.ComponentInfo {
	comps := make([]jp2.ComponentInfo, len(d.cs.SIZ.Components))
	for i := range d.cs.SIZ.Components {
		c := &d.cs.SIZ.Components[i]
		dx, dy := subsampling(c)
		comps[i] = jp2.ComponentInfo{
			Width:     ceilDiv(x1, dx) - ceilDiv(x0, dx),
			Height:    ceilDiv(y1, dy) - ceilDiv(y0, dy),
			Precision: c.BitDepth(),
			Signed:    c.IsSigned(),
		}
	}
	return comps
}

func (d *decoder) decodeAll(data []byte) error {
	if d.planes != nil {
		return nil
	}
	dec := jpeg2000.NewDecoder()
	if err := dec.Decode(data); err != nil {
		return err
	}
	planes := dec.GetImageData()
	if len(planes) != len(d.cs.SIZ.Components) {
		return fmt.Errorf("decoder returned %d components, want %d", len(planes), len(d.cs.SIZ.Components))
	}
	d.planes = planes
	return nil
}

func (d *decoder) DecodeTile(s jp2.Stream, img jp2.Image, tileIndex int) error {
	st, ok := s.(*stream)
	if !ok || st.data == nil {
		return fmt.Errorf("gocodec: foreign or closed stream %T", s)
	}
	im, ok := img.(*image)
	if !ok {
		return fmt.Errorf("gocodec: foreign image %T", img)
	}
	if d.cs == nil {
		return errors.New("gocodec: header not read")
	}
	if tileIndex < 0 || tileIndex >= d.layout.GetTileCount() {
		d.diag.Error(fmt.Sprintf("tile index %d out of range", tileIndex))
		return fmt.Errorf("gocodec: tile index %d out of range (0-%d)", tileIndex, d.layout.GetTileCount()-1)
	}
	if err := d.decodeAll(st.data); err != nil {
		d.diag.Error(err.Error())
		return fmt.Errorf("gocodec: %w", err)
	}

	siz := d.cs.SIZ
	ox, oy := int(siz.XOsiz), int(siz.YOsiz)
	tx0, ty0, tx1, ty1 := d.layout.GetTileBounds(tileIndex)
	tx0, ty0, tx1, ty1 = tx0+ox, ty0+oy, tx1+ox, ty1+oy

	full := d.components(ox, oy, int(siz.Xsiz), int(siz.Ysiz))
	tile := d.components(tx0, ty0, tx1, ty1)
	samples := make([][]int32, len(tile))
	for i := range tile {
		dx, dy := subsampling(&siz.Components[i])
		plane := d.planes[i]
		stride := full[i].Width
		if len(plane) < stride*full[i].Height {
			return fmt.Errorf("gocodec: component %d has %d samples, want %d", i, len(plane), stride*full[i].Height)
		}
		cx := ceilDiv(tx0, dx) - ceilDiv(ox, dx)
		cy := ceilDiv(ty0, dy) - ceilDiv(oy, dy)
		w, h := tile[i].Width, tile[i].Height
		buf := make([]int32, w*h)
		for row := range h {
			start := (cy+row)*stride + cx
			copy(buf[row*w:(row+1)*w], plane[start:start+w])
		}
		samples[i] = buf
	}

	im.hdr = jp2.ImageHeader{X0: tx0, Y0: ty0, X1: tx1, Y1: ty1, Components: tile}
	im.samples = samples
	return nil
}

func (d *decoder) CodestreamInfo() (jp2.InfoHandle, error) {
	if d.cs == nil {
		return nil, errors.New("gocodec: header not read")
	}
	siz := d.cs.SIZ
	tilesX := ceilDiv(int(siz.Xsiz)-int(siz.XTOsiz), int(siz.XTsiz))
	tilesY := ceilDiv(int(siz.Ysiz)-int(siz.YTOsiz), int(siz.YTsiz))
	return &info{grid: jp2.TileGrid{
		TilesX:      tilesX,
		TilesY:      tilesY,
		TileW:       int(siz.XTsiz),
		TileH:       int(siz.YTsiz),
		Resolutions: resolutions(d.cs),
	}}, nil
}

// resolutions counts the resolution levels of component 0, honouring a COC
// override of the default decomposition depth
func resolutions(cs *codestream.Codestream) int {
	levels := cs.COD.NumberOfDecompositionLevels
	if coc, ok := cs.COC[0]; ok && coc != nil {
		levels = coc.NumberOfDecompositionLevels
	}
	return int(levels) + 1
}

func (d *decoder) Close() error {
	d.cs, d.layout, d.planes = nil, nil, nil
	return nil
}

type image struct {
	hdr     jp2.ImageHeader
	samples [][]int32
}

func (im *image) Header() jp2.ImageHeader {
	return im.hdr
}

func (im *image) Samples(comp int) []int32 {
	if comp < 0 || comp >= len(im.samples) {
		return nil
	}
	return im.samples[comp]
}

func (im *image) Close() error {
	im.samples = nil
	return nil
}

type info struct {
	grid jp2.TileGrid
}

func (i *info) Grid() jp2.TileGrid { return i.grid }
func (i *info) Close() error       { return nil }

func subsampling(c *codestream.ComponentSize) (dx, dy int) {
	dx, dy = int(c.XRsiz), int(c.YRsiz)
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	return dx, dy
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

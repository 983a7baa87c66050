package region_test

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luismi/jp2_tiles/internal/jp2test"
	"github.com/luismi/jp2_tiles/pkg/jp2"
	"github.com/luismi/jp2_tiles/pkg/metrics"
	"github.com/luismi/jp2_tiles/pkg/region"
)

func setup(t *testing.T, layout jp2test.Layout) (*jp2test.Codec, *jp2.Reader, string, jp2.Geometry) {
	t.Helper()
	path := jp2test.WriteJP2(t, t.TempDir(), "img.jp2")
	codec := jp2test.NewCodec(layout)
	r := jp2.NewReader(codec)
	specs, err := r.Specs(path)
	require.NoError(t, err)
	return codec, r, path, jp2.GeometryFromInfo(specs.Info)
}

func rgbSample(x, y int) color.RGBA {
	return color.RGBA{
		R: uint8(jp2test.Sample(0, x, y)),
		G: uint8(jp2test.Sample(1, x, y)),
		B: uint8(jp2test.Sample(2, x, y)),
		A: 0xff,
	}
}

func TestFullImage(t *testing.T) {
	codec, r, path, g := setup(t, jp2test.DefaultLayout)
	collector := metrics.NewCollector(codec.Name(), 3)
	a := &region.Assembler{Reader: r, Workers: 3, Collector: collector}

	img, err := a.Full(context.Background(), path, g, 0)
	require.NoError(t, err)
	require.Equal(t, 100, img.Bounds().Dx())
	require.Equal(t, 60, img.Bounds().Dy())

	for _, p := range [][2]int{{0, 0}, {31, 31}, {32, 0}, {99, 59}, {64, 40}} {
		assert.Equal(t, rgbSample(p[0], p[1]), img.RGBAAt(p[0], p[1]), "pixel %v", p)
	}

	assert.Equal(t, 8, collector.GetMetrics().TilesDecoded)
	assert.Zero(t, codec.Live(""))
}

func TestRegionOffsetAndReduction(t *testing.T) {
	codec, r, path, g := setup(t, jp2test.DefaultLayout)
	a := &region.Assembler{Reader: r}

	img, err := a.Region(context.Background(), path, g, 0, 20, 10, 50, 40)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
	assert.Equal(t, rgbSample(20, 10), img.RGBAAt(0, 0))
	assert.Equal(t, rgbSample(69, 49), img.RGBAAt(49, 39))

	// at reduction 1 the image is 50x30 with 16x16 tiles
	img, err = a.Region(context.Background(), path, g, 1, 10, 5, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx(), "width is clamped to the reduced image")
	assert.Equal(t, 25, img.Bounds().Dy())
	assert.Equal(t, rgbSample(10, 5), img.RGBAAt(0, 0))
	assert.Equal(t, rgbSample(49, 29), img.RGBAAt(39, 24))
	assert.Zero(t, codec.Live(""))
}

func TestRegionGrayscale(t *testing.T) {
	layout := jp2test.DefaultLayout
	layout.Components = 1
	_, r, path, g := setup(t, layout)
	a := &region.Assembler{Reader: r, Workers: 1}

	img, err := a.Full(context.Background(), path, g, 0)
	require.NoError(t, err)
	v := uint8(jp2test.Sample(0, 50, 20))
	assert.Equal(t, color.RGBA{R: v, G: v, B: v, A: 0xff}, img.RGBAAt(50, 20))
}

func TestRegionEmpty(t *testing.T) {
	_, r, path, g := setup(t, jp2test.DefaultLayout)
	a := &region.Assembler{Reader: r}

	img, err := a.Region(context.Background(), path, g, 0, 200, 10, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, img.Bounds().Dx())
	assert.Equal(t, 1, img.Bounds().Dy())
}

type failingReader struct {
	inner   region.TileReader
	failIdx int
}

func (f *failingReader) Tile(path string, tileIndex, reduction int) (*jp2.TileResult, error) {
	if tileIndex == f.failIdx {
		return nil, jp2.ErrTileDecode
	}
	return f.inner.Tile(path, tileIndex, reduction)
}

func TestRegionTileFailure(t *testing.T) {
	codec, r, path, g := setup(t, jp2test.DefaultLayout)
	a := &region.Assembler{Reader: &failingReader{inner: r, failIdx: 5}, Workers: 2}

	img, err := a.Full(context.Background(), path, g, 0)
	assert.Nil(t, img)
	assert.ErrorIs(t, err, jp2.ErrTileDecode)
	assert.Contains(t, err.Error(), "tile 5")
	assert.Zero(t, codec.Live(""))
}

func TestRegionCancelled(t *testing.T) {
	_, r, path, g := setup(t, jp2test.DefaultLayout)
	a := &region.Assembler{Reader: r}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Full(ctx, path, g, 0)
	assert.True(t, errors.Is(err, context.Canceled))
}

type fixedReader struct {
	img *jp2.DecodedImage
}

func (f fixedReader) Tile(string, int, int) (*jp2.TileResult, error) {
	img := *f.img
	img.Data = append([][]int32(nil), f.img.Data...)
	return &jp2.TileResult{Image: &img, Metrics: metrics.ReadMetrics{NumTiles: 1}}, nil
}

func TestRegionScalesByPrecision(t *testing.T) {
	g := jp2.Geometry{Width: 3, Height: 1, TilesX: 1, TilesY: 1, TileW: 3, TileH: 1, Resolutions: 1, Components: 1}
	gray := func(v uint8) color.RGBA { return color.RGBA{R: v, G: v, B: v, A: 0xff} }

	tests := []struct {
		name    string
		samples []int32
		info    jp2.ComponentInfo
		want    []uint8
	}{
		{"8-bit", []int32{0, 100, 255}, jp2.ComponentInfo{Precision: 8}, []uint8{0, 100, 255}},
		{"12-bit", []int32{2048, 100, 4095}, jp2.ComponentInfo{Precision: 12}, []uint8{128, 6, 255}},
		{"16-bit", []int32{0, 32768, 65535}, jp2.ComponentInfo{Precision: 16}, []uint8{0, 128, 255}},
		{"signed 12-bit", []int32{-2048, 0, 2047}, jp2.ComponentInfo{Precision: 12, Signed: true}, []uint8{0, 128, 255}},
		{"1-bit", []int32{0, 1, 1}, jp2.ComponentInfo{Precision: 1}, []uint8{0, 255, 255}},
		{"unknown precision", []int32{7, 300, -4}, jp2.ComponentInfo{}, []uint8{7, 255, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := &jp2.DecodedImage{
				Width: 3, Height: 1, Components: 1,
				Data: [][]int32{tt.samples},
				Info: []jp2.ComponentInfo{tt.info},
			}
			a := &region.Assembler{Reader: fixedReader{img: img}, Workers: 1}

			out, err := a.Full(context.Background(), "unused.jp2", g, 0)
			require.NoError(t, err)
			for x, v := range tt.want {
				assert.Equal(t, gray(v), out.RGBAAt(x, 0), "pixel %d", x)
			}
			assert.Equal(t, tt.samples, img.Data[0], "samples are left as decoded")
		})
	}
}

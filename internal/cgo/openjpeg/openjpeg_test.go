//go:build openjpeg && cgo

package openjpeg

import (
	"bytes"
	"testing"

	"github.com/cocosip/go-dicom-codec/jpeg2000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luismi/jp2_tiles/internal/jp2test"
	"github.com/luismi/jp2_tiles/pkg/jp2"
)

type recorder struct {
	errors []string
}

func (r *recorder) Info(string)      {}
func (r *recorder) Warning(string)   {}
func (r *recorder) Error(msg string) { r.errors = append(r.errors, msg) }

func TestCorruptHeader(t *testing.T) {
	// valid signature box followed by junk
	data := append([]byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A},
		bytes.Repeat([]byte{0xAB}, 256)...)
	path := jp2test.WriteFile(t, t.TempDir(), "junk.jp2", data)

	diag := &recorder{}
	_, err := jp2.OpenSession(New(), path, jp2.DecodeParams{Layers: 100}, diag)
	var serr *jp2.SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, jp2.StatusHeaderReadFailed, serr.Status)
	assert.NotEmpty(t, diag.errors, "codec errors reach the diagnostics sink")
}

func TestNilFile(t *testing.T) {
	_, err := New().NewStream(nil)
	assert.Error(t, err)
}

func gradient(x, y int) int32 {
	return int32((x*5 + y*3) % 256)
}

// writeTiled encodes a lossless 41x24 gray image in 16x16 tiles with two
// decomposition levels
func writeTiled(t *testing.T) string {
	t.Helper()
	const w, h = 41, 24
	params := jpeg2000.DefaultEncodeParams(w, h, 1, 8, false)
	params.NumLevels = 2
	params.TileWidth = 16
	params.TileHeight = 16
	params.Lossless = true

	plane := make([]int32, w*h)
	for y := range h {
		for x := range w {
			plane[y*w+x] = gradient(x, y)
		}
	}
	cs, err := jpeg2000.NewEncoder(params).EncodeComponents([][]int32{plane})
	require.NoError(t, err)
	return jp2test.WriteFile(t, t.TempDir(), "tiled.jp2", jp2test.WrapCodestream(cs, w, h, 1, 8))
}

func TestDecodeTiledFile(t *testing.T) {
	path := writeTiled(t)
	codec := jp2test.Track(New())

	s, err := jp2.OpenSession(codec, path, jp2.DecodeParams{Layers: 100}, &recorder{})
	require.NoError(t, err)

	info, err := s.ReadSpecs()
	require.NoError(t, err)
	assert.Equal(t, 41, info.X1)
	assert.Equal(t, 24, info.Y1)
	assert.Equal(t, 3, info.TilesX)
	assert.Equal(t, 2, info.TilesY)
	assert.Equal(t, 16, info.TileW)
	assert.Equal(t, 16, info.TileH)
	assert.Equal(t, 3, info.Resolutions)
	assert.Equal(t, 1, info.Components)

	img, err := s.DecodeTile(0)
	require.NoError(t, err)
	require.Equal(t, 16, img.Width)
	require.Equal(t, 16, img.Height)
	for _, p := range [][2]int{{0, 0}, {15, 0}, {7, 9}, {15, 15}} {
		assert.Equal(t, gradient(p[0], p[1]), img.Data[0][p[1]*16+p[0]], "pixel %v", p)
	}

	// last column holds the 9 remaining pixels
	img, err = s.DecodeTile(2)
	require.NoError(t, err)
	assert.Equal(t, 9, img.Width)
	assert.Equal(t, gradient(32, 0), img.Data[0][0])

	_, err = s.DecodeTile(6)
	assert.ErrorIs(t, err, jp2.ErrTileDecode)

	require.NoError(t, s.Close())
	assert.Zero(t, codec.Live())
}

func TestDecodeReduced(t *testing.T) {
	path := writeTiled(t)
	codec := jp2test.Track(New())

	s, err := jp2.OpenSession(codec, path, jp2.DecodeParams{Reduce: 1, Layers: 100}, &recorder{})
	require.NoError(t, err)
	defer s.Close()

	img, err := s.DecodeTile(0)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Width)
	assert.Equal(t, 8, img.Height)

	// ceil(41/2) - ceil(32/2)
	img, err = s.DecodeTile(2)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Width)
	assert.Equal(t, 8, img.Height)

	// bottom row: ceil(24/2) - ceil(16/2)
	img, err = s.DecodeTile(5)
	require.NoError(t, err)
	assert.Equal(t, 5, img.Width)
	assert.Equal(t, 4, img.Height)
}

func TestReaderLeavesNothingOpen(t *testing.T) {
	path := writeTiled(t)
	codec := jp2test.Track(New())
	r := jp2.NewReader(codec, jp2.WithThreads(2))

	res, err := r.Tile(path, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Image.Width)
	res.Free()
	assert.Zero(t, codec.Live())

	res, err = r.Tile(path, 6, 0)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, jp2.ErrTileDecode)
	assert.Zero(t, codec.Live())
}

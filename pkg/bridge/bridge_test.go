package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luismi/jp2_tiles/internal/jp2test"
	"github.com/luismi/jp2_tiles/pkg/bridge"
	"github.com/luismi/jp2_tiles/pkg/jp2"
)

func TestGetTile(t *testing.T) {
	path := jp2test.WriteJP2(t, t.TempDir(), "img.jp2")
	codec := jp2test.NewCodec(jp2test.DefaultLayout)
	r := jp2.NewReader(codec)

	pixels := make([][]int32, 3)
	rec := bridge.GetTile(r, path, 0, 0, pixels)
	assert.Equal(t, []int32{bridge.ReadSuccess, 32, 32}, rec)
	for comp := range pixels {
		require.Len(t, pixels[comp], 32*32)
		assert.Equal(t, jp2test.Sample(comp, 5, 3), pixels[comp][3*32+5])
	}
	assert.Zero(t, codec.Live(""))
}

func TestGetTileFailuresAreZeroed(t *testing.T) {
	dir := t.TempDir()
	path := jp2test.WriteJP2(t, dir, "img.jp2")
	png := jp2test.WriteFile(t, dir, "img.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"))
	codec := jp2test.NewCodec(jp2test.DefaultLayout)
	r := jp2.NewReader(codec)

	tests := []struct {
		name  string
		path  string
		tile  int
		slots int
	}{
		{"out of range tile", path, 8, 3},
		{"not a jp2", png, 0, 3},
		{"too few slots", path, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pixels := make([][]int32, tt.slots)
			rec := bridge.GetTile(r, tt.path, tt.tile, 0, pixels)
			assert.Equal(t, []int32{0, 0, 0}, rec)
			for _, p := range pixels {
				assert.Nil(t, p)
			}
		})
	}
	assert.Zero(t, codec.Live(""))
}

func TestGetJp2Specs(t *testing.T) {
	dir := t.TempDir()
	path := jp2test.WriteJP2(t, dir, "img.jp2")
	codec := jp2test.NewCodec(jp2test.DefaultLayout)
	r := jp2.NewReader(codec)

	rec := bridge.GetJp2Specs(r, path)
	assert.Equal(t, []int32{1, 100, 60, 4, 2, 32, 32, 6, 3}, rec)

	g, ok := bridge.GeometryFromRecord(rec)
	require.True(t, ok)
	assert.Equal(t, 5, g.MaxReduction())
	assert.Equal(t, 50, g.ReducedWidth(1))

	rec = bridge.GetJp2Specs(r, jp2test.WriteFile(t, dir, "short", []byte{1, 2, 3}))
	assert.Equal(t, make([]int32, bridge.SpecsRecordLen), rec)
	_, ok = bridge.GeometryFromRecord(rec)
	assert.False(t, ok)

	codec.FailSetup = true
	rec = bridge.GetJp2Specs(r, path)
	assert.Equal(t, make([]int32, bridge.SpecsRecordLen), rec)
	assert.Zero(t, codec.Live(""))
}

package jp2_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luismi/jp2_tiles/pkg/jp2"
)

func TestReduce(t *testing.T) {
	assert.Equal(t, 100, jp2.Reduce(100, 0))
	assert.Equal(t, 50, jp2.Reduce(100, 1))
	assert.Equal(t, 13, jp2.Reduce(100, 3))
	assert.Equal(t, 1, jp2.Reduce(1, 5))
	assert.Equal(t, 0, jp2.Reduce(0, 2))
}

func TestGeometry(t *testing.T) {
	g := jp2.GeometryFromInfo(&jp2.CodestreamInfo{
		X1: 1000, Y1: 700,
		TilesX: 4, TilesY: 3,
		TileW: 256, TileH: 256,
		Resolutions: 6,
		Components:  3,
	})

	assert.Equal(t, 5, g.MaxReduction())
	assert.Equal(t, 0, g.ClampReduction(-2))
	assert.Equal(t, 5, g.ClampReduction(9))
	assert.Equal(t, 500, g.ReducedWidth(1))
	assert.Equal(t, 175, g.ReducedHeight(2))
	assert.Equal(t, 6, g.TileIndex(2, 1))

	x, y := g.TileOrigin(3, 2, 1)
	assert.Equal(t, 384, x)
	assert.Equal(t, 256, y)
}

func TestFilterTiles(t *testing.T) {
	g := jp2.Geometry{Width: 1000, Height: 700, TilesX: 4, TilesY: 3, TileW: 256, TileH: 256, Resolutions: 6}

	assert.Equal(t, []int{0, 1, 2, 3}, g.FilterTilesX(0, 1000, 0))
	assert.Equal(t, []int{0}, g.FilterTilesX(0, 256, 0), "a span ending on a tile edge stops there")
	assert.Equal(t, []int{0, 1}, g.FilterTilesX(255, 2, 0))
	assert.Equal(t, []int{1, 2}, g.FilterTilesY(300, 300, 0))
	assert.Equal(t, []int{1}, g.FilterTilesX(130, 10, 1), "tiles are half as wide at reduction 1")
	assert.Empty(t, g.FilterTilesX(10, 0, 0))
	assert.Empty(t, g.FilterTilesX(2000, 10, 0))
}

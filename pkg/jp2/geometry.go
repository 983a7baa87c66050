package jp2

// Geometry is the full-resolution layout of a JP2 image together with the
// tile grid, as reported by a specs query
type Geometry struct {
	Width, Height  int
	TilesX, TilesY int
	TileW, TileH   int
	Resolutions    int
	Components     int
}

// GeometryFromInfo converts a codestream info record
func GeometryFromInfo(info *CodestreamInfo) Geometry {
	return Geometry{
		Width:       info.X1,
		Height:      info.Y1,
		TilesX:      info.TilesX,
		TilesY:      info.TilesY,
		TileW:       info.TileW,
		TileH:       info.TileH,
		Resolutions: info.Resolutions,
		Components:  info.Components,
	}
}

// Reduce halves n, rounding up, once per reduction level
func Reduce(n, reduction int) int {
	for i := 0; i < reduction; i++ {
		n = (n + 1) / 2
	}
	return n
}

// MaxReduction is the largest reduction factor the codestream supports
func (g Geometry) MaxReduction() int {
	return g.Resolutions - 1
}

// ClampReduction limits reduction to [0, MaxReduction]
func (g Geometry) ClampReduction(reduction int) int {
	if reduction > g.MaxReduction() {
		reduction = g.MaxReduction()
	}
	if reduction < 0 {
		reduction = 0
	}
	return reduction
}

// ReducedWidth is the image width at the given reduction
func (g Geometry) ReducedWidth(reduction int) int { return Reduce(g.Width, reduction) }

// ReducedHeight is the image height at the given reduction
func (g Geometry) ReducedHeight(reduction int) int { return Reduce(g.Height, reduction) }

// TileIndex returns the raster index of the tile at column tx, row ty
func (g Geometry) TileIndex(tx, ty int) int {
	return g.TilesX*ty + tx
}

// TileOrigin returns the top-left corner of tile (tx, ty) in the reduced
// image grid
func (g Geometry) TileOrigin(tx, ty, reduction int) (x, y int) {
	return Reduce(tx*g.TileW, reduction), Reduce(ty*g.TileH, reduction)
}

// FilterTilesX returns the tile columns overlapping [x, x+w) at reduction
func (g Geometry) FilterTilesX(x, w, reduction int) []int {
	return filterTiles(x, x+w, g.TilesX, g.TileW, reduction)
}

// FilterTilesY returns the tile rows overlapping [y, y+h) at reduction
func (g Geometry) FilterTilesY(y, h, reduction int) []int {
	return filterTiles(y, y+h, g.TilesY, g.TileH, reduction)
}

// filterTiles works on the reduced grid, where tile i spans
// [ceil(i*size/2^r), ceil((i+1)*size/2^r))
func filterTiles(start, finish, tiles, size, reduction int) []int {
	if size <= 0 || finish <= start {
		return nil
	}
	var indices []int
	for i := 0; i < tiles; i++ {
		lo, hi := Reduce(i*size, reduction), Reduce((i+1)*size, reduction)
		if start < hi && finish > lo {
			indices = append(indices, i)
		}
	}
	return indices
}

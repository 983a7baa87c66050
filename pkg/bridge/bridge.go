// Package bridge flattens reader results into the fixed-layout integer
// records exchanged with a foreign caller. All layout concerns live here;
// the jp2 package only deals in typed results.
package bridge

import (
	"github.com/luismi/jp2_tiles/pkg/jp2"
)

// Record status values
const (
	ReadFailure = 0
	ReadSuccess = 1
)

// Record lengths
const (
	TileRecordLen  = 3
	SpecsRecordLen = 9
)

// Specs record field offsets
const (
	SpecsStatus = iota
	SpecsX1
	SpecsY1
	SpecsTilesX
	SpecsTilesY
	SpecsTileW
	SpecsTileH
	SpecsResolutions
	SpecsComponents
)

// GetTile decodes one tile and returns [status, width, height]. On success
// one sample array per component is stored in pixels, which must hold at
// least as many slots as the image has components. Any failure yields an
// all-zero record and leaves pixels untouched.
func GetTile(r *jp2.Reader, path string, tileIndex, reduction int, pixels [][]int32) []int32 {
	rec := make([]int32, TileRecordLen)

	res, err := r.Tile(path, tileIndex, reduction)
	if err != nil {
		return rec
	}
	img := res.Image
	if len(pixels) < img.Components {
		return rec
	}
	for comp := 0; comp < img.Components; comp++ {
		pixels[comp] = img.Data[comp]
	}

	rec[0] = ReadSuccess
	rec[1] = int32(img.Width)
	rec[2] = int32(img.Height)
	return rec
}

// GetJp2Specs returns [status, x1, y1, tw, th, tdx, tdy, numresolutions,
// numcomps] for the file at path, or an all-zero record on failure
func GetJp2Specs(r *jp2.Reader, path string) []int32 {
	rec := make([]int32, SpecsRecordLen)

	res, err := r.Specs(path)
	if err != nil {
		return rec
	}
	info := res.Info
	rec[SpecsStatus] = ReadSuccess
	rec[SpecsX1] = int32(info.X1)
	rec[SpecsY1] = int32(info.Y1)
	rec[SpecsTilesX] = int32(info.TilesX)
	rec[SpecsTilesY] = int32(info.TilesY)
	rec[SpecsTileW] = int32(info.TileW)
	rec[SpecsTileH] = int32(info.TileH)
	rec[SpecsResolutions] = int32(info.Resolutions)
	rec[SpecsComponents] = int32(info.Components)
	return rec
}

// GeometryFromRecord parses a specs record. ok is false when the record is
// short or carries the failure status.
func GeometryFromRecord(rec []int32) (g jp2.Geometry, ok bool) {
	if len(rec) < SpecsRecordLen || rec[SpecsStatus] != ReadSuccess {
		return jp2.Geometry{}, false
	}
	return jp2.Geometry{
		Width:       int(rec[SpecsX1]),
		Height:      int(rec[SpecsY1]),
		TilesX:      int(rec[SpecsTilesX]),
		TilesY:      int(rec[SpecsTilesY]),
		TileW:       int(rec[SpecsTileW]),
		TileH:       int(rec[SpecsTileH]),
		Resolutions: int(rec[SpecsResolutions]),
		Components:  int(rec[SpecsComponents]),
	}, true
}

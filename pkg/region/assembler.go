// Package region assembles JP2 tiles into RGB images. Each tile is read
// through its own stateless reader call on a bounded pool of workers.
package region

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/luismi/jp2_tiles/config"
	"github.com/luismi/jp2_tiles/pkg/jp2"
	"github.com/luismi/jp2_tiles/pkg/metrics"
)

// TileReader decodes one tile of a file; *jp2.Reader implements it
type TileReader interface {
	Tile(path string, tileIndex, reduction int) (*jp2.TileResult, error)
}

// Assembler decodes the tiles covering a region and paints them into an
// RGBA image
type Assembler struct {
	Reader TileReader
	// Workers bounds the number of tiles decoded at once; 0 uses
	// config.MaxThreadsPerJob
	Workers int
	// Collector, when set, receives the metrics of every tile read
	Collector *metrics.Collector
}

type tileJob struct {
	index            int
	originX, originY int // tile origin in the reduced image grid
}

// Full decodes the whole image at the given reduction
func (a *Assembler) Full(ctx context.Context, path string, g jp2.Geometry, reduction int) (*image.RGBA, error) {
	reduction = g.ClampReduction(reduction)
	return a.Region(ctx, path, g, reduction, 0, 0, g.ReducedWidth(reduction), g.ReducedHeight(reduction))
}

// Region decodes the rectangle (x, y, w, h) of the image reduced by
// reduction. The reduction and the rectangle are clamped to the image; an
// empty rectangle yields a 1x1 black image.
func (a *Assembler) Region(ctx context.Context, path string, g jp2.Geometry, reduction, x, y, w, h int) (*image.RGBA, error) {
	reduction = g.ClampReduction(reduction)
	rw, rh := g.ReducedWidth(reduction), g.ReducedHeight(reduction)
	x = min(max(x, 0), rw)
	y = min(max(y, 0), rh)
	if x+w > rw {
		w = rw - x
	}
	if y+h > rh {
		h = rh - y
	}
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}

	var jobs []tileJob
	for _, tx := range g.FilterTilesX(x, w, reduction) {
		for _, ty := range g.FilterTilesY(y, h, reduction) {
			ox, oy := g.TileOrigin(tx, ty, reduction)
			jobs = append(jobs, tileJob{index: g.TileIndex(tx, ty), originX: ox, originY: oy})
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := a.run(ctx, jobs, func(job tileJob) error {
		res, err := a.Reader.Tile(path, job.index, reduction)
		if err != nil {
			return err
		}
		defer res.Free()
		if a.Collector != nil {
			a.Collector.AddTileMetrics(&res.Metrics)
		}
		paint(out, res.Image, job.originX-x, job.originY-y)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// run executes fn for every job on at most Workers goroutines. The first
// error cancels the jobs that have not started yet.
func (a *Assembler) run(ctx context.Context, jobs []tileJob, fn func(tileJob) error) error {
	workers := a.Workers
	if workers <= 0 {
		workers = config.MaxThreadsPerJob
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	sem := make(chan struct{}, workers)

	for _, job := range jobs {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(job tileJob) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(job); err != nil {
				once.Do(func() {
					firstErr = fmt.Errorf("tile %d: %w", job.index, err)
					cancel()
				})
			}
		}(job)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// paint copies a decoded tile into out with its top-left corner at
// (offX, offY). Pixels falling outside out are skipped.
func paint(out *image.RGBA, img *jp2.DecodedImage, offX, offY int) {
	bounds := out.Bounds()
	for ty := 0; ty < img.Height; ty++ {
		oy := offY + ty
		if oy < bounds.Min.Y || oy >= bounds.Max.Y {
			continue
		}
		for tx := 0; tx < img.Width; tx++ {
			ox := offX + tx
			if ox < bounds.Min.X || ox >= bounds.Max.X {
				continue
			}
			i := ty*img.Width + tx
			r, g, b := rgbAt(img, i)
			p := out.PixOffset(ox, oy)
			out.Pix[p] = r
			out.Pix[p+1] = g
			out.Pix[p+2] = b
			out.Pix[p+3] = 0xff
		}
	}
}

// rgbAt maps the samples at index i to RGB: three or more components are
// read as R, G, B, otherwise component 0 is replicated to gray
func rgbAt(img *jp2.DecodedImage, i int) (r, g, b uint8) {
	if img.Components >= 3 {
		return level(img, 0, i), level(img, 1, i), level(img, 2, i)
	}
	v := level(img, 0, i)
	return v, v, v
}

// level scales sample i of component comp to 8 bits for display. Signed
// samples are offset to unsigned first; a missing precision means 8 bits.
func level(img *jp2.DecodedImage, comp, i int) uint8 {
	data := img.Data[comp]
	if i >= len(data) {
		return 0
	}
	v := int64(data[i])
	prec, signed := 8, false
	if comp < len(img.Info) {
		if p := img.Info[comp].Precision; p > 0 {
			prec = p
		}
		signed = img.Info[comp].Signed
	}
	if signed {
		v += 1 << (prec - 1)
	}
	switch {
	case prec > 8:
		v >>= prec - 8
	case prec < 8:
		v = v * 0xff / (1<<prec - 1)
	}
	return uint8(min(max(v, 0), 0xff))
}

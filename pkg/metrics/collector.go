package metrics

import (
	"sync"
	"time"
)

// Collector handles collecting metrics for a region decode. Tile metrics may
// be added from several goroutines.
type Collector struct {
	mu      sync.Mutex
	metrics *Metrics
}

// NewCollector creates a new metrics collector
func NewCollector(codec string, numThreads int) *Collector {
	return &Collector{
		metrics: &Metrics{
			Codec:      codec,
			NumThreads: numThreads,
		},
	}
}

// StartTiming starts measuring total time
func (c *Collector) StartTiming() time.Time {
	return time.Now()
}

// StopTiming stops measuring total time
func (c *Collector) StopTiming(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.TotalTime = time.Since(start)
}

// SetRegion labels the run
func (c *Collector) SetRegion(label string, reduction int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.Region = label
	c.metrics.Reduction = reduction
}

// SetSpecsMetrics records the header query that preceded the region decode
func (c *Collector) SetSpecsMetrics(m *ReadMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.SpecsTime = m.TotalTime
}

// AddTileMetrics accumulates the metrics of one tile read
func (c *Collector) AddTileMetrics(m *ReadMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.FileTime += m.FileTime
	c.metrics.ParseTime += m.ParseTime
	c.metrics.DecodeTime += m.DecodeTime
	c.metrics.ReadingTime += m.TotalTime
	if c.metrics.TilesDecoded == 0 || m.TotalTime < c.metrics.TileTimeMin {
		c.metrics.TileTimeMin = m.TotalTime
	}
	if m.TotalTime > c.metrics.TileTimeMax {
		c.metrics.TileTimeMax = m.TotalTime
	}
	c.metrics.TilesDecoded += m.NumTiles
}

// SetComposeMetrics sets metrics related to assembling the output image
func (c *Collector) SetComposeMetrics(pixels int, imageSize int64, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.Pixels = pixels
	c.metrics.ImageSize = imageSize
	c.metrics.ComposeTime = d
}

// SetSaveTime sets the time spent saving the image
func (c *Collector) SetSaveTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.SaveTime = d
}

// GetMetrics returns a snapshot of the collected metrics
func (c *Collector) GetMetrics() *Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CopyMetrics(c.metrics)
}

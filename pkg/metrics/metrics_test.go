package metrics

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorTileMetrics(t *testing.T) {
	c := NewCollector("go", 4)
	c.SetRegion("full", 1)

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			c.AddTileMetrics(&ReadMetrics{DecodeTime: d / 2, TotalTime: d, NumTiles: 1})
		}(time.Duration(i) * time.Millisecond)
	}
	wg.Wait()

	m := c.GetMetrics()
	assert.Equal(t, "full", m.Region)
	assert.Equal(t, 1, m.Reduction)
	assert.Equal(t, 10, m.TilesDecoded)
	assert.Equal(t, time.Millisecond, m.TileTimeMin)
	assert.Equal(t, 10*time.Millisecond, m.TileTimeMax)
	assert.Equal(t, 55*time.Millisecond, m.ReadingTime)

	m.TilesDecoded = 0
	assert.Equal(t, 10, c.GetMetrics().TilesDecoded, "GetMetrics returns a copy")
}

func TestAverageMetrics(t *testing.T) {
	acc := InitializeAccumulatedMetrics(&Metrics{TotalTime: 2 * time.Second, TilesDecoded: 4, TileTimeMin: 3 * time.Millisecond, TileTimeMax: 5 * time.Millisecond})
	AggregateMetrics(acc, &Metrics{TotalTime: 4 * time.Second, TilesDecoded: 4, TileTimeMin: time.Millisecond, TileTimeMax: 9 * time.Millisecond})

	avg := AverageMetrics(acc, 2)
	assert.Equal(t, 3*time.Second, avg.TotalTime)
	assert.Equal(t, 4, avg.TilesDecoded)
	assert.Equal(t, time.Millisecond, avg.TileTimeMin)
	assert.Equal(t, 9*time.Millisecond, avg.TileTimeMax)
	assert.Equal(t, 6*time.Second, acc.TotalTime, "the accumulator is left untouched")
}

func TestGetMagnitudeAndUnit(t *testing.T) {
	tests := []struct {
		d    time.Duration
		mag  float64
		unit string
	}{
		{500 * time.Nanosecond, 500, "ns"},
		{1500 * time.Nanosecond, 1.5, "µs"},
		{250 * time.Millisecond, 250, "ms"},
		{2 * time.Second, 2, "s"},
	}
	for _, tt := range tests {
		mag, unit := getMagnitudeAndUnit(tt.d)
		assert.InDelta(t, tt.mag, mag, 1e-9, tt.d.String())
		assert.Equal(t, tt.unit, unit, tt.d.String())
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1.500", formatNumber(1.5, 5))
	assert.Equal(t, "12.25", formatNumber(12.25, 5))
	assert.Equal(t, "123456", formatNumber(123456.7, 5))
}

func TestPrintTables(t *testing.T) {
	ms := []*Metrics{
		{Region: "full", Codec: "go", NumThreads: 1, TotalTime: 4 * time.Second, TilesDecoded: 8},
		{Region: "full", Codec: "go", NumThreads: 4, TotalTime: time.Second, TilesDecoded: 8},
	}
	var buf bytes.Buffer
	PrintMetricsTable(&buf, ms)
	out := buf.String()
	assert.Contains(t, out, "Bottleneck Analysis")
	assert.Contains(t, out, "go x4")

	buf.Reset()
	PrintScalabilityAnalysis(&buf, ms)
	out = buf.String()
	require.Contains(t, out, "Region: full")
	assert.Contains(t, out, "   4.00 ", "speedup of the 4 worker run")
}

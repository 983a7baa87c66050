package metrics

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// PrintMetricsTable prints a table with performance metrics
func PrintMetricsTable(w io.Writer, metricas []*Metrics) {
	// Bottleneck Analysis
	fmt.Fprintln(w, "┌ Bottleneck Analysis ──────────────┬──────────────────┬──────────────────┬──────────────────┬──────────────────┐")
	fmt.Fprintf(w, "│ %-14s │ %-16s │ %-16s │ %-16s │ %-16s │ %-16s │\n",
		"Run",
		"Specs",
		"Tile Reads",
		"Compose",
		"Saving",
		"Total")
	fmt.Fprintln(w, "├────────────────┼─────────┬────────┼─────────┬────────┼─────────┬────────┼─────────┬────────┼─────────┬────────┤")

	for _, m := range metricas {
		specsMag, specsUnit := getMagnitudeAndUnit(m.SpecsTime)
		readMag, readUnit := getMagnitudeAndUnit(m.ReadingTime)
		composeMag, composeUnit := getMagnitudeAndUnit(m.ComposeTime)
		saveMag, saveUnit := getMagnitudeAndUnit(m.SaveTime)
		totalMag, totalUnit := getMagnitudeAndUnit(m.TotalTime)

		// tile reads overlap when several workers run, so the reading share
		// can exceed 100%
		porcSpecs := percentOf(m.SpecsTime, m.TotalTime)
		porcRead := percentOf(m.ReadingTime, m.TotalTime)
		porcCompose := percentOf(m.ComposeTime, m.TotalTime)
		porcSave := percentOf(m.SaveTime, m.TotalTime)

		fmt.Fprintf(w, "│ %-14s │ %s%-2s │ %s%% │ %s%-2s │ %s%% │ %s%-2s │ %s%% │ %s%-2s │ %s%% │ %s%-2s │ %s%% │\n",
			runLabel(m),
			formatNumber(specsMag, 5), specsUnit, formatNumber(porcSpecs, 5),
			formatNumber(readMag, 5), readUnit, formatNumber(porcRead, 5),
			formatNumber(composeMag, 5), composeUnit, formatNumber(porcCompose, 5),
			formatNumber(saveMag, 5), saveUnit, formatNumber(porcSave, 5),
			formatNumber(totalMag, 5), totalUnit, "100.0") // Total is always 100%
	}
	fmt.Fprintln(w, "└────────────────┴─────────┴────────┴─────────┴────────┴─────────┴────────┴─────────┴────────┴─────────┴────────┘")
	fmt.Fprintln(w)

	// Tile Reading Breakdown table
	fmt.Fprintln(w, "┌ Tile Reading Breakdown ─────────┬──────────┬──────────┬──────────┬──────────┬──────────┐")
	fmt.Fprintf(w, "│ %-14s │ %-9s │ %-8s │ %-8s │ %-8s │ %-8s │ %-8s │\n",
		"Run",
		"Tiles",
		"Avg Tile",
		"Min Tile",
		"Max Tile",
		"Total MP",
		"Img Size")
	fmt.Fprintln(w, "├────────────────┼───────────┼──────────┼──────────┼──────────┼──────────┼──────────┤")

	for _, m := range metricas {
		var avg time.Duration
		if m.TilesDecoded > 0 {
			avg = m.ReadingTime / time.Duration(m.TilesDecoded)
		}
		avgMag, avgUnit := getMagnitudeAndUnit(avg)
		minMag, minUnit := getMagnitudeAndUnit(m.TileTimeMin)
		maxMag, maxUnit := getMagnitudeAndUnit(m.TileTimeMax)

		var totalPixelUnit string
		var totalPixelValue float64

		if m.Pixels >= 1000000 {
			totalPixelValue = float64(m.Pixels) / 1000000
			totalPixelUnit = "MP"
		} else if m.Pixels >= 1000 {
			totalPixelValue = float64(m.Pixels) / 1000
			totalPixelUnit = "KP"
		} else {
			totalPixelValue = float64(m.Pixels)
			totalPixelUnit = "P"
		}

		sizeMB := float64(m.ImageSize) / (1024 * 1024)

		fmt.Fprintf(w, "│ %-14s │ %-3d tiles │ %s%-2s │ %s%-2s │ %s%-2s │ %s %-2s │ %s MB │\n",
			runLabel(m),
			m.TilesDecoded,
			formatNumber(avgMag, 5), avgUnit,
			formatNumber(minMag, 5), minUnit,
			formatNumber(maxMag, 5), maxUnit,
			formatNumber(totalPixelValue, 5), totalPixelUnit,
			formatNumber(sizeMB, 5),
		)
	}
	fmt.Fprintln(w, "└────────────────┴───────────┴──────────┴──────────┴──────────┴──────────┴──────────┘")
}

// PrintScalabilityAnalysis prints a table with scalability information
func PrintScalabilityAnalysis(w io.Writer, metricas []*Metrics) {
	fmt.Fprintln(w, "\n--- SCALABILITY ANALYSIS ---")

	// Group metrics by region, keeping first-seen order
	var regions []string
	metricsByRegion := make(map[string][]*Metrics)
	for _, m := range metricas {
		if _, ok := metricsByRegion[m.Region]; !ok {
			regions = append(regions, m.Region)
		}
		metricsByRegion[m.Region] = append(metricsByRegion[m.Region], m)
	}

	for _, region := range regions {
		ms := metricsByRegion[region]
		fmt.Fprintf(w, "\nRegion: %s\n", region)
		fmt.Fprintln(w, "┌────────────────┬────────────┬─────────┬────────────┐")
		fmt.Fprintf(w, "│ %-14s │ %-10s │ %-7s │ %-10s │\n",
			"Workers", "Time (s)", "Speedup", "Efficiency")
		fmt.Fprintln(w, "├────────────────┼────────────┼─────────┼────────────┤")

		// Find reference metric (1 worker)
		var baseTime float64
		for _, m := range ms {
			if m.NumThreads == 1 {
				baseTime = m.TotalTime.Seconds()
				break
			}
		}

		// If no single-worker metric found, use the first one
		if baseTime == 0 {
			baseTime = ms[0].TotalTime.Seconds()
		}

		for _, m := range ms {
			t := m.TotalTime.Seconds()
			speedup := 0.0
			if t > 0 {
				speedup = baseTime / t
			}
			efficiency := speedup / float64(max(m.NumThreads, 1))

			fmt.Fprintf(w, "│ %-14s │ %10.3f │ %7.2f │ %10.2f │\n",
				fmt.Sprintf("%s %d", m.Codec, m.NumThreads), t, speedup, efficiency)
		}
		fmt.Fprintln(w, "└────────────────┴────────────┴─────────┴────────────┘")
	}
}

func runLabel(m *Metrics) string {
	return fmt.Sprintf("%s x%d", m.Codec, m.NumThreads)
}

func percentOf(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// getMagnitudeAndUnit returns the appropriate magnitude and unit for a duration
func getMagnitudeAndUnit(d time.Duration) (float64, string) {
	if d < time.Microsecond {
		return float64(d.Nanoseconds()), "ns"
	} else if d < time.Millisecond {
		return float64(d.Nanoseconds()) / 1000, "µs"
	} else if d < time.Second {
		return float64(d.Nanoseconds()) / 1000000, "ms"
	} else {
		return d.Seconds(), "s"
	}
}

// formatNumber formats a number to display in the metrics table
func formatNumber(num float64, desiredLength int) string {
	integerPart := int(math.Floor(math.Abs(num)))
	integerLength := len(strconv.Itoa(integerPart))

	precision := 0
	if integerLength < desiredLength {
		precision = desiredLength - integerLength
		if precision > 0 {
			precision--
		}
	}

	if precision > 0 {
		return fmt.Sprintf("%.*f", precision, num)
	}
	return fmt.Sprintf("%d", integerPart)
}

// AggregateMetrics adds values from two metrics structures
// Used to accumulate metrics in multiple runs
func AggregateMetrics(accumulated, next *Metrics) {
	accumulated.TotalTime += next.TotalTime
	accumulated.SpecsTime += next.SpecsTime
	accumulated.ReadingTime += next.ReadingTime
	accumulated.FileTime += next.FileTime
	accumulated.ParseTime += next.ParseTime
	accumulated.DecodeTime += next.DecodeTime
	accumulated.ComposeTime += next.ComposeTime
	accumulated.SaveTime += next.SaveTime
	accumulated.TilesDecoded += next.TilesDecoded
	accumulated.TileTimeMin = min(accumulated.TileTimeMin, next.TileTimeMin)
	accumulated.TileTimeMax = max(accumulated.TileTimeMax, next.TileTimeMax)
}

// AverageMetrics calculates the average of accumulated metrics
func AverageMetrics(accumulated *Metrics, numRuns int) *Metrics {
	result := *accumulated // Copy all values
	if numRuns <= 1 {
		return &result
	}

	n := time.Duration(numRuns)
	result.TotalTime /= n
	result.SpecsTime /= n
	result.ReadingTime /= n
	result.FileTime /= n
	result.ParseTime /= n
	result.DecodeTime /= n
	result.ComposeTime /= n
	result.SaveTime /= n
	result.TilesDecoded /= numRuns

	// Min/Max, pixels and image size remain the same

	return &result
}

// CopyMetrics creates a copy of the metrics
func CopyMetrics(m *Metrics) *Metrics {
	c := *m
	return &c
}

// InitializeAccumulatedMetrics creates an initial structure for accumulating metrics
func InitializeAccumulatedMetrics(original *Metrics) *Metrics {
	return CopyMetrics(original)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/luismi/jp2_tiles/config"
	"github.com/luismi/jp2_tiles/pkg/bridge"
	"github.com/luismi/jp2_tiles/pkg/jp2"
	"github.com/luismi/jp2_tiles/pkg/metrics"
	"github.com/luismi/jp2_tiles/pkg/region"
	"github.com/luismi/jp2_tiles/pkg/utils"
)

func parseInts(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var out []int
	for _, s := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", s)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseFlags(args []string) (*config.Config, error) {
	cfg := config.Default()
	fs := flag.NewFlagSet("jp2read", flag.ContinueOnError)

	fs.StringVar(&cfg.File, "file", "", "Path to the JP2 file")
	fs.StringVar(&cfg.Codec, "codec", cfg.Codec, "Codec backend ("+strings.Join(codecNames(), ", ")+
		"); the go codec has no reduction and decodes the whole image once per tile")
	fs.IntVar(&cfg.Reduction, "reduce", 0, "Resolution reduction factor")
	regionFlag := fs.String("region", "", "Region to decode as x,y,w,h in reduced coordinates (default full image)")
	threads := fs.String("threads", "8", "Comma-separated list of worker pool sizes to run")
	fs.IntVar(&cfg.Iterations, "iter", cfg.Iterations, "Number of iterations per thread configuration")
	fs.IntVar(&cfg.Layers, "layers", cfg.Layers, "Quality layer limit")
	fs.IntVar(&cfg.CodecThreads, "codec-threads", 0, "Thread hint passed to the codec per decode (0 = codec default)")
	fs.StringVar(&cfg.Output, "out", "", "Write the decoded region to this file (.jpg, .png, .tif)")
	fs.IntVar(&cfg.ThumbWidth, "width", 0, "Resize the output to this width before saving")
	fs.BoolVar(&cfg.SpecsOnly, "specs", false, "Print the codestream specs and exit")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.Region, err = parseInts(*regionFlag); err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}
	if cfg.Threads, err = parseInts(*threads); err != nil {
		return nil, fmt.Errorf("threads: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	codec, err := newCodec(cfg.Codec)
	if err != nil {
		log.Fatal(err)
	}
	logger := log.WithField("file", cfg.File)
	reader := jp2.NewReader(codec,
		jp2.WithDiagnostics(jp2.NewLogDiagnostics(logger, codec.Name())),
		jp2.WithLayers(cfg.Layers),
		jp2.WithThreads(cfg.CodecThreads),
	)

	if cfg.SpecsOnly {
		printSpecs(reader, cfg.File)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("JP2 Region Benchmark Configuration:")
	fmt.Printf("  File: %s\n", cfg.File)
	fmt.Printf("  Codec: %s\n", codec.Name())
	fmt.Printf("  Reduction: %d\n", cfg.Reduction)
	fmt.Printf("  Iterations: %d\n", cfg.Iterations)
	fmt.Printf("  Thread Configurations: %v\n", cfg.Threads)

	var allMetrics []*metrics.Metrics
	for _, threads := range cfg.Threads {
		logger.Infof("running with %d workers", threads)
		m, err := runBenchmark(ctx, logger, reader, cfg, threads)
		if err != nil {
			log.Fatal(err)
		}
		allMetrics = append(allMetrics, m)
	}

	fmt.Println("\n=== Benchmark Results ===")
	metrics.PrintMetricsTable(os.Stdout, allMetrics)
	metrics.PrintScalabilityAnalysis(os.Stdout, allMetrics)
}

// printSpecs prints the flat specs record of path
func printSpecs(reader *jp2.Reader, path string) {
	rec := bridge.GetJp2Specs(reader, path)
	g, ok := bridge.GeometryFromRecord(rec)
	if !ok {
		log.WithField("file", path).Fatal("could not read codestream specs")
	}
	fmt.Printf("%s\n", path)
	fmt.Printf("  Size: %dx%d, %d components\n", g.Width, g.Height, g.Components)
	fmt.Printf("  Tiles: %dx%d of %dx%d\n", g.TilesX, g.TilesY, g.TileW, g.TileH)
	fmt.Printf("  Resolutions: %d (max reduction %d)\n", g.Resolutions, g.MaxReduction())
}

// regionTiles counts the tiles a region read opens a session for
func regionTiles(g jp2.Geometry, reduction, x, y, w, h int) int {
	return len(g.FilterTilesX(x, w, reduction)) * len(g.FilterTilesY(y, h, reduction))
}

// fullDecodeWarning is non-empty when the codec pays a whole-image decode
// for each of the region's tiles
func fullDecodeWarning(codecName string, tiles int) string {
	if codecName != config.CodecGo || tiles < 2 {
		return ""
	}
	return fmt.Sprintf("codec %s decodes the full image for each of the %d tiles", codecName, tiles)
}

func regionLabel(cfg *config.Config) string {
	if len(cfg.Region) == 0 {
		return "full"
	}
	r := cfg.Region
	return fmt.Sprintf("%d,%d %dx%d", r[0], r[1], r[2], r[3])
}

// runBenchmark decodes the configured region cfg.Iterations times and
// returns the averaged metrics
func runBenchmark(ctx context.Context, logger log.FieldLogger, reader *jp2.Reader, cfg *config.Config, threads int) (*metrics.Metrics, error) {
	var accumulated *metrics.Metrics

	for i := range cfg.Iterations {
		logger.Debugf("iteration %d/%d", i+1, cfg.Iterations)
		collector := metrics.NewCollector(reader.Codec().Name(), threads)
		start := collector.StartTiming()

		specs, err := reader.Specs(cfg.File)
		if err != nil {
			return nil, err
		}
		collector.SetSpecsMetrics(&specs.Metrics)
		g := jp2.GeometryFromInfo(specs.Info)
		reduction := g.ClampReduction(cfg.Reduction)
		if reduction != cfg.Reduction {
			logger.Warnf("reduction %d clamped to %d", cfg.Reduction, reduction)
		}
		collector.SetRegion(regionLabel(cfg), reduction)

		asm := &region.Assembler{Reader: reader, Workers: threads, Collector: collector}
		startCompose := time.Now()
		var x, y, w, h int
		if len(cfg.Region) == 4 {
			x, y, w, h = cfg.Region[0], cfg.Region[1], cfg.Region[2], cfg.Region[3]
		} else {
			w, h = g.ReducedWidth(reduction), g.ReducedHeight(reduction)
		}
		if i == 0 {
			if msg := fullDecodeWarning(reader.Codec().Name(), regionTiles(g, reduction, x, y, w, h)); msg != "" {
				logger.Warn(msg)
			}
		}
		img, err := asm.Region(ctx, cfg.File, g, reduction, x, y, w, h)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		collector.SetComposeMetrics(b.Dx()*b.Dy(), int64(len(img.Pix)), time.Since(startCompose))
		utils.LogMemoryUsage(logger, "after compose")

		if cfg.Output != "" {
			saveTime, err := saveImage(cfg.Output, img, cfg.ThumbWidth)
			if err != nil {
				return nil, err
			}
			collector.SetSaveTime(saveTime)
		}
		collector.StopTiming(start)

		m := collector.GetMetrics()
		if accumulated == nil {
			accumulated = metrics.InitializeAccumulatedMetrics(m)
		} else {
			metrics.AggregateMetrics(accumulated, m)
		}

		utils.FreeMemory()
		utils.LogMemoryUsage(logger, "after gc")
	}
	return metrics.AverageMetrics(accumulated, cfg.Iterations), nil
}

package metrics

import "time"

// Metrics contains all the metrics of one region decode run
type Metrics struct {
	Region       string // label of the decoded area
	Codec        string // backend name
	NumThreads   int    // tile workers used
	Reduction    int
	TotalTime    time.Duration
	SpecsTime    time.Duration
	ReadingTime  time.Duration // sum of per-tile read times
	FileTime     time.Duration
	ParseTime    time.Duration
	DecodeTime   time.Duration
	ComposeTime  time.Duration
	SaveTime     time.Duration
	TileTimeMin  time.Duration
	TileTimeMax  time.Duration
	TilesDecoded int
	Pixels       int
	ImageSize    int64
}

// ReadMetrics contains metrics associated with one JP2 reader call
type ReadMetrics struct {
	FileTime    time.Duration // signature sniff
	ParseTime   time.Duration // session setup up to the header read
	DecodeTime  time.Duration
	GetInfoTime time.Duration
	NumTiles    int
	TotalTime   time.Duration
}

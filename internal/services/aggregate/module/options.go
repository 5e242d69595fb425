package module

import (
	"runtime"
	"strings"
	"time"

	"ghscore/internal/adapters/ingest/gharchive"
	"ghscore/internal/core/report"
	"ghscore/internal/platform/config"
	"ghscore/internal/platform/validate"
	"ghscore/internal/services/aggregate/service"
)

func init() {
	// the accepted codec names come from the reader's codec table
	validate.RegisterSet("codec", gharchive.Codecs())
}

// Options holds configuration options for the aggregation job
type Options struct {
	// Scheduling
	Workers        int           `env:"CORE_AGGREGATE_WORKERS" validate:"min=0,max=1024"` // 0 = GOMAXPROCS
	RunTimeout     time.Duration `env:"CORE_AGGREGATE_RUN_TIMEOUT" validate:"min=0"`
	FileTimeout    time.Duration `env:"CORE_AGGREGATE_FILE_TIMEOUT" validate:"min=0"`
	DecodeLogBurst int           `env:"CORE_AGGREGATE_DECODE_LOG_BURST" validate:"min=0"`

	// Report
	Threshold int `env:"CORE_AGGREGATE_THRESHOLD" validate:"min=0"`
	Top       int `env:"CORE_AGGREGATE_TOP" validate:"min=0"`

	// Reader
	Codec        string        `env:"CORE_INGEST_CODEC" validate:"codec"`
	SegmentSize  int           `env:"CORE_INGEST_SEGMENT_SIZE" validate:"min=4096"`
	SegmentDepth int           `env:"CORE_INGEST_SEGMENT_DEPTH" validate:"min=1,max=1024"`
	StallTimeout time.Duration `env:"CORE_INGEST_STALL_TIMEOUT" validate:"min=0"`
	MaxLineBytes int           `env:"CORE_INGEST_MAX_LINE_BYTES" validate:"min=1024"`
	Mmap         bool          `env:"CORE_INGEST_MMAP"`
}

// FromConfig reads the options from config with CORE_AGGREGATE_ and CORE_INGEST_ prefixes
func FromConfig(cfg config.Conf) Options {
	ag := cfg.Prefix("CORE_AGGREGATE_")
	in := cfg.Prefix("CORE_INGEST_")
	return Options{
		Workers:        ag.MayInt("WORKERS", runtime.GOMAXPROCS(0)),
		RunTimeout:     ag.MayDuration("RUN_TIMEOUT", 0),
		FileTimeout:    ag.MayDuration("FILE_TIMEOUT", 0),
		DecodeLogBurst: ag.MayInt("DECODE_LOG_BURST", 10),
		Threshold:      ag.MayInt("THRESHOLD", report.DefaultThreshold),
		Top:            ag.MayInt("TOP", report.DefaultTop),

		Codec:        strings.ToLower(in.MayString("CODEC", gharchive.CodecGzip)),
		SegmentSize:  in.MayBytes("SEGMENT_SIZE", gharchive.DefaultSegmentSize),
		SegmentDepth: in.MayInt("SEGMENT_DEPTH", gharchive.DefaultSegmentDepth),
		StallTimeout: in.MayDuration("STALL_TIMEOUT", 0),
		MaxLineBytes: in.MayBytes("MAX_LINE_BYTES", gharchive.DefaultMaxLineBytes),
		Mmap:         in.MayBool("MMAP", true),
	}
}

// Validate checks ranges and reports the first offending setting
func (o Options) Validate() error { return validate.Struct(o) }

// Reader returns the archive reader options
func (o Options) Reader() gharchive.Options {
	return gharchive.Options{
		Codec:        o.Codec,
		SegmentSize:  o.SegmentSize,
		SegmentDepth: o.SegmentDepth,
		StallTimeout: o.StallTimeout,
		MaxLineBytes: o.MaxLineBytes,
		LineBufSize:  gharchive.DefaultLineBufSize,
		Mmap:         o.Mmap,
	}
}

// Service returns the scheduler config
func (o Options) Service() service.Config {
	w := o.Workers
	if w == 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return service.Config{
		Workers:        w,
		RunTimeout:     o.RunTimeout,
		FileTimeout:    o.FileTimeout,
		DecodeLogBurst: uint32(o.DecodeLogBurst),
	}
}

// Report returns the ranking options
func (o Options) Report() report.Options {
	return report.Options{Threshold: uint64(o.Threshold), Top: o.Top}
}

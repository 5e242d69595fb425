package domain

import (
	"context"
	"iter"

	"ghscore/internal/adapters/ingest/gharchive"
	"ghscore/internal/core/classify"
	"ghscore/internal/core/decode"
	"ghscore/internal/core/score"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context, paths []string) (*score.Store, RunReport, error)
}

// LineSource is one opened archive file
type LineSource interface {
	Lines() iter.Seq[[]byte]
	Err() error
	Stats() gharchive.Stats
	Close() error
}

// SourceOpener opens archive files for reading
type SourceOpener interface {
	Open(ctx context.Context, path string) (LineSource, error)
}

// Classifier tags lines by event kind; shared by all workers
type Classifier interface {
	Classify(line []byte) (classify.Kind, bool)
}

// Decoder decodes classified lines; one per worker
type Decoder interface {
	Decode(kind classify.Kind, line []byte) (decode.Record, error)
}

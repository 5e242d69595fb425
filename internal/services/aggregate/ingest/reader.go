// Package ingest adapts the archive reader to the aggregation ports
package ingest

import (
	"context"

	"ghscore/internal/adapters/ingest/gharchive"
	"ghscore/internal/services/aggregate/domain"
)

// opener adapts gharchive.Open to domain.SourceOpener
type opener struct {
	opt gharchive.Options
}

// NewOpener returns an opener that reads every file with opt
func NewOpener(opt gharchive.Options) domain.SourceOpener { return opener{opt: opt} }

func (o opener) Open(ctx context.Context, path string) (domain.LineSource, error) {
	rd, err := gharchive.Open(ctx, path, o.opt)
	if err != nil {
		return nil, err
	}
	return rd, nil
}

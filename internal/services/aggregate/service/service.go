// Package service provides the aggregation job: a bounded pool of file workers
// whose per-file stores are folded into one result
package service

import (
	"context"
	"runtime"
	"time"

	"ghscore/internal/adapters/ingest/gharchive"
	"ghscore/internal/core/classify"
	"ghscore/internal/core/score"
	perr "ghscore/internal/platform/errors"
	"ghscore/internal/platform/logger"
	"ghscore/internal/platform/metrics"
	"ghscore/internal/services/aggregate/domain"
	"ghscore/internal/services/aggregate/guardrails"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration options for the aggregation service
type Config struct {
	// Workers is the number of files processed at once; <=0 -> GOMAXPROCS
	Workers int

	// RunTimeout caps the whole run; 0 = none
	RunTimeout time.Duration

	// FileTimeout caps one file; 0 = none
	FileTimeout time.Duration

	// DecodeLogBurst caps bad-line warnings per file per second; 0 logs every one
	DecodeLogBurst uint32
}

// Service implements domain.RunnerPort
type Service struct {
	Open       domain.SourceOpener
	Classifier domain.Classifier
	NewDecoder func() domain.Decoder
	Metrics    metrics.Recorder
	Cfg        Config
}

// New constructs the aggregation service
func New(
	open domain.SourceOpener,
	cls domain.Classifier,
	newDecoder func() domain.Decoder,
	rec metrics.Recorder,
	cfg Config,
) *Service {
	if open == nil {
		panic("aggregate.Service requires a non nil SourceOpener")
	}
	if cls == nil {
		panic("aggregate.Service requires a non nil Classifier")
	}
	if newDecoder == nil {
		panic("aggregate.Service requires a decoder factory")
	}
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Service{Open: open, Classifier: cls, NewDecoder: newDecoder, Metrics: rec, Cfg: cfg}
}

type outcome struct {
	idx   int
	res   domain.FileResult
	store *score.Store
}

// Run aggregates paths in parallel. Each file is isolated: a failure is recorded
// in its FileResult and its partial counts are dropped. On cancellation or when the
// run budget runs out no new files start and Run returns what finished together
// with the context error
func (s *Service) Run(ctx context.Context, paths []string) (*score.Store, domain.RunReport, error) {
	start := time.Now()
	ctx, cancel := guardrails.WithRun(ctx, s.timeouts())
	defer cancel()
	rep := domain.RunReport{Files: make([]domain.FileResult, len(paths))}
	merged := score.New()
	if len(paths) == 0 {
		return merged, rep, nil
	}

	w := s.Cfg.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	w = min(w, len(paths))

	log := logger.C(ctx)
	log.Info().Int("files", len(paths)).Int("workers", w).Msg("aggregate: run started")

	// the collector is the only writer of merged and rep
	results := make(chan outcome, w)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for o := range results {
			rep.Files[o.idx] = o.res
			if o.store != nil {
				score.MergeInto(merged, o.store)
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(w)
	dispatched := 0
	for i, p := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, st := s.processFile(ctx, p)
			if !res.OK() {
				st = nil
			}
			results <- outcome{idx: i, res: res, store: st}
			return nil
		})
		dispatched++
	}
	_ = g.Wait()
	close(results)
	<-collected

	rep.Skipped = len(paths) - dispatched
	rep.Elapsed = time.Since(start)

	t := rep.Totals()
	log.Info().
		Int("files", t.Files).
		Int("failed", t.Failed).
		Int("skipped", rep.Skipped).
		Int64("lines", t.Lines).
		Int64("bad_lines", t.BadLines).
		Str("read", humanize.IBytes(uint64(t.Bytes))).
		Int("repos", merged.Len()).
		Int("hours", len(rep.Hours())).
		Dur("elapsed", rep.Elapsed).
		Msg("aggregate: run finished")

	if err := ctx.Err(); err != nil {
		return merged, rep, perr.FromContext(err, "aggregate: run interrupted")
	}
	return merged, rep, nil
}

func (s *Service) timeouts() guardrails.Timeouts {
	return guardrails.Timeouts{Run: s.Cfg.RunTimeout, File: s.Cfg.FileTimeout}
}

// processFile reads one archive into a fresh store
func (s *Service) processFile(ctx context.Context, path string) (res domain.FileResult, st *score.Store) {
	res.Path = path
	res.Hour, res.HasHour = gharchive.HourOf(path)
	st = score.New()

	fctx, cancel := guardrails.ForFile(logger.WithFile(ctx, path), s.timeouts())
	defer cancel()

	log := logger.C(fctx)
	badLog := logger.Burst(log, s.Cfg.DecodeLogBurst, time.Second)
	t0 := time.Now()
	log.Debug().Msg("aggregate: visiting file")

	defer func() {
		res.Elapsed = time.Since(t0)
		res.Repos = st.Len()
		res.NameConflicts = st.NameConflicts()
		s.Metrics.RecordFile(ctx, res.Code(), res.Elapsed)
		s.Metrics.RecordLines(ctx, metrics.LineCounts{
			Lines:        res.Lines,
			Unclassified: res.Unclassified,
			Decoded:      res.Decoded,
			BadLines:     res.BadLines,
			Bytes:        res.Bytes,
		})
		if res.Err != nil {
			log.Error().
				Err(res.Err).
				Str("code", res.Code()).
				Bool("retryable", perr.Retryable(res.Err)).
				Int64("lines", res.Lines).
				Msg("aggregate: file failed")
			return
		}
		if res.NameConflicts > 0 {
			log.Debug().Uint64("name_conflicts", res.NameConflicts).Msg("aggregate: repositories seen under more than one name")
		}
		ev := log.Info()
		if res.HasHour {
			ev = ev.Str("hour", res.Hour.String())
		}
		ev.Int64("lines", res.Lines).
			Int64("bad_lines", res.BadLines).
			Int("repos", res.Repos).
			Dur("elapsed", res.Elapsed).
			Msg("aggregate: file done")
	}()

	src, err := s.Open.Open(fctx, path)
	if err != nil {
		res.Err = err
		return res, st
	}
	defer func() {
		if cerr := src.Close(); cerr != nil && res.Err == nil {
			res.Err = cerr
		}
	}()

	dec := s.NewDecoder()
	for line := range src.Lines() {
		kind, ok := s.Classifier.Classify(line)
		if !ok {
			res.Unclassified++
			log.Trace().Int("line_bytes", len(line)).Msg("aggregate: unclassified line")
			continue
		}
		if kind == classify.KindOther {
			continue
		}
		rec, err := dec.Decode(kind, line)
		if err != nil {
			res.BadLines++
			badLog.Warn().Err(err).Str("code", perr.CodeOf(err).String()).Str("kind", kind.String()).Msg("aggregate: skipped bad line")
			continue
		}
		res.Decoded++
		st.Apply(rec)
	}
	res.Err = src.Err()

	stats := src.Stats()
	res.Lines = stats.Lines
	res.Bytes = stats.Bytes
	res.CompressedBytes = stats.CompressedBytes
	return res, st
}

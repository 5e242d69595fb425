// Package metrics records ingest counters through OpenTelemetry.
// The recorder uses the global meter provider; without one configured every call is a no-op.
package metrics

import (
	"context"
	"time"

	"ghscore/internal/platform/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder records per-file ingest metrics
type Recorder interface {
	// RecordFile records one finished file; code is "ok" on success, else the perr code label
	RecordFile(ctx context.Context, code string, duration time.Duration)

	// RecordLines records the line and byte counters of one file
	RecordLines(ctx context.Context, c LineCounts)
}

// LineCounts is the per-file counter bundle handed to RecordLines
type LineCounts struct {
	Lines        int64
	Unclassified int64
	Decoded      int64
	BadLines     int64
	Bytes        int64
}

type otelRecorder struct {
	files        metric.Int64Counter
	fileLatency  metric.Float64Histogram
	lines        metric.Int64Counter
	unclassified metric.Int64Counter
	decoded      metric.Int64Counter
	badLines     metric.Int64Counter
	bytes        metric.Int64Counter
}

// New returns a Recorder backed by the global OTel meter provider.
// Falls back to Noop if instrument creation fails
func New() Recorder {
	r, err := newOtel(otel.Meter("ghscore"))
	if err != nil {
		logger.Named("metrics").Warn().Err(err).Msg("metrics initialization failed, using no-op recorder")
		return Noop{}
	}
	return r
}

func newOtel(meter metric.Meter) (*otelRecorder, error) {
	var (
		r   otelRecorder
		err error
	)
	if r.files, err = meter.Int64Counter("ghscore.files",
		metric.WithDescription("Number of archive files processed"),
	); err != nil {
		return nil, err
	}
	if r.fileLatency, err = meter.Float64Histogram("ghscore.file.latency_ms",
		metric.WithDescription("Per-file processing latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if r.lines, err = meter.Int64Counter("ghscore.lines",
		metric.WithDescription("Number of lines read from archives"),
	); err != nil {
		return nil, err
	}
	if r.unclassified, err = meter.Int64Counter("ghscore.unclassified_lines",
		metric.WithDescription("Lines without a type tag"),
	); err != nil {
		return nil, err
	}
	if r.decoded, err = meter.Int64Counter("ghscore.decoded_lines",
		metric.WithDescription("Lines fully decoded"),
	); err != nil {
		return nil, err
	}
	if r.badLines, err = meter.Int64Counter("ghscore.bad_lines",
		metric.WithDescription("Classified lines that failed to decode"),
	); err != nil {
		return nil, err
	}
	if r.bytes, err = meter.Int64Counter("ghscore.bytes",
		metric.WithDescription("Uncompressed bytes read"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *otelRecorder) RecordFile(ctx context.Context, code string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.Bool("success", code == "ok"),
		attribute.String("code", code),
	)
	r.files.Add(ctx, 1, attrs)
	r.fileLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (r *otelRecorder) RecordLines(ctx context.Context, c LineCounts) {
	r.lines.Add(ctx, c.Lines)
	r.unclassified.Add(ctx, c.Unclassified)
	r.decoded.Add(ctx, c.Decoded)
	r.badLines.Add(ctx, c.BadLines)
	r.bytes.Add(ctx, c.Bytes)
}

// Noop is a Recorder that does nothing
type Noop struct{}

var _ Recorder = Noop{}

// RecordFile does nothing
func (Noop) RecordFile(context.Context, string, time.Duration) {}

// RecordLines does nothing
func (Noop) RecordLines(context.Context, LineCounts) {}

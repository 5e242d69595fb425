// Package module provides the aggregation module implementation
package module

import (
	"ghscore/internal/core/classify"
	"ghscore/internal/core/decode"
	"ghscore/internal/modkit"
	"ghscore/internal/services/aggregate/domain"
	"ghscore/internal/services/aggregate/ingest"
	"ghscore/internal/services/aggregate/service"
)

// Ports defines the aggregation module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the aggregation module
type Module struct {
	opts  Options
	ports Ports
}

// New constructs the aggregation module from CORE_AGGREGATE_* and CORE_INGEST_* in deps.Cfg.
// It fails with a validation error when a setting is out of range
func New(deps modkit.Deps) (*Module, error) {
	return NewWithOptions(deps, FromConfig(deps.Cfg))
}

// NewWithOptions constructs the module from explicit options
func NewWithOptions(deps modkit.Deps, opts Options) (*Module, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// one compiled classifier shared by every worker, one decoder per worker
	cls := classify.New()
	svc := service.New(
		ingest.NewOpener(opts.Reader()),
		cls,
		func() domain.Decoder { return decode.New() },
		deps.Recorder(),
		opts.Service(),
	)

	m := &Module{opts: opts}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "aggregate" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Options returns the validated options the module was built with
func (m *Module) Options() Options { return m.opts }

// Package modkit provides module wiring and core deps
package modkit

import (
	"ghscore/internal/platform/config"
	"ghscore/internal/platform/logger"
	"ghscore/internal/platform/metrics"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	Metrics metrics.Recorder
}

// Recorder returns Metrics or a no-op recorder when unset
func (d Deps) Recorder() metrics.Recorder {
	if d.Metrics == nil {
		return metrics.Noop{}
	}
	return d.Metrics
}

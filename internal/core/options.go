package core

import (
	"log/slog"

	"fitcore/pkg/domain"
)

// Option configures a Fit.
type Option func(*Fit)

// WithLogger routes engine diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fit) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(f *Fit) {
		if recorder != nil {
			f.metrics = recorder
		}
	}
}

// WithPenaltyImmune replaces the categories exempt from stacking penalties.
func WithPenaltyImmune(categories ...domain.CategoryID) Option {
	return func(f *Fit) {
		f.immune = make(map[domain.CategoryID]struct{}, len(categories))
		for _, c := range categories {
			f.immune[c] = struct{}{}
		}
	}
}

// WithMaxDepth bounds nested attribute calculations.
func WithMaxDepth(depth int) Option {
	return func(f *Fit) {
		if depth > 0 {
			f.maxDepth = depth
		}
	}
}

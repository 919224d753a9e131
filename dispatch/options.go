package dispatch

import (
	"github.com/juju/clock"

	"github.com/vdodev-go/flowmesh/log"
	"github.com/vdodev-go/flowmesh/metrics"
)

// Option configures an Engine at construction time, following the
// Option func(*options) pattern used throughout the teacher's runner
// and telemetry packages.
type Option func(*Engine)

// WithLogger overrides the engine's logger. Defaults to log.Default.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the engine's clock, primarily so tests can use a
// clock.WallClock substitute without real sleeps (juju/clock/testclock).
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) {
		e.clk = clk
	}
}

// WithMetrics overrides the engine's metrics bundle. Defaults to a
// private, unregistered bundle via metrics.Noop.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithBatchCap overrides the maximum number of queued records drained
// per wake cycle. Defaults to 100 (spec.md §4.3's "e.g., 100").
func WithBatchCap(cap int) Option {
	return func(e *Engine) {
		if cap > 0 {
			e.batchCap = cap
		}
	}
}

// Package metrics exposes the sync engine's run statistics as
// Prometheus counters and gauges: the concrete form of the
// specification's state_usage family.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors bundles the counters and gauges a single engine registers.
type Collectors struct {
	BlocksProcessed   prometheus.Counter
	Errors            prometheus.Counter
	SilentErrors      prometheus.Counter
	IOErrors          prometheus.Counter
	FixedErrors       prometheus.Counter
	AutosaveTotal     prometheus.Counter
	LastRunDuration   prometheus.Gauge
}

// New creates and registers a Collectors set against reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		BlocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goparity",
			Subsystem: "sync",
			Name:      "blocks_processed_total",
			Help:      "Number of block indices examined by the sync pass.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goparity",
			Subsystem: "sync",
			Name:      "errors_total",
			Help:      "Number of per-block non-fatal errors (stat mismatch, ENOENT, hash mismatch on REP).",
		}),
		SilentErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goparity",
			Subsystem: "sync",
			Name:      "silent_errors_total",
			Help:      "Number of hash mismatches detected on BLK blocks.",
		}),
		IOErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goparity",
			Subsystem: "sync",
			Name:      "io_errors_total",
			Help:      "Number of EIO errors observed on data or parity I/O.",
		}),
		FixedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goparity",
			Subsystem: "sync",
			Name:      "fixed_errors_total",
			Help:      "Number of silent errors successfully repaired via RAID reconstruction during sync.",
		}),
		AutosaveTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goparity",
			Subsystem: "sync",
			Name:      "autosave_total",
			Help:      "Number of autosave checkpoints performed.",
		}),
		LastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "goparity",
			Subsystem: "sync",
			Name:      "last_run_duration_seconds",
			Help:      "Wall-clock duration of the most recently completed sync run.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.BlocksProcessed,
			c.Errors,
			c.SilentErrors,
			c.IOErrors,
			c.FixedErrors,
			c.AutosaveTotal,
			c.LastRunDuration,
		)
	}

	return c
}

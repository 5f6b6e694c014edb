package configs

import "time"

// Sweep configures the periodic reconciliation pass that catches limit
// edits made outside the event path.
type Sweep struct {
	// Interval is the time between sweeps. Defaults to one minute.
	Interval time.Duration `env:"INTERVAL" envDefault:"1m"`
	// Concurrency caps how many ads are reconciled in flight at once.
	Concurrency int `env:"CONCURRENCY" envDefault:"8"`
	// OpTimeout bounds each per-ad reconcile so one stuck ad does not
	// stall the pass over the rest.
	OpTimeout time.Duration `env:"OP_TIMEOUT" envDefault:"5s"`
}

// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Write outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Dispatch metrics
	IncDispatch(handler string, status int)
	ObserveDispatchDuration(handler string, duration time.Duration)

	// Entity write metrics. op is "create", "update" or "delete".
	IncEntityWrite(kind, op, outcome string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncDispatch is a no-op.
func (n *NoopRecorder) IncDispatch(handler string, status int) {}

// ObserveDispatchDuration is a no-op.
func (n *NoopRecorder) ObserveDispatchDuration(handler string, duration time.Duration) {}

// IncEntityWrite is a no-op.
func (n *NoopRecorder) IncEntityWrite(kind, op, outcome string) {}

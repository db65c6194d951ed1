package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// DispatchKey labels a dispatch counter.
type DispatchKey struct {
	Handler string
	Status  int
}

// WriteKey labels an entity write counter.
type WriteKey struct {
	Kind    string
	Op      string
	Outcome string
}

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Dispatches              map[DispatchKey]uint64
	DispatchDurationCount   uint64
	DispatchDurationTotalNs int64
	EntityWrites            map[WriteKey]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu           sync.Mutex
	dispatches   map[DispatchKey]uint64
	entityWrites map[WriteKey]uint64

	dispatchDurationCount   uint64
	dispatchDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		dispatches:   make(map[DispatchKey]uint64),
		entityWrites: make(map[WriteKey]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Dispatches:              make(map[DispatchKey]uint64, len(m.dispatches)),
		EntityWrites:            make(map[WriteKey]uint64, len(m.entityWrites)),
		DispatchDurationCount:   atomic.LoadUint64(&m.dispatchDurationCount),
		DispatchDurationTotalNs: atomic.LoadInt64(&m.dispatchDurationTotalNs),
	}
	for k, v := range m.dispatches {
		snap.Dispatches[k] = v
	}
	for k, v := range m.entityWrites {
		snap.EntityWrites[k] = v
	}
	return snap
}

// IncDispatch increments the counter for handler and status.
func (m *InMemoryRecorder) IncDispatch(handler string, status int) {
	m.mu.Lock()
	m.dispatches[DispatchKey{Handler: handler, Status: status}]++
	m.mu.Unlock()
}

// ObserveDispatchDuration records handler duration.
func (m *InMemoryRecorder) ObserveDispatchDuration(handler string, duration time.Duration) {
	atomic.AddUint64(&m.dispatchDurationCount, 1)
	atomic.AddInt64(&m.dispatchDurationTotalNs, duration.Nanoseconds())
}

// IncEntityWrite increments the write counter for kind, op and outcome.
func (m *InMemoryRecorder) IncEntityWrite(kind, op, outcome string) {
	m.mu.Lock()
	m.entityWrites[WriteKey{Kind: kind, Op: op, Outcome: outcome}]++
	m.mu.Unlock()
}

package metrics

import "sync/atomic"

// MetricID identifies one counter slot.
type MetricID int

const (
	MetricStartSuccess MetricID = iota
	MetricStartValidationFailed
	MetricStartRateLimited
	MetricVerifySuccess
	MetricVerifyFailure
	MetricVerifyReplayBlocked
	MetricVerifyExhausted
	MetricResendSuccess
	MetricResendBlocked
	MetricFederatedSuccess
	MetricFederatedFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricIdentityCreated
	MetricIdentityConflictRetried
	MetricDeliveryFailure

	MetricIDCount
)

// Config controls metric collection.
type Config struct {
	Enabled bool
}

// paddedCounter occupies a full cache line so hot counters on different
// cores do not false-share.
type paddedCounter struct {
	value atomic.Uint64
	_     [56]byte
}

// Metrics holds lock-free counters for the engine. When disabled every
// operation is a no-op and Snapshot returns empty maps.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]paddedCounter
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// New creates a Metrics instance. A nil-safe disabled instance is returned
// when cfg.Enabled is false.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Value returns the current value of a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

// Snapshot returns a deep copy of all counters. Safe to call concurrently
// with writers; each counter is read atomically, the set is not a single
// consistent cut.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].value.Load()
	}
	return snap
}

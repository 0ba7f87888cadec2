package metrics

import (
	"sync"
	"testing"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := New(Config{Enabled: true})

	m.Inc(MetricStartSuccess)
	m.Inc(MetricStartSuccess)
	m.Inc(MetricVerifySuccess)

	if got := m.Value(MetricStartSuccess); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := m.Value(MetricVerifySuccess); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := m.Value(MetricLogout); got != 0 {
		t.Fatalf("expected untouched counter to be 0, got %d", got)
	}
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := New(Config{Enabled: false})
	m.Inc(MetricStartSuccess)

	if got := m.Value(MetricStartSuccess); got != 0 {
		t.Fatalf("disabled metrics must stay 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %v", snap.Counters)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricStartSuccess)
	if m.Value(MetricStartSuccess) != 0 {
		t.Fatal("nil metrics must report 0")
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatal("nil snapshot must be empty")
	}
}

func TestMetricsOutOfRangeID(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricID(-1))
	m.Inc(MetricIDCount)
	if m.Value(MetricID(-1)) != 0 || m.Value(MetricIDCount) != 0 {
		t.Fatal("out-of-range IDs must be ignored")
	}
}

func TestMetricsSnapshotIsCopy(t *testing.T) {
	m := New(Config{Enabled: true})
	m.Inc(MetricStartSuccess)

	snap := m.Snapshot()
	snap.Counters[MetricStartSuccess] = 99

	if m.Value(MetricStartSuccess) != 1 {
		t.Fatal("mutating a snapshot must not affect the live counters")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := New(Config{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricVerifySuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricVerifySuccess); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

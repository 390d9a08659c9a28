package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCollectorCollectSetsGauges(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{Tasks: 3, Options: 7}}
	c := NewCollector(provider, time.Hour)

	c.collect()

	if got := testutil.ToFloat64(TasksTotal); got != 3 {
		t.Errorf("TasksTotal = %v, want 3", got)
	}
	if got := testutil.ToFloat64(OptionsTotal); got != 7 {
		t.Errorf("OptionsTotal = %v, want 7", got)
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	// Must not panic
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{Tasks: 1, Options: 1}}
	c := NewCollector(provider, 10*time.Millisecond)

	c.Start()
	deadline := time.Now().Add(time.Second)
	for provider.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	if provider.callCount() < 2 {
		t.Errorf("collector ran %d times, want at least 2", provider.callCount())
	}
}

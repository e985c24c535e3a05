package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Metrics interface {
	IncrementCounter(name string)
	RecordDuration(name string, duration time.Duration)
	RecordGauge(name string, value float64)
}

// InMemoryMetrics is a simple process-local collector, exposed read-only
// through the stats endpoint.
type InMemoryMetrics struct {
	mu       sync.RWMutex
	counters map[string]*int64
	gauges   map[string]*int64
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters: make(map[string]*int64),
		gauges:   make(map[string]*int64),
	}
}

func (m *InMemoryMetrics) IncrementCounter(name string) {
	atomic.AddInt64(m.counter(name), 1)
}

func (m *InMemoryMetrics) RecordDuration(name string, duration time.Duration) {
	m.RecordGauge(name+"_duration_ms", float64(duration.Nanoseconds())/1e6)
}

func (m *InMemoryMetrics) RecordGauge(name string, value float64) {
	atomic.StoreInt64(m.gauge(name), int64(value))
}

func (m *InMemoryMetrics) GetCounters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]int64, len(m.counters))
	for name, counter := range m.counters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

func (m *InMemoryMetrics) GetGauges() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]float64, len(m.gauges))
	for name, gauge := range m.gauges {
		result[name] = float64(atomic.LoadInt64(gauge))
	}
	return result
}

func (m *InMemoryMetrics) counter(name string) *int64 {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	c = new(int64)
	m.counters[name] = c
	return c
}

func (m *InMemoryMetrics) gauge(name string) *int64 {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if ok {
		return g
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g
	}
	g = new(int64)
	m.gauges[name] = g
	return g
}

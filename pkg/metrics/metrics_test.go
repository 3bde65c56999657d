package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// MockProvider para verificar chamadas
type MockProvider struct {
	mu     sync.Mutex
	Gauges map[string]float64
	Tags   []string
}

func (m *MockProvider) Count(name string, val float64, tags []string) error     { return nil }
func (m *MockProvider) Histogram(name string, val float64, tags []string) error { return nil }
func (m *MockProvider) Gauge(name string, val float64, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Gauges == nil {
		m.Gauges = map[string]float64{}
	}
	m.Gauges[name] = val
	m.Tags = tags
	return nil
}

func (m *MockProvider) gauge(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Gauges[name]
}

func TestCounters(t *testing.T) {
	c := NewCounters()
	c.Inc(NpsRedundantJoins)
	c.Inc(NpsRedundantJoins)
	c.Inc("desconhecido")

	assert.Equal(t, int64(2), c.Get(NpsRedundantJoins))
	assert.Equal(t, int64(0), c.Get("desconhecido"))
	assert.Equal(t, int64(2), c.Snapshot()[NpsRedundantJoins])

	var nilCounters *Counters
	nilCounters.Inc(NpsAlreadyLeft)
	assert.Equal(t, int64(0), nilCounters.Get(NpsAlreadyLeft))
}

func TestReporter_Report(t *testing.T) {
	c := NewCounters()
	c.Inc(MatchesCreated)
	p := &MockProvider{}

	NewReporter(c, p, time.Second, zerolog.Nop(), "env:test").Report()

	assert.Equal(t, 1.0, p.gauge(MatchesCreated))
	assert.Equal(t, []string{"env:test"}, p.Tags)
}

func TestReporter_RunStopsOnCancel(t *testing.T) {
	c := NewCounters()
	c.Inc(Operations)
	p := &MockProvider{}
	r := NewReporter(c, p, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run deveria retornar após o cancelamento")
	}
	assert.Equal(t, 1.0, p.gauge(Operations), "cancelamento publica o último snapshot")
}

func TestReporter_Disabled(t *testing.T) {
	r := NewReporter(NewCounters(), &MockProvider{}, 0, zerolog.Nop())
	r.Run(context.Background())
}

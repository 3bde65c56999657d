package clock

import (
	"strconv"
	"sync"
	"time"
)

// Clock abstrai a fonte de tempo dos módulos, permitindo relógio controlado nos testes.
type Clock interface {
	Now() time.Time
}

// System usa o relógio do sistema operacional.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Manual é um relógio controlável, usado nos testes de expiração e de janelas de 409.
type Manual struct {
	mu      sync.Mutex
	current time.Time
}

// NewManual cria um relógio manual. Com start zero usa uma data de referência fixa.
func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	}
	return &Manual{current: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance avança o relógio e retorna o novo instante.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
	return m.current
}

// Millis formata o instante como epoch em milissegundos, no formato de string usado pela PSN.
func Millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

package sink

import (
	"context"
	"sync"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// Memory is an in-process sink collecting every written PortResult,
// useful for tests and for the CLI's end-of-scan summary table when no
// external sink is configured.
type Memory struct {
	mu      sync.Mutex
	results []result.PortResult
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory { return &Memory{} }

// WritePortResult appends r.
func (m *Memory) WritePortResult(_ context.Context, r result.PortResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

// Results returns a snapshot of every result written so far.
func (m *Memory) Results() []result.PortResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]result.PortResult, len(m.results))
	copy(out, m.results)
	return out
}

// Len reports how many results have been written.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

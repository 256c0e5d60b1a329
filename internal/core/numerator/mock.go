package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator is a test implementation of Generator.
// Without NextFunc it returns "<class>-<n>" with a per-class counter.
type MockGenerator struct {
	NextFunc    func(ctx context.Context, req Request) (string, error)
	ReserveFunc func(ctx context.Context, class Class, at time.Time, floor int64) error

	mu       sync.Mutex
	counters map[Class]int64
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, req Request) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[Class]int64)
	}
	m.counters[req.Class]++
	return fmt.Sprintf("%s-%d", req.Class, m.counters[req.Class]), nil
}

// Reserve implements Generator.
func (m *MockGenerator) Reserve(ctx context.Context, class Class, at time.Time, floor int64) error {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, class, at, floor)
	}
	return nil
}

var _ Generator = (*MockGenerator)(nil)

package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences in memory, keyed like the real table.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
	err    error
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return &mockRow{err: m.err}
	}
	if m.values == nil {
		m.values = make(map[string]int64)
	}

	key := args[0].(string)
	switch {
	case strings.Contains(sql, "GREATEST"):
		floor := args[1].(int64)
		if m.values[key] < floor {
			m.values[key] = floor
		}
	case len(args) == 2:
		m.values[key] += args[1].(int64)
	default:
		m.values[key]++
	}
	return &mockRow{val: m.values[key]}
}

func TestNext_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := svc.Next(ctx, "order", nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := svc.Next(ctx, "purchase_order:2024-25", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "keys are independent")
}

func TestNext_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}

	got, err := svc.Next(ctx, "job_card", opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	assert.Equal(t, int64(10), q.values["job_card"])

	for i := 0; i < 9; i++ {
		_, err = svc.Next(ctx, "job_card", opts)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, q.calls, "range served from memory")

	got, err = svc.Next(ctx, "job_card", opts)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got)
	assert.Equal(t, 2, q.calls)
}

func TestNext_ConcurrentUnique(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	const workers = 50
	results := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.Next(ctx, "order", &Options{Strategy: StrategyCached, RangeSize: 7})
			if err == nil {
				results <- v
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool)
	for v := range results {
		assert.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers)
}

func TestEnsureAtLeast_SkipsPastHistoricMax(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()

	_, err := svc.Next(ctx, "order", nil)
	require.NoError(t, err)

	v, err := svc.EnsureAtLeast(ctx, "order", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), v)

	next, err := svc.Next(ctx, "order", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(501), next)

	v, err = svc.EnsureAtLeast(ctx, "order", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(501), v, "never lowers the counter")
}

func TestNext_PropagatesError(t *testing.T) {
	svc := New(&mockQuerier{err: errors.New("connection refused")})
	_, err := svc.Next(context.Background(), "order", nil)
	assert.ErrorContains(t, err, "connection refused")
}

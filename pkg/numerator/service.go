// Package numerator provides persistent sequence counters backed by the
// sys_sequences table. Each key holds the last value handed out.
package numerator

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// Strategy defines the allocation strategy.
type Strategy int

const (
	// StrategyStrict issues one UPSERT ... RETURNING per number.
	// Numbers are gap-free unless the caller abandons one.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory.
	// Faster, but a restart leaves the unused tail of a range as a gap.
	StrategyCached
)

// Options configuration for allocation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached (default 50).
	RangeSize int64
}

// DefaultOptions returns strict allocation.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service hands out monotonically increasing values per key.
// Calls run outside business transactions so a rolled-back document does
// not return its number to the pool.
type Service struct {
	querier Querier

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// New creates a sequence service.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

// Next returns the next value for key.
func (s *Service) Next(ctx context.Context, key string, opts *Options) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Strategy {
	case StrategyCached:
		return s.nextCached(ctx, key, opts)
	default:
		return s.nextStrict(ctx, key)
	}
}

// nextStrict increments the row and returns the new value.
func (s *Service) nextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1, updated_at = NOW()
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next %s: %w", key, err)
	}
	return num, nil
}

// nextCached serves from memory, reserving a new range when exhausted.
func (s *Service) nextCached(ctx context.Context, key string, opts *Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		// current_val ends at the top of the reserved range (old+1 .. old+size).
		var newMax int64
		err := s.querier.QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2, updated_at = NOW()
			RETURNING current_val
		`, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range %s: %w", key, err)
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// EnsureAtLeast raises the counter to floor if it is lower. Used when importing
// historic documents so the next value lands after the highest existing one.
func (s *Service) EnsureAtLeast(ctx context.Context, key string, floor int64) (int64, error) {
	var result int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = GREATEST(sys_sequences.current_val, $2), updated_at = NOW()
		RETURNING current_val
	`, key, floor).Scan(&result)
	if err != nil {
		return 0, fmt.Errorf("ensure %s >= %d: %w", key, floor, err)
	}

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()

	return result, nil
}

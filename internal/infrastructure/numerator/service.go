// Package numerator implements core/numerator.Generator on top of the
// persistent counters in pkg/numerator.
package numerator

import (
	"context"
	"fmt"
	"time"

	"glasserp/internal/core/fiscal"
	corenumerator "glasserp/internal/core/numerator"
	"glasserp/pkg/numerator"
)

// Counter is the persistent sequence store.
type Counter interface {
	Next(ctx context.Context, key string, opts *numerator.Options) (int64, error)
	EnsureAtLeast(ctx context.Context, key string, floor int64) (int64, error)
}

// Allocator formats document numbers per class and fiscal year.
type Allocator struct {
	counter  Counter
	calendar *fiscal.Calendar
	formats  map[corenumerator.Class]corenumerator.Format
}

var _ corenumerator.Generator = (*Allocator)(nil)

// NewAllocator creates an allocator using the standard series catalogue.
func NewAllocator(counter Counter, calendar *fiscal.Calendar) *Allocator {
	return &Allocator{
		counter:  counter,
		calendar: calendar,
		formats:  corenumerator.Formats,
	}
}

// Next allocates and formats the next number of req.Class.
func (a *Allocator) Next(ctx context.Context, req corenumerator.Request) (string, error) {
	format, ok := a.formats[req.Class]
	if !ok {
		return "", fmt.Errorf("unknown number series %q", req.Class)
	}
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	if req.Prefix != "" {
		format.Prefix = req.Prefix
	}

	n, err := a.counter.Next(ctx, a.key(req.Class, format, at), numerator.DefaultOptions())
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", req.Class, err)
	}
	return a.render(format, at, n), nil
}

// Reserve raises the counter for (class, fiscal year of at) to floor.
func (a *Allocator) Reserve(ctx context.Context, class corenumerator.Class, at time.Time, floor int64) error {
	format, ok := a.formats[class]
	if !ok {
		return fmt.Errorf("unknown number series %q", class)
	}
	_, err := a.counter.EnsureAtLeast(ctx, a.key(class, format, at), floor)
	return err
}

// Align reserves every floor reported by src so numbers already present in
// stored documents are never issued again. It returns the floors applied.
func (a *Allocator) Align(ctx context.Context, src corenumerator.FloorSource) (int, error) {
	floors, err := src.Floors(ctx)
	if err != nil {
		return 0, fmt.Errorf("read number floors: %w", err)
	}
	for _, f := range floors {
		if f.Value <= 0 {
			continue
		}
		if err := a.Reserve(ctx, f.Class, f.At, f.Value); err != nil {
			return 0, fmt.Errorf("reserve %s floor %d: %w", f.Class, f.Value, err)
		}
	}
	return len(floors), nil
}

func (a *Allocator) key(class corenumerator.Class, format corenumerator.Format, at time.Time) string {
	if format.Scope == corenumerator.ScopeGlobal {
		return string(class)
	}
	return fmt.Sprintf("%s:%s", class, a.calendar.YearOf(at))
}

func (a *Allocator) render(format corenumerator.Format, at time.Time, n int64) string {
	switch format.Layout {
	case corenumerator.LayoutDated:
		return fmt.Sprintf("%s-%s-%0*d", format.Prefix, a.calendar.Local(at).Format("20060102"), format.Pad, n)
	case corenumerator.LayoutFiscal:
		return fmt.Sprintf("%s/%s/%0*d", format.Prefix, a.calendar.YearOf(at), format.Pad, n)
	case corenumerator.LayoutPrefixed:
		return fmt.Sprintf("%s-%0*d", format.Prefix, format.Pad, n)
	default:
		return fmt.Sprintf("%0*d", format.Pad, n)
	}
}

package numerator

import (
	"context"
	"time"
)

// Request asks for the next number of a series.
type Request struct {
	Class Class
	// At is the issue instant; it selects the fiscal year and the date stamp.
	At time.Time
	// Prefix overrides the catalogue prefix (invoice prefix comes from GST settings).
	Prefix string
}

// Generator allocates document numbers. Two concurrent calls for the same
// class and fiscal year never return the same number.
type Generator interface {
	Next(ctx context.Context, req Request) (string, error)

	// Reserve moves the counter past floor so historic numbers are never reissued.
	Reserve(ctx context.Context, class Class, at time.Time, floor int64) error
}

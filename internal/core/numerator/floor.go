package numerator

import (
	"context"
	"time"
)

// Floor is the highest counter value already issued in one series.
// At is any instant inside the fiscal year the value belongs to; it is
// ignored for globally scoped series.
type Floor struct {
	Class Class
	At    time.Time
	Value int64
}

// FloorSource reports the floors found in stored documents.
type FloorSource interface {
	Floors(ctx context.Context) ([]Floor, error)
}

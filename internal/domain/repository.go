// Package domain holds types shared by every domain package: list filters
// and paginated results.
package domain

import (
	"time"

	"glasserp/internal/domain/filter"
)

const (
	// DefaultLimit is used when a list request does not name a page size.
	DefaultLimit = 50
	// MaxLimit caps every list request.
	MaxLimit = 500
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches the searchable text columns of the collection
	Search string

	// Filters are field conditions built from query parameters
	Filters []filter.Item

	// From / To bound the collection's date column, [From, To)
	From *time.Time
	To   *time.Time

	// OrderBy specifies sorting (e.g., "name", "-created_at")
	OrderBy string

	Limit int
	Skip  int
}

// Where appends an equality condition.
func (f ListFilter) Where(field string, value any) ListFilter {
	f.Filters = append(f.Filters, filter.Item{Field: field, Operator: filter.Equal, Value: value})
	return f
}

// Normalize clamps pagination to [1, MaxLimit] and a non-negative skip.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	return f
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Skip       int   `json:"skip"`
}

// Package id provides UUIDv7 identifiers for all entities.
// UUIDv7 is time-ordered, so ids sort by creation time and the
// (date, created_at, id) ledger ordering stays deterministic.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Ptr returns nil for the zero ID and a pointer otherwise.
func Ptr(v ID) *ID {
	if IsNil(v) {
		return nil
	}
	return &v
}

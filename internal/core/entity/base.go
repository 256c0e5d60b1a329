// Package entity provides base types shared by all domain entities.
package entity

import (
	"context"
	"time"

	"glasserp/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Base contains the fields every stored entity carries.
type Base struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewBase creates a Base with generated ID and UTC timestamps.
func NewBase() Base {
	now := time.Now().UTC()
	return Base{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp.
// Version is bumped by the repository on a successful write.
func (b *Base) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// BumpVersion mirrors the increment applied by a successful versioned write.
func (b *Base) BumpVersion() {
	b.Version++
}

// GetID returns the entity ID.
func (b *Base) GetID() id.ID {
	return b.ID
}

// Package tx defines the unit-of-work contract used by domain services.
// The PostgreSQL implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs a function inside one database transaction.
//
// fn receives a context carrying the transaction; repositories called with
// that context join it. Nested calls reuse the outer transaction. A non-nil
// error from fn rolls everything back.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transactions for reports
// that must see one consistent snapshot.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Passthrough runs fn without a transaction. Used in tests and by services
// that are wired without a database.
type Passthrough struct{}

// RunInTransaction implements Manager.
func (Passthrough) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ReadOnly implements ReadOnlyManager.
func (Passthrough) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

package reports

import (
	"context"
	"time"

	"glasserp/internal/domain/ledger"
)

// Repository reads the data the reports aggregate.
type Repository interface {
	// MoneyEntries returns ledger entries on the given accounts over
	// [from, to) ordered by (date, created_at, id).
	MoneyEntries(ctx context.Context, accounts []string, from, to time.Time) ([]ledger.Entry, error)

	// StockTurnover returns per-material movement totals over [from, to).
	StockTurnover(ctx context.Context, from, to time.Time) ([]StockTurnoverRow, error)
}

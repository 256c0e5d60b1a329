// Package report_repo provides PostgreSQL read models for reports and
// statements.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"glasserp/internal/domain/ledger"
	"glasserp/internal/domain/reports"
	"glasserp/internal/infrastructure/storage/postgres"
)

var entryColumns = postgres.ExtractDBColumns[ledger.Entry]()

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm *postgres.TxManager
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txm: txm}
}

// MoneyEntries returns Cash and Bank movements for the cash report.
func (r *ReportRepo) MoneyEntries(ctx context.Context, accounts []string, from, to time.Time) ([]ledger.Entry, error) {
	sql, args, err := postgres.Builder().
		Select(entryColumns...).
		From("reg_ledger_entries").
		Where(squirrel.Eq{"account": accounts}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.Lt{"date": to}).
		OrderBy("date", "created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build money entries query: %w", err)
	}

	entries := []ledger.Entry{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("money entries: %w", err)
	}
	return entries, nil
}

// StockTurnover derives opening and closing stock from the new_stock of the
// last transaction on either side of the window, so absolute adjustments
// are reported as their delta.
func (r *ReportRepo) StockTurnover(ctx context.Context, from, to time.Time) ([]reports.StockTurnoverRow, error) {
	const query = `
		WITH opening AS (
			SELECT DISTINCT ON (material_id) material_id, new_stock
			FROM reg_inventory_transactions
			WHERE created_at < $1
			ORDER BY material_id, created_at DESC, id DESC
		),
		closing AS (
			SELECT DISTINCT ON (material_id) material_id, new_stock
			FROM reg_inventory_transactions
			WHERE created_at < $2
			ORDER BY material_id, created_at DESC, id DESC
		),
		movement AS (
			SELECT
				material_id,
				SUM(CASE WHEN type = 'IN' THEN new_stock - previous_stock ELSE 0 END) AS receipts,
				SUM(CASE WHEN type = 'OUT' THEN previous_stock - new_stock ELSE 0 END) AS issues,
				SUM(CASE WHEN type = 'ADJUST' THEN new_stock - previous_stock ELSE 0 END) AS adjustments
			FROM reg_inventory_transactions
			WHERE created_at >= $1 AND created_at < $2
			GROUP BY material_id
		)
		SELECT
			m.id AS material_id,
			m.name AS material_name,
			m.unit,
			COALESCE(o.new_stock, 0) AS opening,
			COALESCE(mv.receipts, 0)::bigint AS receipts,
			COALESCE(mv.issues, 0)::bigint AS issues,
			COALESCE(mv.adjustments, 0)::bigint AS adjustments,
			COALESCE(c.new_stock, 0) AS closing,
			m.unit_price
		FROM cat_materials m
		LEFT JOIN opening o ON o.material_id = m.id
		LEFT JOIN closing c ON c.material_id = m.id
		LEFT JOIN movement mv ON mv.material_id = m.id
		WHERE m.status <> 'deleted'
		  AND (o.material_id IS NOT NULL OR c.material_id IS NOT NULL)
		ORDER BY m.name
	`

	rows := []reports.StockTurnoverRow{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("stock turnover: %w", err)
	}
	return rows, nil
}

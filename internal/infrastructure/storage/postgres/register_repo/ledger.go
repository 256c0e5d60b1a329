// Package register_repo provides PostgreSQL repositories for append-only
// registers: ledger postings and stock movements.
package register_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/ledger"
	"glasserp/internal/infrastructure/storage/postgres"
)

const (
	postingsTable = "reg_ledger_postings"
	entriesTable  = "reg_ledger_entries"
)

var entryColumns = postgres.ExtractDBColumns[ledger.Entry]()

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm      *postgres.TxManager
	inserter *postgres.BatchInserter
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{txm: txm, inserter: postgres.NewBatchInserter(txm)}
}

// Append writes the posting header and its entries. The unique key
// (event_type, document_id, variant) turns a replayed event into a no-op.
func (r *LedgerRepo) Append(ctx context.Context, p *ledger.Posting) (bool, error) {
	q := r.txm.GetQuerier(ctx)

	var postingID id.ID
	err := q.QueryRow(ctx, `
		INSERT INTO reg_ledger_postings
			(id, event_type, document_id, variant, group_id, reference, date, reversed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_type, document_id, variant) DO NOTHING
		RETURNING id
	`, p.ID, p.EventType, p.DocumentID, p.Variant, p.GroupID, p.Reference, p.Date, p.Reversed, p.CreatedAt).Scan(&postingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert posting: %w", err)
	}

	rows := make([][]any, 0, len(p.Entries))
	for _, e := range p.Entries {
		data := postgres.StructToMap(e)
		row := make([]any, len(entryColumns))
		for i, c := range entryColumns {
			row[i] = data[c]
		}
		rows = append(rows, row)
	}

	// COPY needs the transaction; outside one fall back to a multi-row insert.
	if r.txm.GetTx(ctx) != nil {
		if _, err := r.inserter.CopyFromSlice(ctx, entriesTable, entryColumns, rows); err != nil {
			return false, fmt.Errorf("copy ledger entries: %w", err)
		}
		return true, nil
	}

	ins := postgres.Builder().Insert(entriesTable).Columns(entryColumns...)
	for _, row := range rows {
		ins = ins.Values(row...)
	}
	sql, args, err := ins.ToSql()
	if err != nil {
		return false, fmt.Errorf("build entries insert: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return false, fmt.Errorf("insert ledger entries: %w", err)
	}
	return true, nil
}

func (r *LedgerRepo) PostingsByGroup(ctx context.Context, groupID id.ID) ([]ledger.Posting, error) {
	q := r.txm.GetQuerier(ctx)

	var postings []ledger.Posting
	if err := pgxscan.Select(ctx, q, &postings, `
		SELECT id, event_type, document_id, variant, group_id, reference, date, reversed, created_at
		FROM reg_ledger_postings WHERE group_id = $1 ORDER BY created_at, id
	`, groupID); err != nil {
		return nil, fmt.Errorf("select postings: %w", err)
	}
	if len(postings) == 0 {
		return postings, nil
	}

	ids := make([]id.ID, len(postings))
	for i, p := range postings {
		ids[i] = p.ID
	}
	sql, args, err := postgres.Builder().Select(entryColumns...).From(entriesTable).
		Where(squirrel.Eq{"posting_id": ids}).
		OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entries query: %w", err)
	}
	var entries []ledger.Entry
	if err := pgxscan.Select(ctx, q, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select posting entries: %w", err)
	}

	byPosting := make(map[id.ID][]ledger.Entry, len(postings))
	for _, e := range entries {
		byPosting[e.PostingID] = append(byPosting[e.PostingID], e)
	}
	for i := range postings {
		postings[i].Entries = byPosting[postings[i].ID]
	}
	return postings, nil
}

func (r *LedgerRepo) MarkReversed(ctx context.Context, ids []id.ID) error {
	if len(ids) == 0 {
		return nil
	}
	sql, args, err := postgres.Builder().Update(postingsTable).
		Set("reversed", true).
		Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("build reverse: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark postings reversed: %w", err)
	}
	return nil
}

// Entries returns matching entries in (date, created_at, id) order.
func (r *LedgerRepo) Entries(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
	q := postgres.Builder().Select(entryColumns...).From(entriesTable)
	if f.PartyID != nil {
		q = q.Where(squirrel.Eq{"party_id": *f.PartyID})
	}
	if f.PartyType != "" {
		q = q.Where(squirrel.Eq{"party_type": f.PartyType})
	}
	if f.Account != "" {
		q = q.Where(squirrel.Eq{"account": f.Account})
	}
	if f.Type != "" {
		q = q.Where(squirrel.Eq{"type": f.Type})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"date": *f.To})
	}
	q = q.OrderBy("date", "created_at", "id")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Skip > 0 {
		q = q.Offset(uint64(f.Skip))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entries query: %w", err)
	}
	entries := []ledger.Entry{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledger entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepo) PartyBalanceBefore(ctx context.Context, partyID id.ID, t time.Time) (types.Paise, error) {
	var balance types.Paise
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(debit - credit), 0)::bigint FROM reg_ledger_entries
		WHERE party_id = $1 AND date < $2
	`, partyID, t).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sum party balance: %w", err)
	}
	return balance, nil
}

// PartyBalances groups by party id; walk-in parties without a profile are
// grouped by name.
func (r *LedgerRepo) PartyBalances(ctx context.Context, partyType ledger.PartyType) ([]ledger.PartyBalance, error) {
	var rows []ledger.PartyBalance
	err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, `
		SELECT party_id, MAX(party_name) AS party_name, party_type,
		       SUM(debit)::bigint AS debit, SUM(credit)::bigint AS credit, SUM(debit - credit)::bigint AS balance
		FROM reg_ledger_entries
		WHERE party_type = $1
		GROUP BY party_type, party_id, CASE WHEN party_id IS NULL THEN party_name END
		ORDER BY party_name
	`, partyType)
	if err != nil {
		return nil, fmt.Errorf("select party balances: %w", err)
	}
	return rows, nil
}

func (r *LedgerRepo) AccountTotals(ctx context.Context, from, to time.Time) ([]ledger.AccountTotal, error) {
	var rows []ledger.AccountTotal
	err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, `
		SELECT account, SUM(debit)::bigint AS debit, SUM(credit)::bigint AS credit
		FROM reg_ledger_entries
		WHERE date >= $1 AND date < $2
		GROUP BY account
		ORDER BY account
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("select account totals: %w", err)
	}
	return rows, nil
}

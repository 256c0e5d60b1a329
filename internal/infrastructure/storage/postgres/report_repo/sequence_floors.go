package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"glasserp/internal/core/fiscal"
	corenumerator "glasserp/internal/core/numerator"
	"glasserp/internal/infrastructure/storage/postgres"
)

// numberedColumn is one place a series is written to.
type numberedColumn struct {
	class  corenumerator.Class
	table  string
	column string
	at     string
}

// Dispatch slips are shared by customer orders and job work deliveries.
var numberedColumns = []numberedColumn{
	{corenumerator.ClassOrder, "doc_orders", "order_number", "created_at"},
	{corenumerator.ClassInvoice, "doc_invoices", "invoice_number", "invoice_date"},
	{corenumerator.ClassPurchaseOrder, "doc_purchase_orders", "po_number", "created_at"},
	{corenumerator.ClassJobWork, "doc_job_work_orders", "job_work_number", "created_at"},
	{corenumerator.ClassDispatchSlip, "doc_orders", "dispatch_slip_number", "dispatch_slip_at"},
	{corenumerator.ClassDispatchSlip, "doc_job_work_orders", "delivery_slip_number", "delivered_at"},
	{corenumerator.ClassVendorReceipt, "doc_vendor_payments", "receipt_number", "completed_at"},
	{corenumerator.ClassBulkReceipt, "doc_bulk_payments", "bulk_receipt_number", "completed_at"},
	{corenumerator.ClassJobCard, "doc_job_cards", "job_card_number", "created_at"},
	{corenumerator.ClassCustomer, "cat_customers", "code", "created_at"},
	{corenumerator.ClassVendor, "cat_vendors", "vendor_code", "created_at"},
}

// SequenceFloors reads the trailing counter of every stored document number,
// grouped per series and fiscal year.
type SequenceFloors struct {
	txm      *postgres.TxManager
	calendar *fiscal.Calendar
}

var _ corenumerator.FloorSource = (*SequenceFloors)(nil)

// NewSequenceFloors creates a new floor reader.
func NewSequenceFloors(txm *postgres.TxManager, calendar *fiscal.Calendar) *SequenceFloors {
	return &SequenceFloors{txm: txm, calendar: calendar}
}

type floorRow struct {
	At    time.Time `db:"at"`
	Value int64     `db:"value"`
}

// Floors implements numerator.FloorSource.
func (s *SequenceFloors) Floors(ctx context.Context) ([]corenumerator.Floor, error) {
	tz := s.calendar.Location().String()
	var floors []corenumerator.Floor
	for _, c := range numberedColumns {
		// Fiscal years start in April, so shifting back three months
		// turns the local calendar year into the fiscal start year.
		query := fmt.Sprintf(`
			SELECT MIN(%[3]s) AS at, MAX(substring(%[2]s from '([0-9]+)$')::bigint) AS value
			FROM %[1]s
			WHERE %[2]s ~ '[0-9]+$' AND %[3]s IS NOT NULL
			GROUP BY EXTRACT(YEAR FROM (%[3]s AT TIME ZONE $1) - INTERVAL '3 months')
		`, c.table, c.column, c.at)

		rows := []floorRow{}
		if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &rows, query, tz); err != nil {
			return nil, fmt.Errorf("%s floors from %s.%s: %w", c.class, c.table, c.column, err)
		}
		for _, r := range rows {
			floors = append(floors, corenumerator.Floor{Class: c.class, At: r.At, Value: r.Value})
		}
	}
	return floors, nil
}

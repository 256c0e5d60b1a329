package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"glasserp/internal/core/id"
	"glasserp/internal/domain/vendor"
	"glasserp/internal/infrastructure/storage/postgres"
)

// VendorActivity implements vendor.Activity for balance sheets.
type VendorActivity struct {
	txm *postgres.TxManager
}

// NewVendorActivity creates a new vendor activity reader.
func NewVendorActivity(txm *postgres.TxManager) *VendorActivity {
	return &VendorActivity{txm: txm}
}

// Purchases counts a PO from the day it was approved. Drafts, pending,
// rejected and cancelled POs never owe anything.
func (a *VendorActivity) Purchases(ctx context.Context, vendorID id.ID, from, to time.Time) ([]vendor.Purchase, error) {
	rows := []vendor.Purchase{}
	err := pgxscan.Select(ctx, a.txm.GetQuerier(ctx), &rows, `
		SELECT id, po_number, approved_at AS date, grand_total AS amount
		FROM doc_purchase_orders
		WHERE vendor_id = $1
		  AND status IN ('approved', 'received')
		  AND approved_at >= $2 AND approved_at < $3
		ORDER BY approved_at, id
	`, vendorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("vendor purchases: %w", err)
	}
	return rows, nil
}

// Payments returns completed payments by completion time.
func (a *VendorActivity) Payments(ctx context.Context, vendorID id.ID, from, to time.Time) ([]vendor.Paid, error) {
	rows := []vendor.Paid{}
	err := pgxscan.Select(ctx, a.txm.GetQuerier(ctx), &rows, `
		SELECT id, COALESCE(receipt_number, '') AS receipt_number, completed_at AS date, amount
		FROM doc_vendor_payments
		WHERE vendor_id = $1
		  AND status = 'completed'
		  AND completed_at >= $2 AND completed_at < $3
		ORDER BY completed_at, id
	`, vendorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("vendor payments: %w", err)
	}
	return rows, nil
}

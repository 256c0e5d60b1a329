package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/vendorpay"
	"glasserp/internal/infrastructure/storage/postgres"
)

// VendorPaymentRepo implements vendorpay.Repository.
type VendorPaymentRepo struct {
	payments *postgres.BaseRepo[vendorpay.Payment]
	bulks    *postgres.BaseRepo[vendorpay.Bulk]
}

// NewVendorPaymentRepo creates a new vendor payment repository.
func NewVendorPaymentRepo(txm *postgres.TxManager) *VendorPaymentRepo {
	return &VendorPaymentRepo{
		payments: postgres.NewBaseRepo[vendorpay.Payment](txm, postgres.TableConfig{
			Table:         "doc_vendor_payments",
			Entity:        "vendor payment",
			SearchColumns: []string{"po_number", "vendor_name", "receipt_number", "utr"},
			Unique:        map[string]string{"doc_vendor_payments_receipt_number_key": "receipt_number"},
		}),
		bulks: postgres.NewBaseRepo[vendorpay.Bulk](txm, postgres.TableConfig{
			Table:  "doc_bulk_payments",
			Entity: "bulk payment",
		}),
	}
}

func (r *VendorPaymentRepo) Create(ctx context.Context, p *vendorpay.Payment) error {
	return r.payments.Create(ctx, p)
}

func (r *VendorPaymentRepo) Update(ctx context.Context, p *vendorpay.Payment) error {
	return r.payments.Update(ctx, p)
}

func (r *VendorPaymentRepo) GetByID(ctx context.Context, paymentID id.ID) (*vendorpay.Payment, error) {
	return r.payments.GetByID(ctx, paymentID)
}

func (r *VendorPaymentRepo) GetForUpdate(ctx context.Context, paymentID id.ID) (*vendorpay.Payment, error) {
	return r.payments.GetForUpdate(ctx, paymentID)
}

func (r *VendorPaymentRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[vendorpay.Payment], error) {
	return r.payments.List(ctx, f)
}

func (r *VendorPaymentRepo) Reserved(ctx context.Context, poID id.ID) (types.Paise, error) {
	var total types.Paise
	err := r.payments.Querier(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::bigint FROM doc_vendor_payments
		WHERE po_id = $1 AND status IN ($2, $3)
	`, poID, vendorpay.StatusInitiated, vendorpay.StatusProcessing).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum reserved payments: %w", err)
	}
	return total, nil
}

func (r *VendorPaymentRepo) Processing(ctx context.Context) ([]vendorpay.Payment, error) {
	return r.payments.FindAll(ctx, r.payments.Select().
		Where(squirrel.Eq{"status": string(vendorpay.StatusProcessing)}).
		Where(squirrel.NotEq{"payout_id": nil}).
		OrderBy("created_at ASC"))
}

func (r *VendorPaymentRepo) CreateBulk(ctx context.Context, b *vendorpay.Bulk) error {
	return r.bulks.Create(ctx, b)
}

func (r *VendorPaymentRepo) UpdateBulk(ctx context.Context, b *vendorpay.Bulk) error {
	return r.bulks.Update(ctx, b)
}

func (r *VendorPaymentRepo) GetBulk(ctx context.Context, bulkID id.ID) (*vendorpay.Bulk, error) {
	return r.bulks.GetByID(ctx, bulkID)
}

func (r *VendorPaymentRepo) GetBulkForUpdate(ctx context.Context, bulkID id.ID) (*vendorpay.Bulk, error) {
	return r.bulks.GetForUpdate(ctx, bulkID)
}

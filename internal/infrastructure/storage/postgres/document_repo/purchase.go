package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/purchase"
	"glasserp/internal/infrastructure/storage/postgres"
)

const purchaseTable = "doc_purchase_orders"

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	base *postgres.BaseRepo[purchase.PurchaseOrder]
}

// NewPurchaseRepo creates a new purchase order repository.
func NewPurchaseRepo(txm *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{base: postgres.NewBaseRepo[purchase.PurchaseOrder](txm, postgres.TableConfig{
		Table:         purchaseTable,
		Entity:        "purchase order",
		SearchColumns: []string{"po_number", "vendor_name"},
		Unique:        map[string]string{"doc_purchase_orders_po_number_key": "po_number"},
	})}
}

func (r *PurchaseRepo) Create(ctx context.Context, po *purchase.PurchaseOrder) error {
	return r.base.Create(ctx, po)
}

func (r *PurchaseRepo) Update(ctx context.Context, po *purchase.PurchaseOrder) error {
	return r.base.Update(ctx, po)
}

func (r *PurchaseRepo) GetByID(ctx context.Context, poID id.ID) (*purchase.PurchaseOrder, error) {
	return r.base.GetByID(ctx, poID)
}

func (r *PurchaseRepo) GetForUpdate(ctx context.Context, poID id.ID) (*purchase.PurchaseOrder, error) {
	return r.base.GetForUpdate(ctx, poID)
}

func (r *PurchaseRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[purchase.PurchaseOrder], error) {
	return r.base.List(ctx, f)
}

func (r *PurchaseRepo) OpenPayables(ctx context.Context) ([]purchase.PurchaseOrder, error) {
	return r.base.FindAll(ctx, r.base.Select().
		Where(squirrel.Eq{"status": []string{string(purchase.StatusApproved), string(purchase.StatusReceived)}}).
		Where(squirrel.Gt{"outstanding_balance": 0}).
		OrderBy("due_date ASC NULLS LAST", "created_at ASC"))
}

// MarkReminded stamps the reminder day without bumping the version.
func (r *PurchaseRepo) MarkReminded(ctx context.Context, poID id.ID, day string) error {
	tag, err := r.base.Querier(ctx).Exec(ctx,
		`UPDATE doc_purchase_orders SET last_reminder = $2 WHERE id = $1`, poID, day)
	if err != nil {
		return fmt.Errorf("mark po reminded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("purchase order", poID)
	}
	return nil
}

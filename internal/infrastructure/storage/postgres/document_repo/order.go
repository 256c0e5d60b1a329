// Package document_repo provides PostgreSQL repositories for business
// documents: orders, invoices, job-work orders, purchase orders, vendor
// payments and job cards.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/order"
	"glasserp/internal/infrastructure/storage/postgres"
)

const orderTable = "doc_orders"

// OrderRepo implements order.Repository.
type OrderRepo struct {
	base *postgres.BaseRepo[order.Order]
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{base: postgres.NewBaseRepo[order.Order](txm, postgres.TableConfig{
		Table:         orderTable,
		Entity:        "order",
		SearchColumns: []string{"order_number", "customer_name", "customer_phone", "product_name"},
		Unique:        map[string]string{"doc_orders_order_number_key": "order_number"},
	})}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.base.Create(ctx, o)
}

func (r *OrderRepo) Update(ctx context.Context, o *order.Order) error {
	return r.base.Update(ctx, o)
}

func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.base.GetByID(ctx, orderID)
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	return r.base.GetForUpdate(ctx, orderID)
}

func (r *OrderRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	q := r.base.Select().Where(squirrel.Or{
		squirrel.Eq{"gateway_order_id": gatewayOrderID},
		squirrel.Eq{"remaining_gateway_order_id": gatewayOrderID},
	})
	return r.base.FindOne(ctx, q, gatewayOrderID)
}

func (r *OrderRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[order.Order], error) {
	return r.base.List(ctx, f)
}

// Unpaid returns live orders whose payment is not completed.
func (r *OrderRepo) Unpaid(ctx context.Context) ([]order.Order, error) {
	return r.base.FindAll(ctx, r.base.Select().
		Where(squirrel.NotEq{"payment_status": string(order.PaymentCompleted)}).
		Where(squirrel.NotEq{"status": []string{string(order.StatusCancelled), string(order.StatusReturned)}}).
		OrderBy("created_at ASC"))
}

// MarkReminded stamps the reminder day without touching the version, so a
// concurrent edit of the order is not rejected by it.
func (r *OrderRepo) MarkReminded(ctx context.Context, orderID id.ID, day string) error {
	tag, err := r.base.Querier(ctx).Exec(ctx,
		`UPDATE doc_orders SET last_payment_reminder = $2 WHERE id = $1`, orderID, day)
	if err != nil {
		return fmt.Errorf("mark order reminded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order", orderID)
	}
	return nil
}

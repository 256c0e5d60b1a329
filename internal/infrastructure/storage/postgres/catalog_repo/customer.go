// Package catalog_repo provides PostgreSQL repositories for master data:
// customers, products, vendors and settings.
package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/customer"
	"glasserp/internal/infrastructure/storage/postgres"
)

const customerTable = "cat_customers"

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	base *postgres.BaseRepo[customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{base: postgres.NewBaseRepo[customer.Customer](txm, postgres.TableConfig{
		Table:         customerTable,
		Entity:        "customer",
		SearchColumns: []string{"display_name", "company_name", "mobile", "email", "code"},
		DefaultOrder:  "display_name ASC",
		Unique: map[string]string{
			"cat_customers_mobile_key": "mobile",
			"cat_customers_code_key":   "code",
		},
	})}
}

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	return r.base.Create(ctx, c)
}

func (r *CustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	return r.base.Update(ctx, c)
}

func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.base.GetByID(ctx, customerID)
}

func (r *CustomerRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.base.GetForUpdate(ctx, customerID)
}

// GetByMobile ignores deleted profiles so a number can be reused.
func (r *CustomerRepo) GetByMobile(ctx context.Context, mobile string) (*customer.Customer, error) {
	q := r.base.Select().Where(squirrel.Eq{"mobile": mobile}).Where(squirrel.NotEq{"status": "deleted"})
	return r.base.FindOne(ctx, q, mobile)
}

func (r *CustomerRepo) GetByUserID(ctx context.Context, userID string) (*customer.Customer, error) {
	return r.base.GetBy(ctx, "user_id", userID)
}

func (r *CustomerRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[customer.Customer], error) {
	return r.base.List(ctx, f)
}

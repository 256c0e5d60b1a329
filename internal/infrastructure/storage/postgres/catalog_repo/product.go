package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/product"
	"glasserp/internal/infrastructure/storage/postgres"
)

const (
	productTable = "cat_products"
	pricingTable = "cat_pricing_rules"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	base    *postgres.BaseRepo[product.Product]
	pricing *postgres.BaseRepo[product.PricingRule]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		base: postgres.NewBaseRepo[product.Product](txm, postgres.TableConfig{
			Table:         productTable,
			Entity:        "product",
			SearchColumns: []string{"name", "category"},
			DefaultOrder:  "name ASC",
		}),
		pricing: postgres.NewBaseRepo[product.PricingRule](txm, postgres.TableConfig{
			Table:        pricingTable,
			Entity:       "pricing rule",
			DefaultOrder: "thickness ASC",
		}),
	}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.base.Create(ctx, p)
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.base.GetByID(ctx, productID)
}

func (r *ProductRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[product.Product], error) {
	return r.base.List(ctx, f)
}

// UpsertPricing replaces the rule keyed by (product_id, thickness).
func (r *ProductRepo) UpsertPricing(ctx context.Context, rule *product.PricingRule) error {
	data := postgres.StructToMap(rule)
	cols := r.pricing.Columns()
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = data[c]
	}

	sql, args, err := postgres.Builder().
		Insert(pricingTable).
		Columns(cols...).
		Values(vals...).
		Suffix(`ON CONFLICT (product_id, thickness) DO UPDATE SET
			base_price_per_sqft = EXCLUDED.base_price_per_sqft,
			bulk_discount_percent = EXCLUDED.bulk_discount_percent,
			bulk_min_sqft = EXCLUDED.bulk_min_sqft,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
			RETURNING id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build pricing upsert: %w", err)
	}
	if err := r.pricing.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&rule.ID); err != nil {
		return fmt.Errorf("upsert pricing: %w", err)
	}
	return nil
}

func (r *ProductRepo) Pricing(ctx context.Context, productID id.ID, thickness int) (*product.PricingRule, error) {
	q := r.pricing.Select().Where(squirrel.Eq{"product_id": productID, "thickness": thickness})
	return r.pricing.FindOne(ctx, q, fmt.Sprintf("%s/%dmm", productID, thickness))
}

func (r *ProductRepo) PricingRules(ctx context.Context, productID id.ID) ([]product.PricingRule, error) {
	return r.pricing.FindAll(ctx, r.pricing.Select().
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("thickness ASC"))
}

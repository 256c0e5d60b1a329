package catalog_repo

import (
	"context"

	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/vendor"
	"glasserp/internal/infrastructure/storage/postgres"
)

const vendorTable = "cat_vendors"

// VendorRepo implements vendor.Repository.
type VendorRepo struct {
	base *postgres.BaseRepo[vendor.Vendor]
}

// NewVendorRepo creates a new vendor repository.
func NewVendorRepo(txm *postgres.TxManager) *VendorRepo {
	return &VendorRepo{base: postgres.NewBaseRepo[vendor.Vendor](txm, postgres.TableConfig{
		Table:         vendorTable,
		Entity:        "vendor",
		SearchColumns: []string{"name", "company_name", "vendor_code", "mobile"},
		DefaultOrder:  "name ASC",
		Unique:        map[string]string{"cat_vendors_vendor_code_key": "vendor_code"},
	})}
}

func (r *VendorRepo) Create(ctx context.Context, v *vendor.Vendor) error {
	return r.base.Create(ctx, v)
}

func (r *VendorRepo) Update(ctx context.Context, v *vendor.Vendor) error {
	return r.base.Update(ctx, v)
}

func (r *VendorRepo) GetByID(ctx context.Context, vendorID id.ID) (*vendor.Vendor, error) {
	return r.base.GetByID(ctx, vendorID)
}

func (r *VendorRepo) GetForUpdate(ctx context.Context, vendorID id.ID) (*vendor.Vendor, error) {
	return r.base.GetForUpdate(ctx, vendorID)
}

func (r *VendorRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[vendor.Vendor], error) {
	return r.base.List(ctx, f)
}

package register_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/inventory"
	"glasserp/internal/infrastructure/storage/postgres"
)

// InventoryRepo implements inventory.Repository: materials plus their
// append-only transaction register.
type InventoryRepo struct {
	materials    *postgres.BaseRepo[inventory.Material]
	transactions *postgres.BaseRepo[inventory.Transaction]
}

// NewInventoryRepo creates a new inventory repository.
func NewInventoryRepo(txm *postgres.TxManager) *InventoryRepo {
	return &InventoryRepo{
		materials: postgres.NewBaseRepo[inventory.Material](txm, postgres.TableConfig{
			Table:         "cat_materials",
			Entity:        "material",
			SearchColumns: []string{"name", "category"},
			DefaultOrder:  "name ASC",
			Unique:        map[string]string{"cat_materials_name_key": "name"},
		}),
		transactions: postgres.NewBaseRepo[inventory.Transaction](txm, postgres.TableConfig{
			Table:         "reg_inventory_transactions",
			Entity:        "inventory transaction",
			SearchColumns: []string{"material_name", "reference"},
		}),
	}
}

func (r *InventoryRepo) CreateMaterial(ctx context.Context, m *inventory.Material) error {
	return r.materials.Create(ctx, m)
}

func (r *InventoryRepo) UpdateMaterial(ctx context.Context, m *inventory.Material) error {
	return r.materials.Update(ctx, m)
}

func (r *InventoryRepo) GetMaterial(ctx context.Context, materialID id.ID) (*inventory.Material, error) {
	return r.materials.GetByID(ctx, materialID)
}

func (r *InventoryRepo) GetMaterialForUpdate(ctx context.Context, materialID id.ID) (*inventory.Material, error) {
	return r.materials.GetForUpdate(ctx, materialID)
}

func (r *InventoryRepo) ListMaterials(ctx context.Context, f domain.ListFilter) (domain.ListResult[inventory.Material], error) {
	return r.materials.List(ctx, f)
}

// LowStock returns active materials at or below their minimum.
func (r *InventoryRepo) LowStock(ctx context.Context) ([]inventory.Material, error) {
	return r.materials.FindAll(ctx, r.materials.Select().
		Where(squirrel.Eq{"status": "active"}).
		Where("current_stock <= minimum_stock").
		OrderBy("name ASC"))
}

func (r *InventoryRepo) CreateTransaction(ctx context.Context, t *inventory.Transaction) error {
	return r.transactions.Create(ctx, t)
}

func (r *InventoryRepo) ListTransactions(ctx context.Context, f domain.ListFilter) (domain.ListResult[inventory.Transaction], error) {
	return r.transactions.List(ctx, f)
}

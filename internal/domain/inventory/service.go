package inventory

import (
	"context"
	"time"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/pkg/logger"
)

// Repository persists materials and their movements.
type Repository interface {
	CreateMaterial(ctx context.Context, m *Material) error
	UpdateMaterial(ctx context.Context, m *Material) error
	GetMaterial(ctx context.Context, materialID id.ID) (*Material, error)
	// GetMaterialForUpdate locks the material row until the transaction ends.
	GetMaterialForUpdate(ctx context.Context, materialID id.ID) (*Material, error)
	ListMaterials(ctx context.Context, f domain.ListFilter) (domain.ListResult[Material], error)
	LowStock(ctx context.Context) ([]Material, error)

	CreateTransaction(ctx context.Context, t *Transaction) error
	ListTransactions(ctx context.Context, f domain.ListFilter) (domain.ListResult[Transaction], error)
}

// Service records stock movements.
type Service struct {
	repo Repository
	txm  tx.Manager
	bus  *events.Bus
	now  func() time.Time
}

// NewService creates the inventory service.
func NewService(repo Repository, txm tx.Manager, bus *events.Bus) *Service {
	return &Service{repo: repo, txm: txm, bus: bus, now: func() time.Time { return time.Now().UTC() }}
}

// CreateMaterial stores a new material. Opening stock is logged as an IN movement.
func (s *Service) CreateMaterial(ctx context.Context, m *Material) error {
	opening := m.CurrentStock
	m.Catalog = entity.NewCatalog(m.Name)
	m.CurrentStock = 0
	if err := m.Validate(ctx); err != nil {
		return err
	}
	return s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		if err := s.repo.CreateMaterial(ctx, m); err != nil {
			return err
		}
		out.Audit("create", "inventory", m.ID.String(), nil, m)
		if opening.IsPositive() {
			_, err := s.Move(ctx, out, Movement{MaterialID: m.ID, Type: TxIn, Quantity: opening, Reference: "OPENING"})
			if err != nil {
				return err
			}
			m.CurrentStock = opening
		}
		return nil
	})
}

// Movement asks for one stock change.
type Movement struct {
	MaterialID id.ID
	Type       TxType
	Quantity   types.Quantity
	Reference  string
	Notes      string
}

// Record applies one movement in its own unit of work.
func (s *Service) Record(ctx context.Context, mv Movement) (*Transaction, error) {
	var t *Transaction
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		var err error
		t, err = s.Move(ctx, out, mv)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "stock moved",
		"material_id", t.MaterialID,
		"type", t.Type,
		"quantity", t.Quantity.String(),
		"new_stock", t.NewStock.String(),
	)
	return t, nil
}

// Move applies a movement inside the caller's unit of work. The material row
// is locked so concurrent OUT movements cannot overdraw it.
func (s *Service) Move(ctx context.Context, out *events.Staged, mv Movement) (*Transaction, error) {
	if id.IsNil(mv.MaterialID) {
		return nil, apperror.NewFieldValidation("material_id", "material_id is required")
	}
	m, err := s.repo.GetMaterialForUpdate(ctx, mv.MaterialID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, apperror.NewValidation("Material " + m.Name + " is not active")
	}
	next, err := m.Next(mv.Type, mv.Quantity)
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		Base:          entity.NewBase(),
		MaterialID:    m.ID,
		MaterialName:  m.Name,
		Type:          mv.Type,
		Quantity:      mv.Quantity,
		PreviousStock: m.CurrentStock,
		NewStock:      next,
		Reference:     mv.Reference,
		Notes:         mv.Notes,
		CreatedBy:     appctx.GetUserID(ctx),
	}
	m.CurrentStock = next
	m.Touch()
	if err := s.repo.UpdateMaterial(ctx, m); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	out.Add(events.StockMoved{
		MaterialID:   m.ID,
		MaterialName: m.Name,
		Type:         string(t.Type),
		Quantity:     t.Quantity,
		NewStock:     t.NewStock,
		MinimumStock: m.MinimumStock,
		Reference:    t.Reference,
	})
	out.Audit("create", "inventory_transactions", t.ID.String(), nil, t)
	return t, nil
}

// GetMaterial returns one material.
func (s *Service) GetMaterial(ctx context.Context, materialID id.ID) (*Material, error) {
	return s.repo.GetMaterial(ctx, materialID)
}

// Materials lists materials.
func (s *Service) Materials(ctx context.Context, f domain.ListFilter) (domain.ListResult[Material], error) {
	return s.repo.ListMaterials(ctx, f)
}

// Transactions lists movements, newest first by default.
func (s *Service) Transactions(ctx context.Context, f domain.ListFilter) (domain.ListResult[Transaction], error) {
	if f.OrderBy == "" {
		f.OrderBy = "-created_at"
	}
	return s.repo.ListTransactions(ctx, f)
}

// LowStock lists materials at or below their minimum.
func (s *Service) LowStock(ctx context.Context) ([]Material, error) {
	return s.repo.LowStock(ctx)
}

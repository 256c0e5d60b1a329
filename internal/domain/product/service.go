package product

import (
	"context"
	"fmt"
	"time"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/tx"
	"glasserp/internal/domain"
)

// Repository persists products and pricing rules.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Product], error)

	// UpsertPricing replaces the rule of (product, thickness).
	UpsertPricing(ctx context.Context, r *PricingRule) error
	// Pricing returns NotFound when the thickness has no rule.
	Pricing(ctx context.Context, productID id.ID, thickness int) (*PricingRule, error)
	PricingRules(ctx context.Context, productID id.ID) ([]PricingRule, error)
}

// Service manages the catalogue.
type Service struct {
	repo Repository
	txm  tx.Manager
	bus  *events.Bus
}

// NewService creates the product service.
func NewService(repo Repository, txm tx.Manager, bus *events.Bus) *Service {
	return &Service{repo: repo, txm: txm, bus: bus}
}

// Create stores a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	p.Catalog = entity.NewCatalog(p.Name)
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		out.Audit("create", "products", p.ID.String(), nil, p)
		return nil
	})
}

// Get returns a product.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns active products by default.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Product], error) {
	return s.repo.List(ctx, f)
}

// SetPricing replaces the rule for one thickness of a product.
func (s *Service) SetPricing(ctx context.Context, productID id.ID, r *PricingRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		p, err := s.repo.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if !p.Offers(r.Thickness) {
			return apperror.NewFieldValidation("thickness", fmt.Sprintf("%s is not sold in %d mm", p.Name, r.Thickness))
		}
		old, err := s.repo.Pricing(ctx, productID, r.Thickness)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if old != nil {
			r.ID = old.ID
		} else {
			r.ID = id.New()
		}
		r.ProductID = productID
		r.UpdatedBy = appctx.GetUserID(ctx)
		r.UpdatedAt = time.Now().UTC()
		if err := s.repo.UpsertPricing(ctx, r); err != nil {
			return err
		}
		out.Audit("update", "products", productID.String(), old, r)
		return nil
	})
}

// Pricing lists the rules of a product.
func (s *Service) Pricing(ctx context.Context, productID id.ID) ([]PricingRule, error) {
	if _, err := s.repo.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.PricingRules(ctx, productID)
}

// Line is a resolved and priced order line.
type Line struct {
	Product *Product
	Rule    *PricingRule
	Quote   Quote
}

// Quote prices one order line.
func (s *Service) Quote(ctx context.Context, productID id.ID, thickness int, widthInch, heightInch float64, quantity int) (*Line, error) {
	if widthInch <= 0 || heightInch <= 0 {
		return nil, apperror.NewFieldValidation("width", "width and height must be positive")
	}
	if quantity <= 0 {
		return nil, apperror.NewFieldValidation("quantity", "quantity must be positive")
	}
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, apperror.NewFieldValidation("product_id", p.Name+" is not available")
	}
	if !p.Offers(thickness) {
		return nil, apperror.NewFieldValidation("thickness", fmt.Sprintf("%s is not sold in %d mm", p.Name, thickness))
	}
	rule, err := s.repo.Pricing(ctx, productID, thickness)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewFieldValidation("thickness", fmt.Sprintf("no price for %s in %d mm", p.Name, thickness))
	}
	if err != nil {
		return nil, err
	}
	return &Line{Product: p, Rule: rule, Quote: rule.Price(widthInch, heightInch, quantity)}, nil
}

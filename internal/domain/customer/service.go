package customer

import (
	"context"
	"fmt"
	"time"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/numerator"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/pkg/logger"
)

// Repository persists customer profiles.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
	GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error)
	// GetByMobile returns NotFound when no profile uses the number.
	GetByMobile(ctx context.Context, mobile string) (*Customer, error)
	// GetByUserID returns the profile linked to a portal user.
	GetByUserID(ctx context.Context, userID string) (*Customer, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Customer], error)
}

// Service manages customer profiles.
type Service struct {
	repo      Repository
	txm       tx.Manager
	bus       *events.Bus
	numerator numerator.Generator
}

// NewService creates the customer service.
func NewService(repo Repository, txm tx.Manager, bus *events.Bus, gen numerator.Generator) *Service {
	return &Service{repo: repo, txm: txm, bus: bus, numerator: gen}
}

// Create validates and stores a new profile with a CUST- code. A non-zero
// opening balance is posted to the ledger in the same unit of work.
func (s *Service) Create(ctx context.Context, c *Customer) error {
	c.Base = entity.NewBase()
	c.CreatedBy = appctx.GetUserID(ctx)
	c.Derive()
	if err := c.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.GetByMobile(ctx, c.Mobile); err == nil {
		return apperror.NewDuplicate("customer", "mobile", c.Mobile).WithDetail("customer_id", existing.ID)
	} else if !apperror.IsNotFound(err) {
		return err
	}

	if c.OpeningBalance != 0 {
		c.OpeningRevision = 1
	}

	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		code, err := s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassCustomer, At: c.CreatedAt})
		if err != nil {
			return fmt.Errorf("allocate customer code: %w", err)
		}
		c.Code = code
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		if c.OpeningBalance != 0 {
			out.Add(events.OpeningBalanceSet{
				PartyID:   c.ID,
				PartyType: "customer",
				PartyName: c.DisplayName,
				Delta:     c.OpeningBalance,
				Revision:  c.OpeningRevision,
				At:        c.CreatedAt,
			})
		}
		out.Audit("create", "customers", c.ID.String(), nil, c)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "customer created", "customer_id", c.ID, "code", c.Code)
	return nil
}

// Update replaces the editable fields. Code, opening balance and the linked
// user are kept from the stored profile.
func (s *Service) Update(ctx context.Context, customerID id.ID, in *Customer) (*Customer, error) {
	var updated *Customer
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		current, err := s.repo.GetForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if in.Version != 0 && in.Version != current.Version {
			return apperror.NewConcurrentModification("customer", customerID)
		}
		old := *current

		next := *in
		next.Base = current.Base
		next.Code = current.Code
		next.OpeningBalance = current.OpeningBalance
		next.OpeningRevision = current.OpeningRevision
		next.UserID = current.UserID
		next.CreatedBy = current.CreatedBy
		if next.Status == "" {
			next.Status = current.Status
		}
		next.Derive()
		if err := next.Validate(ctx); err != nil {
			return err
		}
		if next.Mobile != current.Mobile {
			if other, err := s.repo.GetByMobile(ctx, next.Mobile); err == nil && other.ID != customerID {
				return apperror.NewDuplicate("customer", "mobile", next.Mobile)
			}
		}
		next.Touch()
		if err := s.repo.Update(ctx, &next); err != nil {
			return err
		}
		out.Audit("update", "customers", customerID.String(), old, next)
		updated = &next
		return nil
	})
	return updated, err
}

// SetOpeningBalance changes the opening balance and posts the difference
// against equity.
func (s *Service) SetOpeningBalance(ctx context.Context, customerID id.ID, amount types.Paise) (*Customer, error) {
	var c *Customer
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		var err error
		c, err = s.repo.GetForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		delta := amount - c.OpeningBalance
		if delta == 0 {
			return nil
		}
		old := c.OpeningBalance
		c.OpeningBalance = amount
		c.OpeningRevision++
		c.Touch()
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		out.Add(events.OpeningBalanceSet{
			PartyID:   c.ID,
			PartyType: "customer",
			PartyName: c.DisplayName,
			Delta:     delta,
			Revision:  c.OpeningRevision,
			At:        time.Now().UTC(),
		})
		out.Audit("update", "customers", c.ID.String(),
			map[string]any{"opening_balance": old},
			map[string]any{"opening_balance": amount})
		return nil
	})
	return c, err
}

// Get returns one profile.
func (s *Service) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	return s.repo.GetByID(ctx, customerID)
}

// ForUser returns the profile linked to a portal user, or nil.
func (s *Service) ForUser(ctx context.Context, userID string) (*Customer, error) {
	c, err := s.repo.GetByUserID(ctx, userID)
	if apperror.IsNotFound(err) {
		return nil, nil
	}
	return c, err
}

// List returns profiles page by page.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Customer], error) {
	return s.repo.List(ctx, f)
}

package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/numerator"
	"glasserp/internal/core/security"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/order"
	"glasserp/pkg/logger"
)

// Repository persists job cards and breakages.
type Repository interface {
	Create(ctx context.Context, c *JobCard) error
	Update(ctx context.Context, c *JobCard) error
	GetByID(ctx context.Context, cardID id.ID) (*JobCard, error)
	GetForUpdate(ctx context.Context, cardID id.ID) (*JobCard, error)
	// ForOrder returns the job card of an order or a not-found error.
	ForOrder(ctx context.Context, orderID id.ID) (*JobCard, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[JobCard], error)

	CreateBreakage(ctx context.Context, b *Breakage) error
	UpdateBreakage(ctx context.Context, b *Breakage) error
	GetBreakageForUpdate(ctx context.Context, breakageID id.ID) (*Breakage, error)
	ListBreakages(ctx context.Context, f domain.ListFilter) (domain.ListResult[Breakage], error)
}

// Orders is the part of the order service production talks to.
type Orders interface {
	Get(ctx context.Context, orderID id.ID) (*order.Order, error)
	Advance(ctx context.Context, orderID id.ID, to order.Status) error
}

// orderStatusFor maps floor stages onto the order's own status.
var orderStatusFor = map[Stage]order.Status{
	StageCutting: order.StatusProcessing,
	StagePacking: order.StatusReadyForDispatch,
}

// Service runs job cards.
type Service struct {
	repo      Repository
	txm       tx.Manager
	bus       *events.Bus
	numerator numerator.Generator
	orders    Orders
	now       func() time.Time
}

// NewService creates the production service.
func NewService(repo Repository, txm tx.Manager, bus *events.Bus, gen numerator.Generator, orders Orders) *Service {
	return &Service{
		repo:      repo,
		txm:       txm,
		bus:       bus,
		numerator: gen,
		orders:    orders,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput opens a job card for an order.
type CreateInput struct {
	OrderID    id.ID
	Priority   string
	AssignedTo *string
	Notes      string
}

// Create opens the job card of a confirmed order. An order has at most one card.
func (s *Service) Create(ctx context.Context, in CreateInput) (*JobCard, error) {
	if err := security.Require(ctx, security.ModuleOperations); err != nil {
		return nil, err
	}
	priority, ok := ParsePriority(in.Priority)
	if !ok {
		return nil, apperror.NewFieldValidation("priority", "priority must be low, normal, high or urgent")
	}
	o, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	switch o.Status {
	case order.StatusConfirmed, order.StatusProcessing, order.StatusReadyForDispatch:
	default:
		return nil, apperror.NewConflict(fmt.Sprintf("Order %s is %s; only confirmed orders go to production", o.OrderNumber, o.Status))
	}
	if existing, err := s.repo.ForOrder(ctx, o.ID); err == nil {
		return nil, apperror.NewConflict("Order already has job card " + existing.JobCardNumber)
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	now := s.now()
	c := &JobCard{
		Document:        entity.NewDocument(appctx.GetUserID(ctx)),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerName:    o.CustomerName,
		Specification:   fmt.Sprintf("%s %dmm %gx%g", o.ProductName, o.Thickness, o.Width, o.Height),
		Quantity:        o.Quantity,
		CurrentStage:    StagePending,
		StageTimestamps: map[Stage]time.Time{StagePending: now},
		Priority:        priority,
		AssignedTo:      in.AssignedTo,
		Notes:           strings.TrimSpace(in.Notes),
	}
	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		number, err := s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassJobCard, At: now})
		if err != nil {
			return fmt.Errorf("allocate job card number: %w", err)
		}
		c.JobCardNumber = number
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		out.Audit("create", "job_cards", c.ID.String(), nil, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "job card opened", "job_card", c.JobCardNumber, "order", c.OrderNumber)
	return c, nil
}

// UpdateStage moves the card forward and keeps the order's status in step.
func (s *Service) UpdateStage(ctx context.Context, cardID id.ID, to Stage, note string) (*JobCard, error) {
	if err := security.Require(ctx, security.ModuleOperations); err != nil {
		return nil, err
	}
	if to.Rank() < 0 {
		return nil, apperror.NewFieldValidation("stage", "unknown stage "+string(to))
	}
	var from Stage
	c, err := s.mutate(ctx, cardID, func(ctx context.Context, c *JobCard, out *events.Staged) error {
		from = c.CurrentStage
		if err := c.MoveTo(to, s.now()); err != nil {
			return err
		}
		if n := strings.TrimSpace(note); n != "" {
			c.Notes = n
		}
		out.Audit("status_change", "job_cards", c.ID.String(),
			map[string]any{"stage": from}, map[string]any{"stage": to})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if status, ok := s.orderStatus(from, to); ok {
		if err := s.orders.Advance(ctx, c.OrderID, status); err != nil {
			logger.Warn(ctx, "order status not advanced", "order", c.OrderNumber, "status", status, "error", err)
		}
	}
	return c, nil
}

// orderStatus picks the furthest order status crossed by a move from..to.
func (s *Service) orderStatus(from, to Stage) (order.Status, bool) {
	var (
		status order.Status
		found  bool
	)
	for _, st := range Stages[from.Rank()+1 : to.Rank()+1] {
		if mapped, ok := orderStatusFor[st]; ok {
			status, found = mapped, true
		}
	}
	return status, found
}

// CheckDispatch lets an order leave the factory only when its job card, if
// any, has reached dispatched.
func (s *Service) CheckDispatch(ctx context.Context, orderID id.ID) error {
	c, err := s.repo.ForOrder(ctx, orderID)
	if apperror.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if c.CurrentStage != StageDispatched {
		return apperror.NewConflict(fmt.Sprintf("Job card %s is at %s; production must reach dispatched first", c.JobCardNumber, c.CurrentStage)).
			WithDetail("job_card", c.JobCardNumber).
			WithDetail("stage", c.CurrentStage)
	}
	return nil
}

// Get returns one card.
func (s *Service) Get(ctx context.Context, cardID id.ID) (*JobCard, error) {
	return s.repo.GetByID(ctx, cardID)
}

// List returns cards page by page.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[JobCard], error) {
	if f.OrderBy == "" {
		f.OrderBy = "-created_at"
	}
	return s.repo.List(ctx, f)
}

// BreakageInput is a breakage reported from the floor.
type BreakageInput struct {
	JobCardID   *id.ID
	OrderID     *id.ID
	Stage       string
	Operator    string
	Quantity    int
	CostPerUnit types.Paise
	Reason      string
}

// RecordBreakage stores a breakage pending approval.
func (s *Service) RecordBreakage(ctx context.Context, in BreakageInput) (*Breakage, error) {
	if err := security.Require(ctx, security.ModuleOperations); err != nil {
		return nil, err
	}
	stage, _ := ParseStage(in.Stage)
	b := &Breakage{
		Document:    entity.NewDocument(appctx.GetUserID(ctx)),
		OrderID:     in.OrderID,
		Stage:       stage,
		Operator:    strings.TrimSpace(in.Operator),
		Quantity:    in.Quantity,
		CostPerUnit: in.CostPerUnit,
		TotalLoss:   in.CostPerUnit * types.Paise(in.Quantity),
		Reason:      strings.TrimSpace(in.Reason),
		Status:      BreakagePending,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if in.JobCardID != nil {
		c, err := s.repo.GetByID(ctx, *in.JobCardID)
		if err != nil {
			return nil, err
		}
		b.JobCardID = &c.ID
		b.JobCardNumber = &c.JobCardNumber
		b.OrderID = &c.OrderID
	}
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		if err := s.repo.CreateBreakage(ctx, b); err != nil {
			return err
		}
		out.Audit("create", "breakages", b.ID.String(), nil, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ReviewBreakage approves or rejects a pending breakage. The decision is
// audited; no money moves.
func (s *Service) ReviewBreakage(ctx context.Context, breakageID id.ID, approve bool, note string) (*Breakage, error) {
	if err := security.Require(ctx, security.ModuleBreakageApprove); err != nil {
		return nil, err
	}
	var result *Breakage
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		b, err := s.repo.GetBreakageForUpdate(ctx, breakageID)
		if err != nil {
			return err
		}
		if b.Status != BreakagePending {
			return apperror.NewConflict("Breakage is already " + string(b.Status))
		}
		now := s.now()
		userID := appctx.GetUserID(ctx)
		b.Status = BreakageRejected
		if approve {
			b.Status = BreakageApproved
		}
		b.ReviewedBy = &userID
		b.ReviewedAt = &now
		b.ReviewNote = strings.TrimSpace(note)
		b.TouchBy(userID)
		if err := s.repo.UpdateBreakage(ctx, b); err != nil {
			return err
		}
		out.Audit("approve", "breakages", b.ID.String(),
			map[string]any{"status": BreakagePending},
			map[string]any{"status": b.Status, "note": b.ReviewNote, "total_loss": b.TotalLoss})
		result = b
		return nil
	})
	return result, err
}

// Breakages returns breakages page by page.
func (s *Service) Breakages(ctx context.Context, f domain.ListFilter) (domain.ListResult[Breakage], error) {
	if f.OrderBy == "" {
		f.OrderBy = "-created_at"
	}
	return s.repo.ListBreakages(ctx, f)
}

func (s *Service) mutate(ctx context.Context, cardID id.ID, fn func(ctx context.Context, c *JobCard, out *events.Staged) error) (*JobCard, error) {
	var result *JobCard
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		c, err := s.repo.GetForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if err := fn(ctx, c, out); err != nil {
			return err
		}
		c.TouchBy(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	return result, err
}

package purchase

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
	"glasserp/internal/domain/inventory"
	"glasserp/internal/domain/vendor"
	"glasserp/pkg/logger"
)

// Repository persists purchase orders. Update is version-gated.
type Repository interface {
	Create(ctx context.Context, po *PurchaseOrder) error
	Update(ctx context.Context, po *PurchaseOrder) error
	GetByID(ctx context.Context, poID id.ID) (*PurchaseOrder, error)
	GetForUpdate(ctx context.Context, poID id.ID) (*PurchaseOrder, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[PurchaseOrder], error)
	// OpenPayables returns approved or received POs with an outstanding balance.
	OpenPayables(ctx context.Context) ([]PurchaseOrder, error)
	MarkReminded(ctx context.Context, poID id.ID, day string) error
}

// Vendors looks up the supplier of a PO.
type Vendors interface {
	Get(ctx context.Context, vendorID id.ID) (*vendor.Vendor, error)
}

// Stock receives PO lines into inventory within the caller's unit of work.
type Stock interface {
	Move(ctx context.Context, out *events.Staged, mv inventory.Movement) (*inventory.Transaction, error)
}

// OpenPayments sums vendor payments of a PO that are initiated or still
// processing.
type OpenPayments interface {
	Reserved(ctx context.Context, poID id.ID) (types.Paise, error)
}

// Service manages purchase orders.
type Service struct {
	repo      Repository
	txm       tx.Manager
	bus       *events.Bus
	numerator numerator.Generator
	vendors   Vendors
	stock     Stock
	payments  OpenPayments
	now       func() time.Time
}

// NewService creates the purchase service.
func NewService(repo Repository, txm tx.Manager, bus *events.Bus, gen numerator.Generator, vendors Vendors, stock Stock, payments OpenPayments) *Service {
	return &Service{
		repo:      repo,
		txm:       txm,
		bus:       bus,
		numerator: gen,
		vendors:   vendors,
		stock:     stock,
		payments:  payments,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput is a new PO.
type CreateInput struct {
	VendorID     id.ID
	Items        []Item
	ExpectedDate *time.Time
	Notes        string
}

// Create prices and stores a draft PO. The vendor name and credit days are
// copied onto the PO.
func (s *Service) Create(ctx context.Context, in CreateInput) (*PurchaseOrder, error) {
	if err := security.Require(ctx, security.ModuleVendors); err != nil {
		return nil, err
	}
	v, err := s.vendors.Get(ctx, in.VendorID)
	if err != nil {
		return nil, err
	}
	if v.Status != entity.StatusActive {
		return nil, apperror.NewFieldValidation("vendor_id", "vendor "+v.VendorCode+" is not active")
	}

	po := &PurchaseOrder{
		Document:         entity.NewDocument(appctx.GetUserID(ctx)),
		VendorID:         v.ID,
		VendorName:       v.DisplayName(),
		VendorCreditDays: v.CreditDays,
		Items:            in.Items,
		Status:           StatusDraft,
		PaymentStatus:    Unpaid,
		ExpectedDate:     in.ExpectedDate,
		Notes:            strings.TrimSpace(in.Notes),
	}
	if err := po.Price(); err != nil {
		return nil, err
	}
	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		number, err := s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassPurchaseOrder, At: s.now()})
		if err != nil {
			return fmt.Errorf("allocate PO number: %w", err)
		}
		po.PONumber = number
		if err := s.repo.Create(ctx, po); err != nil {
			return err
		}
		out.Audit("create", "purchase_orders", po.ID.String(), nil, po)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "purchase order created", "po_number", po.PONumber, "grand_total", po.GrandTotal.String())
	return po, nil
}

// Submit sends a draft for approval.
func (s *Service) Submit(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	if err := security.Require(ctx, security.ModuleVendors); err != nil {
		return nil, err
	}
	return s.move(ctx, poID, StatusPendingApproval, "", func(po *PurchaseOrder, now time.Time) {
		po.SubmittedAt = &now
	})
}

// Approve accepts a submitted PO; its due date starts counting now.
func (s *Service) Approve(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	if err := security.Require(ctx, security.ModulePOApproval); err != nil {
		return nil, err
	}
	by := appctx.GetUserID(ctx)
	return s.move(ctx, poID, StatusApproved, "approve", func(po *PurchaseOrder, now time.Time) {
		po.ApprovedAt = &now
		po.ApprovedBy = &by
		due := now.AddDate(0, 0, po.VendorCreditDays)
		po.DueDate = &due
	})
}

// Reject turns a submitted PO down.
func (s *Service) Reject(ctx context.Context, poID id.ID, reason string) (*PurchaseOrder, error) {
	if err := security.Require(ctx, security.ModulePOApproval); err != nil {
		return nil, err
	}
	return s.move(ctx, poID, StatusRejected, "reject", func(po *PurchaseOrder, now time.Time) {
		po.RejectedAt = &now
		po.RejectionReason = strings.TrimSpace(reason)
	})
}

// Cancel withdraws a draft or an approved PO that has no payments, neither
// completed nor in flight.
func (s *Service) Cancel(ctx context.Context, poID id.ID, reason string) (*PurchaseOrder, error) {
	if err := security.Require(ctx, security.ModuleVendors); err != nil {
		return nil, err
	}
	return s.mutate(ctx, poID, func(ctx context.Context, po *PurchaseOrder, out *events.Staged) error {
		if po.AmountPaid > 0 {
			return apperror.NewConflict("PO " + po.PONumber + " has payments and cannot be cancelled")
		}
		open, err := s.payments.Reserved(ctx, po.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return apperror.NewConflict(fmt.Sprintf("PO %s has a payment of ₹%s in progress and cannot be cancelled", po.PONumber, open))
		}
		if err := s.transition(po, StatusCancelled, "", out); err != nil {
			return err
		}
		now := s.now()
		po.CancelledAt = &now
		if reason = strings.TrimSpace(reason); reason != "" {
			po.Notes = strings.TrimSpace(po.Notes + "\nCancelled: " + reason)
		}
		return nil
	})
}

// Receive books the goods in: stock IN for every line linked to a material
// and the purchase posting with its tax legs.
func (s *Service) Receive(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	if err := security.Require(ctx, security.ModuleVendors); err != nil {
		return nil, err
	}
	return s.mutate(ctx, poID, func(ctx context.Context, po *PurchaseOrder, out *events.Staged) error {
		if err := s.transition(po, StatusReceived, "", out); err != nil {
			return err
		}
		now := s.now()
		po.ReceivedAt = &now
		for _, it := range po.Items {
			if it.MaterialID == nil {
				continue
			}
			_, err := s.stock.Move(ctx, out, inventory.Movement{
				MaterialID: *it.MaterialID,
				Type:       inventory.TxIn,
				Quantity:   it.Quantity,
				Reference:  po.PONumber,
				Notes:      "Received against " + po.PONumber,
			})
			if err != nil {
				return err
			}
		}
		out.Add(events.PurchaseOrderReceived{
			POID:       po.ID,
			PONumber:   po.PONumber,
			VendorID:   po.VendorID,
			VendorName: po.VendorName,
			Taxable:    po.Subtotal,
			GST:        po.TotalGST,
			Total:      po.GrandTotal,
			ReceivedAt: now,
			DueDate:    now.AddDate(0, 0, po.VendorCreditDays),
		})
		return nil
	})
}

// UpdateStatus moves a PO to the named status through the matching operation.
func (s *Service) UpdateStatus(ctx context.Context, poID id.ID, to Status, reason string) (*PurchaseOrder, error) {
	switch to {
	case StatusPendingApproval:
		return s.Submit(ctx, poID)
	case StatusApproved:
		return s.Approve(ctx, poID)
	case StatusRejected:
		return s.Reject(ctx, poID, reason)
	case StatusReceived:
		return s.Receive(ctx, poID)
	case StatusCancelled:
		return s.Cancel(ctx, poID, reason)
	}
	return nil, apperror.NewFieldValidation("status", "cannot move a PO to "+string(to))
}

// Pay books a completed vendor payment against the PO inside the caller's
// unit of work.
func (s *Service) Pay(ctx context.Context, poID id.ID, amount types.Paise) (*PurchaseOrder, error) {
	po, err := s.repo.GetForUpdate(ctx, poID)
	if err != nil {
		return nil, err
	}
	if err := po.ApplyPayment(amount); err != nil {
		return nil, err
	}
	po.TouchBy(appctx.GetUserID(ctx))
	if err := s.repo.Update(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// Get returns one PO.
func (s *Service) Get(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return s.repo.GetByID(ctx, poID)
}

// List returns POs page by page.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[PurchaseOrder], error) {
	return s.repo.List(ctx, f)
}

// OpenPayables returns POs with money still owed.
func (s *Service) OpenPayables(ctx context.Context) ([]PurchaseOrder, error) {
	return s.repo.OpenPayables(ctx)
}

// MarkReminded records that the due reminder for day was sent.
func (s *Service) MarkReminded(ctx context.Context, poID id.ID, day string) error {
	return s.repo.MarkReminded(ctx, poID, day)
}

func (s *Service) transition(po *PurchaseOrder, to Status, action string, out *events.Staged) error {
	from := po.Status
	if err := Flow.Check("purchase order", from, to); err != nil {
		return err
	}
	po.Status = to
	if action == "" {
		action = "status_change"
	}
	out.Audit(action, "purchase_orders", po.ID.String(),
		map[string]any{"status": from}, map[string]any{"status": to})
	return nil
}

func (s *Service) move(ctx context.Context, poID id.ID, to Status, action string, stamp func(po *PurchaseOrder, now time.Time)) (*PurchaseOrder, error) {
	return s.mutate(ctx, poID, func(ctx context.Context, po *PurchaseOrder, out *events.Staged) error {
		if err := s.transition(po, to, action, out); err != nil {
			return err
		}
		stamp(po, s.now())
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, poID id.ID, fn func(ctx context.Context, po *PurchaseOrder, out *events.Staged) error) (*PurchaseOrder, error) {
	var result *PurchaseOrder
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		po, err := s.repo.GetForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if err := fn(ctx, po, out); err != nil {
			return err
		}
		po.TouchBy(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, po); err != nil {
			return err
		}
		result = po
		return nil
	})
	return result, err
}

package vendorpay

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

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
	"glasserp/internal/domain/purchase"
	"glasserp/internal/domain/vendor"
	"glasserp/pkg/logger"
)

// Repository persists vendor payments and bulk settlements.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Update(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID id.ID) (*Payment, error)
	GetForUpdate(ctx context.Context, paymentID id.ID) (*Payment, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Payment], error)
	// Reserved sums initiated and processing payments of a PO.
	Reserved(ctx context.Context, poID id.ID) (types.Paise, error)
	// Processing returns payouts waiting for the payouts API.
	Processing(ctx context.Context) ([]Payment, error)

	CreateBulk(ctx context.Context, b *Bulk) error
	UpdateBulk(ctx context.Context, b *Bulk) error
	GetBulk(ctx context.Context, bulkID id.ID) (*Bulk, error)
	GetBulkForUpdate(ctx context.Context, bulkID id.ID) (*Bulk, error)
}

// POs reads purchase orders and books completed payments against them.
type POs interface {
	Get(ctx context.Context, poID id.ID) (*purchase.PurchaseOrder, error)
	// Pay must run inside the caller's transaction.
	Pay(ctx context.Context, poID id.ID, amount types.Paise) (*purchase.PurchaseOrder, error)
}

// Vendors looks up payees.
type Vendors interface {
	Get(ctx context.Context, vendorID id.ID) (*vendor.Vendor, error)
}

// Service pays vendors.
type Service struct {
	repo      Repository
	txm       tx.Manager
	bus       *events.Bus
	numerator numerator.Generator
	pos       POs
	vendors   Vendors
	payouts   Payouts
	now       func() time.Time
}

// NewService creates the vendor payment service.
func NewService(repo Repository, txm tx.Manager, bus *events.Bus, gen numerator.Generator, pos POs, vendors Vendors, payouts Payouts) *Service {
	return &Service{
		repo:      repo,
		txm:       txm,
		bus:       bus,
		numerator: gen,
		pos:       pos,
		vendors:   vendors,
		payouts:   payouts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// InitiateInput starts a payment against one PO. When Amount is zero and
// Percentage is set, the amount is that share of the grand total.
type InitiateInput struct {
	POID        id.ID
	PaymentType Type
	Amount      types.Paise
	Percentage  *float64
	PaymentMode Mode
	Notes       string
}

// Initiated is the result of Initiate.
type Initiated struct {
	Payment              *Payment `json:"payment"`
	PaymentID            id.ID    `json:"payment_id"`
	MockMode             bool     `json:"mock_mode"`
	RequiresVerification bool     `json:"requires_verification"`
}

// Initiate records a payment against an approved PO. Payout mode calls the
// payouts API straight away; manual modes wait for RecordManual.
func (s *Service) Initiate(ctx context.Context, in InitiateInput) (*Initiated, error) {
	if err := security.Require(ctx, security.ModuleVendorPayments); err != nil {
		return nil, err
	}
	if _, ok := ParseType(string(in.PaymentType)); !ok {
		return nil, apperror.NewFieldValidation("payment_type", "payment_type must be advance, partial or full")
	}
	if _, ok := ParseMode(string(in.PaymentMode)); !ok {
		return nil, apperror.NewFieldValidation("payment_mode", "unknown payment_mode "+string(in.PaymentMode))
	}
	po, err := s.pos.Get(ctx, in.POID)
	if err != nil {
		return nil, err
	}
	if po.Status != purchase.StatusApproved {
		return nil, apperror.NewConflict(fmt.Sprintf("PO %s is %s; only approved POs can be paid", po.PONumber, po.Status))
	}

	amount := in.Amount
	if amount == 0 && in.Percentage != nil {
		if *in.Percentage <= 0 || *in.Percentage > 100 {
			return nil, apperror.NewFieldValidation("percentage", "percentage must be between 0 and 100")
		}
		amount = po.GrandTotal.MulRate(decimal.NewFromFloat(*in.Percentage))
	}
	reserved, err := s.repo.Reserved(ctx, po.ID)
	if err != nil {
		return nil, err
	}
	available := po.OutstandingBalance - reserved
	if !amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be positive")
	}
	if amount > available {
		return nil, apperror.NewFieldValidation("amount",
			fmt.Sprintf("Amount exceeds the outstanding balance of ₹%s", available))
	}
	if in.PaymentType == TypeFull && amount != available {
		return nil, apperror.NewFieldValidation("amount",
			fmt.Sprintf("A full payment must equal the outstanding balance of ₹%s", available))
	}

	v, err := s.vendors.Get(ctx, po.VendorID)
	if err != nil {
		return nil, err
	}
	if in.PaymentMode == ModePayout && !v.CanReceivePayout() {
		return nil, apperror.NewFieldValidation("payment_mode", "Vendor has no bank account or UPI id for payouts")
	}

	p := &Payment{
		Document:    entity.NewDocument(appctx.GetUserID(ctx)),
		POID:        po.ID,
		PONumber:    po.PONumber,
		VendorID:    v.ID,
		VendorName:  v.DisplayName(),
		Amount:      amount,
		PaymentType: in.PaymentType,
		PaymentMode: in.PaymentMode,
		Status:      StatusInitiated,
		Notes:       strings.TrimSpace(in.Notes),
	}
	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		out.Audit("payment", "vendor_payments", p.ID.String(), nil, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Initiated{Payment: p, PaymentID: p.ID, RequiresVerification: p.PaymentMode.Manual()}
	if p.PaymentMode.Manual() {
		return res, nil
	}

	ben, transfer := beneficiary(v, amount)
	payout, err := s.payouts.Create(ctx, PayoutRequest{
		Amount:      amount,
		Mode:        transfer,
		Purpose:     "vendor bill",
		ReferenceID: p.ID.String(),
		Narration:   po.PONumber,
		Beneficiary: ben,
	})
	if err != nil {
		if _, ferr := s.fail(ctx, p.ID, err.Error()); ferr != nil {
			logger.Error(ctx, "mark vendor payment failed", "payment_id", p.ID, "error", ferr)
		}
		return nil, apperror.NewExternal("payouts", err)
	}
	p, err = s.track(ctx, p.ID, payout)
	if err != nil {
		return nil, err
	}
	res.Payment = p
	res.MockMode = payout.Mock
	logger.Info(ctx, "vendor payout created", "payment_id", p.ID, "payout_id", payout.ID, "mock", payout.Mock)
	return res, nil
}

// track stores the payout id and state.
func (s *Service) track(ctx context.Context, paymentID id.ID, payout PayoutResult) (*Payment, error) {
	var p *Payment
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		p.PayoutID = &payout.ID
		p.PayoutStatus = &payout.Status
		p.MockMode = payout.Mock
		if p.Status == StatusInitiated {
			p.Status = StatusProcessing
		}
		p.Touch()
		return s.repo.Update(ctx, p)
	})
	return p, err
}

func (s *Service) fail(ctx context.Context, paymentID id.ID, reason string) (*Payment, error) {
	var p *Payment
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if !p.Status.Open() {
			return nil
		}
		p.Status = StatusFailed
		p.FailureReason = reason
		p.Touch()
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		out.Audit("update", "vendor_payments", p.ID.String(), nil, map[string]any{"status": StatusFailed, "reason": reason})
		return nil
	})
	return p, err
}

// Status reconciles a payout with the payouts API and completes the payment
// once the money has landed.
func (s *Service) Status(ctx context.Context, paymentID id.ID) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.Status.Open() || p.PayoutID == nil {
		return p, nil
	}
	payout, err := s.payouts.Fetch(ctx, *p.PayoutID)
	if err != nil {
		return nil, apperror.NewExternal("payouts", err)
	}
	switch payout.Status {
	case PayoutProcessed:
		utr := payout.UTR
		if utr == "" {
			return nil, apperror.NewExternal("payouts", errors.New("processed payout without UTR"))
		}
		return s.complete(ctx, p.ID, utr, nil)
	case PayoutReversed, PayoutCancelled, PayoutFailed:
		return s.fail(ctx, p.ID, "payout "+payout.Status)
	}
	if p.PayoutStatus == nil || *p.PayoutStatus != payout.Status {
		return s.track(ctx, p.ID, payout)
	}
	return p, nil
}

// RecordManual completes a manual payment with the bank's transaction reference.
func (s *Service) RecordManual(ctx context.Context, paymentID id.ID, transactionRef string) (*Payment, error) {
	if err := security.Require(ctx, security.ModuleVendorPayments); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(transactionRef)
	if ref == "" {
		return nil, apperror.NewFieldValidation("transaction_ref", "transaction_ref is required")
	}
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.PaymentMode.Manual() {
		return nil, apperror.NewConflict("Payouts are completed by the payouts API")
	}
	if p.BulkPaymentID != nil {
		return nil, apperror.NewConflict("Payment belongs to a bulk payment; complete the bulk payment instead")
	}
	return s.complete(ctx, p.ID, ref, &ref)
}

// complete marks the payment completed in one unit of work: receipt number,
// PO balance and ledger posting. A payment that is already completed is
// returned as is and consumes no receipt number.
func (s *Service) complete(ctx context.Context, paymentID id.ID, utr string, ref *string) (*Payment, error) {
	now := s.now()
	var p *Payment
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		var err error
		p, err = s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == StatusCompleted {
			return nil
		}
		if p.Status == StatusFailed {
			return apperror.NewConflict("Payment has failed")
		}
		receipt, err := s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassVendorReceipt, At: now})
		if err != nil {
			return fmt.Errorf("allocate receipt number: %w", err)
		}
		return s.settle(ctx, out, p, utr, ref, receipt, now)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) settle(ctx context.Context, out *events.Staged, p *Payment, utr string, ref *string, receipt string, now time.Time) error {
	if _, err := s.pos.Pay(ctx, p.POID, p.Amount); err != nil {
		return err
	}
	processed := PayoutProcessed
	p.Status = StatusCompleted
	p.UTR = &utr
	p.ReceiptNumber = &receipt
	p.TransactionRef = ref
	p.CompletedAt = &now
	if p.PayoutID != nil {
		p.PayoutStatus = &processed
	}
	p.TouchBy(appctx.GetUserID(ctx))
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	out.Add(events.VendorPaymentCompleted{
		PaymentID:     p.ID,
		POID:          p.POID,
		PONumber:      p.PONumber,
		VendorID:      p.VendorID,
		VendorName:    p.VendorName,
		Amount:        p.Amount,
		Mode:          string(p.PaymentMode),
		UTR:           utr,
		ReceiptNumber: receipt,
		BulkPaymentID: p.BulkPaymentID,
		CompletedAt:   now,
	})
	out.Audit("payment", "vendor_payments", p.ID.String(),
		map[string]any{"status": StatusInitiated},
		map[string]any{"status": StatusCompleted, "utr": utr, "receipt_number": receipt})
	return nil
}

// BulkInput pays several POs of one vendor together.
type BulkInput struct {
	VendorID    id.ID
	POIDs       []id.ID
	PaymentMode Mode
	Notes       string
}

// CreateBulk creates the bulk settlement and one payment per PO, each for the
// PO's full outstanding balance. Nothing is stored unless every PO qualifies.
func (s *Service) CreateBulk(ctx context.Context, in BulkInput) (*Bulk, error) {
	if err := security.Require(ctx, security.ModuleVendorPayments); err != nil {
		return nil, err
	}
	if len(in.POIDs) == 0 {
		return nil, apperror.NewFieldValidation("po_ids", "at least one PO is required")
	}
	if _, ok := ParseMode(string(in.PaymentMode)); !ok || in.PaymentMode == ModePayout {
		return nil, apperror.NewFieldValidation("payment_mode", "bulk payments are settled manually")
	}
	v, err := s.vendors.Get(ctx, in.VendorID)
	if err != nil {
		return nil, err
	}

	userID := appctx.GetUserID(ctx)
	b := &Bulk{
		Document:    entity.NewDocument(userID),
		VendorID:    v.ID,
		VendorName:  v.DisplayName(),
		PaymentMode: in.PaymentMode,
		Status:      StatusInitiated,
		Notes:       strings.TrimSpace(in.Notes),
	}
	var payments []*Payment
	for _, poID := range in.POIDs {
		if slices.Contains(b.POIDs, poID) {
			return nil, apperror.NewFieldValidation("po_ids", "PO listed twice")
		}
		po, err := s.pos.Get(ctx, poID)
		if err != nil {
			return nil, err
		}
		if po.VendorID != v.ID {
			return nil, apperror.NewFieldValidation("po_ids", "PO "+po.PONumber+" belongs to another vendor")
		}
		if po.Status != purchase.StatusApproved || po.OutstandingBalance <= 0 {
			return nil, apperror.NewConflict("PO " + po.PONumber + " is not approved with an outstanding balance")
		}
		reserved, err := s.repo.Reserved(ctx, po.ID)
		if err != nil {
			return nil, err
		}
		if reserved > 0 {
			return nil, apperror.NewConflict("PO " + po.PONumber + " already has a payment in progress")
		}
		b.POIDs = append(b.POIDs, po.ID)
		b.TotalAmount += po.OutstandingBalance
		bulkID := b.ID
		payments = append(payments, &Payment{
			Document:      entity.NewDocument(userID),
			POID:          po.ID,
			PONumber:      po.PONumber,
			VendorID:      v.ID,
			VendorName:    b.VendorName,
			Amount:        po.OutstandingBalance,
			PaymentType:   TypeFull,
			PaymentMode:   in.PaymentMode,
			Status:        StatusInitiated,
			BulkPaymentID: &bulkID,
		})
	}
	for _, p := range payments {
		b.PaymentIDs = append(b.PaymentIDs, p.ID)
	}

	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		if err := s.repo.CreateBulk(ctx, b); err != nil {
			return err
		}
		for _, p := range payments {
			if err := s.repo.Create(ctx, p); err != nil {
				return err
			}
		}
		out.Audit("create", "bulk_vendor_payments", b.ID.String(), nil, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "bulk vendor payment created", "bulk_id", b.ID, "pos", len(b.POIDs), "total", b.TotalAmount.String())
	return b, nil
}

// BulkResult is a completed bulk settlement with its payments.
type BulkResult struct {
	Bulk     *Bulk      `json:"bulk_payment"`
	Payments []*Payment `json:"payments"`
}

// CompleteBulk settles every payment of the bulk in one unit of work: one
// bulk receipt, one VPR- receipt per payment, every PO updated together.
func (s *Service) CompleteBulk(ctx context.Context, bulkID id.ID, transactionRef string) (*BulkResult, error) {
	if err := security.Require(ctx, security.ModuleVendorPayments); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(transactionRef)
	if ref == "" {
		return nil, apperror.NewFieldValidation("transaction_ref", "transaction_ref is required")
	}
	current, err := s.repo.GetBulk(ctx, bulkID)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCompleted {
		return s.bulkResult(ctx, current)
	}
	if current.Status != StatusInitiated {
		return nil, apperror.NewConflict("Bulk payment is " + string(current.Status))
	}

	now := s.now()
	var bulkNumber string
	res := &BulkResult{}
	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		res.Payments = res.Payments[:0]
		b, err := s.repo.GetBulkForUpdate(ctx, bulkID)
		if err != nil {
			return err
		}
		if b.Status != StatusInitiated {
			return apperror.NewConflict("Bulk payment is " + string(b.Status))
		}
		bulkNumber, err = s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassBulkReceipt, At: now})
		if err != nil {
			return fmt.Errorf("allocate bulk receipt number: %w", err)
		}
		for _, paymentID := range b.PaymentIDs {
			p, err := s.repo.GetForUpdate(ctx, paymentID)
			if err != nil {
				return err
			}
			if p.Status != StatusInitiated {
				return apperror.NewConflict("Payment for " + p.PONumber + " is " + string(p.Status))
			}
			receipt, err := s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassVendorReceipt, At: now})
			if err != nil {
				return fmt.Errorf("allocate receipt number: %w", err)
			}
			if err := s.settle(ctx, out, p, ref, &ref, receipt, now); err != nil {
				return err
			}
			res.Payments = append(res.Payments, p)
		}
		b.Status = StatusCompleted
		b.BulkReceiptNumber = &bulkNumber
		b.TransactionRef = &ref
		b.CompletedAt = &now
		b.TouchBy(appctx.GetUserID(ctx))
		if err := s.repo.UpdateBulk(ctx, b); err != nil {
			return err
		}
		out.Audit("payment", "bulk_vendor_payments", b.ID.String(),
			map[string]any{"status": StatusInitiated},
			map[string]any{"status": StatusCompleted, "bulk_receipt_number": bulkNumber})
		res.Bulk = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "bulk vendor payment completed", "bulk_receipt_number", bulkNumber, "payments", len(res.Payments))
	return res, nil
}

func (s *Service) bulkResult(ctx context.Context, b *Bulk) (*BulkResult, error) {
	res := &BulkResult{Bulk: b}
	for _, paymentID := range b.PaymentIDs {
		p, err := s.repo.GetByID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		res.Payments = append(res.Payments, p)
	}
	return res, nil
}

// Reconcile polls every processing payout once. Used by the worker.
func (s *Service) Reconcile(ctx context.Context) (completed int, err error) {
	pending, err := s.repo.Processing(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range pending {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		got, err := s.Status(ctx, p.ID)
		if err != nil {
			logger.Warn(ctx, "payout reconciliation failed", "payment_id", p.ID, "error", err)
			continue
		}
		if got.Status == StatusCompleted {
			completed++
		}
	}
	return completed, nil
}

// Get returns one payment.
func (s *Service) Get(ctx context.Context, paymentID id.ID) (*Payment, error) {
	return s.repo.GetByID(ctx, paymentID)
}

// GetBulk returns one bulk settlement with its payments.
func (s *Service) GetBulk(ctx context.Context, bulkID id.ID) (*BulkResult, error) {
	b, err := s.repo.GetBulk(ctx, bulkID)
	if err != nil {
		return nil, err
	}
	return s.bulkResult(ctx, b)
}

// List returns payments page by page.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Payment], error) {
	if f.OrderBy == "" {
		f.OrderBy = "-created_at"
	}
	return s.repo.List(ctx, f)
}

package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/numerator"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/customer"
	"glasserp/internal/domain/order"
	"glasserp/internal/domain/settings"
	"glasserp/internal/domain/tax"
	"glasserp/pkg/logger"
)

// Repository persists invoices.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Update(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	// GetByOrderID returns NotFound when the order has no invoice yet.
	GetByOrderID(ctx context.Context, orderID id.ID) (*Invoice, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Invoice], error)
}

// Orders loads orders for invoicing.
type Orders interface {
	Get(ctx context.Context, orderID id.ID) (*order.Order, error)
}

// Customers resolves customer profiles.
type Customers interface {
	Get(ctx context.Context, customerID id.ID) (*customer.Customer, error)
}

// GSTSettings provides the tax configuration and invoice prefix.
type GSTSettings interface {
	GST(ctx context.Context) (settings.GST, error)
}

// Service issues invoices.
type Service struct {
	repo      Repository
	txm       tx.Manager
	bus       *events.Bus
	numerator numerator.Generator
	settings  GSTSettings
	customers Customers
	orders    Orders
	now       func() time.Time
}

// NewService creates the invoice service. orders may be nil until the order
// service is built; SetOrders completes the wiring.
func NewService(repo Repository, txm tx.Manager, bus *events.Bus, gen numerator.Generator, gst GSTSettings, customers Customers) *Service {
	return &Service{
		repo:      repo,
		txm:       txm,
		bus:       bus,
		numerator: gen,
		settings:  gst,
		customers: customers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetOrders wires the order loader used by FromOrder.
func (s *Service) SetOrders(o Orders) { s.orders = o }

// ItemInput is a manual invoice line.
type ItemInput struct {
	Description string
	HSNCode     string
	Quantity    float64
	Unit        string
	Rate        types.Paise
}

// CreateInput is a manual invoice.
type CreateInput struct {
	CustomerID    *id.ID
	CustomerName  string
	CustomerGSTIN *string
	CustomerPhone string
	StateCode     string
	Items         []ItemInput
	Notes         string
}

// Create issues a manual invoice. Tax is computed per line and rounded once
// per leg.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Invoice, error) {
	if len(in.Items) == 0 {
		return nil, apperror.NewFieldValidation("items", "at least one item is required")
	}
	cfg, err := s.settings.GST(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &Invoice{
		Document:      entity.NewDocument(appctx.GetUserID(ctx)),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerGSTIN: in.CustomerGSTIN,
		CustomerPhone: in.CustomerPhone,
		StateCode:     in.StateCode,
		InvoiceDate:   now,
		Notes:         in.Notes,
	}
	creditDays := DefaultCreditDays
	if in.CustomerID != nil {
		c, err := s.customers.Get(ctx, *in.CustomerID)
		if err != nil {
			return nil, err
		}
		inv.CustomerID = &c.ID
		inv.CustomerName = c.DisplayName
		inv.CustomerPhone = c.Mobile
		if inv.CustomerGSTIN == nil {
			inv.CustomerGSTIN = c.GSTIN
		}
		if inv.StateCode == "" {
			inv.StateCode = c.StateCode()
		}
		inv.BillingAddress = c.BillingAddress.String()
		creditDays = c.EffectiveCreditDays()
	}
	if inv.CustomerName == "" {
		return nil, apperror.NewFieldValidation("customer_name", "customer_name is required")
	}
	if inv.CustomerGSTIN != nil {
		g, err := tax.NormalizeGSTIN(*inv.CustomerGSTIN)
		if err != nil {
			return nil, err
		}
		inv.CustomerGSTIN = &g
	}

	for i, it := range in.Items {
		if strings.TrimSpace(it.Description) == "" {
			return nil, apperror.NewFieldValidation(fmt.Sprintf("items[%d].description", i), "description is required")
		}
		if it.Quantity <= 0 || !it.Rate.IsPositive() {
			return nil, apperror.NewFieldValidation(fmt.Sprintf("items[%d]", i), "quantity and rate must be positive")
		}
		amount := types.PaiseFromDecimal(it.Rate.Rupees().Mul(decimal.NewFromFloat(it.Quantity)))
		b, err := tax.Compute(cfg, tax.Input{Taxable: amount, StateCode: inv.StateCode, HSNCode: it.HSNCode})
		if err != nil {
			return nil, err
		}
		inv.GSTType = b.GSTType
		unit := it.Unit
		if unit == "" {
			unit = "nos"
		}
		inv.Items = append(inv.Items, Item{
			Description: strings.TrimSpace(it.Description),
			HSNCode:     b.HSNCode,
			Quantity:    it.Quantity,
			Unit:        unit,
			Rate:        it.Rate,
			Amount:      amount,
			CGST:        b.CGSTAmount,
			SGST:        b.SGSTAmount,
			IGST:        b.IGSTAmount,
			GSTRate:     b.Rate,
		})
	}
	inv.sum()
	inv.DueDate = now.AddDate(0, 0, creditDays)
	inv.refreshStatus()

	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		return s.issue(ctx, inv, cfg.InvoicePrefix, out)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) issue(ctx context.Context, inv *Invoice, prefix string, out *events.Staged) error {
	number, err := s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassInvoice, At: inv.InvoiceDate, Prefix: prefix})
	if err != nil {
		return fmt.Errorf("allocate invoice number: %w", err)
	}
	inv.InvoiceNumber = number
	if err := s.repo.Create(ctx, inv); err != nil {
		return err
	}

	var party id.ID
	if inv.CustomerID != nil {
		party = *inv.CustomerID
	}
	out.Add(events.InvoiceIssued{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		OrderID:       inv.OrderID,
		PartyID:       party,
		PartyName:     inv.CustomerName,
		Taxable:       inv.Subtotal,
		CGST:          inv.CGST,
		SGST:          inv.SGST,
		IGST:          inv.IGST,
		Total:         inv.Total,
		IssuedAt:      inv.InvoiceDate,
		DueDate:       inv.DueDate,
	})
	out.Audit("create", "invoices", inv.ID.String(), nil, inv)
	logger.Info(ctx, "invoice issued", "invoice_number", inv.InvoiceNumber, "total", inv.Total.String())
	return nil
}

// FromOrder issues the invoice of an order, or returns the one already issued.
func (s *Service) FromOrder(ctx context.Context, orderID id.ID) (*Invoice, error) {
	if existing, err := s.repo.GetByOrderID(ctx, orderID); err == nil {
		return existing, nil
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var inv *Invoice
	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		var err error
		inv, err = s.forOrder(ctx, o, out)
		return err
	})
	return inv, err
}

// IssueForOrder implements order.Invoicer; it runs inside the caller's unit of work.
func (s *Service) IssueForOrder(ctx context.Context, o *order.Order, out *events.Staged) error {
	_, err := s.forOrder(ctx, o, out)
	return err
}

func (s *Service) forOrder(ctx context.Context, o *order.Order, out *events.Staged) (*Invoice, error) {
	if existing, err := s.repo.GetByOrderID(ctx, o.ID); err == nil {
		return existing, nil
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}
	if o.Status == order.StatusCancelled || o.Status == order.StatusPending {
		return nil, apperror.NewConflict("Order " + o.OrderNumber + " cannot be invoiced while " + string(o.Status))
	}
	cfg, err := s.settings.GST(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	number := o.OrderNumber
	inv := &Invoice{
		Document:      entity.NewDocument(appctx.GetUserID(ctx)),
		OrderID:       &o.ID,
		OrderNumber:   &number,
		CustomerID:    o.CustomerProfileID,
		CustomerName:  o.CustomerName,
		CustomerGSTIN: o.CustomerGSTIN,
		CustomerPhone: o.CustomerPhone,
		StateCode:     o.DeliveryStateCode,
		GSTType:       o.GSTType,
		InvoiceDate:   now,
		Items: []Item{{
			Description: fmt.Sprintf("%s %dmm %gx%g in", o.ProductName, o.Thickness, o.Width, o.Height),
			HSNCode:     o.HSNCode,
			Quantity:    float64(o.Quantity),
			Unit:        "pcs",
			Rate:        o.BaseAmount / types.Paise(max(o.Quantity, 1)),
			Amount:      o.BaseAmount,
			CGST:        o.CGSTAmount,
			SGST:        o.SGSTAmount,
			IGST:        o.IGSTAmount,
			GSTRate:     o.CGSTRate + o.SGSTRate + o.IGSTRate,
		}},
	}
	inv.sum()

	creditDays := DefaultCreditDays
	if o.CustomerProfileID != nil {
		c, err := s.customers.Get(ctx, *o.CustomerProfileID)
		if err != nil && !apperror.IsNotFound(err) {
			return nil, err
		}
		if c != nil {
			creditDays = c.EffectiveCreditDays()
			inv.BillingAddress = c.BillingAddress.String()
		}
	}
	inv.DueDate = now.AddDate(0, 0, creditDays)

	// Order receipts are already in the ledger; the invoice only mirrors them.
	inv.AmountPaid = o.Collected()
	if inv.AmountPaid > 0 {
		inv.Payments = append(inv.Payments, Payment{
			Sequence:   0,
			Amount:     inv.AmountPaid,
			Method:     "order",
			Reference:  o.OrderNumber,
			ReceivedAt: now,
		})
	}
	inv.refreshStatus()

	if err := s.issue(ctx, inv, cfg.InvoicePrefix, out); err != nil {
		return nil, err
	}
	return inv, nil
}

// RecordPayment records a receipt against an invoice. Overpayment is refused.
func (s *Service) RecordPayment(ctx context.Context, invoiceID id.ID, amount types.Paise, method, reference string) (*Invoice, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be positive")
	}
	method = strings.TrimSpace(strings.ToLower(method))
	if method == "" {
		method = "bank_transfer"
	}

	var inv *Invoice
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		var err error
		inv, err = s.repo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		due := inv.Outstanding()
		if due <= 0 {
			return apperror.NewConflict("Invoice " + inv.InvoiceNumber + " is already paid")
		}
		if amount > due {
			return apperror.NewFieldValidation("amount", "Amount exceeds the outstanding ₹"+due.String())
		}
		old := struct {
			AmountPaid    types.Paise
			PaymentStatus PaymentStatus
		}{inv.AmountPaid, inv.PaymentStatus}

		now := s.now()
		seq := len(inv.Payments) + 1
		inv.Payments = append(inv.Payments, Payment{
			Sequence:   seq,
			Amount:     amount,
			Method:     method,
			Reference:  reference,
			ReceivedAt: now,
			RecordedBy: appctx.GetUserID(ctx),
		})
		inv.AmountPaid += amount
		inv.refreshStatus()
		inv.TouchBy(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, inv); err != nil {
			return err
		}

		var party id.ID
		if inv.CustomerID != nil {
			party = *inv.CustomerID
		}
		out.Add(events.InvoicePaymentRecorded{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			PartyID:       party,
			PartyName:     inv.CustomerName,
			Sequence:      seq,
			Amount:        amount,
			Method:        method,
			Reference:     reference,
			ReceivedAt:    now,
		})
		out.Audit("payment", "invoices", inv.ID.String(), old, map[string]any{
			"amount_paid": inv.AmountPaid, "payment_status": inv.PaymentStatus, "amount": amount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return s.repo.GetByID(ctx, invoiceID)
}

// List returns invoices page by page.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Invoice], error) {
	return s.repo.List(ctx, f)
}

package order

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
	"glasserp/internal/domain/customer"
	"glasserp/internal/domain/product"
	"glasserp/internal/domain/settings"
	"glasserp/internal/domain/tax"
	"glasserp/pkg/logger"
)

// Repository persists orders. Update is version-gated and returns
// ConcurrentModification when the stored version moved.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	// GetByGatewayOrderID matches either the advance or the remaining gateway order.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Order], error)
	// Unpaid returns open orders that still have money to collect.
	Unpaid(ctx context.Context) ([]Order, error)
	MarkReminded(ctx context.Context, orderID id.ID, day string) error
}

// Gateway is the inbound payments provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amount types.Paise, receipt string) (string, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// WebhookLog remembers processed provider events.
type WebhookLog interface {
	// Record returns false when (eventID, documentID) was already processed.
	Record(ctx context.Context, eventID, documentID string) (bool, error)
}

// Catalogue prices order lines.
type Catalogue interface {
	Quote(ctx context.Context, productID id.ID, thickness int, widthInch, heightInch float64, quantity int) (*product.Line, error)
}

// Customers resolves customer profiles.
type Customers interface {
	Get(ctx context.Context, customerID id.ID) (*customer.Customer, error)
	ForUser(ctx context.Context, userID string) (*customer.Customer, error)
}

// TaxCalculator computes GST.
type TaxCalculator interface {
	Calculate(ctx context.Context, in tax.Input) (tax.Breakdown, error)
}

// AdvanceSettings provides the advance rule.
type AdvanceSettings interface {
	AdvancePayment(ctx context.Context) (settings.AdvancePayment, error)
}

// DispatchGate reports whether production allows the order to leave the factory.
type DispatchGate interface {
	CheckDispatch(ctx context.Context, orderID id.ID) error
}

// Invoicer issues the sales invoice of a dispatched order inside the same unit of work.
type Invoicer interface {
	IssueForOrder(ctx context.Context, o *Order, out *events.Staged) error
}

// Deps groups the collaborators of the order service.
type Deps struct {
	Repo       Repository
	TxManager  tx.Manager
	Bus        *events.Bus
	Numerator  numerator.Generator
	Catalogue  Catalogue
	Customers  Customers
	Tax        TaxCalculator
	Settings   AdvanceSettings
	Gateway    Gateway
	Webhooks   WebhookLog
	Settlement *Settlement
	// Gate and Invoicer are optional.
	Gate     DispatchGate
	Invoicer Invoicer
}

// Service runs the order lifecycle.
type Service struct {
	Deps
	now func() time.Time
}

// NewService creates the order service.
func NewService(d Deps) *Service {
	if d.Settlement == nil {
		d.Settlement = MustSettlement()
	}
	return &Service{Deps: d, now: func() time.Time { return time.Now().UTC() }}
}

// CreateInput is a new order request.
type CreateInput struct {
	ProductID         id.ID
	Thickness         int
	Width             float64
	Height            float64
	Quantity          int
	OverrideTotal     *types.Paise
	CustomerProfileID *id.ID
	CustomerName      string
	CompanyName       *string
	CustomerPhone     string
	CustomerEmail     string
	AdvancePercent    int
	DeliveryStateCode string
	CustomerGSTIN     *string
	RemainingMethod   *Method
	IsCreditOrder     bool
}

// Created is the result of Create.
type Created struct {
	Order          *Order      `json:"order"`
	GatewayOrderID *string     `json:"gateway_order_id,omitempty"`
	AmountDue      types.Paise `json:"amount_due"`
}

// Pricing is a price preview.
type Pricing struct {
	Quote             product.Quote `json:"quote"`
	Tax               tax.Breakdown `json:"tax"`
	TotalPrice        types.Paise   `json:"total_price"`
	MinAdvancePercent int           `json:"min_advance_percent"`
	AdvanceOptions    []int         `json:"advance_options"`
}

// Calculate prices an order without persisting it.
func (s *Service) Calculate(ctx context.Context, in CreateInput) (*Pricing, error) {
	line, breakdown, err := s.price(ctx, in)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Settings.AdvancePayment(ctx)
	if err != nil {
		return nil, err
	}
	return &Pricing{
		Quote:             line.Quote,
		Tax:               breakdown,
		TotalPrice:        breakdown.TotalAmount,
		MinAdvancePercent: MinAdvance(cfg, breakdown.TotalAmount),
		AdvanceOptions:    AdvanceOptions(cfg, breakdown.TotalAmount),
	}, nil
}

func (s *Service) price(ctx context.Context, in CreateInput) (*product.Line, tax.Breakdown, error) {
	line, err := s.Catalogue.Quote(ctx, in.ProductID, in.Thickness, in.Width, in.Height, in.Quantity)
	if err != nil {
		return nil, tax.Breakdown{}, err
	}
	base := line.Quote.BaseAmount
	if in.OverrideTotal != nil {
		if !in.OverrideTotal.IsPositive() {
			return nil, tax.Breakdown{}, apperror.NewFieldValidation("override_total", "override_total must be positive")
		}
		base = *in.OverrideTotal
	}
	breakdown, err := s.Tax.Calculate(ctx, tax.Input{
		Taxable:   base,
		StateCode: in.DeliveryStateCode,
		HSNCode:   line.Product.HSNCode,
	})
	if err != nil {
		return nil, tax.Breakdown{}, err
	}
	return line, breakdown, nil
}

// Create prices, validates and stores a new order. An online advance gets a
// gateway order; nothing is posted to the ledger until money arrives.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Created, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	if in.IsCreditOrder {
		if err := security.Require(ctx, security.ModuleCreditOrders); err != nil {
			return nil, apperror.NewForbidden("Only admins can create credit orders")
		}
	}

	line, breakdown, err := s.price(ctx, in)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Settings.AdvancePayment(ctx)
	if err != nil {
		return nil, err
	}
	if in.IsCreditOrder && !cfg.CreditEnabled {
		return nil, apperror.NewValidation("Credit orders are disabled")
	}
	if err := CheckAdvance(cfg, breakdown.TotalAmount, in.AdvancePercent, in.IsCreditOrder); err != nil {
		return nil, err
	}

	o := &Order{
		Document:          entity.NewDocument(user.UserID),
		UserID:            user.UserID,
		CustomerName:      strings.TrimSpace(in.CustomerName),
		CompanyName:       in.CompanyName,
		CustomerPhone:     in.CustomerPhone,
		CustomerEmail:     in.CustomerEmail,
		ProductID:         line.Product.ID,
		ProductName:       line.Product.Name,
		Thickness:         in.Thickness,
		Width:             in.Width,
		Height:            in.Height,
		Quantity:          in.Quantity,
		AreaSqft:          line.Quote.AreaSqft,
		OverrideTotal:     in.OverrideTotal,
		DeliveryStateCode: in.DeliveryStateCode,
		CustomerGSTIN:     in.CustomerGSTIN,
		Status:            StatusPending,
		IsCreditOrder:     in.IsCreditOrder,
		AdvancePercent:    in.AdvancePercent,
	}
	if err := s.attachCustomer(ctx, o, in.CustomerProfileID); err != nil {
		return nil, err
	}
	if o.CustomerName == "" {
		o.CustomerName = user.Name
	}
	if o.CustomerEmail == "" {
		o.CustomerEmail = user.Email
	}
	o.applyTax(breakdown)

	o.AdvanceAmount, o.RemainingAmount = Split(o.TotalPrice, o.AdvancePercent)
	o.AdvancePaymentStatus = AdvancePending
	o.RemainingPaymentStatus = RemainingPending
	if o.AdvancePercent == 100 || o.IsCreditOrder {
		o.RemainingPaymentStatus = RemainingNotApplicable
	}
	if o.RemainingPaymentStatus == RemainingPending && in.RemainingMethod != nil {
		o.RemainingPaymentMethod = in.RemainingMethod
	}
	if o.IsCreditOrder {
		// Admin approval at creation confirms a credit order.
		o.Status = StatusConfirmed
	}
	o.refreshPaymentStatus()

	number, err := s.Numerator.Next(ctx, numerator.Request{Class: numerator.ClassOrder, At: o.CreatedAt})
	if err != nil {
		return nil, fmt.Errorf("allocate order number: %w", err)
	}
	o.OrderNumber = number

	res := &Created{Order: o}
	if !o.IsCreditOrder && o.AdvanceAmount.IsPositive() {
		gatewayID, err := s.Gateway.CreateOrder(ctx, o.AdvanceAmount, o.OrderNumber)
		if err != nil {
			return nil, apperror.NewExternal("payment gateway", err)
		}
		o.GatewayOrderID = &gatewayID
		res.GatewayOrderID = &gatewayID
		res.AmountDue = o.AdvanceAmount
	}

	err = s.Bus.UnitOfWork(ctx, s.TxManager, func(ctx context.Context, out *events.Staged) error {
		if err := s.Repo.Create(ctx, o); err != nil {
			return err
		}
		out.Add(events.OrderCreated{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			CustomerName:  o.CustomerName,
			CustomerPhone: o.CustomerPhone,
			CustomerEmail: o.CustomerEmail,
			Total:         o.TotalPrice,
			AdvanceAmount: o.AdvanceAmount,
			IsCredit:      o.IsCreditOrder,
		})
		out.Audit("create", "orders", o.ID.String(), nil, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", o.ID, "order_number", o.OrderNumber,
		"total", o.TotalPrice.String(), "advance_percent", o.AdvancePercent, "credit", o.IsCreditOrder)
	return res, nil
}

func (s *Service) attachCustomer(ctx context.Context, o *Order, profileID *id.ID) error {
	var (
		c   *customer.Customer
		err error
	)
	switch {
	case profileID != nil:
		c, err = s.Customers.Get(ctx, *profileID)
		if apperror.IsNotFound(err) {
			return apperror.NewFieldValidation("customer_profile_id", "customer profile not found")
		}
	case !security.IsStaffContext(ctx):
		c, err = s.Customers.ForUser(ctx, o.UserID)
	}
	if err != nil || c == nil {
		return err
	}

	o.CustomerProfileID = &c.ID
	o.CustomerName = c.DisplayName
	if c.CompanyName != "" {
		name := c.CompanyName
		o.CompanyName = &name
	}
	o.CustomerPhone = c.Mobile
	if c.Email != "" {
		o.CustomerEmail = c.Email
	}
	if o.CustomerGSTIN == nil && c.GSTIN != nil {
		o.CustomerGSTIN = c.GSTIN
	}
	if o.DeliveryStateCode == "" {
		o.DeliveryStateCode = c.StateCode()
	}
	return nil
}

func (o *Order) applyTax(b tax.Breakdown) {
	o.GSTType = b.GSTType
	o.HSNCode = b.HSNCode
	o.CGSTRate, o.CGSTAmount = b.CGSTRate, b.CGSTAmount
	o.SGSTRate, o.SGSTAmount = b.SGSTRate, b.SGSTAmount
	o.IGSTRate, o.IGSTAmount = b.IGSTRate, b.IGSTAmount
	o.TotalGST = b.TotalGST
	o.BaseAmount = b.TaxableAmount
	o.TotalPrice = b.TotalAmount
}

// Get returns an order. Portal users only see their own orders.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	o, err := s.Repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func authorizeView(ctx context.Context, o *Order) error {
	user := appctx.GetUser(ctx)
	if user == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	if security.IsStaffContext(ctx) || o.OwnedBy(user.UserID) {
		return nil
	}
	return apperror.NewForbidden("Not your order")
}

// Mine lists the caller's own orders.
func (s *Service) Mine(ctx context.Context, f domain.ListFilter) (domain.ListResult[Order], error) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return domain.ListResult[Order]{}, apperror.NewUnauthorized("authentication required")
	}
	f = f.Where("user_id", userID)
	if f.OrderBy == "" {
		f.OrderBy = "-created_at"
	}
	return s.Repo.List(ctx, f)
}

// List is the staff view of all orders.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Order], error) {
	if err := security.Require(ctx, security.ModuleOrders); err != nil {
		return domain.ListResult[Order]{}, err
	}
	return s.Repo.List(ctx, f)
}

// mutate loads the order under lock, applies fn and saves it in one unit of work.
func (s *Service) mutate(ctx context.Context, orderID id.ID, fn func(ctx context.Context, o *Order, out *events.Staged) error) (*Order, error) {
	var result *Order
	err := s.Bus.UnitOfWork(ctx, s.TxManager, func(ctx context.Context, out *events.Staged) error {
		o, err := s.Repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		before := *o
		if err := fn(ctx, o, out); err != nil {
			return err
		}
		o.TouchBy(appctx.GetUserID(ctx))
		if err := s.Repo.Update(ctx, o); err != nil {
			return err
		}
		if before.Status != o.Status {
			out.Add(o.statusEvent(before.Status))
		}
		result = o
		return nil
	})
	return result, err
}

func (o *Order) statusEvent(from Status) events.OrderStatusChanged {
	return events.OrderStatusChanged{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: o.CustomerEmail,
		From:          string(from),
		To:            string(o.Status),
	}
}

func (o *Order) paymentEvent(stage, method string, amount types.Paise, ref string, at time.Time) events.OrderPaymentReceived {
	var party id.ID
	if o.CustomerProfileID != nil {
		party = *o.CustomerProfileID
	}
	return events.OrderPaymentReceived{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		PartyID:       party,
		PartyName:     o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CustomerEmail: o.CustomerEmail,
		Stage:         stage,
		Method:        method,
		Amount:        amount,
		Reference:     ref,
		ReceivedAt:    at,
	}
}

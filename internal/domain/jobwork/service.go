package jobwork

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
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/notification"
	"glasserp/internal/domain/settings"
	"glasserp/pkg/logger"
	"glasserp/pkg/phone"
)

// Repository persists job-work orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Order], error)
}

// Pricing provides the labour rates.
type Pricing interface {
	JobWorkPricing(ctx context.Context) (settings.JobWorkPricing, error)
}

// Notifier tells the customer about a status move and reports whether any
// channel delivered it.
type Notifier interface {
	JobWorkStatus(ctx context.Context, ev events.JobWorkStatusChanged) notification.Result
}

// Service runs job-work orders.
type Service struct {
	repo      Repository
	txm       tx.Manager
	bus       *events.Bus
	numerator numerator.Generator
	pricing   Pricing
	notifier  Notifier
	now       func() time.Time
}

// NewService creates the job-work service.
func NewService(repo Repository, txm tx.Manager, bus *events.Bus, gen numerator.Generator, pricing Pricing, notifier Notifier) *Service {
	return &Service{
		repo:      repo,
		txm:       txm,
		bus:       bus,
		numerator: gen,
		pricing:   pricing,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Quote prices items without storing anything.
func (s *Service) Quote(ctx context.Context, items []Item) (Quote, error) {
	cfg, err := s.pricing.JobWorkPricing(ctx)
	if err != nil {
		return Quote{}, err
	}
	return Calculate(cfg, items)
}

// LabourRates returns the current pricing.
func (s *Service) LabourRates(ctx context.Context) (settings.JobWorkPricing, error) {
	return s.pricing.JobWorkPricing(ctx)
}

// CreateInput is a new job-work order.
type CreateInput struct {
	CustomerName       string
	Phone              string
	Items              []Item
	DisclaimerAccepted bool
	Notes              string
	// InitialPayment is optional money collected at the counter.
	InitialPayment types.Paise
	PaymentMethod  string
}

// Create prices and stores a job-work order. The disclaimer must be accepted.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if !in.DisclaimerAccepted {
		return nil, apperror.NewFieldValidation("disclaimer_accepted", "The breakage disclaimer must be accepted")
	}
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		return nil, apperror.NewFieldValidation("customer_name", "customer_name is required")
	}
	mobile, err := phone.Normalize(in.Phone)
	if err != nil {
		return nil, apperror.NewFieldValidation("phone", "invalid phone number")
	}
	q, err := s.Quote(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	if in.InitialPayment.IsNegative() || in.InitialPayment > q.Summary.GrandTotal {
		return nil, apperror.NewFieldValidation("advance_paid", "initial payment must be between 0 and the grand total")
	}

	userID := appctx.GetUserID(ctx)
	now := s.now()
	o := &Order{
		Document:           entity.NewDocument(userID),
		CustomerName:       name,
		Phone:              mobile,
		Items:              q.Items,
		Summary:            q.Summary,
		AdvancePercent:     q.AdvancePercent,
		AdvanceRequired:    q.AdvanceRequired,
		Status:             StatusPending,
		StatusHistory:      []HistoryEntry{{To: StatusPending, At: now, By: userID}},
		DisclaimerAccepted: true,
		Notes:              in.Notes,
	}
	err = s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		number, err := s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassJobWork, At: now})
		if err != nil {
			return fmt.Errorf("allocate job-work number: %w", err)
		}
		o.JobWorkNumber = number
		if in.InitialPayment > 0 {
			o.addPayment(in.InitialPayment, methodOrCash(in.PaymentMethod), now, userID, out)
		}
		o.refreshPaymentStatus()
		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}
		out.Audit("create", "job_work", o.ID.String(), nil, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "job work created", "job_work_number", o.JobWorkNumber, "grand_total", o.Summary.GrandTotal.String())
	return o, nil
}

func methodOrCash(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "" {
		return "cash"
	}
	return m
}

func (o *Order) addPayment(amount types.Paise, method string, at time.Time, by string, out *events.Staged) {
	seq := len(o.Payments) + 1
	o.Payments = append(o.Payments, Payment{Sequence: seq, Amount: amount, Method: method, ReceivedAt: at, RecordedBy: by})
	o.AmountPaid += amount
	o.AdvancePaid = types.Min(o.AmountPaid, o.AdvanceRequired)
	out.Add(events.JobWorkPaymentRecorded{
		JobWorkID:     o.ID,
		JobWorkNumber: o.JobWorkNumber,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.Phone,
		Sequence:      seq,
		Amount:        amount,
		Method:        method,
		ReceivedAt:    at,
	})
}

// RecordPayment records money received for a job-work order.
func (s *Service) RecordPayment(ctx context.Context, orderID id.ID, amount types.Paise, method string) (*Order, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be positive")
	}
	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if o.Status == StatusCancelled {
			return apperror.NewConflict("Job work is cancelled")
		}
		due := o.Outstanding()
		if due <= 0 {
			return apperror.NewConflict("Job work is already paid")
		}
		if amount > due {
			return apperror.NewFieldValidation("amount", "Amount exceeds the outstanding ₹"+due.String())
		}
		o.addPayment(amount, methodOrCash(method), s.now(), appctx.GetUserID(ctx), out)
		o.refreshPaymentStatus()
		out.Audit("payment", "job_work", o.ID.String(), nil, map[string]any{
			"amount": amount, "method": methodOrCash(method), "amount_paid": o.AmountPaid,
		})
		return nil
	})
}

// StatusResult is the outcome of a status move.
type StatusResult struct {
	Order            *Order `json:"order"`
	NotificationSent bool   `json:"notification_sent"`
}

// UpdateStatus moves the order one step and notifies the customer by WhatsApp
// or SMS. Delivery requires full payment.
func (s *Service) UpdateStatus(ctx context.Context, orderID id.ID, to Status, note string) (*StatusResult, error) {
	var ev events.JobWorkStatusChanged
	o, err := s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if err := Flow.Check("job work", o.Status, to); err != nil {
			return err
		}
		if to == StatusDelivered && !o.Settled() {
			return apperror.NewPaymentNotSettled(o.JobWorkNumber)
		}
		now := s.now()
		from := o.Status
		o.Status = to
		o.StatusHistory = append(o.StatusHistory, HistoryEntry{
			From: from, To: to, At: now, By: appctx.GetUserID(ctx), Note: strings.TrimSpace(note),
		})
		if to == StatusDelivered {
			o.DeliveredAt = &now
		}
		ev = events.JobWorkStatusChanged{
			JobWorkID:     o.ID,
			JobWorkNumber: o.JobWorkNumber,
			CustomerName:  o.CustomerName,
			CustomerPhone: o.Phone,
			From:          string(from),
			To:            string(to),
			Labour:        o.Summary.LabourCharges,
			GST:           o.Summary.GSTAmount,
			GrandTotal:    o.Summary.GrandTotal,
			At:            now,
		}
		out.Add(ev)
		out.Audit("status_change", "job_work", o.ID.String(),
			map[string]any{"status": from}, map[string]any{"status": to})
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &StatusResult{Order: o}
	if s.notifier != nil {
		r := s.notifier.JobWorkStatus(ctx, ev)
		res.NotificationSent = r.AnySuccess
		if !r.AnySuccess {
			logger.Warn(ctx, "job work notification not delivered", "job_work_number", o.JobWorkNumber, "error", r.Err())
		}
	}
	return res, nil
}

// DeliverySlip allocates the delivery slip of a fully paid order.
func (s *Service) DeliverySlip(ctx context.Context, orderID id.ID) (*Order, error) {
	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.DeliverySlipNumber != nil {
		return current, nil
	}
	switch current.Status {
	case StatusCompleted, StatusReadyForDelivery, StatusDelivered:
	default:
		return nil, apperror.NewConflict("Job work is " + string(current.Status) + "; the work must be completed first")
	}
	if !current.Settled() {
		return nil, apperror.NewPaymentNotSettled(current.JobWorkNumber)
	}
	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if o.DeliverySlipNumber != nil {
			return nil
		}
		if !o.Settled() {
			return apperror.NewPaymentNotSettled(o.JobWorkNumber)
		}
		slip, err := s.numerator.Next(ctx, numerator.Request{Class: numerator.ClassDispatchSlip, At: s.now()})
		if err != nil {
			return fmt.Errorf("allocate delivery slip number: %w", err)
		}
		o.DeliverySlipNumber = &slip
		out.Audit("create", "delivery_slips", o.ID.String(), nil, map[string]any{"slip_number": slip})
		return nil
	})
}

// RecordBreakage counts panes broken while processing.
func (s *Service) RecordBreakage(ctx context.Context, orderID id.ID, pieces int) error {
	if pieces <= 0 {
		return apperror.NewFieldValidation("quantity", "quantity must be positive")
	}
	_, err := s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		o.BreakageCount += pieces
		out.Audit("update", "job_work", o.ID.String(), nil, map[string]any{"breakage_count": o.BreakageCount})
		return nil
	})
	return err
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List returns orders page by page.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Order], error) {
	return s.repo.List(ctx, f)
}

func (s *Service) mutate(ctx context.Context, orderID id.ID, fn func(ctx context.Context, o *Order, out *events.Staged) error) (*Order, error) {
	var result *Order
	err := s.bus.UnitOfWork(ctx, s.txm, func(ctx context.Context, out *events.Staged) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(ctx, o, out); err != nil {
			return err
		}
		o.TouchBy(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	return result, err
}

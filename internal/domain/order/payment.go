package order

import (
	"context"
	"errors"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/security"
	"glasserp/internal/core/types"
	"glasserp/pkg/logger"
)

// GatewayPayment is a signed payment confirmation from the gateway.
type GatewayPayment struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

var errSignature = apperror.NewValidation("Invalid payment signature")

// VerifyPayment confirms the advance or remaining payment of orderID after the
// client-side checkout. Confirming the same payment twice is a no-op.
func (s *Service) VerifyPayment(ctx context.Context, orderID id.ID, p GatewayPayment) (*Order, error) {
	if !s.Gateway.VerifySignature(p.GatewayOrderID, p.PaymentID, p.Signature) {
		return nil, errSignature
	}
	current, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.settledBy(p) {
		return current, nil
	}
	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		return s.confirm(ctx, o, p, out)
	})
}

// HandleWebhook applies a captured-payment notification. Each (event, order)
// pair is processed at most once.
func (s *Service) HandleWebhook(ctx context.Context, eventID string, p GatewayPayment) error {
	if !s.Gateway.VerifySignature(p.GatewayOrderID, p.PaymentID, p.Signature) {
		return errSignature
	}
	o, err := s.Repo.GetByGatewayOrderID(ctx, p.GatewayOrderID)
	if err != nil {
		return err
	}

	_, err = s.mutate(ctx, o.ID, func(ctx context.Context, o *Order, out *events.Staged) error {
		fresh, err := s.Webhooks.Record(ctx, eventID, o.ID.String())
		if err != nil {
			return err
		}
		if !fresh || o.settledBy(p) {
			return errDuplicate
		}
		return s.confirm(ctx, o, p, out)
	})
	if errors.Is(err, errDuplicate) {
		logger.Info(ctx, "duplicate payment webhook ignored", "event_id", eventID, "order_number", o.OrderNumber)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info(ctx, "payment webhook applied", "event_id", eventID, "order_number", o.OrderNumber)
	return nil
}

var errDuplicate = errors.New("duplicate delivery")

// settledBy reports whether p was already applied to o.
func (o *Order) settledBy(p GatewayPayment) bool {
	switch p.GatewayOrderID {
	case deref(o.GatewayOrderID):
		return o.AdvancePaymentStatus == AdvancePaid
	case deref(o.RemainingGatewayOrderID):
		return o.RemainingPaymentStatus == RemainingPaid
	}
	return false
}

func (s *Service) confirm(ctx context.Context, o *Order, p GatewayPayment, out *events.Staged) error {
	now := s.now()
	switch p.GatewayOrderID {
	case deref(o.GatewayOrderID):
		if o.Status == StatusCancelled {
			return apperror.NewConflict("Order is cancelled")
		}
		o.AdvancePaymentStatus = AdvancePaid
		o.GatewayPaymentID = &p.PaymentID
		o.AdvancePaidAt = &now
		if o.Status == StatusPending {
			o.Status = StatusConfirmed
		}
		o.refreshPaymentStatus()
		stage := events.StageAdvance
		if o.AdvancePercent == 100 {
			stage = events.StageFull
		}
		out.Add(o.paymentEvent(stage, string(MethodOnline), o.AdvanceAmount, p.PaymentID, now))
		out.Audit("order_confirm", "orders", o.ID.String(), nil, map[string]any{
			"stage": stage, "payment_id": p.PaymentID, "amount": o.AdvanceAmount,
		})

	case deref(o.RemainingGatewayOrderID):
		if o.RemainingPaymentStatus != RemainingPending {
			return apperror.NewConflict("Remaining payment is not pending")
		}
		o.RemainingPaymentStatus = RemainingPaid
		o.RemainingGatewayPaymentID = &p.PaymentID
		o.RemainingPaidAt = &now
		o.refreshPaymentStatus()
		out.Add(o.paymentEvent(events.StageRemaining, string(MethodOnline), o.RemainingAmount, p.PaymentID, now))
		out.Audit("payment", "orders", o.ID.String(), nil, map[string]any{
			"stage": events.StageRemaining, "payment_id": p.PaymentID, "amount": o.RemainingAmount,
		})

	default:
		return apperror.NewFieldValidation("gateway_order_id", "gateway order does not belong to this order")
	}
	return nil
}

// RemainingPayment is the result of PayRemaining.
type RemainingPayment struct {
	Order          *Order      `json:"order"`
	Method         Method      `json:"method"`
	GatewayOrderID *string     `json:"gateway_order_id,omitempty"`
	Amount         types.Paise `json:"amount"`
}

// PayRemaining starts collection of the balance. Online creates a second
// gateway order sized to the remaining amount; cash records the preference
// and waits for a cashier.
func (s *Service) PayRemaining(ctx context.Context, orderID id.ID, method Method) (*RemainingPayment, error) {
	current, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := current.canCollectRemaining(); err != nil {
		return nil, err
	}

	var gatewayID *string
	if method == MethodOnline {
		gid, err := s.Gateway.CreateOrder(ctx, current.RemainingAmount, current.OrderNumber+"-R")
		if err != nil {
			return nil, apperror.NewExternal("payment gateway", err)
		}
		gatewayID = &gid
	}

	o, err := s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if err := o.canCollectRemaining(); err != nil {
			return err
		}
		o.RemainingPaymentMethod = &method
		if gatewayID != nil {
			o.RemainingGatewayOrderID = gatewayID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RemainingPayment{Order: o, Method: method, GatewayOrderID: gatewayID, Amount: o.RemainingAmount}, nil
}

// SetRemainingPreference records how the customer intends to pay the balance.
func (s *Service) SetRemainingPreference(ctx context.Context, orderID id.ID, method Method) (*Order, error) {
	if _, err := s.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if err := o.canCollectRemaining(); err != nil {
			return err
		}
		o.RemainingPaymentMethod = &method
		return nil
	})
}

func (o *Order) canCollectRemaining() error {
	if o.Status == StatusCancelled || o.Status == StatusReturned {
		return apperror.NewConflict("Order is " + string(o.Status))
	}
	if o.RemainingPaymentStatus != RemainingPending {
		return apperror.NewConflict("No remaining payment is due")
	}
	if o.AdvancePaymentStatus != AdvancePaid {
		return apperror.NewConflict("Advance payment must be completed first")
	}
	return nil
}

// RecordCash records cash handed to a cashier. It settles the remaining
// balance; for an order whose advance is still open (or a credit order) the
// cash must cover everything outstanding.
func (s *Service) RecordCash(ctx context.Context, orderID id.ID, amount types.Paise) (*Order, error) {
	if err := security.Require(ctx, security.ModuleCashReceipt); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperror.NewFieldValidation("amount", "amount must be positive")
	}
	cashier := appctx.GetUserID(ctx)

	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if o.Status == StatusCancelled || o.Status == StatusReturned {
			return apperror.NewConflict("Order is " + string(o.Status))
		}
		due := o.Outstanding()
		if due == 0 {
			return apperror.NewConflict("Order is already paid")
		}
		if amount != due {
			return apperror.NewFieldValidation("amount", "Cash amount must equal the outstanding ₹"+due.String()).
				WithDetail("outstanding", due)
		}

		now := s.now()
		stage := events.StageRemaining
		if o.AdvancePaymentStatus != AdvancePaid && o.AdvanceAmount.IsPositive() {
			o.AdvancePaymentStatus = AdvancePaid
			o.AdvancePaidAt = &now
			stage = events.StageFull
			if o.Status == StatusPending {
				o.Status = StatusConfirmed
			}
		}
		if o.RemainingAmount.IsPositive() {
			o.RemainingPaymentStatus = RemainingCashReceived
			cash := MethodCash
			o.RemainingPaymentMethod = &cash
			o.RemainingPaidAt = &now
		}
		o.CashReceivedBy = &cashier
		o.CashReceivedAt = &now
		o.refreshPaymentStatus()

		out.Add(o.paymentEvent(stage, string(MethodCash), amount, "CASH-"+o.OrderNumber, now))
		out.Audit("payment", "orders", o.ID.String(), nil, map[string]any{
			"stage": stage, "method": MethodCash, "amount": amount, "received_by": cashier,
		})
		return nil
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

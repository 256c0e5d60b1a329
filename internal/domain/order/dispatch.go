package order

import (
	"context"
	"fmt"
	"strings"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/numerator"
	"glasserp/internal/core/security"
	"glasserp/internal/core/types"
	"glasserp/pkg/logger"
)

// ensureSettled is the dispatch gate shared by every dispatch path.
func (s *Service) ensureSettled(ctx context.Context, o *Order) error {
	settled, err := s.Settlement.Settled(o)
	if err != nil {
		return err
	}
	if !settled {
		return apperror.NewPaymentNotSettled(o.OrderNumber)
	}
	if s.Gate != nil {
		return s.Gate.CheckDispatch(ctx, o.ID)
	}
	return nil
}

func dispatchable(o *Order) error {
	switch o.Status {
	case StatusConfirmed, StatusProcessing, StatusReadyForDispatch:
		return nil
	case StatusPending:
		return apperror.NewConflict("Order is not confirmed yet")
	}
	return apperror.NewConflict("Order is already " + string(o.Status))
}

// CreateDispatchSlip allocates a DS- number for a settled order. Calling it
// again returns the existing slip.
func (s *Service) CreateDispatchSlip(ctx context.Context, orderID id.ID) (*Order, error) {
	if err := security.Require(ctx, security.ModuleOperations); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.DispatchSlipNumber != nil {
		return current, nil
	}
	if err := dispatchable(current); err != nil {
		return nil, err
	}
	if err := s.ensureSettled(ctx, current); err != nil {
		return nil, err
	}

	now := s.now()
	o, err := s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if o.DispatchSlipNumber != nil {
			return nil
		}
		// Re-check against the locked row.
		if err := s.ensureSettled(ctx, o); err != nil {
			return err
		}
		slip, err := s.Numerator.Next(ctx, numerator.Request{Class: numerator.ClassDispatchSlip, At: now})
		if err != nil {
			return fmt.Errorf("allocate dispatch slip number: %w", err)
		}
		o.DispatchSlipNumber = &slip
		o.DispatchSlipAt = &now
		out.Add(events.DispatchSlipCreated{
			OrderID:       o.ID,
			OrderNumber:   o.OrderNumber,
			SlipNumber:    slip,
			CustomerName:  o.CustomerName,
			CustomerPhone: o.CustomerPhone,
		})
		out.Audit("create", "dispatch_slips", o.ID.String(), nil, map[string]any{"slip_number": slip})
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "dispatch slip created", "order_number", o.OrderNumber, "slip", *o.DispatchSlipNumber)
	return o, nil
}

// MarkDispatched moves a settled order to dispatched and issues its invoice.
func (s *Service) MarkDispatched(ctx context.Context, orderID id.ID) (*Order, error) {
	if err := security.Require(ctx, security.ModuleOperations); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := dispatchable(current); err != nil {
		return nil, err
	}
	if err := s.ensureSettled(ctx, current); err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if err := s.ensureSettled(ctx, o); err != nil {
			return err
		}
		if err := Flow.Check("order", o.Status, StatusDispatched); err != nil {
			return err
		}
		from := o.Status
		now := s.now()
		o.Status = StatusDispatched
		o.DispatchedAt = &now
		if s.Invoicer != nil {
			if err := s.Invoicer.IssueForOrder(ctx, o, out); err != nil {
				return err
			}
		}
		out.Audit("status_change", "orders", o.ID.String(),
			map[string]any{"status": from}, map[string]any{"status": o.Status})
		return nil
	})
}

// TransportInput records the vehicle carrying an order.
type TransportInput struct {
	Charge        types.Paise
	VehicleNumber string
	DriverName    string
}

// TransportDispatch records the transport leg of a settled order.
func (s *Service) TransportDispatch(ctx context.Context, orderID id.ID, in TransportInput) (*Order, error) {
	if err := security.Require(ctx, security.ModuleOperations); err != nil {
		return nil, err
	}
	if in.Charge.IsNegative() {
		return nil, apperror.NewFieldValidation("transport_charge", "transport_charge must not be negative")
	}
	if strings.TrimSpace(in.VehicleNumber) == "" {
		return nil, apperror.NewFieldValidation("vehicle_number", "vehicle_number is required")
	}
	current, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSettled(ctx, current); err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if o.Status == StatusCancelled || o.Status == StatusReturned {
			return apperror.NewConflict("Order is " + string(o.Status))
		}
		if err := s.ensureSettled(ctx, o); err != nil {
			return err
		}
		now := s.now()
		vehicle := strings.ToUpper(strings.TrimSpace(in.VehicleNumber))
		o.TransportCharge = in.Charge
		o.VehicleNumber = &vehicle
		if d := strings.TrimSpace(in.DriverName); d != "" {
			o.DriverName = &d
		}
		o.TransportAt = &now
		out.Audit("update", "orders", o.ID.String(), nil, map[string]any{
			"transport_charge": in.Charge, "vehicle_number": vehicle,
		})
		return nil
	})
}

// UpdateStatus moves an order forward. Confirmation only happens through
// payment; dispatch and cancellation take their gated paths.
func (s *Service) UpdateStatus(ctx context.Context, orderID id.ID, to Status) (*Order, error) {
	if err := security.Require(ctx, security.ModuleOperations); err != nil {
		return nil, err
	}
	switch to {
	case StatusDispatched:
		return s.MarkDispatched(ctx, orderID)
	case StatusCancelled:
		return s.Cancel(ctx, orderID, "")
	case StatusConfirmed:
		return nil, apperror.NewConflict("Orders are confirmed by payment or credit approval")
	}
	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if err := Flow.Check("order", o.Status, to); err != nil {
			return err
		}
		from := o.Status
		o.Status = to
		if to == StatusDelivered {
			now := s.now()
			o.DeliveredAt = &now
		}
		out.Audit("status_change", "orders", o.ID.String(),
			map[string]any{"status": from}, map[string]any{"status": to})
		return nil
	})
}

// Advance moves the order to at least the given production status. It is
// called by production tracking and never moves backwards or past dispatch.
func (s *Service) Advance(ctx context.Context, orderID id.ID, to Status) error {
	_, err := s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if !Flow.Allows(o.Status, to) || to == StatusDispatched || to == StatusCancelled {
			return nil
		}
		from := o.Status
		o.Status = to
		out.Audit("status_change", "orders", o.ID.String(),
			map[string]any{"status": from}, map[string]any{"status": to})
		return nil
	})
	return err
}

// Cancel cancels an order before dispatch. Everything posted against it is
// reversed; collected money is recorded as a refund due, settled out of band.
func (s *Service) Cancel(ctx context.Context, orderID id.ID, reason string) (*Order, error) {
	if err := security.Require(ctx, security.ModuleOrderCancel); err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, func(ctx context.Context, o *Order, out *events.Staged) error {
		if err := Flow.Check("order", o.Status, StatusCancelled); err != nil {
			return err
		}
		from := o.Status
		now := s.now()
		o.Status = StatusCancelled
		o.CancelledAt = &now
		if r := strings.TrimSpace(reason); r != "" {
			o.CancelReason = &r
		}
		o.RefundDue = o.Collected()
		out.Add(events.OrderCancelled{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Reason:      reason,
			CancelledAt: now,
		})
		out.Audit("status_change", "orders", o.ID.String(),
			map[string]any{"status": from},
			map[string]any{"status": o.Status, "reason": reason, "refund_due": o.RefundDue})
		return nil
	})
}

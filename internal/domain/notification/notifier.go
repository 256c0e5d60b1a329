package notification

import (
	"context"

	"glasserp/internal/core/events"
)

// Notifier turns committed business events into messages.
type Notifier struct {
	dispatcher *Dispatcher
	admin      Recipient
}

// NewNotifier creates a notifier. admin receives operational messages by email.
func NewNotifier(dispatcher *Dispatcher, adminEmail string) *Notifier {
	return &Notifier{
		dispatcher: dispatcher,
		admin:      Recipient{Name: "Admin", Email: adminEmail},
	}
}

// Subscribe registers after-commit delivery. A failed delivery is parked by
// the bus and retried by the worker.
func (n *Notifier) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.AfterCommit, "notify", n.Handle,
		events.NameOrderCreated,
		events.NameOrderPaymentReceived,
		events.NameOrderStatusChanged,
		events.NameDispatchSlipCreated,
		events.NameVendorPaymentCompleted,
		events.NameStockMoved,
	)
}

// Handle sends the messages for one event.
func (n *Notifier) Handle(ctx context.Context, e events.Event) error {
	switch ev := e.(type) {
	case events.OrderCreated:
		admin := n.Admin(ctx, NewOrderAdmin(ev))
		customer := n.dispatcher.Send(ctx, Recipient{Name: ev.CustomerName, Phone: ev.CustomerPhone, Email: ev.CustomerEmail}, OrderPlaced(ev))
		if admin.AnySuccess || customer.AnySuccess {
			return nil
		}
		return customer.Err()
	case events.OrderPaymentReceived:
		return n.dispatcher.Send(ctx, Recipient{Name: ev.PartyName, Phone: ev.CustomerPhone, Email: ev.CustomerEmail}, PaymentReceived(ev)).Err()
	case events.OrderStatusChanged:
		return n.dispatcher.Send(ctx, Recipient{Name: ev.CustomerName, Phone: ev.CustomerPhone, Email: ev.CustomerEmail}, OrderStatus(ev)).Err()
	case events.DispatchSlipCreated:
		return n.dispatcher.Send(ctx, Recipient{Name: ev.CustomerName, Phone: ev.CustomerPhone}, DispatchSlip(ev)).Err()
	case events.VendorPaymentCompleted:
		return n.Admin(ctx, VendorPaid(ev)).Err()
	case events.StockMoved:
		if ev.NewStock > ev.MinimumStock {
			return nil
		}
		return n.Admin(ctx, LowStock(ev)).Err()
	}
	return nil
}

// JobWorkStatus notifies a job-work customer over WhatsApp or SMS and reports
// the outcome to the caller.
func (n *Notifier) JobWorkStatus(ctx context.Context, ev events.JobWorkStatusChanged) Result {
	return n.dispatcher.SendVia(ctx, Recipient{Name: ev.CustomerName, Phone: ev.CustomerPhone}, JobWorkStatus(ev), ChannelWhatsApp, ChannelSMS)
}

// Customer sends an arbitrary message with full fallback.
func (n *Notifier) Customer(ctx context.Context, to Recipient, msg Message) Result {
	return n.dispatcher.Send(ctx, to, msg)
}

// Admin emails the configured admin address.
func (n *Notifier) Admin(ctx context.Context, msg Message) Result {
	return n.dispatcher.SendVia(ctx, n.admin, msg, ChannelEmail)
}

// Email sends one email to an explicit address list, reporting any success.
func (n *Notifier) Email(ctx context.Context, to []string, msg Message) Result {
	res := Result{Channels: map[Channel]Attempt{}}
	for _, addr := range to {
		r := n.dispatcher.SendVia(ctx, Recipient{Email: addr}, msg, ChannelEmail)
		if a, ok := r.Channels[ChannelEmail]; ok && a.Attempted {
			prev := res.Channels[ChannelEmail]
			res.Channels[ChannelEmail] = Attempt{Attempted: true, Success: prev.Success || a.Success, Error: a.Error}
		}
		res.AnySuccess = res.AnySuccess || r.AnySuccess
	}
	return res
}

package notification

import (
	"fmt"
	"strings"

	"glasserp/internal/core/events"
	"glasserp/internal/core/types"
)

func rupees(p types.Paise) string {
	return "₹" + p.String()
}

func statusLabel(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// NewOrderAdmin tells the admin about a new order.
func NewOrderAdmin(ev events.OrderCreated) Message {
	kind := "advance " + rupees(ev.AdvanceAmount)
	if ev.IsCredit {
		kind = "credit order"
	}
	return Message{
		Subject: "New order #" + ev.OrderNumber,
		Body: fmt.Sprintf("New order #%s from %s for %s (%s).",
			ev.OrderNumber, ev.CustomerName, rupees(ev.Total), kind),
	}
}

// OrderPlaced confirms an order to the customer.
func OrderPlaced(ev events.OrderCreated) Message {
	body := fmt.Sprintf("Dear %s, your order #%s for %s has been placed.", ev.CustomerName, ev.OrderNumber, rupees(ev.Total))
	if ev.AdvanceAmount > 0 && !ev.IsCredit {
		body += fmt.Sprintf(" Please pay the advance of %s to confirm it.", rupees(ev.AdvanceAmount))
	}
	return Message{Subject: "Order #" + ev.OrderNumber + " placed", Body: body}
}

// PaymentReceived acknowledges a customer payment.
func PaymentReceived(ev events.OrderPaymentReceived) Message {
	return Message{
		Subject: "Payment received for order #" + ev.OrderNumber,
		Body: fmt.Sprintf("Dear %s, we received %s (%s, %s) for order #%s. Thank you.",
			ev.PartyName, rupees(ev.Amount), ev.Stage, ev.Method, ev.OrderNumber),
	}
}

// OrderStatus tells the customer the order moved.
func OrderStatus(ev events.OrderStatusChanged) Message {
	return Message{
		Subject: "Order #" + ev.OrderNumber + " update",
		Body: fmt.Sprintf("Dear %s, your order #%s is now %s.",
			ev.CustomerName, ev.OrderNumber, statusLabel(ev.To)),
	}
}

// DispatchSlip announces the dispatch slip.
func DispatchSlip(ev events.DispatchSlipCreated) Message {
	return Message{
		Subject: "Order #" + ev.OrderNumber + " ready for dispatch",
		Body: fmt.Sprintf("Dear %s, dispatch slip %s has been issued for order #%s.",
			ev.CustomerName, ev.SlipNumber, ev.OrderNumber),
	}
}

// JobWorkStatus tells a job-work customer about a status move.
func JobWorkStatus(ev events.JobWorkStatusChanged) Message {
	body := fmt.Sprintf("Dear %s, your job work %s is now %s.", ev.CustomerName, ev.JobWorkNumber, statusLabel(ev.To))
	if ev.To == "ready_for_delivery" {
		body += " Please collect it from the factory."
	}
	return Message{Subject: "Job work " + ev.JobWorkNumber + " update", Body: body}
}

// VendorPaid tells the admin a payout completed.
func VendorPaid(ev events.VendorPaymentCompleted) Message {
	return Message{
		Subject: "Vendor payment " + ev.ReceiptNumber + " completed",
		Body: fmt.Sprintf("Paid %s to %s against %s. UTR %s, receipt %s.",
			rupees(ev.Amount), ev.VendorName, ev.PONumber, ev.UTR, ev.ReceiptNumber),
	}
}

// LowStock warns the admin that a material fell to its minimum.
func LowStock(ev events.StockMoved) Message {
	return Message{
		Subject: "Low stock: " + ev.MaterialName,
		Body: fmt.Sprintf("%s stock is %s (minimum %s) after %s %s.",
			ev.MaterialName, ev.NewStock, ev.MinimumStock, ev.Type, ev.Reference),
	}
}

// Due describes a payment reminder.
type Due struct {
	Number string
	Party  string
	Amount types.Paise
	DueIn  int
}

func dueWhen(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("was due %d day(s) ago", -days)
	case days == 0:
		return "is due today"
	case days == 1:
		return "is due tomorrow"
	default:
		return fmt.Sprintf("is due in %d days", days)
	}
}

// CustomerDue reminds a customer of an open balance.
func CustomerDue(d Due) Message {
	return Message{
		Subject: "Payment reminder for order #" + d.Number,
		Body: fmt.Sprintf("Dear %s, the balance of %s on order #%s %s.",
			d.Party, rupees(d.Amount), d.Number, dueWhen(d.DueIn)),
	}
}

// VendorDue reminds the admin of a payable.
func VendorDue(d Due) Message {
	return Message{
		Subject: "Vendor payment due: " + d.Number,
		Body: fmt.Sprintf("%s outstanding to %s on %s %s.",
			rupees(d.Amount), d.Party, d.Number, dueWhen(d.DueIn)),
	}
}

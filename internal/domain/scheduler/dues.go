package scheduler

import (
	"context"
	"slices"
	"time"

	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/apperror"
	"glasserp/internal/core/id"
	"glasserp/internal/domain/customer"
	"glasserp/internal/domain/notification"
	"glasserp/internal/domain/order"
	"glasserp/internal/domain/purchase"
	"glasserp/pkg/logger"
)

// Reminder windows in days before the due date; overdue balances are
// reminded every day.
var reminderDays = []int{3, 1, 0}

const (
	cashDueDays   = 7
	creditDueDays = 30
)

// OrderDues lists customer orders with money to collect.
type OrderDues interface {
	Unpaid(ctx context.Context) ([]order.Order, error)
	MarkReminded(ctx context.Context, orderID id.ID, day string) error
}

// PODues lists purchase orders with money owed.
type PODues interface {
	OpenPayables(ctx context.Context) ([]purchase.PurchaseOrder, error)
	MarkReminded(ctx context.Context, poID id.ID, day string) error
}

// CustomerTerms resolves the credit terms of a customer profile.
type CustomerTerms interface {
	Get(ctx context.Context, customerID id.ID) (*customer.Customer, error)
}

// Notifier delivers reminders.
type Notifier interface {
	Customer(ctx context.Context, to notification.Recipient, msg notification.Message) notification.Result
	Admin(ctx context.Context, msg notification.Message) notification.Result
}

// Dues sends payment-due reminders.
type Dues struct {
	orders   OrderDues
	pos      PODues
	terms    CustomerTerms
	notifier Notifier
	calendar *fiscal.Calendar
	now      func() time.Time
}

// NewDues creates the dues scanner.
func NewDues(orders OrderDues, pos PODues, terms CustomerTerms, notifier Notifier, calendar *fiscal.Calendar) *Dues {
	return &Dues{
		orders:   orders,
		pos:      pos,
		terms:    terms,
		notifier: notifier,
		calendar: calendar,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// shouldRemind reports whether a balance due in dueIn days gets a reminder
// today, given the day the last one went out.
func shouldRemind(dueIn int, last *string, today string) bool {
	if last != nil && *last == today {
		return false
	}
	return dueIn < 0 || slices.Contains(reminderDays, dueIn)
}

// OrderDueDate is when the balance of o falls due. The customer profile,
// when known, decides the term; otherwise the order's credit flag does.
func OrderDueDate(o *order.Order, c *customer.Customer) time.Time {
	days := cashDueDays
	switch {
	case c != nil:
		if c.CreditType == customer.CreditAllowed {
			days = creditDueDays
			if c.CreditDays > 0 {
				days = c.CreditDays
			}
		}
	case o.IsCreditOrder:
		days = creditDueDays
	}
	return o.CreatedAt.AddDate(0, 0, days)
}

// profileOf returns the customer behind o, memoised per run. A missing
// profile falls back to the order's own terms.
func (d *Dues) profileOf(ctx context.Context, o *order.Order, seen map[id.ID]*customer.Customer) (*customer.Customer, error) {
	if d.terms == nil || o.CustomerProfileID == nil {
		return nil, nil
	}
	cid := *o.CustomerProfileID
	if c, ok := seen[cid]; ok {
		return c, nil
	}
	c, err := d.terms.Get(ctx, cid)
	if apperror.IsNotFound(err) {
		c, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	seen[cid] = c
	return c, nil
}

// Customers reminds customers of open balances and returns how many went out.
func (d *Dues) Customers(ctx context.Context) (int, error) {
	orders, err := d.orders.Unpaid(ctx)
	if err != nil {
		return 0, err
	}
	now := d.now()
	today := d.calendar.DateKey(now)
	profiles := make(map[id.ID]*customer.Customer)
	sent := 0
	for i := range orders {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		o := &orders[i]
		if o.Status == order.StatusCancelled || o.Status == order.StatusReturned {
			continue
		}
		balance := o.Outstanding()
		if balance <= 0 {
			continue
		}
		profile, err := d.profileOf(ctx, o, profiles)
		if err != nil {
			return sent, err
		}
		dueIn := d.calendar.DaysBetween(now, OrderDueDate(o, profile))
		if !shouldRemind(dueIn, o.LastPaymentReminder, today) {
			continue
		}
		res := d.notifier.Customer(ctx,
			notification.Recipient{Name: o.CustomerName, Phone: o.CustomerPhone, Email: o.CustomerEmail},
			notification.CustomerDue(notification.Due{Number: o.OrderNumber, Party: o.CustomerName, Amount: balance, DueIn: dueIn}))
		if !res.AnySuccess {
			logger.Warn(ctx, "customer due reminder not delivered", "order", o.OrderNumber, "error", res.Err())
			continue
		}
		if err := d.orders.MarkReminded(ctx, o.ID, today); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// Vendors reminds the admin of payables and returns how many went out.
func (d *Dues) Vendors(ctx context.Context) (int, error) {
	pos, err := d.pos.OpenPayables(ctx)
	if err != nil {
		return 0, err
	}
	now := d.now()
	today := d.calendar.DateKey(now)
	sent := 0
	for i := range pos {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		po := &pos[i]
		if po.Status != purchase.StatusApproved || po.OutstandingBalance <= 0 || po.DueDate == nil {
			continue
		}
		dueIn := d.calendar.DaysBetween(now, *po.DueDate)
		if !shouldRemind(dueIn, po.LastReminder, today) {
			continue
		}
		res := d.notifier.Admin(ctx, notification.VendorDue(notification.Due{
			Number: po.PONumber, Party: po.VendorName, Amount: po.OutstandingBalance, DueIn: dueIn,
		}))
		if !res.AnySuccess {
			logger.Warn(ctx, "vendor due reminder not delivered", "po", po.PONumber, "error", res.Err())
			continue
		}
		if err := d.pos.MarkReminded(ctx, po.ID, today); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

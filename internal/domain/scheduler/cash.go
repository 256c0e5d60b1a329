package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glasserp/internal/core/fiscal"
	"glasserp/internal/domain/notification"
	"glasserp/internal/domain/reports"
)

// CashReports builds cash books.
type CashReports interface {
	CashFor(ctx context.Context, w reports.Window) (*reports.CashReport, error)
}

// Mailer emails an address list.
type Mailer interface {
	Email(ctx context.Context, to []string, msg notification.Message) notification.Result
}

// CashReporter emails the cash book of the period that just closed.
type CashReporter struct {
	reports    CashReports
	mailer     Mailer
	recipients []string
	calendar   *fiscal.Calendar
	now        func() time.Time
}

// NewCashReporter creates the reporter.
func NewCashReporter(r CashReports, mailer Mailer, recipients []string, calendar *fiscal.Calendar) *CashReporter {
	return &CashReporter{
		reports:    r,
		mailer:     mailer,
		recipients: recipients,
		calendar:   calendar,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Send emails the report for the period before the current one.
func (c *CashReporter) Send(ctx context.Context, p reports.Period) error {
	if len(c.recipients) == 0 {
		return nil
	}
	w := reports.WindowFor(c.calendar, p, c.now()).Previous(c.calendar)
	r, err := c.reports.CashFor(ctx, w)
	if err != nil {
		return err
	}
	res := c.mailer.Email(ctx, c.recipients, notification.Message{Subject: r.Subject(), Body: r.Text()})
	if !res.AnySuccess {
		err := res.Err()
		if err == nil {
			err = errors.New("no email channel configured")
		}
		return fmt.Errorf("send %s cash report: %w", p, err)
	}
	return nil
}

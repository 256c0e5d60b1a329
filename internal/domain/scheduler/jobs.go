package scheduler

import (
	"context"
	"time"

	"glasserp/internal/domain/reports"
	"glasserp/pkg/logger"
)

// Job names.
const (
	JobCustomerDues  = "customer_dues"
	JobVendorDues    = "vendor_dues"
	JobCashDaily     = "cash_report_daily"
	JobCashWeekly    = "cash_report_weekly"
	JobCashMonthly   = "cash_report_monthly"
	defaultJobWindow = 15 * time.Minute
)

// Local times the jobs fire at.
const (
	reminderSpec    = "0 9 * * *"
	cashDailySpec   = "0 5 * * *"
	cashWeeklySpec  = "0 5 * * 1"
	cashMonthlySpec = "0 5 1 * *"
)

// StandardJobs returns the reminder and cash report jobs in loc.
func StandardJobs(dues *Dues, cash *CashReporter, loc *time.Location) []Job {
	return []Job{
		{
			Name:     JobCustomerDues,
			Schedule: MustCron(reminderSpec, loc),
			Timeout:  defaultJobWindow,
			Run: func(ctx context.Context) error {
				n, err := dues.Customers(ctx)
				logger.Info(ctx, "customer reminders sent", "count", n)
				return err
			},
		},
		{
			Name:     JobVendorDues,
			Schedule: MustCron(reminderSpec, loc),
			Timeout:  defaultJobWindow,
			Run: func(ctx context.Context) error {
				n, err := dues.Vendors(ctx)
				logger.Info(ctx, "vendor reminders sent", "count", n)
				return err
			},
		},
		{
			Name:     JobCashDaily,
			Schedule: MustCron(cashDailySpec, loc),
			Timeout:  defaultJobWindow,
			Run:      func(ctx context.Context) error { return cash.Send(ctx, reports.PeriodDaily) },
		},
		{
			Name:     JobCashWeekly,
			Schedule: MustCron(cashWeeklySpec, loc),
			Timeout:  defaultJobWindow,
			Run:      func(ctx context.Context) error { return cash.Send(ctx, reports.PeriodWeekly) },
		},
		{
			Name:     JobCashMonthly,
			Schedule: MustCron(cashMonthlySpec, loc),
			Timeout:  defaultJobWindow,
			Run:      func(ctx context.Context) error { return cash.Send(ctx, reports.PeriodMonthly) },
		},
	}
}

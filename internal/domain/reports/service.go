package reports

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/security"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/ledger"
)

// maxMovements caps the lines carried in a report; totals cover everything.
const maxMovements = 500

var moneyAccounts = []string{ledger.AccountCash, ledger.AccountBank}

// Service provides report generation operations.
type Service struct {
	repo     Repository
	calendar *fiscal.Calendar
	now      func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository, calendar *fiscal.Calendar) *Service {
	return &Service{repo: repo, calendar: calendar, now: func() time.Time { return time.Now().UTC() }}
}

// Cash returns the cash book for the period containing date (YYYY-MM-DD,
// empty means today).
func (s *Service) Cash(ctx context.Context, period, date string) (*CashReport, error) {
	if err := security.Require(ctx, security.ModuleReports); err != nil {
		return nil, err
	}
	p, ok := ParsePeriod(period)
	if !ok {
		return nil, apperror.NewFieldValidation("period", "period must be daily, weekly or monthly")
	}
	day := s.now()
	if strings.TrimSpace(date) != "" {
		from, _, err := s.calendar.DayRange(date)
		if err != nil {
			return nil, apperror.NewFieldValidation("date", err.Error())
		}
		day = from
	}
	return s.CashFor(ctx, WindowFor(s.calendar, p, day))
}

// CashFor builds the cash book over w. The scheduler calls it directly.
func (s *Service) CashFor(ctx context.Context, w Window) (*CashReport, error) {
	entries, err := s.repo.MoneyEntries(ctx, moneyAccounts, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("load cash entries: %w", err)
	}
	r := BuildCashReport(s.calendar, w, entries)
	r.GeneratedAt = s.now()
	return r, nil
}

// BuildCashReport aggregates money entries: a debit to Cash or Bank is money
// in, a credit is money out. Reversed postings arrive as their contra entries
// and net out.
func BuildCashReport(cal *fiscal.Calendar, w Window, entries []ledger.Entry) *CashReport {
	r := &CashReport{Window: w}
	accounts := map[string]*AccountSummary{}
	for _, name := range moneyAccounts {
		accounts[name] = &AccountSummary{Account: name}
	}
	days := map[string]*DaySummary{}
	for _, e := range entries {
		a, ok := accounts[e.Account]
		if !ok {
			continue
		}
		a.In += e.Debit
		a.Out += e.Credit
		a.Count++

		key := cal.DateKey(e.Date)
		d, ok := days[key]
		if !ok {
			d = &DaySummary{Date: key}
			days[key] = d
		}
		d.In += e.Debit
		d.Out += e.Credit

		if len(r.Movements) < maxMovements {
			r.Movements = append(r.Movements, Movement{
				Date:        e.Date,
				Account:     e.Account,
				Type:        string(e.Type),
				Reference:   e.Reference,
				Description: e.Description,
				PartyName:   e.PartyName,
				In:          e.Debit,
				Out:         e.Credit,
			})
		}
	}
	for _, name := range moneyAccounts {
		a := accounts[name]
		a.Net = a.In - a.Out
		r.Accounts = append(r.Accounts, *a)
		r.TotalIn += a.In
		r.TotalOut += a.Out
	}
	r.Net = r.TotalIn - r.TotalOut
	for _, d := range days {
		r.Days = append(r.Days, *d)
	}
	slices.SortFunc(r.Days, func(a, b DaySummary) int { return strings.Compare(a.Date, b.Date) })
	return r
}

// StockTurnover reports opening, movement and closing stock per material for
// the month (YYYY-MM, empty means the current month).
func (s *Service) StockTurnover(ctx context.Context, month string) (*StockTurnover, error) {
	if err := security.Require(ctx, security.ModuleOperations); err != nil {
		return nil, err
	}
	if strings.TrimSpace(month) == "" {
		month = s.calendar.MonthKey(s.now())
	}
	from, to, err := s.calendar.MonthRange(month)
	if err != nil {
		return nil, apperror.NewFieldValidation("month", err.Error())
	}
	rows, err := s.repo.StockTurnover(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get stock turnover report: %w", err)
	}
	report := &StockTurnover{From: from, To: to, Rows: rows}
	for i := range report.Rows {
		row := &report.Rows[i]
		row.ClosingValue = stockValue(row.Closing, row.UnitPrice)
		report.ClosingValue += row.ClosingValue
	}
	return report, nil
}

func stockValue(q types.Quantity, price types.Paise) types.Paise {
	v := decimal.New(int64(q), -4).Mul(decimal.NewFromInt(int64(price))).Round(0)
	return types.Paise(v.IntPart())
}

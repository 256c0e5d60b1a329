// Package reports builds the cash book and stock turnover reports.
package reports

import (
	"fmt"
	"strings"
	"time"

	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// Period of a cash report.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod validates s; empty means daily.
func ParsePeriod(s string) (Period, bool) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodDaily, true
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, true
	}
	return "", false
}

// Window is the half-open range [From, To) a report covers.
type Window struct {
	Period Period    `json:"period"`
	Label  string    `json:"label"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// WindowFor returns the local day, Monday-based week or month containing day.
func WindowFor(cal *fiscal.Calendar, p Period, day time.Time) Window {
	start := cal.StartOfDay(day).In(cal.Location())
	w := Window{Period: p}
	switch p {
	case PeriodWeekly:
		offset := (int(start.Weekday()) + 6) % 7
		start = start.AddDate(0, 0, -offset)
		w.From, w.To = start.UTC(), start.AddDate(0, 0, 7).UTC()
		w.Label = fmt.Sprintf("%s to %s", start.Format("2006-01-02"), start.AddDate(0, 0, 6).Format("2006-01-02"))
	case PeriodMonthly:
		start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, cal.Location())
		w.From, w.To = start.UTC(), start.AddDate(0, 1, 0).UTC()
		w.Label = start.Format("2006-01")
	default:
		w.Period = PeriodDaily
		w.From, w.To = start.UTC(), start.AddDate(0, 0, 1).UTC()
		w.Label = start.Format("2006-01-02")
	}
	return w
}

// Previous returns the window just before w, the one a scheduled run reports on.
func (w Window) Previous(cal *fiscal.Calendar) Window {
	return WindowFor(cal, w.Period, w.From.Add(-time.Minute))
}

// Movement is one cash or bank line of the cash book.
type Movement struct {
	Date        time.Time   `json:"date"`
	Account     string      `json:"account"`
	Type        string      `json:"type"`
	Reference   string      `json:"reference"`
	Description string      `json:"description"`
	PartyName   string      `json:"party_name,omitempty"`
	In          types.Paise `json:"in"`
	Out         types.Paise `json:"out"`
}

// AccountSummary totals one money account over the window.
type AccountSummary struct {
	Account string      `json:"account"`
	In      types.Paise `json:"in"`
	Out     types.Paise `json:"out"`
	Net     types.Paise `json:"net"`
	Count   int         `json:"count"`
}

// DaySummary totals all money accounts for one local day.
type DaySummary struct {
	Date string      `json:"date"`
	In   types.Paise `json:"in"`
	Out  types.Paise `json:"out"`
}

// CashReport is the cash book aggregate emailed by the scheduler.
type CashReport struct {
	Window      Window           `json:"window"`
	Accounts    []AccountSummary `json:"accounts"`
	Days        []DaySummary     `json:"days"`
	TotalIn     types.Paise      `json:"total_in"`
	TotalOut    types.Paise      `json:"total_out"`
	Net         types.Paise      `json:"net"`
	Movements   []Movement       `json:"movements"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Subject is the email subject line of the report.
func (r *CashReport) Subject() string {
	return fmt.Sprintf("Cash report (%s) %s", r.Window.Period, r.Window.Label)
}

// Text renders the report as a plain-text email body.
func (r *CashReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", r.Subject())
	for _, a := range r.Accounts {
		fmt.Fprintf(&b, "%-6s in ₹%s  out ₹%s  net ₹%s  (%d entries)\n", a.Account, a.In, a.Out, a.Net, a.Count)
	}
	fmt.Fprintf(&b, "\nTotal in ₹%s, total out ₹%s, net ₹%s\n", r.TotalIn, r.TotalOut, r.Net)
	if len(r.Days) > 1 {
		b.WriteString("\nBy day:\n")
		for _, d := range r.Days {
			fmt.Fprintf(&b, "  %s  in ₹%s  out ₹%s\n", d.Date, d.In, d.Out)
		}
	}
	return b.String()
}

// StockTurnoverRow is the opening, movement and closing quantity of one material.
type StockTurnoverRow struct {
	MaterialID   id.ID          `db:"material_id" json:"material_id"`
	MaterialName string         `db:"material_name" json:"material_name"`
	Unit         string         `db:"unit" json:"unit"`
	Opening      types.Quantity `db:"opening" json:"opening"`
	Receipts     types.Quantity `db:"receipts" json:"receipts"`
	Issues       types.Quantity `db:"issues" json:"issues"`
	Adjustments  types.Quantity `db:"adjustments" json:"adjustments"`
	Closing      types.Quantity `db:"closing" json:"closing"`
	UnitPrice    types.Paise    `db:"unit_price" json:"unit_price"`
	ClosingValue types.Paise    `db:"-" json:"closing_value"`
}

// StockTurnover is the stock movement report over a window.
type StockTurnover struct {
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	Rows         []StockTurnoverRow `json:"rows"`
	ClosingValue types.Paise        `json:"closing_value"`
}

// Package export renders reports as .xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"glasserp/internal/domain/audit"
	"glasserp/internal/domain/ledger"
	"glasserp/internal/domain/vendor"
)

// ContentType is the MIME type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "02-01-2006"

// sheet appends rows to one worksheet.
type sheet struct {
	f    *excelize.File
	name string
	row  int
	bold int
}

func newWorkbook(first string) (*excelize.File, *sheet, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("create style: %w", err)
	}
	return f, &sheet{f: f, name: first, bold: bold}, nil
}

func (s *sheet) add(values ...any) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.f.SetSheetRow(s.name, cell, &values)
}

func (s *sheet) header(values ...any) error {
	if err := s.add(values...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), s.row)
	if err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, s.row)
	return s.f.SetCellStyle(s.name, first, last, s.bold)
}

func (s *sheet) blank() { s.row++ }

func (s *sheet) next(name string) (*sheet, error) {
	if _, err := s.f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", name, err)
	}
	return &sheet{f: s.f, name: name, bold: s.bold}, nil
}

// VendorBalanceSheet writes the summary, monthly breakdown and top purchases.
func VendorBalanceSheet(w io.Writer, bs *vendor.BalanceSheet) error {
	f, s, err := newWorkbook("Summary")
	if err != nil {
		return err
	}
	defer f.Close()

	rows := [][]any{
		{"Vendor", bs.VendorName},
		{"Vendor Code", bs.VendorCode},
		{"Financial Year", bs.FinancialYear},
		{"Opening Balance", bs.OpeningBalance.Float64()},
		{"Total Purchases", bs.TotalPurchases.Float64()},
		{"Total Payments", bs.TotalPayments.Float64()},
		{"Closing Balance", bs.ClosingBalance.Float64()},
	}
	for _, r := range rows {
		if err := s.add(r...); err != nil {
			return err
		}
	}

	monthly, err := s.next("Monthly")
	if err != nil {
		return err
	}
	if err := monthly.header("Month", "Opening", "Purchases", "Payments", "Closing"); err != nil {
		return err
	}
	for _, m := range bs.Months {
		if err := monthly.add(m.Month, m.Opening.Float64(), m.Purchases.Float64(), m.Payments.Float64(), m.Closing.Float64()); err != nil {
			return err
		}
	}

	top, err := s.next("Top Purchases")
	if err != nil {
		return err
	}
	if err := top.header("PO Number", "Date", "Amount"); err != nil {
		return err
	}
	for _, p := range bs.TopPurchases {
		if err := top.add(p.PONumber, p.Date.Format(dateLayout), p.Amount.Float64()); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// PartyLedger writes a party statement with running balance.
func PartyLedger(w io.Writer, partyName string, st *ledger.PartyStatement) error {
	f, s, err := newWorkbook("Ledger")
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.add("Party", partyName); err != nil {
		return err
	}
	if err := s.add("Opening Balance", st.OpeningBalance.Float64()); err != nil {
		return err
	}
	s.blank()
	if err := s.header("Date", "Type", "Reference", "Description", "Debit", "Credit", "Balance"); err != nil {
		return err
	}
	for _, l := range st.Lines {
		if err := s.add(l.Date.Format(dateLayout), string(l.Type), l.Reference, l.Description,
			l.Debit.Float64(), l.Credit.Float64(), l.Balance.Float64()); err != nil {
			return err
		}
	}
	s.blank()
	if err := s.header("Totals", "", "", "", st.TotalDebit.Float64(), st.TotalCredit.Float64(), st.ClosingBalance.Float64()); err != nil {
		return err
	}
	return f.Write(w)
}

// GeneralLedger writes raw entries, one row each.
func GeneralLedger(w io.Writer, entries []ledger.Entry) error {
	f, s, err := newWorkbook("General Ledger")
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.header("Date", "Type", "Reference", "Account", "Party", "Description", "Debit", "Credit"); err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.add(e.Date.Format(dateLayout), string(e.Type), e.Reference, e.Account, e.PartyName,
			e.Description, e.Debit.Float64(), e.Credit.Float64()); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// MonthlyMIS writes the activity summary of one month.
func MonthlyMIS(w io.Writer, mis *audit.MonthlyMIS) error {
	f, s, err := newWorkbook("Summary")
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.add("Month", mis.Month); err != nil {
		return err
	}
	if err := s.add("Total Actions", mis.TotalActions); err != nil {
		return err
	}
	if err := s.add("Active Users", mis.ActiveUsers); err != nil {
		return err
	}
	s.blank()
	if err := s.header("Module", "Actions"); err != nil {
		return err
	}
	for _, k := range sortedKeys(mis.ByModule) {
		if err := s.add(k, mis.ByModule[k]); err != nil {
			return err
		}
	}
	s.blank()
	if err := s.header("Action", "Count"); err != nil {
		return err
	}
	byAction := make(map[string]int, len(mis.ByAction))
	for a, n := range mis.ByAction {
		byAction[string(a)] = n
	}
	for _, k := range sortedKeys(byAction) {
		if err := s.add(k, byAction[k]); err != nil {
			return err
		}
	}

	days, err := s.next("Daily")
	if err != nil {
		return err
	}
	if err := days.header("Date", "Actions"); err != nil {
		return err
	}
	for _, k := range sortedKeys(mis.ByDay) {
		if err := days.add(k, mis.ByDay[k]); err != nil {
			return err
		}
	}

	users, err := s.next("Top Users")
	if err != nil {
		return err
	}
	if err := users.header("User", "Role", "Actions"); err != nil {
		return err
	}
	for _, u := range mis.TopUsers {
		if err := users.add(u.UserName, u.UserRole, u.Total); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// AuditLog writes audit entries, one row each, timestamps in loc.
func AuditLog(w io.Writer, entries []audit.Entry, loc *time.Location) error {
	f, s, err := newWorkbook("Audit Log")
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.header("Timestamp", "User", "Role", "Action", "Module", "Record", "IP"); err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.add(e.Timestamp.In(loc).Format("02-01-2006 15:04:05"), e.UserName, e.UserRole,
			string(e.Action), e.Module, e.RecordID, e.IP); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

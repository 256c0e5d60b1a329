package ledger

import (
	"sort"
	"time"

	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// Bucket labels.
const (
	Bucket0To30  = "0-30"
	Bucket31To60 = "31-60"
	Bucket61To90 = "61-90"
	BucketOver90 = ">90"
)

// AgeingRow is the open balance of one party split by days past due.
// Items not yet due count in the first bucket. Unapplied payments
// (advances) are reported separately and reduce Total.
type AgeingRow struct {
	PartyID    *id.ID      `json:"party_id,omitempty"`
	PartyName  string      `json:"party_name"`
	PartyType  PartyType   `json:"party_type"`
	Days0To30  types.Paise `json:"0-30"`
	Days31To60 types.Paise `json:"31-60"`
	Days61To90 types.Paise `json:"61-90"`
	Over90     types.Paise `json:"over_90"`
	Advance    types.Paise `json:"advance"`
	Total      types.Paise `json:"total"`
}

// AgeingReport is the ageing of all parties of one type.
type AgeingReport struct {
	AsOf      time.Time   `json:"as_of"`
	PartyType PartyType   `json:"party_type"`
	Rows      []AgeingRow `json:"parties"`
	Totals    AgeingRow   `json:"totals"`
}

type openItem struct {
	due    time.Time
	amount types.Paise
}

// Age computes ageing buckets from party entries. Entries without a due date
// fall due defaultCreditDays after posting. Payments settle the oldest open
// items first.
func Age(cal *fiscal.Calendar, partyType PartyType, entries []Entry, asOf time.Time, defaultCreditDays int) AgeingReport {
	byParty := make(map[string][]Entry)
	var order []string
	for _, e := range entries {
		if e.PartyType != partyType {
			continue
		}
		k := partyKey(e)
		if _, ok := byParty[k]; !ok {
			order = append(order, k)
		}
		byParty[k] = append(byParty[k], e)
	}

	report := AgeingReport{AsOf: asOf, PartyType: partyType, Totals: AgeingRow{PartyName: "Total", PartyType: partyType}}
	for _, k := range order {
		row := ageParty(cal, partyType, byParty[k], asOf, defaultCreditDays)
		if row.Total == 0 && row.Advance == 0 {
			continue
		}
		report.Rows = append(report.Rows, row)
		report.Totals.Days0To30 += row.Days0To30
		report.Totals.Days31To60 += row.Days31To60
		report.Totals.Days61To90 += row.Days61To90
		report.Totals.Over90 += row.Over90
		report.Totals.Advance += row.Advance
		report.Totals.Total += row.Total
	}
	sort.SliceStable(report.Rows, func(i, j int) bool { return report.Rows[i].Total > report.Rows[j].Total })
	return report
}

func partyKey(e Entry) string {
	if e.PartyID != nil {
		return e.PartyID.String()
	}
	return "name:" + e.PartyName
}

func ageParty(cal *fiscal.Calendar, partyType PartyType, entries []Entry, asOf time.Time, defaultCreditDays int) AgeingRow {
	SortEntries(entries)
	row := AgeingRow{PartyID: entries[0].PartyID, PartyName: entries[0].PartyName, PartyType: partyType}

	var items []openItem
	var settled types.Paise
	for _, e := range entries {
		// Receivables grow with debits, payables with credits.
		charge, payment := e.Debit, e.Credit
		if partyType == PartyVendor {
			charge, payment = e.Credit, e.Debit
		}
		if charge > 0 {
			due := e.Date.AddDate(0, 0, defaultCreditDays)
			if e.DueDate != nil {
				due = *e.DueDate
			}
			items = append(items, openItem{due: due, amount: charge})
		}
		settled += payment
	}

	for i := range items {
		if settled == 0 {
			break
		}
		applied := types.Min(items[i].amount, settled)
		items[i].amount -= applied
		settled -= applied
	}
	row.Advance = settled

	for _, it := range items {
		if it.amount == 0 {
			continue
		}
		days := cal.DaysBetween(it.due, asOf)
		switch {
		case days <= 30:
			row.Days0To30 += it.amount
		case days <= 60:
			row.Days31To60 += it.amount
		case days <= 90:
			row.Days61To90 += it.amount
		default:
			row.Over90 += it.amount
		}
	}
	row.Total = row.Days0To30 + row.Days31To60 + row.Days61To90 + row.Over90 - row.Advance
	return row
}

// SortEntries orders entries by (date, created_at, id), the order running
// balances are derived in.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// RunningBalance attaches the cumulative debit-minus-credit balance to each entry,
// starting from opening.
func RunningBalance(opening types.Paise, entries []Entry) []Line {
	SortEntries(entries)
	lines := make([]Line, 0, len(entries))
	balance := opening
	for _, e := range entries {
		balance += e.Net()
		lines = append(lines, Line{Entry: e, Balance: balance})
	}
	return lines
}

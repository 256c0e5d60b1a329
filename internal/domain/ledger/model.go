// Package ledger is the append-only double-entry book. Business events are
// mapped to postings; each posting is a balanced set of entries and is
// stored at most once per (event type, document, variant).
package ledger

import (
	"time"

	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// EntryType classifies the business origin of an entry.
type EntryType string

const (
	TypeSale     EntryType = "sale"
	TypePurchase EntryType = "purchase"
	TypeReceipt  EntryType = "receipt"
	TypePayment  EntryType = "payment"
	TypeAdjust   EntryType = "adjust"
	TypeOpening  EntryType = "opening"
)

// PartyType says whose account an entry touches.
type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartyVendor   PartyType = "vendor"
	PartyGL       PartyType = "gl"
)

// ParsePartyType validates a party type name.
func ParsePartyType(s string) (PartyType, bool) {
	switch PartyType(s) {
	case PartyCustomer, PartyVendor, PartyGL:
		return PartyType(s), true
	}
	return "", false
}

// Accounts.
const (
	AccountCustomer      = "Customer"
	AccountVendor        = "Vendor"
	AccountSales         = "Sales"
	AccountJobWorkIncome = "Job Work Income"
	AccountCGSTOutput    = "CGST Output"
	AccountSGSTOutput    = "SGST Output"
	AccountIGSTOutput    = "IGST Output"
	AccountGSTOutput     = "GST Output"
	AccountGSTInput      = "GST Input"
	AccountPurchase      = "Purchase"
	AccountBank          = "Bank"
	AccountCash          = "Cash"
	AccountEquity        = "Equity"
)

// Entry is one ledger line.
type Entry struct {
	ID          id.ID       `db:"id" json:"id"`
	PostingID   id.ID       `db:"posting_id" json:"posting_id"`
	Date        time.Time   `db:"date" json:"date"`
	Type        EntryType   `db:"type" json:"type"`
	Reference   string      `db:"reference" json:"reference"`
	Description string      `db:"description" json:"description"`
	PartyID     *id.ID      `db:"party_id" json:"party_id,omitempty"`
	PartyType   PartyType   `db:"party_type" json:"party_type"`
	PartyName   string      `db:"party_name" json:"party_name,omitempty"`
	Account     string      `db:"account" json:"account"`
	Debit       types.Paise `db:"debit" json:"debit"`
	Credit      types.Paise `db:"credit" json:"credit"`
	FiscalYear  string      `db:"fiscal_year" json:"fiscal_year"`
	// DueDate is the effective due date used for ageing (receivables and payables).
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Net returns debit minus credit.
func (e Entry) Net() types.Paise {
	return e.Debit - e.Credit
}

// Posting is the balanced set of entries produced by one business event.
type Posting struct {
	ID        id.ID  `db:"id" json:"id"`
	EventType string `db:"event_type" json:"event_type"`
	// DocumentID is the document that raised the event.
	DocumentID id.ID `db:"document_id" json:"document_id"`
	// Variant distinguishes several postings of one event on one document
	// (advance vs remaining payment, opening balance revisions).
	Variant string `db:"variant" json:"variant"`
	// GroupID ties postings that a cancellation reverses together (an order,
	// its payments and its invoice share the order id).
	GroupID   id.ID     `db:"group_id" json:"group_id"`
	Reference string    `db:"reference" json:"reference"`
	Date      time.Time `db:"date" json:"date"`
	Reversed  bool      `db:"reversed" json:"reversed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Entries []Entry `db:"-" json:"entries"`
}

// Totals returns the sums of debits and credits.
func (p *Posting) Totals() (debit, credit types.Paise) {
	for _, e := range p.Entries {
		debit += e.Debit
		credit += e.Credit
	}
	return debit, credit
}

// Balanced reports whether debits equal credits.
func (p *Posting) Balanced() bool {
	d, c := p.Totals()
	return d == c
}

// Line is a running-balance view of an entry in a party ledger.
type Line struct {
	Entry
	Balance types.Paise `json:"balance"`
}

// PartyStatement is a party ledger over a date range.
type PartyStatement struct {
	PartyID        id.ID       `json:"party_id"`
	OpeningBalance types.Paise `json:"opening_balance"`
	TotalDebit     types.Paise `json:"total_debit"`
	TotalCredit    types.Paise `json:"total_credit"`
	ClosingBalance types.Paise `json:"closing_balance"`
	Lines          []Line      `json:"entries"`
}

// PartyBalance is the outstanding of one party (debit minus credit).
// Walk-in job-work customers have no profile and are keyed by name only.
type PartyBalance struct {
	PartyID   *id.ID      `db:"party_id" json:"party_id,omitempty"`
	PartyName string      `db:"party_name" json:"party_name"`
	PartyType PartyType   `db:"party_type" json:"party_type"`
	Debit     types.Paise `db:"debit" json:"total_debit"`
	Credit    types.Paise `db:"credit" json:"total_credit"`
	Balance   types.Paise `db:"balance" json:"balance"`
}

// AccountTotal is one trial balance row.
type AccountTotal struct {
	Account string      `db:"account" json:"account"`
	Debit   types.Paise `db:"debit" json:"debit"`
	Credit  types.Paise `db:"credit" json:"credit"`
}

// TrialBalance lists account totals for a period.
type TrialBalance struct {
	FiscalYear  string         `json:"financial_year"`
	Accounts    []AccountTotal `json:"accounts"`
	TotalDebit  types.Paise    `json:"total_debit"`
	TotalCredit types.Paise    `json:"total_credit"`
	Balanced    bool           `json:"balanced"`
}

// GSTReport aggregates output and input tax over one month.
type GSTReport struct {
	Month      string      `json:"month"`
	OutputCGST types.Paise `json:"output_cgst"`
	OutputSGST types.Paise `json:"output_sgst"`
	OutputIGST types.Paise `json:"output_igst"`
	OutputGST  types.Paise `json:"output_gst"`
	TotalOut   types.Paise `json:"total_output"`
	InputGST   types.Paise `json:"input_gst"`
	NetPayable types.Paise `json:"net_payable"`
	Sales      types.Paise `json:"taxable_sales"`
	Purchases  types.Paise `json:"taxable_purchases"`
}

// EntryFilter selects entries.
type EntryFilter struct {
	PartyID   *id.ID
	PartyType PartyType
	Account   string
	Type      EntryType
	From      *time.Time
	To        *time.Time
	Limit     int
	Skip      int
}

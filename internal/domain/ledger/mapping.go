package ledger

import (
	"fmt"
	"time"

	"glasserp/internal/core/events"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// Mapper turns business events into balanced postings.
type Mapper struct {
	calendar *fiscal.Calendar
}

// NewMapper creates a mapper stamping fiscal years in the calendar's timezone.
func NewMapper(calendar *fiscal.Calendar) *Mapper {
	return &Mapper{calendar: calendar}
}

// Map returns the posting for e, or nil when e does not touch the books.
func (m *Mapper) Map(e events.Event) (*Posting, error) {
	var p *Posting
	switch ev := e.(type) {
	case events.InvoiceIssued:
		p = m.invoiceIssued(ev)
	case events.OrderPaymentReceived:
		p = m.orderPayment(ev)
	case events.InvoicePaymentRecorded:
		p = m.invoicePayment(ev)
	case events.PurchaseOrderReceived:
		p = m.purchaseReceived(ev)
	case events.VendorPaymentCompleted:
		p = m.vendorPayment(ev)
	case events.OpeningBalanceSet:
		p = m.openingBalance(ev)
	case events.JobWorkPaymentRecorded:
		p = m.jobWorkPayment(ev)
	case events.JobWorkStatusChanged:
		p = m.jobWorkDelivered(ev)
	default:
		return nil, nil
	}
	if p == nil {
		return nil, nil
	}
	if !p.Balanced() {
		d, c := p.Totals()
		return nil, fmt.Errorf("%s %s: debits %s != credits %s", p.EventType, p.Reference, d, c)
	}
	return p, nil
}

type leg struct {
	account   string
	partyType PartyType
	partyID   *id.ID
	partyName string
	debit     types.Paise
	credit    types.Paise
	due       *time.Time
}

func (m *Mapper) posting(event string, doc, group id.ID, variant, ref, desc string, typ EntryType, at time.Time, legs ...leg) *Posting {
	at = at.UTC()
	p := &Posting{
		ID:         id.New(),
		EventType:  event,
		DocumentID: doc,
		GroupID:    group,
		Variant:    variant,
		Reference:  ref,
		Date:       at,
	}
	fy := m.calendar.YearOf(at).String()
	for _, l := range legs {
		if l.debit == 0 && l.credit == 0 {
			continue
		}
		p.Entries = append(p.Entries, Entry{
			ID:          id.New(),
			PostingID:   p.ID,
			Date:        at,
			Type:        typ,
			Reference:   ref,
			Description: desc,
			PartyID:     l.partyID,
			PartyType:   l.partyType,
			PartyName:   l.partyName,
			Account:     l.account,
			Debit:       l.debit,
			Credit:      l.credit,
			FiscalYear:  fy,
			DueDate:     l.due,
		})
	}
	return p
}

func gl(account string, debit, credit types.Paise) leg {
	return leg{account: account, partyType: PartyGL, debit: debit, credit: credit}
}

// customer books against a profile; a nil id posts by name only.
func customer(partyID id.ID, name string, debit, credit types.Paise) leg {
	return leg{account: AccountCustomer, partyType: PartyCustomer, partyID: id.Ptr(partyID), partyName: name, debit: debit, credit: credit}
}

func vendor(partyID id.ID, name string, debit, credit types.Paise) leg {
	return leg{account: AccountVendor, partyType: PartyVendor, partyID: id.Ptr(partyID), partyName: name, debit: debit, credit: credit}
}

// cashAccount picks the receiving account for a payment method.
func cashAccount(method string) string {
	if method == "cash" {
		return AccountCash
	}
	return AccountBank
}

func (m *Mapper) invoiceIssued(ev events.InvoiceIssued) *Posting {
	group := ev.InvoiceID
	if ev.OrderID != nil {
		group = *ev.OrderID
	}
	party := customer(ev.PartyID, ev.PartyName, ev.Total, 0)
	if !ev.DueDate.IsZero() {
		due := ev.DueDate.UTC()
		party.due = &due
	}
	return m.posting(events.NameInvoiceIssued, ev.InvoiceID, group, "", ev.InvoiceNumber,
		"Sales invoice "+ev.InvoiceNumber, TypeSale, ev.IssuedAt,
		party,
		gl(AccountSales, 0, ev.Taxable),
		gl(AccountCGSTOutput, 0, ev.CGST),
		gl(AccountSGSTOutput, 0, ev.SGST),
		gl(AccountIGSTOutput, 0, ev.IGST),
	)
}

func (m *Mapper) orderPayment(ev events.OrderPaymentReceived) *Posting {
	desc := fmt.Sprintf("%s payment for order %s", ev.Stage, ev.OrderNumber)
	return m.posting(events.NameOrderPaymentReceived, ev.OrderID, ev.OrderID, ev.Stage, ev.OrderNumber,
		desc, TypeReceipt, ev.ReceivedAt,
		gl(cashAccount(ev.Method), ev.Amount, 0),
		customer(ev.PartyID, ev.PartyName, 0, ev.Amount),
	)
}

func (m *Mapper) invoicePayment(ev events.InvoicePaymentRecorded) *Posting {
	return m.posting(events.NameInvoicePaymentRecorded, ev.InvoiceID, ev.InvoiceID, fmt.Sprintf("%d", ev.Sequence), ev.InvoiceNumber,
		"Receipt against invoice "+ev.InvoiceNumber, TypeReceipt, ev.ReceivedAt,
		gl(cashAccount(ev.Method), ev.Amount, 0),
		customer(ev.PartyID, ev.PartyName, 0, ev.Amount),
	)
}

func (m *Mapper) purchaseReceived(ev events.PurchaseOrderReceived) *Posting {
	party := vendor(ev.VendorID, ev.VendorName, 0, ev.Total)
	if !ev.DueDate.IsZero() {
		due := ev.DueDate.UTC()
		party.due = &due
	}
	return m.posting(events.NamePurchaseOrderReceived, ev.POID, ev.POID, "", ev.PONumber,
		"Purchase "+ev.PONumber+" from "+ev.VendorName, TypePurchase, ev.ReceivedAt,
		gl(AccountPurchase, ev.Taxable, 0),
		gl(AccountGSTInput, ev.GST, 0),
		party,
	)
}

func (m *Mapper) vendorPayment(ev events.VendorPaymentCompleted) *Posting {
	desc := fmt.Sprintf("Payment %s for %s (UTR %s)", ev.ReceiptNumber, ev.PONumber, ev.UTR)
	account := AccountBank
	if ev.Mode == "cash" {
		account = AccountCash
	}
	return m.posting(events.NameVendorPaymentCompleted, ev.PaymentID, ev.POID, "", ev.ReceiptNumber,
		desc, TypePayment, ev.CompletedAt,
		vendor(ev.VendorID, ev.VendorName, ev.Amount, 0),
		gl(account, 0, ev.Amount),
	)
}

func (m *Mapper) openingBalance(ev events.OpeningBalanceSet) *Posting {
	if ev.Delta == 0 {
		return nil
	}
	var party, equity leg
	amount := ev.Delta.Abs()
	switch PartyType(ev.PartyType) {
	case PartyVendor:
		if ev.Delta > 0 {
			party, equity = vendor(ev.PartyID, ev.PartyName, 0, amount), gl(AccountEquity, amount, 0)
		} else {
			party, equity = vendor(ev.PartyID, ev.PartyName, amount, 0), gl(AccountEquity, 0, amount)
		}
	default:
		if ev.Delta > 0 {
			party, equity = customer(ev.PartyID, ev.PartyName, amount, 0), gl(AccountEquity, 0, amount)
		} else {
			party, equity = customer(ev.PartyID, ev.PartyName, 0, amount), gl(AccountEquity, amount, 0)
		}
	}
	return m.posting(events.NameOpeningBalanceSet, ev.PartyID, ev.PartyID, fmt.Sprintf("rev-%d", ev.Revision), "OPENING",
		"Opening balance of "+ev.PartyName, TypeOpening, ev.At,
		party, equity,
	)
}

func walkIn(name string, debit, credit types.Paise) leg {
	return leg{account: AccountCustomer, partyType: PartyCustomer, partyName: name, debit: debit, credit: credit}
}

func (m *Mapper) jobWorkPayment(ev events.JobWorkPaymentRecorded) *Posting {
	return m.posting(events.NameJobWorkPaymentRecorded, ev.JobWorkID, ev.JobWorkID, fmt.Sprintf("%d", ev.Sequence), ev.JobWorkNumber,
		"Job-work payment "+ev.JobWorkNumber, TypeReceipt, ev.ReceivedAt,
		gl(cashAccount(ev.Method), ev.Amount, 0),
		walkIn(ev.CustomerName, 0, ev.Amount),
	)
}

// jobWorkDelivered books the labour sale once the work is handed over.
func (m *Mapper) jobWorkDelivered(ev events.JobWorkStatusChanged) *Posting {
	if ev.To != "delivered" {
		return nil
	}
	return m.posting(events.NameJobWorkStatusChanged, ev.JobWorkID, ev.JobWorkID, "delivered", ev.JobWorkNumber,
		"Job-work "+ev.JobWorkNumber, TypeSale, ev.At,
		walkIn(ev.CustomerName, ev.GrandTotal, 0),
		gl(AccountJobWorkIncome, 0, ev.Labour),
		gl(AccountGSTOutput, 0, ev.GST),
	)
}

// Reversal builds the entries cancelling every posting of a group that was not
// reversed yet. Each original leg is mirrored (debit and credit swapped).
func (m *Mapper) Reversal(ev events.OrderCancelled, originals []Posting) *Posting {
	at := ev.CancelledAt.UTC()
	p := &Posting{
		ID:         id.New(),
		EventType:  events.NameOrderCancelled,
		DocumentID: ev.OrderID,
		GroupID:    ev.OrderID,
		Variant:    "reversal",
		Reference:  ev.OrderNumber,
		Date:       at,
	}
	fy := m.calendar.YearOf(at).String()
	for _, orig := range originals {
		if orig.Reversed {
			continue
		}
		for _, e := range orig.Entries {
			p.Entries = append(p.Entries, Entry{
				ID:          id.New(),
				PostingID:   p.ID,
				Date:        at,
				Type:        TypeAdjust,
				Reference:   e.Reference,
				Description: "Reversal: " + e.Description,
				PartyID:     e.PartyID,
				PartyType:   e.PartyType,
				PartyName:   e.PartyName,
				Account:     e.Account,
				Debit:       e.Credit,
				Credit:      e.Debit,
				FiscalYear:  fy,
			})
		}
	}
	if len(p.Entries) == 0 {
		return nil
	}
	return p
}

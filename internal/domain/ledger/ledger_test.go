package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/events"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

type memoryRepo struct {
	mu       sync.Mutex
	postings []Posting
}

func (m *memoryRepo) Append(ctx context.Context, p *Posting) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.postings {
		if existing.EventType == p.EventType && existing.DocumentID == p.DocumentID && existing.Variant == p.Variant {
			return false, nil
		}
	}
	m.postings = append(m.postings, *p)
	return true, nil
}

func (m *memoryRepo) PostingsByGroup(ctx context.Context, groupID id.ID) ([]Posting, error) {
	var out []Posting
	for _, p := range m.postings {
		if p.GroupID == groupID && p.Variant != "reversal" {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) MarkReversed(ctx context.Context, ids []id.ID) error {
	for i := range m.postings {
		for _, pid := range ids {
			if m.postings[i].ID == pid {
				m.postings[i].Reversed = true
			}
		}
	}
	return nil
}

func (m *memoryRepo) entries() []Entry {
	var out []Entry
	for _, p := range m.postings {
		out = append(out, p.Entries...)
	}
	return out
}

func (m *memoryRepo) Entries(ctx context.Context, f EntryFilter) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries() {
		if f.PartyID != nil && (e.PartyID == nil || *e.PartyID != *f.PartyID) {
			continue
		}
		if f.PartyType != "" && e.PartyType != f.PartyType {
			continue
		}
		if f.From != nil && e.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && !e.Date.Before(*f.To) {
			continue
		}
		out = append(out, e)
	}
	SortEntries(out)
	return out, nil
}

func (m *memoryRepo) PartyBalanceBefore(ctx context.Context, partyID id.ID, t time.Time) (types.Paise, error) {
	var sum types.Paise
	for _, e := range m.entries() {
		if e.PartyID != nil && *e.PartyID == partyID && e.Date.Before(t) {
			sum += e.Net()
		}
	}
	return sum, nil
}

func (m *memoryRepo) PartyBalances(ctx context.Context, partyType PartyType) ([]PartyBalance, error) {
	sums := map[id.ID]*PartyBalance{}
	var out []PartyBalance
	for _, e := range m.entries() {
		if e.PartyType != partyType || e.PartyID == nil {
			continue
		}
		b, ok := sums[*e.PartyID]
		if !ok {
			b = &PartyBalance{PartyID: e.PartyID, PartyName: e.PartyName, PartyType: partyType}
			sums[*e.PartyID] = b
		}
		b.Debit += e.Debit
		b.Credit += e.Credit
		b.Balance += e.Net()
	}
	for _, b := range sums {
		out = append(out, *b)
	}
	return out, nil
}

func (m *memoryRepo) AccountTotals(ctx context.Context, from, to time.Time) ([]AccountTotal, error) {
	sums := map[string]*AccountTotal{}
	var out []AccountTotal
	for _, e := range m.entries() {
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		a, ok := sums[e.Account]
		if !ok {
			a = &AccountTotal{Account: e.Account}
			sums[e.Account] = a
		}
		a.Debit += e.Debit
		a.Credit += e.Credit
	}
	for _, a := range sums {
		out = append(out, *a)
	}
	return out, nil
}

func legs(p *Posting) map[string][2]types.Paise {
	out := map[string][2]types.Paise{}
	for _, e := range p.Entries {
		v := out[e.Account]
		out[e.Account] = [2]types.Paise{v[0] + e.Debit, v[1] + e.Credit}
	}
	return out
}

var july = time.Date(2024, 7, 15, 6, 30, 0, 0, time.UTC)

func TestMapper_VendorPaymentBalanced(t *testing.T) {
	m := NewMapper(fiscal.IST())
	p, err := m.Map(events.VendorPaymentCompleted{
		PaymentID:     id.New(),
		POID:          id.New(),
		PONumber:      "PO-20240715-000001",
		VendorID:      id.New(),
		VendorName:    "Saint Glass",
		Amount:        types.Paise(5_000_000),
		Mode:          "razorpay",
		UTR:           "UTR123",
		ReceiptNumber: "VPR-20240715-000001",
		CompletedAt:   july,
	})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Len(t, p.Entries, 2, "no tax legs on a payout")
	l := legs(p)
	assert.Equal(t, [2]types.Paise{5_000_000, 0}, l[AccountVendor])
	assert.Equal(t, [2]types.Paise{0, 5_000_000}, l[AccountBank])

	var net types.Paise
	for _, e := range p.Entries {
		net += e.Net()
		assert.Equal(t, "2024-25", e.FiscalYear)
		assert.Equal(t, TypePayment, e.Type)
	}
	assert.Zero(t, net)
}

func TestMapper_InvoiceLegs(t *testing.T) {
	m := NewMapper(fiscal.IST())
	orderID := id.New()
	due := july.AddDate(0, 0, 7)

	tests := []struct {
		name string
		ev   events.InvoiceIssued
		want map[string][2]types.Paise
	}{
		{
			name: "intra state",
			ev: events.InvoiceIssued{
				InvoiceID: id.New(), InvoiceNumber: "INV/2024-25/0001", OrderID: &orderID,
				PartyID: id.New(), PartyName: "Asha", Taxable: 1_000_000, CGST: 90_000, SGST: 90_000, Total: 1_180_000,
				IssuedAt: july, DueDate: due,
			},
			want: map[string][2]types.Paise{
				AccountCustomer:   {1_180_000, 0},
				AccountSales:      {0, 1_000_000},
				AccountCGSTOutput: {0, 90_000},
				AccountSGSTOutput: {0, 90_000},
			},
		},
		{
			name: "inter state",
			ev: events.InvoiceIssued{
				InvoiceID: id.New(), InvoiceNumber: "INV/2024-25/0002",
				PartyID: id.New(), PartyName: "Ravi", Taxable: 1_000_000, IGST: 180_000, Total: 1_180_000,
				IssuedAt: july,
			},
			want: map[string][2]types.Paise{
				AccountCustomer:   {1_180_000, 0},
				AccountSales:      {0, 1_000_000},
				AccountIGSTOutput: {0, 180_000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.Map(tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, legs(p))
			assert.True(t, p.Balanced())
		})
	}

	p, _ := m.Map(tests[0].ev)
	assert.Equal(t, orderID, p.GroupID, "order invoices reverse with the order")
	require.NotNil(t, p.Entries[0].DueDate)
	assert.Equal(t, due, *p.Entries[0].DueDate)
}

func TestMapper_UnbalancedRejected(t *testing.T) {
	m := NewMapper(fiscal.IST())
	_, err := m.Map(events.InvoiceIssued{
		InvoiceID: id.New(), InvoiceNumber: "INV/2024-25/0003", PartyID: id.New(),
		Taxable: 1000, CGST: 90, SGST: 90, Total: 1000, IssuedAt: july,
	})
	assert.ErrorContains(t, err, "debits")
}

func TestMapper_OpeningBalance(t *testing.T) {
	m := NewMapper(fiscal.IST())
	partyID := id.New()

	tests := []struct {
		name      string
		partyType string
		delta     types.Paise
		party     [2]types.Paise
		equity    [2]types.Paise
	}{
		{"customer owes", "customer", 10_000, [2]types.Paise{10_000, 0}, [2]types.Paise{0, 10_000}},
		{"customer reduced", "customer", -4_000, [2]types.Paise{0, 4_000}, [2]types.Paise{4_000, 0}},
		{"vendor payable", "vendor", 25_000, [2]types.Paise{0, 25_000}, [2]types.Paise{25_000, 0}},
		{"vendor reduced", "vendor", -5_000, [2]types.Paise{5_000, 0}, [2]types.Paise{0, 5_000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := m.Map(events.OpeningBalanceSet{PartyID: partyID, PartyType: tt.partyType, PartyName: "X", Delta: tt.delta, Revision: 1, At: july})
			require.NoError(t, err)
			l := legs(p)
			account := AccountCustomer
			if tt.partyType == "vendor" {
				account = AccountVendor
			}
			assert.Equal(t, tt.party, l[account])
			assert.Equal(t, tt.equity, l[AccountEquity])
			assert.Equal(t, TypeOpening, p.Entries[0].Type)
		})
	}

	p, err := m.Map(events.OpeningBalanceSet{PartyID: partyID, PartyType: "customer", Delta: 0})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestMapper_JobWorkOnlyDeliveredPosts(t *testing.T) {
	m := NewMapper(fiscal.IST())
	ev := events.JobWorkStatusChanged{
		JobWorkID: id.New(), JobWorkNumber: "JW/2024-25/0001", CustomerName: "Walk-in",
		From: "in_process", To: "completed", Labour: 26_900, GST: 4_842, GrandTotal: 31_742, At: july,
	}
	p, err := m.Map(ev)
	require.NoError(t, err)
	assert.Nil(t, p)

	ev.From, ev.To = "ready_for_delivery", "delivered"
	p, err = m.Map(ev)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, [2]types.Paise{0, 26_900}, legs(p)[AccountJobWorkIncome])
	assert.Nil(t, p.Entries[0].PartyID)
	assert.Equal(t, "Walk-in", p.Entries[0].PartyName)
}

func TestService_IdempotentPosting(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, fiscal.IST())
	ev := events.OrderPaymentReceived{
		OrderID: id.New(), OrderNumber: "000042", PartyID: id.New(), PartyName: "Asha",
		Stage: events.StageAdvance, Method: "online", Amount: 75_000, ReceivedAt: july,
	}

	require.NoError(t, svc.Handle(context.Background(), ev))
	require.NoError(t, svc.Handle(context.Background(), ev), "webhook replay")
	assert.Len(t, repo.postings, 1)

	ev.Stage = events.StageRemaining
	ev.Method = "cash"
	require.NoError(t, svc.Handle(context.Background(), ev))
	require.Len(t, repo.postings, 2)
	assert.Equal(t, [2]types.Paise{75_000, 0}, legs(&repo.postings[1])[AccountCash])
}

func TestService_CancellationReverses(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, fiscal.IST())
	ctx := context.Background()
	orderID, partyID := id.New(), id.New()

	require.NoError(t, svc.Handle(ctx, events.OrderPaymentReceived{
		OrderID: orderID, OrderNumber: "000043", PartyID: partyID, Stage: events.StageAdvance,
		Method: "online", Amount: 50_000, ReceivedAt: july,
	}))
	require.NoError(t, svc.Handle(ctx, events.InvoiceIssued{
		InvoiceID: id.New(), InvoiceNumber: "INV/2024-25/0009", OrderID: &orderID, PartyID: partyID,
		Taxable: 100_000, CGST: 9_000, SGST: 9_000, Total: 118_000, IssuedAt: july,
	}))

	balance, err := svc.PartyBalance(ctx, partyID)
	require.NoError(t, err)
	assert.Equal(t, types.Paise(68_000), balance)

	cancel := events.OrderCancelled{OrderID: orderID, OrderNumber: "000043", CancelledAt: july.Add(time.Hour)}
	require.NoError(t, svc.Handle(ctx, cancel))
	require.NoError(t, svc.Handle(ctx, cancel))

	balance, err = svc.PartyBalance(ctx, partyID)
	require.NoError(t, err)
	assert.Zero(t, balance)
	assert.Len(t, repo.postings, 3)

	tb, err := svc.TrialBalance(ctx, fiscal.Year(2024))
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
	assert.Equal(t, tb.TotalDebit, tb.TotalCredit)
}

func TestService_PartyStatementRunningBalance(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, fiscal.IST())
	ctx := context.Background()
	vendorID := id.New()

	require.NoError(t, svc.Handle(ctx, events.PurchaseOrderReceived{
		POID: id.New(), PONumber: "PO-1", VendorID: vendorID, VendorName: "V",
		Taxable: 100_000, GST: 18_000, Total: 118_000, ReceivedAt: july,
	}))
	require.NoError(t, svc.Handle(ctx, events.VendorPaymentCompleted{
		PaymentID: id.New(), POID: id.New(), PONumber: "PO-1", VendorID: vendorID, VendorName: "V",
		Amount: 18_000, ReceiptNumber: "VPR-1", CompletedAt: july.AddDate(0, 0, 2),
	}))

	st, err := svc.PartyStatement(ctx, vendorID, nil, nil)
	require.NoError(t, err)
	require.Len(t, st.Lines, 2)
	assert.Equal(t, types.Paise(-118_000), st.Lines[0].Balance)
	assert.Equal(t, types.Paise(-100_000), st.Lines[1].Balance)
	assert.Equal(t, types.Paise(-100_000), st.ClosingBalance)

	from := july.AddDate(0, 0, 1)
	st, err = svc.PartyStatement(ctx, vendorID, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Paise(-118_000), st.OpeningBalance)
	assert.Len(t, st.Lines, 1)

	out, err := svc.Outstanding(ctx, PartyVendor)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, types.Paise(-100_000), out[0].Balance)
}

func TestAge_Buckets(t *testing.T) {
	cal := fiscal.IST()
	asOf := time.Date(2024, 10, 1, 6, 0, 0, 0, time.UTC)
	partyID := id.New()
	due := func(daysAgo int) *time.Time {
		d := asOf.AddDate(0, 0, -daysAgo)
		return &d
	}
	entry := func(debit, credit types.Paise, dueDaysAgo int, at time.Time) Entry {
		return Entry{ID: id.New(), PartyID: &partyID, PartyName: "Asha", PartyType: PartyCustomer,
			Account: AccountCustomer, Debit: debit, Credit: credit, Date: at, DueDate: due(dueDaysAgo)}
	}

	entries := []Entry{
		entry(10_000, 0, 100, asOf.AddDate(0, 0, -107)),
		entry(20_000, 0, 70, asOf.AddDate(0, 0, -77)),
		entry(30_000, 0, 40, asOf.AddDate(0, 0, -47)),
		entry(40_000, 0, -3, asOf.AddDate(0, 0, -4)),
		entry(0, 15_000, 0, asOf.AddDate(0, 0, -1)),
	}

	r := Age(cal, PartyCustomer, entries, asOf, 7)
	require.Len(t, r.Rows, 1)
	row := r.Rows[0]
	assert.Zero(t, row.Over90, "oldest item fully settled first")
	assert.Equal(t, types.Paise(15_000), row.Days61To90)
	assert.Equal(t, types.Paise(30_000), row.Days31To60)
	assert.Equal(t, types.Paise(40_000), row.Days0To30)
	assert.Equal(t, types.Paise(85_000), row.Total)
	assert.Equal(t, row.Total, r.Totals.Total)
}

func TestAge_VendorAdvance(t *testing.T) {
	cal := fiscal.IST()
	asOf := time.Date(2024, 10, 1, 6, 0, 0, 0, time.UTC)
	vendorID := id.New()
	entries := []Entry{
		{ID: id.New(), PartyID: &vendorID, PartyType: PartyVendor, Credit: 10_000, Date: asOf.AddDate(0, 0, -10)},
		{ID: id.New(), PartyID: &vendorID, PartyType: PartyVendor, Debit: 12_000, Date: asOf.AddDate(0, 0, -5)},
	}

	r := Age(cal, PartyVendor, entries, asOf, 30)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, types.Paise(2_000), r.Rows[0].Advance)
	assert.Equal(t, types.Paise(-2_000), r.Rows[0].Total)
}

func TestBuildGSTReport(t *testing.T) {
	r := BuildGSTReport("2024-07", []AccountTotal{
		{Account: AccountCGSTOutput, Credit: 9_000},
		{Account: AccountSGSTOutput, Credit: 9_000},
		{Account: AccountIGSTOutput, Credit: 18_000, Debit: 1_000},
		{Account: AccountGSTInput, Debit: 12_000},
		{Account: AccountSales, Credit: 200_000},
		{Account: AccountPurchase, Debit: 66_000},
	})

	assert.Equal(t, types.Paise(35_000), r.TotalOut)
	assert.Equal(t, types.Paise(12_000), r.InputGST)
	assert.Equal(t, types.Paise(23_000), r.NetPayable)
	assert.Equal(t, types.Paise(200_000), r.Sales)
	assert.Equal(t, types.Paise(66_000), r.Purchases)
}

package reports

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/ledger"
)

func ist(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, fiscal.IST().Location())
}

func TestWindowFor(t *testing.T) {
	cal := fiscal.IST()
	// Wednesday 4 September 2024, 01:00 IST is still 3 September in UTC.
	day := ist(2024, time.September, 4, 1)

	tests := []struct {
		period Period
		label  string
		from   time.Time
		to     time.Time
	}{
		{PeriodDaily, "2024-09-04", ist(2024, time.September, 4, 0), ist(2024, time.September, 5, 0)},
		{PeriodWeekly, "2024-09-02 to 2024-09-08", ist(2024, time.September, 2, 0), ist(2024, time.September, 9, 0)},
		{PeriodMonthly, "2024-09", ist(2024, time.September, 1, 0), ist(2024, time.October, 1, 0)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			w := WindowFor(cal, tt.period, day)
			assert.Equal(t, tt.label, w.Label)
			assert.True(t, tt.from.Equal(w.From), "from %s", w.From)
			assert.True(t, tt.to.Equal(w.To), "to %s", w.To)
		})
	}

	prev := WindowFor(cal, PeriodWeekly, day).Previous(cal)
	assert.Equal(t, "2024-08-26 to 2024-09-01", prev.Label)
	assert.Equal(t, "2024-08", WindowFor(cal, PeriodMonthly, day).Previous(cal).Label)
}

func TestBuildCashReport(t *testing.T) {
	cal := fiscal.IST()
	w := WindowFor(cal, PeriodWeekly, ist(2024, time.September, 4, 10))
	party := id.New()
	entries := []ledger.Entry{
		{Date: ist(2024, time.September, 2, 11), Account: ledger.AccountCash, Type: ledger.TypeReceipt, Reference: "ORD-1", Debit: types.PaiseFromRupees(5000)},
		{Date: ist(2024, time.September, 2, 11), Account: ledger.AccountCustomer, PartyID: &party, Credit: types.PaiseFromRupees(5000)},
		{Date: ist(2024, time.September, 3, 15), Account: ledger.AccountBank, Type: ledger.TypeReceipt, Debit: types.PaiseFromRupees(12000)},
		{Date: ist(2024, time.September, 3, 16), Account: ledger.AccountCash, Type: ledger.TypePayment, Reference: "VPR-1", Credit: types.PaiseFromRupees(1500)},
	}

	r := BuildCashReport(cal, w, entries)
	require.Len(t, r.Accounts, 2)
	assert.Equal(t, AccountSummary{Account: ledger.AccountCash, In: types.PaiseFromRupees(5000), Out: types.PaiseFromRupees(1500), Net: types.PaiseFromRupees(3500), Count: 2}, r.Accounts[0])
	assert.Equal(t, types.PaiseFromRupees(12000), r.Accounts[1].In)
	assert.Equal(t, types.PaiseFromRupees(17000), r.TotalIn)
	assert.Equal(t, types.PaiseFromRupees(15500), r.Net)
	require.Len(t, r.Days, 2)
	assert.Equal(t, "2024-09-02", r.Days[0].Date)
	assert.Len(t, r.Movements, 3)
	assert.True(t, strings.Contains(r.Text(), "Total in ₹17000.00"))
	assert.Equal(t, "Cash report (weekly) 2024-09-02 to 2024-09-08", r.Subject())
}

type fakeRepo struct {
	from, to time.Time
	rows     []StockTurnoverRow
}

func (f *fakeRepo) MoneyEntries(ctx context.Context, accounts []string, from, to time.Time) ([]ledger.Entry, error) {
	f.from, f.to = from, to
	return nil, nil
}

func (f *fakeRepo) StockTurnover(ctx context.Context, from, to time.Time) ([]StockTurnoverRow, error) {
	return f.rows, nil
}

func TestCash_Access(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, fiscal.IST())
	finance := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "f", Role: "finance"})

	r, err := svc.Cash(finance, "monthly", "2024-09-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-09", r.Window.Label)
	assert.True(t, ist(2024, time.September, 1, 0).Equal(repo.from))

	_, err = svc.Cash(finance, "yearly", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	operator := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "o", Role: "operator"})
	_, err = svc.Cash(operator, "daily", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestStockTurnover_Values(t *testing.T) {
	repo := &fakeRepo{rows: []StockTurnoverRow{
		{MaterialName: "Float 5mm", Closing: types.NewQuantityFromFloat64(120.5), UnitPrice: types.PaiseFromRupees(80)},
		{MaterialName: "Silicone", Closing: types.NewQuantityFromFloat64(3), UnitPrice: types.PaiseFromRupees(250)},
	}}
	svc := NewService(repo, fiscal.IST())
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "m", Role: "manager"})

	r, err := svc.StockTurnover(ctx, "2024-09")
	require.NoError(t, err)
	assert.Equal(t, types.PaiseFromRupees(9640), r.Rows[0].ClosingValue)
	assert.Equal(t, types.PaiseFromRupees(10390), r.ClosingValue)

	_, err = svc.StockTurnover(ctx, "Sept")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

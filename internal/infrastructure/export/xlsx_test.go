package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"glasserp/internal/domain/audit"
	"glasserp/internal/domain/ledger"
	"glasserp/internal/domain/vendor"
)

func open(t *testing.T, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestVendorBalanceSheet(t *testing.T) {
	bs := &vendor.BalanceSheet{
		VendorName:     "Sharma Glass",
		VendorCode:     "VEN-0001",
		FinancialYear:  "2025-26",
		OpeningBalance: 10_000_00,
		TotalPurchases: 50_000_00,
		TotalPayments:  20_000_00,
		ClosingBalance: 40_000_00,
		Months:         []vendor.Month{{Month: "2025-04", Opening: 10_000_00, Purchases: 50_000_00, Closing: 60_000_00}},
		TopPurchases:   []vendor.Purchase{{PONumber: "PO/25-26/0001", Date: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC), Amount: 50_000_00}},
	}

	var buf bytes.Buffer
	require.NoError(t, VendorBalanceSheet(&buf, bs))

	f := open(t, &buf)
	assert.Equal(t, []string{"Summary", "Monthly", "Top Purchases"}, f.GetSheetList())

	v, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Sharma Glass", v)

	v, err = f.GetCellValue("Summary", "B7")
	require.NoError(t, err)
	assert.Equal(t, "40000", v)

	v, err = f.GetCellValue("Top Purchases", "B2")
	require.NoError(t, err)
	assert.Equal(t, "03-04-2025", v)
}

func TestPartyLedger(t *testing.T) {
	st := &ledger.PartyStatement{
		OpeningBalance: 1_000_00,
		TotalDebit:     5_900_00,
		TotalCredit:    2_000_00,
		ClosingBalance: 4_900_00,
		Lines: []ledger.Line{
			{Entry: ledger.Entry{Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Type: ledger.TypeSale, Reference: "ORD-1", Debit: 5_900_00}, Balance: 6_900_00},
			{Entry: ledger.Entry{Date: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), Type: ledger.TypeReceipt, Reference: "ORD-1", Credit: 2_000_00}, Balance: 4_900_00},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, PartyLedger(&buf, "Acme Interiors", st))

	f := open(t, &buf)
	rows, err := f.GetRows("Ledger")
	require.NoError(t, err)
	require.Len(t, rows, 8)
	assert.Equal(t, "Date", rows[3][0])
	assert.Equal(t, "sale", rows[4][1])
	assert.Equal(t, "4900", rows[5][6])
	assert.Equal(t, "Totals", rows[7][0])
}

func TestMonthlyMIS(t *testing.T) {
	mis := &audit.MonthlyMIS{
		Month:        "2025-06",
		TotalActions: 3,
		ActiveUsers:  1,
		ByModule:     map[string]int{"orders": 2, "accounts": 1},
		ByAction:     map[audit.Action]int{audit.ActionCreate: 3},
		ByDay:        map[string]int{"2025-06-02": 3},
		TopUsers:     []audit.UserActivity{{UserName: "Asha", UserRole: "admin", Total: 3}},
	}

	var buf bytes.Buffer
	require.NoError(t, MonthlyMIS(&buf, mis))

	f := open(t, &buf)
	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "accounts", rows[5][0])
	assert.Equal(t, "orders", rows[6][0])

	v, err := f.GetCellValue("Top Users", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Asha", v)
}

func TestAuditLog(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	entries := []audit.Entry{{
		UserName:  "Asha",
		UserRole:  "finance",
		Action:    audit.ActionPayment,
		Module:    "accounts",
		RecordID:  "INV-25-26-0007",
		Timestamp: time.Date(2025, 6, 2, 18, 45, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, AuditLog(&buf, entries, ist))

	f := open(t, &buf)
	rows, err := f.GetRows("Audit Log")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "03-06-2025 00:15:00", rows[1][0])
	assert.Equal(t, "payment", rows[1][3])
}

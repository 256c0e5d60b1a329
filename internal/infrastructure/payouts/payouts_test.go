package payouts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/domain/vendorpay"
)

func TestMock_SettlesAfterDelay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 9, 3, 6, 30, 0, 0, time.UTC)
	m := NewMock(2 * time.Minute)
	m.now = func() time.Time { return now }

	created, err := m.Create(ctx, vendorpay.PayoutRequest{Amount: 50000, Mode: vendorpay.TransferIMPS})
	require.NoError(t, err)
	assert.True(t, created.Mock)
	assert.Equal(t, vendorpay.PayoutProcessing, created.Status)
	assert.Empty(t, created.UTR)

	now = now.Add(time.Minute)
	res, err := m.Fetch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, vendorpay.PayoutProcessing, res.Status)

	now = now.Add(time.Minute)
	res, err = m.Fetch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, vendorpay.PayoutProcessed, res.Status)
	assert.Regexp(t, `^UTR[0-9A-F]{13}$`, res.UTR)

	again, err := m.Fetch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, res.UTR, again.UTR, "utr is stable per payout")
}

func TestMock_ImmediateSettlement(t *testing.T) {
	res, err := NewMock(0).Create(context.Background(), vendorpay.PayoutRequest{Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, vendorpay.PayoutProcessed, res.Status)
	assert.Regexp(t, `^UTR[0-9A-F]{13}$`, res.UTR)

	fetched, err := NewMock(0).Fetch(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, vendorpay.PayoutProcessed, fetched.Status)
	assert.Equal(t, res.UTR, fetched.UTR)
}

func TestMock_Rejects(t *testing.T) {
	m := NewMock(0)
	_, err := m.Create(context.Background(), vendorpay.PayoutRequest{Amount: 0})
	assert.Error(t, err)
	_, err = m.Fetch(context.Background(), "pout_live_123")
	assert.Error(t, err)
}

func TestClient_CreateBank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payouts", r.URL.Path)

		var body payoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2323230000", body.AccountNumber)
		assert.Equal(t, "bank_account", body.FundAccount.AccountType)
		require.NotNil(t, body.FundAccount.BankAccount)
		assert.Equal(t, "HDFC0001234", body.FundAccount.BankAccount.IFSC)
		assert.Equal(t, "NEFT", body.Mode)
		assert.Equal(t, int64(60000000), body.Amount)
		assert.Equal(t, "PO20240903000001", body.Narration)

		_ = json.NewEncoder(w).Encode(payoutResponse{ID: "pout_1", Status: "queued"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, KeyID: "k", KeySecret: "s", AccountNumber: "2323230000"})
	res, err := c.Create(context.Background(), vendorpay.PayoutRequest{
		Amount:      60000000,
		Mode:        vendorpay.TransferNEFT,
		ReferenceID: "p1",
		Narration:   "PO-20240903-000001",
		Beneficiary: vendorpay.Beneficiary{Name: "Sharma Glass", AccountNumber: "001", IFSC: "HDFC0001234"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pout_1", res.ID)
	assert.Equal(t, "queued", res.Status)
	assert.False(t, res.Mock)
}

func TestClient_FetchAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/payouts/pout_1" {
			_ = json.NewEncoder(w).Encode(payoutResponse{ID: "pout_1", Status: "processed", UTR: "UTR123"})
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, KeyID: "k", KeySecret: "s"})
	res, err := c.Fetch(context.Background(), "pout_1")
	require.NoError(t, err)
	assert.Equal(t, "UTR123", res.UTR)

	_, err = c.Fetch(context.Background(), "pout_2")
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: srv.URL}).Fetch(context.Background(), "pout_1")
	assert.Error(t, err, "missing credentials")
}

func TestNarration(t *testing.T) {
	assert.Equal(t, "PO20240903000001", narration("PO-20240903-000001"))
	assert.Len(t, narration("a very long narration that exceeds thirty characters"), 30)
}

package payouts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"glasserp/internal/core/id"
	"glasserp/internal/domain/vendorpay"
)

const mockPrefix = "pout_mock_"

// Mock fakes the payouts API. A payout reports processing until settleAfter
// has passed since creation, then processed with a synthetic UTR. The
// creation time is carried in the payout id, so restarts keep the timeline.
type Mock struct {
	settleAfter time.Duration
	now         func() time.Time
}

// NewMock creates a mock payouts API.
func NewMock(settleAfter time.Duration) *Mock {
	return &Mock{settleAfter: settleAfter, now: func() time.Time { return time.Now().UTC() }}
}

// Create returns a processing payout.
func (m *Mock) Create(ctx context.Context, req vendorpay.PayoutRequest) (vendorpay.PayoutResult, error) {
	if req.Amount <= 0 {
		return vendorpay.PayoutResult{}, fmt.Errorf("payout amount must be positive")
	}
	payoutID := mockPrefix + strconv.FormatInt(m.now().UnixMilli(), 10) + "_" + strings.ReplaceAll(id.New().String(), "-", "")[:12]
	res := vendorpay.PayoutResult{ID: payoutID, Status: vendorpay.PayoutProcessing, Mock: true}
	if m.settleAfter <= 0 {
		res.Status = vendorpay.PayoutProcessed
		res.UTR = mockUTR(payoutID)
	}
	return res, nil
}

// Fetch reports processed once the settle delay has elapsed.
func (m *Mock) Fetch(ctx context.Context, payoutID string) (vendorpay.PayoutResult, error) {
	created, err := mockCreatedAt(payoutID)
	if err != nil {
		return vendorpay.PayoutResult{}, err
	}
	res := vendorpay.PayoutResult{ID: payoutID, Status: vendorpay.PayoutProcessing, Mock: true}
	if !m.now().Before(created.Add(m.settleAfter)) {
		res.Status = vendorpay.PayoutProcessed
		res.UTR = mockUTR(payoutID)
	}
	return res, nil
}

func mockCreatedAt(payoutID string) (time.Time, error) {
	rest, ok := strings.CutPrefix(payoutID, mockPrefix)
	if !ok {
		return time.Time{}, fmt.Errorf("unknown payout %s", payoutID)
	}
	ms, _, _ := strings.Cut(rest, "_")
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed mock payout id %s", payoutID)
	}
	return time.UnixMilli(n).UTC(), nil
}

// mockUTR derives a stable 16-character UTR from the payout id.
func mockUTR(payoutID string) string {
	sum := sha256.Sum256([]byte(payoutID))
	return "UTR" + strings.ToUpper(hex.EncodeToString(sum[:7]))[:13]
}

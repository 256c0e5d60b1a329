package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/settings"
)

func TestCheckAdvance(t *testing.T) {
	cfg := settings.DefaultAdvancePayment()

	tests := []struct {
		name    string
		total   types.Paise
		percent int
		credit  bool
		wantErr string
	}{
		{"below threshold needs full", types.PaiseFromRupees(1500), 25, false, "Full payment required for orders below ₹2000"},
		{"below threshold full ok", types.PaiseFromRupees(1500), 100, false, ""},
		{"threshold is inclusive", types.PaiseFromRupees(2000), 50, false, "Full payment required for orders below ₹2000"},
		{"upto 5000 needs 50", types.PaiseFromRupees(3000), 25, false, "Minimum 50% advance required for orders up to ₹5000"},
		{"exactly 5000 in lower band", types.PaiseFromRupees(5000), 25, false, "Minimum 50% advance required for orders up to ₹5000"},
		{"upto 5000 ok", types.PaiseFromRupees(5000), 50, false, ""},
		{"above 5000 25 ok", types.PaiseFromRupees(5000.01), 25, false, ""},
		{"zero only for credit", types.PaiseFromRupees(9000), 0, false, "Only credit orders may skip the advance"},
		{"odd percent", types.PaiseFromRupees(9000), 30, false, "advance_percent must be one of 0, 25, 50, 75, 100"},
		{"credit bypasses", types.PaiseFromRupees(1500), 0, true, ""},
		{"credit carries no advance", types.PaiseFromRupees(9000), 50, true, "Credit orders carry no advance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAdvance(cfg, tt.total, tt.percent, tt.credit)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantErr, appErr.Message)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestSplit_AddsUp(t *testing.T) {
	for _, total := range []types.Paise{1, 99, 100_001, 317_42, 999_999_99} {
		for _, pct := range AdvancePercents {
			adv, rem := Split(total, pct)
			assert.Equal(t, total, adv+rem, "total %d pct %d", total, pct)
		}
	}
}

func TestAdvanceOptions(t *testing.T) {
	cfg := settings.DefaultAdvancePayment()
	assert.Equal(t, []int{100}, AdvanceOptions(cfg, types.PaiseFromRupees(1000)))
	assert.Equal(t, []int{50, 75, 100}, AdvanceOptions(cfg, types.PaiseFromRupees(4000)))
	assert.Equal(t, []int{25, 50, 75, 100}, AdvanceOptions(cfg, types.PaiseFromRupees(40000)))
}

func TestSettlement(t *testing.T) {
	s, err := NewSettlement()
	require.NoError(t, err)

	tests := []struct {
		name string
		o    Order
		want bool
	}{
		{"completed", Order{PaymentStatus: PaymentCompleted}, true},
		{"full advance paid", Order{AdvancePercent: 100, AdvancePaymentStatus: AdvancePaid, RemainingPaymentStatus: RemainingNotApplicable}, true},
		{"half paid remaining pending", Order{AdvancePercent: 50, AdvancePaymentStatus: AdvancePaid, RemainingPaymentStatus: RemainingPending}, false},
		{"remaining cash", Order{AdvancePercent: 50, AdvancePaymentStatus: AdvancePaid, RemainingPaymentStatus: RemainingCashReceived}, true},
		{"remaining online", Order{AdvancePercent: 25, AdvancePaymentStatus: AdvancePaid, RemainingPaymentStatus: RemainingPaid}, true},
		{"nothing paid", Order{AdvancePercent: 100, AdvancePaymentStatus: AdvancePending}, false},
		{"unpaid credit", Order{IsCreditOrder: true, Status: StatusConfirmed, PaymentStatus: PaymentPending, AdvancePaymentStatus: AdvancePending, RemainingPaymentStatus: RemainingNotApplicable}, false},
		{"credit paid in cash", Order{IsCreditOrder: true, Status: StatusConfirmed, PaymentStatus: PaymentCompleted, RemainingPaymentStatus: RemainingCashReceived}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Settled(&tt.o)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlow_NoBackwardMoves(t *testing.T) {
	assert.True(t, Flow.Allows(StatusConfirmed, StatusProcessing))
	assert.True(t, Flow.Allows(StatusProcessing, StatusCancelled))
	assert.False(t, Flow.Allows(StatusProcessing, StatusConfirmed))
	assert.False(t, Flow.Allows(StatusDispatched, StatusCancelled))
	assert.False(t, Flow.Allows(StatusDispatched, StatusReadyForDispatch))
	assert.True(t, Flow.IsTerminal(StatusCancelled))
	assert.True(t, Flow.IsTerminal(StatusReturned))
}

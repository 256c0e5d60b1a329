package vendorpay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/purchase"
	"glasserp/internal/domain/vendorpay"
	"glasserp/internal/infrastructure/payouts"
)

func TestMockMode_PayoutCompletesWithSyntheticUTR(t *testing.T) {
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "fin-1", Role: "finance"})
	svc, approve, stored := vendorpay.NewFixture(t, payouts.NewMock(0))
	poID := approve(types.PaiseFromRupees(50000))

	res, err := svc.Initiate(ctx, vendorpay.InitiateInput{
		POID: poID, PaymentType: vendorpay.TypeFull, Amount: types.PaiseFromRupees(50000), PaymentMode: vendorpay.ModePayout,
	})
	require.NoError(t, err)
	assert.True(t, res.MockMode)

	p, err := svc.Status(ctx, res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, vendorpay.StatusCompleted, p.Status)
	require.NotNil(t, p.UTR)
	assert.Regexp(t, `^UTR`, *p.UTR)
	require.NotNil(t, p.ReceiptNumber)
	assert.Regexp(t, `^VPR-`, *p.ReceiptNumber)

	po := stored(poID)
	assert.Equal(t, purchase.FullyPaid, po.PaymentStatus)
	assert.Zero(t, po.OutstandingBalance)
}

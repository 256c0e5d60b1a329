package vendorpay

import (
	"testing"

	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/purchase"
)

// NewFixture builds a service over in-memory stores that pays through
// payouts. approve stores an approved PO of the given total; stored reads it back.
func NewFixture(t *testing.T, payouts Payouts) (svc *Service, approve func(types.Paise) id.ID, stored func(id.ID) purchase.PurchaseOrder) {
	h := newHarness(t)
	h.svc.payouts = payouts
	approve = func(total types.Paise) id.ID { return h.approvedPO(total).ID }
	stored = func(poID id.ID) purchase.PurchaseOrder { return h.pos.items[poID] }
	return h.svc, approve, stored
}

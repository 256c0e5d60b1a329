package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/numerator"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/inventory"
	"glasserp/internal/domain/vendor"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func TestPrice(t *testing.T) {
	po := &PurchaseOrder{Items: []Item{
		{Name: "Clear float 5mm", Quantity: qty(100), UnitPrice: types.PaiseFromRupees(40), GSTRate: 18},
		{Name: "Freight", Quantity: qty(1), UnitPrice: types.PaiseFromRupees(1000)},
	}}
	require.NoError(t, po.Price())

	assert.Equal(t, types.PaiseFromRupees(4000), po.Items[0].Amount)
	assert.Equal(t, types.PaiseFromRupees(720), po.Items[0].GSTAmount)
	assert.Equal(t, types.PaiseFromRupees(5000), po.Subtotal)
	assert.Equal(t, types.PaiseFromRupees(720), po.TotalGST)
	assert.Equal(t, types.PaiseFromRupees(5720), po.GrandTotal)
	assert.Equal(t, po.GrandTotal, po.OutstandingBalance)
}

func TestPrice_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		field string
	}{
		{"no items", nil, "items"},
		{"no name", []Item{{Quantity: qty(1), UnitPrice: 100}}, "items[0].name"},
		{"zero quantity", []Item{{Name: "x", UnitPrice: 100}}, "items[0].quantity"},
		{"gst rate", []Item{{Name: "x", Quantity: qty(1), UnitPrice: 100, GSTRate: 40}}, "items[0].gst_rate"},
		{"free", []Item{{Name: "x", Quantity: qty(1)}}, "items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&PurchaseOrder{Items: tt.items}).Price()
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestApplyPayment_KeepsBalance(t *testing.T) {
	po := &PurchaseOrder{Status: StatusApproved, GrandTotal: 50_000_00, OutstandingBalance: 50_000_00}

	require.NoError(t, po.ApplyPayment(20_000_00))
	assert.Equal(t, PartiallyPaid, po.PaymentStatus)
	assert.Equal(t, po.GrandTotal, po.AmountPaid+po.OutstandingBalance)

	assert.True(t, apperror.IsCode(po.ApplyPayment(30_000_01), apperror.CodeValidation))

	require.NoError(t, po.ApplyPayment(30_000_00))
	assert.Equal(t, FullyPaid, po.PaymentStatus)
	assert.Zero(t, po.OutstandingBalance)
	assert.True(t, apperror.IsCode(po.ApplyPayment(1), apperror.CodeConflict))

	draft := &PurchaseOrder{Status: StatusDraft, GrandTotal: 100, OutstandingBalance: 100}
	assert.True(t, apperror.IsCode(draft.ApplyPayment(100), apperror.CodeConflict))
}

type memoryRepo struct {
	items map[id.ID]PurchaseOrder
}

func (m *memoryRepo) Create(ctx context.Context, po *PurchaseOrder) error {
	m.items[po.ID] = *po
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, po *PurchaseOrder) error {
	stored, ok := m.items[po.ID]
	if !ok {
		return apperror.NewNotFound("purchase order", po.ID)
	}
	if stored.Version != po.Version {
		return apperror.NewConcurrentModification("purchase order", po.ID)
	}
	po.BumpVersion()
	m.items[po.ID] = *po
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	po, ok := m.items[poID]
	if !ok {
		return nil, apperror.NewNotFound("purchase order", poID)
	}
	return &po, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return m.GetByID(ctx, poID)
}

func (m *memoryRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[PurchaseOrder], error) {
	return domain.ListResult[PurchaseOrder]{}, nil
}

func (m *memoryRepo) OpenPayables(ctx context.Context) ([]PurchaseOrder, error) { return nil, nil }

func (m *memoryRepo) MarkReminded(ctx context.Context, poID id.ID, day string) error { return nil }

type fakeVendors map[id.ID]*vendor.Vendor

func (f fakeVendors) Get(ctx context.Context, vendorID id.ID) (*vendor.Vendor, error) {
	v, ok := f[vendorID]
	if !ok {
		return nil, apperror.NewNotFound("vendor", vendorID)
	}
	return v, nil
}

type fakeStock struct {
	moves []inventory.Movement
}

func (s *fakeStock) Move(ctx context.Context, out *events.Staged, mv inventory.Movement) (*inventory.Transaction, error) {
	s.moves = append(s.moves, mv)
	return &inventory.Transaction{MaterialID: mv.MaterialID, Quantity: mv.Quantity}, nil
}

type fakePayments map[id.ID]types.Paise

func (f fakePayments) Reserved(ctx context.Context, poID id.ID) (types.Paise, error) {
	return f[poID], nil
}

type harness struct {
	svc      *Service
	stock    *fakeStock
	payments fakePayments
	vendor   *vendor.Vendor
	received []events.PurchaseOrderReceived
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	v := &vendor.Vendor{Base: entity.NewBase(), VendorCode: "VEN-00001", Name: "Saint Glass", CreditDays: 30, Status: entity.StatusActive}
	h := &harness{stock: &fakeStock{}, payments: fakePayments{}, vendor: v}
	bus := events.NewBus(nil)
	bus.Subscribe(events.InTx, "test", func(ctx context.Context, e events.Event) error {
		h.received = append(h.received, e.(events.PurchaseOrderReceived))
		return nil
	}, events.NamePurchaseOrderReceived)
	h.svc = NewService(&memoryRepo{items: map[id.ID]PurchaseOrder{}}, tx.Passthrough{}, bus,
		&numerator.MockGenerator{}, fakeVendors{v.ID: v}, h.stock, h.payments)
	h.svc.now = func() time.Time { return time.Date(2024, 9, 3, 6, 30, 0, 0, time.UTC) }
	return h
}

func as(role string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-" + role, Role: role})
}

func (h *harness) draft(t *testing.T) *PurchaseOrder {
	t.Helper()
	material := id.New()
	po, err := h.svc.Create(as("manager"), CreateInput{
		VendorID: h.vendor.ID,
		Items: []Item{
			{Name: "Clear float 5mm", MaterialID: &material, Quantity: qty(500), UnitPrice: types.PaiseFromRupees(100)},
		},
	})
	require.NoError(t, err)
	return po
}

func TestLifecycle_ToReceived(t *testing.T) {
	h := newHarness(t)
	po := h.draft(t)
	assert.Equal(t, "purchase_order-1", po.PONumber)
	assert.Equal(t, "Saint Glass", po.VendorName)
	assert.Equal(t, types.PaiseFromRupees(50000), po.GrandTotal)

	_, err := h.svc.Approve(as("admin"), po.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	_, err = h.svc.Submit(as("manager"), po.ID)
	require.NoError(t, err)

	_, err = h.svc.Approve(as("manager"), po.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	po, err = h.svc.Approve(as("admin"), po.ID)
	require.NoError(t, err)
	require.NotNil(t, po.DueDate)
	assert.Equal(t, time.Date(2024, 10, 3, 6, 30, 0, 0, time.UTC), *po.DueDate)

	po, err = h.svc.Receive(as("manager"), po.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, po.Status)
	require.Len(t, h.stock.moves, 1)
	assert.Equal(t, inventory.TxIn, h.stock.moves[0].Type)
	assert.Equal(t, po.PONumber, h.stock.moves[0].Reference)
	require.Len(t, h.received, 1)
	assert.Equal(t, po.GrandTotal, h.received[0].Total)
}

func TestReject(t *testing.T) {
	h := newHarness(t)
	po := h.draft(t)
	_, err := h.svc.UpdateStatus(as("manager"), po.ID, StatusPendingApproval, "")
	require.NoError(t, err)

	po, err = h.svc.UpdateStatus(as("owner"), po.ID, StatusRejected, "price too high")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, po.Status)
	assert.Equal(t, "price too high", po.RejectionReason)

	_, err = h.svc.Cancel(as("manager"), po.ID, "")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestCancel_RefusedAfterPayment(t *testing.T) {
	h := newHarness(t)
	po := h.draft(t)
	_, err := h.svc.Submit(as("manager"), po.ID)
	require.NoError(t, err)
	_, err = h.svc.Approve(as("admin"), po.ID)
	require.NoError(t, err)

	_, err = h.svc.Pay(context.Background(), po.ID, types.PaiseFromRupees(10000))
	require.NoError(t, err)

	_, err = h.svc.Cancel(as("manager"), po.ID, "supplier out of stock")
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestCancel_RefusedWhilePaymentInFlight(t *testing.T) {
	h := newHarness(t)
	po := h.draft(t)
	_, err := h.svc.Submit(as("manager"), po.ID)
	require.NoError(t, err)
	_, err = h.svc.Approve(as("admin"), po.ID)
	require.NoError(t, err)

	h.payments[po.ID] = types.PaiseFromRupees(20000)
	_, err = h.svc.Cancel(as("manager"), po.ID, "supplier out of stock")
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict), "got %v", err)

	stored, err := h.svc.Get(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)

	delete(h.payments, po.ID)
	po, err = h.svc.Cancel(as("manager"), po.ID, "supplier out of stock")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, po.Status)
}

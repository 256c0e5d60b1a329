package vendorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/numerator"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/ledger"
	"glasserp/internal/domain/purchase"
	"glasserp/internal/domain/vendor"
)

type memoryRepo struct {
	payments map[id.ID]Payment
	bulks    map[id.ID]Bulk
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{payments: map[id.ID]Payment{}, bulks: map[id.ID]Bulk{}}
}

func (m *memoryRepo) Create(ctx context.Context, p *Payment) error {
	m.payments[p.ID] = *p
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, p *Payment) error {
	p.BumpVersion()
	m.payments[p.ID] = *p
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, paymentID id.ID) (*Payment, error) {
	p, ok := m.payments[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("vendor payment", paymentID)
	}
	return &p, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, paymentID id.ID) (*Payment, error) {
	return m.GetByID(ctx, paymentID)
}

func (m *memoryRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Payment], error) {
	return domain.ListResult[Payment]{}, nil
}

func (m *memoryRepo) Reserved(ctx context.Context, poID id.ID) (types.Paise, error) {
	var sum types.Paise
	for _, p := range m.payments {
		if p.POID == poID && p.Status.Open() {
			sum += p.Amount
		}
	}
	return sum, nil
}

func (m *memoryRepo) Processing(ctx context.Context) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.Status == StatusProcessing {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateBulk(ctx context.Context, b *Bulk) error {
	m.bulks[b.ID] = *b
	return nil
}

func (m *memoryRepo) UpdateBulk(ctx context.Context, b *Bulk) error {
	m.bulks[b.ID] = *b
	return nil
}

func (m *memoryRepo) GetBulk(ctx context.Context, bulkID id.ID) (*Bulk, error) {
	b, ok := m.bulks[bulkID]
	if !ok {
		return nil, apperror.NewNotFound("bulk payment", bulkID)
	}
	return &b, nil
}

func (m *memoryRepo) GetBulkForUpdate(ctx context.Context, bulkID id.ID) (*Bulk, error) {
	return m.GetBulk(ctx, bulkID)
}

type fakePOs struct {
	items   map[id.ID]purchase.PurchaseOrder
	failFor id.ID
}

func (f *fakePOs) Get(ctx context.Context, poID id.ID) (*purchase.PurchaseOrder, error) {
	po, ok := f.items[poID]
	if !ok {
		return nil, apperror.NewNotFound("purchase order", poID)
	}
	return &po, nil
}

func (f *fakePOs) Pay(ctx context.Context, poID id.ID, amount types.Paise) (*purchase.PurchaseOrder, error) {
	if poID == f.failFor {
		return nil, errors.New("db down")
	}
	po, err := f.Get(ctx, poID)
	if err != nil {
		return nil, err
	}
	if err := po.ApplyPayment(amount); err != nil {
		return nil, err
	}
	f.items[poID] = *po
	return po, nil
}

type fakeVendors map[id.ID]*vendor.Vendor

func (f fakeVendors) Get(ctx context.Context, vendorID id.ID) (*vendor.Vendor, error) {
	v, ok := f[vendorID]
	if !ok {
		return nil, apperror.NewNotFound("vendor", vendorID)
	}
	return v, nil
}

// mockPayouts behaves like the payouts client in mock mode.
type mockPayouts struct {
	created []PayoutRequest
	status  string
	err     error
}

func (m *mockPayouts) Create(ctx context.Context, req PayoutRequest) (PayoutResult, error) {
	if m.err != nil {
		return PayoutResult{}, m.err
	}
	m.created = append(m.created, req)
	return PayoutResult{ID: fmt.Sprintf("pout_mock_%d", len(m.created)), Status: PayoutProcessing, Mock: true}, nil
}

func (m *mockPayouts) Fetch(ctx context.Context, payoutID string) (PayoutResult, error) {
	st := m.status
	if st == "" {
		st = PayoutProcessed
	}
	res := PayoutResult{ID: payoutID, Status: st, Mock: true}
	if st == PayoutProcessed {
		res.UTR = "UTR" + strings.TrimPrefix(payoutID, "pout_mock_") + "0000012345"
	}
	return res, nil
}

type harness struct {
	svc       *Service
	repo      *memoryRepo
	pos       *fakePOs
	payouts   *mockPayouts
	vendor    *vendor.Vendor
	completed []events.VendorPaymentCompleted
	allocated map[numerator.Class]int
}

func strp(s string) *string { return &s }

func newHarness(t *testing.T) *harness {
	t.Helper()
	v := &vendor.Vendor{
		Base: entity.NewBase(), VendorCode: "VEN-00001", Name: "Saint Glass",
		BankAccount: strp("123456789012"), IFSCCode: strp("HDFC0001234"), Status: entity.StatusActive,
	}
	h := &harness{
		repo:    newMemoryRepo(),
		pos:     &fakePOs{items: map[id.ID]purchase.PurchaseOrder{}},
		payouts:   &mockPayouts{},
		vendor:    v,
		allocated: map[numerator.Class]int{},
	}
	bus := events.NewBus(nil)
	bus.Subscribe(events.InTx, "test", func(ctx context.Context, e events.Event) error {
		h.completed = append(h.completed, e.(events.VendorPaymentCompleted))
		return nil
	}, events.NameVendorPaymentCompleted)

	gen := &numerator.MockGenerator{NextFunc: func(ctx context.Context, req numerator.Request) (string, error) {
		h.allocated[req.Class]++
		switch req.Class {
		case numerator.ClassVendorReceipt:
			return fmt.Sprintf("VPR-%s-%06d", req.At.Format("20060102"), h.allocated[req.Class]), nil
		case numerator.ClassBulkReceipt:
			return fmt.Sprintf("BULK-%s-%04d", req.At.Format("20060102"), h.allocated[req.Class]), nil
		}
		return "", fmt.Errorf("unexpected class %s", req.Class)
	}}
	h.svc = NewService(h.repo, tx.Passthrough{}, bus, gen, h.pos, fakeVendors{v.ID: v}, h.payouts)
	h.svc.now = func() time.Time { return time.Date(2024, 9, 3, 6, 30, 0, 0, time.UTC) }
	return h
}

func (h *harness) approvedPO(total types.Paise) *purchase.PurchaseOrder {
	po := purchase.PurchaseOrder{
		Document:           entity.NewDocument("u1"),
		PONumber:           fmt.Sprintf("PO-20240903-%06d", len(h.pos.items)+1),
		VendorID:           h.vendor.ID,
		VendorName:         h.vendor.Name,
		GrandTotal:         total,
		OutstandingBalance: total,
		Status:             purchase.StatusApproved,
		PaymentStatus:      purchase.Unpaid,
	}
	h.pos.items[po.ID] = po
	return &po
}

func finance() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "fin-1", Role: "finance"})
}

func TestPayoutRoundTrip(t *testing.T) {
	h := newHarness(t)
	po := h.approvedPO(types.PaiseFromRupees(50000))

	res, err := h.svc.Initiate(finance(), InitiateInput{
		POID: po.ID, PaymentType: TypeFull, Amount: types.PaiseFromRupees(50000), PaymentMode: ModePayout,
	})
	require.NoError(t, err)
	assert.True(t, res.MockMode)
	assert.False(t, res.RequiresVerification)
	assert.Equal(t, StatusProcessing, res.Payment.Status)
	require.Len(t, h.payouts.created, 1)
	assert.Equal(t, TransferIMPS, h.payouts.created[0].Mode)
	assert.Equal(t, "HDFC0001234", h.payouts.created[0].Beneficiary.IFSC)

	p, err := h.svc.Status(finance(), res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.UTR)
	assert.True(t, strings.HasPrefix(*p.UTR, "UTR"))
	require.NotNil(t, p.ReceiptNumber)
	assert.True(t, strings.HasPrefix(*p.ReceiptNumber, "VPR-"))

	stored := h.pos.items[po.ID]
	assert.Equal(t, purchase.FullyPaid, stored.PaymentStatus)
	assert.Zero(t, stored.OutstandingBalance)

	again, err := h.svc.Status(finance(), res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, *p.ReceiptNumber, *again.ReceiptNumber)
	require.Len(t, h.completed, 1)

	posting, err := ledger.NewMapper(fiscal.IST()).Map(h.completed[0])
	require.NoError(t, err)
	require.NotNil(t, posting)
	assert.True(t, posting.Balanced())
	debit, credit := posting.Totals()
	assert.Equal(t, types.PaiseFromRupees(50000), debit)
	assert.Equal(t, types.PaiseFromRupees(50000), credit)
	require.Len(t, posting.Entries, 2)
}

func TestInitiate_Preconditions(t *testing.T) {
	h := newHarness(t)
	po := h.approvedPO(types.PaiseFromRupees(1000))

	draft := h.approvedPO(types.PaiseFromRupees(1000))
	d := h.pos.items[draft.ID]
	d.Status = purchase.StatusDraft
	h.pos.items[draft.ID] = d

	noBank := &vendor.Vendor{Base: entity.NewBase(), Name: "Cash Vendor", Status: entity.StatusActive}
	h.svc.vendors = fakeVendors{h.vendor.ID: h.vendor, noBank.ID: noBank}
	other := h.approvedPO(types.PaiseFromRupees(1000))
	o := h.pos.items[other.ID]
	o.VendorID = noBank.ID
	h.pos.items[other.ID] = o

	received := h.approvedPO(types.PaiseFromRupees(1000))
	r := h.pos.items[received.ID]
	r.Status = purchase.StatusReceived
	h.pos.items[received.ID] = r

	tests := []struct {
		name string
		ctx  context.Context
		in   InitiateInput
		code string
	}{
		{"role", appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "m", Role: "manager"}),
			InitiateInput{POID: po.ID, PaymentType: TypePartial, Amount: 100, PaymentMode: ModeCash}, apperror.CodeForbidden},
		{"draft", finance(), InitiateInput{POID: draft.ID, PaymentType: TypePartial, Amount: 100, PaymentMode: ModeCash}, apperror.CodeConflict},
		{"received", finance(), InitiateInput{POID: received.ID, PaymentType: TypePartial, Amount: 100, PaymentMode: ModeCash}, apperror.CodeConflict},
		{"too much", finance(), InitiateInput{POID: po.ID, PaymentType: TypePartial, Amount: types.PaiseFromRupees(1001), PaymentMode: ModeCash}, apperror.CodeValidation},
		{"full not full", finance(), InitiateInput{POID: po.ID, PaymentType: TypeFull, Amount: 100, PaymentMode: ModeCash}, apperror.CodeValidation},
		{"no bank", finance(), InitiateInput{POID: other.ID, PaymentType: TypeFull, Amount: types.PaiseFromRupees(1000), PaymentMode: ModePayout}, apperror.CodeValidation},
		{"bad type", finance(), InitiateInput{POID: po.ID, PaymentType: "all", Amount: 100, PaymentMode: ModeCash}, apperror.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Initiate(tt.ctx, tt.in)
			assert.True(t, apperror.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestInitiate_ReservesOutstanding(t *testing.T) {
	h := newHarness(t)
	po := h.approvedPO(types.PaiseFromRupees(1000))
	half := 50.0

	first, err := h.svc.Initiate(finance(), InitiateInput{POID: po.ID, PaymentType: TypeAdvance, Percentage: &half, PaymentMode: ModeCheque})
	require.NoError(t, err)
	assert.True(t, first.RequiresVerification)
	assert.Equal(t, types.PaiseFromRupees(500), first.Payment.Amount)

	_, err = h.svc.Initiate(finance(), InitiateInput{POID: po.ID, PaymentType: TypePartial, Amount: types.PaiseFromRupees(600), PaymentMode: ModeCash})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestRecordManual(t *testing.T) {
	h := newHarness(t)
	po := h.approvedPO(types.PaiseFromRupees(1000))
	res, err := h.svc.Initiate(finance(), InitiateInput{POID: po.ID, PaymentType: TypePartial, Amount: types.PaiseFromRupees(400), PaymentMode: ModeBankTransfer})
	require.NoError(t, err)

	_, err = h.svc.RecordManual(finance(), res.PaymentID, " ")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	p, err := h.svc.RecordManual(finance(), res.PaymentID, "HDFCN52024090312345")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, "HDFCN52024090312345", *p.UTR)
	assert.Equal(t, purchase.PartiallyPaid, h.pos.items[po.ID].PaymentStatus)
	assert.Equal(t, types.PaiseFromRupees(600), h.pos.items[po.ID].OutstandingBalance)
}

func TestRecordManual_ReplayKeepsReceiptSeries(t *testing.T) {
	h := newHarness(t)
	po := h.approvedPO(types.PaiseFromRupees(1000))
	res, err := h.svc.Initiate(finance(), InitiateInput{POID: po.ID, PaymentType: TypeFull, Amount: types.PaiseFromRupees(1000), PaymentMode: ModeCheque})
	require.NoError(t, err)

	first, err := h.svc.RecordManual(finance(), res.PaymentID, "CHQ-000451")
	require.NoError(t, err)
	require.NotNil(t, first.ReceiptNumber)

	again, err := h.svc.RecordManual(finance(), res.PaymentID, "CHQ-000451")
	require.NoError(t, err)
	assert.Equal(t, *first.ReceiptNumber, *again.ReceiptNumber)
	assert.Equal(t, 1, h.allocated[numerator.ClassVendorReceipt])
	assert.Len(t, h.completed, 1)
	assert.Equal(t, types.PaiseFromRupees(1000), h.pos.items[po.ID].AmountPaid)
}

func TestPayoutFailure(t *testing.T) {
	h := newHarness(t)
	po := h.approvedPO(types.PaiseFromRupees(1000))
	h.payouts.err = errors.New("connection refused")

	_, err := h.svc.Initiate(finance(), InitiateInput{POID: po.ID, PaymentType: TypeFull, Amount: types.PaiseFromRupees(1000), PaymentMode: ModePayout})
	assert.True(t, apperror.IsCode(err, apperror.CodeExternal))

	for _, p := range h.repo.payments {
		assert.Equal(t, StatusFailed, p.Status)
	}
	reserved, err := h.repo.Reserved(context.Background(), po.ID)
	require.NoError(t, err)
	assert.Zero(t, reserved)
}

func TestPayoutReversed(t *testing.T) {
	h := newHarness(t)
	po := h.approvedPO(types.PaiseFromRupees(1000))
	res, err := h.svc.Initiate(finance(), InitiateInput{POID: po.ID, PaymentType: TypeFull, Amount: types.PaiseFromRupees(1000), PaymentMode: ModePayout})
	require.NoError(t, err)

	h.payouts.status = PayoutReversed
	p, err := h.svc.Status(finance(), res.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, p.Status)
	assert.Equal(t, purchase.Unpaid, h.pos.items[po.ID].PaymentStatus)
	assert.Empty(t, h.completed)
}

func TestBulk_AllOrNothing(t *testing.T) {
	h := newHarness(t)
	a := h.approvedPO(types.PaiseFromRupees(10000))
	b := h.approvedPO(types.PaiseFromRupees(25000))

	bulk, err := h.svc.CreateBulk(finance(), BulkInput{VendorID: h.vendor.ID, POIDs: []id.ID{a.ID, b.ID}, PaymentMode: ModeBankTransfer})
	require.NoError(t, err)
	assert.Equal(t, types.PaiseFromRupees(35000), bulk.TotalAmount)
	require.Len(t, bulk.PaymentIDs, 2)

	h.pos.failFor = a.ID
	_, err = h.svc.CompleteBulk(finance(), bulk.ID, "UTR-BULK-1")
	require.Error(t, err)
	stored, err := h.repo.GetBulk(context.Background(), bulk.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInitiated, stored.Status)
	h.pos.failFor = id.ID{}

	res, err := h.svc.CompleteBulk(finance(), bulk.ID, "UTR-BULK-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Bulk.Status)
	require.NotNil(t, res.Bulk.BulkReceiptNumber)
	assert.True(t, strings.HasPrefix(*res.Bulk.BulkReceiptNumber, "BULK-"))
	require.Len(t, res.Payments, 2)
	for _, p := range res.Payments {
		assert.Equal(t, StatusCompleted, p.Status)
		assert.True(t, strings.HasPrefix(*p.ReceiptNumber, "VPR-"))
	}
	assert.Equal(t, purchase.FullyPaid, h.pos.items[a.ID].PaymentStatus)
	assert.Equal(t, purchase.FullyPaid, h.pos.items[b.ID].PaymentStatus)

	issued := h.allocated[numerator.ClassBulkReceipt]
	again, err := h.svc.CompleteBulk(finance(), bulk.ID, "UTR-BULK-1")
	require.NoError(t, err)
	assert.Equal(t, *res.Bulk.BulkReceiptNumber, *again.Bulk.BulkReceiptNumber)
	assert.Equal(t, issued, h.allocated[numerator.ClassBulkReceipt])
}

func TestBulk_RejectsMixedVendors(t *testing.T) {
	h := newHarness(t)
	a := h.approvedPO(types.PaiseFromRupees(1000))
	b := h.approvedPO(types.PaiseFromRupees(1000))
	other := h.pos.items[b.ID]
	other.VendorID = id.New()
	h.pos.items[b.ID] = other

	_, err := h.svc.CreateBulk(finance(), BulkInput{VendorID: h.vendor.ID, POIDs: []id.ID{a.ID, b.ID}, PaymentMode: ModeUPI})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Empty(t, h.repo.bulks)
	assert.Empty(t, h.repo.payments)
}

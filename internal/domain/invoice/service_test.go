package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/numerator"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/customer"
	"glasserp/internal/domain/order"
	"glasserp/internal/domain/settings"
	"glasserp/internal/domain/tax"
)

type memoryRepo struct {
	items map[id.ID]Invoice
}

func (m *memoryRepo) Create(ctx context.Context, inv *Invoice) error {
	m.items[inv.ID] = *inv
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, inv *Invoice) error {
	if m.items[inv.ID].Version != inv.Version {
		return apperror.NewConcurrentModification("invoice", inv.ID)
	}
	inv.BumpVersion()
	m.items[inv.ID] = *inv
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, ok := m.items[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID)
	}
	return &inv, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	return m.GetByID(ctx, invoiceID)
}

func (m *memoryRepo) GetByOrderID(ctx context.Context, orderID id.ID) (*Invoice, error) {
	for _, inv := range m.items {
		if inv.OrderID != nil && *inv.OrderID == orderID {
			return &inv, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", orderID)
}

func (m *memoryRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Invoice], error) {
	return domain.ListResult[Invoice]{}, nil
}

type gstSettings struct{}

func (gstSettings) GST(ctx context.Context) (settings.GST, error) {
	return settings.DefaultGST("27"), nil
}

type customers map[id.ID]*customer.Customer

func (c customers) Get(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	if v, ok := c[customerID]; ok {
		return v, nil
	}
	return nil, apperror.NewNotFound("customer", customerID)
}

type orders map[id.ID]*order.Order

func (o orders) Get(ctx context.Context, orderID id.ID) (*order.Order, error) {
	if v, ok := o[orderID]; ok {
		return v, nil
	}
	return nil, apperror.NewNotFound("order", orderID)
}

var issuedAt = time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T, cs customers) (*Service, *memoryRepo, *[]events.Event) {
	t.Helper()
	repo := &memoryRepo{items: map[id.ID]Invoice{}}
	bus := events.NewBus(nil)
	var staged []events.Event
	bus.Subscribe(events.InTx, "test", func(ctx context.Context, e events.Event) error {
		staged = append(staged, e)
		return nil
	}, events.NameInvoiceIssued, events.NameInvoicePaymentRecorded)

	n := 0
	gen := &numerator.MockGenerator{NextFunc: func(ctx context.Context, req numerator.Request) (string, error) {
		n++
		assert.Equal(t, numerator.ClassInvoice, req.Class)
		return req.Prefix + "/2024-25/000" + string(rune('0'+n)), nil
	}}
	svc := NewService(repo, tx.Passthrough{}, bus, gen, gstSettings{}, cs)
	svc.now = func() time.Time { return issuedAt }
	return svc, repo, &staged
}

func TestCreate_TaxPerLineAndCreditDays(t *testing.T) {
	c := &customer.Customer{
		Base:           entity.NewBase(),
		DisplayName:    "Mehta Interiors",
		Mobile:         "+919812345678",
		CreditType:     customer.CreditAllowed,
		CreditDays:     15,
		BillingAddress: customer.Address{Line1: "12 MG Road", City: "Pune", StateCode: "27", Pincode: "411001"},
	}
	svc, _, staged := newService(t, customers{c.ID: c})

	inv, err := svc.Create(context.Background(), CreateInput{
		CustomerID: &c.ID,
		Items: []ItemInput{
			{Description: "Float glass 5mm", HSNCode: "7005", Quantity: 10.5, Unit: "sqft", Rate: 6_000},
			{Description: "Mirror", HSNCode: "7009", Quantity: 2, Rate: 150_000},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV/2024-25/0001", inv.InvoiceNumber)
	assert.Equal(t, tax.IntraState, inv.GSTType)
	assert.Equal(t, types.Paise(63_000+300_000), inv.Subtotal)
	assert.Equal(t, inv.CGST, inv.SGST)
	assert.Equal(t, types.Paise(5_670+27_000), inv.CGST)
	assert.Equal(t, inv.Subtotal+inv.TotalTax, inv.Total)
	assert.Equal(t, issuedAt.AddDate(0, 0, 15), inv.DueDate)
	assert.Equal(t, PaymentPending, inv.PaymentStatus)
	assert.Equal(t, "12 MG Road, Pune, Maharashtra, 411001", inv.BillingAddress)

	require.Len(t, *staged, 1)
	issued := (*staged)[0].(events.InvoiceIssued)
	assert.Equal(t, c.ID, issued.PartyID)
	assert.Equal(t, inv.Total, issued.Total)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newService(t, customers{})

	_, err := svc.Create(context.Background(), CreateInput{CustomerName: "A", StateCode: "27"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Create(context.Background(), CreateInput{
		CustomerName: "A", StateCode: "99",
		Items: []ItemInput{{Description: "x", Quantity: 1, Rate: 100}},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "unknown state is never zero-rated")
}

func TestRecordPayment(t *testing.T) {
	svc, _, staged := newService(t, customers{})
	inv, err := svc.Create(context.Background(), CreateInput{
		CustomerName: "Walk-in", StateCode: "07",
		Items: []ItemInput{{Description: "Toughened", HSNCode: "7007", Quantity: 1, Rate: 100_000}},
	})
	require.NoError(t, err)
	assert.Equal(t, types.Paise(118_000), inv.Total)
	assert.Equal(t, issuedAt.AddDate(0, 0, DefaultCreditDays), inv.DueDate)

	inv, err = svc.RecordPayment(context.Background(), inv.ID, 50_000, "UPI", "upi-1")
	require.NoError(t, err)
	assert.Equal(t, PaymentPartial, inv.PaymentStatus)

	_, err = svc.RecordPayment(context.Background(), inv.ID, 100_000, "cash", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	inv, err = svc.RecordPayment(context.Background(), inv.ID, 68_000, "cash", "")
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, inv.PaymentStatus)
	assert.Zero(t, inv.Outstanding())

	_, err = svc.RecordPayment(context.Background(), inv.ID, 1, "cash", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))

	var seqs []int
	for _, e := range *staged {
		if p, ok := e.(events.InvoicePaymentRecorded); ok {
			seqs = append(seqs, p.Sequence)
		}
	}
	assert.Equal(t, []int{1, 2}, seqs)
}

func TestFromOrder_MirrorsOrderOnce(t *testing.T) {
	o := &order.Order{
		Document:               entity.NewDocument("u1"),
		OrderNumber:            "000042",
		CustomerName:           "Ravi",
		ProductName:            "Toughened",
		Thickness:              8,
		Width:                  48,
		Height:                 48,
		Quantity:               5,
		DeliveryStateCode:      "27",
		GSTType:                tax.IntraState,
		HSNCode:                "7007",
		CGSTRate:               9,
		CGSTAmount:             72_000,
		SGSTRate:               9,
		SGSTAmount:             72_000,
		TotalGST:               144_000,
		BaseAmount:             800_000,
		TotalPrice:             944_000,
		AdvancePercent:         50,
		AdvanceAmount:          472_000,
		RemainingAmount:        472_000,
		AdvancePaymentStatus:   order.AdvancePaid,
		RemainingPaymentStatus: order.RemainingPending,
		Status:                 order.StatusReadyForDispatch,
	}
	svc, repo, staged := newService(t, customers{})
	svc.SetOrders(orders{o.ID: o})

	inv, err := svc.FromOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Paise(944_000), inv.Total)
	assert.Equal(t, types.Paise(472_000), inv.AmountPaid)
	assert.Equal(t, PaymentPartial, inv.PaymentStatus)
	assert.Equal(t, o.ID, *inv.OrderID)

	again, err := svc.FromOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, again.ID)
	assert.Len(t, repo.items, 1)
	assert.Len(t, *staged, 1)

	issued := (*staged)[0].(events.InvoiceIssued)
	require.NotNil(t, issued.OrderID)
	assert.True(t, id.IsNil(issued.PartyID))
}

func TestFromOrder_RejectsPending(t *testing.T) {
	o := &order.Order{Document: entity.NewDocument("u1"), OrderNumber: "000007", Status: order.StatusPending}
	svc, _, _ := newService(t, customers{})
	svc.SetOrders(orders{o.ID: o})

	_, err := svc.FromOrder(context.Background(), o.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

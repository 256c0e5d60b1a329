package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/internal/core/numerator"
	"glasserp/internal/core/tx"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
)

type memoryRepo struct {
	items map[id.ID]Customer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[id.ID]Customer{}}
}

func (m *memoryRepo) Create(ctx context.Context, c *Customer) error {
	m.items[c.ID] = *c
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, c *Customer) error {
	stored, ok := m.items[c.ID]
	if !ok {
		return apperror.NewNotFound("customer", c.ID)
	}
	if stored.Version != c.Version {
		return apperror.NewConcurrentModification("customer", c.ID)
	}
	c.BumpVersion()
	m.items[c.ID] = *c
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, customerID id.ID) (*Customer, error) {
	c, ok := m.items[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID)
	}
	return &c, nil
}

func (m *memoryRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error) {
	return m.GetByID(ctx, customerID)
}

func (m *memoryRepo) GetByMobile(ctx context.Context, mobile string) (*Customer, error) {
	for _, c := range m.items {
		if c.Mobile == mobile {
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("customer", mobile)
}

func (m *memoryRepo) GetByUserID(ctx context.Context, userID string) (*Customer, error) {
	for _, c := range m.items {
		if c.UserID != nil && *c.UserID == userID {
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("customer", userID)
}

func (m *memoryRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[Customer], error) {
	var out []Customer
	for _, c := range m.items {
		out = append(out, c)
	}
	return domain.ListResult[Customer]{Items: out, TotalCount: int64(len(out))}, nil
}

type recorder struct {
	events []events.Event
}

func newService(t *testing.T) (*Service, *memoryRepo, *recorder) {
	t.Helper()
	repo := newMemoryRepo()
	bus := events.NewBus(nil)
	rec := &recorder{}
	bus.Subscribe(events.InTx, "test", func(ctx context.Context, e events.Event) error {
		rec.events = append(rec.events, e)
		return nil
	}, events.NameOpeningBalanceSet, events.NameAudited)
	gen := &numerator.MockGenerator{NextFunc: func(ctx context.Context, req numerator.Request) (string, error) {
		return "CUST-00001", nil
	}}
	return NewService(repo, tx.Passthrough{}, bus, gen), repo, rec
}

func strPtr(s string) *string { return &s }

func TestCreate_DerivesAndNormalises(t *testing.T) {
	svc, repo, rec := newService(t)
	c := &Customer{
		CustomerType:    TypePvtLtd,
		DisplayName:     " Sharma Glass Works ",
		Mobile:          "98765 43210",
		GSTIN:           strPtr("27aapfu0939f1zv"),
		NeedsGSTInvoice: true,
		BillingAddress:  Address{Line1: "Plot 4", City: "Pune", StateCode: "27", Pincode: "411001"},
		OpeningBalance:  types.Paise(250_000),
	}

	require.NoError(t, svc.Create(context.Background(), c))

	stored := repo.items[c.ID]
	assert.Equal(t, "CUST-00001", stored.Code)
	assert.Equal(t, "Sharma Glass Works", stored.DisplayName)
	assert.Equal(t, "+919876543210", stored.Mobile)
	assert.Equal(t, "27AAPFU0939F1ZV", *stored.GSTIN)
	assert.Equal(t, InvoiceB2B, stored.InvoiceType)
	assert.Equal(t, CreditCashOnly, stored.CreditType)
	assert.Equal(t, "27", stored.StateCode())

	require.Len(t, rec.events, 2)
	ob := rec.events[0].(events.OpeningBalanceSet)
	assert.Equal(t, types.Paise(250_000), ob.Delta)
	assert.Equal(t, 1, ob.Revision)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		c     Customer
		field string
	}{
		{"bad mobile", Customer{CustomerType: TypeIndividual, DisplayName: "A", Mobile: "123"}, "mobile"},
		{"gst invoice without gstin", Customer{CustomerType: TypeIndividual, DisplayName: "A", Mobile: "9876543210", NeedsGSTInvoice: true}, "gstin"},
		{"bad pan", Customer{CustomerType: TypeIndividual, DisplayName: "A", Mobile: "9876543210", PAN: strPtr("12345")}, "pan"},
		{"unknown state", Customer{CustomerType: TypeIndividual, DisplayName: "A", Mobile: "9876543210", BillingAddress: Address{StateCode: "99"}}, "billing_address.state_code"},
		{"missing name", Customer{CustomerType: TypeIndividual, Mobile: "9876543210"}, "display_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newService(t)
			c := tt.c
			err := svc.Create(context.Background(), &c)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestCreate_DuplicateMobile(t *testing.T) {
	svc, _, _ := newService(t)
	require.NoError(t, svc.Create(context.Background(), &Customer{CustomerType: TypeIndividual, DisplayName: "A", Mobile: "9876543210"}))

	err := svc.Create(context.Background(), &Customer{CustomerType: TypeIndividual, DisplayName: "B", Mobile: "+919876543210"})
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
}

func TestSetOpeningBalance_PostsDelta(t *testing.T) {
	svc, _, rec := newService(t)
	c := &Customer{CustomerType: TypeIndividual, DisplayName: "A", Mobile: "9876543210", OpeningBalance: 10_000}
	require.NoError(t, svc.Create(context.Background(), c))
	rec.events = nil

	updated, err := svc.SetOpeningBalance(context.Background(), c.ID, 4_000)
	require.NoError(t, err)
	assert.Equal(t, types.Paise(4_000), updated.OpeningBalance)

	require.NotEmpty(t, rec.events)
	ob := rec.events[0].(events.OpeningBalanceSet)
	assert.Equal(t, types.Paise(-6_000), ob.Delta)
	assert.Equal(t, 2, ob.Revision)

	rec.events = nil
	_, err = svc.SetOpeningBalance(context.Background(), c.ID, 4_000)
	require.NoError(t, err)
	assert.Empty(t, rec.events, "unchanged balance posts nothing")
}

func TestUpdate_KeepsCodeAndBalance(t *testing.T) {
	svc, _, _ := newService(t)
	c := &Customer{CustomerType: TypeIndividual, DisplayName: "A", Mobile: "9876543210", OpeningBalance: 500}
	require.NoError(t, svc.Create(context.Background(), c))

	updated, err := svc.Update(context.Background(), c.ID, &Customer{
		CustomerType: TypeIndividual, DisplayName: "A2", Mobile: "9876543210", OpeningBalance: 999_999, CreditType: CreditAllowed,
	})
	require.NoError(t, err)
	assert.Equal(t, "A2", updated.DisplayName)
	assert.Equal(t, "CUST-00001", updated.Code)
	assert.Equal(t, types.Paise(500), updated.OpeningBalance)
	assert.Equal(t, 30, updated.EffectiveCreditDays())
	assert.Equal(t, 2, updated.Version)
}

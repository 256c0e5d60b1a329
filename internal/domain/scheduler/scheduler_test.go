package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/customer"
	"glasserp/internal/domain/notification"
	"glasserp/internal/domain/order"
	"glasserp/internal/domain/purchase"
	"glasserp/internal/domain/reports"
)

var ist = fiscal.IST().Location()

func TestSchedules(t *testing.T) {
	// Wednesday 4 September 2024 06:00 IST.
	after := time.Date(2024, 9, 4, 6, 0, 0, 0, ist)

	tests := []struct {
		name string
		s    Schedule
		want time.Time
	}{
		{"daily later today", MustCron("0 9 * * *", ist), time.Date(2024, 9, 4, 9, 0, 0, 0, ist)},
		{"daily passed", MustCron(cashDailySpec, ist), time.Date(2024, 9, 5, 5, 0, 0, 0, ist)},
		{"weekly monday", MustCron(cashWeeklySpec, ist), time.Date(2024, 9, 9, 5, 0, 0, 0, ist)},
		{"monthly first", MustCron(cashMonthlySpec, ist), time.Date(2024, 10, 1, 5, 0, 0, 0, ist)},
		{"every", Every(30 * time.Second), after.Add(30 * time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.Next(after)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	exact := time.Date(2024, 9, 4, 5, 0, 0, 0, ist)
	assert.True(t, time.Date(2024, 9, 5, 5, 0, 0, 0, ist).Equal(MustCron(cashDailySpec, ist).Next(exact)))
}

func TestCron_UsesLocation(t *testing.T) {
	// 05:00 IST is 23:30 UTC on the previous day.
	after := time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC)
	got := MustCron(cashDailySpec, ist).Next(after)
	assert.True(t, time.Date(2024, 9, 4, 23, 30, 0, 0, time.UTC).Equal(got), "got %s", got.UTC())
}

func TestCron_InvalidSpec(t *testing.T) {
	_, err := Cron("0 5 * *", ist)
	require.Error(t, err)
	assert.Panics(t, func() { MustCron("every day", ist) })
}

func TestShouldRemind(t *testing.T) {
	today := "2024-09-04"
	yesterday := "2024-09-03"
	tests := []struct {
		dueIn int
		last  *string
		want  bool
	}{
		{3, nil, true},
		{2, nil, false},
		{1, &yesterday, true},
		{0, nil, true},
		{-4, &yesterday, true},
		{-4, &today, false},
		{10, nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldRemind(tt.dueIn, tt.last, today), "due in %d", tt.dueIn)
	}
}

type fakeOrders struct {
	orders   []order.Order
	reminded map[id.ID]string
}

func (f *fakeOrders) Unpaid(ctx context.Context) ([]order.Order, error) { return f.orders, nil }

func (f *fakeOrders) MarkReminded(ctx context.Context, orderID id.ID, day string) error {
	f.reminded[orderID] = day
	return nil
}

type fakePOs struct {
	pos      []purchase.PurchaseOrder
	reminded map[id.ID]string
}

func (f *fakePOs) OpenPayables(ctx context.Context) ([]purchase.PurchaseOrder, error) { return f.pos, nil }

func (f *fakePOs) MarkReminded(ctx context.Context, poID id.ID, day string) error {
	f.reminded[poID] = day
	return nil
}

type fakeNotifier struct {
	customer []notification.Message
	admin    []notification.Message
	email    []notification.Message
	fail     bool
}

func (f *fakeNotifier) result() notification.Result {
	return notification.Result{
		Channels:   map[notification.Channel]notification.Attempt{notification.ChannelEmail: {Attempted: true, Success: !f.fail}},
		AnySuccess: !f.fail,
	}
}

func (f *fakeNotifier) Customer(ctx context.Context, to notification.Recipient, msg notification.Message) notification.Result {
	f.customer = append(f.customer, msg)
	return f.result()
}

func (f *fakeNotifier) Admin(ctx context.Context, msg notification.Message) notification.Result {
	f.admin = append(f.admin, msg)
	return f.result()
}

func (f *fakeNotifier) Email(ctx context.Context, to []string, msg notification.Message) notification.Result {
	f.email = append(f.email, msg)
	return f.result()
}

func unpaidOrder(number string, created time.Time, credit bool) order.Order {
	o := order.Order{
		Document:        entity.NewDocument("u1"),
		OrderNumber:     number,
		CustomerName:    "Asha",
		CustomerPhone:   "+919876543210",
		TotalPrice:      types.PaiseFromRupees(10000),
		AdvanceAmount:   types.PaiseFromRupees(5000),
		RemainingAmount: types.PaiseFromRupees(5000),
		IsCreditOrder:   credit,
		Status:          order.StatusConfirmed,
	}
	o.CreatedAt = created
	o.AdvancePaymentStatus = order.AdvancePaid
	return o
}

func TestDues_Customers(t *testing.T) {
	now := time.Date(2024, 9, 10, 3, 30, 0, 0, time.UTC) // 09:00 IST
	today := "2024-09-10"
	already := today

	dueToday := unpaidOrder("000001", now.AddDate(0, 0, -7), false)
	dueIn2 := unpaidOrder("000002", now.AddDate(0, 0, -5), false)
	creditDueIn3 := unpaidOrder("000003", now.AddDate(0, 0, -27), true)
	overdueReminded := unpaidOrder("000004", now.AddDate(0, 0, -20), false)
	overdueReminded.LastPaymentReminder = &already
	cancelled := unpaidOrder("000005", now.AddDate(0, 0, -7), false)
	cancelled.Status = order.StatusCancelled

	orders := &fakeOrders{
		orders:   []order.Order{dueToday, dueIn2, creditDueIn3, overdueReminded, cancelled},
		reminded: map[id.ID]string{},
	}
	notifier := &fakeNotifier{}
	d := NewDues(orders, &fakePOs{reminded: map[id.ID]string{}}, nil, notifier, fiscal.IST())
	d.now = func() time.Time { return now }

	sent, err := d.Customers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, today, orders.reminded[dueToday.ID])
	assert.Equal(t, today, orders.reminded[creditDueIn3.ID])
	require.Len(t, notifier.customer, 2)
	assert.Contains(t, notifier.customer[0].Body, "₹5000.00")
	assert.Contains(t, notifier.customer[0].Body, "is due today")
	assert.Contains(t, notifier.customer[1].Body, "is due in 3 days")
}

type fakeTerms struct {
	profiles map[id.ID]*customer.Customer
	lookups  int
}

func (f *fakeTerms) Get(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	f.lookups++
	c, ok := f.profiles[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	return c, nil
}

func TestOrderDueDate(t *testing.T) {
	created := time.Date(2024, 9, 1, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		credit  bool
		profile *customer.Customer
		days    int
	}{
		{"cash order without profile", false, nil, cashDueDays},
		{"credit order without profile", true, nil, creditDueDays},
		{"profile credit days", false, &customer.Customer{CreditType: customer.CreditAllowed, CreditDays: 45}, 45},
		{"profile credit without days", false, &customer.Customer{CreditType: customer.CreditAllowed}, creditDueDays},
		{"cash only profile overrides flag", true, &customer.Customer{CreditType: customer.CreditCashOnly, CreditDays: 60}, cashDueDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := unpaidOrder("000001", created, tt.credit)
			assert.Equal(t, created.AddDate(0, 0, tt.days), OrderDueDate(&o, tt.profile))
		})
	}
}

func TestDues_CustomerProfileTerms(t *testing.T) {
	now := time.Date(2024, 9, 10, 3, 30, 0, 0, time.UTC)
	today := "2024-09-10"

	profileID := id.New()
	missingID := id.New()
	terms := &fakeTerms{profiles: map[id.ID]*customer.Customer{
		profileID: {CreditType: customer.CreditAllowed, CreditDays: 15},
	}}

	// Due today on 15 day terms; the order flag alone would give 30.
	first := unpaidOrder("000001", now.AddDate(0, 0, -15), true)
	first.CustomerProfileID = &profileID
	// Same profile, due in 3 days.
	second := unpaidOrder("000002", now.AddDate(0, 0, -12), true)
	second.CustomerProfileID = &profileID
	// Unknown profile falls back to the cash term: due today.
	orphan := unpaidOrder("000003", now.AddDate(0, 0, -7), false)
	orphan.CustomerProfileID = &missingID

	orders := &fakeOrders{orders: []order.Order{first, second, orphan}, reminded: map[id.ID]string{}}
	notifier := &fakeNotifier{}
	d := NewDues(orders, nil, terms, notifier, fiscal.IST())
	d.now = func() time.Time { return now }

	sent, err := d.Customers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, today, orders.reminded[first.ID])
	assert.Equal(t, today, orders.reminded[orphan.ID])
	assert.Equal(t, 2, terms.lookups, "profiles are looked up once per run")
	require.Len(t, notifier.customer, 3)
	assert.Contains(t, notifier.customer[0].Body, "is due today")
	assert.Contains(t, notifier.customer[1].Body, "is due in 3 days")
}

func TestDues_FailedDeliveryNotMarked(t *testing.T) {
	now := time.Date(2024, 9, 10, 3, 30, 0, 0, time.UTC)
	o := unpaidOrder("000001", now.AddDate(0, 0, -8), false)
	orders := &fakeOrders{orders: []order.Order{o}, reminded: map[id.ID]string{}}
	d := NewDues(orders, nil, nil, &fakeNotifier{fail: true}, fiscal.IST())
	d.now = func() time.Time { return now }

	sent, err := d.Customers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, orders.reminded)
}

func TestDues_Vendors(t *testing.T) {
	now := time.Date(2024, 9, 10, 3, 30, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 1)
	po := purchase.PurchaseOrder{
		Document:           entity.NewDocument("u1"),
		PONumber:           "PO-20240815-000001",
		VendorName:         "Saint Glass",
		Status:             purchase.StatusApproved,
		OutstandingBalance: types.PaiseFromRupees(42000),
		DueDate:            &due,
	}
	received := po
	received.ID = id.New()
	received.Status = purchase.StatusReceived

	pos := &fakePOs{pos: []purchase.PurchaseOrder{po, received}, reminded: map[id.ID]string{}}
	notifier := &fakeNotifier{}
	d := NewDues(nil, pos, nil, notifier, fiscal.IST())
	d.now = func() time.Time { return now }

	sent, err := d.Vendors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, notifier.admin, 1)
	assert.Equal(t, "Vendor payment due: PO-20240815-000001", notifier.admin[0].Subject)
	assert.Contains(t, notifier.admin[0].Body, "is due tomorrow")
}

type fakeCash struct{ window reports.Window }

func (f *fakeCash) CashFor(ctx context.Context, w reports.Window) (*reports.CashReport, error) {
	f.window = w
	return &reports.CashReport{Window: w}, nil
}

func TestCashReporter_PreviousPeriod(t *testing.T) {
	cash := &fakeCash{}
	mailer := &fakeNotifier{}
	r := NewCashReporter(cash, mailer, []string{"owner@example.com"}, fiscal.IST())
	r.now = func() time.Time { return time.Date(2024, 9, 9, 5, 0, 0, 0, ist) }

	require.NoError(t, r.Send(context.Background(), reports.PeriodWeekly))
	assert.Equal(t, "2024-09-02 to 2024-09-08", cash.window.Label)
	require.Len(t, mailer.email, 1)
	assert.True(t, strings.HasPrefix(mailer.email[0].Subject, "Cash report (weekly)"))

	require.NoError(t, r.Send(context.Background(), reports.PeriodDaily))
	assert.Equal(t, "2024-09-08", cash.window.Label)

	mailer.fail = true
	assert.Error(t, r.Send(context.Background(), reports.PeriodMonthly))
}

type fakeLocker struct {
	held     bool
	released int
}

func (f *fakeLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if f.held {
		return nil, false, nil
	}
	return func(context.Context) error { f.released++; return nil }, true, nil
}

type recorder struct{ runs map[string]error }

func (r *recorder) JobRun(name string, d time.Duration, err error) { r.runs[name] = err }

func TestRunOnce_Lock(t *testing.T) {
	locker := &fakeLocker{}
	rec := &recorder{runs: map[string]error{}}
	runs := 0
	job := Job{Name: "flaky", Schedule: Every(time.Hour), Run: func(ctx context.Context) error {
		runs++
		return errors.New("boom")
	}}
	s := New(locker, rec, job)

	s.RunOnce(context.Background(), job)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, locker.released)
	assert.EqualError(t, rec.runs["flaky"], "boom")

	locker.held = true
	s.RunOnce(context.Background(), job)
	assert.Equal(t, 1, runs)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(nil, nil, Job{Name: "idle", Schedule: Every(time.Hour), Run: func(context.Context) error { return nil }})
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

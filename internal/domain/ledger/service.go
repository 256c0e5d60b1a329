package ledger

import (
	"context"
	"fmt"
	"time"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/events"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/pkg/logger"
)

// Repository persists postings. Implementations must make Append atomic and
// idempotent on (event_type, document_id, variant).
type Repository interface {
	// Append stores the posting and its entries. It returns false without
	// writing when a posting with the same key already exists.
	Append(ctx context.Context, p *Posting) (bool, error)

	// PostingsByGroup returns every posting of a group with its entries.
	PostingsByGroup(ctx context.Context, groupID id.ID) ([]Posting, error)

	// MarkReversed flags postings as reversed.
	MarkReversed(ctx context.Context, ids []id.ID) error

	// Entries returns entries matching f ordered by (date, created_at, id).
	Entries(ctx context.Context, f EntryFilter) ([]Entry, error)

	// PartyBalanceBefore returns debit minus credit of a party before t.
	PartyBalanceBefore(ctx context.Context, partyID id.ID, t time.Time) (types.Paise, error)

	// PartyBalances sums entries per party of the given type.
	PartyBalances(ctx context.Context, partyType PartyType) ([]PartyBalance, error)

	// AccountTotals sums debits and credits per account over [from, to).
	AccountTotals(ctx context.Context, from, to time.Time) ([]AccountTotal, error)
}

// Service posts events to the ledger and answers ledger queries.
type Service struct {
	repo              Repository
	mapper            *Mapper
	calendar          *fiscal.Calendar
	defaultCreditDays int
}

// NewService creates the ledger service.
func NewService(repo Repository, calendar *fiscal.Calendar) *Service {
	return &Service{
		repo:              repo,
		mapper:            NewMapper(calendar),
		calendar:          calendar,
		defaultCreditDays: 7,
	}
}

// Subscribe registers the ledger as an in-transaction observer: a posting
// failure rolls back the document change that raised the event.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.InTx, "ledger", s.Handle,
		events.NameInvoiceIssued,
		events.NameOrderPaymentReceived,
		events.NameInvoicePaymentRecorded,
		events.NamePurchaseOrderReceived,
		events.NameVendorPaymentCompleted,
		events.NameOpeningBalanceSet,
		events.NameJobWorkPaymentRecorded,
		events.NameJobWorkStatusChanged,
		events.NameOrderCancelled,
	)
}

// Handle maps one event and appends the resulting posting.
func (s *Service) Handle(ctx context.Context, e events.Event) error {
	if c, ok := e.(events.OrderCancelled); ok {
		return s.reverse(ctx, c)
	}

	p, err := s.mapper.Map(e)
	if err != nil {
		return apperror.NewInternal(err)
	}
	if p == nil {
		return nil
	}
	return s.post(ctx, p)
}

// Post appends a balanced posting. Replays of the same key are ignored.
func (s *Service) Post(ctx context.Context, p *Posting) error {
	if !p.Balanced() {
		d, c := p.Totals()
		return apperror.NewValidation(fmt.Sprintf("posting %s is unbalanced: debit %s, credit %s", p.Reference, d, c))
	}
	return s.post(ctx, p)
}

func (s *Service) post(ctx context.Context, p *Posting) error {
	inserted, err := s.repo.Append(ctx, p)
	if err != nil {
		return fmt.Errorf("append posting %s/%s: %w", p.EventType, p.DocumentID, err)
	}
	if !inserted {
		logger.Debug(ctx, "ledger posting already present",
			"event", p.EventType,
			"document_id", p.DocumentID,
			"variant", p.Variant,
		)
		return nil
	}
	logger.Info(ctx, "ledger posted",
		"event", p.EventType,
		"reference", p.Reference,
		"entries", len(p.Entries),
	)
	return nil
}

func (s *Service) reverse(ctx context.Context, ev events.OrderCancelled) error {
	originals, err := s.repo.PostingsByGroup(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("load postings of %s: %w", ev.OrderNumber, err)
	}
	p := s.mapper.Reversal(ev, originals)
	if p == nil {
		return nil
	}

	inserted, err := s.repo.Append(ctx, p)
	if err != nil {
		return fmt.Errorf("append reversal of %s: %w", ev.OrderNumber, err)
	}
	if !inserted {
		return nil
	}

	ids := make([]id.ID, 0, len(originals))
	for _, o := range originals {
		if !o.Reversed {
			ids = append(ids, o.ID)
		}
	}
	if err := s.repo.MarkReversed(ctx, ids); err != nil {
		return fmt.Errorf("mark reversed: %w", err)
	}
	logger.Info(ctx, "ledger reversed", "order", ev.OrderNumber, "postings", len(ids))
	return nil
}

// PartyStatement returns a party ledger with running balance. A nil from
// starts at the first entry.
func (s *Service) PartyStatement(ctx context.Context, partyID id.ID, from, to *time.Time) (*PartyStatement, error) {
	var opening types.Paise
	if from != nil {
		var err error
		opening, err = s.repo.PartyBalanceBefore(ctx, partyID, *from)
		if err != nil {
			return nil, err
		}
	}
	entries, err := s.repo.Entries(ctx, EntryFilter{PartyID: &partyID, From: from, To: to})
	if err != nil {
		return nil, err
	}

	st := &PartyStatement{
		PartyID:        partyID,
		OpeningBalance: opening,
		ClosingBalance: opening,
		Lines:          RunningBalance(opening, entries),
	}
	for _, e := range entries {
		st.TotalDebit += e.Debit
		st.TotalCredit += e.Credit
	}
	if n := len(st.Lines); n > 0 {
		st.ClosingBalance = st.Lines[n-1].Balance
	}
	return st, nil
}

// GeneralLedger lists entries in posting order.
func (s *Service) GeneralLedger(ctx context.Context, f EntryFilter) ([]Entry, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 500
	}
	return s.repo.Entries(ctx, f)
}

// Outstanding returns the balance of every party of a type with a non-zero balance.
func (s *Service) Outstanding(ctx context.Context, partyType PartyType) ([]PartyBalance, error) {
	if partyType == PartyGL {
		return nil, apperror.NewFieldValidation("party_type", "party_type must be customer or vendor")
	}
	rows, err := s.repo.PartyBalances(ctx, partyType)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		if r.Balance != 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// PartyBalance returns the current balance of one party.
func (s *Service) PartyBalance(ctx context.Context, partyID id.ID) (types.Paise, error) {
	return s.repo.PartyBalanceBefore(ctx, partyID, time.Now().UTC().Add(time.Second))
}

// Ageing buckets open receivables or payables as of asOf.
func (s *Service) Ageing(ctx context.Context, partyType PartyType, asOf time.Time) (AgeingReport, error) {
	if partyType == PartyGL {
		return AgeingReport{}, apperror.NewFieldValidation("party_type", "party_type must be customer or vendor")
	}
	entries, err := s.repo.Entries(ctx, EntryFilter{PartyType: partyType, To: &asOf})
	if err != nil {
		return AgeingReport{}, err
	}
	return Age(s.calendar, partyType, entries, asOf, s.defaultCreditDays), nil
}

// TrialBalance sums every account over a fiscal year.
func (s *Service) TrialBalance(ctx context.Context, fy fiscal.Year) (*TrialBalance, error) {
	from, to := s.calendar.YearRange(fy)
	rows, err := s.repo.AccountTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	tb := &TrialBalance{FiscalYear: fy.String(), Accounts: rows}
	for _, r := range rows {
		tb.TotalDebit += r.Debit
		tb.TotalCredit += r.Credit
	}
	tb.Balanced = tb.TotalDebit == tb.TotalCredit
	return tb, nil
}

// GSTReport aggregates tax accounts for a month given as YYYY-MM.
func (s *Service) GSTReport(ctx context.Context, month string) (*GSTReport, error) {
	from, to, err := s.calendar.MonthRange(month)
	if err != nil {
		return nil, apperror.NewFieldValidation("month", err.Error())
	}
	rows, err := s.repo.AccountTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return BuildGSTReport(month, rows), nil
}

// BuildGSTReport derives the report from account totals. Output accounts
// carry credits, input and purchase accounts carry debits.
func BuildGSTReport(month string, rows []AccountTotal) *GSTReport {
	r := &GSTReport{Month: month}
	for _, a := range rows {
		net := a.Credit - a.Debit
		switch a.Account {
		case AccountCGSTOutput:
			r.OutputCGST = net
		case AccountSGSTOutput:
			r.OutputSGST = net
		case AccountIGSTOutput:
			r.OutputIGST = net
		case AccountGSTOutput:
			r.OutputGST = net
		case AccountGSTInput:
			r.InputGST = -net
		case AccountSales, AccountJobWorkIncome:
			r.Sales += net
		case AccountPurchase:
			r.Purchases = -net
		}
	}
	r.TotalOut = r.OutputCGST + r.OutputSGST + r.OutputIGST + r.OutputGST
	r.NetPayable = r.TotalOut - r.InputGST
	return r
}

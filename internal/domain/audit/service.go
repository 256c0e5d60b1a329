package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/events"
	"glasserp/internal/core/fiscal"
	"glasserp/pkg/logger"
)

// Repository stores audit entries. There is no update or delete.
type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) ([]Entry, int, error)
	ActivityCounts(ctx context.Context, from, to time.Time) ([]ActivityCount, error)
}

// Service records and reports audit entries.
type Service struct {
	repo     Repository
	calendar *fiscal.Calendar
	now      func() time.Time
}

// NewService creates the audit service.
func NewService(repo Repository, calendar *fiscal.Calendar) *Service {
	return &Service{
		repo:     repo,
		calendar: calendar,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe records Audited events inside the unit of work that raised them,
// so the entry commits or rolls back with the change.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.InTx, "audit", s.handle, events.NameAudited)
}

func (s *Service) handle(ctx context.Context, e events.Event) error {
	a, ok := e.(events.Audited)
	if !ok {
		return nil
	}
	return s.Record(ctx, Action(a.Action), a.Module, a.RecordID, a.OldData, a.NewData)
}

// Record appends one entry for the current actor.
func (s *Service) Record(ctx context.Context, action Action, module, recordID string, oldData, newData any) error {
	if !action.Valid() {
		return apperror.NewValidation(fmt.Sprintf("unknown audit action %q", action))
	}
	oldJSON, err := snapshot(oldData)
	if err != nil {
		return err
	}
	newJSON, err := snapshot(newData)
	if err != nil {
		return err
	}

	entry := &Entry{
		Action:   action,
		Module:   module,
		RecordID: recordID,
		OldData:  oldJSON,
		NewData:  newJSON,
	}
	enrich(ctx, s.calendar, entry, s.now())

	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	logger.Debug(ctx, "audit recorded", "action", action, "module", module, "record_id", recordID)
	return nil
}

// List returns entries newest first with the total count.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Action != "" && !f.Action.Valid() {
		return nil, 0, apperror.NewFieldValidation("action", fmt.Sprintf("unknown action %q", f.Action))
	}
	return s.repo.List(ctx, f)
}

// DailyActivity summarises one local day given as YYYY-MM-DD.
func (s *Service) DailyActivity(ctx context.Context, day string) (*DailyActivity, error) {
	from, to, err := s.calendar.DayRange(day)
	if err != nil {
		return nil, apperror.NewFieldValidation("date", err.Error())
	}
	counts, err := s.repo.ActivityCounts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.repo.List(ctx, Filter{From: &from, To: &to, Limit: 20})
	if err != nil {
		return nil, err
	}

	users := summariseUsers(counts)
	report := &DailyActivity{
		Date:        day,
		ActiveUsers: len(users),
		Users:       users,
		Recent:      recent,
	}
	for _, u := range users {
		report.TotalActions += u.Total
	}
	return report, nil
}

// MonthlyMIS summarises one local month given as YYYY-MM.
func (s *Service) MonthlyMIS(ctx context.Context, month string) (*MonthlyMIS, error) {
	from, to, err := s.calendar.MonthRange(month)
	if err != nil {
		return nil, apperror.NewFieldValidation("month", err.Error())
	}
	counts, err := s.repo.ActivityCounts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return BuildMIS(month, counts, 10), nil
}

// BuildMIS aggregates activity counts into the monthly summary keeping the
// topN most active users.
func BuildMIS(month string, counts []ActivityCount, topN int) *MonthlyMIS {
	mis := &MonthlyMIS{
		Month:    month,
		ByModule: make(map[string]int),
		ByAction: make(map[Action]int),
		ByDay:    make(map[string]int),
	}
	for _, c := range counts {
		mis.TotalActions += c.Count
		mis.ByModule[c.Module] += c.Count
		mis.ByAction[c.Action] += c.Count
		mis.ByDay[c.Date] += c.Count
	}
	users := summariseUsers(counts)
	mis.ActiveUsers = len(users)
	if len(users) > topN {
		users = users[:topN]
	}
	mis.TopUsers = users
	return mis
}

// summariseUsers folds counts per user, most active first.
func summariseUsers(counts []ActivityCount) []UserActivity {
	byUser := make(map[string]*UserActivity)
	for _, c := range counts {
		u, ok := byUser[c.UserID]
		if !ok {
			u = &UserActivity{
				UserID:   c.UserID,
				UserName: c.UserName,
				UserRole: c.UserRole,
				ByAction: make(map[Action]int),
				ByModule: make(map[string]int),
			}
			byUser[c.UserID] = u
		}
		u.Total += c.Count
		u.ByAction[c.Action] += c.Count
		u.ByModule[c.Module] += c.Count
	}

	out := make([]UserActivity, 0, len(byUser))
	for _, u := range byUser {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

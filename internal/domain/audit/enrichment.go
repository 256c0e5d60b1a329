package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
)

// enrich stamps the actor taken from the request context and the local
// calendar keys. Background jobs without a user are recorded as "system".
func enrich(ctx context.Context, cal *fiscal.Calendar, e *Entry, now time.Time) {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if u := appctx.GetUser(ctx); u != nil {
		if e.UserID == "" {
			e.UserID = u.UserID
		}
		if e.UserName == "" {
			e.UserName = u.Name
			if e.UserName == "" {
				e.UserName = u.Email
			}
		}
		if e.UserRole == "" {
			e.UserRole = u.Role
		}
		if e.IP == "" {
			e.IP = u.IP
		}
	}
	if e.UserID == "" {
		e.UserID = "system"
		e.UserName = "system"
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	e.Timestamp = e.Timestamp.UTC()
	local := cal.Local(e.Timestamp)
	e.Date = local.Format("2006-01-02")
	e.Month = local.Format("2006-01")
	e.Year = local.Format("2006")
}

// snapshot serialises an old/new value. Raw JSON passes through untouched.
func snapshot(v any) (json.RawMessage, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return s, nil
	case []byte:
		return json.RawMessage(s), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}

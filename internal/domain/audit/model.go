// Package audit keeps the immutable trail of mutating actions. Every staged
// Audited event becomes exactly one entry inside the same transaction.
package audit

import (
	"encoding/json"
	"time"

	"glasserp/internal/core/id"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionLogin        Action = "login"
	ActionLogout       Action = "logout"
	ActionStatusChange Action = "status_change"
	ActionOrderConfirm Action = "order_confirm"
	ActionPayment      Action = "payment"
	ActionExport       Action = "export"
	ActionPrint        Action = "print"
	ActionView         Action = "view"
)

var actions = map[Action]struct{}{
	ActionCreate: {}, ActionUpdate: {}, ActionDelete: {}, ActionApprove: {}, ActionReject: {},
	ActionLogin: {}, ActionLogout: {}, ActionStatusChange: {}, ActionOrderConfirm: {},
	ActionPayment: {}, ActionExport: {}, ActionPrint: {}, ActionView: {},
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := actions[a]
	return ok
}

// Entry is one audit record. Date, Month and Year are local calendar keys
// (YYYY-MM-DD, YYYY-MM, YYYY) used by the activity reports.
type Entry struct {
	ID        id.ID           `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	UserName  string          `db:"user_name" json:"user_name"`
	UserRole  string          `db:"user_role" json:"user_role"`
	Action    Action          `db:"action" json:"action"`
	Module    string          `db:"module" json:"module"`
	RecordID  string          `db:"record_id" json:"record_id,omitempty"`
	OldData   json.RawMessage `db:"-" json:"old_data,omitempty"`
	NewData   json.RawMessage `db:"-" json:"new_data,omitempty"`
	IP        string          `db:"ip" json:"ip,omitempty"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
	Date      string          `db:"date" json:"date"`
	Month     string          `db:"month" json:"month"`
	Year      string          `db:"year" json:"year"`
}

// Filter selects audit entries.
type Filter struct {
	UserID   string
	Module   string
	Action   Action
	RecordID string
	From     *time.Time
	To       *time.Time
	Limit    int
	Skip     int
}

// ActivityCount is the number of actions of one kind by one user on one day.
type ActivityCount struct {
	Date     string `db:"date" json:"date"`
	UserID   string `db:"user_id" json:"user_id"`
	UserName string `db:"user_name" json:"user_name"`
	UserRole string `db:"user_role" json:"user_role"`
	Module   string `db:"module" json:"module"`
	Action   Action `db:"action" json:"action"`
	Count    int    `db:"count" json:"count"`
}

// UserActivity summarises one user's actions over a period.
type UserActivity struct {
	UserID   string         `json:"user_id"`
	UserName string         `json:"user_name"`
	UserRole string         `json:"user_role"`
	Total    int            `json:"total_actions"`
	ByAction map[Action]int `json:"by_action"`
	ByModule map[string]int `json:"by_module"`
}

// DailyActivity is the per-user breakdown of one local day.
type DailyActivity struct {
	Date         string         `json:"date"`
	TotalActions int            `json:"total_actions"`
	ActiveUsers  int            `json:"active_users"`
	Users        []UserActivity `json:"users"`
	Recent       []Entry        `json:"recent_entries"`
}

// MonthlyMIS is the management summary of one local month.
type MonthlyMIS struct {
	Month        string         `json:"month"`
	TotalActions int            `json:"total_actions"`
	ActiveUsers  int            `json:"active_users"`
	ByModule     map[string]int `json:"by_module"`
	ByAction     map[Action]int `json:"by_action"`
	ByDay        map[string]int `json:"by_day"`
	TopUsers     []UserActivity `json:"top_users"`
}

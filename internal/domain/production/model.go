// Package production tracks job cards through the factory floor and the
// breakages recorded on the way.
package production

import (
	"slices"
	"strings"
	"time"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// Stage of a job card.
type Stage string

const (
	StagePending      Stage = "pending"
	StageCutting      Stage = "cutting"
	StagePolishing    Stage = "polishing"
	StageGrinding     Stage = "grinding"
	StageToughening   Stage = "toughening"
	StageQualityCheck Stage = "quality_check"
	StagePacking      Stage = "packing"
	StageDispatched   Stage = "dispatched"
)

// Stages in floor order.
var Stages = []Stage{
	StagePending, StageCutting, StagePolishing, StageGrinding,
	StageToughening, StageQualityCheck, StagePacking, StageDispatched,
}

// ParseStage validates s.
func ParseStage(s string) (Stage, bool) {
	st := Stage(strings.TrimSpace(s))
	return st, slices.Contains(Stages, st)
}

// Rank is the position of the stage on the floor, -1 when unknown.
func (s Stage) Rank() int {
	return slices.Index(Stages, s)
}

// Priority of a job card.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates s; empty means normal.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.TrimSpace(s)); p {
	case "":
		return PriorityNormal, true
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return p, true
	}
	return "", false
}

// JobCard follows one sales order through production.
type JobCard struct {
	entity.Document

	JobCardNumber   string              `db:"job_card_number" json:"job_card_number"`
	OrderID         id.ID               `db:"order_id" json:"order_id"`
	OrderNumber     string              `db:"order_number" json:"order_number"`
	CustomerName    string              `db:"customer_name" json:"customer_name"`
	Specification   string              `db:"specification" json:"specification"`
	Quantity        int                 `db:"quantity" json:"quantity"`
	CurrentStage    Stage               `db:"current_stage" json:"current_stage"`
	StageTimestamps map[Stage]time.Time `db:"stage_timestamps" json:"stage_timestamps"`
	Priority        Priority            `db:"priority" json:"priority"`
	AssignedTo      *string             `db:"assigned_to" json:"assigned_to,omitempty"`
	Notes           string              `db:"notes" json:"notes,omitempty"`
	CompletedAt     *time.Time          `db:"completed_at" json:"completed_at,omitempty"`
}

// MoveTo advances the card. Stages only move forward; a stage that does not
// apply to the glass (toughening for plain float) may be skipped.
func (c *JobCard) MoveTo(to Stage, at time.Time) error {
	if to.Rank() < 0 {
		return apperror.NewFieldValidation("stage", "unknown stage "+string(to))
	}
	if to.Rank() <= c.CurrentStage.Rank() {
		return apperror.NewInvalidTransition("job card", string(c.CurrentStage), string(to))
	}
	if c.StageTimestamps == nil {
		c.StageTimestamps = map[Stage]time.Time{}
	}
	c.CurrentStage = to
	c.StageTimestamps[to] = at
	if to == StageDispatched {
		c.CompletedAt = &at
	}
	return nil
}

// BreakageStatus of a breakage entry.
type BreakageStatus string

const (
	BreakagePending  BreakageStatus = "pending_approval"
	BreakageApproved BreakageStatus = "approved"
	BreakageRejected BreakageStatus = "rejected"
)

// Breakage is glass broken on the floor, waiting for a supervisor's sign-off.
type Breakage struct {
	entity.Document

	JobCardID     *id.ID         `db:"job_card_id" json:"job_card_id,omitempty"`
	JobCardNumber *string        `db:"job_card_number" json:"job_card_number,omitempty"`
	OrderID       *id.ID         `db:"order_id" json:"order_id,omitempty"`
	Stage         Stage          `db:"stage" json:"stage"`
	Operator      string         `db:"operator" json:"operator"`
	Quantity      int            `db:"quantity" json:"quantity"`
	CostPerUnit   types.Paise    `db:"cost_per_unit" json:"cost_per_unit"`
	TotalLoss     types.Paise    `db:"total_loss" json:"total_loss"`
	Reason        string         `db:"reason" json:"reason"`
	Status        BreakageStatus `db:"status" json:"status"`
	ReviewedBy    *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote    string         `db:"review_note" json:"review_note,omitempty"`
}

// Validate checks the entry before it is stored.
func (b *Breakage) Validate() error {
	if b.Stage.Rank() < 0 || b.Stage == StageDispatched {
		return apperror.NewFieldValidation("stage", "breakage stage must be a floor stage")
	}
	if strings.TrimSpace(b.Operator) == "" {
		return apperror.NewFieldValidation("operator", "operator is required")
	}
	if b.Quantity <= 0 {
		return apperror.NewFieldValidation("quantity", "quantity must be positive")
	}
	if b.CostPerUnit.IsNegative() {
		return apperror.NewFieldValidation("cost_per_unit", "cost_per_unit cannot be negative")
	}
	return nil
}

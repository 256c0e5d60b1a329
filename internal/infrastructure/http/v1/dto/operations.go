package dto

import (
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/jobwork"
	"glasserp/internal/domain/production"
	"glasserp/internal/domain/settings"
	"glasserp/internal/domain/transport"
)

// CutoutRequest is a hole or shape cut into a pane. Sizes are inches.
type CutoutRequest struct {
	Shape    string  `json:"shape" binding:"required,max=30"`
	Diameter float64 `json:"diameter_inch" binding:"omitempty,gt=0"`
	Width    float64 `json:"width_inch" binding:"omitempty,gt=0"`
	Height   float64 `json:"height_inch" binding:"omitempty,gt=0"`
	Count    int     `json:"count" binding:"required,gt=0"`
}

// JobWorkItemRequest is one pane size brought in for processing.
type JobWorkItemRequest struct {
	ThicknessMM int             `json:"thickness_mm" binding:"required,gt=0"`
	WidthInch   float64         `json:"width_inch" binding:"required,gt=0"`
	HeightInch  float64         `json:"height_inch" binding:"required,gt=0"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	Cutouts     []CutoutRequest `json:"cutouts" binding:"omitempty,dive"`
}

// JobWorkQuoteRequest prices items without saving.
type JobWorkQuoteRequest struct {
	Items []JobWorkItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToItems converts to domain items.
func (r *JobWorkQuoteRequest) ToItems() []jobwork.Item {
	items := make([]jobwork.Item, len(r.Items))
	for i, it := range r.Items {
		cutouts := make([]jobwork.Cutout, len(it.Cutouts))
		for j, c := range it.Cutouts {
			cutouts[j] = jobwork.Cutout{Shape: c.Shape, Diameter: c.Diameter, Width: c.Width, Height: c.Height, Count: c.Count}
		}
		items[i] = jobwork.Item{
			ThicknessMM: it.ThicknessMM,
			WidthInch:   it.WidthInch,
			HeightInch:  it.HeightInch,
			Quantity:    it.Quantity,
			Cutouts:     cutouts,
		}
	}
	return items
}

// CreateJobWorkRequest books a job-work order.
type CreateJobWorkRequest struct {
	JobWorkQuoteRequest
	CustomerName       string      `json:"customer_name" binding:"required,max=200"`
	Phone              string      `json:"phone" binding:"required,in_mobile"`
	DisclaimerAccepted bool        `json:"disclaimer_accepted"`
	Notes              string      `json:"notes" binding:"omitempty,max=1000"`
	InitialPayment     types.Paise `json:"initial_payment" binding:"omitempty,min=0"`
	PaymentMethod      string      `json:"payment_method" binding:"omitempty,oneof=cash upi bank_transfer card"`
}

// ToInput converts to the service input.
func (r *CreateJobWorkRequest) ToInput() jobwork.CreateInput {
	return jobwork.CreateInput{
		CustomerName:       r.CustomerName,
		Phone:              r.Phone,
		Items:              r.ToItems(),
		DisclaimerAccepted: r.DisclaimerAccepted,
		Notes:              r.Notes,
		InitialPayment:     r.InitialPayment,
		PaymentMethod:      r.PaymentMethod,
	}
}

// JobWorkPaymentRequest records money received.
type JobWorkPaymentRequest struct {
	Amount types.Paise `json:"amount" binding:"required,gt=0"`
	Method string      `json:"method" binding:"omitempty,oneof=cash upi bank_transfer card"`
}

// StatusNoteRequest moves a document to status with an optional note.
type StatusNoteRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"omitempty,max=500"`
}

// LabourRatesRequest replaces the per-thickness labour rates.
type LabourRatesRequest struct {
	settings.JobWorkPricing
}

// JobCardRequest opens a production job card for an order.
type JobCardRequest struct {
	OrderID    id.ID   `json:"order_id" binding:"required"`
	Priority   string  `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	AssignedTo *string `json:"assigned_to" binding:"omitempty,max=120"`
	Notes      string  `json:"notes" binding:"omitempty,max=1000"`
}

// ToInput converts to the service input.
func (r *JobCardRequest) ToInput() production.CreateInput {
	return production.CreateInput{
		OrderID:    r.OrderID,
		Priority:   r.Priority,
		AssignedTo: r.AssignedTo,
		Notes:      r.Notes,
	}
}

// StageRequest moves a job card to the next stage.
type StageRequest struct {
	Stage string `json:"stage" binding:"required"`
	Note  string `json:"note" binding:"omitempty,max=500"`
}

// BreakageRequest reports broken pieces.
type BreakageRequest struct {
	JobCardID   *id.ID      `json:"job_card_id"`
	OrderID     *id.ID      `json:"order_id"`
	Stage       string      `json:"stage" binding:"required"`
	Operator    string      `json:"operator" binding:"required,max=120"`
	Quantity    int         `json:"quantity" binding:"required,gt=0"`
	CostPerUnit types.Paise `json:"cost_per_unit" binding:"omitempty,min=0"`
	Reason      string      `json:"reason" binding:"required,max=500"`
}

// ToInput converts to the service input.
func (r *BreakageRequest) ToInput() production.BreakageInput {
	return production.BreakageInput{
		JobCardID:   r.JobCardID,
		OrderID:     r.OrderID,
		Stage:       r.Stage,
		Operator:    r.Operator,
		Quantity:    r.Quantity,
		CostPerUnit: r.CostPerUnit,
		Reason:      r.Reason,
	}
}

// BreakageReviewRequest approves or rejects a breakage report.
type BreakageReviewRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note" binding:"omitempty,max=500"`
}

// LocationRequest is a WGS84 point.
type LocationRequest struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lng float64 `json:"lng" binding:"min=-180,max=180"`
}

// TransportCostRequest prices delivery to a location.
type TransportCostRequest struct {
	DeliveryLocation LocationRequest `json:"delivery_location" binding:"required"`
	TotalSqft        float64         `json:"total_sqft" binding:"omitempty,min=0"`
	IncludeGST       bool            `json:"include_gst"`
}

// ToRequest converts to the calculator input.
func (r *TransportCostRequest) ToRequest() transport.Request {
	return transport.Request{
		Destination: settings.Location{Lat: r.DeliveryLocation.Lat, Lng: r.DeliveryLocation.Lng},
		TotalSqft:   r.TotalSqft,
		IncludeGST:  r.IncludeGST,
	}
}

// AuditQuery filters the audit trail.
type AuditQuery struct {
	UserID   string `form:"user_id"`
	Module   string `form:"module"`
	Action   string `form:"action"`
	RecordID string `form:"record_id"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Skip     int    `form:"skip" binding:"omitempty,min=0"`
	Format   string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

// CashReportQuery selects a cash report window.
type CashReportQuery struct {
	Period string `form:"period" binding:"omitempty,oneof=daily weekly monthly"`
	Date   string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// DayQuery names a local day; empty means today.
type DayQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// MISQuery selects the month of an activity summary.
type MISQuery struct {
	Month  string `form:"month" binding:"required,datetime=2006-01"`
	Format string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

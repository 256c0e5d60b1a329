package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"glasserp/internal/core/apperror"
	"glasserp/internal/domain/jobwork"
	"glasserp/internal/domain/production"
	"glasserp/internal/domain/settings"
	"glasserp/internal/infrastructure/http/v1/dto"
)

// JobWorkHandler serves glass brought in by walk-in customers for
// processing.
type JobWorkHandler struct {
	*BaseHandler
	service  JobWorkService
	settings SettingsService
}

// NewJobWorkHandler creates a new job-work handler.
func NewJobWorkHandler(base *BaseHandler, service JobWorkService, settings SettingsService) *JobWorkHandler {
	return &JobWorkHandler{BaseHandler: base, service: service, settings: settings}
}

// LabourRates handles GET /erp/job-work/labour-rates
func (h *JobWorkHandler) LabourRates(c *gin.Context) {
	rates, err := h.service.LabourRates(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rates)
}

// SetLabourRates handles PUT /erp/job-work/labour-rates
func (h *JobWorkHandler) SetLabourRates(c *gin.Context) {
	var req dto.LabourRatesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	data, err := json.Marshal(req.JobWorkPricing)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	doc, err := h.settings.Put(c.Request.Context(), settings.TypeJobWorkPricing, data)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Calculate handles POST /erp/job-work/calculate
func (h *JobWorkHandler) Calculate(c *gin.Context) {
	var req dto.JobWorkQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	quote, err := h.service.Quote(c.Request.Context(), req.ToItems())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, quote)
}

// Create handles POST /erp/job-work/orders
func (h *JobWorkHandler) Create(c *gin.Context) {
	var req dto.CreateJobWorkRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// List handles GET /erp/job-work/orders
func (h *JobWorkHandler) List(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /erp/job-work/orders/:id
func (h *JobWorkHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// UpdateStatus handles PATCH /erp/job-work/orders/:id/status
func (h *JobWorkHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.StatusNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	to, valid := jobwork.ParseStatus(req.Status)
	if !valid {
		h.Error(c, apperror.NewFieldValidation("status", "unknown job-work status "+req.Status))
		return
	}
	result, err := h.service.UpdateStatus(c.Request.Context(), orderID, to, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// RecordPayment handles POST /erp/job-work/orders/:id/payment
func (h *JobWorkHandler) RecordPayment(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.JobWorkPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.RecordPayment(c.Request.Context(), orderID, req.Amount, req.Method)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// DeliverySlip handles POST /erp/job-work/orders/:id/delivery-slip
func (h *JobWorkHandler) DeliverySlip(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.DeliverySlip(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// ProductionHandler serves job cards and breakage reports.
type ProductionHandler struct {
	*BaseHandler
	service ProductionService
}

// NewProductionHandler creates a new production handler.
func NewProductionHandler(base *BaseHandler, service ProductionService) *ProductionHandler {
	return &ProductionHandler{BaseHandler: base, service: service}
}

// CreateJobCard handles POST /erp/production/job-cards
func (h *ProductionHandler) CreateJobCard(c *gin.Context) {
	var req dto.JobCardRequest
	if !h.BindJSON(c, &req) {
		return
	}
	card, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, card)
}

// ListJobCards handles GET /erp/production/job-cards
func (h *ProductionHandler) ListJobCards(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// GetJobCard handles GET /erp/production/job-cards/:id
func (h *ProductionHandler) GetJobCard(c *gin.Context) {
	cardID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	card, err := h.service.Get(c.Request.Context(), cardID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, card)
}

// UpdateStage handles PATCH /erp/production/job-cards/:id/stage
func (h *ProductionHandler) UpdateStage(c *gin.Context) {
	cardID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.StageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	to, valid := production.ParseStage(req.Stage)
	if !valid {
		h.Error(c, apperror.NewFieldValidation("stage", "unknown production stage "+req.Stage))
		return
	}
	card, err := h.service.UpdateStage(c.Request.Context(), cardID, to, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, card)
}

// RecordBreakage handles POST /erp/production/breakages
func (h *ProductionHandler) RecordBreakage(c *gin.Context) {
	var req dto.BreakageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	b, err := h.service.RecordBreakage(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, b)
}

// Breakages handles GET /erp/production/breakages
func (h *ProductionHandler) Breakages(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.service.Breakages(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// ReviewBreakage handles POST /erp/production/breakages/:id/approve
func (h *ProductionHandler) ReviewBreakage(c *gin.Context) {
	breakageID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.BreakageReviewRequest
	if !h.BindJSON(c, &req) {
		return
	}
	b, err := h.service.ReviewBreakage(c.Request.Context(), breakageID, *req.Approve, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, b)
}

// TransportHandler prices deliveries.
type TransportHandler struct {
	*BaseHandler
	service TransportService
}

// NewTransportHandler creates a new transport handler.
func NewTransportHandler(base *BaseHandler, service TransportService) *TransportHandler {
	return &TransportHandler{BaseHandler: base, service: service}
}

// CalculateCost handles POST /erp/transport/calculate-cost
func (h *TransportHandler) CalculateCost(c *gin.Context) {
	var req dto.TransportCostRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cost, err := h.service.Calculate(c.Request.Context(), req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cost)
}

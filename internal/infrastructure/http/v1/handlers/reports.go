package handlers

import (
	"github.com/gin-gonic/gin"

	"glasserp/internal/infrastructure/http/v1/dto"
)

// ReportsHandler serves the cash and stock reports.
type ReportsHandler struct {
	*BaseHandler
	service ReportService
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service ReportService) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// Cash handles GET /erp/reports/cash
func (h *ReportsHandler) Cash(c *gin.Context) {
	var q dto.CashReportQuery
	if !h.BindQuery(c, &q) {
		return
	}
	report, err := h.service.Cash(c.Request.Context(), q.Period, q.Date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// StockTurnover handles GET /erp/reports/stock-turnover
func (h *ReportsHandler) StockTurnover(c *gin.Context) {
	var q dto.MonthQuery
	if !h.BindQuery(c, &q) {
		return
	}
	report, err := h.service.StockTurnover(c.Request.Context(), q.Month)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

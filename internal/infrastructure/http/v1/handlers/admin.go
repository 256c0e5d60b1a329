package handlers

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"glasserp/internal/core/apperror"
	"glasserp/internal/domain/audit"
	"glasserp/internal/domain/settings"
	"glasserp/internal/infrastructure/export"
	"glasserp/internal/infrastructure/http/v1/dto"
)

// SettingsHandler reads and replaces settings documents.
type SettingsHandler struct {
	*BaseHandler
	service SettingsService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(base *BaseHandler, service SettingsService) *SettingsHandler {
	return &SettingsHandler{BaseHandler: base, service: service}
}

// Get handles GET /erp/settings/:type
func (h *SettingsHandler) Get(c *gin.Context) {
	t, err := settings.ParseType(c.Param("type"))
	if err != nil {
		h.Error(c, err)
		return
	}
	doc, err := h.service.Get(c.Request.Context(), t)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Put handles PUT /erp/settings/:type
func (h *SettingsHandler) Put(c *gin.Context) {
	t, err := settings.ParseType(c.Param("type"))
	if err != nil {
		h.Error(c, err)
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		h.Error(c, apperror.NewValidation("unreadable request body"))
		return
	}
	if !json.Valid(body) {
		h.Error(c, apperror.NewValidation("request body must be a JSON object"))
		return
	}
	doc, err := h.service.Put(c.Request.Context(), t, body)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// AuditHandler serves the audit trail and activity summaries.
type AuditHandler struct {
	*BaseHandler
	service AuditService
	now     func() time.Time
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, service AuditService) *AuditHandler {
	return &AuditHandler{BaseHandler: base, service: service, now: time.Now}
}

// Logs handles GET /erp/audit/logs. format=xlsx downloads the page as a
// workbook.
func (h *AuditHandler) Logs(c *gin.Context) {
	var q dto.AuditQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, err := h.Range(q.From, q.To)
	if err != nil {
		h.Error(c, err)
		return
	}
	entries, total, err := h.service.List(c.Request.Context(), audit.Filter{
		UserID:   q.UserID,
		Module:   q.Module,
		Action:   audit.Action(q.Action),
		RecordID: q.RecordID,
		From:     from,
		To:       to,
		Limit:    q.Limit,
		Skip:     q.Skip,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	if q.Format == "xlsx" {
		h.Workbook(c, "audit-log.xlsx", func(w io.Writer) error {
			return export.AuditLog(w, entries, h.cal.Location())
		})
		return
	}
	h.OK(c, gin.H{"items": entries, "total_count": total, "limit": q.Limit, "skip": q.Skip})
}

// DailyActivity handles GET /erp/audit/daily-activity
func (h *AuditHandler) DailyActivity(c *gin.Context) {
	var q dto.DayQuery
	if !h.BindQuery(c, &q) {
		return
	}
	day := q.Date
	if day == "" {
		day = h.cal.DateKey(h.now())
	}
	report, err := h.service.DailyActivity(c.Request.Context(), day)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// MonthlyMIS handles GET /erp/audit/monthly-mis
func (h *AuditHandler) MonthlyMIS(c *gin.Context) {
	var q dto.MISQuery
	if !h.BindQuery(c, &q) {
		return
	}
	mis, err := h.service.MonthlyMIS(c.Request.Context(), q.Month)
	if err != nil {
		h.Error(c, err)
		return
	}
	if q.Format == "xlsx" {
		h.Workbook(c, "mis-"+q.Month+".xlsx", func(w io.Writer) error {
			return export.MonthlyMIS(w, mis)
		})
		return
	}
	h.OK(c, mis)
}

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/domain"
	"glasserp/internal/domain/filter"
	"glasserp/internal/infrastructure/export"
	"glasserp/internal/infrastructure/http/v1/dto"
	"glasserp/internal/infrastructure/storage/postgres"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	cal *fiscal.Calendar
}

// NewBaseHandler creates a new base handler. Dates in query strings are read
// in cal's time zone.
func NewBaseHandler(cal *fiscal.Calendar) *BaseHandler {
	if cal == nil {
		cal = fiscal.IST()
	}
	return &BaseHandler{cal: cal}
}

// BindJSON binds and validates JSON request body. Malformed JSON and unknown
// fields are 400; a field that breaks its schema tag is 422.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, bindError("invalid request body", err))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, bindError("invalid query parameters", err))
		return false
	}
	return true
}

func bindError(message string, err error) *apperror.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldName(fe)] = describe(fe)
		}
		first := verrs[0]
		return apperror.NewSchemaViolation(fieldName(first) + ": " + describe(first)).
			WithDetail("fields", fields)
	}
	return apperror.NewValidation(message).WithDetail("error", err.Error())
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "state_code":
		return "is not a known GST state code"
	case "gstin":
		return "is not a valid GSTIN"
	case "hsn":
		return "must be a 4, 6 or 8 digit HSN code"
	case "in_mobile":
		return "is not a valid Indian mobile number"
	case "datetime":
		return "must match " + fe.Param()
	}
	return "failed " + fe.Tag() + " validation"
}

// Error processes error and sends appropriate response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	h.HandleError(c, err)
}

// HandleError registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler (single source of truth).
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID reads a UUID path parameter.
func (h *BaseHandler) ParseID(c *gin.Context, param string) (id.ID, bool) {
	v, err := id.Parse(c.Param(param))
	if err != nil {
		h.Error(c, apperror.NewFieldValidation(param, "invalid id format"))
		return id.ID{}, false
	}
	return v, true
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// Day parses a YYYY-MM-DD date as local midnight. Empty input is nil.
func (h *BaseHandler) Day(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, h.cal.Location())
	if err != nil {
		return nil, apperror.NewValidation("dates must be YYYY-MM-DD").WithDetail("value", s)
	}
	return &t, nil
}

// Range parses an inclusive [from, to] day range into [from, to+1day).
func (h *BaseHandler) Range(from, to string) (*time.Time, *time.Time, error) {
	f, err := h.Day(from)
	if err != nil {
		return nil, nil, err
	}
	t, err := h.Day(to)
	if err != nil {
		return nil, nil, err
	}
	if t != nil {
		next := t.AddDate(0, 0, 1)
		t = &next
	}
	return f, t, nil
}

// ListFilter builds a list filter from the query string. Parameters outside
// dto.ReservedListParams become field conditions; `field__op=value` selects
// an operator other than equality.
func (h *BaseHandler) ListFilter(c *gin.Context) (domain.ListFilter, bool) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return domain.ListFilter{}, false
	}
	from, to, err := h.Range(q.From, q.To)
	if err != nil {
		h.Error(c, err)
		return domain.ListFilter{}, false
	}
	f := domain.ListFilter{
		Search:  q.Search,
		From:    from,
		To:      to,
		OrderBy: q.OrderBy,
		Limit:   q.Limit,
		Skip:    q.Skip,
	}

	for key, values := range c.Request.URL.Query() {
		if _, reserved := dto.ReservedListParams[key]; reserved || len(values) == 0 {
			continue
		}
		field, op := key, filter.Equal
		if i := strings.LastIndex(key, "__"); i > 0 {
			field, op = key[:i], filter.ComparisonType(key[i+2:])
			if !op.Valid() {
				h.Error(c, apperror.NewFieldValidation(key, "unknown filter operator "+string(op)))
				return domain.ListFilter{}, false
			}
		}
		var value any = values[0]
		if op == filter.InList || op == filter.NotInList {
			value = strings.Split(values[0], ",")
		}
		f.Filters = append(f.Filters, filter.Item{Field: field, Operator: op, Value: value})
	}
	return f.Normalize(), true
}

// GetUserID extracts user ID from request context.
func (h *BaseHandler) GetUserID(c *gin.Context) string {
	return appctx.GetUserID(c.Request.Context())
}

// CompleteIdempotency marks idempotency key as completed with the same HTTP semantics
// (status code + content type + body) for correct replay.
func (h *BaseHandler) CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	if key, exists := c.Get("idempotency_key"); exists {
		if store, ok := c.Get("idempotency_store"); ok {
			_ = store.(*postgres.IdempotencyStore).CompleteKey(c.Request.Context(), key.(string), statusCode, contentType, response)
		}
	}
}

// Created sends 201 response with data.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", data)
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	h.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	// 204 must replay as 204 with empty body.
	h.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}

// Success sends success response.
func (h *BaseHandler) Success(c *gin.Context, message string) {
	response := dto.SuccessResponse{Success: true, Message: message}
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// Workbook renders an .xlsx attachment. The workbook is built in memory so a
// failure still produces a JSON error instead of a truncated download.
func (h *BaseHandler) Workbook(c *gin.Context, filename string, write func(w io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.Error(c, apperror.NewInternal(fmt.Errorf("render %s: %w", filename, err)))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

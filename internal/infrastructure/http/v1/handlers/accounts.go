package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/domain/ledger"
	"glasserp/internal/domain/tax"
	"glasserp/internal/infrastructure/export"
	"glasserp/internal/infrastructure/http/v1/dto"
)

// AccountsHandler serves invoices, ledgers and GST endpoints.
type AccountsHandler struct {
	*BaseHandler
	invoices InvoiceService
	ledger   LedgerService
	tax      TaxService
	now      func() time.Time
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(base *BaseHandler, invoices InvoiceService, ledger LedgerService, tax TaxService) *AccountsHandler {
	return &AccountsHandler{BaseHandler: base, invoices: invoices, ledger: ledger, tax: tax, now: time.Now}
}

// ListInvoices handles GET /erp/accounts/invoices
func (h *AccountsHandler) ListInvoices(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.invoices.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// GetInvoice handles GET /erp/accounts/invoices/:id
func (h *AccountsHandler) GetInvoice(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.invoices.Get(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// CreateInvoice handles POST /erp/accounts/invoices
func (h *AccountsHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	inv, err := h.invoices.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, inv)
}

// InvoiceFromOrder handles POST /erp/accounts/invoices/from-order/:order_id
func (h *AccountsHandler) InvoiceFromOrder(c *gin.Context) {
	orderID, ok := h.ParseID(c, "order_id")
	if !ok {
		return
	}
	inv, err := h.invoices.FromOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, inv)
}

// RecordInvoicePayment handles POST /erp/accounts/invoices/:id/payment
func (h *AccountsHandler) RecordInvoicePayment(c *gin.Context) {
	invoiceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.InvoicePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	inv, err := h.invoices.RecordPayment(c.Request.Context(), invoiceID, req.Amount, req.Method, req.Reference)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// Ledger handles GET /erp/accounts/ledger. With party_id it returns the
// party statement with running balance, otherwise general ledger entries.
func (h *AccountsHandler) Ledger(c *gin.Context) {
	q, from, to, ok := h.ledgerQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if q.PartyID != "" {
		partyID, _ := id.Parse(q.PartyID)
		st, err := h.ledger.PartyStatement(ctx, partyID, from, to)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, st)
		return
	}

	entries, err := h.ledger.GeneralLedger(ctx, entryFilter(q, from, to))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"entries": entries, "count": len(entries)})
}

// ExportLedger handles GET /erp/accounts/ledger/export
func (h *AccountsHandler) ExportLedger(c *gin.Context) {
	q, from, to, ok := h.ledgerQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if q.PartyID != "" {
		partyID, _ := id.Parse(q.PartyID)
		st, err := h.ledger.PartyStatement(ctx, partyID, from, to)
		if err != nil {
			h.Error(c, err)
			return
		}
		name := q.PartyID
		if len(st.Lines) > 0 && st.Lines[0].PartyName != "" {
			name = st.Lines[0].PartyName
		}
		h.Workbook(c, "ledger-"+q.PartyID+".xlsx", func(w io.Writer) error {
			return export.PartyLedger(w, name, st)
		})
		return
	}

	entries, err := h.ledger.GeneralLedger(ctx, entryFilter(q, from, to))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Workbook(c, "general-ledger.xlsx", func(w io.Writer) error {
		return export.GeneralLedger(w, entries)
	})
}

func (h *AccountsHandler) ledgerQuery(c *gin.Context) (dto.LedgerQuery, *time.Time, *time.Time, bool) {
	var q dto.LedgerQuery
	if !h.BindQuery(c, &q) {
		return q, nil, nil, false
	}
	from, to, err := h.Range(q.From, q.To)
	if err != nil {
		h.Error(c, err)
		return q, nil, nil, false
	}
	return q, from, to, true
}

func entryFilter(q dto.LedgerQuery, from, to *time.Time) ledger.EntryFilter {
	limit := q.Limit
	if limit == 0 {
		limit = 500
	}
	return ledger.EntryFilter{
		PartyType: ledger.PartyType(q.PartyType),
		Account:   q.Account,
		From:      from,
		To:        to,
		Limit:     limit,
		Skip:      q.Skip,
	}
}

// TrialBalance handles GET /erp/accounts/trial-balance
func (h *AccountsHandler) TrialBalance(c *gin.Context) {
	var q dto.FinancialYearQuery
	if !h.BindQuery(c, &q) {
		return
	}
	fy, err := h.fiscalYear(q.FinancialYear)
	if err != nil {
		h.Error(c, err)
		return
	}
	tb, err := h.ledger.TrialBalance(c.Request.Context(), fy)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tb)
}

func (h *AccountsHandler) fiscalYear(s string) (fiscal.Year, error) {
	if s == "" {
		return h.cal.Current(h.now()), nil
	}
	fy, err := fiscal.ParseYear(s)
	if err != nil {
		return fy, apperror.NewFieldValidation("financial_year", "financial_year must look like 2024-25")
	}
	return fy, nil
}

// Outstanding handles GET /erp/accounts/outstanding
func (h *AccountsHandler) Outstanding(c *gin.Context) {
	var q dto.PartyTypeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	rows, err := h.ledger.Outstanding(c.Request.Context(), partyTypeOrCustomer(q.PartyType))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"party_type": partyTypeOrCustomer(q.PartyType), "parties": rows})
}

// Ageing handles GET /erp/accounts/ageing
func (h *AccountsHandler) Ageing(c *gin.Context) {
	var q dto.PartyTypeQuery
	if !h.BindQuery(c, &q) {
		return
	}
	asOf := h.now()
	if q.AsOf != "" {
		day, err := h.Day(q.AsOf)
		if err != nil {
			h.Error(c, err)
			return
		}
		asOf = day.AddDate(0, 0, 1)
	}
	report, err := h.ledger.Ageing(c.Request.Context(), partyTypeOrCustomer(q.PartyType), asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

func partyTypeOrCustomer(s string) ledger.PartyType {
	if pt, ok := ledger.ParsePartyType(s); ok {
		return pt
	}
	return ledger.PartyCustomer
}

// GSTReport handles GET /erp/accounts/gst-report?month=YYYY-MM
func (h *AccountsHandler) GSTReport(c *gin.Context) {
	var q dto.MonthQuery
	if !h.BindQuery(c, &q) {
		return
	}
	report, err := h.ledger.GSTReport(c.Request.Context(), q.Month)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// States handles GET /erp/gst/states
func (h *AccountsHandler) States(c *gin.Context) {
	h.OK(c, gin.H{"states": tax.States()})
}

// HSNCodes handles GET /erp/gst/hsn-codes
func (h *AccountsHandler) HSNCodes(c *gin.Context) {
	codes, err := h.tax.HSNCodes(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"hsn_codes": codes})
}

// CalculateGST handles POST /erp/gst/calculate
func (h *AccountsHandler) CalculateGST(c *gin.Context) {
	var req dto.GSTCalculateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	breakdown, err := h.tax.Calculate(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, breakdown)
}

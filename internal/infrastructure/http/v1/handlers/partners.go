package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"glasserp/internal/infrastructure/export"
	"glasserp/internal/infrastructure/http/v1/dto"
)

// CustomerHandler manages customer profiles.
type CustomerHandler struct {
	*BaseHandler
	service CustomerService
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service CustomerService) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, service: service}
}

// Create handles POST /erp/customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cust := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), cust); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, cust)
}

// List handles GET /erp/customers
func (h *CustomerHandler) List(c *gin.Context) {
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

// Get handles GET /erp/customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	cust, err := h.service.Get(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// Update handles PUT /erp/customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cust, err := h.service.Update(c.Request.Context(), customerID, req.ToEntity())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// OpeningBalance handles POST /erp/customers/:id/opening-balance
func (h *CustomerHandler) OpeningBalance(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.OpeningBalanceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cust, err := h.service.SetOpeningBalance(c.Request.Context(), customerID, req.OpeningBalance)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cust)
}

// VendorHandler manages vendors and their balance sheets.
type VendorHandler struct {
	*BaseHandler
	service VendorService
}

// NewVendorHandler creates a new vendor handler.
func NewVendorHandler(base *BaseHandler, service VendorService) *VendorHandler {
	return &VendorHandler{BaseHandler: base, service: service}
}

// Create handles POST /erp/vendors/
func (h *VendorHandler) Create(c *gin.Context) {
	var req dto.VendorRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), v); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, v)
}

// List handles GET /erp/vendors/
func (h *VendorHandler) List(c *gin.Context) {
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

// Get handles GET /erp/vendors/:id
func (h *VendorHandler) Get(c *gin.Context) {
	vendorID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	v, err := h.service.Get(c.Request.Context(), vendorID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// Update handles PUT /erp/vendors/:id
func (h *VendorHandler) Update(c *gin.Context) {
	vendorID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.VendorRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v, err := h.service.Update(c.Request.Context(), vendorID, req.ToEntity())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// OpeningBalance handles PUT /erp/vendors/:id/opening-balance
func (h *VendorHandler) OpeningBalance(c *gin.Context) {
	vendorID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.OpeningBalanceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v, err := h.service.SetOpeningBalance(c.Request.Context(), vendorID, req.OpeningBalance)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// BalanceSheet handles GET /erp/vendors/:id/balance-sheet
func (h *VendorHandler) BalanceSheet(c *gin.Context) {
	vendorID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.BalanceSheetQuery
	if !h.BindQuery(c, &q) {
		return
	}
	bs, err := h.service.BalanceSheet(c.Request.Context(), vendorID, q.FinancialYear, q.Top)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, bs)
}

// ExportBalanceSheet handles GET /erp/vendors/:id/balance-sheet/export
func (h *VendorHandler) ExportBalanceSheet(c *gin.Context) {
	vendorID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.BalanceSheetQuery
	if !h.BindQuery(c, &q) {
		return
	}
	bs, err := h.service.BalanceSheet(c.Request.Context(), vendorID, q.FinancialYear, q.Top)
	if err != nil {
		h.Error(c, err)
		return
	}
	filename := "balance-sheet-" + bs.VendorCode + "-" + bs.FinancialYear + ".xlsx"
	h.Workbook(c, filename, func(w io.Writer) error {
		return export.VendorBalanceSheet(w, bs)
	})
}

// ProductHandler serves the product catalogue and its price list.
type ProductHandler struct {
	*BaseHandler
	service ProductService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service ProductService) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
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

// Get handles GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Pricing handles GET /products/:id/pricing
func (h *ProductHandler) Pricing(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	rules, err := h.service.Pricing(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"product_id": productID, "pricing": rules})
}

// Create handles POST /erp/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// SetPricing handles POST /erp/products/:id/pricing
func (h *ProductHandler) SetPricing(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.PricingRuleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rule := req.ToEntity()
	if err := h.service.SetPricing(c.Request.Context(), productID, rule); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rule)
}

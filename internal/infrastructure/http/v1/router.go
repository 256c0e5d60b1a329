// Package v1 wires the HTTP API under /api.
package v1

import (
	"github.com/gin-gonic/gin"

	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/security"
	"glasserp/internal/infrastructure/http/v1/dto"
	"glasserp/internal/infrastructure/http/v1/handlers"
	"glasserp/internal/infrastructure/http/v1/middleware"
	"glasserp/internal/infrastructure/metrics"
	"glasserp/internal/infrastructure/storage/postgres"
	"glasserp/pkg/logger"
)

// Services bundles the domain services the API calls.
type Services struct {
	Auth           handlers.AuthService
	Orders         handlers.OrderService
	Invoices       handlers.InvoiceService
	Ledger         handlers.LedgerService
	Tax            handlers.TaxService
	Customers      handlers.CustomerService
	Products       handlers.ProductService
	Vendors        handlers.VendorService
	Purchases      handlers.PurchaseService
	VendorPayments handlers.VendorPaymentService
	JobWork        handlers.JobWorkService
	Inventory      handlers.InventoryService
	Production     handlers.ProductionService
	Settings       handlers.SettingsService
	Audit          handlers.AuditService
	Transport      handlers.TransportService
	Reports        handlers.ReportService
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Calendar *fiscal.Calendar

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency enables Idempotency-Key replay on authenticated mutations.
	// Nil disables it.
	Idempotency *postgres.IdempotencyStore

	// CORSOrigins lists allowed browser origins; empty allows all.
	CORSOrigins []string

	Version      string
	HealthChecks map[string]handlers.Pinger
	Services     Services
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if err := dto.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.ErrorHandler())

	health := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	router.GET("/health", health.Live)
	router.GET("/ready", health.Ready)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	base := handlers.NewBaseHandler(cfg.Calendar)
	api := router.Group("/api")

	authed := []gin.HandlerFunc{middleware.Auth(cfg.JWTValidator), middleware.ClientIP()}
	if cfg.Idempotency != nil {
		authed = append(authed, middleware.Idempotency(cfg.Idempotency))
	}

	registerAuthRoutes(api, base, cfg, authed)
	registerOrderRoutes(api, base, cfg, authed)
	registerProductRoutes(api, base, cfg, authed)

	erp := api.Group("/erp", authed...)
	erp.Use(middleware.RequireStaff())
	registerAccountsRoutes(erp, base, cfg)
	registerPartnerRoutes(erp, base, cfg)
	registerOperationsRoutes(erp, base, cfg)
	registerAdminRoutes(erp, base, cfg)

	return router, nil
}

func registerAuthRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, authed []gin.HandlerFunc) {
	h := handlers.NewAuthHandler(base, cfg.Services.Auth)

	public := api.Group("/auth")
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)
	public.POST("/send-otp", h.SendOTP)
	public.POST("/verify-otp", h.VerifyOTP)
	public.POST("/reset-password", h.ResetPassword)

	protected := api.Group("/auth", authed...)
	protected.GET("/me", h.Me)
	protected.GET("/users", middleware.RequireModule(security.ModuleUsers), h.ListUsers)
	protected.POST("/users", middleware.RequireModule(security.ModuleUsers), h.CreateUser)
}

func registerOrderRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, authed []gin.HandlerFunc) {
	h := handlers.NewOrderHandler(base, cfg.Services.Orders)

	// The gateway authenticates with its HMAC signature, not a bearer token.
	api.POST("/payments/webhook", h.Webhook)

	orders := api.Group("/orders", authed...)
	orders.POST("/calculate", h.Calculate)
	orders.POST("", h.Create)
	orders.GET("/my-orders", h.Mine)
	orders.GET("/:id", h.Get)
	orders.POST("/:id/verify-payment", h.VerifyPayment)
	orders.POST("/:id/pay-remaining", h.PayRemaining)
	orders.POST("/:id/remaining-preference", h.RemainingPreference)
	dispatch := middleware.RequireModule(security.ModuleOperations)
	orders.POST("/:id/create-dispatch-slip", dispatch, h.CreateDispatchSlip)
	orders.POST("/:id/mark-dispatched", dispatch, h.MarkDispatched)
	orders.POST("/:id/transport-dispatch", dispatch, h.TransportDispatch)

	erp := api.Group("/erp/orders", authed...)
	erp.GET("", middleware.RequireModule(security.ModuleOrders), h.List)
	erp.PATCH("/:id/status", middleware.RequireModule(security.ModuleOrders), h.UpdateStatus)
	erp.POST("/:id/cancel", middleware.RequireModule(security.ModuleOrderCancel), h.Cancel)
	erp.POST("/:id/record-cash", middleware.RequireModule(security.ModuleCashReceipt), h.RecordCash)
}

func registerProductRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig, authed []gin.HandlerFunc) {
	h := handlers.NewProductHandler(base, cfg.Services.Products)

	catalogue := api.Group("/products")
	catalogue.GET("", h.List)
	catalogue.GET("/:id", h.Get)
	catalogue.GET("/:id/pricing", h.Pricing)

	erp := api.Group("/erp/products", authed...)
	erp.Use(middleware.RequireModule(security.ModuleSettingsWrite))
	erp.POST("", h.Create)
	erp.POST("/:id/pricing", h.SetPricing)
}

func registerAccountsRoutes(erp *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewAccountsHandler(base, cfg.Services.Invoices, cfg.Services.Ledger, cfg.Services.Tax)

	accounts := erp.Group("/accounts", middleware.RequireModule(security.ModuleAccounts))
	{
		accounts.GET("/invoices", h.ListInvoices)
		accounts.POST("/invoices", h.CreateInvoice)
		accounts.GET("/invoices/:id", h.GetInvoice)
		accounts.POST("/invoices/:id/payment", h.RecordInvoicePayment)
		accounts.POST("/invoices/from-order/:order_id", h.InvoiceFromOrder)
		accounts.GET("/ledger", h.Ledger)
		accounts.GET("/ledger/export", h.ExportLedger)
		accounts.GET("/trial-balance", h.TrialBalance)
		accounts.GET("/outstanding", h.Outstanding)
		accounts.GET("/ageing", h.Ageing)
		accounts.GET("/gst-report", h.GSTReport)
	}

	gst := erp.Group("/gst")
	{
		gst.GET("/states", h.States)
		gst.GET("/hsn-codes", h.HSNCodes)
		gst.POST("/calculate", h.CalculateGST)
	}
}

func registerPartnerRoutes(erp *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	customers := handlers.NewCustomerHandler(base, cfg.Services.Customers)
	group := erp.Group("/customers")
	RegisterResourceRoutes(group, customers, security.ModuleCustomers)
	group.POST("/:id/opening-balance", middleware.RequireModule(security.ModuleAccounts), customers.OpeningBalance)

	vendors := handlers.NewVendorHandler(base, cfg.Services.Vendors)
	purchases := handlers.NewPurchaseHandler(base, cfg.Services.Purchases, cfg.Services.VendorPayments)

	v := erp.Group("/vendors", middleware.RequireModule(security.ModuleVendors))
	{
		v.POST("/", vendors.Create)
		v.GET("/", vendors.List)
		v.GET("/:id", vendors.Get)
		v.PUT("/:id", vendors.Update)
		v.PUT("/:id/opening-balance", middleware.RequireModule(security.ModuleAccounts), vendors.OpeningBalance)
		v.GET("/:id/balance-sheet", vendors.BalanceSheet)
		v.GET("/:id/balance-sheet/export", vendors.ExportBalanceSheet)

		v.POST("/po", purchases.Create)
		v.GET("/po", purchases.List)
		v.GET("/po/:id", purchases.Get)
		v.POST("/po/:id/submit", purchases.Submit)
		v.POST("/po/:id/approve", middleware.RequireModule(security.ModulePOApproval), purchases.Approve)
		v.POST("/po/:id/reject", middleware.RequireModule(security.ModulePOApproval), purchases.Reject)
		v.POST("/po/:id/cancel", purchases.Cancel)
		v.POST("/po/:id/receive", purchases.Receive)

		pay := v.Group("", middleware.RequireModule(security.ModuleVendorPayments))
		pay.POST("/po/:id/initiate-payment", purchases.InitiatePayment)
		pay.GET("/payment/:id/status", purchases.PaymentStatus)
		pay.POST("/payment/:id/record-manual", purchases.RecordManual)
		pay.GET("/payments", purchases.Payments)
		pay.POST("/bulk-payment", purchases.CreateBulk)
		pay.GET("/bulk-payment/:id", purchases.GetBulk)
		pay.POST("/bulk-payment/:id/complete", purchases.CompleteBulk)
	}

	po := erp.Group("/purchase/orders", middleware.RequireModule(security.ModuleVendors))
	po.POST("", purchases.Create)
	po.PATCH("/:id/status", purchases.UpdateStatus)
}

func registerOperationsRoutes(erp *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	operations := middleware.RequireModule(security.ModuleOperations)

	jw := handlers.NewJobWorkHandler(base, cfg.Services.JobWork, cfg.Services.Settings)
	jobWork := erp.Group("/job-work", operations)
	{
		jobWork.GET("/labour-rates", jw.LabourRates)
		jobWork.PUT("/labour-rates", middleware.RequireModule(security.ModuleSettingsWrite), jw.SetLabourRates)
		jobWork.POST("/calculate", jw.Calculate)
		RegisterResourceRoutes(jobWork.Group("/orders"), jw, security.ModuleOperations)
		jobWork.PATCH("/orders/:id/status", jw.UpdateStatus)
		jobWork.POST("/orders/:id/payment", jw.RecordPayment)
		jobWork.POST("/orders/:id/delivery-slip", jw.DeliverySlip)
	}

	inv := handlers.NewInventoryHandler(base, cfg.Services.Inventory)
	inventory := erp.Group("/inventory", operations)
	{
		inventory.POST("/materials", inv.CreateMaterial)
		inventory.GET("/materials", inv.Materials)
		inventory.GET("/materials/:id", inv.GetMaterial)
		inventory.POST("/transactions", inv.Record)
		inventory.GET("/transactions", inv.Transactions)
		inventory.GET("/low-stock", inv.LowStock)
	}

	prod := handlers.NewProductionHandler(base, cfg.Services.Production)
	production := erp.Group("/production", operations)
	{
		production.POST("/job-cards", prod.CreateJobCard)
		production.GET("/job-cards", prod.ListJobCards)
		production.GET("/job-cards/:id", prod.GetJobCard)
		production.PATCH("/job-cards/:id/stage", prod.UpdateStage)
		production.POST("/breakages", prod.RecordBreakage)
		production.GET("/breakages", prod.Breakages)
		production.POST("/breakages/:id/approve", middleware.RequireModule(security.ModuleBreakageApprove), prod.ReviewBreakage)
	}

	tr := handlers.NewTransportHandler(base, cfg.Services.Transport)
	erp.POST("/transport/calculate-cost", tr.CalculateCost)
}

func registerAdminRoutes(erp *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	st := handlers.NewSettingsHandler(base, cfg.Services.Settings)
	erp.GET("/settings/:type", st.Get)
	erp.PUT("/settings/:type", middleware.RequireModule(security.ModuleSettingsWrite), st.Put)

	au := handlers.NewAuditHandler(base, cfg.Services.Audit)
	audit := erp.Group("/audit", middleware.RequireModule(security.ModuleAudit))
	{
		audit.GET("/logs", au.Logs)
		audit.GET("/daily-activity", au.DailyActivity)
		audit.GET("/monthly-mis", au.MonthlyMIS)
	}

	rp := handlers.NewReportsHandler(base, cfg.Services.Reports)
	reports := erp.Group("/reports", middleware.RequireModule(security.ModuleReports))
	{
		reports.GET("/cash", rp.Cash)
		reports.GET("/stock-turnover", rp.StockTurnover)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"time"

	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/core/id"
	"glasserp/internal/core/security"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/audit"
	"glasserp/internal/domain/auth"
	"glasserp/internal/domain/customer"
	"glasserp/internal/domain/inventory"
	"glasserp/internal/domain/invoice"
	"glasserp/internal/domain/jobwork"
	"glasserp/internal/domain/ledger"
	"glasserp/internal/domain/order"
	"glasserp/internal/domain/product"
	"glasserp/internal/domain/production"
	"glasserp/internal/domain/purchase"
	"glasserp/internal/domain/reports"
	"glasserp/internal/domain/settings"
	"glasserp/internal/domain/tax"
	"glasserp/internal/domain/transport"
	"glasserp/internal/domain/vendor"
	"glasserp/internal/domain/vendorpay"
)

// The interfaces below are the slices of the domain services each handler
// calls. The *Service types of the domain packages satisfy them.

type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Session, error)
	CreateUser(ctx context.Context, req auth.RegisterRequest, role security.Role) (*auth.User, error)
	Login(ctx context.Context, creds auth.Credentials) (*auth.Session, error)
	SendOTP(ctx context.Context, req auth.SendOTPRequest) error
	VerifyOTP(ctx context.Context, req auth.VerifyOTPRequest) (*auth.VerifyResult, error)
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	Me(ctx context.Context) (*auth.User, error)
	ListUsers(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error)
	ValidateToken(token string) (*appctx.UserContext, error)
}

type OrderService interface {
	Calculate(ctx context.Context, in order.CreateInput) (*order.Pricing, error)
	Create(ctx context.Context, in order.CreateInput) (*order.Created, error)
	Get(ctx context.Context, orderID id.ID) (*order.Order, error)
	Mine(ctx context.Context, f domain.ListFilter) (domain.ListResult[order.Order], error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[order.Order], error)
	VerifyPayment(ctx context.Context, orderID id.ID, p order.GatewayPayment) (*order.Order, error)
	HandleWebhook(ctx context.Context, eventID string, p order.GatewayPayment) error
	PayRemaining(ctx context.Context, orderID id.ID, method order.Method) (*order.RemainingPayment, error)
	SetRemainingPreference(ctx context.Context, orderID id.ID, method order.Method) (*order.Order, error)
	RecordCash(ctx context.Context, orderID id.ID, amount types.Paise) (*order.Order, error)
	CreateDispatchSlip(ctx context.Context, orderID id.ID) (*order.Order, error)
	MarkDispatched(ctx context.Context, orderID id.ID) (*order.Order, error)
	TransportDispatch(ctx context.Context, orderID id.ID, in order.TransportInput) (*order.Order, error)
	UpdateStatus(ctx context.Context, orderID id.ID, to order.Status) (*order.Order, error)
	Cancel(ctx context.Context, orderID id.ID, reason string) (*order.Order, error)
}

type InvoiceService interface {
	Create(ctx context.Context, in invoice.CreateInput) (*invoice.Invoice, error)
	FromOrder(ctx context.Context, orderID id.ID) (*invoice.Invoice, error)
	RecordPayment(ctx context.Context, invoiceID id.ID, amount types.Paise, method, reference string) (*invoice.Invoice, error)
	Get(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[invoice.Invoice], error)
}

type LedgerService interface {
	PartyStatement(ctx context.Context, partyID id.ID, from, to *time.Time) (*ledger.PartyStatement, error)
	GeneralLedger(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error)
	Outstanding(ctx context.Context, partyType ledger.PartyType) ([]ledger.PartyBalance, error)
	Ageing(ctx context.Context, partyType ledger.PartyType, asOf time.Time) (ledger.AgeingReport, error)
	TrialBalance(ctx context.Context, fy fiscal.Year) (*ledger.TrialBalance, error)
	GSTReport(ctx context.Context, month string) (*ledger.GSTReport, error)
}

type TaxService interface {
	Calculate(ctx context.Context, in tax.Input) (tax.Breakdown, error)
	HSNCodes(ctx context.Context) ([]settings.HSNCode, error)
}

type CustomerService interface {
	Create(ctx context.Context, c *customer.Customer) error
	Update(ctx context.Context, customerID id.ID, in *customer.Customer) (*customer.Customer, error)
	SetOpeningBalance(ctx context.Context, customerID id.ID, amount types.Paise) (*customer.Customer, error)
	Get(ctx context.Context, customerID id.ID) (*customer.Customer, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[customer.Customer], error)
}

type ProductService interface {
	Create(ctx context.Context, p *product.Product) error
	Get(ctx context.Context, productID id.ID) (*product.Product, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[product.Product], error)
	SetPricing(ctx context.Context, productID id.ID, r *product.PricingRule) error
	Pricing(ctx context.Context, productID id.ID) ([]product.PricingRule, error)
}

type VendorService interface {
	Create(ctx context.Context, v *vendor.Vendor) error
	Update(ctx context.Context, vendorID id.ID, in *vendor.Vendor) (*vendor.Vendor, error)
	SetOpeningBalance(ctx context.Context, vendorID id.ID, amount types.Paise) (*vendor.Vendor, error)
	Get(ctx context.Context, vendorID id.ID) (*vendor.Vendor, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[vendor.Vendor], error)
	BalanceSheet(ctx context.Context, vendorID id.ID, fy string, top int) (*vendor.BalanceSheet, error)
}

type PurchaseService interface {
	Create(ctx context.Context, in purchase.CreateInput) (*purchase.PurchaseOrder, error)
	Submit(ctx context.Context, poID id.ID) (*purchase.PurchaseOrder, error)
	Approve(ctx context.Context, poID id.ID) (*purchase.PurchaseOrder, error)
	Reject(ctx context.Context, poID id.ID, reason string) (*purchase.PurchaseOrder, error)
	Cancel(ctx context.Context, poID id.ID, reason string) (*purchase.PurchaseOrder, error)
	Receive(ctx context.Context, poID id.ID) (*purchase.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, poID id.ID, to purchase.Status, reason string) (*purchase.PurchaseOrder, error)
	Get(ctx context.Context, poID id.ID) (*purchase.PurchaseOrder, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[purchase.PurchaseOrder], error)
}

type VendorPaymentService interface {
	Initiate(ctx context.Context, in vendorpay.InitiateInput) (*vendorpay.Initiated, error)
	Status(ctx context.Context, paymentID id.ID) (*vendorpay.Payment, error)
	RecordManual(ctx context.Context, paymentID id.ID, transactionRef string) (*vendorpay.Payment, error)
	CreateBulk(ctx context.Context, in vendorpay.BulkInput) (*vendorpay.Bulk, error)
	CompleteBulk(ctx context.Context, bulkID id.ID, transactionRef string) (*vendorpay.BulkResult, error)
	GetBulk(ctx context.Context, bulkID id.ID) (*vendorpay.BulkResult, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[vendorpay.Payment], error)
}

type JobWorkService interface {
	Quote(ctx context.Context, items []jobwork.Item) (jobwork.Quote, error)
	LabourRates(ctx context.Context) (settings.JobWorkPricing, error)
	Create(ctx context.Context, in jobwork.CreateInput) (*jobwork.Order, error)
	RecordPayment(ctx context.Context, orderID id.ID, amount types.Paise, method string) (*jobwork.Order, error)
	UpdateStatus(ctx context.Context, orderID id.ID, to jobwork.Status, note string) (*jobwork.StatusResult, error)
	DeliverySlip(ctx context.Context, orderID id.ID) (*jobwork.Order, error)
	Get(ctx context.Context, orderID id.ID) (*jobwork.Order, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[jobwork.Order], error)
}

type InventoryService interface {
	CreateMaterial(ctx context.Context, m *inventory.Material) error
	Record(ctx context.Context, mv inventory.Movement) (*inventory.Transaction, error)
	GetMaterial(ctx context.Context, materialID id.ID) (*inventory.Material, error)
	Materials(ctx context.Context, f domain.ListFilter) (domain.ListResult[inventory.Material], error)
	Transactions(ctx context.Context, f domain.ListFilter) (domain.ListResult[inventory.Transaction], error)
	LowStock(ctx context.Context) ([]inventory.Material, error)
}

type ProductionService interface {
	Create(ctx context.Context, in production.CreateInput) (*production.JobCard, error)
	UpdateStage(ctx context.Context, cardID id.ID, to production.Stage, note string) (*production.JobCard, error)
	Get(ctx context.Context, cardID id.ID) (*production.JobCard, error)
	List(ctx context.Context, f domain.ListFilter) (domain.ListResult[production.JobCard], error)
	RecordBreakage(ctx context.Context, in production.BreakageInput) (*production.Breakage, error)
	ReviewBreakage(ctx context.Context, breakageID id.ID, approve bool, note string) (*production.Breakage, error)
	Breakages(ctx context.Context, f domain.ListFilter) (domain.ListResult[production.Breakage], error)
}

type SettingsService interface {
	Get(ctx context.Context, t settings.Type) (*settings.Document, error)
	Put(ctx context.Context, t settings.Type, data json.RawMessage) (*settings.Document, error)
}

type AuditService interface {
	List(ctx context.Context, f audit.Filter) ([]audit.Entry, int, error)
	DailyActivity(ctx context.Context, day string) (*audit.DailyActivity, error)
	MonthlyMIS(ctx context.Context, month string) (*audit.MonthlyMIS, error)
}

type TransportService interface {
	Calculate(ctx context.Context, req transport.Request) (transport.Cost, error)
}

type ReportService interface {
	Cash(ctx context.Context, period, date string) (*reports.CashReport, error)
	StockTurnover(ctx context.Context, month string) (*reports.StockTurnover, error)
}

// Package app assembles the storage, services and observers shared by the
// API server and the background worker.
package app

import (
	"context"
	"fmt"
	"time"

	"glasserp/internal/config"
	"glasserp/internal/core/events"
	"glasserp/internal/core/fiscal"
	"glasserp/internal/domain/audit"
	"glasserp/internal/domain/auth"
	"glasserp/internal/domain/customer"
	"glasserp/internal/domain/inventory"
	"glasserp/internal/domain/invoice"
	"glasserp/internal/domain/jobwork"
	"glasserp/internal/domain/ledger"
	"glasserp/internal/domain/notification"
	"glasserp/internal/domain/order"
	"glasserp/internal/domain/product"
	"glasserp/internal/domain/production"
	"glasserp/internal/domain/purchase"
	"glasserp/internal/domain/reports"
	"glasserp/internal/domain/scheduler"
	"glasserp/internal/domain/settings"
	"glasserp/internal/domain/tax"
	"glasserp/internal/domain/transport"
	"glasserp/internal/domain/vendor"
	"glasserp/internal/domain/vendorpay"
	"glasserp/internal/infrastructure/cache"
	v1 "glasserp/internal/infrastructure/http/v1"
	"glasserp/internal/infrastructure/http/v1/handlers"
	"glasserp/internal/infrastructure/messaging"
	"glasserp/internal/infrastructure/metrics"
	"glasserp/internal/infrastructure/numerator"
	"glasserp/internal/infrastructure/payments"
	"glasserp/internal/infrastructure/payouts"
	"glasserp/internal/infrastructure/storage/postgres"
	"glasserp/internal/infrastructure/storage/postgres/auth_repo"
	"glasserp/internal/infrastructure/storage/postgres/catalog_repo"
	"glasserp/internal/infrastructure/storage/postgres/document_repo"
	"glasserp/internal/infrastructure/storage/postgres/register_repo"
	"glasserp/internal/infrastructure/storage/postgres/report_repo"
	"glasserp/pkg/logger"
	pkgnumerator "glasserp/pkg/numerator"
)

const (
	idempotencyTTL = 24 * time.Hour
	webhookKind    = "payments"
)

// App holds the long-lived collaborators of one process.
type App struct {
	Config   *config.Config
	Calendar *fiscal.Calendar
	Metrics  *metrics.Metrics

	Pool        *postgres.Pool
	TxManager   *postgres.TxManager
	Bus         *events.Bus
	Outbox      *postgres.Outbox
	Idempotency *postgres.IdempotencyStore
	Redis       *cache.Redis
	local       *cache.Local
	Numbering   *numerator.Allocator

	JWT      *auth.JWTService
	Notifier *notification.Notifier

	Auth           *auth.Service
	Orders         *order.Service
	Invoices       *invoice.Service
	Ledger         *ledger.Service
	Tax            *tax.Engine
	Customers      *customer.Service
	Products       *product.Service
	Vendors        *vendor.Service
	Purchases      *purchase.Service
	VendorPayments *vendorpay.Service
	JobWork        *jobwork.Service
	Inventory      *inventory.Service
	Production     *production.Service
	Settings       *settings.Service
	Audit          *audit.Service
	Transport      *transport.Service
	Reports        *reports.Service

	orderRepo *document_repo.OrderRepo
}

// New connects to PostgreSQL (and Redis when configured) and builds every
// service. Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	cal, err := fiscal.NewCalendar(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}

	pool, err := postgres.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &App{
		Config:   cfg,
		Calendar: cal,
		Metrics:  metrics.New(),
		Pool:     pool,
	}
	a.registerPoolGauges()
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func poolConfig(cfg *config.Config) postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	pc.AppName = cfg.Database.AppName
	pc.Timezone = cfg.Timezone
	pc.StatementTimeout = cfg.Database.StatementTimeout
	if cfg.Database.MaxConns > 0 {
		pc.MaxConns = int32(cfg.Database.MaxConns)
		pc.MinConns = min(pc.MinConns, pc.MaxConns)
	}
	return pc
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	txm := postgres.NewTxManager(a.Pool)
	a.TxManager = txm
	a.Outbox = postgres.NewOutbox(txm)
	a.Bus = events.NewBus(a.Outbox)
	if cfg.IdempotencyEnabled {
		a.Idempotency = postgres.NewIdempotencyStore(txm, idempotencyTTL)
	}

	var settingsCache settings.Cache
	if cfg.RedisAddress != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisAddress, cfg.RedisPass)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = r
		settingsCache = r
	} else {
		a.local = cache.NewLocal()
		a.local.Listen(context.WithoutCancel(ctx), a.Pool.Unwrap(), catalog_repo.SettingsChannel, "settings:")
		settingsCache = a.local
	}

	gen := numerator.NewAllocator(pkgnumerator.New(txm), a.Calendar)
	a.Numbering = gen

	dispatcher := notification.NewDispatcher([]notification.Sender{
		messaging.NewWhatsApp(messaging.HTTPConfig{URL: cfg.WhatsApp.URL, Token: cfg.WhatsApp.Token}),
		messaging.NewSMS(messaging.HTTPConfig{URL: cfg.SMS.URL, Token: cfg.SMS.Token}),
		messaging.NewEmail(messaging.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}),
	}, notification.WithRecorder(a.Metrics))
	a.Notifier = notification.NewNotifier(dispatcher, cfg.AdminEmail)

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.AccessTokenTTL = cfg.JWTExpiry
	a.JWT = auth.NewJWTService(jwtConfig)
	a.Auth = auth.NewService(
		auth_repo.NewUserRepo(txm),
		auth_repo.NewOTPRepo(txm),
		auth_repo.NewResetTokenRepo(txm),
		txm,
		a.JWT,
		dispatcher,
		auth.DefaultServiceConfig(),
	)

	a.Settings = settings.NewService(catalog_repo.NewSettingsRepo(txm), settingsCache, txm, a.Bus, cfg.CompanyStateCode)
	a.Tax = tax.NewEngine(a.Settings)
	a.Transport = transport.NewService(a.Settings)

	a.Customers = customer.NewService(catalog_repo.NewCustomerRepo(txm), txm, a.Bus, gen)
	a.Products = product.NewService(catalog_repo.NewProductRepo(txm), txm, a.Bus)
	a.Vendors = vendor.NewService(catalog_repo.NewVendorRepo(txm), report_repo.NewVendorActivity(txm), txm, a.Bus, gen, a.Calendar)
	a.Inventory = inventory.NewService(register_repo.NewInventoryRepo(txm), txm, a.Bus)

	a.Invoices = invoice.NewService(document_repo.NewInvoiceRepo(txm), txm, a.Bus, gen, a.Settings, a.Customers)

	settlement, err := order.NewSettlement()
	if err != nil {
		return err
	}
	a.orderRepo = document_repo.NewOrderRepo(txm)
	a.Orders = order.NewService(order.Deps{
		Repo:      a.orderRepo,
		TxManager: txm,
		Bus:       a.Bus,
		Numerator: gen,
		Catalogue: a.Products,
		Customers: a.Customers,
		Tax:       a.Tax,
		Settings:  a.Settings,
		Gateway: payments.NewGateway(payments.Config{
			BaseURL:   cfg.Gateway.BaseURL,
			KeyID:     cfg.Gateway.KeyID,
			KeySecret: cfg.Gateway.KeySecret,
			Timeout:   cfg.Gateway.Timeout,
		}),
		Webhooks:   postgres.NewWebhookLog(txm, webhookKind),
		Settlement: settlement,
		Invoicer:   a.Invoices,
	})
	a.Invoices.SetOrders(a.Orders)

	a.Production = production.NewService(document_repo.NewProductionRepo(txm), txm, a.Bus, gen, a.Orders)
	a.Orders.Gate = a.Production

	vendorPaymentRepo := document_repo.NewVendorPaymentRepo(txm)
	a.Purchases = purchase.NewService(document_repo.NewPurchaseRepo(txm), txm, a.Bus, gen, a.Vendors, a.Inventory, vendorPaymentRepo)
	a.VendorPayments = vendorpay.NewService(vendorPaymentRepo, txm, a.Bus, gen,
		a.Purchases, a.Vendors, a.payouts())
	a.JobWork = jobwork.NewService(document_repo.NewJobWorkRepo(txm), txm, a.Bus, gen, a.Settings, a.Notifier)

	auditStore, err := postgres.NewAuditStore(txm)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	a.Audit = audit.NewService(auditStore, a.Calendar)
	a.Ledger = ledger.NewService(register_repo.NewLedgerRepo(txm), a.Calendar)
	a.Reports = reports.NewService(report_repo.NewReportRepo(txm), a.Calendar)

	a.Ledger.Subscribe(a.Bus)
	a.Audit.Subscribe(a.Bus)
	a.Notifier.Subscribe(a.Bus)
	a.Metrics.Subscribe(a.Bus)
	return nil
}

func (a *App) registerPoolGauges() {
	raw := a.Pool.Unwrap()
	a.Metrics.GaugeFunc("db_pool_total_conns", "Open database connections", func() float64 {
		return float64(postgres.GetPoolStats(raw).TotalConns)
	})
	a.Metrics.GaugeFunc("db_pool_acquired_conns", "Database connections in use", func() float64 {
		return float64(postgres.GetPoolStats(raw).AcquiredConns)
	})
	a.Metrics.GaugeFunc("db_pool_idle_conns", "Idle database connections", func() float64 {
		return float64(postgres.GetPoolStats(raw).IdleConns)
	})
}

func (a *App) payouts() vendorpay.Payouts {
	p := a.Config.Payouts
	if p.MockMode || p.KeyID == "" {
		return payouts.NewMock(p.MockSettleAfter)
	}
	return payouts.NewClient(payouts.Config{
		BaseURL:       p.BaseURL,
		KeyID:         p.KeyID,
		KeySecret:     p.KeySecret,
		AccountNumber: p.AccountNumber,
		Timeout:       p.Timeout,
	})
}

// Services returns the bundle the HTTP router consumes.
func (a *App) Services() v1.Services {
	return v1.Services{
		Auth:           a.Auth,
		Orders:         a.Orders,
		Invoices:       a.Invoices,
		Ledger:         a.Ledger,
		Tax:            a.Tax,
		Customers:      a.Customers,
		Products:       a.Products,
		Vendors:        a.Vendors,
		Purchases:      a.Purchases,
		VendorPayments: a.VendorPayments,
		JobWork:        a.JobWork,
		Inventory:      a.Inventory,
		Production:     a.Production,
		Settings:       a.Settings,
		Audit:          a.Audit,
		Transport:      a.Transport,
		Reports:        a.Reports,
	}
}

// HealthChecks lists the dependencies /ready pings.
func (a *App) HealthChecks() map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{"postgres": a.Pool}
	if a.Redis != nil {
		checks["redis"] = a.Redis
	}
	return checks
}

// Scheduler builds the reminder and cash report scheduler. Runs are
// elected through Redis when available, otherwise through sys_job_locks.
func (a *App) Scheduler(holder string) *scheduler.Scheduler {
	var locker scheduler.Locker = postgres.NewJobLocks(a.TxManager, holder)
	if a.Redis != nil {
		locker = cache.NewLocker(a.Redis)
	}

	recipients := a.Config.ReportRecipients
	if len(recipients) == 0 && a.Config.AdminEmail != "" {
		recipients = []string{a.Config.AdminEmail}
	}

	dues := scheduler.NewDues(a.orderRepo, a.Purchases, a.Customers, a.Notifier, a.Calendar)
	cash := scheduler.NewCashReporter(a.Reports, a.Notifier, recipients, a.Calendar)
	return scheduler.New(locker, a.Metrics, scheduler.StandardJobs(dues, cash, a.Calendar.Location())...)
}

// OutboxRelay redelivers parked after-commit events to their observer.
func (a *App) OutboxRelay(batchSize int) *postgres.OutboxRelay {
	return postgres.NewOutboxRelay(a.TxManager, batchSize, func(ctx context.Context, msg *postgres.OutboxMessage) error {
		return a.Bus.Redeliver(ctx, msg.Observer, msg.EventType, msg.Payload)
	})
}

// Close releases connections and listeners.
// AlignNumbering moves every document counter past the numbers already
// stored, so imported or restored data never collides with new documents.
func (a *App) AlignNumbering(ctx context.Context) (int, error) {
	var applied int
	err := a.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		n, err := a.Numbering.Align(ctx, report_repo.NewSequenceFloors(a.TxManager, a.Calendar))
		applied = n
		return err
	})
	return applied, err
}

func (a *App) Close() {
	if a.local != nil {
		a.local.Stop()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Default().Warnw("close redis", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

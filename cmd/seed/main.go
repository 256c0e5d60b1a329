// Package main provides a CLI tool for seeding the database with the first
// super admin, default settings and (optionally) a demo catalogue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"glasserp/internal/app"
	"glasserp/internal/config"
	"glasserp/internal/core/apperror"
	appctx "glasserp/internal/core/context"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/security"
	"glasserp/internal/core/types"
	"glasserp/internal/domain"
	"glasserp/internal/domain/auth"
	"glasserp/internal/domain/inventory"
	"glasserp/internal/domain/product"
	"glasserp/internal/domain/settings"
	"glasserp/internal/infrastructure/storage/postgres/catalog_repo"
	"glasserp/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer a.Close()

	log.Info("connected to database")

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "seed",
		Name:   "seed",
		Role:   string(security.RoleSuperAdmin),
	})

	if err := seedAdminUser(ctx, a, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}
	if err := seedSettings(ctx, a, log); err != nil {
		log.Fatalw("failed to seed settings", "error", err)
	}

	if err := alignNumbering(ctx, a, log); err != nil {
		log.Fatalw("failed to align document numbering", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, a, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, a *app.App, log *logger.Logger) error {
	email := getEnv("SEED_ADMIN_EMAIL", "admin@glasserp.local")
	password := getEnv("SEED_ADMIN_PASSWORD", "Admin123!")

	user, err := a.Auth.CreateUser(ctx, auth.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     "Administrator",
	}, security.RoleSuperAdmin)
	if apperror.IsCode(err, apperror.CodeConflict) {
		log.Infow("admin user already exists", "email", email)
		return nil
	}
	if err != nil {
		return err
	}
	log.Infow("admin user created", "email", email, "id", user.ID)
	return nil
}

// seedSettings stores the built-in defaults for every type never saved before.
func seedSettings(ctx context.Context, a *app.App, log *logger.Logger) error {
	repo := catalog_repo.NewSettingsRepo(a.TxManager)
	defaults := map[settings.Type]any{
		settings.TypeAdvancePayment: settings.DefaultAdvancePayment(),
		settings.TypeGST:            settings.DefaultGST(a.Config.CompanyStateCode),
		settings.TypeJobWorkPricing: settings.DefaultJobWorkPricing(),
		settings.TypeWallet:         settings.DefaultWallet(),
		settings.TypeTransport:      settings.DefaultTransport(),
	}

	for _, t := range settings.Types {
		_, err := repo.Get(ctx, t)
		if err == nil {
			continue
		}
		if !apperror.IsNotFound(err) {
			return err
		}
		data, err := json.Marshal(defaults[t])
		if err != nil {
			return fmt.Errorf("encode %s: %w", t, err)
		}
		if _, err := a.Settings.Put(ctx, t, data); err != nil {
			return fmt.Errorf("store %s: %w", t, err)
		}
		log.Infow("default settings stored", "type", t)
	}
	return nil
}

// alignNumbering raises the counters past numbers found in existing documents.
func alignNumbering(ctx context.Context, a *app.App, log *logger.Logger) error {
	n, err := a.AlignNumbering(ctx)
	if err != nil {
		return err
	}
	log.Infow("document numbering aligned", "floors", n)
	return nil
}

type demoProduct struct {
	name     string
	category string
	hsn      string
	prices   map[int]float64 // thickness mm -> rupees per sqft
}

var demoProducts = []demoProduct{
	{name: "Clear Float Glass", category: "float", hsn: "7005", prices: map[int]float64{4: 45, 5: 55, 6: 65, 8: 90}},
	{name: "Toughened Glass", category: "toughened", hsn: "7007", prices: map[int]float64{5: 110, 6: 130, 8: 165, 10: 210, 12: 260}},
	{name: "Laminated Glass", category: "laminated", hsn: "7007", prices: map[int]float64{6: 190, 8: 240, 10: 290}},
	{name: "Frosted Glass", category: "decorative", hsn: "7005", prices: map[int]float64{4: 70, 5: 85}},
}

type demoMaterial struct {
	name     string
	category string
	unit     string
	stock    float64
	minimum  float64
	price    float64
}

var demoMaterials = []demoMaterial{
	{name: "Float glass sheet 6mm", category: "raw_glass", unit: "sqft", stock: 5000, minimum: 1000, price: 38},
	{name: "PVB interlayer", category: "consumable", unit: "sqm", stock: 400, minimum: 100, price: 260},
	{name: "Silicone sealant", category: "consumable", unit: "tube", stock: 120, minimum: 40, price: 180},
	{name: "Edge polishing wheel", category: "spare", unit: "pcs", stock: 12, minimum: 4, price: 1450},
}

func seedDemoData(ctx context.Context, a *app.App, log *logger.Logger) error {
	existing, err := a.Products.List(ctx, domain.ListFilter{Limit: 1})
	if err != nil {
		return err
	}
	if existing.TotalCount > 0 {
		log.Info("demo data already present, skipping")
		return nil
	}

	for _, d := range demoProducts {
		p := &product.Product{
			Catalog:  entity.NewCatalog(d.name),
			Category: d.category,
			HSNCode:  d.hsn,
		}
		for thickness := range d.prices {
			p.ThicknessOptions = append(p.ThicknessOptions, thickness)
		}
		slices.Sort(p.ThicknessOptions)
		if err := a.Products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %s: %w", d.name, err)
		}
		for thickness, rupees := range d.prices {
			rule := &product.PricingRule{
				Thickness:           thickness,
				BasePricePerSqft:    types.PaiseFromRupees(rupees),
				BulkDiscountPercent: 5,
				BulkMinSqft:         100,
			}
			if err := a.Products.SetPricing(ctx, p.ID, rule); err != nil {
				return fmt.Errorf("price %s %dmm: %w", d.name, thickness, err)
			}
		}
	}
	log.Infow("demo products created", "count", len(demoProducts))

	for _, d := range demoMaterials {
		m := &inventory.Material{
			Catalog:      entity.NewCatalog(d.name),
			Category:     d.category,
			Unit:         d.unit,
			CurrentStock: types.NewQuantityFromFloat64(d.stock),
			MinimumStock: types.NewQuantityFromFloat64(d.minimum),
			UnitPrice:    types.PaiseFromRupees(d.price),
		}
		if err := a.Inventory.CreateMaterial(ctx, m); err != nil {
			return fmt.Errorf("create material %s: %w", d.name, err)
		}
	}
	log.Infow("demo materials created", "count", len(demoMaterials))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

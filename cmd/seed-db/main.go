package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/product"
	"github.com/xenking/instasupply/internal/storage/postgres"
)

type productJSON struct {
	Name              string                  `json:"name"`
	Category          product.Category        `json:"category"`
	Description       string                  `json:"description"`
	Price             decimal.Decimal         `json:"price"`
	Stock             int                     `json:"stock"`
	LowStockThreshold *int                    `json:"lowStockThreshold"`
	Unit              string                  `json:"unit"`
	Image             string                  `json:"image"`
	Specifications    []product.Specification `json:"specifications"`
}

type seedConfig struct {
	databaseURL  string
	productsFile string
	name         string
	email        string
	password     string
}

func main() {
	_ = godotenv.Load()

	var cfg seedConfig
	flag.StringVar(&cfg.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&cfg.name, "name", "Demo Supplier", "supplier name")
	flag.StringVar(&cfg.email, "email", "demo@instasupply.app", "supplier email")
	flag.StringVar(&cfg.password, "password", "", "supplier password (or INSTA_SEED_PASSWORD env)")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.databaseURL == "" {
		cfg.databaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if cfg.password == "" {
		cfg.password = os.Getenv("INSTA_SEED_PASSWORD")
	}
	if cfg.password == "" {
		lg.Fatal("supplier password is required: set --password or INSTA_SEED_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, cfg seedConfig) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, cfg.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	sup, created, err := seedSupplier(ctx, postgres.NewSupplierRepository(pool), cfg)
	if err != nil {
		return errors.Wrap(err, "seed supplier")
	}
	lg.Info("Supplier ready", zap.String("id", sup.ID), zap.String("email", sup.Email), zap.Bool("created", created))
	if !created {
		lg.Info("Supplier already existed, skipping products")
		return nil
	}

	if err := seedProducts(ctx, lg, product.NewService(postgres.NewProductRepository(pool)), sup.ID, cfg.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	return nil
}

// seedSupplier returns the verified supplier for cfg.email, creating it when
// missing.
func seedSupplier(ctx context.Context, repo *postgres.SupplierRepository, cfg seedConfig) (*auth.Supplier, bool, error) {
	existing, err := repo.GetByEmail(ctx, cfg.email)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, auth.ErrNotFound):
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, errors.Wrap(err, "hash password")
	}
	now := time.Now().UTC()
	sup := &auth.Supplier{
		ID:           uuid.New().String(),
		Name:         cfg.name,
		Email:        cfg.email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, sup); err != nil {
		return nil, false, err
	}
	if err := repo.MarkVerified(ctx, sup.ID, now); err != nil {
		return nil, false, err
	}
	return sup, true, nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, svc *product.Service, supplierID, productsFile string) error {
	lg.Info("Reading products file", zap.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	lg.Info("Creating products", zap.Int("count", len(products)))
	for _, p := range products {
		in := product.Input{
			Name:              &p.Name,
			Category:          &p.Category,
			Description:       &p.Description,
			Price:             &p.Price,
			Stock:             &p.Stock,
			LowStockThreshold: p.LowStockThreshold,
			Specifications:    p.Specifications,
		}
		if p.Unit != "" {
			in.Unit = &p.Unit
		}
		if p.Image != "" {
			in.Image = &p.Image
		}
		created, err := svc.Create(ctx, supplierID, in)
		if err != nil {
			return errors.Wrapf(err, "create product %q", p.Name)
		}
		lg.Info("Created product", zap.String("id", created.ID), zap.String("name", created.Name))
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/detodo/marketplace-backend/internal/config"
	"github.com/detodo/marketplace-backend/internal/db"
	"github.com/detodo/marketplace-backend/internal/logger"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/repository"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const demoSellerEmail = "demo-seller@detodo.local"

type seedProduct struct {
	Name      string
	Brand     string
	Price     string
	Condition string
}

func main() {
	_ = godotenv.Load()
	logger.Init("detodo-seed", os.Getenv("APP_ENV"), "info")
	defer logger.Sync()
	if err := run(); err != nil {
		logger.L().Fatal("seed failed", zap.Error(err))
	}
}

func run() error {
	ctx := context.Background()
	log := logger.L()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Info("products already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	products := buildSeedProducts()
	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		brands := repository.NewBrandRepository(tx)
		for _, p := range products {
			if _, err := brands.FirstOrCreate(ctx, p.Brand); err != nil {
				return fmt.Errorf("brand %q: %w", p.Brand, err)
			}
		}

		seller, err := demoSeller(ctx, tx)
		if err != nil {
			return err
		}
		repo := repository.NewProductRepository(tx)
		for idx, sp := range products {
			p := &model.Product{
				SellerID:    seller.ID,
				Name:        sp.Name,
				Description: fmt.Sprintf("%s by %s, %s. Smoke-free home, ships within two days.", sp.Name, sp.Brand, sp.Condition),
				Price:       decimal.RequireFromString(sp.Price),
				Currency:    "USD",
				Condition:   sp.Condition,
				Brand:       sp.Brand,
				Images:      []string{picsumURL(sp.Brand, idx+1)},
				OpenToTrade: idx%2 == 0,
			}
			if err := repo.Create(ctx, p); err != nil {
				return fmt.Errorf("insert product %q: %w", sp.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("seed complete", zap.Int("products", len(products)), zap.String("seller", demoSellerEmail))
	return nil
}

func demoSeller(ctx context.Context, tx *gorm.DB) (*model.User, error) {
	users := repository.NewUserRepository(tx)
	u, err := users.FindByEmail(ctx, demoSellerEmail)
	if err == nil {
		return u, nil
	}
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "demo-password"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u = &model.User{
		Email:              demoSellerEmail,
		PasswordHash:       string(hash),
		Name:               "Demo Seller",
		SubscriptionActive: true,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create demo seller: %w", err)
	}
	return u, nil
}

func buildSeedProducts() []seedProduct {
	type brand struct {
		Name  string
		Base  int64
		Items []string
	}
	catalogue := []brand{
		{Name: "Trek", Base: 420, Items: []string{"FX 2 hybrid bike", "Marlin 5 mountain bike", "Kids 20in bike"}},
		{Name: "Apple", Base: 350, Items: []string{"iPad 9th gen 64GB", "AirPods Pro", "MacBook Air M1"}},
		{Name: "Sony", Base: 180, Items: []string{"WH-1000XM4 headphones", "Alpha a6000 body", "PS4 controller"}},
		{Name: "IKEA", Base: 40, Items: []string{"KALLAX shelf unit", "POANG armchair", "LACK side table"}},
		{Name: "Patagonia", Base: 90, Items: []string{"Nano Puff jacket", "Black Hole duffel 55L", "Better Sweater fleece"}},
		{Name: "Fender", Base: 260, Items: []string{"Player Stratocaster", "Frontman 10G amp"}},
		{Name: "Nintendo", Base: 150, Items: []string{"Switch Lite", "Pro Controller"}},
	}
	conditions := []string{"like new", "good", "fair"}

	var out []seedProduct
	for _, b := range catalogue {
		for i, name := range b.Items {
			price := decimal.NewFromInt(b.Base + int64(i*25)).Add(decimal.RequireFromString("0.99"))
			out = append(out, seedProduct{
				Name:      name,
				Brand:     b.Name,
				Price:     price.StringFixed(2),
				Condition: conditions[i%len(conditions)],
			})
		}
	}
	return out
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Product{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count products: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}

func picsumURL(brand string, idx int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", strings.ToLower(brand), idx)
}

package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/detodo/marketplace-backend/internal/authz"
	"github.com/detodo/marketplace-backend/internal/metrics"
	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/repository"
	"github.com/detodo/marketplace-backend/internal/storage"
	"github.com/shopspring/decimal"
)

const (
	maxNameLen      = 160
	maxImages       = 10
	defaultCurrency = "USD"
)

type CreateProductInput struct {
	Name        string
	Description string
	Price       string
	Currency    string
	Condition   string
	Brand       string
	Images      []string
	OpenToTrade bool
}

// UpdateProductInput carries a partial edit; nil fields are left untouched.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *string
	Currency    *string
	Condition   *string
	Brand       *string
	Images      []string
	OpenToTrade *bool
}

type SearchInput struct {
	Name        string
	Brand       string
	MinPrice    string
	MaxPrice    string
	IncludeSold bool
}

type ProductService interface {
	Create(ctx context.Context, seller authz.Identity, in CreateProductInput) (*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	Search(ctx context.Context, in SearchInput) ([]model.Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.Product, error)
	Update(ctx context.Context, id string, actor authz.Identity, in UpdateProductInput) (*model.Product, error)
	MarkSold(ctx context.Context, id string, actor authz.Identity) (*model.Product, error)
	Delete(ctx context.Context, id string, actor authz.Identity) error
}

type productService struct {
	repo   repository.ProductRepository
	images storage.ImageStore
}

func NewProductService(repo repository.ProductRepository, images storage.ImageStore) ProductService {
	return &productService{repo: repo, images: images}
}

// Prices are stored as decimal(12,2).
const priceScale = 2

var maxPrice = decimal.New(1, 10)

func parsePrice(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, invalid(field, "is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, invalid(field, "must be a number")
	}
	if d.IsNegative() {
		return decimal.Decimal{}, invalid(field, "must not be negative")
	}
	if !d.Equal(d.Truncate(priceScale)) {
		return decimal.Decimal{}, invalid(field, "must have at most 2 decimal places")
	}
	if d.GreaterThanOrEqual(maxPrice) {
		return decimal.Decimal{}, invalid(field, "must be less than "+maxPrice.String())
	}
	return d, nil
}

func normalizeCurrency(raw string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if c == "" {
		return defaultCurrency, nil
	}
	if len(c) != 3 {
		return "", invalid("currency", "must be a 3-letter code")
	}
	return c, nil
}

func (s *productService) qualify(refs []string) ([]string, error) {
	if len(refs) > maxImages {
		return nil, invalid("images", "too many images")
	}
	if s.images == nil {
		return refs, nil
	}
	return storage.QualifyAll(s.images, refs), nil
}

func (s *productService) Create(ctx context.Context, seller authz.Identity, in CreateProductInput) (*model.Product, error) {
	if seller.IsZero() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if len(name) > maxNameLen {
		return nil, invalid("name", "is too long")
	}
	if description == "" {
		return nil, invalid("description", "is required")
	}
	price, err := parsePrice("price", in.Price)
	if err != nil {
		return nil, err
	}
	currency, err := normalizeCurrency(in.Currency)
	if err != nil {
		return nil, err
	}
	images, err := s.qualify(in.Images)
	if err != nil {
		return nil, err
	}

	p := &model.Product{
		SellerID:    seller.UserID,
		Name:        name,
		Description: description,
		Price:       price,
		Currency:    currency,
		Condition:   strings.TrimSpace(in.Condition),
		Brand:       strings.TrimSpace(in.Brand),
		Images:      images,
		OpenToTrade: in.OpenToTrade,
		Status:      model.ProductStatusAvailable,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return p, nil
}

func (s *productService) Search(ctx context.Context, in SearchInput) ([]model.Product, error) {
	f := repository.ProductFilter{
		Name:        in.Name,
		Brand:       in.Brand,
		IncludeSold: in.IncludeSold,
	}
	if strings.TrimSpace(in.MinPrice) != "" {
		min, err := parsePrice("min_price", in.MinPrice)
		if err != nil {
			return nil, err
		}
		f.MinPrice = &min
	}
	if strings.TrimSpace(in.MaxPrice) != "" {
		max, err := parsePrice("max_price", in.MaxPrice)
		if err != nil {
			return nil, err
		}
		f.MaxPrice = &max
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, invalid("min_price", "must not exceed max_price")
	}
	return s.repo.Search(ctx, f)
}

func (s *productService) ListBySeller(ctx context.Context, sellerID string) ([]model.Product, error) {
	if sellerID == "" {
		return nil, invalid("seller_id", "is required")
	}
	return s.repo.ListBySeller(ctx, sellerID)
}

// loadOwned reads the product once and runs the seller check against that read.
func (s *productService) loadOwned(ctx context.Context, id string, actor authz.Identity) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if err := authz.Authorize(actor, p, authz.IsSeller); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) Update(ctx context.Context, id string, actor authz.Identity, in UpdateProductInput) (*model.Product, error) {
	p, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if p.IsSold() {
		return nil, conflict("product is sold and read-only")
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxNameLen {
			return nil, invalid("name", "must be 1-160 characters")
		}
		fields["name"] = name
		p.Name = name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			return nil, invalid("description", "is required")
		}
		fields["description"] = desc
		p.Description = desc
	}
	if in.Price != nil {
		price, err := parsePrice("price", *in.Price)
		if err != nil {
			return nil, err
		}
		fields["price"] = price
		p.Price = price
	}
	if in.Currency != nil {
		c, err := normalizeCurrency(*in.Currency)
		if err != nil {
			return nil, err
		}
		fields["currency"] = c
		p.Currency = c
	}
	if in.Condition != nil {
		fields["condition"] = strings.TrimSpace(*in.Condition)
		p.Condition = strings.TrimSpace(*in.Condition)
	}
	if in.Brand != nil {
		fields["brand"] = strings.TrimSpace(*in.Brand)
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Images != nil {
		images, err := s.qualify(in.Images)
		if err != nil {
			return nil, err
		}
		// map updates bypass the json serializer on the column
		encoded, err := json.Marshal(images)
		if err != nil {
			return nil, err
		}
		fields["images"] = string(encoded)
		p.Images = images
	}
	if in.OpenToTrade != nil {
		fields["open_to_trade"] = *in.OpenToTrade
		p.OpenToTrade = *in.OpenToTrade
	}
	if len(fields) == 0 {
		return p, nil
	}

	n, err := s.repo.UpdateIfAvailable(ctx, p.ID, p.SellerID, fields)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, conflict("product is sold and read-only")
	}
	return p, nil
}

func (s *productService) MarkSold(ctx context.Context, id string, actor authz.Identity) (*model.Product, error) {
	p, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanTransition(model.ProductStatusSold) {
		return nil, conflict("product already sold")
	}
	now := time.Now().UTC()
	n, err := s.repo.MarkSoldIfAvailable(ctx, p.ID, p.SellerID, now)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, conflict("product already sold")
	}
	p.Status = model.ProductStatusSold
	p.SoldAt = &now
	metrics.IncProductTransition(string(model.ProductStatusSold), "seller")
	return p, nil
}

func (s *productService) Delete(ctx context.Context, id string, actor authz.Identity) error {
	p, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return err
	}
	if p.IsSold() {
		return conflict("sold products cannot be deleted")
	}
	n, err := s.repo.DeleteIfAvailable(ctx, p.ID, p.SellerID)
	if err != nil {
		return err
	}
	if n == 0 {
		return conflict("sold products cannot be deleted")
	}
	return nil
}

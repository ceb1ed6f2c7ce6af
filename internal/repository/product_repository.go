package repository

import (
	"context"
	"strings"
	"time"

	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductFilter narrows a product search. Zero values mean "no constraint".
type ProductFilter struct {
	Name        string
	Brand       string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	IncludeSold bool
}

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	Search(ctx context.Context, f ProductFilter) ([]model.Product, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.Product, error)
	UpdateIfAvailable(ctx context.Context, id, sellerID string, fields map[string]interface{}) (int64, error)
	MarkSoldIfAvailable(ctx context.Context, id, sellerID string, at time.Time) (int64, error)
	DeleteIfAvailable(ctx context.Context, id, sellerID string) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) Search(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Product
	if err := searchQuery(r.db.WithContext(ctx).Model(&model.Product{}), f).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func searchQuery(q *gorm.DB, f ProductFilter) *gorm.DB {
	if !f.IncludeSold {
		q = q.Where("status = ?", model.ProductStatusAvailable)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+escapeLike(strings.ToLower(name))+"%")
	}
	if brand := strings.TrimSpace(f.Brand); brand != "" {
		q = q.Where("brand = ?", brand)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	return q.Order("created_at DESC")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.Product, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Product
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateIfAvailable applies fields only while the product is still owned by
// sellerID and available. A sold product matches nothing.
func (r *productRepository) UpdateIfAvailable(ctx context.Context, id, sellerID string, fields map[string]interface{}) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND seller_id = ? AND status = ?", id, sellerID, model.ProductStatusAvailable).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *productRepository) MarkSoldIfAvailable(ctx context.Context, id, sellerID string, at time.Time) (int64, error) {
	return r.UpdateIfAvailable(ctx, id, sellerID, map[string]interface{}{
		"status":  model.ProductStatusSold,
		"sold_at": at,
	})
}

func (r *productRepository) DeleteIfAvailable(ctx context.Context, id, sellerID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND seller_id = ? AND status = ?", id, sellerID, model.ProductStatusAvailable).
		Delete(&model.Product{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

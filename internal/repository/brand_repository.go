package repository

import (
	"context"

	"github.com/detodo/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type BrandRepository interface {
	List(ctx context.Context) ([]model.Brand, error)
	FirstOrCreate(ctx context.Context, name string) (*model.Brand, error)
}

type brandRepository struct {
	db *gorm.DB
}

func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &brandRepository{db: db}
}

func (r *brandRepository) List(ctx context.Context) ([]model.Brand, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Brand
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *brandRepository) FirstOrCreate(ctx context.Context, name string) (*model.Brand, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	b := model.Brand{Name: name}
	if err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

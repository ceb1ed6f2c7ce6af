package service

import (
	"context"

	"github.com/detodo/marketplace-backend/internal/model"
	"github.com/detodo/marketplace-backend/internal/repository"
)

type BrandService interface {
	List(ctx context.Context) ([]model.Brand, error)
}

type brandService struct {
	repo repository.BrandRepository
}

func NewBrandService(repo repository.BrandRepository) BrandService {
	return &brandService{repo: repo}
}

func (s *brandService) List(ctx context.Context) ([]model.Brand, error) {
	return s.repo.List(ctx)
}

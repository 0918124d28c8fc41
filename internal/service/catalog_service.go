package service

import (
	"context"

	"github.com/Lixing-Zhang/catering-orders/internal/models"
	"github.com/Lixing-Zhang/catering-orders/internal/repository"
)

// CatalogService handles read access to dishes and caterers
type CatalogService struct {
	repo repository.CatalogRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// ListDishes returns all available dishes
func (s *CatalogService) ListDishes(ctx context.Context) ([]models.Dish, error) {
	return s.repo.ListDishes(ctx)
}

// GetDish returns a dish by ID
func (s *CatalogService) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	dish, err := s.repo.GetDish(ctx, id)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	return dish, nil
}

// GetCaterer returns a caterer, including its working times
func (s *CatalogService) GetCaterer(ctx context.Context, id string) (*models.Caterer, error) {
	caterer, err := s.repo.GetCaterer(ctx, id)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	return caterer, nil
}

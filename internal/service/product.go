package service

import (
	"context"
	"fmt"

	"github.com/reviewvibe/reviewvibe/internal/domain"
	"github.com/reviewvibe/reviewvibe/internal/repository"
)

// topRatedMinReviews is the review floor for the top-rated listing; a single
// five-star review should not outrank an established product.
const topRatedMinReviews = 3

// ProductService implements catalog read operations.
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// GetProduct retrieves a product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered, paginated product listing.
func (s *ProductService) ListProducts(ctx context.Context, search, category *string, page, perPage int) ([]domain.Product, int, error) {
	page, perPage = normalizePage(page, perPage)

	filter := repository.ProductFilter{
		Search:   search,
		Category: category,
		Page:     page,
		PerPage:  perPage,
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// TopRatedProducts returns the highest-rated products with enough reviews.
func (s *ProductService) TopRatedProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	products, err := s.repo.TopRated(ctx, limit, topRatedMinReviews)
	if err != nil {
		return nil, fmt.Errorf("top rated products: %w", err)
	}
	return products, nil
}

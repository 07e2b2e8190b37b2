package category

import (
	"SpendSnap-Backend/domain"
	"SpendSnap-Backend/entities"
	"context"

	"github.com/google/uuid"
)

type (
	CategoryService interface {
		GetCategories(ctx context.Context) ([]domain.CategoryResponse, error)
		SeedDefaults(ctx context.Context) error
	}

	categoryService struct {
		categoryRepository CategoryRepository
	}
)

var defaultCategories = []string{
	"Groceries",
	"Dining",
	"Transport",
	"Utilities",
	"Entertainment",
	"Health",
	"Shopping",
	"Other",
}

func NewCategoryService(categoryRepository CategoryRepository) CategoryService {
	return &categoryService{categoryRepository: categoryRepository}
}

func (s *categoryService) GetCategories(ctx context.Context) ([]domain.CategoryResponse, error) {
	categories, err := s.categoryRepository.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.CategoryResponse, 0, len(categories))
	for _, c := range categories {
		responses = append(responses, domain.CategoryResponse{
			ID:    c.ID.String(),
			Name:  c.Name,
			Icon:  c.Icon,
			Color: c.Color,
		})
	}
	return responses, nil
}

func (s *categoryService) SeedDefaults(ctx context.Context) error {
	rows := make([]*entities.Category, 0, len(defaultCategories))
	for _, name := range defaultCategories {
		rows = append(rows, &entities.Category{ID: uuid.New(), Name: name})
	}
	return s.categoryRepository.Seed(ctx, rows)
}

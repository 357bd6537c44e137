package catalog

import (
	"context"

	"github.com/mkrupp/menucase/internal/domain"
)

// Repository defines the interface for menu catalog persistence.
// Records reference images by name only; image bytes never pass through here.
type Repository interface {
	// CreateCategory inserts a category and sets its ID and CreatedAt.
	CreateCategory(ctx context.Context, category *domain.Category) error

	// UpdateCategory overwrites the mutable fields of the category with category.ID.
	// Returns domain.ErrCategoryNotFound if it does not exist.
	UpdateCategory(ctx context.Context, category *domain.Category) error

	// DeleteCategory removes a category together with its dishes.
	// Returns domain.ErrCategoryNotFound if it does not exist.
	DeleteCategory(ctx context.Context, id int64) error

	// GetCategory retrieves a category by ID.
	// Returns domain.ErrCategoryNotFound if it does not exist.
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)

	// ListCategories returns all categories ordered by ID.
	ListCategories(ctx context.Context) ([]domain.Category, error)

	// CreateDish inserts a dish and sets its ID and CreatedAt.
	// Returns domain.ErrCategoryNotFound if its category does not exist.
	CreateDish(ctx context.Context, dish *domain.Dish) error

	// UpdateDish overwrites the mutable fields of the dish with dish.ID.
	// Returns domain.ErrDishNotFound if it does not exist.
	UpdateDish(ctx context.Context, dish *domain.Dish) error

	// DeleteDish removes a dish.
	// Returns domain.ErrDishNotFound if it does not exist.
	DeleteDish(ctx context.Context, id int64) error

	// GetDish retrieves a dish by ID.
	// Returns domain.ErrDishNotFound if it does not exist.
	GetDish(ctx context.Context, id int64) (*domain.Dish, error)

	// ListDishes returns the dishes of a category ordered by ID.
	ListDishes(ctx context.Context, categoryID int64) ([]domain.Dish, error)

	// Close releases any resources held by the repository.
	// Returns an error if cleanup fails.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)

package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrCategoryNotFound is returned when looking up a non-existent category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrDishNotFound is returned when looking up a non-existent dish.
	ErrDishNotFound = errors.New("dish not found")
	// ErrInvalidInput is returned when a catalog request fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Category is a menu section. Image holds the logical name of its picture, or "".
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	CreatedAt   int64  `json:"createdAt"`
}

// Dish is a menu item belonging to a category. Images holds logical image names.
type Dish struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"categoryId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	CreatedAt   int64           `json:"createdAt"`
}

// CategoryRequest is the create/update payload for a category.
// Image is an optional base64 payload; when empty on update the current image is kept.
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// DishRequest is the create/update payload for a dish.
// Images are base64 payloads; when nil on update the current images are kept.
type DishRequest struct {
	CategoryID  int64           `json:"categoryId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
}

// IDResponse represents a response containing the ID of a created or updated record.
type IDResponse struct {
	ID int64 `json:"id"`
}

package derivative

import (
	"context"

	"github.com/mkrupp/menucase/internal/domain"
)

// RenderFunc produces the encoded derivative bytes for one size class.
type RenderFunc func(ctx context.Context, size int) ([]byte, error)

// Store defines the persistence operations for image derivatives.
// A store owns one root and one set of sizes; every derivative it holds is
// addressed by a size from that set and a logical image name.
type Store interface {
	// Sizes returns the size classes the store fans out over, in policy order.
	Sizes() []int

	// Save writes one derivative, replacing any file already stored under its basename.
	// A failed write leaves no partial file behind.
	Save(ctx context.Context, derivative *domain.Derivative) error

	// Load reads the canonical (largest) derivative of name.
	Load(ctx context.Context, name string) (*domain.Derivative, error)

	// LoadSize reads the derivative of name for the given size class.
	LoadSize(ctx context.Context, size int, name string) (*domain.Derivative, error)

	// Delete removes one derivative. Returns domain.ErrNotFound if it is absent.
	Delete(ctx context.Context, size int, name string) error

	// DeleteIfExists removes one derivative if present.
	DeleteIfExists(ctx context.Context, size int, name string) error

	// Exists reports whether the derivative is present.
	Exists(ctx context.Context, size int, name string) bool

	// SaveAll renders and saves the derivative of name for every size concurrently.
	// All sizes are attempted; the returned error joins every failure.
	SaveAll(ctx context.Context, name string, render RenderFunc) error

	// DeleteAll removes the derivatives of name for every size concurrently.
	// A missing derivative is reported as domain.ErrNotFound but does not stop the others.
	DeleteAll(ctx context.Context, name string) error

	// DeleteAllIfExists removes whatever derivatives of name are present.
	DeleteAllIfExists(ctx context.Context, name string) error
}

// StoreFactory creates a Store for the given size classes.
type StoreFactory func(ctx context.Context, sizes []int) (Store, error)

package imagesvc

import (
	"fmt"
	"slices"

	"github.com/mkrupp/menucase/internal/domain"
)

// Policy is the immutable, ordered set of derivative sizes.
type Policy struct {
	sizes []int
}

// NewPolicy validates sizes and returns a Policy preserving their order.
// Sizes must be non-empty, positive and unique.
func NewPolicy(sizes ...int) (Policy, error) {
	if len(sizes) == 0 {
		return Policy{}, fmt.Errorf("%w: no sizes configured", domain.ErrConfig)
	}

	for i, size := range sizes {
		if size <= 0 {
			return Policy{}, fmt.Errorf("%w: size %d is not positive", domain.ErrConfig, size)
		}

		if slices.Contains(sizes[:i], size) {
			return Policy{}, fmt.Errorf("%w: size %d configured twice", domain.ErrConfig, size)
		}
	}

	return Policy{sizes: slices.Clone(sizes)}, nil
}

// Sizes returns a copy of the configured sizes in configuration order.
func (p Policy) Sizes() []int {
	return slices.Clone(p.sizes)
}

// Canonical returns the largest size.
func (p Policy) Canonical() int {
	if len(p.sizes) == 0 {
		return 0
	}

	return slices.Max(p.sizes)
}

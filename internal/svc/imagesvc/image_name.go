package imagesvc

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/util/encoding"
)

// NameGenerator hands out opaque names for newly ingested images.
type NameGenerator interface {
	// NewName returns a fresh name including the image extension.
	NewName() (string, error)
}

// RandomNameGenerator derives names from random (version 4) UUIDs.
// Names carry no information about the image content, so two uploads of
// the same bytes get two names.
type RandomNameGenerator struct{}

var _ NameGenerator = (*RandomNameGenerator)(nil)

// NewRandomNameGenerator draws from the entropy source once and fails if it is unusable.
func NewRandomNameGenerator() (*RandomNameGenerator, error) {
	if _, err := uuid.NewRandom(); err != nil {
		return nil, fmt.Errorf("%w: entropy source: %w", domain.ErrConfig, err)
	}

	return &RandomNameGenerator{}, nil
}

func (RandomNameGenerator) NewName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}

	return encoding.EncodeCrockfordB32LC(id[:]) + domain.ImageExt, nil
}

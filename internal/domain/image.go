package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode is returned when an image payload or its base64 envelope cannot be decoded.
	ErrDecode = errors.New("decode image")
	// ErrFetch is returned when a remote image cannot be retrieved.
	ErrFetch = errors.New("fetch image")
	// ErrNotFound is returned when a derivative targeted by load or delete is absent.
	ErrNotFound = errors.New("image not found")
	// ErrIO is returned when the derivative store fails to read or write a file.
	ErrIO = errors.New("image io")
	// ErrConfig is returned when the image configuration is empty or invalid.
	ErrConfig = errors.New("invalid image config")

	ErrInvalidName           = errors.New("invalid image name")
	ErrImageTooLarge         = errors.New("image too large")
	ErrImageTypeNotSupported = errors.New("image type not supported")
)

// ImageExt is the extension of every stored image; all derivatives share one codec.
const ImageExt = ".webp"

// ValidateImageName checks that name is a bare file name with the image extension.
// Names reach the filesystem, so anything that could leave the storage root is rejected.
func ValidateImageName(name string) error {
	stem, ok := strings.CutSuffix(name, ImageExt)

	switch {
	case !ok || stem == "":
		return fmt.Errorf("%w: %q: missing %s extension", ErrInvalidName, name, ImageExt)
	case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q: path elements not allowed", ErrInvalidName, name)
	case strings.ContainsFunc(name, func(r rune) bool { return r < 0x20 || r == 0x7f }):
		return fmt.Errorf("%w: %q: control characters not allowed", ErrInvalidName, name)
	}

	return nil
}

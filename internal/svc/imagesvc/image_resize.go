package imagesvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/mkrupp/menucase/internal/domain"
)

// ErrUnknownFilter is returned when an unsupported resampling filter is configured.
var ErrUnknownFilter = errors.New("unknown filter")

//nolint:gochecknoglobals
var (
	// filterMap maps filter names to their implementations.
	// Supported values: "lanczos", "catmullrom", "linear", "box", "nearest".
	filterMap = map[string]imaging.ResampleFilter{
		"lanczos":    imaging.Lanczos,
		"catmullrom": imaging.CatmullRom,
		"linear":     imaging.Linear,
		"box":        imaging.Box,
		"nearest":    imaging.NearestNeighbor,
	}
)

// Resizer decodes source payloads and renders derivatives from them.
// Decoding happens once per image; Resize is called once per size and must be
// safe for concurrent use on the same image.
type Resizer interface {
	// Decode parses a supported image payload. Returns domain.ErrDecode for
	// unsupported or corrupt input.
	Decode(ctx context.Context, data []byte) (image.Image, error)

	// Resize shrinks img to fit a size x size box, preserving the aspect ratio and
	// never enlarging, and encodes the result.
	Resize(ctx context.Context, img image.Image, size int) ([]byte, error)
}

// ImagingResizer implements Resizer with disintegration/imaging and a WebP encoder.
type ImagingResizer struct {
	filter  imaging.ResampleFilter
	quality float32
}

var _ Resizer = (*ImagingResizer)(nil)

// NewImagingResizer creates a resizer using the filter and quality from cfg.
func NewImagingResizer(cfg ImageConfig) (*ImagingResizer, error) {
	filter, err := getFilterByName(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %q", domain.ErrConfig, err, cfg.Filter)
	}

	if cfg.Quality < 0 || cfg.Quality > 100 {
		return nil, fmt.Errorf("%w: quality %v out of range", domain.ErrConfig, cfg.Quality)
	}

	return &ImagingResizer{
		filter:  filter,
		quality: float32(cfg.Quality),
	}, nil
}

func getFilterByName(name string) (imaging.ResampleFilter, error) {
	filter, ok := filterMap[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return imaging.ResampleFilter{}, ErrUnknownFilter
	}

	return filter, nil
}

func (rs *ImagingResizer) Decode(_ context.Context, data []byte) (image.Image, error) {
	if _, err := detectImageType(data); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}

	if bounds := img.Bounds(); bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrDecode)
	}

	return img, nil
}

// Resize implements Resizer. An image already inside the box is re-encoded unscaled.
func (rs *ImagingResizer) Resize(_ context.Context, img image.Image, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d is not positive", domain.ErrConfig, size)
	}

	fitted := imaging.Fit(img, size, size, rs.filter)

	var buf bytes.Buffer

	if err := webp.Encode(&buf, fitted, &webp.Options{Quality: rs.quality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}

	return buf.Bytes(), nil
}

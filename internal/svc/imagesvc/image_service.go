package imagesvc

import (
	"context"
	"io"
)

// ImageService defines the interface for ingesting and managing logical images.
// Every ingested image is stored once per configured size under one opaque name;
// ingestion is all-or-nothing.
type ImageService interface {
	// IngestBytes stores the derivatives of an encoded image payload and returns its new name.
	IngestBytes(ctx context.Context, data []byte) (string, error)

	// IngestFile reads the whole payload from r and ingests it.
	IngestFile(ctx context.Context, r io.Reader) (string, error)

	// IngestBase64 decodes a base64 payload, optionally prefixed by a data URL header, and ingests it.
	IngestBase64(ctx context.Context, text string) (string, error)

	// IngestURL downloads an image and ingests it.
	IngestURL(ctx context.Context, url string) (string, error)

	// IngestBatch ingests every payload concurrently. If any item fails, no item is kept.
	// Names are returned in input order.
	IngestBatch(ctx context.Context, items [][]byte) ([]string, error)

	// IngestFiles reads every reader and ingests the payloads as one batch.
	IngestFiles(ctx context.Context, readers []io.Reader) ([]string, error)

	// Load returns the canonical (largest) derivative of the image.
	Load(ctx context.Context, name string) ([]byte, error)

	// LoadSize returns the derivative of the image for the given size.
	LoadSize(ctx context.Context, size int, name string) ([]byte, error)

	// Delete removes every derivative of the image. Missing derivatives are
	// reported as domain.ErrNotFound; the present ones are removed regardless.
	Delete(ctx context.Context, name string) error

	// DeleteIfExists removes whatever derivatives of the image are present.
	DeleteIfExists(ctx context.Context, name string) error

	// DeleteAll deletes several images concurrently with Delete semantics.
	DeleteAll(ctx context.Context, names []string) error

	// DeleteAllIfExists deletes several images concurrently with DeleteIfExists semantics.
	DeleteAllIfExists(ctx context.Context, names []string) error

	// Replace removes the old image, if any, and ingests data under a new name.
	// An empty old name makes this a plain ingest.
	Replace(ctx context.Context, old string, data []byte) (string, error)

	// ReplaceFile is Replace reading the payload from r.
	ReplaceFile(ctx context.Context, old string, r io.Reader) (string, error)

	// Sizes returns the configured derivative sizes.
	Sizes() []int
}

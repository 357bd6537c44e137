package imagesvc

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/infra/logging"
	"github.com/mkrupp/menucase/internal/repo/derivative"
	"github.com/mkrupp/menucase/internal/util/fanout"
)

// base64Encodings are tried in order; clients differ in alphabet and padding.
//
//nolint:gochecknoglobals
var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DerivativeImageService implements ImageService on top of a derivative store.
type DerivativeImageService struct {
	store   derivative.Store
	resizer Resizer
	names   NameGenerator
	client  *http.Client
	policy  Policy
	cfg     ImageConfig
	log     logging.Logger
}

var _ ImageService = (*DerivativeImageService)(nil)

// NewDerivativeImageService creates a new DerivativeImageService with the given configuration.
// It requires:
// - A store factory, called once with the configured sizes
// - A Resizer for decoding and rendering derivatives
// - A NameGenerator for naming new images
// - An HTTP client for URL ingestion (http.DefaultClient if nil)
// Returns an error if the size policy is invalid or the store cannot be initialized.
func NewDerivativeImageService(
	ctx context.Context,
	storeFactory derivative.StoreFactory,
	resizer Resizer,
	names NameGenerator,
	client *http.Client,
	cfg ImageConfig,
) (*DerivativeImageService, error) {
	policy, err := NewPolicy(cfg.Sizes...)
	if err != nil {
		return nil, fmt.Errorf("new policy: %w", err)
	}

	store, err := storeFactory(ctx, policy.Sizes())
	if err != nil {
		return nil, fmt.Errorf("new derivative store: %w", err)
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &DerivativeImageService{
		store:   store,
		resizer: resizer,
		names:   names,
		client:  client,
		policy:  policy,
		cfg:     cfg,
		log:     logging.GetLogger("svc.imagesvc.derivative_image_service"),
	}, nil
}

func (imageSvc *DerivativeImageService) Sizes() []int {
	return imageSvc.policy.Sizes()
}

func (imageSvc *DerivativeImageService) IngestBytes(ctx context.Context, data []byte) (name string, err error) {
	log := imageSvc.log.With(logging.Group("image", "bytes", len(data)))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "image ingest failed", "error", err)
		} else {
			log.DebugContext(ctx, "image ingested", logging.Group("image", "name", name))
		}
	}()

	if imageSvc.cfg.MaxSize > 0 && int64(len(data)) > imageSvc.cfg.MaxSize {
		return "", fmt.Errorf("%w: %d > %d bytes", domain.ErrImageTooLarge, len(data), imageSvc.cfg.MaxSize)
	}

	img, err := imageSvc.resizer.Decode(ctx, data)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	name, err = imageSvc.names.NewName()
	if err != nil {
		return "", fmt.Errorf("new name: %w", err)
	}

	if err := imageSvc.store.SaveAll(ctx, name, imageSvc.render(img)); err != nil {
		imageSvc.rollback(ctx, name)

		return "", fmt.Errorf("save derivatives: %w", err)
	}

	return name, nil
}

func (imageSvc *DerivativeImageService) render(img image.Image) derivative.RenderFunc {
	return func(ctx context.Context, size int) ([]byte, error) {
		//nolint:wrapcheck
		return imageSvc.resizer.Resize(ctx, img, size)
	}
}

// rollback removes whatever derivatives of name were written. Failures are
// logged and swallowed so the original error reaches the caller.
func (imageSvc *DerivativeImageService) rollback(ctx context.Context, names ...string) {
	ctx = context.WithoutCancel(ctx)

	err := fanout.Each(ctx, imageSvc.cfg.Workers, names, imageSvc.store.DeleteAllIfExists)
	if err != nil {
		imageSvc.log.WarnContext(ctx, "image rollback failed",
			logging.Group("image", "names", names),
			"error", err,
		)
	}
}

func (imageSvc *DerivativeImageService) IngestFile(ctx context.Context, r io.Reader) (string, error) {
	data, err := imageSvc.readAll(r)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	return imageSvc.IngestBytes(ctx, data)
}

func (imageSvc *DerivativeImageService) IngestBase64(ctx context.Context, text string) (string, error) {
	data, err := DecodeBase64(text)
	if err != nil {
		return "", err
	}

	return imageSvc.IngestBytes(ctx, data)
}

// DecodeBase64 accepts a bare payload or a data URL ("data:image/png;base64,....").
// Every standard and URL-safe alphabet is tried, padded or not.
func DecodeBase64(text string) ([]byte, error) {
	if i := strings.IndexByte(text, ','); i >= 0 {
		text = text[i+1:]
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty base64 payload", domain.ErrDecode)
	}

	var lastErr error

	for _, enc := range base64Encodings {
		data, err := enc.DecodeString(text)
		if err == nil {
			return data, nil
		}

		lastErr = err
	}

	return nil, fmt.Errorf("%w: base64: %w", domain.ErrDecode, lastErr)
}

func (imageSvc *DerivativeImageService) IngestURL(ctx context.Context, rawURL string) (name string, err error) {
	log := imageSvc.log.With(logging.Group("image", "url", rawURL))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "image fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "image fetched", logging.Group("image", "name", name))
		}
	}()

	data, err := imageSvc.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	return imageSvc.IngestBytes(ctx, data)
}

func (imageSvc *DerivativeImageService) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %w", domain.ErrFetch, err)
	}

	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrFetch, target.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %w", domain.ErrFetch, err)
	}

	resp, err := imageSvc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrFetch, resp.StatusCode)
	}

	data, err := imageSvc.readAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrFetch, err)
	}

	return data, nil
}

// readAll reads r up to the configured size limit. A payload over the limit
// fails with domain.ErrImageTooLarge without being read to the end.
func (imageSvc *DerivativeImageService) readAll(r io.Reader) ([]byte, error) {
	if imageSvc.cfg.MaxSize <= 0 {
		//nolint:wrapcheck
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, imageSvc.cfg.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIO, err)
	}

	if int64(len(data)) > imageSvc.cfg.MaxSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", domain.ErrImageTooLarge, imageSvc.cfg.MaxSize)
	}

	return data, nil
}

func (imageSvc *DerivativeImageService) IngestBatch(ctx context.Context, items [][]byte) (names []string, err error) {
	log := imageSvc.log.With(logging.Group("batch", "items", len(items)))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "image batch ingest failed", "error", err)
		} else {
			log.DebugContext(ctx, "image batch ingested", logging.Group("batch", "names", names))
		}
	}()

	names, err = fanout.Collect(ctx, imageSvc.cfg.Workers, items, imageSvc.IngestBytes)
	if err != nil {
		// Failed items rolled themselves back; drop the ones that made it.
		var ingested []string

		for _, name := range names {
			if name != "" {
				ingested = append(ingested, name)
			}
		}

		imageSvc.rollback(ctx, ingested...)

		return nil, fmt.Errorf("ingest batch: %w", err)
	}

	return names, nil
}

func (imageSvc *DerivativeImageService) IngestFiles(ctx context.Context, readers []io.Reader) ([]string, error) {
	items := make([][]byte, 0, len(readers))

	for i, r := range readers {
		data, err := imageSvc.readAll(r)
		if err != nil {
			return nil, fmt.Errorf("read file %d: %w", i, err)
		}

		items = append(items, data)
	}

	return imageSvc.IngestBatch(ctx, items)
}

func (imageSvc *DerivativeImageService) Load(ctx context.Context, name string) ([]byte, error) {
	derivative, err := imageSvc.store.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	return derivative.Bytes(), nil
}

func (imageSvc *DerivativeImageService) LoadSize(ctx context.Context, size int, name string) ([]byte, error) {
	derivative, err := imageSvc.store.LoadSize(ctx, size, name)
	if err != nil {
		return nil, fmt.Errorf("load size: %w", err)
	}

	return derivative.Bytes(), nil
}

func (imageSvc *DerivativeImageService) Delete(ctx context.Context, name string) (err error) {
	return imageSvc.delete(ctx, name, false)
}

func (imageSvc *DerivativeImageService) DeleteIfExists(ctx context.Context, name string) (err error) {
	return imageSvc.delete(ctx, name, true)
}

func (imageSvc *DerivativeImageService) delete(ctx context.Context, name string, ifExists bool) (err error) {
	log := imageSvc.log.With(logging.Group("image", "name", name, "ifExists", ifExists))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "image delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "image deleted")
		}
	}()

	if ifExists {
		err = imageSvc.store.DeleteAllIfExists(ctx, name)
	} else {
		err = imageSvc.store.DeleteAll(ctx, name)
	}

	if err != nil {
		return fmt.Errorf("delete derivatives: %w", err)
	}

	return nil
}

func (imageSvc *DerivativeImageService) DeleteAll(ctx context.Context, names []string) error {
	if err := fanout.Each(ctx, imageSvc.cfg.Workers, names, imageSvc.Delete); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}

	return nil
}

func (imageSvc *DerivativeImageService) DeleteAllIfExists(ctx context.Context, names []string) error {
	if err := fanout.Each(ctx, imageSvc.cfg.Workers, names, imageSvc.DeleteIfExists); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}

	return nil
}

// Replace deletes the old image before ingesting the new one. If the new
// payload is rejected the old image is gone all the same.
func (imageSvc *DerivativeImageService) Replace(ctx context.Context, old string, data []byte) (string, error) {
	if old != "" {
		if err := imageSvc.DeleteIfExists(ctx, old); err != nil {
			return "", fmt.Errorf("replace: %w", err)
		}
	}

	return imageSvc.IngestBytes(ctx, data)
}

func (imageSvc *DerivativeImageService) ReplaceFile(ctx context.Context, old string, r io.Reader) (string, error) {
	data, err := imageSvc.readAll(r)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	return imageSvc.Replace(ctx, old, data)
}

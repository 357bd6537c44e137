package derivative

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/infra/logging"
	"github.com/mkrupp/menucase/internal/util/fanout"
)

var ErrBytesWrittenMismatch = errors.New("bytes written mismatch")

const markerFilename = ".write-check"

// FileSystemStoreConfig holds configuration for the filesystem-based derivative store.
type FileSystemStoreConfig struct {
	// Basedir is the root directory every derivative is stored in
	Basedir string `env:"BASEDIR" default:"var/storage/images"`

	// Workers caps concurrent per-size operations; 0 means one per CPU
	Workers int `env:"WORKERS" default:"0"`
}

// FileSystemStoreFactory creates a factory function that returns a new FileSystemStore.
// The factory function implements the StoreFactory type.
func FileSystemStoreFactory(cfg FileSystemStoreConfig) StoreFactory {
	return func(ctx context.Context, sizes []int) (Store, error) {
		return NewFileSystemStore(ctx, sizes, cfg)
	}
}

// NewFileSystemStore creates a FileSystemStore rooted at cfg.Basedir.
// The root is created if missing and checked for writability; a store that
// cannot write fails here rather than on the first upload.
func NewFileSystemStore(ctx context.Context, sizes []int, cfg FileSystemStoreConfig) (*FileSystemStore, error) {
	log := logging.GetLogger("repo.derivative.filesystem_store").With(
		logging.Group("store",
			"basedir", cfg.Basedir,
			"sizes", sizes,
		),
	)

	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: no sizes", domain.ErrConfig)
	}

	store := &FileSystemStore{
		sizes:     slices.Clone(sizes),
		canonical: slices.Max(sizes),
		cfg:       cfg,
		log:       log,
	}

	if err := store.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	return store, nil
}

// FileSystemStore implements Store using a flat directory. Derivatives are
// stored as {size}_{name} directly under the root, so the root can be served
// as static files.
type FileSystemStore struct {
	sizes     []int
	canonical int
	cfg       FileSystemStoreConfig
	log       logging.Logger
}

var _ Store = (*FileSystemStore)(nil)

func (store *FileSystemStore) Sizes() []int {
	return slices.Clone(store.sizes)
}

// Root returns the directory derivatives are stored in.
func (store *FileSystemStore) Root() string {
	return store.cfg.Basedir
}

// Path returns the full filesystem path of a derivative.
func (store *FileSystemStore) Path(size int, name string) string {
	return filepath.Join(store.cfg.Basedir, domain.DerivativeBasename(size, name))
}

func (store *FileSystemStore) Save(ctx context.Context, derivative *domain.Derivative) error {
	if err := domain.ValidateImageName(derivative.Name); err != nil {
		return fmt.Errorf("save derivative: %w", err)
	}

	if err := store.saveDerivative(ctx, derivative); err != nil {
		return fmt.Errorf("save derivative: %w", err)
	}

	return nil
}

func (store *FileSystemStore) Load(ctx context.Context, name string) (*domain.Derivative, error) {
	return store.LoadSize(ctx, store.canonical, name)
}

func (store *FileSystemStore) LoadSize(ctx context.Context, size int, name string) (*domain.Derivative, error) {
	if err := domain.ValidateImageName(name); err != nil {
		return nil, fmt.Errorf("load derivative: %w", err)
	}

	if !slices.Contains(store.sizes, size) {
		return nil, fmt.Errorf("load derivative: %w: size %d not configured", domain.ErrNotFound, size)
	}

	derivative, err := store.loadDerivative(ctx, size, name)
	if err != nil {
		return nil, fmt.Errorf("load derivative: %w", err)
	}

	return derivative, nil
}

func (store *FileSystemStore) Delete(ctx context.Context, size int, name string) error {
	if err := domain.ValidateImageName(name); err != nil {
		return fmt.Errorf("delete derivative: %w", err)
	}

	if err := store.deleteDerivative(ctx, size, name, false); err != nil {
		return fmt.Errorf("delete derivative: %w", err)
	}

	return nil
}

func (store *FileSystemStore) DeleteIfExists(ctx context.Context, size int, name string) error {
	if err := domain.ValidateImageName(name); err != nil {
		return fmt.Errorf("delete derivative: %w", err)
	}

	if err := store.deleteDerivative(ctx, size, name, true); err != nil {
		return fmt.Errorf("delete derivative: %w", err)
	}

	return nil
}

func (store *FileSystemStore) Exists(_ context.Context, size int, name string) bool {
	if domain.ValidateImageName(name) != nil {
		return false
	}

	info, err := os.Stat(store.Path(size, name))

	return err == nil && info.Mode().IsRegular()
}

func (store *FileSystemStore) SaveAll(ctx context.Context, name string, render RenderFunc) (err error) {
	defer func() {
		log := store.log.With(logging.Group("derivative", "name", name))
		if err != nil {
			log.ErrorContext(ctx, "derivative save all failed", "error", err)
		} else {
			log.DebugContext(ctx, "derivatives saved")
		}
	}()

	if err := domain.ValidateImageName(name); err != nil {
		return fmt.Errorf("save all: %w", err)
	}

	err = fanout.Each(ctx, store.cfg.Workers, store.sizes, func(ctx context.Context, size int) error {
		body, err := render(ctx, size)
		if err != nil {
			return fmt.Errorf("render %d: %w", size, err)
		}

		return store.saveDerivative(ctx, domain.NewDerivative(name, size, body))
	})
	if err != nil {
		return fmt.Errorf("save all: %w", err)
	}

	return nil
}

func (store *FileSystemStore) DeleteAll(ctx context.Context, name string) error {
	return store.deleteAll(ctx, name, false)
}

func (store *FileSystemStore) DeleteAllIfExists(ctx context.Context, name string) error {
	return store.deleteAll(ctx, name, true)
}

func (store *FileSystemStore) deleteAll(ctx context.Context, name string, ignoreMissing bool) (err error) {
	defer func() {
		log := store.log.With(logging.Group("derivative", "name", name, "ignoreMissing", ignoreMissing))
		if err != nil {
			log.ErrorContext(ctx, "derivative delete all failed", "error", err)
		} else {
			log.DebugContext(ctx, "derivatives deleted")
		}
	}()

	if err := domain.ValidateImageName(name); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}

	err = fanout.Each(ctx, store.cfg.Workers, store.sizes, func(ctx context.Context, size int) error {
		return store.deleteDerivative(ctx, size, name, ignoreMissing)
	})
	if err != nil {
		return fmt.Errorf("delete all: %w", err)
	}

	return nil
}

func (store *FileSystemStore) initStorage(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			store.log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			store.log.DebugContext(ctx, "init storage")
		}
	}()

	if err := os.MkdirAll(store.cfg.Basedir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir all: %w", domain.ErrIO, err)
	}

	marker := filepath.Join(store.cfg.Basedir, markerFilename)

	if err := os.WriteFile(marker, nil, 0o600); err != nil {
		return fmt.Errorf("%w: marker write: %w", domain.ErrIO, err)
	}

	if err := os.Remove(marker); err != nil {
		return fmt.Errorf("%w: marker remove: %w", domain.ErrIO, err)
	}

	return nil
}

// saveDerivative writes into a temporary file next to the target and renames it
// into place, so readers never observe a half-written derivative.
func (store *FileSystemStore) saveDerivative(ctx context.Context, derivative *domain.Derivative) (err error) {
	filename := store.Path(derivative.Size, derivative.Name)

	defer func() {
		log := store.log.With(logging.Group("derivative",
			"name", derivative.Name,
			"size", derivative.Size,
			"filename", filename,
		))
		if err != nil {
			log.ErrorContext(ctx, "derivative save failed", "error", err)
		} else {
			log.DebugContext(ctx, "derivative saved", "bytes", derivative.Len())
		}
	}()

	file, err := os.CreateTemp(store.cfg.Basedir, "."+derivative.Basename()+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", domain.ErrIO, err)
	}

	tempname := file.Name()

	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(tempname)
		}
	}()

	if n, err := derivative.WriteTo(file); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIO, err)
	} else if n != derivative.Len() {
		return fmt.Errorf("%w: %w: expected %d, got %d", domain.ErrIO, ErrBytesWrittenMismatch, derivative.Len(), n)
	} else if err := file.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", domain.ErrIO, err)
	} else if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", domain.ErrIO, err)
	} else if err := os.Chmod(tempname, 0o644); err != nil {
		return fmt.Errorf("%w: chmod: %w", domain.ErrIO, err)
	} else if err := os.Rename(tempname, filename); err != nil {
		return fmt.Errorf("%w: rename: %w", domain.ErrIO, err)
	}

	return nil
}

func (store *FileSystemStore) loadDerivative(
	ctx context.Context,
	size int,
	name string,
) (derivative *domain.Derivative, err error) {
	filename := store.Path(size, name)

	defer func() {
		log := store.log.With(logging.Group("derivative", "name", name, "size", size, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "derivative load failed", "error", err)
		} else {
			log.DebugContext(ctx, "derivative loaded", "bytes", derivative.Len())
		}
	}()

	body, err := os.ReadFile(filename)
	if err != nil {
		return nil, mapFSError(err, size, name)
	}

	return domain.NewDerivative(name, size, body), nil
}

func (store *FileSystemStore) deleteDerivative(ctx context.Context, size int, name string, ignoreMissing bool) (err error) {
	filename := store.Path(size, name)

	defer func() {
		log := store.log.With(logging.Group("derivative", "name", name, "size", size, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "derivative delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "derivative deleted")
		}
	}()

	if err := os.Remove(filename); err != nil {
		if ignoreMissing && errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return mapFSError(err, size, name)
	}

	return nil
}

func mapFSError(err error, size int, name string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, domain.DerivativeBasename(size, name))
	}

	return fmt.Errorf("%w: %w", domain.ErrIO, err)
}

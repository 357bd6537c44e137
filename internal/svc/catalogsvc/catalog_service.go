package catalogsvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/infra/logging"
	"github.com/mkrupp/menucase/internal/repo/catalog"
	"github.com/mkrupp/menucase/internal/svc/imagesvc"
)

// CatalogService manages menu categories and dishes together with the images they own.
// Records hold image names; the image service holds the bytes.
type CatalogService struct {
	repo     catalog.Repository
	imageSvc imagesvc.ImageService
	log      logging.Logger
}

// NewCatalogService creates a new CatalogService with the given repository factory and image service.
// Returns an error if the repository cannot be created.
func NewCatalogService(
	ctx context.Context,
	repoFactory catalog.RepositoryFactory,
	imageSvc imagesvc.ImageService,
) (*CatalogService, error) {
	repo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new catalog repo: %w", err)
	}

	return &CatalogService{
		repo:     repo,
		imageSvc: imageSvc,
		log:      logging.GetLogger("svc.catalogsvc.catalog_service"),
	}, nil
}

// Close releases the catalog repository.
func (s *CatalogService) Close() error {
	return s.repo.Close() //nolint:wrapcheck
}

// CreateCategory validates req, ingests its image if one is given and persists the category.
func (s *CatalogService) CreateCategory(ctx context.Context, req domain.CategoryRequest) (category *domain.Category, err error) {
	log := s.log.With(logging.Group("category", "name", req.Name))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create category failed", "error", err)
		} else {
			log.DebugContext(ctx, "category created", logging.Group("category", "id", category.ID))
		}
	}()

	if err := validateCategory(req); err != nil {
		return nil, err
	}

	var image string

	if req.Image != "" {
		if image, err = s.imageSvc.IngestBase64(ctx, req.Image); err != nil {
			return nil, fmt.Errorf("ingest image: %w", err)
		}
	}

	category = &domain.Category{
		Name:        req.Name,
		Description: req.Description,
		Image:       image,
	}

	if err := s.repo.CreateCategory(ctx, category); err != nil {
		s.discard(ctx, image)

		return nil, fmt.Errorf("persist category: %w", err)
	}

	return category, nil
}

// UpdateCategory overwrites a category. A new image replaces the current one;
// an empty image keeps it.
func (s *CatalogService) UpdateCategory(
	ctx context.Context,
	id int64,
	req domain.CategoryRequest,
) (category *domain.Category, err error) {
	log := s.log.With(logging.Group("category", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "update category failed", "error", err)
		} else {
			log.DebugContext(ctx, "category updated")
		}
	}()

	if err := validateCategory(req); err != nil {
		return nil, err
	}

	category, err = s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	var fresh string

	if req.Image != "" {
		data, err := imagesvc.DecodeBase64(req.Image)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}

		if fresh, err = s.imageSvc.Replace(ctx, category.Image, data); err != nil {
			return nil, fmt.Errorf("replace image: %w", err)
		}

		category.Image = fresh
	}

	category.Name = req.Name
	category.Description = req.Description

	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		s.discard(ctx, fresh)

		return nil, fmt.Errorf("persist category: %w", err)
	}

	return category, nil
}

// DeleteCategory removes a category, its image and the images of its dishes.
// The dishes themselves go with the category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) (err error) {
	log := s.log.With(logging.Group("category", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete category failed", "error", err)
		} else {
			log.DebugContext(ctx, "category deleted")
		}
	}()

	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}

	dishes, err := s.repo.ListDishes(ctx, id)
	if err != nil {
		return fmt.Errorf("list dishes: %w", err)
	}

	if category.Image != "" {
		if err := s.imageSvc.DeleteIfExists(ctx, category.Image); err != nil {
			return fmt.Errorf("delete image: %w", err)
		}
	}

	var images []string
	for _, dish := range dishes {
		images = append(images, dish.Images...)
	}

	if err := s.imageSvc.DeleteAllIfExists(ctx, images); err != nil {
		return fmt.Errorf("delete dish images: %w", err)
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	return nil
}

// GetCategory returns a category by ID.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	return category, nil
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}

// CreateDish validates req, ingests its images as one batch and persists the dish.
func (s *CatalogService) CreateDish(ctx context.Context, req domain.DishRequest) (dish *domain.Dish, err error) {
	log := s.log.With(logging.Group("dish", "name", req.Name, "categoryId", req.CategoryID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create dish failed", "error", err)
		} else {
			log.DebugContext(ctx, "dish created", logging.Group("dish", "id", dish.ID))
		}
	}()

	if err := validateDish(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	items, err := decodeImages(req.Images)
	if err != nil {
		return nil, err
	}

	images, err := s.ingestImages(ctx, items)
	if err != nil {
		return nil, err
	}

	dish = &domain.Dish{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Images:      images,
	}

	if err := s.repo.CreateDish(ctx, dish); err != nil {
		s.discard(ctx, images...)

		return nil, fmt.Errorf("persist dish: %w", err)
	}

	return dish, nil
}

// UpdateDish overwrites a dish. New images replace the whole current set;
// nil images keep it.
func (s *CatalogService) UpdateDish(ctx context.Context, id int64, req domain.DishRequest) (dish *domain.Dish, err error) {
	log := s.log.With(logging.Group("dish", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "update dish failed", "error", err)
		} else {
			log.DebugContext(ctx, "dish updated")
		}
	}()

	if err := validateDish(req); err != nil {
		return nil, err
	}

	dish, err = s.repo.GetDish(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get dish: %w", err)
	}

	if req.CategoryID != dish.CategoryID {
		if _, err := s.repo.GetCategory(ctx, req.CategoryID); err != nil {
			return nil, fmt.Errorf("get category: %w", err)
		}
	}

	var fresh []string

	if req.Images != nil {
		// Malformed payloads must be rejected while the current images still exist.
		items, err := decodeImages(req.Images)
		if err != nil {
			return nil, err
		}

		if err := s.imageSvc.DeleteAllIfExists(ctx, dish.Images); err != nil {
			return nil, fmt.Errorf("delete images: %w", err)
		}

		if fresh, err = s.ingestImages(ctx, items); err != nil {
			return nil, err
		}

		dish.Images = fresh
	}

	dish.CategoryID = req.CategoryID
	dish.Name = req.Name
	dish.Description = req.Description
	dish.Price = req.Price

	if err := s.repo.UpdateDish(ctx, dish); err != nil {
		s.discard(ctx, fresh...)

		return nil, fmt.Errorf("persist dish: %w", err)
	}

	return dish, nil
}

// DeleteDish removes a dish and its images.
func (s *CatalogService) DeleteDish(ctx context.Context, id int64) (err error) {
	log := s.log.With(logging.Group("dish", "id", id))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete dish failed", "error", err)
		} else {
			log.DebugContext(ctx, "dish deleted")
		}
	}()

	dish, err := s.repo.GetDish(ctx, id)
	if err != nil {
		return fmt.Errorf("get dish: %w", err)
	}

	if err := s.imageSvc.DeleteAllIfExists(ctx, dish.Images); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}

	if err := s.repo.DeleteDish(ctx, id); err != nil {
		return fmt.Errorf("delete dish: %w", err)
	}

	return nil
}

// GetDish returns a dish by ID.
func (s *CatalogService) GetDish(ctx context.Context, id int64) (*domain.Dish, error) {
	dish, err := s.repo.GetDish(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get dish: %w", err)
	}

	return dish, nil
}

// ListDishes returns the dishes of a category.
// Returns domain.ErrCategoryNotFound if the category does not exist.
func (s *CatalogService) ListDishes(ctx context.Context, categoryID int64) ([]domain.Dish, error) {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}

	dishes, err := s.repo.ListDishes(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}

	return dishes, nil
}

func decodeImages(payloads []string) ([][]byte, error) {
	items := make([][]byte, len(payloads))

	for i, payload := range payloads {
		data, err := imagesvc.DecodeBase64(payload)
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i, err)
		}

		items[i] = data
	}

	return items, nil
}

func (s *CatalogService) ingestImages(ctx context.Context, items [][]byte) ([]string, error) {
	names, err := s.imageSvc.IngestBatch(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("ingest images: %w", err)
	}

	return names, nil
}

// discard deletes images ingested for a record that could not be persisted.
// Failures are logged only; the persist error is what the caller reports.
func (s *CatalogService) discard(ctx context.Context, names ...string) {
	var pending []string

	for _, name := range names {
		if name != "" {
			pending = append(pending, name)
		}
	}

	if len(pending) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)

	if err := s.imageSvc.DeleteAllIfExists(ctx, pending); err != nil {
		s.log.WarnContext(ctx, "discard images failed", "error", err, "images", pending)
	}
}

package catalogsvc_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/repo/catalog"
	"github.com/mkrupp/menucase/internal/repo/derivative"
	"github.com/mkrupp/menucase/internal/svc/catalogsvc"
	"github.com/mkrupp/menucase/internal/svc/imagesvc"
)

var errForced = errors.New("forced persist failure")

// failingRepository delegates to a real repository but fails every dish insert.
type failingRepository struct {
	catalog.Repository
}

func (failingRepository) CreateDish(context.Context, *domain.Dish) error {
	return errForced
}

type testCatalog struct {
	*catalogsvc.CatalogService
	images    imagesvc.ImageService
	imageRoot string
}

func newTestCatalog(t *testing.T, wrap func(catalog.Repository) catalog.Repository) testCatalog {
	t.Helper()

	ctx := context.Background()
	root := t.TempDir()
	imageCfg := imagesvc.ImageConfig{Sizes: []int{16, 32}, Filter: "linear", Quality: 80, MaxSize: 1 << 20}

	resizer, err := imagesvc.NewImagingResizer(imageCfg)
	if err != nil {
		t.Fatalf("failed to create resizer: %v", err)
	}

	names, err := imagesvc.NewRandomNameGenerator()
	if err != nil {
		t.Fatalf("failed to create name generator: %v", err)
	}

	images, err := imagesvc.NewDerivativeImageService(
		ctx,
		derivative.FileSystemStoreFactory(derivative.FileSystemStoreConfig{Basedir: filepath.Join(root, "images")}),
		resizer,
		names,
		nil,
		imageCfg,
	)
	if err != nil {
		t.Fatalf("failed to create image service: %v", err)
	}

	repoFactory := func(ctx context.Context) (catalog.Repository, error) {
		repo, err := catalog.NewSQLiteCatalogRepository(ctx, catalog.SQLiteCatalogRepositoryConfig{
			DatabasePath: filepath.Join(root, "menucase.db"),
		})
		if err != nil {
			return nil, err
		}

		if wrap != nil {
			return wrap(repo), nil
		}

		return repo, nil
	}

	svc, err := catalogsvc.NewCatalogService(ctx, repoFactory, images)
	if err != nil {
		t.Fatalf("failed to create catalog service: %v", err)
	}

	t.Cleanup(func() { _ = svc.Close() })

	return testCatalog{CatalogService: svc, images: images, imageRoot: filepath.Join(root, "images")}
}

// imageFiles counts the derivative files on disk.
func (c testCatalog) imageFiles(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir(c.imageRoot)
	if err != nil {
		t.Fatalf("failed to read image root: %v", err)
	}

	count := 0

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), ".") {
			count++
		}
	}

	return count
}

func (c testCatalog) assertImage(t *testing.T, name string, exists bool) {
	t.Helper()

	_, err := c.images.Load(context.Background(), name)

	switch {
	case exists && err != nil:
		t.Errorf("expected image %s to exist, got %v", name, err)
	case !exists && !errors.Is(err, domain.ErrNotFound):
		t.Errorf("expected image %s to be gone, got %v", name, err)
	}
}

func base64Image(t *testing.T, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCatalogService_CategoryLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestCatalog(t, nil)

	category, err := c.CreateCategory(ctx, domain.CategoryRequest{
		Name:  "drinks",
		Image: base64Image(t, color.White),
	})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	first := category.Image
	c.assertImage(t, first, true)

	category, err = c.UpdateCategory(ctx, category.ID, domain.CategoryRequest{
		Name:  "beverages",
		Image: base64Image(t, color.Black),
	})
	if err != nil {
		t.Fatalf("failed to update category: %v", err)
	}

	second := category.Image
	if second == first {
		t.Fatal("expected a new image name after replacing the image")
	}

	c.assertImage(t, first, false)
	c.assertImage(t, second, true)

	category, err = c.UpdateCategory(ctx, category.ID, domain.CategoryRequest{Name: "beverages", Description: "all day"})
	if err != nil {
		t.Fatalf("failed to update category: %v", err)
	}

	if category.Image != second || category.Description != "all day" {
		t.Errorf("expected image to be kept, got %+v", category)
	}

	if err := c.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("failed to delete category: %v", err)
	}

	c.assertImage(t, second, false)

	if _, err := c.GetCategory(ctx, category.ID); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}

	if got := c.imageFiles(t); got != 0 {
		t.Errorf("expected no image files, got %d", got)
	}
}

func TestCatalogService_CreateCategoryRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     domain.CategoryRequest
		wantErr error
	}{
		{name: "missing name", req: domain.CategoryRequest{}, wantErr: domain.ErrInvalidInput},
		{name: "name too long", req: domain.CategoryRequest{Name: strings.Repeat("x", 101)}, wantErr: domain.ErrInvalidInput},
		{name: "invalid base64", req: domain.CategoryRequest{Name: "x", Image: "!!!"}, wantErr: domain.ErrDecode},
		{name: "not an image", req: domain.CategoryRequest{
			Name:  "x",
			Image: base64.StdEncoding.EncodeToString([]byte("hello")),
		}, wantErr: domain.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			c := newTestCatalog(t, nil)

			if _, err := c.CreateCategory(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}

			if categories, _ := c.ListCategories(ctx); len(categories) != 0 {
				t.Errorf("expected no categories, got %+v", categories)
			}

			if got := c.imageFiles(t); got != 0 {
				t.Errorf("expected no image files, got %d", got)
			}
		})
	}
}

func TestCatalogService_DishLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestCatalog(t, nil)

	category, err := c.CreateCategory(ctx, domain.CategoryRequest{Name: "mains"})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	req := domain.DishRequest{
		CategoryID: category.ID,
		Name:       "schnitzel",
		Price:      decimal.RequireFromString("14.90"),
		Images:     []string{base64Image(t, color.White), base64Image(t, color.Black)},
	}

	dish, err := c.CreateDish(ctx, req)
	if err != nil {
		t.Fatalf("failed to create dish: %v", err)
	}

	if len(dish.Images) != 2 {
		t.Fatalf("expected 2 images, got %v", dish.Images)
	}

	old := dish.Images

	if got := c.imageFiles(t); got != 4 {
		t.Errorf("expected 4 image files, got %d", got)
	}

	req.Images = nil
	req.Price = decimal.RequireFromString("12.50")

	if dish, err = c.UpdateDish(ctx, dish.ID, req); err != nil {
		t.Fatalf("failed to update dish: %v", err)
	}

	if len(dish.Images) != 2 || !dish.Price.Equal(req.Price) {
		t.Errorf("expected images to be kept and price updated, got %+v", dish)
	}

	req.Images = []string{base64Image(t, color.Gray{Y: 128})}

	if dish, err = c.UpdateDish(ctx, dish.ID, req); err != nil {
		t.Fatalf("failed to update dish: %v", err)
	}

	for _, name := range old {
		c.assertImage(t, name, false)
	}

	c.assertImage(t, dish.Images[0], true)

	dishes, err := c.ListDishes(ctx, category.ID)
	if err != nil || len(dishes) != 1 {
		t.Fatalf("expected one dish, got %+v (%v)", dishes, err)
	}

	if err := c.DeleteDish(ctx, dish.ID); err != nil {
		t.Fatalf("failed to delete dish: %v", err)
	}

	if got := c.imageFiles(t); got != 0 {
		t.Errorf("expected no image files, got %d", got)
	}

	if _, err := c.GetDish(ctx, dish.ID); !errors.Is(err, domain.ErrDishNotFound) {
		t.Errorf("expected ErrDishNotFound, got %v", err)
	}
}

func TestCatalogService_CreateDishRejects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestCatalog(t, nil)

	category, err := c.CreateCategory(ctx, domain.CategoryRequest{Name: "mains"})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	valid := base64Image(t, color.White)

	tests := []struct {
		name    string
		req     domain.DishRequest
		wantErr error
	}{
		{
			name:    "missing category id",
			req:     domain.DishRequest{Name: "x"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "unknown category",
			req:     domain.DishRequest{CategoryID: category.ID + 100, Name: "x", Images: []string{valid}},
			wantErr: domain.ErrCategoryNotFound,
		},
		{
			name:    "negative price",
			req:     domain.DishRequest{CategoryID: category.ID, Name: "x", Price: decimal.NewFromInt(-1)},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "empty image payload",
			req:     domain.DishRequest{CategoryID: category.ID, Name: "x", Images: []string{valid, ""}},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "one corrupt image",
			req:     domain.DishRequest{CategoryID: category.ID, Name: "x", Images: []string{valid, "aGVsbG8="}},
			wantErr: domain.ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.CreateDish(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}

			if got := c.imageFiles(t); got != 0 {
				t.Errorf("expected no image files, got %d", got)
			}
		})
	}
}

func TestCatalogService_CreateDishPersistFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestCatalog(t, func(repo catalog.Repository) catalog.Repository {
		return failingRepository{Repository: repo}
	})

	category, err := c.CreateCategory(ctx, domain.CategoryRequest{Name: "mains"})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	_, err = c.CreateDish(ctx, domain.DishRequest{
		CategoryID: category.ID,
		Name:       "soup",
		Images:     []string{base64Image(t, color.White), base64Image(t, color.Black)},
	})
	if !errors.Is(err, errForced) {
		t.Fatalf("expected forced failure, got %v", err)
	}

	if got := c.imageFiles(t); got != 0 {
		t.Errorf("expected fresh images to be discarded, got %d files", got)
	}
}

func TestCatalogService_DeleteCategoryRemovesDishImages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestCatalog(t, nil)

	category, err := c.CreateCategory(ctx, domain.CategoryRequest{Name: "mains", Image: base64Image(t, color.White)})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	dish, err := c.CreateDish(ctx, domain.DishRequest{
		CategoryID: category.ID,
		Name:       "soup",
		Images:     []string{base64Image(t, color.Black)},
	})
	if err != nil {
		t.Fatalf("failed to create dish: %v", err)
	}

	if err := c.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("failed to delete category: %v", err)
	}

	if got := c.imageFiles(t); got != 0 {
		t.Errorf("expected no image files, got %d", got)
	}

	if _, err := c.GetDish(ctx, dish.ID); !errors.Is(err, domain.ErrDishNotFound) {
		t.Errorf("expected dish to be removed, got %v", err)
	}

	if _, err := c.ListDishes(ctx, category.ID); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCatalogService_UpdateDishMalformedImagesKeepsCurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestCatalog(t, nil)

	category, err := c.CreateCategory(ctx, domain.CategoryRequest{Name: "mains"})
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}

	req := domain.DishRequest{
		CategoryID: category.ID,
		Name:       "soup",
		Images:     []string{base64Image(t, color.White)},
	}

	dish, err := c.CreateDish(ctx, req)
	if err != nil {
		t.Fatalf("failed to create dish: %v", err)
	}

	tests := []struct {
		name   string
		images []string
	}{
		{name: "malformed base64", images: []string{"!!!"}},
		{name: "malformed after valid", images: []string{base64Image(t, color.Black), "!!!"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Images = tt.images

			if _, err := c.UpdateDish(ctx, dish.ID, req); !errors.Is(err, domain.ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}

			got, err := c.GetDish(ctx, dish.ID)
			if err != nil {
				t.Fatalf("failed to get dish: %v", err)
			}

			if !slices.Equal(got.Images, dish.Images) {
				t.Errorf("expected images %v to be kept, got %v", dish.Images, got.Images)
			}

			c.assertImage(t, dish.Images[0], true)

			if files := c.imageFiles(t); files != 2 {
				t.Errorf("expected 2 image files, got %d", files)
			}
		})
	}
}

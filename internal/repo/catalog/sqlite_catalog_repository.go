package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/infra/logging"
)

// SQLiteCatalogRepositoryConfig holds configuration for the SQLite catalog repository.
type SQLiteCatalogRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/menucase.db"`
}

// SQLiteCatalogRepository implements Repository using SQLite as the storage backend.
type SQLiteCatalogRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteCatalogRepository)(nil)

// SQLiteCatalogRepositoryFactory creates a factory function that returns a new SQLiteCatalogRepository.
// The factory function implements the RepositoryFactory type.
func SQLiteCatalogRepositoryFactory(cfg SQLiteCatalogRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteCatalogRepository(ctx, cfg)
	}
}

// NewSQLiteCatalogRepository creates a new SQLiteCatalogRepository with the given configuration.
// It initializes the database connection and creates the schema if needed.
// Returns an error if database connection or initialization fails.
func NewSQLiteCatalogRepository(ctx context.Context, cfg SQLiteCatalogRepositoryConfig) (*SQLiteCatalogRepository, error) {
	log := logging.GetLogger("repo.catalog.sqlite_catalog_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir all: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", cfg.DatabasePath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeDB(ctx, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	log.DebugContext(ctx, "catalog db ready")

	return &SQLiteCatalogRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(ctx context.Context, db *sql.DB) (err error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT    NOT NULL,
			description TEXT    NOT NULL DEFAULT '',
			image       TEXT    NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS dishes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id INTEGER NOT NULL REFERENCES categories (id) ON DELETE CASCADE,
			name        TEXT    NOT NULL,
			description TEXT    NOT NULL DEFAULT '',
			price       TEXT    NOT NULL,
			images      TEXT    NOT NULL DEFAULT '[]',
			created_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS dishes_category_id ON dishes (category_id);
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// CreateCategory implements Repository.CreateCategory using SQLite.
func (r *SQLiteCatalogRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	createdAt := time.Now().Unix()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, description, image, created_at) VALUES (?, ?, ?, ?)",
		category.Name,
		category.Description,
		category.Image,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	category.ID, category.CreatedAt = id, createdAt

	return nil
}

// UpdateCategory implements Repository.UpdateCategory using SQLite.
func (r *SQLiteCatalogRepository) UpdateCategory(ctx context.Context, category *domain.Category) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, description = ?, image = ? WHERE id = ?",
		category.Name,
		category.Description,
		category.Image,
		category.ID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	if err := expectAffected(res, domain.ErrCategoryNotFound); err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	return nil
}

// DeleteCategory implements Repository.DeleteCategory using SQLite.
func (r *SQLiteCatalogRepository) DeleteCategory(ctx context.Context, id int64) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if err := expectAffected(res, domain.ErrCategoryNotFound); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	return nil
}

// GetCategory implements Repository.GetCategory using SQLite.
func (r *SQLiteCatalogRepository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var category domain.Category

	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, image, created_at FROM categories WHERE id = ?",
		id,
	).Scan(&category.ID, &category.Name, &category.Description, &category.Image, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrCategoryNotFound, err)
		}

		return nil, fmt.Errorf("query category: %w", err)
	}

	return &category, nil
}

// ListCategories implements Repository.ListCategories using SQLite.
func (r *SQLiteCatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, image, created_at FROM categories ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}

	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID, &category.Name, &category.Description, &category.Image, &category.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}

		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

// CreateDish implements Repository.CreateDish using SQLite.
func (r *SQLiteCatalogRepository) CreateDish(ctx context.Context, dish *domain.Dish) error {
	images, err := marshalImages(dish.Images)
	if err != nil {
		return fmt.Errorf("insert dish: %w", err)
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	createdAt := time.Now().Unix()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO dishes (category_id, name, description, price, images, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		dish.CategoryID,
		dish.Name,
		dish.Description,
		dish.Price.String(),
		images,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert dish: %w", mapConstraintError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	dish.ID, dish.CreatedAt = id, createdAt

	return nil
}

// UpdateDish implements Repository.UpdateDish using SQLite.
func (r *SQLiteCatalogRepository) UpdateDish(ctx context.Context, dish *domain.Dish) error {
	images, err := marshalImages(dish.Images)
	if err != nil {
		return fmt.Errorf("update dish: %w", err)
	}

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"UPDATE dishes SET category_id = ?, name = ?, description = ?, price = ?, images = ? WHERE id = ?",
		dish.CategoryID,
		dish.Name,
		dish.Description,
		dish.Price.String(),
		images,
		dish.ID,
	)
	if err != nil {
		return fmt.Errorf("update dish: %w", mapConstraintError(err))
	}

	if err := expectAffected(res, domain.ErrDishNotFound); err != nil {
		return fmt.Errorf("update dish: %w", err)
	}

	return nil
}

// DeleteDish implements Repository.DeleteDish using SQLite.
func (r *SQLiteCatalogRepository) DeleteDish(ctx context.Context, id int64) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, "DELETE FROM dishes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete dish: %w", err)
	}

	if err := expectAffected(res, domain.ErrDishNotFound); err != nil {
		return fmt.Errorf("delete dish: %w", err)
	}

	return nil
}

// GetDish implements Repository.GetDish using SQLite.
func (r *SQLiteCatalogRepository) GetDish(ctx context.Context, id int64) (*domain.Dish, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, category_id, name, description, price, images, created_at FROM dishes WHERE id = ?",
		id,
	)

	dish, err := scanDish(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrDishNotFound, err)
		}

		return nil, fmt.Errorf("query dish: %w", err)
	}

	return dish, nil
}

// ListDishes implements Repository.ListDishes using SQLite.
func (r *SQLiteCatalogRepository) ListDishes(ctx context.Context, categoryID int64) ([]domain.Dish, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, category_id, name, description, price, images, created_at FROM dishes WHERE category_id = ? ORDER BY id",
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("query dishes: %w", err)
	}
	defer rows.Close()

	dishes := []domain.Dish{}

	for rows.Next() {
		dish, err := scanDish(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dish: %w", err)
		}

		dishes = append(dishes, *dish)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dishes: %w", err)
	}

	return dishes, nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteCatalogRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDish(row rowScanner) (*domain.Dish, error) {
	var (
		dish   domain.Dish
		images string
	)

	if err := row.Scan(
		&dish.ID, &dish.CategoryID, &dish.Name, &dish.Description, &dish.Price, &images, &dish.CreatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	if err := json.Unmarshal([]byte(images), &dish.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}

	return &dish, nil
}

func marshalImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}

	data, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("marshal images: %w", err)
	}

	return string(data), nil
}

func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}

func mapConstraintError(err error) error {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errors.Join(domain.ErrCategoryNotFound, err)
		default:
			break
		}
	}

	return err
}

package catalogsvc

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/infra/logging"
	http_ "github.com/mkrupp/menucase/internal/infra/transport/http"
)

var ErrInvalidID = errors.New("invalid id")

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	// JSONMaxSize is the maximum accepted size of JSON request bodies.
	// Default is 64MB, enough for a few base64 images per dish.
	JSONMaxSize int64 `env:"JSON_MAX_SIZE" default:"67108864"`
}

// HTTPTransport handles HTTP requests for the catalog service.
type HTTPTransport struct {
	catalogSvc *CatalogService
	log        logging.Logger
	cfg        HTTPTransportConfig
	mux        *http.ServeMux
}

var _ http_.MountableHTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(catalogSvc *CatalogService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		catalogSvc: catalogSvc,
		log:        logging.GetLogger("svc.catalogsvc.http_transport"),
		cfg:        cfg,
		mux:        http.NewServeMux(),
	}

	ht.mux.HandleFunc("GET /categories", ht.HandleListCategories)
	ht.mux.HandleFunc("POST /categories", ht.HandleCreateCategory)
	ht.mux.HandleFunc("GET /categories/{id}", ht.HandleGetCategory)
	ht.mux.HandleFunc("PUT /categories/{id}", ht.HandleUpdateCategory)
	ht.mux.HandleFunc("DELETE /categories/{id}", ht.HandleDeleteCategory)
	ht.mux.HandleFunc("GET /categories/{id}/dishes", ht.HandleListDishes)
	ht.mux.HandleFunc("POST /dishes", ht.HandleCreateDish)
	ht.mux.HandleFunc("GET /dishes/{id}", ht.HandleGetDish)
	ht.mux.HandleFunc("PUT /dishes/{id}", ht.HandleUpdateDish)
	ht.mux.HandleFunc("DELETE /dishes/{id}", ht.HandleDeleteDish)

	return ht
}

// Patterns implements http_.MountableHTTPTransport.
func (ht *HTTPTransport) Patterns() []string {
	return []string{"/categories", "/categories/", "/dishes", "/dishes/"}
}

// ServeHTTP implements http.Handler and routes the catalog endpoints:
// - GET/POST /categories: List or create categories
// - GET/PUT/DELETE /categories/{id}: Read, update or delete a category
// - GET /categories/{id}/dishes: List the dishes of a category
// - POST /dishes: Create a dish
// - GET/PUT/DELETE /dishes/{id}: Read, update or delete a dish.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrDecode),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, http_.ErrEmptyBody),
		errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrDishNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, r.PathValue("id"))
	}

	return id, nil
}

func (ht *HTTPTransport) requestLog(r *http.Request) logging.Logger {
	return ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
}

// HandleListCategories returns every category.
func (ht *HTTPTransport) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleListCategories(w, r)
}

func (ht *HTTPTransport) handleListCategories(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "list categories failed", "error", err)
		}
	}()

	categories, err := ht.catalogSvc.ListCategories(r.Context())
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusOK, categories)
}

// HandleCreateCategory creates a category from a domain.CategoryRequest body.
func (ht *HTTPTransport) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreateCategory(w, r)
}

func (ht *HTTPTransport) handleCreateCategory(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "create category request failed", "error", err)
		}
	}()

	var req domain.CategoryRequest
	if err := http_.ReadJSON(w, r, &req, ht.cfg.JSONMaxSize); err != nil {
		http_.Error(w, http.StatusBadRequest)

		return fmt.Errorf("read request: %w", err)
	}

	category, err := ht.catalogSvc.CreateCategory(r.Context(), req)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusCreated, domain.IDResponse{ID: category.ID})
}

// HandleGetCategory returns one category.
func (ht *HTTPTransport) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGetCategory(w, r)
}

func (ht *HTTPTransport) handleGetCategory(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "get category failed", "error", err)
		}
	}()

	id, err := pathID(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	category, err := ht.catalogSvc.GetCategory(r.Context(), id)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusOK, category)
}

// HandleUpdateCategory overwrites a category from a domain.CategoryRequest body.
func (ht *HTTPTransport) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdateCategory(w, r)
}

func (ht *HTTPTransport) handleUpdateCategory(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "update category request failed", "error", err)
		}
	}()

	id, err := pathID(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	var req domain.CategoryRequest
	if err := http_.ReadJSON(w, r, &req, ht.cfg.JSONMaxSize); err != nil {
		http_.Error(w, http.StatusBadRequest)

		return fmt.Errorf("read request: %w", err)
	}

	category, err := ht.catalogSvc.UpdateCategory(r.Context(), id, req)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusOK, category)
}

// HandleDeleteCategory removes a category with its dishes and images.
func (ht *HTTPTransport) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDeleteCategory(w, r)
}

func (ht *HTTPTransport) handleDeleteCategory(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "delete category request failed", "error", err)
		}
	}()

	id, err := pathID(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	if err := ht.catalogSvc.DeleteCategory(r.Context(), id); err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

// HandleListDishes returns the dishes of a category.
func (ht *HTTPTransport) HandleListDishes(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleListDishes(w, r)
}

func (ht *HTTPTransport) handleListDishes(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "list dishes failed", "error", err)
		}
	}()

	id, err := pathID(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	dishes, err := ht.catalogSvc.ListDishes(r.Context(), id)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusOK, dishes)
}

// HandleCreateDish creates a dish from a domain.DishRequest body.
func (ht *HTTPTransport) HandleCreateDish(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreateDish(w, r)
}

func (ht *HTTPTransport) handleCreateDish(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "create dish request failed", "error", err)
		}
	}()

	var req domain.DishRequest
	if err := http_.ReadJSON(w, r, &req, ht.cfg.JSONMaxSize); err != nil {
		http_.Error(w, http.StatusBadRequest)

		return fmt.Errorf("read request: %w", err)
	}

	dish, err := ht.catalogSvc.CreateDish(r.Context(), req)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusCreated, domain.IDResponse{ID: dish.ID})
}

// HandleGetDish returns one dish.
func (ht *HTTPTransport) HandleGetDish(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGetDish(w, r)
}

func (ht *HTTPTransport) handleGetDish(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "get dish failed", "error", err)
		}
	}()

	id, err := pathID(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	dish, err := ht.catalogSvc.GetDish(r.Context(), id)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusOK, dish)
}

// HandleUpdateDish overwrites a dish from a domain.DishRequest body.
func (ht *HTTPTransport) HandleUpdateDish(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdateDish(w, r)
}

func (ht *HTTPTransport) handleUpdateDish(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "update dish request failed", "error", err)
		}
	}()

	id, err := pathID(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	var req domain.DishRequest
	if err := http_.ReadJSON(w, r, &req, ht.cfg.JSONMaxSize); err != nil {
		http_.Error(w, http.StatusBadRequest)

		return fmt.Errorf("read request: %w", err)
	}

	dish, err := ht.catalogSvc.UpdateDish(r.Context(), id, req)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusOK, dish)
}

// HandleDeleteDish removes a dish and its images.
func (ht *HTTPTransport) HandleDeleteDish(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDeleteDish(w, r)
}

func (ht *HTTPTransport) handleDeleteDish(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLog(r)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "delete dish request failed", "error", err)
		}
	}()

	id, err := pathID(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	if err := ht.catalogSvc.DeleteDish(r.Context(), id); err != nil {
		http_.Error(w, errorStatus(err))

		return err
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

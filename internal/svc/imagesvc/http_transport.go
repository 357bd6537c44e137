package imagesvc

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/infra/logging"
	http_ "github.com/mkrupp/menucase/internal/infra/transport/http"
	"github.com/mkrupp/menucase/internal/util/encoding"
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// MultipartFileName is the form field name for file uploads.
	// Default is "upload".
	MultipartFileName string `env:"MULTIPART_FILE_NAME" default:"upload"`

	// URLNameParam is the URL path parameter name for image names.
	// Default is "name".
	URLNameParam string `env:"URL_NAME_PARAM" default:"name"`

	// URLSizeParam is the URL query parameter selecting a derivative size.
	// Default is "size".
	URLSizeParam string `env:"URL_SIZE_PARAM" default:"size"`

	// URLStrictParam is the URL query parameter making deletes fail on missing images.
	// Default is "strict".
	URLStrictParam string `env:"URL_STRICT_PARAM" default:"strict"`

	// MultipartFormMaxMemory is the maximum allowed memory for multipart form uploads.
	// Default is 10MB.
	MultipartFormMaxMemory int64 `env:"MULTIPART_FORM_MAX_SIZE" default:"10485760"`

	// JSONMaxSize is the maximum accepted size of JSON request bodies.
	// Default is 32MB, enough for base64 payloads at the default image size limit.
	JSONMaxSize int64 `env:"JSON_MAX_SIZE" default:"33554432"`

	// CacheMaxAge is the Cache-Control max-age, in seconds, for served derivatives.
	// Names are never reused, so derivatives can be cached for long.
	CacheMaxAge int `env:"CACHE_MAX_AGE" default:"31536000"`

	// Static enables serving the derivative root as static files under /static/.
	Static bool `env:"STATIC" default:"false"`
}

var ErrNoMultipartFiles = errors.New("no multipart files")

// HTTPTransport handles HTTP requests for the image service.
// It provides endpoints for ingesting, downloading, replacing and deleting images.
type HTTPTransport struct {
	imageSvc ImageService
	log      logging.Logger
	cfg      HTTPTransportConfig
	mux      *http.ServeMux
}

var _ http_.MountableHTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// staticRoot is the derivative root served under /static/ when cfg.Static is set.
func NewHTTPTransport(imageSvc ImageService, staticRoot string, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		imageSvc: imageSvc,
		log:      logging.GetLogger("svc.imagesvc.http_transport"),
		cfg:      cfg,
		mux:      http.NewServeMux(),
	}

	nameParam := fmt.Sprintf("{%s}", cfg.URLNameParam)

	ht.mux.HandleFunc("POST /images", ht.HandleUpload)
	ht.mux.HandleFunc("POST /images/base64", ht.HandleUploadBase64)
	ht.mux.HandleFunc("POST /images/url", ht.HandleUploadURL)
	ht.mux.HandleFunc("PUT /images/"+nameParam, ht.HandleReplace)
	ht.mux.HandleFunc("GET /images/"+nameParam, ht.HandleDownload)
	ht.mux.HandleFunc("DELETE /images/"+nameParam, ht.HandleDelete)

	if cfg.Static && staticRoot != "" {
		ht.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(os.DirFS(staticRoot))))
	}

	return ht
}

// Patterns implements http_.MountableHTTPTransport.
func (ht *HTTPTransport) Patterns() []string {
	patterns := []string{"/images", "/images/"}
	if ht.cfg.Static {
		patterns = append(patterns, "/static/")
	}

	return patterns
}

// ServeHTTP implements http.Handler and routes the image service endpoints:
// - POST /images: Upload one or more images as multipart form
// - POST /images/base64: Upload a base64 image
// - POST /images/url: Ingest an image from a remote URL
// - PUT /images/{name}: Replace an image by name
// - GET /images/{name}: Download an image by name, optionally a specific size
// - DELETE /images/{name}: Delete an image by name.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrDecode),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, http_.ErrEmptyBody),
		errors.Is(err, ErrNoMultipartFiles):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// pathName reads the image name from the URL. The stem is normalized the way
// Crockford base32 allows (case, O for 0, I and L for 1), so names copied by hand
// still resolve.
func (ht *HTTPTransport) pathName(r *http.Request) string {
	name := r.PathValue(ht.cfg.URLNameParam)

	if stem, ok := strings.CutSuffix(strings.ToLower(name), domain.ImageExt); ok {
		return encoding.NormalizeCrockfordB32LC(stem) + domain.ImageExt
	}

	return name
}

// HandleUpload processes multipart image uploads.
// Expects one or more files in the form field matching MultipartFileName config.
func (ht *HTTPTransport) HandleUpload(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpload(w, r)
}

func (ht *HTTPTransport) handleUpload(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "image upload failed", "error", err)
		} else {
			log.DebugContext(r.Context(), "image uploaded")
		}
	}()

	files, err := ht.openMultipartFiles(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return fmt.Errorf("open multipart files: %w", err)
	}

	defer func() {
		for _, file := range files {
			_ = file.Close()
		}
	}()

	readers := make([]io.Reader, len(files))
	for i, file := range files {
		readers[i] = file
	}

	names, err := ht.imageSvc.IngestFiles(r.Context(), readers)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return fmt.Errorf("ingest files: %w", err)
	}

	resp := make([]domain.ImageNameResponse, len(names))
	for i, name := range names {
		resp[i] = domain.ImageNameResponse{Name: name}
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusCreated, resp)
}

func (ht *HTTPTransport) openMultipartFiles(r *http.Request) ([]multipart.File, error) {
	if err := r.ParseMultipartForm(ht.cfg.MultipartFormMaxMemory); err != nil {
		return nil, fmt.Errorf("%w: parse multipart form: %w", ErrNoMultipartFiles, err)
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File[ht.cfg.MultipartFileName]) == 0 {
		return nil, ErrNoMultipartFiles
	}

	headers := r.MultipartForm.File[ht.cfg.MultipartFileName]
	files := make([]multipart.File, 0, len(headers))

	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			for _, f := range files {
				_ = f.Close()
			}

			return nil, fmt.Errorf("open %s: %w", header.Filename, err)
		}

		files = append(files, file)
	}

	return files, nil
}

// HandleUploadBase64 ingests an image sent as {"data": "<base64>"}.
func (ht *HTTPTransport) HandleUploadBase64(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUploadBase64(w, r)
}

func (ht *HTTPTransport) handleUploadBase64(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "image base64 upload failed", "error", err)
		} else {
			log.DebugContext(r.Context(), "image base64 uploaded")
		}
	}()

	var req domain.ImageBase64Request
	if err := http_.ReadJSON(w, r, &req, ht.cfg.JSONMaxSize); err != nil {
		http_.Error(w, http.StatusBadRequest)

		return fmt.Errorf("read request: %w", err)
	}

	name, err := ht.imageSvc.IngestBase64(r.Context(), req.Data)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return fmt.Errorf("ingest base64: %w", err)
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusCreated, domain.ImageNameResponse{Name: name})
}

// HandleUploadURL ingests an image downloaded from {"url": "..."}.
func (ht *HTTPTransport) HandleUploadURL(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUploadURL(w, r)
}

func (ht *HTTPTransport) handleUploadURL(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "image url upload failed", "error", err)
		} else {
			log.DebugContext(r.Context(), "image url uploaded")
		}
	}()

	var req domain.ImageURLRequest
	if err := http_.ReadJSON(w, r, &req, ht.cfg.JSONMaxSize); err != nil {
		http_.Error(w, http.StatusBadRequest)

		return fmt.Errorf("read request: %w", err)
	}

	name, err := ht.imageSvc.IngestURL(r.Context(), req.URL)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return fmt.Errorf("ingest url: %w", err)
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusCreated, domain.ImageNameResponse{Name: name})
}

// HandleReplace replaces the named image with a multipart upload and returns the new name.
func (ht *HTTPTransport) HandleReplace(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleReplace(w, r)
}

func (ht *HTTPTransport) handleReplace(w http.ResponseWriter, r *http.Request) (err error) {
	name := ht.pathName(r)
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("image", "name", name),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "image replace failed", "error", err)
		} else {
			log.DebugContext(r.Context(), "image replaced")
		}
	}()

	if err := domain.ValidateImageName(name); err != nil {
		http_.Error(w, http.StatusBadRequest)

		return err
	}

	files, err := ht.openMultipartFiles(r)
	if err != nil {
		http_.Error(w, errorStatus(err))

		return fmt.Errorf("open multipart files: %w", err)
	}

	defer func() {
		for _, file := range files {
			_ = file.Close()
		}
	}()

	newName, err := ht.imageSvc.ReplaceFile(r.Context(), name, files[0])
	if err != nil {
		http_.Error(w, errorStatus(err))

		return fmt.Errorf("replace: %w", err)
	}

	//nolint:wrapcheck
	return http_.WriteJSON(w, http.StatusOK, domain.ImageNameResponse{Name: newName})
}

// HandleDelete processes image deletion requests.
// Missing images are ignored unless the strict query parameter is true.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	name := ht.pathName(r)
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("image", "name", name),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "image delete failed", "error", err)
		} else {
			log.DebugContext(r.Context(), "image deleted")
		}
	}()

	var strict bool

	if strictStr := r.URL.Query().Get(ht.cfg.URLStrictParam); strictStr != "" {
		if strict, err = strconv.ParseBool(strictStr); err != nil {
			http_.Error(w, http.StatusBadRequest)

			return fmt.Errorf("parse strict: %w", err)
		}
	}

	if strict {
		err = ht.imageSvc.Delete(r.Context(), name)
	} else {
		err = ht.imageSvc.DeleteIfExists(r.Context(), name)
	}

	if err != nil {
		http_.Error(w, errorStatus(err))

		return fmt.Errorf("delete: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

// HandleDownload serves the canonical derivative, or the one selected by the size query parameter.
func (ht *HTTPTransport) HandleDownload(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDownload(w, r)
}

func (ht *HTTPTransport) handleDownload(w http.ResponseWriter, r *http.Request) (err error) {
	name := ht.pathName(r)
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("image", "name", name),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(r.Context(), "image download failed", "error", err)
		} else {
			log.DebugContext(r.Context(), "image downloaded")
		}
	}()

	var data []byte

	if sizeStr := r.URL.Query().Get(ht.cfg.URLSizeParam); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			http_.Error(w, http.StatusBadRequest)

			return fmt.Errorf("parse size: %w", err)
		}

		data, err = ht.imageSvc.LoadSize(r.Context(), size, name)
		if err != nil {
			http_.Error(w, errorStatus(err))

			return fmt.Errorf("load size: %w", err)
		}
	} else {
		data, err = ht.imageSvc.Load(r.Context(), name)
		if err != nil {
			http_.Error(w, errorStatus(err))

			return fmt.Errorf("load: %w", err)
		}
	}

	w.Header().Set("Content-Type", MIMETypeWebP)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", ht.cfg.CacheMaxAge))

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

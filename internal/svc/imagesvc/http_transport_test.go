package imagesvc_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkrupp/menucase/internal/domain"
	"github.com/mkrupp/menucase/internal/svc/imagesvc"
)

func newTestTransportConfig() imagesvc.HTTPTransportConfig {
	//nolint:exhaustruct
	return imagesvc.HTTPTransportConfig{
		MultipartFileName:      "upload",
		URLNameParam:           "name",
		URLSizeParam:           "size",
		URLStrictParam:         "strict",
		MultipartFormMaxMemory: 1 << 20,
		JSONMaxSize:            1 << 20,
		CacheMaxAge:            60,
		Static:                 true,
	}
}

func multipartBody(t *testing.T, field string, files ...[]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	for i, file := range files {
		part, err := writer.CreateFormFile(field, "image"+string(rune('a'+i))+".png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}

		if _, err := part.Write(file); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return &buf, writer.FormDataContentType()
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestHTTPTransport_UploadDownloadDelete(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil, imagesvc.ImageConfig{})
	transport := imagesvc.NewHTTPTransport(svc, svc.root, newTestTransportConfig())

	body, contentType := multipartBody(t, "upload",
		encodePNG(t, 300, 150, color.White),
		encodePNG(t, 10, 10, color.Black),
	)

	req := httptest.NewRequest(http.MethodPost, "/images", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(transport, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %q", rec.Code, rec.Body.String())
	}

	var uploaded []domain.ImageNameResponse
	if err := json.NewDecoder(rec.Body).Decode(&uploaded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(uploaded) != 2 {
		t.Fatalf("got %d names, want 2", len(uploaded))
	}

	name := uploaded[0].Name

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantWidth  int
	}{
		{name: "canonical", path: "/images/" + name, wantStatus: http.StatusOK, wantWidth: 300},
		{name: "sized", path: "/images/" + name + "?size=100", wantStatus: http.StatusOK, wantWidth: 100},
		{name: "static", path: "/static/200_" + name, wantStatus: http.StatusOK, wantWidth: 200},
		{name: "unknown size", path: "/images/" + name + "?size=123", wantStatus: http.StatusNotFound},
		{name: "bad size", path: "/images/" + name + "?size=big", wantStatus: http.StatusBadRequest},
		{
			name:       "transcribed name",
			path:       "/images/" + strings.ToUpper(strings.TrimSuffix(name, domain.ImageExt)) + ".WEBP",
			wantStatus: http.StatusOK,
			wantWidth:  300,
		},
		{name: "unknown image", path: "/images/missing.webp", wantStatus: http.StatusNotFound},
		{name: "invalid name", path: "/images/missing.png", wantStatus: http.StatusBadRequest},
	}

	// The group waits for its parallel downloads before the deletes below run.
	t.Run("download", func(t *testing.T) {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				rec := serve(transport, httptest.NewRequest(http.MethodGet, tt.path, nil))
				if rec.Code != tt.wantStatus {
					t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
				}

				if tt.wantWidth == 0 {
					return
				}

				if w, _ := decodeDimensions(t, rec.Body.Bytes()); w != tt.wantWidth {
					t.Errorf("width = %d, want %d", w, tt.wantWidth)
				}
			})
		}
	})

	if rec := serve(transport, httptest.NewRequest(http.MethodDelete, "/images/"+name, nil)); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}

	if rec := serve(transport, httptest.NewRequest(http.MethodDelete, "/images/"+name, nil)); rec.Code != http.StatusNoContent {
		t.Errorf("tolerant delete of missing image status = %d", rec.Code)
	}

	if rec := serve(transport, httptest.NewRequest(http.MethodDelete, "/images/"+name+"?strict=true", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("strict delete of missing image status = %d", rec.Code)
	}
}

func TestHTTPTransport_UploadErrors(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil, imagesvc.ImageConfig{})
	transport := imagesvc.NewHTTPTransport(svc, svc.root, newTestTransportConfig())

	t.Run("no files", func(t *testing.T) {
		t.Parallel()

		body, contentType := multipartBody(t, "other", encodePNG(t, 1, 1, color.White))

		req := httptest.NewRequest(http.MethodPost, "/images", body)
		req.Header.Set("Content-Type", contentType)

		if rec := serve(transport, req); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		t.Parallel()

		body, contentType := multipartBody(t, "upload", encodePNG(t, 1, 1, color.White), []byte("corrupt"))

		req := httptest.NewRequest(http.MethodPost, "/images", body)
		req.Header.Set("Content-Type", contentType)

		if rec := serve(transport, req); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestHTTPTransport_UploadBase64AndURL(t *testing.T) {
	t.Parallel()

	payload := encodePNG(t, 12, 12, color.White)

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/remote.png" {
			http.NotFound(w, r)

			return
		}

		_, _ = w.Write(payload)
	}))
	t.Cleanup(remote.Close)

	svc := newTestService(t, nil, imagesvc.ImageConfig{})
	transport := imagesvc.NewHTTPTransport(svc, svc.root, newTestTransportConfig())

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "base64",
			path:       "/images/base64",
			body:       `{"data":"data:image/png;base64,` + base64.StdEncoding.EncodeToString(payload) + `"}`,
			wantStatus: http.StatusCreated,
		},
		{name: "malformed base64", path: "/images/base64", body: `{"data":"***"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", path: "/images/base64", body: `{"data":`, wantStatus: http.StatusBadRequest},
		{name: "url", path: "/images/url", body: `{"url":"` + remote.URL + `/remote.png"}`, wantStatus: http.StatusCreated},
		{name: "url not found", path: "/images/url", body: `{"url":"` + remote.URL + `/nope.png"}`, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := serve(transport, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %q", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus != http.StatusCreated {
				return
			}

			var resp domain.ImageNameResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if err := domain.ValidateImageName(resp.Name); err != nil {
				t.Errorf("invalid name in response: %v", err)
			}
		})
	}
}

func TestHTTPTransport_Replace(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, nil, imagesvc.ImageConfig{})
	transport := imagesvc.NewHTTPTransport(svc, svc.root, newTestTransportConfig())

	old, err := svc.IngestBytes(context.TODO(), encodePNG(t, 5, 5, color.White))
	if err != nil {
		t.Fatalf("failed to ingest: %v", err)
	}

	body, contentType := multipartBody(t, "upload", encodePNG(t, 7, 7, color.Black))

	req := httptest.NewRequest(http.MethodPut, "/images/"+old, body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(transport, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}

	var resp domain.ImageNameResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Name == old {
		t.Error("expected a new name")
	}

	if rec := serve(transport, httptest.NewRequest(http.MethodGet, "/images/"+old, nil)); rec.Code != http.StatusNotFound {
		t.Errorf("old image status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var ErrEmptyBody = errors.New("empty request body")

// WriteJSON encodes body as the JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// ReadJSON decodes the request body into dst, reading at most maxBytes.
// Unknown fields are rejected.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	return nil
}

// Error writes the standard status text for status.
func Error(w http.ResponseWriter, status int) {
	http.Error(w, http.StatusText(status), status)
}

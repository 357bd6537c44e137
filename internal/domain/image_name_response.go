package domain

// ImageNameResponse represents a response containing the logical name of a stored image.
type ImageNameResponse struct {
	Name string `json:"name"`
}

// ImageBase64Request carries a base64 payload, optionally prefixed with a data URL header.
type ImageBase64Request struct {
	Data string `json:"data"`
}

// ImageURLRequest carries the address of a remote image to ingest.
type ImageURLRequest struct {
	URL string `json:"url"`
}

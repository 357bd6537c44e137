package imagesvc

import (
	"fmt"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"  // Register BMP format
	_ "golang.org/x/image/tiff" // Register TIFF format
	_ "golang.org/x/image/webp" // Register WebP format

	"github.com/mkrupp/menucase/internal/domain"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeGIF  = "image/gif"
	MIMETypeBMP  = "image/bmp"
	MIMETypeTIFF = "image/tiff"
	MIMETypeWebP = "image/webp"
)

// supportedMIMETypes lists the input formats a decoder is registered for.
//
//nolint:gochecknoglobals
var supportedMIMETypes = []string{
	MIMETypeJPEG,
	MIMETypePNG,
	MIMETypeGIF,
	MIMETypeBMP,
	MIMETypeTIFF,
	MIMETypeWebP,
}

// detectImageType sniffs the payload and returns its MIME type if it is a supported image.
func detectImageType(data []byte) (string, error) {
	mtype := mimetype.Detect(data)

	for _, supported := range supportedMIMETypes {
		if mtype.Is(supported) {
			return supported, nil
		}
	}

	return "", fmt.Errorf("%w: %w: %q", domain.ErrDecode, domain.ErrImageTypeNotSupported, mtype.String())
}

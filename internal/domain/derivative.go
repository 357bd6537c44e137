package domain

import (
	"fmt"
	"io"
	"strconv"
)

// Derivative is one resized, re-encoded rendition of a logical image.
type Derivative struct {
	Name string // Logical image name, including the codec extension
	Size int    // Bounding box edge in pixels
	Body []byte
}

// NewDerivative creates a new Derivative for the given name and size class.
func NewDerivative(name string, size int, body []byte) *Derivative {
	return &Derivative{
		Name: name,
		Size: size,
		Body: body,
	}
}

// Basename returns the on-disk file name of the derivative: {size}_{name}.
func (d *Derivative) Basename() string {
	return DerivativeBasename(d.Size, d.Name)
}

// Len returns the size of the derivative's content in bytes.
func (d *Derivative) Len() int64 {
	return int64(len(d.Body))
}

// Bytes returns the derivative's content as a byte slice.
func (d *Derivative) Bytes() []byte {
	return d.Body
}

// WriteTo writes the derivative's content to the given writer.
func (d *Derivative) WriteTo(writer io.Writer) (int64, error) {
	n, err := writer.Write(d.Body)
	if err != nil {
		return int64(n), fmt.Errorf("write: %w", err)
	}

	return int64(n), nil
}

// DerivativeBasename builds the file name a derivative is stored under.
func DerivativeBasename(size int, name string) string {
	return strconv.Itoa(size) + "_" + name
}

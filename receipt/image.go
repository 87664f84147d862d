package receipt

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bububa/smart-shop/schema"
)

// DefaultMaxImageSize is the upload limit when none is configured
const DefaultMaxImageSize int64 = 16 << 20

var (
	// ErrInvalidImage is returned for empty or unsupported image data
	ErrInvalidImage = errors.New("invalid image file")
	// ErrImageTooLarge is returned for images above the size limit
	ErrImageTooLarge = errors.New("image file too large")
)

// AllowedImageTypes lists the accepted image MIME types
var AllowedImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/bmp",
	"image/webp",
}

// ValidateImage checks size and detects the content type of data.
// maxSize <= 0 means DefaultMaxImageSize.
func ValidateImage(data []byte, maxSize int64) (schema.Image, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	if len(data) == 0 {
		return schema.Image{}, fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	if int64(len(data)) > maxSize {
		return schema.Image{}, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(data), maxSize)
	}
	mtype := mimetype.Detect(data)
	for _, allowed := range AllowedImageTypes {
		if mtype.Is(allowed) {
			return schema.Image{MimeType: allowed, Data: data}, nil
		}
	}
	return schema.Image{}, fmt.Errorf("%w: unsupported type %s", ErrInvalidImage, mtype.String())
}

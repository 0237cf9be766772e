package textpost

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoders for thumbnailing
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"
)

const (
	// DefaultThumbnailSize is the bounding box of generated thumbnails.
	DefaultThumbnailSize = 256

	// maxImageBytes caps the size of an uploaded post image.
	maxImageBytes = 10 << 20
)

// isImageMimeType reports whether the MIME type is accepted for post images.
func isImageMimeType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

// generateThumbnail decodes the image and renders a JPEG thumbnail that fits
// in a size x size box. Formats without a registered decoder return an error.
func generateThumbnail(data []byte, size uint) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumbnail := resize.Thumbnail(size, size, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumbnail, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

package textpost

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGenerateThumbnail(t *testing.T) {
	thumb, err := generateThumbnail(pngBytes(t, 800, 400), 256)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	bounds := img.Bounds()
	assert.Equal(t, 256, bounds.Dx())
	assert.Equal(t, 128, bounds.Dy())
}

func TestGenerateThumbnail_SmallImageNotUpscaled(t *testing.T) {
	thumb, err := generateThumbnail(pngBytes(t, 40, 20), 256)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestGenerateThumbnail_InvalidData(t *testing.T) {
	_, err := generateThumbnail([]byte("definitely not an image"), 256)
	assert.Error(t, err)
}

func TestIsImageMimeType(t *testing.T) {
	assert.True(t, isImageMimeType("image/png"))
	assert.True(t, isImageMimeType("IMAGE/JPEG"))
	assert.False(t, isImageMimeType("text/plain"))
	assert.False(t, isImageMimeType(""))
}

// Package objectkey builds blob storage keys for post images.
package objectkey

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for image key generation strategies
type Generator interface {
	// ImageKey returns the key of the post's original image.
	ImageKey(postID uuid.UUID, ext string) string

	// ThumbnailKey returns the key of the post's generated thumbnail.
	ThumbnailKey(postID uuid.UUID) string
}

// DefaultPrefix is the key prefix for post images.
const DefaultPrefix = "posts"

// FlatGenerator stores every image directly under the prefix,
// named after the post: posts/<id>.<ext>
type FlatGenerator struct {
	Prefix string
}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{Prefix: DefaultPrefix}
}

func (g *FlatGenerator) ImageKey(postID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s.%s", g.prefix(), postID, sanitizeExtension(ext))
}

func (g *FlatGenerator) ThumbnailKey(postID uuid.UUID) string {
	return fmt.Sprintf("%s/thumbs/%s.jpg", g.prefix(), postID)
}

func (g *FlatGenerator) prefix() string {
	if g.Prefix == "" {
		return DefaultPrefix
	}
	return sanitizePathComponent(g.Prefix)
}

// ShardedGenerator provides Git-style sharding on the post ID
// Original:  posts/ab/<id>.<ext>
// Thumbnail: posts/thumbs/ab/<id>.jpg
type ShardedGenerator struct {
	Prefix string
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{
		Prefix:      DefaultPrefix,
		ShardLength: 2,
	}
}

func (g *ShardedGenerator) ImageKey(postID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s/%s.%s", g.prefix(), g.shard(postID), postID, sanitizeExtension(ext))
}

func (g *ShardedGenerator) ThumbnailKey(postID uuid.UUID) string {
	return fmt.Sprintf("%s/thumbs/%s/%s.jpg", g.prefix(), g.shard(postID), postID)
}

func (g *ShardedGenerator) shard(postID uuid.UUID) string {
	idStr := strings.ReplaceAll(postID.String(), "-", "")
	n := g.ShardLength
	if n <= 0 {
		n = 2
	}
	if n > len(idStr) {
		n = len(idStr)
	}
	return idStr[:n]
}

func (g *ShardedGenerator) prefix() string {
	if g.Prefix == "" {
		return DefaultPrefix
	}
	return sanitizePathComponent(g.Prefix)
}

// ExtensionFor picks the file extension for an upload, preferring the
// uploaded file name and falling back to the MIME type.
func ExtensionFor(fileName, mimeType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(fileName), "."); ext != "" {
		return sanitizeExtension(ext)
	}
	if ext, ok := preferredExtensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	if mimeType != "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			return sanitizeExtension(strings.TrimPrefix(exts[0], "."))
		}
	}
	return "bin"
}

// preferredExtensions overrides mime.ExtensionsByType, which returns its
// candidates sorted (".jfif" before ".jpg").
var preferredExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
}

func sanitizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var sb strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "bin"
	}
	return sb.String()
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return strings.Trim(strings.ToLower(replacer.Replace(component)), "/")
}

// NewRecommendedGenerator returns the generator used when none is configured
func NewRecommendedGenerator() Generator {
	return NewFlatGenerator()
}

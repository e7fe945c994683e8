// Package storage keeps listing images.
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ImageStore saves an uploaded image and returns the URL clients load it from.
type ImageStore interface {
	Save(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// objectName builds a collision-free key under items/ that keeps the upload's extension.
func objectName(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
	default:
		ext = ".jpg"
	}
	return "items/" + uuid.NewString() + ext
}

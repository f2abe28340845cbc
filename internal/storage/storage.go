// Package storage keeps uploaded alert photos in object storage.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("image storage is not configured")
	ErrForeignURL    = errors.New("url does not belong to this store")
)

// ImageStore saves objects under a caller-chosen name and serves them from a public URL.
type ImageStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

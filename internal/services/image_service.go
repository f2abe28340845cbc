package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/storage"
)

var (
	ErrImageTooLarge = errors.New("image exceeds the upload limit")
	ErrNotAnImage    = errors.New("uploaded file is not an image")
)

// Upload is one file received with an alert submission.
type Upload struct {
	Filename string
	Data     []byte
}

// ImageService is the upload boundary in front of the configured ImageStore.
type ImageService struct {
	store    storage.ImageStore
	maxBytes int64
}

// NewImageService accepts a nil store; uploads then fail with storage.ErrNotConfigured.
func NewImageService(store storage.ImageStore, maxBytes int64) *ImageService {
	return &ImageService{store: store, maxBytes: maxBytes}
}

func (s *ImageService) MaxBytes() int64 {
	return s.maxBytes
}

// Store validates the upload and returns the public URL it was saved under.
func (s *ImageService) Store(ctx context.Context, up *Upload) (string, error) {
	if s == nil || s.store == nil {
		return "", storage.ErrNotConfigured
	}
	name, contentType, err := s.inspect(up)
	if err != nil {
		return "", err
	}
	url, err := s.store.Put(ctx, name, contentType, up.Data)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}

// Remove deletes a stored image. Failures are logged, never returned.
func (s *ImageService) Remove(ctx context.Context, url string) {
	if s == nil || s.store == nil || url == "" {
		return
	}
	if err := s.store.Delete(ctx, url); err != nil {
		slog.Warn("failed to delete stored image", "url", url, "error", err)
	}
}

// inspect checks size and sniffed type and picks a random object name that keeps the extension.
func (s *ImageService) inspect(up *Upload) (string, string, error) {
	if len(up.Data) == 0 {
		return "", "", ErrNotAnImage
	}
	if s.maxBytes > 0 && int64(len(up.Data)) > s.maxBytes {
		return "", "", ErrImageTooLarge
	}

	contentType := http.DetectContentType(up.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", ErrNotAnImage
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "alerts/" + uuid.New().String() + ext, contentType, nil
}

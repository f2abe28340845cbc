package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore uploads images to a Cloudinary folder and serves the secure URL.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

var _ ImageStore = (*CloudinaryStore)(nil)

func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise cloudinary: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStore) Put(ctx context.Context, name, _ string, data []byte) (string, error) {
	overwrite := false
	resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     s.publicID(name),
		Overwrite:    &overwrite,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to cloudinary: %w", name, err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected %s: %s", name, resp.Error.Message)
	}
	return resp.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, publicURL string) error {
	id, err := cloudinaryPublicID(publicURL, s.folder)
	if err != nil {
		return err
	}
	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id})
	if err != nil {
		return fmt.Errorf("failed to delete %s from cloudinary: %w", id, err)
	}
	if resp.Error.Message != "" {
		return errors.New("cloudinary delete failed: " + resp.Error.Message)
	}
	return nil
}

// publicID is the object name without its extension, under the configured folder.
func (s *CloudinaryStore) publicID(name string) string {
	return path.Join(s.folder, strings.TrimSuffix(name, path.Ext(name)))
}

// cloudinaryPublicID recovers "<folder>/.../<name>" from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v1712/alert-images/alerts/abc.jpg.
func cloudinaryPublicID(publicURL, folder string) (string, error) {
	_, rest, ok := strings.Cut(publicURL, "/upload/")
	if !ok {
		return "", ErrForeignURL
	}
	parts := strings.Split(rest, "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "v") && strings.Trim(parts[0][1:], "0123456789") == "" {
		parts = parts[1:]
	}
	id := strings.Join(parts, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" || !strings.HasPrefix(id, folder+"/") {
		return "", ErrForeignURL
	}
	return id, nil
}

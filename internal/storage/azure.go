package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureStore keeps images in an Azure Blob container with blob-level public read.
type AzureStore struct {
	client    *azblob.Client
	container string
}

var _ ImageStore = (*AzureStore)(nil)

// NewAzureStore authenticates with a connection string when given, otherwise with
// the default Azure credential chain against the named account.
func NewAzureStore(ctx context.Context, account, connString, containerName string) (*AzureStore, error) {
	var (
		client *azblob.Client
		err    error
	)
	switch {
	case connString != "":
		client, err = azblob.NewClientFromConnectionString(connString, nil)
	case account != "":
		credential, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(fmt.Sprintf("https://%s.blob.core.windows.net/", account), credential, nil)
	default:
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	s := &AzureStore{client: client, container: containerName}
	if err := s.ensureContainer(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AzureStore) ensureContainer(ctx context.Context) error {
	access := container.PublicAccessTypeBlob
	_, err := s.client.CreateContainer(ctx, s.container, &azblob.CreateContainerOptions{Access: &access})
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create container %s: %w", s.container, err)
	}
	slog.Info("created blob container", "container", s.container)
	return nil
}

func (s *AzureStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	_, err := s.client.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %s: %w", name, err)
	}
	return s.prefix() + name, nil
}

func (s *AzureStore) Delete(ctx context.Context, publicURL string) error {
	name, ok := strings.CutPrefix(publicURL, s.prefix())
	if !ok || name == "" {
		return ErrForeignURL
	}
	if _, err := s.client.DeleteBlob(ctx, s.container, name, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	return nil
}

func (s *AzureStore) prefix() string {
	return strings.TrimSuffix(s.client.URL(), "/") + "/" + s.container + "/"
}

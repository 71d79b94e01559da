package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/osintlab/socialscope/internal/models"
	"github.com/sirupsen/logrus"
)

// BlobArchiver keeps a raw JSON snapshot of each run's labeled batch in
// Azure Blob Storage, next to the relational store. Archiving is optional:
// when no storage account is configured the pipeline runs without it.
type BlobArchiver struct {
	client        *azblob.Client
	containerName string
}

// NewBlobArchiver creates an archiver using managed identity. Returns an
// error when accountName is empty; callers treat that as "archiving off".
func NewBlobArchiver(accountName, containerName string) (*BlobArchiver, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	archiver := &BlobArchiver{
		client:        client,
		containerName: containerName,
	}

	if err := archiver.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return archiver, nil
}

func (a *BlobArchiver) ensureContainer() error {
	ctx := context.Background()

	_, err := a.client.CreateContainer(ctx, a.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", a.containerName)
	} else {
		logrus.Infof("Created container %s", a.containerName)
	}

	return nil
}

// ArchiveBatch uploads the batch as posts-<timestamp>.json.
func (a *BlobArchiver) ArchiveBatch(ctx context.Context, posts []models.Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	filename := fmt.Sprintf("posts-%s.json", time.Now().Format("2006-01-02-15-04-05"))
	_, err = a.client.UploadBuffer(ctx, a.containerName, filename, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
	})
	if err != nil {
		return fmt.Errorf("failed to upload batch %s: %w", filename, err)
	}

	logrus.Infof("Archived %d posts to %s", len(posts), filename)
	return nil
}

// Package archive keeps copies of delivered decks in S3-compatible storage.
// Archival is strictly best-effort: the pipeline deletes local files after
// delivery either way, and an archive failure never fails a generation.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DeckArchive uploads rendered decks to MinIO/S3 compatible storage.
// A nil *DeckArchive is a valid no-op.
type DeckArchive struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and ensures the bucket exists.
func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*DeckArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &DeckArchive{client: client, bucket: bucket}, nil
}

// Store uploads the deck file under generations/<id>/<filename> and returns
// the object key.
func (a *DeckArchive) Store(ctx context.Context, generationID, filePath string) (string, error) {
	if a == nil {
		return "", nil
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("stat deck file: %w", err)
	}
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open deck file: %w", err)
	}
	defer file.Close()
	key := path.Join("generations", generationID, path.Base(filePath))
	_, err = a.client.PutObject(ctx, a.bucket, key, file, info.Size(), minio.PutObjectOptions{
		ContentType: "text/html",
	})
	if err != nil {
		return "", fmt.Errorf("put deck object: %w", err)
	}
	return key, nil
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"Playly/config"
	"Playly/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store wraps a MinIO client scoped to one bucket. Audio and cover objects
// live under songs/<songID>/, so files never collide across songs.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore connects to MinIO and ensures the configured bucket exists.
func NewStore(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created object store bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &Store{client: client, bucket: cfg.MinioBucket}, nil
}

// Upload stores data under objectPath and returns the serve URL the object
// is reachable at through the /static/ proxy route.
func (s *Store) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	opts := minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: true,
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectPath, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}

	return ServeURL(objectPath), nil
}

// Open returns a reader for the object at objectPath. The caller closes it.
func (s *Store) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", objectPath, err)
	}
	return object, nil
}

// ServeURL maps an object path to the URL it is served at.
func ServeURL(objectPath string) string {
	return "/static/" + objectPath
}

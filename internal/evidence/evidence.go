// Package evidence stores complaint attachments in an S3-compatible bucket.
package evidence

import (
	"context"
	"fmt"
	"grievance/backend/internal/config"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectClient is the part of *minio.Client used by Store.
type ObjectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Store handles evidence uploads
type Store struct {
	client  ObjectClient
	bucket  string
	baseURL string
}

// NewStore connects to MinIO. It returns nil, nil when no endpoint is configured.
func NewStore(cfg *config.Config) (*Store, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	return NewStoreWithClient(client, cfg.MinioBucket, fmt.Sprintf("%s://%s", scheme, cfg.MinioEndpoint)), nil
}

func NewStoreWithClient(client ObjectClient, bucket, baseURL string) *Store {
	return &Store{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	log.Printf("INFO: Created evidence bucket %s", s.bucket)
	return nil
}

// ObjectKey builds "complaints/<id>/<uuid><ext>".
func ObjectKey(complaintID uint, fileName string) string {
	return fmt.Sprintf("complaints/%d/%s%s", complaintID, uuid.NewString(), strings.ToLower(path.Ext(fileName)))
}

// Upload stores one attachment and returns its URL. size may be -1 when unknown.
func (s *Store) Upload(ctx context.Context, complaintID uint, fileName, contentType string, size int64, body io.Reader) (string, error) {
	key := ObjectKey(complaintID, fileName)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-name": path.Base(fileName)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload evidence: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucket, key), nil
}

// Remove deletes an object previously returned by Upload.
func (s *Store) Remove(ctx context.Context, url string) error {
	prefix := fmt.Sprintf("%s/%s/", s.baseURL, s.bucket)
	key := strings.TrimPrefix(url, prefix)
	if key == url || key == "" {
		return fmt.Errorf("evidence url %q is not in bucket %s", url, s.bucket)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove evidence: %w", err)
	}
	return nil
}

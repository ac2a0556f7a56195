// Package archive stores the raw feed of each import in an S3 compatible
// bucket so a run can be replayed or audited later.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"mdm-platform/feedhub/internal/config"
)

var ErrNotConfigured = errors.New("archive is not configured")

// MinioArchiver implements ingestion.Archiver on top of minio-go
type MinioArchiver struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

// NewMinioArchiver builds a client from cfg. The endpoint may be a bare host
// or a URL; an https scheme forces TLS.
func NewMinioArchiver(cfg config.ArchiveConfig) (*MinioArchiver, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("archive credentials are required")
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioArchiver{client: client, bucket: cfg.Bucket, region: cfg.Region, prefix: "imports"}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (a *MinioArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Archive uploads body under imports/<key>
func (a *MinioArchiver) Archive(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return fmt.Errorf("object key is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := a.client.PutObject(ctx, a.bucket, a.ObjectKey(key), body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return nil
}

// ObjectKey is the full object name a key is stored under
func (a *MinioArchiver) ObjectKey(key string) string {
	return path.Join(a.prefix, strings.TrimPrefix(key, "/"))
}

// Package objectstore uploads rendered tables to an S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/couchcryptid/localized-events-etl/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const contentType = "text/csv"

// Uploader writes objects to one bucket.
// It implements pipeline.Uploader.
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// New creates an Uploader from the S3_* settings. keyPrefix, when set, is
// prepended to every object key as a directory.
func New(cfg *config.Config, keyPrefix string, logger *slog.Logger) (*Uploader, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Uploader{client: client, bucket: cfg.S3Bucket, prefix: keyPrefix, logger: logger}, nil
}

// Upload stores data under key.
func (u *Uploader) Upload(ctx context.Context, key string, data []byte) error {
	objectKey := u.objectKey(key)
	info, err := u.client.PutObject(ctx, u.bucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("s3 put object %s/%s: %w", u.bucket, objectKey, err)
	}
	u.logger.Debug("object uploaded", "bucket", u.bucket, "key", objectKey, "size", info.Size)
	return nil
}

func (u *Uploader) objectKey(key string) string {
	if u.prefix == "" {
		return key
	}
	return path.Join(u.prefix, key)
}

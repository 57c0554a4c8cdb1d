package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/burnbox/backend/internal/config"
	"github.com/burnbox/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Client talks to AWS S3 (or any compatible endpoint). With no access key
// configured it falls back to IAM instance credentials.
type S3Client struct {
	client *minio.Client
	bucket string
}

func NewS3Client(cfg config.StorageConfig) (*S3Client, error) {
	var creds *credentials.Credentials

	if cfg.AccessKey == "" {
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3Client{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func (s *S3Client) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("s3_put_failed", err, map[string]interface{}{
			"object_name":  key,
			"size":         size,
			"content_type": contentType,
			"bucket":       s.bucket,
		})
	} else {
		logger.Info("s3_put_success", map[string]interface{}{
			"object_name":  key,
			"size":         size,
			"content_type": contentType,
			"bucket":       s.bucket,
		})
	}
	return err
}

func (s *S3Client) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		logger.Error("s3_get_failed", err, map[string]interface{}{
			"object_name": key,
			"bucket":      s.bucket,
		})
		return nil, mapMinIOError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		logger.Error("s3_get_read_failed", err, map[string]interface{}{
			"object_name": key,
			"bucket":      s.bucket,
		})
		return nil, mapMinIOError(err)
	}
	return data, nil
}

func (s *S3Client) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error("s3_delete_failed", err, map[string]interface{}{
			"object_name": key,
			"bucket":      s.bucket,
		})
	} else {
		logger.Info("s3_delete_success", map[string]interface{}{
			"object_name": key,
			"bucket":      s.bucket,
		})
	}
	return err
}

func (s *S3Client) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

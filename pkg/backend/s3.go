/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package backend

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// S3Config carries the knobs needed to reach an S3-compatible
// endpoint (AWS S3 itself, or any MinIO-compatible provider).
// KeyID/Secret are optional: when empty, credentials are resolved
// from the environment, a shared credentials file, and finally the
// EC2/ECS instance-metadata service, in that order — the same chain
// the reference tool falls back to when it isn't handed static keys.
type S3Config struct {
	Endpoint string
	Bucket   string
	Prefix   string
	Region   string
	KeyID    string
	Secret   string
	Insecure bool
}

// S3Backend is a Backend backed by an S3-compatible bucket.
type S3Backend struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	var creds *credentials.Credentials
	if cfg.KeyID != "" && cfg.Secret != "" {
		creds = credentials.NewStaticV4(cfg.KeyID, cfg.Secret, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}

	opts := &minio.Options{
		Creds:  creds,
		Secure: !cfg.Insecure,
	}
	if cfg.Region != "" {
		opts.Region = cfg.Region
	}

	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create s3 client")
	}

	found, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check bucket %s", cfg.Bucket)
	}
	if !found {
		return nil, errors.Errorf("bucket %s not found", cfg.Bucket)
	}

	return &S3Backend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *S3Backend) key(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}

func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	listOpts := minio.ListObjectsOptions{
		Recursive: true,
		Prefix:    b.key(prefix),
	}

	var keys []string
	for object := range b.client.ListObjects(ctx, b.bucket, listOpts) {
		if object.Err != nil {
			return nil, errors.Wrap(object.Err, "failed to list objects")
		}
		key := object.Key
		if b.prefix != "" {
			key = key[len(b.prefix)+1:]
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (b *S3Backend) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.key(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", key)
	}
	// GetObject is lazy: the first read surfaces a not-found error.
	if _, err := obj.Stat(); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			obj.Close()
			return nil, ErrNotFound
		}
		obj.Close()
		return nil, errors.Wrapf(err, "failed to stat %s", key)
	}
	return obj, nil
}

func (b *S3Backend) Upload(ctx context.Context, key string, contents io.Reader, length int64) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.key(key), contents, length,
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return errors.Wrapf(err, "failed to upload %s", key)
	}
	return nil
}

func (b *S3Backend) Updated(ctx context.Context, key string) (time.Time, error) {
	info, err := b.client.StatObject(ctx, b.bucket, b.key(key), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, errors.Wrapf(err, "failed to stat %s", key)
	}
	return info.LastModified, nil
}

/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package backend

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Open constructs the Backend matching rawURL's scheme, sourcing
// whatever credentials that backend needs from the environment per
// the reference tool's own env-var contract:
//
//	file:      a local directory
//	s3:, http(s): an S3-compatible endpoint, bucket-in-host or bucket-in-path
//	gs:        a Google Cloud Storage bucket
//	blob:      an Azure Storage container
func Open(ctx context.Context, rawURL, prefix string) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid backend url %q", rawURL)
	}

	switch u.Scheme {
	case "", "file":
		root := u.Path
		if strings.HasPrefix(u.Host, ".") {
			// "file://./dir" parses "." as the host; keep it relative.
			root = u.Host + u.Path
		}
		return NewFSBackend(root)

	case "s3":
		return NewS3Backend(ctx, S3Config{
			Endpoint: u.Host,
			Bucket:   strings.TrimPrefix(u.Path, "/"),
			Prefix:   prefix,
			KeyID:    os.Getenv("AWS_ACCESS_KEY_ID"),
			Secret:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})

	case "http", "https":
		bucket, region, endpoint, ok := parseS3VirtualHost(u.Host)
		if !ok {
			return nil, fmt.Errorf("unrecognized s3 endpoint %q", u.Host)
		}
		return NewS3Backend(ctx, S3Config{
			Endpoint: endpoint,
			Bucket:   bucket,
			Region:   region,
			Prefix:   prefix,
			KeyID:    os.Getenv("AWS_ACCESS_KEY_ID"),
			Secret:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Insecure: u.Scheme == "http",
		})

	case "gs":
		keyPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if keyPath == "" {
			return nil, errors.New("GOOGLE_APPLICATION_CREDENTIALS not set")
		}
		key, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read GCS service account key")
		}
		return NewGCSBackend(ctx, u.Host, prefix, key)

	case "blob":
		account := os.Getenv("STORAGE_ACCOUNT")
		masterKey := os.Getenv("STORAGE_MASTER_KEY")
		if account == "" || masterKey == "" {
			return nil, errors.New("STORAGE_ACCOUNT/STORAGE_MASTER_KEY not set")
		}
		return NewBlobBackend(account, masterKey, u.Host, prefix)

	default:
		return nil, fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}
}

// parseS3VirtualHost splits a virtual-hosted-style S3 URL host of the
// shape "<bucket>.s3[-<region>].<rest>" into its parts.
func parseS3VirtualHost(host string) (bucket, region, endpoint string, ok bool) {
	parts := strings.SplitN(host, ".", 2)
	if len(parts) != 2 {
		return "", "", "", false
	}
	bucket = parts[0]
	rest := parts[1]

	s3Part := strings.SplitN(rest, ".", 2)
	if len(s3Part) == 0 || !strings.HasPrefix(s3Part[0], "s3") {
		return "", "", "", false
	}
	if dash := strings.Index(s3Part[0], "-"); dash >= 0 {
		region = s3Part[0][dash+1:]
	}
	return bucket, region, rest, true
}

/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/

// Package backend defines the object-store contract that both
// operations (mirror and sync) are written against, and the concrete
// backends — filesystem, S3-compatible, GCS, Azure Blob — that satisfy
// it. Every backend stores opaque byte blobs keyed by a flat string
// path; none of them know anything about crates, registries or git.
package backend

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Fetch when the key does not exist in the
// backend, and by Updated when there is nothing to compare against.
var ErrNotFound = errors.New("backend: key not found")

// Backend is the four-operation contract every object store
// implementation satisfies. All operations are safe to call
// concurrently on the same Backend value.
type Backend interface {
	// List returns every key stored under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Fetch opens key for reading. The caller must Close the reader.
	// Returns ErrNotFound if key does not exist.
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
	// Upload writes contents (of the given length) to key, replacing
	// any existing object at that key.
	Upload(ctx context.Context, key string, contents io.Reader, length int64) error
	// Updated reports the last-modified time of key, used to decide
	// whether a cached registry index is stale enough to re-fetch.
	// Returns ErrNotFound if key does not exist.
	Updated(ctx context.Context, key string) (time.Time, error)
}

/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/helpers"
)

// FSBackend is a Backend rooted at a local directory. It exists
// mostly for local testing and air-gapped mirrors: every key maps
// 1:1 onto a path under Root, and an upload is written to a sibling
// temp file and renamed into place so a reader never observes a
// partially-written object.
type FSBackend struct {
	Root string
}

func NewFSBackend(root string) (*FSBackend, error) {
	if err := helpers.EnsureDirWithoutIds(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create backend root %s", root)
	}
	return &FSBackend{Root: root}, nil
}

func (b *FSBackend) path(key string) string {
	return filepath.Join(b.Root, filepath.FromSlash(key))
}

func (b *FSBackend) List(ctx context.Context, prefix string) ([]string, error) {
	base := b.path(prefix)
	var keys []string

	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.Root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", prefix)
	}
	return keys, nil
}

func (b *FSBackend) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	fd, err := os.Open(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to open %s", key)
	}
	return fd, nil
}

func (b *FSBackend) Upload(ctx context.Context, key string, contents io.Reader, length int64) error {
	target := b.path(key)
	if err := helpers.EnsureDirWithoutIds(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "failed to create parent dir for %s", key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", key)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, contents); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close temp file for %s", key)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return errors.Wrapf(err, "failed to finalize %s", key)
	}
	return nil
}

func (b *FSBackend) Updated(ctx context.Context, key string) (time.Time, error) {
	info, err := os.Stat(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, errors.Wrapf(err, "failed to stat %s", key)
	}
	return info.ModTime(), nil
}

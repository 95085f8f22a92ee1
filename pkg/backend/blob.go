/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package backend

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/pkg/errors"
)

// BlobBackend is a Backend backed by an Azure Storage container,
// authenticated with a storage account name + shared key.
type BlobBackend struct {
	client    *azblob.Client
	container string
	prefix    string
}

func NewBlobBackend(account, masterKey, containerName, prefix string) (*BlobBackend, error) {
	cred, err := azblob.NewSharedKeyCredential(account, masterKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create blob shared key credential")
	}

	serviceURL := "https://" + account + ".blob.core.windows.net/"
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create blob client")
	}

	return &BlobBackend{client: client, container: containerName, prefix: prefix}, nil
}

func (b *BlobBackend) blobName(key string) string {
	return b.prefix + key
}

func (b *BlobBackend) List(ctx context.Context, prefix string) ([]string, error) {
	p := b.blobName(prefix)
	pager := b.client.NewListBlobsFlatPager(b.container, &azblob.ListBlobsFlatOptions{
		Prefix: &p,
	})

	var keys []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list blobs")
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			keys = append(keys, strings.TrimPrefix(*item.Name, b.prefix))
		}
	}
	return keys, nil
}

func (b *BlobBackend) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := b.client.DownloadStream(ctx, b.container, b.blobName(key), nil)
	if err != nil {
		if isBlobNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to fetch %s", key)
	}
	return resp.Body, nil
}

func (b *BlobBackend) Upload(ctx context.Context, key string, contents io.Reader, length int64) error {
	buf := make([]byte, length)
	if _, err := io.ReadFull(contents, buf); err != nil {
		return errors.Wrapf(err, "failed to buffer %s for upload", key)
	}

	contentType := "application/x-tar"
	_, err := b.client.UploadBuffer(ctx, b.container, b.blobName(key), buf, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload %s", key)
	}
	return nil
}

func (b *BlobBackend) Updated(ctx context.Context, key string) (time.Time, error) {
	props, err := b.client.ServiceClient().NewContainerClient(b.container).
		NewBlobClient(b.blobName(key)).GetProperties(ctx, nil)
	if err != nil {
		if isBlobNotFound(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, errors.Wrapf(err, "failed to stat %s", key)
	}
	if props.LastModified == nil {
		return time.Time{}, errors.Errorf("blob %s missing last-modified", key)
	}
	return *props.LastModified, nil
}

func isBlobNotFound(err error) bool {
	return strings.Contains(err.Error(), "BlobNotFound")
}

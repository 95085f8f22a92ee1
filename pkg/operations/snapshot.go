/*
Copyright © 2024-2025 Macaroni OS Linux
See AUTHORS and LICENSE for the license details and contributors.
*/
package operations

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/packer"
)

// packAndUpload tars+zstd-compresses dir and uploads it to key,
// returning the compressed size for stats (§3: snapshots are
// immutable once written; Upload replaces by new-bytes-then-overwrite
// rather than editing whatever was there before).
func packAndUpload(ctx context.Context, oc *Context, dir, key string) (int64, error) {
	var buf bytes.Buffer
	if err := packer.Pack(dir, &buf); err != nil {
		return 0, errors.Wrapf(err, "failed to pack %s", dir)
	}

	n := int64(buf.Len())
	if err := oc.Backend.Upload(ctx, key, bytes.NewReader(buf.Bytes()), n); err != nil {
		return 0, errors.Wrapf(err, "failed to upload %s", key)
	}
	return n, nil
}

// fetchAndUnpack downloads key and unpacks the zstd-tar snapshot into
// destDir, returning the number of bytes read off the wire.
func fetchAndUnpack(ctx context.Context, oc *Context, key, destDir string) (int64, error) {
	rc, err := oc.Backend.Fetch(ctx, key)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to fetch %s", key)
	}
	defer rc.Close()

	cr := &countingReader{r: rc}
	if err := packer.Unpack(cr, destDir); err != nil {
		return cr.n, errors.Wrapf(err, "failed to unpack %s", key)
	}
	return cr.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

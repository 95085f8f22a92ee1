package backend_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/backend"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBackend(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "backend suite")
}

var _ = Describe("FSBackend", func() {
	var (
		root string
		b    *backend.FSBackend
		ctx  = context.Background()
	)

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "cargo-fetcher-backend-*")
		Expect(err).NotTo(HaveOccurred())
		b, err = backend.NewFSBackend(root)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(root)
	})

	It("round-trips an upload through fetch", func() {
		err := b.Upload(ctx, "crates/foo-1.0.0.crate", bytes.NewReader([]byte("hello")), 5)
		Expect(err).NotTo(HaveOccurred())

		rc, err := b.Fetch(ctx, "crates/foo-1.0.0.crate")
		Expect(err).NotTo(HaveOccurred())
		defer rc.Close()

		data, err := io.ReadAll(rc)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("hello"))
	})

	It("returns ErrNotFound for a missing key", func() {
		_, err := b.Fetch(ctx, "nope")
		Expect(err).To(MatchError(backend.ErrNotFound))
	})

	It("lists keys under a prefix", func() {
		Expect(b.Upload(ctx, "crates/a-1.0.0.crate", bytes.NewReader([]byte("a")), 1)).To(Succeed())
		Expect(b.Upload(ctx, "crates/b-1.0.0.crate", bytes.NewReader([]byte("b")), 1)).To(Succeed())
		Expect(b.Upload(ctx, "other/c.bin", bytes.NewReader([]byte("c")), 1)).To(Succeed())

		keys, err := b.List(ctx, "crates")
		Expect(err).NotTo(HaveOccurred())
		Expect(keys).To(ConsistOf("crates/a-1.0.0.crate", "crates/b-1.0.0.crate"))
	})

	It("never leaves a partially-written file visible at the target path", func() {
		err := b.Upload(ctx, "x", bytes.NewReader([]byte("data")), 4)
		Expect(err).NotTo(HaveOccurred())

		entries, err := os.ReadDir(filepath.Join(root))
		Expect(err).NotTo(HaveOccurred())
		for _, e := range entries {
			Expect(e.Name()).NotTo(HavePrefix(".upload-"))
		}
	})
})

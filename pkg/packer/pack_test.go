package packer_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/packer"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPacker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "packer suite")
}

var _ = Describe("Pack and Unpack", func() {
	It("round-trips a directory through a zstd tar snapshot", func() {
		src, err := os.MkdirTemp("", "cargo-fetcher-pack-src-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(src)

		Expect(os.WriteFile(filepath.Join(src, "config.json"), []byte(`{"dl":"x"}`), 0644)).To(Succeed())

		var buf bytes.Buffer
		Expect(packer.Pack(src, &buf)).To(Succeed())
		Expect(buf.Len()).NotTo(BeZero())

		dest, err := os.MkdirTemp("", "cargo-fetcher-pack-dest-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dest)

		Expect(packer.Unpack(&buf, dest)).To(Succeed())
	})
})

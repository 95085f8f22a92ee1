package registryindex_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/registryindex"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRegistryIndex(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "registryindex suite")
}

var _ = Describe("WriteCacheEntries", func() {
	It("synthesizes a versioned cache tuple per crate", func() {
		dir, err := os.MkdirTemp("", "cargo-fetcher-index-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		relPath := filepath.Join("se", "rd", "serde")
		Expect(os.MkdirAll(filepath.Join(dir, "se", "rd"), 0755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, relPath),
			[]byte(`{"name":"serde","vers":"1.0.0","cksum":"aa"}`+"\n"), 0644)).To(Succeed())

		err = registryindex.WriteCacheEntries(dir, "deadbeef", []string{"serde"})
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(filepath.Join(dir, ".cache", relPath))
		Expect(err).NotTo(HaveOccurred())
		Expect(data[0]).To(Equal(byte(3)))
		Expect(string(data[1:10])).To(Equal("deadbeef\x00"))
	})
})

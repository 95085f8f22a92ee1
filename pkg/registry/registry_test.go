package registry_test

import (
	"testing"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/registry"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRegistry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "registry suite")
}

var _ = Describe("CratePrefix", func() {
	It("shards 1-character names under 1", func() {
		Expect(registry.CratePrefix("a")).To(Equal("1"))
	})
	It("shards 2-character names under 2", func() {
		Expect(registry.CratePrefix("ab")).To(Equal("2"))
	})
	It("shards 3-character names under 3/<first>", func() {
		Expect(registry.CratePrefix("abc")).To(Equal("3/a"))
	})
	It("shards 4+-character names by first-two/next-two", func() {
		Expect(registry.CratePrefix("serde")).To(Equal("se/rd"))
		Expect(registry.CratePrefix("tokio")).To(Equal("to/ki"))
	})
	It("shards by rune, not byte, for multi-byte names", func() {
		Expect(registry.CratePrefix("äBcDe")).To(Equal("äB/cD"))
	})
})

var _ = Describe("Canonicalize", func() {
	It("strips a trailing .git suffix for github.com", func() {
		a, err := registry.Canonicalize("https://github.com/foo/bar.git")
		Expect(err).NotTo(HaveOccurred())
		b, err := registry.Canonicalize("https://github.com/foo/bar")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	It("does not fold the .git suffix for non-github hosts", func() {
		withGit, err := registry.Canonicalize("https://gitlab.com/foo/bar.git")
		Expect(err).NotTo(HaveOccurred())
		withoutGit, err := registry.Canonicalize("https://gitlab.com/foo/bar")
		Expect(err).NotTo(HaveOccurred())
		Expect(withGit).NotTo(Equal(withoutGit))
	})

	It("lowercases the host and forces https", func() {
		out, err := registry.Canonicalize("http://GitHub.com/foo/bar")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("https://github.com/foo/bar"))
	})
})

var _ = Describe("Ident", func() {
	It("is the same for a github URL with and without .git", func() {
		a, _ := registry.Canonicalize("https://github.com/foo/bar.git")
		b, _ := registry.Canonicalize("https://github.com/foo/bar")
		Expect(registry.Ident(a)).To(Equal(registry.Ident(b)))
	})
})

var _ = Describe("ShortName", func() {
	It("matches the known crates.io-index identity", func() {
		r := registry.CratesIO(registry.ProtocolGit)
		Expect(r.ShortName()).To(Equal("github.com-1ecc6299db9ec823"))
	})
})

var _ = Describe("DownloadURL", func() {
	It("builds the default crates.io-shaped path when the template has no placeholders", func() {
		r := &registry.Registry{Dl: "https://crates.io/api/v1/crates"}
		Expect(r.DownloadURL("serde", "1.0.0", "deadbeef")).To(
			Equal("https://crates.io/api/v1/crates/serde/1.0.0/download"))
	})

	It("substitutes placeholders in a custom template", func() {
		r := &registry.Registry{Dl: "https://example.com/{prefix}/{crate}/{crate}-{version}.crate"}
		Expect(r.DownloadURL("serde", "1.0.0", "")).To(
			Equal("https://example.com/se/rd/serde/serde-1.0.0.crate"))
	})
})

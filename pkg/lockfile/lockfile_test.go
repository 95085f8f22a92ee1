package lockfile_test

import (
	"testing"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/lockfile"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLockfile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "lockfile suite")
}

const v1Lock = `
[[package]]
name = "serde"
version = "1.0.0"
source = "registry+https://github.com/rust-lang/crates.io-index"

[metadata]
"checksum serde 1.0.0 (registry+https://github.com/rust-lang/crates.io-index)" = "aabbccdd"
`

const v2Lock = `
[[package]]
name = "serde"
version = "1.0.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "aabbccdd"
`

const gitLock = `
[[package]]
name = "rust-build-helper"
version = "0.1.0"
source = "git+https://github.com/EmbarkStudios/rust-build-helper?rev=9135717#91357179ba2ce6ec7e430a2323baab80a8f7d9b3"
`

const pathLock = `
[[package]]
name = "workspace-member"
version = "0.1.0"
`

var _ = Describe("Parse", func() {
	It("resolves a v1 lockfile with a [metadata] checksum map", func() {
		res, err := lockfile.Parse([]byte(v1Lock))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Crates).To(HaveLen(1))
		Expect(res.Crates[0].Name).To(Equal("serde"))
		Expect(res.Crates[0].Source.Checksum).To(Equal("aabbccdd"))
	})

	It("resolves a v2 lockfile with an inline checksum", func() {
		res, err := lockfile.Parse([]byte(v2Lock))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Crates).To(HaveLen(1))
		Expect(res.Crates[0].Source.Checksum).To(Equal("aabbccdd"))
	})

	It("resolves a git source with a rev fragment", func() {
		res, err := lockfile.Parse([]byte(gitLock))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Gits).To(HaveLen(1))
		Expect(res.Gits[0].Source.Revision).To(Equal("91357179ba2ce6ec7e430a2323baab80a8f7d9b3"))
	})

	It("keeps the query specifier as the git source's Reference", func() {
		res, err := lockfile.Parse([]byte(gitLock))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Gits).To(HaveLen(1))
		Expect(res.Gits[0].Source.Reference).To(Equal("rev=9135717"))
	})

	It("silently skips path-sourced packages", func() {
		res, err := lockfile.Parse([]byte(pathLock))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Crates).To(BeEmpty())
		Expect(res.Gits).To(BeEmpty())
	})

	It("collapses duplicate (source-kind, key) pairs", func() {
		doubled := v2Lock + `
[[package]]
name = "serde"
version = "1.0.0"
source = "registry+https://github.com/rust-lang/crates.io-index"
checksum = "aabbccdd"
`
		res, err := lockfile.Parse([]byte(doubled))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Crates).To(HaveLen(1))
	})
})

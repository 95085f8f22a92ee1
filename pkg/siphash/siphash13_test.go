package siphash_test

import (
	"testing"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/siphash"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSiphash(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "siphash suite")
}

var _ = Describe("ShortHash", func() {
	It("is deterministic for the same input", func() {
		a := siphash.ShortHash([]byte("https://github.com/rust-lang/crates.io-index"))
		b := siphash.ShortHash([]byte("https://github.com/rust-lang/crates.io-index"))
		Expect(a).To(Equal(b))
	})

	It("produces 16 lowercase hex characters", func() {
		h := siphash.ShortHash([]byte("some input"))
		Expect(h).To(HaveLen(16))
		Expect(h).To(MatchRegexp(`^[0-9a-f]{16}$`))
	})

	It("differs for different inputs", func() {
		a := siphash.ShortHash([]byte("input-one"))
		b := siphash.ShortHash([]byte("input-two"))
		Expect(a).NotTo(Equal(b))
	})

	It("matches a known git-dependency repo-ident vector", func() {
		// SipHash-2-4(0,0) of "https://github.com/gfx-rs/genmesh" with
		// the str Hash terminator, no leading discriminator.
		h := siphash.ShortHash([]byte("https://github.com/gfx-rs/genmesh"))
		Expect(h).To(Equal("401fe503e87439cc"))
	})
})

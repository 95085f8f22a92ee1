package operations_test

import (
	"testing"
	"time"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/operations"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOperations(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "operations suite")
}

var _ = Describe("ParseMaxStale", func() {
	It("treats a bare number as days", func() {
		d, err := operations.ParseMaxStale("2")
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(48 * time.Hour))
	})

	It("parses s/m/h/d suffixes", func() {
		cases := map[string]time.Duration{
			"30s": 30 * time.Second,
			"5m":  5 * time.Minute,
			"1h":  time.Hour,
			"3d":  72 * time.Hour,
		}
		for in, want := range cases {
			d, err := operations.ParseMaxStale(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(Equal(want))
		}
	})

	It("rejects garbage", func() {
		_, err := operations.ParseMaxStale("abc")
		Expect(err).To(HaveOccurred())
	})
})

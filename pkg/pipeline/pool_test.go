package pipeline_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/EmbarkStudios/cargo-fetcher/pkg/pipeline"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "pipeline suite")
}

var _ = Describe("Pool", func() {
	It("runs every job even when some fail, gathering both outcomes", func() {
		p := pipeline.New(4)

		for i := 0; i < 10; i++ {
			i := i
			p.Go(fmt.Sprintf("job-%d", i), func() (int64, error) {
				if i%3 == 0 {
					return 0, fmt.Errorf("boom %d", i)
				}
				return int64(i), nil
			})
		}
		p.Wait()

		stats := p.Stats()
		Expect(stats.Succeeded + stats.Failed).To(Equal(10))
		Expect(stats.Failed).To(Equal(4)) // 0, 3, 6, 9

		errs := p.Errors()
		Expect(errs).To(HaveLen(4))
	})

	It("never runs more than Concurrency jobs at once", func() {
		p := pipeline.New(2)

		var mu sync.Mutex
		current, maxSeen := 0, 0
		release := make(chan struct{})

		// Go blocks once two jobs are running, so release must be
		// closed from outside the scheduling loop.
		go func() {
			time.Sleep(50 * time.Millisecond)
			close(release)
		}()

		for i := 0; i < 6; i++ {
			p.Go("x", func() (int64, error) {
				mu.Lock()
				current++
				if current > maxSeen {
					maxSeen = current
				}
				mu.Unlock()

				<-release

				mu.Lock()
				current--
				mu.Unlock()
				return 0, nil
			})
		}

		p.Wait()

		Expect(maxSeen).To(BeNumerically("<=", 2))
	})
})

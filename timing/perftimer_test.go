package timing

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PerfTimer", func() {
	var (
		clock time.Time
		timer *PerfTimer
	)

	advance := func(d time.Duration) {
		clock = clock.Add(d)
	}

	BeforeEach(func() {
		clock = time.Unix(100, 0)
		timer = NewPerfTimer()
		timer.now = func() time.Time { return clock }
	})

	It("should start paused", func() {
		advance(time.Second)
		Expect(timer.IsRunning()).To(BeFalse())
		Expect(timer.Lapsed()).To(BeZero())
	})

	It("should accumulate only while running", func() {
		timer.Resume()
		advance(2 * time.Second)
		timer.Pause()
		advance(5 * time.Second)
		timer.Resume()
		advance(time.Second)

		Expect(timer.Lapsed()).To(Equal(3 * time.Second))
		Expect(timer.Stop()).To(Equal(3 * time.Second))
		Expect(timer.IsRunning()).To(BeFalse())
	})

	It("should ignore repeated pause and resume", func() {
		timer.Resume()
		advance(time.Second)
		timer.Resume()
		advance(time.Second)
		timer.Pause()
		timer.Pause()

		Expect(timer.Lapsed()).To(Equal(2 * time.Second))
	})

	It("should reset", func() {
		timer.Resume()
		advance(time.Second)

		timer.Reset(true)
		Expect(timer.Lapsed()).To(BeZero())
		Expect(timer.IsRunning()).To(BeFalse())

		timer.Reset(false)
		advance(time.Second)
		Expect(timer.Lapsed()).To(Equal(time.Second))
	})
})

package event

import (
	"math/rand"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/internal/poison"
	"github.com/sarchlab/netsim/timing"
)

var _ = Describe("Scheduler", func() {
	var s *Scheduler

	at := func(ms uint64) timing.EmulatedTime {
		return timing.SimulationStart.Add(timing.FromMillis(ms))
	}

	mustPush := func(e *Event) {
		ok, err := s.Push(e)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	}

	BeforeEach(func() {
		s = NewScheduler(4)
	})

	It("should refuse events before start and after stop", func() {
		ok, err := s.Push(New(StartProcess{}, 0, 0, at(1)))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(s.Start()).To(Succeed())
		mustPush(New(StartProcess{}, 0, 0, at(1)))

		Expect(s.Stop()).To(Succeed())
		ok, err = s.Push(New(StartProcess{}, 0, 0, at(2)))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		e, err := s.Pop()
		Expect(err).NotTo(HaveOccurred())
		Expect(e).NotTo(BeNil())
		Expect(e.Time()).To(Equal(at(1)))

		e, err = s.Pop()
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeNil())
	})

	It("should reject unknown hosts", func() {
		Expect(s.Start()).To(Succeed())

		_, err := s.Push(New(StartProcess{}, 0, 7, at(1)))
		Expect(err).To(MatchError(ErrUnknownHost))
	})

	It("should pop events in total order", func() {
		Expect(s.Start()).To(Succeed())

		rng := rand.New(rand.NewSource(3))
		for i := 0; i < 500; i++ {
			mustPush(New(StartProcess{},
				host.ID(rng.Intn(4)), host.ID(rng.Intn(4)),
				at(uint64(rng.Intn(20)))))
		}

		n, err := s.Len()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(500))

		var prev *Event
		for {
			e, err := s.Pop()
			Expect(err).NotTo(HaveOccurred())
			if e == nil {
				break
			}

			if prev != nil {
				Expect(prev.Less(e)).To(BeTrue())
			}
			prev = e
		}
	})

	It("should keep acceptance order among identical keys", func() {
		Expect(s.Start()).To(Succeed())

		first := New(StartProcess{Process: 1}, 2, 3, at(1))
		second := New(StartProcess{Process: 2}, 2, 3, at(1))
		mustPush(first)
		mustPush(second)

		e, _ := s.Pop()
		Expect(e).To(BeIdenticalTo(first))
		e, _ = s.Pop()
		Expect(e).To(BeIdenticalTo(second))
	})

	It("should pop only the given hosts before a bound", func() {
		Expect(s.Start()).To(Succeed())
		mustPush(New(StartProcess{}, 0, 0, at(5)))
		mustPush(New(StartProcess{}, 0, 1, at(3)))
		mustPush(New(StartProcess{}, 0, 2, at(1)))
		mustPush(New(StartProcess{}, 0, 1, at(12)))

		mine := []host.ID{0, 1}

		e, err := s.PopNext(mine, at(10))
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Dst()).To(Equal(host.ID(1)))

		e, _ = s.PopNext(mine, at(10))
		Expect(e.Dst()).To(Equal(host.ID(0)))

		e, _ = s.PopNext(mine, at(10))
		Expect(e).To(BeNil())

		next, ok, err := s.NextTime()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(next).To(Equal(at(1)))
	})

	It("should report no next time when empty", func() {
		_, ok, err := s.NextTime()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("should accept concurrent pushes", func() {
		Expect(s.Start()).To(Succeed())

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(dst host.ID) {
				defer GinkgoRecover()
				defer wg.Done()

				for i := 0; i < 250; i++ {
					ok, err := s.Push(New(StartProcess{}, dst, dst, at(uint64(i))))
					Expect(err).NotTo(HaveOccurred())
					Expect(ok).To(BeTrue())
				}
			}(host.ID(w))
		}
		wg.Wait()

		n, err := s.Len()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1000))
	})

	It("should fail once the lock is poisoned", func() {
		Expect(s.Start()).To(Succeed())

		Expect(func() {
			_ = s.lock.Do(func() { panic("corrupted") })
		}).To(Panic())

		_, err := s.Push(New(StartProcess{}, 0, 0, at(1)))
		Expect(err).To(MatchError(poison.ErrLockUnavailable))

		_, err = s.Pop()
		Expect(err).To(MatchError(poison.ErrLockUnavailable))

		_, _, err = s.NextTime()
		Expect(err).To(MatchError(poison.ErrLockUnavailable))
	})
})

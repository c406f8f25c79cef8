package event

import (
	"errors"
	"fmt"

	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/internal/poison"
	"github.com/sarchlab/netsim/timing"
)

// ErrUnknownHost is returned when an event targets a host the scheduler does
// not know.
var ErrUnknownHost = errors.New("unknown destination host")

// A Scheduler stores the pending events, one queue per destination host. It
// only accepts events while running. All methods are safe for concurrent
// use; they fail with poison.ErrLockUnavailable once a holder of the
// internal lock panicked.
type Scheduler struct {
	lock    poison.Mutex
	running bool
	queues  []eventHeap
	seq     uint64
	pending int
}

// NewScheduler creates a stopped scheduler for hosts 0..numHosts-1.
func NewScheduler(numHosts int) *Scheduler {
	return &Scheduler{
		queues: make([]eventHeap, numHosts),
	}
}

// Start lets the scheduler accept events.
func (s *Scheduler) Start() error {
	return s.lock.Do(func() { s.running = true })
}

// Stop makes the scheduler refuse new events. Queued events are kept.
func (s *Scheduler) Stop() error {
	return s.lock.Do(func() { s.running = false })
}

// IsRunning tells if the scheduler accepts events.
func (s *Scheduler) IsRunning() (bool, error) {
	var running bool
	err := s.lock.Do(func() { running = s.running })

	return running, err
}

// Push adds an event. It returns false without queuing the event if the
// scheduler is not running.
func (s *Scheduler) Push(e *Event) (bool, error) {
	if int(e.dst) >= len(s.queues) {
		return false, fmt.Errorf("push %v: %w", e, ErrUnknownHost)
	}

	accepted := false
	err := s.lock.Do(func() {
		if !s.running {
			return
		}

		s.seq++
		e.seq = s.seq
		s.queues[e.dst].push(e)
		s.pending++
		accepted = true
	})

	return accepted, err
}

// Pop removes and returns the first event in total order, or nil if no
// event is pending.
func (s *Scheduler) Pop() (*Event, error) {
	var evt *Event
	err := s.lock.Do(func() {
		best := -1
		for i := range s.queues {
			head := s.queues[i].peek()
			if head == nil {
				continue
			}

			if best < 0 || head.Less(s.queues[best].peek()) {
				best = i
			}
		}

		if best >= 0 {
			evt = s.take(best)
		}
	})

	return evt, err
}

// PopNext removes and returns the first event, in total order, destined to
// one of hosts and due strictly before the given time. It returns nil if
// there is no such event.
func (s *Scheduler) PopNext(
	hosts []host.ID,
	before timing.EmulatedTime,
) (*Event, error) {
	var evt *Event
	err := s.lock.Do(func() {
		best := -1
		for _, id := range hosts {
			if int(id) >= len(s.queues) {
				continue
			}

			head := s.queues[id].peek()
			if head == nil || head.time >= before {
				continue
			}

			if best < 0 || head.Less(s.queues[best].peek()) {
				best = int(id)
			}
		}

		if best >= 0 {
			evt = s.take(best)
		}
	})

	return evt, err
}

func (s *Scheduler) take(queue int) *Event {
	s.pending--
	return s.queues[queue].pop()
}

// NextTime returns the delivery time of the first pending event.
func (s *Scheduler) NextTime() (timing.EmulatedTime, bool, error) {
	var (
		next  timing.EmulatedTime
		found bool
	)

	err := s.lock.Do(func() {
		for i := range s.queues {
			head := s.queues[i].peek()
			if head == nil {
				continue
			}

			if !found || head.time < next {
				next = head.time
				found = true
			}
		}
	})

	return next, found, err
}

// Len returns the number of pending events.
func (s *Scheduler) Len() (int, error) {
	var n int
	err := s.lock.Do(func() { n = s.pending })

	return n, err
}

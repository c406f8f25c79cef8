// Package event defines the schedulable unit of the simulator and the store
// that orders pending events.
package event

import (
	"fmt"

	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/timing"
)

// An Event delivers a task to a host at a point in time. Events are ordered
// by time, then destination, then source and finally by the order in which
// the scheduler accepted them.
type Event struct {
	src, dst host.ID
	task     Task
	time     timing.EmulatedTime
	seq      uint64
}

// New creates an event sent by src to run task on dst at time t.
func New(task Task, src, dst host.ID, t timing.EmulatedTime) *Event {
	return &Event{
		src:  src,
		dst:  dst,
		task: task,
		time: t,
	}
}

// Src returns the host that created the event.
func (e *Event) Src() host.ID {
	return e.src
}

// Dst returns the host the event runs on.
func (e *Event) Dst() host.ID {
	return e.dst
}

// Task returns the work the event performs.
func (e *Event) Task() Task {
	return e.task
}

// Time returns the delivery time.
func (e *Event) Time() timing.EmulatedTime {
	return e.time
}

// Seq returns the acceptance order assigned by the scheduler.
func (e *Event) Seq() uint64 {
	return e.seq
}

// KindName returns the name of the task kind.
func (e *Event) KindName() string {
	if cb, ok := e.task.(Callback); ok {
		return cb.CallbackKind.String()
	}

	return e.task.Kind().String()
}

// Less tells if e is ordered before o.
func (e *Event) Less(o *Event) bool {
	switch {
	case e.time != o.time:
		return e.time < o.time
	case e.dst != o.dst:
		return e.dst < o.dst
	case e.src != o.src:
		return e.src < o.src
	default:
		return e.seq < o.seq
	}
}

func (e *Event) String() string {
	return fmt.Sprintf("%s %d->%d @%v #%d",
		e.KindName(), e.src, e.dst, e.time, e.seq)
}

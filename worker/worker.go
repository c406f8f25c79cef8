// Package worker executes events on a pool of OS threads. Workers advance in
// rounds: within a round each worker runs the events of its own hosts that
// are due before the round end, and no worker starts the next round before
// every worker has finished the current one.
//
// Code running inside a task reaches its worker through the context.Context
// it was handed, using the accessor functions of this package.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/netif"
	"github.com/sarchlab/netsim/timing"
)

var (
	// ErrNoWorker is returned by accessors called outside of a worker.
	ErrNoWorker = errors.New("not running on a worker")

	// ErrNotExecuting is returned by accessors that need an event being
	// executed.
	ErrNotExecuting = errors.New("worker is not executing an event")

	// ErrTaskPanicked is the fatal error recorded when a task panics.
	ErrTaskPanicked = errors.New("task panicked")
)

type workerKey struct{}

type clock struct {
	now     timing.EmulatedTime
	hasNow  bool
	last    timing.EmulatedTime
	hasLast bool
	barrier timing.EmulatedTime
}

type assignment struct {
	end       timing.EmulatedTime
	processor int
}

// A Worker executes the events of a fixed set of hosts. Its state is only
// touched by its own goroutine.
type Worker struct {
	id    int
	pool  *Pool
	hosts []host.ID
	ctx   context.Context
	log   logrus.FieldLogger

	clock         clock
	activeHost    *host.Host
	activeProcess *host.ProcessID
	activeThread  *host.ThreadID

	wake     chan assignment
	executed uint64
	taskErr  error
	sink     *packetSink
}

func newWorker(ctx context.Context, id int, pool *Pool) *Worker {
	w := &Worker{
		id:   id,
		pool: pool,
		log:  pool.logger.WithField("worker", id),
		wake: make(chan assignment, 1),
	}

	w.ctx = context.WithValue(ctx, workerKey{}, w)
	w.sink = &packetSink{w: w}

	return w
}

// ID returns the worker id.
func (w *Worker) ID() int {
	return w.id
}

// Hosts returns the ids of the hosts the worker executes events for.
func (w *Worker) Hosts() []host.ID {
	return w.hosts
}

// Context returns the context that identifies the worker.
func (w *Worker) Context() context.Context {
	return w.ctx
}

// FromContext returns the worker bound to ctx.
func FromContext(ctx context.Context) (*Worker, error) {
	if ctx == nil {
		return nil, ErrNoWorker
	}

	w, ok := ctx.Value(workerKey{}).(*Worker)
	if !ok || w == nil {
		return nil, ErrNoWorker
	}

	return w, nil
}

// ID returns the id of the worker bound to ctx.
func ID(ctx context.Context) (int, error) {
	w, err := FromContext(ctx)
	if err != nil {
		return 0, err
	}

	return w.id, nil
}

// CurrentTime returns the time of the event the worker is executing.
func CurrentTime(ctx context.Context) (timing.EmulatedTime, bool) {
	w, err := FromContext(ctx)
	if err != nil || !w.clock.hasNow {
		return 0, false
	}

	return w.clock.now, true
}

// LastEventTime returns the time of the last event the worker finished.
func LastEventTime(ctx context.Context) (timing.EmulatedTime, bool) {
	w, err := FromContext(ctx)
	if err != nil || !w.clock.hasLast {
		return 0, false
	}

	return w.clock.last, true
}

// RoundEndTime returns the end of the round the worker is running.
func RoundEndTime(ctx context.Context) (timing.EmulatedTime, error) {
	w, err := FromContext(ctx)
	if err != nil {
		return 0, err
	}

	return w.clock.barrier, nil
}

// IsBootstrapActive tells if the current time is still within the bootstrap
// window.
func IsBootstrapActive(ctx context.Context) (bool, error) {
	w, err := FromContext(ctx)
	if err != nil {
		return false, err
	}

	if !w.clock.hasNow {
		return false, ErrNotExecuting
	}

	return w.clock.now < w.pool.bootstrapEnd, nil
}

// WithActiveHost calls f with the host the worker is executing an event for.
func WithActiveHost[T any](ctx context.Context, f func(h *host.Host) T) (T, error) {
	var zero T

	w, err := FromContext(ctx)
	if err != nil {
		return zero, err
	}

	if w.activeHost == nil {
		return zero, ErrNotExecuting
	}

	return f(w.activeHost), nil
}

// ActiveProcess returns the process the current task runs for, if any.
func ActiveProcess(ctx context.Context) (host.ProcessID, bool) {
	w, err := FromContext(ctx)
	if err != nil || w.activeProcess == nil {
		return 0, false
	}

	return *w.activeProcess, true
}

// ActiveThread returns the thread the current task runs for, if any.
func ActiveThread(ctx context.Context) (host.ThreadID, bool) {
	w, err := FromContext(ctx)
	if err != nil || w.activeThread == nil {
		return 0, false
	}

	return *w.activeThread, true
}

// ScheduleTask enqueues task to run on host dst after delay. It returns
// false if the caller is not executing an event on a worker or the
// scheduler is not running.
//
// An event for another host that would fall inside the current round is
// postponed to the round end, since that host may be executing on another
// worker right now.
func ScheduleTask(
	ctx context.Context,
	task event.Task,
	dst host.ID,
	delay timing.SimulationTime,
) bool {
	w, err := FromContext(ctx)
	if err != nil || !w.clock.hasNow || w.activeHost == nil {
		return false
	}

	return w.schedule(task, dst, delay)
}

func (w *Worker) schedule(
	task event.Task,
	dst host.ID,
	delay timing.SimulationTime,
) bool {
	src := w.activeHost.ID()
	at := w.clock.now.Add(delay)

	if dst != src && at < w.clock.barrier {
		at = w.clock.barrier
	}

	ok, err := w.pool.scheduler.Push(event.New(task, src, dst, at))
	if err != nil {
		w.pool.setFatal(fmt.Errorf("worker %d: schedule: %w", w.id, err))
		return false
	}

	if !ok {
		w.pool.metrics.RecordPushRefused()
	}

	return ok
}

// SendPacket sends a packet from the active host. The packet leaves through
// the interface matching its destination once the send bucket allows it.
func SendPacket(ctx context.Context, pkt netif.Packet) error {
	w, err := FromContext(ctx)
	if err != nil {
		return err
	}

	if w.activeHost == nil || !w.clock.hasNow {
		return ErrNotExecuting
	}

	iface := w.activeHost.OutboundInterface(pkt.Destination)
	iface.Send(pkt, w.sink)
	w.scheduleRefillIfNeeded(iface)

	return nil
}

func (w *Worker) scheduleRefillIfNeeded(iface *netif.Interface) {
	if !iface.IsRefillNeeded() {
		return
	}

	delay := iface.NextRefillDelay(w.clock.now)
	if w.schedule(event.RefillBuckets{Interface: iface.Addr()}, w.activeHost.ID(), delay) {
		iface.SetRefillPending()
	}
}

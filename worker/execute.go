package worker

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/netif"
)

func (w *Worker) execute(evt *event.Event) {
	h, ok := w.pool.hosts.Get(evt.Dst())
	if !ok {
		w.pool.setFatal(fmt.Errorf("event %v: no host %d", evt, evt.Dst()))
		return
	}

	w.clock.now = evt.Time()
	w.clock.hasNow = true
	w.activeHost = h
	w.taskErr = nil

	hookCtx := hooking.HookCtx{
		Domain: w.pool,
		Pos:    hooking.HookPosBeforeEvent,
		Item:   evt,
		Detail: w.id,
	}
	w.pool.InvokeHook(hookCtx)

	err := w.dispatchSafely(h, evt)
	if err == nil {
		err = w.taskErr
	}

	if err != nil {
		w.pool.setFatal(fmt.Errorf("worker %d: %v on %s: %w", w.id, evt, h.Name(), err))
	}

	hookCtx.Pos = hooking.HookPosAfterEvent
	w.pool.InvokeHook(hookCtx)

	w.pool.metrics.RecordEventExecuted(evt.KindName())
	w.executed++

	w.clock.last = w.clock.now
	w.clock.hasLast = true
	w.clock.hasNow = false
	w.activeHost = nil
	w.activeProcess = nil
	w.activeThread = nil
}

func (w *Worker) dispatchSafely(h *host.Host, evt *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()

	return w.dispatch(h, evt)
}

func (w *Worker) dispatch(h *host.Host, evt *event.Event) error {
	switch task := evt.Task().(type) {
	case event.RefillBuckets:
		return w.refillBuckets(h, task)
	case event.StartProcess:
		return w.withProcess(h, task.Process, func(p *host.Process) error {
			return w.pool.runtime.StartProcess(w.ctx, h, p)
		})
	case event.StopProcess:
		return w.withProcess(h, task.Process, func(p *host.Process) error {
			return w.pool.runtime.StopProcess(w.ctx, h, p)
		})
	case event.StartThread:
		return w.withProcess(h, task.Process, func(p *host.Process) error {
			t := p.NewThread()
			w.activeThread = &t

			return w.pool.runtime.StartThread(w.ctx, h, p, t)
		})
	case event.ReceivePacket:
		return w.receivePacket(h, task)
	case event.Callback:
		if task.Process != nil {
			return w.withProcess(h, *task.Process, func(*host.Process) error {
				return task.Callback.Execute(w.ctx, h)
			})
		}

		return task.Callback.Execute(w.ctx, h)
	default:
		return fmt.Errorf("unknown task %T", task)
	}
}

func (w *Worker) withProcess(
	h *host.Host,
	id host.ProcessID,
	f func(p *host.Process) error,
) error {
	p, ok := h.Process(id)
	if !ok {
		return fmt.Errorf("host %s has no process %d", h.Name(), id)
	}

	w.activeProcess = &id

	return f(p)
}

func (w *Worker) refillBuckets(h *host.Host, task event.RefillBuckets) error {
	iface, ok := h.InterfaceFor(task.Interface)
	if !ok {
		return fmt.Errorf("host %s has no interface %v", h.Name(), task.Interface)
	}

	iface.RefillBuckets(w.sink)
	w.scheduleRefillIfNeeded(iface)

	return nil
}

func (w *Worker) receivePacket(h *host.Host, task event.ReceivePacket) error {
	iface, ok := h.InterfaceFor(task.Packet.Destination)
	if !ok {
		w.sink.Drop(nil, task.Packet, "no interface")
		return nil
	}

	iface.Receive(task.Packet, w.sink)
	w.scheduleRefillIfNeeded(iface)

	return nil
}

// packetSink connects the interfaces of the active host to the network and
// to the host runtime.
type packetSink struct {
	w *Worker
}

func (s *packetSink) Transmit(iface *netif.Interface, pkt netif.Packet) {
	w := s.w
	src := w.activeHost

	w.pool.InvokeHook(hooking.HookCtx{
		Domain: w.pool,
		Pos:    hooking.HookPosPacketSent,
		Item:   pkt,
		Detail: w.clock.now,
	})

	dst, ok := w.pool.hosts.ByIP(pkt.Destination)
	if !ok {
		s.Drop(iface, pkt, "unknown destination")
		return
	}

	path, err := w.pool.network.Route(src.Node(), dst.Node(), w.pool.useShortestPath)
	if err != nil {
		w.log.WithError(err).WithField("packet", pkt.ID).Debug("no route")
		s.Drop(iface, pkt, "no route")

		return
	}

	if path.Drops(src.Random().Float64()) {
		s.Drop(iface, pkt, "loss")
		return
	}

	latency := path.SampleLatency(src.Random().Float64())
	w.schedule(event.ReceivePacket{Packet: pkt}, dst.ID(), latency)
}

func (s *packetSink) Deliver(iface *netif.Interface, pkt netif.Packet) {
	w := s.w

	w.pool.InvokeHook(hooking.HookCtx{
		Domain: w.pool,
		Pos:    hooking.HookPosPacketDelivered,
		Item:   pkt,
		Detail: w.clock.now,
	})

	err := w.pool.runtime.ReceivePacket(w.ctx, w.activeHost, iface, pkt)
	if err != nil && w.taskErr == nil {
		w.taskErr = err
	}
}

func (s *packetSink) Drop(_ *netif.Interface, pkt netif.Packet, reason string) {
	w := s.w

	w.pool.metrics.RecordPacketDropped(reason)
	w.log.WithFields(logrus.Fields{
		"host":   w.activeHost.Name(),
		"packet": pkt.ID,
		"reason": reason,
	}).Debug("packet dropped")

	w.pool.InvokeHook(hooking.HookCtx{
		Domain: w.pool,
		Pos:    hooking.HookPosPacketDropped,
		Item:   pkt,
		Detail: reason,
	})
}

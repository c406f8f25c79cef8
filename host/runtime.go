package host

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/netsim/netif"
)

// A Runtime performs the effects of process, thread and packet tasks on a
// host. Each call runs synchronously on the worker that owns the host for
// the current round and receives that worker's context.
type Runtime interface {
	StartProcess(ctx context.Context, h *Host, p *Process) error
	StopProcess(ctx context.Context, h *Host, p *Process) error
	StartThread(ctx context.Context, h *Host, p *Process, t ThreadID) error
	ReceivePacket(ctx context.Context, h *Host, iface *netif.Interface, pkt netif.Packet) error
}

// LoggingRuntime only logs what happens on the hosts.
type LoggingRuntime struct {
	Logger logrus.FieldLogger
}

func (r LoggingRuntime) logger(h *Host) logrus.FieldLogger {
	l := r.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}

	return l.WithField("host", h.Name())
}

// StartProcess marks the process as running.
func (r LoggingRuntime) StartProcess(_ context.Context, h *Host, p *Process) error {
	p.MarkStarted()
	r.logger(h).WithField("process", p.Name()).Debug("process started")

	return nil
}

// StopProcess marks the process as stopped.
func (r LoggingRuntime) StopProcess(_ context.Context, h *Host, p *Process) error {
	p.MarkStopped()
	r.logger(h).WithField("process", p.Name()).Debug("process stopped")

	return nil
}

// StartThread logs the thread start.
func (r LoggingRuntime) StartThread(_ context.Context, h *Host, p *Process, t ThreadID) error {
	r.logger(h).WithFields(logrus.Fields{
		"process": p.Name(),
		"thread":  t,
	}).Debug("thread started")

	return nil
}

// ReceivePacket logs the packet.
func (r LoggingRuntime) ReceivePacket(
	_ context.Context,
	h *Host,
	iface *netif.Interface,
	pkt netif.Packet,
) error {
	r.logger(h).WithFields(logrus.Fields{
		"interface": iface.Name(),
		"packet":    pkt.ID,
		"from":      pkt.Source,
	}).Debug("packet received")

	return nil
}

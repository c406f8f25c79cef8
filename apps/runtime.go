// Package apps provides a host runtime with built-in applications. A process
// picks its application by the base name of its path:
//
//   - ping sends echo requests to a target and records the round-trip times.
//   - echo answers echo requests.
//
// Processes with other paths are only logged.
package apps

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/netsim/dns"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/netif"
	"github.com/sarchlab/netsim/worker"
)

// Application names.
const (
	Ping = "ping"
	Echo = "echo"
)

// hostState is attached to every host the runtime touched. Only the worker
// owning the host accesses it.
type hostState struct {
	pingers map[host.ProcessID]*pinger
	echoes  int
}

// Runtime runs the built-in applications.
type Runtime struct {
	names    *dns.NameServer
	logger   logrus.FieldLogger
	fallback host.LoggingRuntime
}

// NewRuntime creates a runtime resolving host names with names.
func NewRuntime(names *dns.NameServer, logger logrus.FieldLogger) *Runtime {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runtime{
		names:    names,
		logger:   logger.WithField("component", "apps"),
		fallback: host.LoggingRuntime{Logger: logger},
	}
}

func state(h *host.Host) *hostState {
	if s, ok := h.RuntimeState().(*hostState); ok {
		return s
	}

	s := &hostState{pingers: make(map[host.ProcessID]*pinger)}
	h.SetRuntimeState(s)

	return s
}

func application(p *host.Process) string {
	return filepath.Base(p.Config().Path)
}

// StartProcess starts the application of p.
func (r *Runtime) StartProcess(ctx context.Context, h *host.Host, p *host.Process) error {
	switch application(p) {
	case Ping:
		opts, err := parsePingArgs(p.Config().Args)
		if err != nil {
			return fmt.Errorf("%v: %w", p, err)
		}

		dst, err := resolve(r.names, opts.Target)
		if err != nil {
			return fmt.Errorf("%v: %w", p, err)
		}

		pg := &pinger{
			process: p.ID(),
			opts:    opts,
			dst:     dst,
			stats:   PingStats{Host: h.Name(), Target: opts.Target},
		}
		state(h).pingers[p.ID()] = pg
		p.MarkStarted()

		r.logger.WithFields(logrus.Fields{
			"host":   h.Name(),
			"target": opts.Target,
			"count":  opts.Count,
		}).Debug("ping started")

		return pg.sendNext(ctx, h)
	case Echo:
		state(h).echoes++
		p.MarkStarted()

		return nil
	default:
		return r.fallback.StartProcess(ctx, h, p)
	}
}

// StopProcess stops the application of p.
func (r *Runtime) StopProcess(ctx context.Context, h *host.Host, p *host.Process) error {
	if application(p) == Echo && p.IsRunning() {
		state(h).echoes--
	}

	return r.fallback.StopProcess(ctx, h, p)
}

// StartThread is delegated to the logging runtime.
func (r *Runtime) StartThread(
	ctx context.Context,
	h *host.Host,
	p *host.Process,
	t host.ThreadID,
) error {
	return r.fallback.StartThread(ctx, h, p, t)
}

// ReceivePacket answers requests if an echo process runs on the host and
// hands replies to the ping process that sent the request. Packets nobody
// listens for are discarded.
func (r *Runtime) ReceivePacket(
	ctx context.Context,
	h *host.Host,
	iface *netif.Interface,
	pkt netif.Packet,
) error {
	m, err := decodeMessage(pkt.Payload)
	if err != nil {
		r.discard(h, pkt, err.Error())
		return nil
	}

	s := state(h)

	switch m.kind {
	case echoRequest:
		if s.echoes == 0 {
			r.discard(h, pkt, "no echo process")
			return nil
		}

		m.kind = echoReply
		reply := h.NewPacket(pkt.Source, pkt.Size, m.encode())

		return worker.SendPacket(ctx, reply)
	default:
		pg, ok := s.pingers[m.process]
		if !ok {
			r.discard(h, pkt, "no ping process")
			return nil
		}

		now, _ := worker.CurrentTime(ctx)
		pg.receiveReply(now, m)

		return nil
	}
}

func (r *Runtime) discard(h *host.Host, pkt netif.Packet, reason string) {
	r.logger.WithFields(logrus.Fields{
		"host":   h.Name(),
		"packet": pkt.ID,
		"reason": reason,
	}).Debug("packet discarded")
}

// CollectPingStats returns the statistics of every ping process, ordered by
// host and process. It must not be called while the simulation runs.
func CollectPingStats(hosts *host.Arena) []PingStats {
	var stats []PingStats

	for _, h := range hosts.All() {
		s, ok := h.RuntimeState().(*hostState)
		if !ok {
			continue
		}

		ids := make([]host.ProcessID, 0, len(s.pingers))
		for id := range s.pingers {
			ids = append(ids, id)
		}

		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			stats = append(stats, s.pingers[id].stats)
		}
	}

	return stats
}

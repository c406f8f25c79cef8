package apps

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/sarchlab/netsim/dns"
	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/units"
	"github.com/sarchlab/netsim/worker"
)

// Ping defaults.
const (
	DefaultPingCount    = 4
	DefaultPingSize     = 64 * units.Byte
	DefaultPingInterval = 100 * timing.Millisecond
)

// PingOptions are parsed from the process arguments:
//
//	ping <target> [count] [size] [interval]
//
// The target is a host name or an IP address. Size and interval take unit
// strings such as "1 kibyte" and "50 ms".
type PingOptions struct {
	Target   string
	Count    int
	Size     units.Bytes
	Interval timing.SimulationTime
}

func parsePingArgs(args []string) (PingOptions, error) {
	o := PingOptions{
		Count:    DefaultPingCount,
		Size:     DefaultPingSize,
		Interval: DefaultPingInterval,
	}

	if len(args) == 0 || len(args) > 4 {
		return o, fmt.Errorf("usage: ping <target> [count] [size] [interval]")
	}

	o.Target = args[0]

	var err error

	if len(args) > 1 {
		if o.Count, err = strconv.Atoi(args[1]); err != nil || o.Count < 1 {
			return o, fmt.Errorf("ping count %q must be a positive integer", args[1])
		}
	}

	if len(args) > 2 {
		if o.Size, err = units.ParseBytes(args[2]); err != nil {
			return o, err
		}
	}

	if len(args) > 3 {
		if o.Interval, err = units.ParseInterval(args[3]); err != nil {
			return o, err
		}

		if o.Interval == 0 {
			return o, fmt.Errorf("ping interval must be positive")
		}
	}

	return o, nil
}

func resolve(names *dns.NameServer, target string) (netip.Addr, error) {
	if ip, err := netip.ParseAddr(target); err == nil {
		return ip, nil
	}

	rec, ok := names.Lookup(target)
	if !ok {
		return netip.Addr{}, fmt.Errorf("unknown host %q", target)
	}

	return rec.IP, nil
}

// PingStats summarizes one ping process.
type PingStats struct {
	Host     string
	Target   string
	Sent     int
	Received int
	RTTs     []timing.SimulationTime
}

// Loss returns the fraction of requests without a reply.
func (s PingStats) Loss() units.Fraction {
	if s.Sent == 0 {
		return 0
	}

	return units.Fraction(float64(s.Sent-s.Received) / float64(s.Sent))
}

// MeanRTT returns the average round-trip time.
func (s PingStats) MeanRTT() timing.SimulationTime {
	if len(s.RTTs) == 0 {
		return 0
	}

	var sum timing.SimulationTime
	for _, rtt := range s.RTTs {
		sum += rtt
	}

	return sum / timing.SimulationTime(len(s.RTTs))
}

type pinger struct {
	process host.ProcessID
	opts    PingOptions
	dst     netip.Addr
	stats   PingStats
}

// sendNext sends one request and schedules the next one until the count is
// reached.
func (p *pinger) sendNext(ctx context.Context, h *host.Host) error {
	now, ok := worker.CurrentTime(ctx)
	if !ok {
		return worker.ErrNotExecuting
	}

	m := message{
		kind:    echoRequest,
		process: p.process,
		seq:     uint32(p.stats.Sent),
		sent:    now,
	}
	p.stats.Sent++

	if p.stats.Sent < p.opts.Count {
		pid := p.process
		worker.ScheduleTask(ctx, event.Callback{
			CallbackKind: event.CallbackRetransmit,
			Process:      &pid,
			Callback:     pingTick{pinger: p},
		}, h.ID(), p.opts.Interval)
	}

	return worker.SendPacket(ctx, h.NewPacket(p.dst, p.opts.Size, m.encode()))
}

func (p *pinger) receiveReply(now timing.EmulatedTime, m message) {
	p.stats.Received++
	p.stats.RTTs = append(p.stats.RTTs, now.DurationSince(m.sent))
}

type pingTick struct {
	pinger *pinger
}

func (t pingTick) Execute(ctx context.Context, h *host.Host) error {
	p, ok := h.Process(t.pinger.process)
	if !ok || !p.IsRunning() {
		return nil
	}

	return t.pinger.sendNext(ctx, h)
}

// Package host holds the identity and the per-host state of simulated
// machines.
package host

import (
	"fmt"
	"math/rand/v2"
	"net/netip"

	"github.com/sarchlab/netsim/netif"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/units"
)

// ID identifies a host. Ids are dense, starting at 0.
type ID uint32

// Info is the immutable identity of a host.
type Info struct {
	ID   ID
	Name string
	IP   netip.Addr
	Node topology.NodeID
}

func (i Info) String() string {
	return fmt.Sprintf("%s(%d, %v)", i.Name, i.ID, i.IP)
}

// Config describes a host to create.
type Config struct {
	Info

	BandwidthUp   units.BitRate
	BandwidthDown units.BitRate
	RouterLimit   int

	// Seed initializes the host's random source.
	Seed [32]byte

	Processes []ProcessConfig
}

// A Host is a simulated machine. Only the worker that currently executes an
// event for the host may touch its mutable state.
type Host struct {
	info Info

	loopback *netif.Interface
	internet *netif.Interface

	processes []*Process
	rng       *rand.Rand
	packetSeq uint64

	runtimeState any
}

// New creates a host with a loopback and an internet-facing interface.
func New(c Config) *Host {
	h := &Host{
		info:     c.Info,
		loopback: netif.NewLoopback(netip.MustParseAddr("127.0.0.1")),
		internet: netif.NewInterface(netif.Config{
			Name:          "eth0",
			Addr:          c.IP,
			BandwidthUp:   c.BandwidthUp,
			BandwidthDown: c.BandwidthDown,
			RouterLimit:   c.RouterLimit,
			RefillStarted: timing.SimulationStart,
		}),
		rng: rand.New(rand.NewChaCha8(c.Seed)),
	}

	for i, pc := range c.Processes {
		h.processes = append(h.processes, newProcess(ProcessID(i), pc))
	}

	return h
}

// Info returns the identity of the host.
func (h *Host) Info() Info {
	return h.info
}

// ID returns the id of the host.
func (h *Host) ID() ID {
	return h.info.ID
}

// Name returns the name of the host.
func (h *Host) Name() string {
	return h.info.Name
}

// IP returns the public address of the host.
func (h *Host) IP() netip.Addr {
	return h.info.IP
}

// Node returns the network node the host is attached to.
func (h *Host) Node() topology.NodeID {
	return h.info.Node
}

// Interfaces returns the loopback and the internet interface.
func (h *Host) Interfaces() []*netif.Interface {
	return []*netif.Interface{h.loopback, h.internet}
}

// Loopback returns the loopback interface.
func (h *Host) Loopback() *netif.Interface {
	return h.loopback
}

// Internet returns the internet-facing interface.
func (h *Host) Internet() *netif.Interface {
	return h.internet
}

// InterfaceFor returns the interface owning addr.
func (h *Host) InterfaceFor(addr netip.Addr) (*netif.Interface, bool) {
	switch {
	case addr.IsLoopback():
		return h.loopback, true
	case addr == h.info.IP:
		return h.internet, true
	default:
		return nil, false
	}
}

// OutboundInterface returns the interface that packets to dst leave from.
// Traffic to the host itself stays on the loopback interface.
func (h *Host) OutboundInterface(dst netip.Addr) *netif.Interface {
	if dst.IsLoopback() || dst == h.info.IP {
		return h.loopback
	}

	return h.internet
}

// NewPacket creates a packet from the host to dst with a host-unique id.
func (h *Host) NewPacket(dst netip.Addr, size units.Bytes, payload []byte) netif.Packet {
	h.packetSeq++

	src := h.info.IP
	if dst.IsLoopback() {
		src = dst
	}

	return netif.Packet{
		ID:          uint64(h.info.ID)<<40 | h.packetSeq,
		Source:      src,
		Destination: dst,
		Size:        size,
		Payload:     payload,
	}
}

// Random returns the deterministic random source of the host.
func (h *Host) Random() *rand.Rand {
	return h.rng
}

// Processes returns the processes configured on the host.
func (h *Host) Processes() []*Process {
	return h.processes
}

// Process returns the process with the given id.
func (h *Host) Process(id ProcessID) (*Process, bool) {
	if int(id) >= len(h.processes) {
		return nil, false
	}

	return h.processes[id], true
}

// RuntimeState returns the value the runtime attached to the host.
func (h *Host) RuntimeState() any {
	return h.runtimeState
}

// SetRuntimeState attaches a runtime-defined value to the host.
func (h *Host) SetRuntimeState(v any) {
	h.runtimeState = v
}

func (h *Host) String() string {
	return h.info.String()
}

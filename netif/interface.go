package netif

import (
	"fmt"
	"net/netip"

	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/units"
)

// RefillInterval is the period of the token-bucket refill grid.
const RefillInterval = timing.Millisecond

// A Sink receives the packets an Interface lets through.
type Sink interface {
	// Transmit hands a packet that left the send bucket to the network.
	Transmit(iface *Interface, p Packet)

	// Deliver hands a packet that passed the receive bucket to the host.
	Deliver(iface *Interface, p Packet)

	// Drop reports a packet that the interface discarded.
	Drop(iface *Interface, p Packet, reason string)
}

// Stats counts the traffic through an interface.
type Stats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	PacketsDropped  uint64
	BytesSent       units.Bytes
	BytesReceived   units.Bytes
	Refills         uint64
}

// Config describes an interface to create.
type Config struct {
	Name          string
	Addr          netip.Addr
	BandwidthUp   units.BitRate
	BandwidthDown units.BitRate

	// BucketCapacity overrides the default capacity of one refill quantum.
	BucketCapacity units.Bytes

	// RouterLimit caps the upstream queue. Zero means unbounded.
	RouterLimit int

	// RefillStarted anchors the refill grid.
	RefillStarted timing.EmulatedTime
}

// An Interface is a network endpoint of a host. A shaped interface passes
// outgoing traffic through a send bucket and incoming traffic, queued at its
// upstream router, through a receive bucket.
//
// An Interface is not safe for concurrent use. Only the worker that executes
// events for the owning host may touch it.
type Interface struct {
	name string
	addr netip.Addr

	send   *TokenBucket
	recv   *TokenBucket
	router *Router

	sendQueue []Packet

	refillPending bool
	refillStarted timing.EmulatedTime

	stats Stats
}

// NewInterface creates a shaped interface. Each bucket refills with the
// bytes its bandwidth carries in one RefillInterval. A zero bandwidth leaves
// that direction unshaped.
func NewInterface(c Config) *Interface {
	i := &Interface{
		name:          c.Name,
		addr:          c.Addr,
		router:        NewRouter(c.RouterLimit),
		refillStarted: c.RefillStarted,
	}

	i.send = bucketFor(c.BandwidthUp, c.BucketCapacity)
	i.recv = bucketFor(c.BandwidthDown, c.BucketCapacity)

	return i
}

// NewLoopback creates an interface that delivers everything immediately.
func NewLoopback(addr netip.Addr) *Interface {
	return &Interface{name: "lo", addr: addr}
}

func bucketFor(bw units.BitRate, capacity units.Bytes) *TokenBucket {
	if bw == 0 {
		return nil
	}

	quantum := bw.BytesPer(RefillInterval.Nanos())
	if quantum == 0 {
		quantum = 1
	}

	if capacity < quantum {
		capacity = quantum
	}

	return NewTokenBucket(capacity, quantum)
}

// Name returns the interface name.
func (i *Interface) Name() string {
	return i.name
}

// Addr returns the interface address.
func (i *Interface) Addr() netip.Addr {
	return i.addr
}

// IsLoopback tells if the interface bypasses shaping.
func (i *Interface) IsLoopback() bool {
	return i.router == nil
}

// SendBucket returns the send bucket, nil if outgoing traffic is unshaped.
func (i *Interface) SendBucket() *TokenBucket {
	return i.send
}

// RecvBucket returns the receive bucket, nil if incoming traffic is
// unshaped.
func (i *Interface) RecvBucket() *TokenBucket {
	return i.recv
}

// Stats returns the traffic counters.
func (i *Interface) Stats() Stats {
	return i.stats
}

// QueuedSend returns the number of packets waiting for the send bucket.
func (i *Interface) QueuedSend() int {
	return len(i.sendQueue)
}

// QueuedRecv returns the number of packets waiting at the upstream router.
func (i *Interface) QueuedRecv() int {
	if i.router == nil {
		return 0
	}

	return i.router.Len()
}

// IsRefillPending tells if a refill task is already scheduled.
func (i *Interface) IsRefillPending() bool {
	return i.refillPending
}

// SetRefillPending records that a refill task has been scheduled.
func (i *Interface) SetRefillPending() {
	i.refillPending = true
}

// IsRefillNeeded tells if a bucket is below capacity and no refill is
// scheduled yet.
func (i *Interface) IsRefillNeeded() bool {
	if i.refillPending {
		return false
	}

	return needsRefill(i.send) || needsRefill(i.recv)
}

func needsRefill(b *TokenBucket) bool {
	return b != nil && b.NeedsRefill()
}

// NextRefillDelay returns the time from now until the next point on the
// refill grid. The result is always in (0, RefillInterval].
func (i *Interface) NextRefillDelay(now timing.EmulatedTime) timing.SimulationTime {
	elapsed := now.DurationSince(i.refillStarted)
	return RefillInterval - elapsed.Rem(RefillInterval)
}

// RefillBuckets runs one refill step. It clears the pending flag, adds a
// quantum to both buckets and drains the queues within the new budget.
func (i *Interface) RefillBuckets(sink Sink) {
	i.refillPending = false
	i.stats.Refills++

	if i.send != nil {
		i.send.Refill()
	}

	if i.recv != nil {
		i.recv.Refill()
	}

	i.drainRecv(sink)
	i.drainSend(sink)
}

// Send queues an outgoing packet and lets through as much as the send bucket
// allows. A loopback interface delivers the packet to its own host.
func (i *Interface) Send(p Packet, sink Sink) {
	if i.IsLoopback() {
		i.stats.PacketsSent++
		i.stats.BytesSent += p.Size
		i.countReceived(p)
		sink.Deliver(i, p)

		return
	}

	i.sendQueue = append(i.sendQueue, p)
	i.drainSend(sink)
}

// Receive accepts a packet from the network. The packet waits at the
// upstream router until the receive bucket lets it in.
func (i *Interface) Receive(p Packet, sink Sink) {
	if i.IsLoopback() {
		i.countReceived(p)
		sink.Deliver(i, p)

		return
	}

	if !i.router.Enqueue(p) {
		i.stats.PacketsDropped++
		sink.Drop(i, p, "router queue full")

		return
	}

	i.drainRecv(sink)
}

func (i *Interface) drainSend(sink Sink) {
	for len(i.sendQueue) > 0 {
		p := i.sendQueue[0]
		if i.send != nil && !i.send.Admits(p.Size) {
			return
		}

		if i.send != nil {
			i.send.Consume(p.Size)
		}

		i.sendQueue[0] = Packet{}
		i.sendQueue = i.sendQueue[1:]
		i.stats.PacketsSent++
		i.stats.BytesSent += p.Size

		sink.Transmit(i, p)
	}
}

func (i *Interface) drainRecv(sink Sink) {
	if i.router == nil {
		return
	}

	for {
		p, ok := i.router.Peek()
		if !ok {
			return
		}

		if i.recv != nil && !i.recv.Admits(p.Size) {
			return
		}

		if i.recv != nil {
			i.recv.Consume(p.Size)
		}

		i.router.Dequeue()
		i.countReceived(p)

		sink.Deliver(i, p)
	}
}

func (i *Interface) countReceived(p Packet) {
	i.stats.PacketsReceived++
	i.stats.BytesReceived += p.Size
}

func (i *Interface) String() string {
	return fmt.Sprintf("%s(%v)", i.name, i.addr)
}

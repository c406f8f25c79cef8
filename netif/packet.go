package netif

import (
	"fmt"
	"net/netip"

	"github.com/sarchlab/netsim/units"
)

// A Packet is a unit of data travelling between interfaces. Only the header
// information matters to the simulator; the payload is opaque.
type Packet struct {
	ID          uint64
	Source      netip.Addr
	Destination netip.Addr
	Size        units.Bytes
	Payload     []byte
}

func (p Packet) String() string {
	return fmt.Sprintf("packet %d %v->%v (%v)", p.ID, p.Source, p.Destination, p.Size)
}

// A Router is the upstream queue that holds packets arriving at an interface
// until the receive bucket lets them in. A zero limit means unbounded.
type Router struct {
	queue []Packet
	limit int
}

// NewRouter creates a router that holds at most limit packets.
func NewRouter(limit int) *Router {
	return &Router{limit: limit}
}

// Enqueue appends a packet. It reports false, dropping the packet, when the
// queue is full.
func (r *Router) Enqueue(p Packet) bool {
	if r.limit > 0 && len(r.queue) >= r.limit {
		return false
	}

	r.queue = append(r.queue, p)

	return true
}

// Peek returns the head of the queue.
func (r *Router) Peek() (Packet, bool) {
	if len(r.queue) == 0 {
		return Packet{}, false
	}

	return r.queue[0], true
}

// Dequeue removes and returns the head of the queue.
func (r *Router) Dequeue() (Packet, bool) {
	p, ok := r.Peek()
	if !ok {
		return Packet{}, false
	}

	r.queue[0] = Packet{}
	r.queue = r.queue[1:]

	return p, true
}

// Len returns the number of queued packets.
func (r *Router) Len() int {
	return len(r.queue)
}

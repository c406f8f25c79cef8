package host

import (
	"fmt"
	"net/netip"
)

// An Arena stores all hosts indexed by their id. It is built once before the
// run and never changes afterwards, so lookups need no locking.
type Arena struct {
	hosts []*Host
	byIP  map[netip.Addr]*Host
}

// NewArena creates an arena. Host ids must be 0..n-1 in order.
func NewArena(hosts []*Host) *Arena {
	a := &Arena{
		hosts: hosts,
		byIP:  make(map[netip.Addr]*Host, len(hosts)),
	}

	for i, h := range hosts {
		if h.ID() != ID(i) {
			panic(fmt.Sprintf("host %s at index %d, ids must be dense", h, i))
		}

		a.byIP[h.IP()] = h
	}

	return a
}

// Get returns the host with the given id.
func (a *Arena) Get(id ID) (*Host, bool) {
	if int(id) >= len(a.hosts) {
		return nil, false
	}

	return a.hosts[id], true
}

// ByIP returns the host owning a public address.
func (a *Arena) ByIP(ip netip.Addr) (*Host, bool) {
	h, ok := a.byIP[ip]
	return h, ok
}

// Len returns the number of hosts.
func (a *Arena) Len() int {
	return len(a.hosts)
}

// All returns every host in id order.
func (a *Arena) All() []*Host {
	return a.hosts
}

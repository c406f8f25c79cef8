package simulation

import (
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/netif"
	"github.com/sarchlab/netsim/topology"
)

// HostDetail is a snapshot of a host taken between two rounds.
type HostDetail struct {
	Name       string
	IP         string
	Node       topology.NodeID
	Processes  []string
	Running    int
	QueuedSend int
	QueuedRecv int
	Internet   netif.Stats
	Loopback   netif.Stats
}

// HostNames returns the names of the hosts in id order.
func (s *Simulation) HostNames() []string {
	names := make([]string, 0, s.hosts.Len())
	for _, h := range s.hosts.All() {
		names = append(names, h.Name())
	}

	return names
}

// HostDetail returns a snapshot of the named host. It waits for the running
// round to finish.
func (s *Simulation) HostDetail(name string) (any, bool) {
	s.roundLock.Lock()
	defer s.roundLock.Unlock()

	for _, h := range s.hosts.All() {
		if h.Name() == name {
			d := snapshot(h)
			return &d, true
		}
	}

	return nil, false
}

func snapshot(h *host.Host) HostDetail {
	d := HostDetail{
		Name:       h.Name(),
		IP:         h.IP().String(),
		Node:       h.Node(),
		QueuedSend: h.Internet().QueuedSend(),
		QueuedRecv: h.Internet().QueuedRecv(),
		Internet:   h.Internet().Stats(),
		Loopback:   h.Loopback().Stats(),
	}

	for _, p := range h.Processes() {
		d.Processes = append(d.Processes, p.Name())
		if p.IsRunning() {
			d.Running++
		}
	}

	return d
}

package topology

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"

	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/units"
)

// A Path is a route through one or more edges together with its aggregate
// cost.
type Path struct {
	Nodes   []NodeID
	Latency timing.SimulationTime
	Jitter  timing.SimulationTime
	Loss    units.Fraction
}

// Compare orders paths by latency first and by loss second. It returns a
// negative number if p is better than o, zero if they cost the same, and a
// positive number otherwise.
func (p Path) Compare(o Path) int {
	switch {
	case p.Latency < o.Latency:
		return -1
	case p.Latency > o.Latency:
		return 1
	case p.Loss < o.Loss:
		return -1
	case p.Loss > o.Loss:
		return 1
	default:
		return 0
	}
}

// Less tells if p is strictly better than o.
func (p Path) Less(o Path) bool {
	return p.Compare(o) < 0
}

// Hops returns the number of edges on the path.
func (p Path) Hops() int {
	if len(p.Nodes) == 0 {
		return 0
	}

	return len(p.Nodes) - 1
}

// SampleLatency returns the latency of one traversal given a uniform sample
// u in [0, 1) used to draw the jitter.
func (p Path) SampleLatency(u float64) timing.SimulationTime {
	jitter := timing.SimulationTime(float64(p.Jitter) * u)
	return p.Latency.Add(jitter)
}

// Drops tells if a packet is lost given a uniform sample u in [0, 1).
func (p Path) Drops(u float64) bool {
	return u < p.Loss.Float64()
}

func (p Path) String() string {
	return fmt.Sprintf("%v latency=%v jitter=%v loss=%v",
		p.Nodes, p.Latency, p.Jitter, p.Loss)
}

// Route returns the path a packet from src to dst takes. With
// useShortestPath unset only the direct edge is considered.
func (n *Network) Route(src, dst NodeID, useShortestPath bool) (Path, error) {
	if useShortestPath {
		return n.BestPath(src, dst)
	}

	return n.DirectPath(src, dst)
}

// DirectPath returns the single-edge path from src to dst.
func (n *Network) DirectPath(src, dst NodeID) (Path, error) {
	if err := n.mustHaveNodes(src, dst); err != nil {
		return Path{}, err
	}

	return n.pathThrough([]NodeID{src, dst})
}

// BestPath returns the least-latency path from src to dst, preferring lower
// loss among paths of equal latency. A node only reaches itself through a
// self-loop edge.
func (n *Network) BestPath(src, dst NodeID) (Path, error) {
	if err := n.mustHaveNodes(src, dst); err != nil {
		return Path{}, err
	}

	if src == dst {
		return n.pathThrough([]NodeID{src, dst})
	}

	n.searchOnce.Do(func() {
		n.allPaths = path.DijkstraAllPaths(n.graph)
	})

	routes, _ := n.allPaths.AllBetween(int64(src), int64(dst))
	if len(routes) == 0 {
		return Path{}, fmt.Errorf("route %d->%d: %w", src, dst, ErrNoSuchLink)
	}

	candidates := make([]Path, 0, len(routes))
	for _, r := range routes {
		p, err := n.pathThrough(toNodeIDs(r))
		if err != nil {
			return Path{}, err
		}

		candidates = append(candidates, p)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return betterCandidate(candidates[i], candidates[j])
	})

	return candidates[0], nil
}

func betterCandidate(a, b Path) bool {
	if c := a.Compare(b); c != 0 {
		return c < 0
	}

	if a.Hops() != b.Hops() {
		return a.Hops() < b.Hops()
	}

	for i := range a.Nodes {
		if a.Nodes[i] != b.Nodes[i] {
			return a.Nodes[i] < b.Nodes[i]
		}
	}

	return false
}

func (n *Network) mustHaveNodes(ids ...NodeID) error {
	for _, id := range ids {
		if _, ok := n.nodes[id]; !ok {
			return fmt.Errorf("node %d: %w", id, ErrNoSuchNode)
		}
	}

	return nil
}

// pathThrough aggregates the edges along a node sequence. Latency and jitter
// add up; the delivery probabilities multiply.
func (n *Network) pathThrough(nodes []NodeID) (Path, error) {
	p := Path{Nodes: nodes}
	delivered := 1.0

	for i := 0; i+1 < len(nodes); i++ {
		e, ok := n.Edge(nodes[i], nodes[i+1])
		if !ok {
			return Path{}, fmt.Errorf("link %d->%d: %w",
				nodes[i], nodes[i+1], ErrNoSuchLink)
		}

		p.Latency = p.Latency.Add(e.Latency)
		p.Jitter = p.Jitter.Add(e.Jitter)
		delivered *= e.Loss.Complement().Float64()
	}

	p.Loss = units.Fraction(1 - delivered)

	return p, nil
}

func toNodeIDs(nodes []graph.Node) []NodeID {
	ids := make([]NodeID, len(nodes))
	for i, node := range nodes {
		ids[i] = NodeID(node.ID())
	}

	return ids
}

// Package topology describes the simulated network graph and answers
// path-cost queries over it.
package topology

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/units"
)

var (
	// ErrNoSuchNode is returned when a query names a node that is not part of
	// the network.
	ErrNoSuchNode = errors.New("no such node")

	// ErrNoSuchLink is returned when no link or route connects two nodes.
	ErrNoSuchLink = errors.New("no such link")
)

// NodeID identifies a vertex of the network graph.
type NodeID int64

// A Node is a vertex of the network graph. Hosts attached to the node are
// capped at its bandwidths.
type Node struct {
	ID            NodeID
	BandwidthDown units.BitRate
	BandwidthUp   units.BitRate
}

// An Edge is a directed link between two nodes.
type Edge struct {
	Src     NodeID
	Dst     NodeID
	Latency timing.SimulationTime
	Jitter  timing.SimulationTime
	Loss    units.Fraction
}

type edgeKey struct {
	src, dst NodeID
}

// A Network is an immutable graph of nodes and directed edges. All of its
// methods may be called concurrently.
type Network struct {
	nodes map[NodeID]*Node
	edges map[edgeKey]*Edge

	graph      *simple.WeightedDirectedGraph
	allPaths   path.AllShortest
	searchOnce sync.Once
}

// NewNetwork validates nodes and edges and creates a Network. Every edge must
// connect known nodes and no node or edge may be listed twice.
func NewNetwork(nodes []Node, edges []Edge) (*Network, error) {
	n := &Network{
		nodes: make(map[NodeID]*Node, len(nodes)),
		edges: make(map[edgeKey]*Edge, len(edges)),
		graph: simple.NewWeightedDirectedGraph(0, math.Inf(1)),
	}

	for i := range nodes {
		node := nodes[i]
		if _, dup := n.nodes[node.ID]; dup {
			return nil, fmt.Errorf("duplicate node %d", node.ID)
		}

		n.nodes[node.ID] = &node
		n.graph.AddNode(simple.Node(node.ID))
	}

	for i := range edges {
		edge := edges[i]
		if err := n.addEdge(&edge); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func (n *Network) addEdge(edge *Edge) error {
	if _, ok := n.nodes[edge.Src]; !ok {
		return fmt.Errorf("edge %d->%d: source: %w", edge.Src, edge.Dst, ErrNoSuchNode)
	}

	if _, ok := n.nodes[edge.Dst]; !ok {
		return fmt.Errorf("edge %d->%d: destination: %w", edge.Src, edge.Dst, ErrNoSuchNode)
	}

	key := edgeKey{edge.Src, edge.Dst}
	if _, dup := n.edges[key]; dup {
		return fmt.Errorf("duplicate edge %d->%d", edge.Src, edge.Dst)
	}

	n.edges[key] = edge

	// Self loops describe traffic between hosts sharing a node. The graph
	// search never needs them.
	if edge.Src != edge.Dst {
		n.graph.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(edge.Src),
			T: simple.Node(edge.Dst),
			W: float64(edge.Latency),
		})
	}

	return nil
}

// Node returns the node with the given id.
func (n *Network) Node(id NodeID) (*Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// Edge returns the direct edge from src to dst.
func (n *Network) Edge(src, dst NodeID) (*Edge, bool) {
	edge, ok := n.edges[edgeKey{src, dst}]
	return edge, ok
}

// NumNodes returns the number of nodes.
func (n *Network) NumNodes() int {
	return len(n.nodes)
}

// NumEdges returns the number of directed edges.
func (n *Network) NumEdges() int {
	return len(n.edges)
}

// NodeIDs returns all node ids in ascending order.
func (n *Network) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(n.nodes))
	for id := range n.nodes {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// MinLatency returns the smallest latency among all edges and whether the
// network has any edge at all.
func (n *Network) MinLatency() (timing.SimulationTime, bool) {
	if len(n.edges) == 0 {
		return 0, false
	}

	min := timing.SimulationTimeMax
	for _, e := range n.edges {
		min = timing.MinTime(min, e.Latency)
	}

	return min, true
}

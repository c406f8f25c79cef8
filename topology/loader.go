package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/netsim/units"
)

// Description is the serialized form of a Network.
//
//	nodes:
//	  - id: 0
//	    bandwidth_down: 100 mbit
//	    bandwidth_up: 100 mbit
//	edges:
//	  - src: 0
//	    dst: 1
//	    latency: 10 ms
//	    jitter: 1 ms
//	    packet_loss: 1%
//	    bidirectional: true
type Description struct {
	Nodes []NodeDescription `yaml:"nodes"`
	Edges []EdgeDescription `yaml:"edges"`
}

// NodeDescription is the serialized form of a Node.
type NodeDescription struct {
	ID            NodeID        `yaml:"id"`
	BandwidthDown units.BitRate `yaml:"bandwidth_down"`
	BandwidthUp   units.BitRate `yaml:"bandwidth_up"`
}

// EdgeDescription is the serialized form of an Edge. A bidirectional edge
// expands to one edge in each direction.
type EdgeDescription struct {
	Src           NodeID         `yaml:"src"`
	Dst           NodeID         `yaml:"dst"`
	Latency       units.Interval `yaml:"latency"`
	Jitter        units.Interval `yaml:"jitter"`
	PacketLoss    units.Fraction `yaml:"packet_loss"`
	Bidirectional bool           `yaml:"bidirectional"`
}

// Build validates the description and creates the Network.
func (d Description) Build() (*Network, error) {
	nodes := make([]Node, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes = append(nodes, Node{
			ID:            n.ID,
			BandwidthDown: n.BandwidthDown,
			BandwidthUp:   n.BandwidthUp,
		})
	}

	edges := make([]Edge, 0, len(d.Edges))
	for _, e := range d.Edges {
		edge := Edge{
			Src:     e.Src,
			Dst:     e.Dst,
			Latency: e.Latency.SimulationTime(),
			Jitter:  e.Jitter.SimulationTime(),
			Loss:    e.PacketLoss,
		}
		edges = append(edges, edge)

		if e.Bidirectional && e.Src != e.Dst {
			edge.Src, edge.Dst = edge.Dst, edge.Src
			edges = append(edges, edge)
		}
	}

	return NewNetwork(nodes, edges)
}

// Parse decodes a YAML topology description and builds the Network.
func Parse(data []byte) (*Network, error) {
	var d Description

	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}

	return d.Build()
}

// Load reads a YAML topology description from a file.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}

	return Parse(data)
}

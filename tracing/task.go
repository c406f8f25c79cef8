// Package tracing follows packets through the network. A packet becomes a
// task when it leaves its source interface and ends when the destination
// host receives it; a drop aborts the task.
package tracing

import (
	"github.com/sarchlab/netsim/netif"
	"github.com/sarchlab/netsim/timing"
)

// KindPacket is the kind of tasks created from packets.
const KindPacket = "packet"

// A Task is a traced piece of work.
type Task struct {
	ID        uint64
	Kind      string
	What      string
	Where     string
	StartTime timing.EmulatedTime
	EndTime   timing.EmulatedTime
}

// Duration returns the time between start and end.
func (t Task) Duration() timing.SimulationTime {
	return t.EndTime.DurationSince(t.StartTime)
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// PacketTask describes a packet as a task. What is the destination and Where
// the source.
func PacketTask(p netif.Packet) Task {
	return Task{
		ID:    p.ID,
		Kind:  KindPacket,
		What:  p.Destination.String(),
		Where: p.Source.String(),
	}
}

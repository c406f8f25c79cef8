package datarecording

import (
	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/netif"
)

// Table names used by the EventTracer.
const (
	EventTable = "events"
	RoundTable = "rounds"
	DropTable  = "packet_drops"
)

// EventEntry is one executed event. Time is in nanoseconds of simulation
// time.
type EventEntry struct {
	Worker int
	Src    uint32
	Dst    uint32
	Kind   string
	Time   uint64
	Seq    uint64
}

// RoundEntry is one completed round.
type RoundEntry struct {
	Round  uint64
	End    uint64
	Events uint64
}

// DropEntry is one dropped packet.
type DropEntry struct {
	Packet      uint64
	Source      string
	Destination string
	Size        uint64
	Reason      string
}

// EventTracer is a hook that records executed events, rounds and dropped
// packets.
type EventTracer struct {
	recorder DataRecorder
}

// NewEventTracer creates the tracer and its tables.
func NewEventTracer(recorder DataRecorder) *EventTracer {
	recorder.CreateTable(EventTable, EventEntry{})
	recorder.CreateTable(RoundTable, RoundEntry{})
	recorder.CreateTable(DropTable, DropEntry{})

	return &EventTracer{recorder: recorder}
}

// Func records the item of the hook site.
func (t *EventTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case hooking.HookPosAfterEvent:
		t.recordEvent(ctx)
	case hooking.HookPosRoundEnd:
		summary, ok := ctx.Item.(hooking.RoundSummary)
		if !ok {
			return
		}

		t.recorder.InsertData(RoundTable, RoundEntry{
			Round:  summary.Index,
			End:    uint64(summary.End.SimulationTime()),
			Events: summary.Events,
		})
	case hooking.HookPosPacketDropped:
		pkt, ok := ctx.Item.(netif.Packet)
		if !ok {
			return
		}

		reason, _ := ctx.Detail.(string)
		t.recorder.InsertData(DropTable, DropEntry{
			Packet:      pkt.ID,
			Source:      pkt.Source.String(),
			Destination: pkt.Destination.String(),
			Size:        uint64(pkt.Size),
			Reason:      reason,
		})
	}
}

func (t *EventTracer) recordEvent(ctx hooking.HookCtx) {
	evt, ok := ctx.Item.(*event.Event)
	if !ok {
		return
	}

	worker, _ := ctx.Detail.(int)
	t.recorder.InsertData(EventTable, EventEntry{
		Worker: worker,
		Src:    uint32(evt.Src()),
		Dst:    uint32(evt.Dst()),
		Kind:   evt.KindName(),
		Time:   uint64(evt.Time().SimulationTime()),
		Seq:    evt.Seq(),
	})
}

package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/netif"
	"github.com/sarchlab/netsim/timing"
)

// CollectTrace let the tracer to collect trace from a domain
func CollectTrace(domain hooking.Hookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf("domain already has tracer %s",
				reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook turns packet hooks into tracer calls.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx hooking.HookCtx) {
	pkt, ok := ctx.Item.(netif.Packet)
	if !ok {
		return
	}

	task := PacketTask(pkt)
	now, _ := ctx.Detail.(timing.EmulatedTime)

	switch ctx.Pos {
	case hooking.HookPosPacketSent:
		task.StartTime = now
		h.t.StartTask(task)
	case hooking.HookPosPacketDelivered:
		task.EndTime = now
		h.t.EndTask(task)
	case hooking.HookPosPacketDropped:
		h.t.AbortTask(task)
	}
}

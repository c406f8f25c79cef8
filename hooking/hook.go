// Package hooking lets observers attach to the execution engine without the
// engine knowing about them.
package hooking

import "github.com/sarchlab/netsim/timing"

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookPosBeforeEvent triggers right before a worker executes an event. The
// item is the event.
var HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent triggers right after a worker executed an event. The item
// is the event.
var HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

// HookPosRoundEnd triggers when all workers reached the round barrier. The
// item is a RoundSummary.
var HookPosRoundEnd = &HookPos{Name: "RoundEnd"}

// HookPosPacketDropped triggers when a packet is lost or cannot be routed.
// The item is the packet and the detail the reason.
var HookPosPacketDropped = &HookPos{Name: "PacketDropped"}

// HookPosPacketSent triggers when a packet leaves the send bucket of its
// source interface. The item is the packet and the detail the EmulatedTime.
var HookPosPacketSent = &HookPos{Name: "PacketSent"}

// HookPosPacketDelivered triggers when a packet passed the receive bucket and
// is handed to the host runtime. The item is the packet and the detail the
// EmulatedTime.
var HookPosPacketDelivered = &HookPos{Name: "PacketDelivered"}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
// Workers invoke hooks concurrently, so a Hook must be safe for concurrent
// use.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface. Hooks must be registered before the simulation
// starts.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	for _, h := range h.hookList {
		if h == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the register Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

// RoundSummary describes one completed round.
type RoundSummary struct {
	Index  uint64
	End    timing.EmulatedTime
	Events uint64
}

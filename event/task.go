package event

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/netif"
)

// Kind enumerates the closed set of task kinds.
type Kind int

// Task kinds.
const (
	KindRefillBuckets Kind = iota
	KindStartProcess
	KindStopProcess
	KindStartThread
	KindReceivePacket
	KindCallback
)

var kindNames = [...]string{
	KindRefillBuckets: "refill_buckets",
	KindStartProcess:  "start_process",
	KindStopProcess:   "stop_process",
	KindStartThread:   "start_thread",
	KindReceivePacket: "receive_packet",
	KindCallback:      "callback",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// A Task is the work an event performs on its destination host.
type Task interface {
	Kind() Kind
}

// RefillBuckets refills the token buckets of the interface with the given
// address.
type RefillBuckets struct {
	Interface netip.Addr
}

// Kind returns KindRefillBuckets.
func (RefillBuckets) Kind() Kind { return KindRefillBuckets }

// StartProcess starts a configured process.
type StartProcess struct {
	Process host.ProcessID
}

// Kind returns KindStartProcess.
func (StartProcess) Kind() Kind { return KindStartProcess }

// StopProcess stops a running process.
type StopProcess struct {
	Process host.ProcessID
}

// Kind returns KindStopProcess.
func (StopProcess) Kind() Kind { return KindStopProcess }

// StartThread starts a new thread in a running process.
type StartThread struct {
	Process host.ProcessID
}

// Kind returns KindStartThread.
func (StartThread) Kind() Kind { return KindStartThread }

// ReceivePacket hands a packet arriving from the network to the interface
// owning its destination address.
type ReceivePacket struct {
	Packet netif.Packet
}

// Kind returns KindReceivePacket.
func (ReceivePacket) Kind() Kind { return KindReceivePacket }

// CallbackKind tells what a host callback is for.
type CallbackKind int

// Callback kinds.
const (
	CallbackClose CallbackKind = iota
	CallbackExpire
	CallbackHeartbeat
	CallbackRetransmit
)

func (k CallbackKind) String() string {
	switch k {
	case CallbackClose:
		return "close"
	case CallbackExpire:
		return "expire"
	case CallbackHeartbeat:
		return "heartbeat"
	case CallbackRetransmit:
		return "retransmit"
	default:
		return fmt.Sprintf("CallbackKind(%d)", int(k))
	}
}

// A HostCallback is host-scoped work supplied by a collaborator of the
// engine.
type HostCallback interface {
	Execute(ctx context.Context, h *host.Host) error
}

// Callback runs a HostCallback. If Process is set, the process is marked
// active while the callback runs.
type Callback struct {
	CallbackKind CallbackKind
	Process      *host.ProcessID
	Callback     HostCallback
}

// Kind returns KindCallback.
func (Callback) Kind() Kind { return KindCallback }

package apps

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/timing"
)

const messageLen = 17

type messageKind byte

const (
	echoRequest messageKind = iota + 1
	echoReply
)

// message is the payload of ping traffic. The reply carries the request
// fields back unchanged.
type message struct {
	kind    messageKind
	process host.ProcessID
	seq     uint32
	sent    timing.EmulatedTime
}

func (m message) encode() []byte {
	b := make([]byte, messageLen)
	b[0] = byte(m.kind)
	binary.BigEndian.PutUint32(b[1:], uint32(m.process))
	binary.BigEndian.PutUint32(b[5:], m.seq)
	binary.BigEndian.PutUint64(b[9:], uint64(m.sent))

	return b
}

func decodeMessage(b []byte) (message, error) {
	if len(b) != messageLen {
		return message{}, fmt.Errorf("message of %d bytes, want %d", len(b), messageLen)
	}

	m := message{
		kind:    messageKind(b[0]),
		process: host.ProcessID(binary.BigEndian.Uint32(b[1:])),
		seq:     binary.BigEndian.Uint32(b[5:]),
		sent:    timing.EmulatedTime(binary.BigEndian.Uint64(b[9:])),
	}

	if m.kind != echoRequest && m.kind != echoReply {
		return message{}, fmt.Errorf("unknown message kind %d", m.kind)
	}

	return m, nil
}

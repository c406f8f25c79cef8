package event

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/timing"
)

var _ = Describe("Event", func() {
	at := func(ms uint64) timing.EmulatedTime {
		return timing.SimulationStart.Add(timing.FromMillis(ms))
	}

	It("should order by time, destination, source and sequence", func() {
		base := New(StartProcess{}, 1, 1, at(5))

		Expect(New(StartProcess{}, 9, 9, at(4)).Less(base)).To(BeTrue())
		Expect(New(StartProcess{}, 9, 0, at(5)).Less(base)).To(BeTrue())
		Expect(New(StartProcess{}, 0, 1, at(5)).Less(base)).To(BeTrue())
		Expect(New(StartProcess{}, 2, 1, at(5)).Less(base)).To(BeFalse())

		later := New(StartProcess{}, 1, 1, at(5))
		base.seq, later.seq = 1, 2
		Expect(base.Less(later)).To(BeTrue())
		Expect(later.Less(base)).To(BeFalse())
	})

	It("should name its kind", func() {
		Expect(New(RefillBuckets{}, 0, 0, at(0)).KindName()).To(Equal("refill_buckets"))
		Expect(New(ReceivePacket{}, 0, 0, at(0)).KindName()).To(Equal("receive_packet"))
		Expect(New(Callback{CallbackKind: CallbackHeartbeat}, 0, 0, at(0)).KindName()).
			To(Equal("heartbeat"))
		Expect(Kind(42).String()).To(Equal("Kind(42)"))
	})
})

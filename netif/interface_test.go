package netif

import (
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/units"
)

type recordingSink struct {
	transmitted []Packet
	delivered   []Packet
	dropped     []string
}

func (s *recordingSink) Transmit(_ *Interface, p Packet) {
	s.transmitted = append(s.transmitted, p)
}

func (s *recordingSink) Deliver(_ *Interface, p Packet) {
	s.delivered = append(s.delivered, p)
}

func (s *recordingSink) Drop(_ *Interface, _ Packet, reason string) {
	s.dropped = append(s.dropped, reason)
}

var _ = Describe("Interface", func() {
	var (
		addr = netip.MustParseAddr("11.0.0.1")
		peer = netip.MustParseAddr("11.0.0.2")
		sink *recordingSink
	)

	packet := func(id uint64, size units.Bytes) Packet {
		return Packet{ID: id, Source: addr, Destination: peer, Size: size}
	}

	BeforeEach(func() {
		sink = &recordingSink{}
	})

	It("should size buckets by the bandwidth per refill interval", func() {
		i := NewInterface(Config{
			Addr:          addr,
			BandwidthUp:   8 * units.Mbit,
			BandwidthDown: 80 * units.Mbit,
		})

		Expect(i.SendBucket().RefillQuantum()).To(Equal(units.Bytes(1000)))
		Expect(i.SendBucket().Capacity()).To(Equal(units.Bytes(1000)))
		Expect(i.RecvBucket().RefillQuantum()).To(Equal(units.Bytes(10000)))
		Expect(i.IsRefillNeeded()).To(BeFalse())
	})

	It("should hold packets until a refill makes room", func() {
		i := NewInterface(Config{Addr: addr, BandwidthUp: 8 * units.Mbit})

		i.Send(packet(1, 600), sink)
		i.Send(packet(2, 600), sink)

		Expect(sink.transmitted).To(HaveLen(1))
		Expect(i.QueuedSend()).To(Equal(1))
		Expect(i.IsRefillNeeded()).To(BeTrue())

		i.SetRefillPending()
		Expect(i.IsRefillNeeded()).To(BeFalse())

		i.RefillBuckets(sink)

		Expect(i.IsRefillPending()).To(BeFalse())
		Expect(sink.transmitted).To(HaveLen(2))
		Expect(sink.transmitted[1].ID).To(Equal(uint64(2)))
		Expect(i.Stats().PacketsSent).To(Equal(uint64(2)))
		Expect(i.Stats().BytesSent).To(Equal(units.Bytes(1200)))
	})

	It("should let an oversize packet through a full bucket", func() {
		i := NewInterface(Config{Addr: addr, BandwidthUp: 8 * units.Mbit})

		i.Send(packet(1, 9000), sink)

		Expect(sink.transmitted).To(HaveLen(1))
		Expect(i.SendBucket().Remaining()).To(BeZero())
	})

	It("should queue incoming packets at the router", func() {
		i := NewInterface(Config{
			Addr:          addr,
			BandwidthDown: 8 * units.Mbit,
			RouterLimit:   2,
		})

		for id := uint64(1); id <= 4; id++ {
			i.Receive(packet(id, 800), sink)
		}

		Expect(sink.delivered).To(HaveLen(1))
		Expect(i.QueuedRecv()).To(Equal(2))
		Expect(sink.dropped).To(HaveLen(1))
		Expect(i.Stats().PacketsDropped).To(Equal(uint64(1)))

		i.RefillBuckets(sink)
		Expect(sink.delivered).To(HaveLen(2))
		Expect(i.QueuedRecv()).To(Equal(1))

		i.RefillBuckets(sink)
		Expect(sink.delivered).To(HaveLen(3))
		Expect(i.QueuedRecv()).To(BeZero())
		Expect(i.IsRefillNeeded()).To(BeTrue())
	})

	It("should stop needing refills once traffic stops", func() {
		i := NewInterface(Config{Addr: addr, BandwidthUp: 8 * units.Mbit})
		i.Send(packet(1, 500), sink)

		i.RefillBuckets(sink)

		Expect(i.IsRefillNeeded()).To(BeFalse())
	})

	It("should align refills to the grid", func() {
		started := timing.SimulationStart.Add(300 * timing.Microsecond)
		i := NewInterface(Config{Addr: addr, BandwidthUp: units.Mbit, RefillStarted: started})

		now := started.Add(4*timing.Millisecond + 200*timing.Microsecond)
		Expect(i.NextRefillDelay(now)).To(Equal(800 * timing.Microsecond))

		onGrid := started.Add(2 * timing.Millisecond)
		Expect(i.NextRefillDelay(onGrid)).To(Equal(RefillInterval))
	})

	It("should deliver loopback traffic without shaping", func() {
		lo := NewLoopback(netip.MustParseAddr("127.0.0.1"))

		lo.Send(packet(1, 1<<20), sink)
		lo.Receive(packet(2, 1<<20), sink)

		Expect(lo.IsLoopback()).To(BeTrue())
		Expect(sink.delivered).To(HaveLen(2))
		Expect(sink.transmitted).To(BeEmpty())
		Expect(lo.IsRefillNeeded()).To(BeFalse())
	})
})

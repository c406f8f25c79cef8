package host

import (
	"context"
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/units"
)

func makeHost(id ID, ip string, seed byte) *Host {
	return New(Config{
		Info: Info{
			ID:   id,
			Name: "host",
			IP:   netip.MustParseAddr(ip),
		},
		BandwidthUp:   units.Mbit,
		BandwidthDown: units.Mbit,
		Seed:          [32]byte{seed},
		Processes: []ProcessConfig{
			{Path: "/bin/server", StartTime: timing.Second},
			{Name: "client", Path: "/bin/client"},
		},
	})
}

var _ = Describe("Host", func() {
	It("should pick interfaces by address", func() {
		h := makeHost(0, "11.0.0.1", 1)

		iface, ok := h.InterfaceFor(netip.MustParseAddr("11.0.0.1"))
		Expect(ok).To(BeTrue())
		Expect(iface).To(BeIdenticalTo(h.Internet()))

		iface, ok = h.InterfaceFor(netip.MustParseAddr("127.0.0.1"))
		Expect(ok).To(BeTrue())
		Expect(iface.IsLoopback()).To(BeTrue())

		_, ok = h.InterfaceFor(netip.MustParseAddr("11.0.0.2"))
		Expect(ok).To(BeFalse())

		Expect(h.OutboundInterface(h.IP())).To(BeIdenticalTo(h.Loopback()))
		Expect(h.OutboundInterface(netip.MustParseAddr("11.0.0.9"))).
			To(BeIdenticalTo(h.Internet()))
		Expect(h.Interfaces()).To(HaveLen(2))
	})

	It("should number packets uniquely", func() {
		h := makeHost(3, "11.0.0.1", 1)
		dst := netip.MustParseAddr("11.0.0.2")

		a := h.NewPacket(dst, 100, nil)
		b := h.NewPacket(dst, 100, nil)

		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(a.ID >> 40).To(Equal(uint64(3)))
		Expect(a.Source).To(Equal(h.IP()))
	})

	It("should draw the same numbers from the same seed", func() {
		a := makeHost(0, "11.0.0.1", 9)
		b := makeHost(0, "11.0.0.1", 9)
		c := makeHost(0, "11.0.0.1", 10)

		x := a.Random().Uint64()
		Expect(b.Random().Uint64()).To(Equal(x))
		Expect(c.Random().Uint64()).NotTo(Equal(x))
	})

	It("should track processes and threads", func() {
		h := makeHost(0, "11.0.0.1", 1)

		p, ok := h.Process(0)
		Expect(ok).To(BeTrue())
		Expect(p.Name()).To(Equal("/bin/server"))
		Expect(p.Config().StartTime).To(Equal(timing.Second))

		_, ok = h.Process(5)
		Expect(ok).To(BeFalse())

		p.MarkStarted()
		Expect(p.NewThread()).To(Equal(ThreadID(0)))
		Expect(p.NewThread()).To(Equal(ThreadID(1)))
		Expect(p.Threads()).To(HaveLen(2))

		p.MarkStopped()
		Expect(p.IsRunning()).To(BeFalse())
		Expect(p.Threads()).To(BeEmpty())
	})
})

var _ = Describe("Arena", func() {
	It("should index hosts by id and address", func() {
		a := NewArena([]*Host{
			makeHost(0, "11.0.0.1", 1),
			makeHost(1, "11.0.0.2", 2),
		})

		h, ok := a.Get(1)
		Expect(ok).To(BeTrue())
		Expect(h.IP()).To(Equal(netip.MustParseAddr("11.0.0.2")))

		_, ok = a.Get(2)
		Expect(ok).To(BeFalse())

		h, ok = a.ByIP(netip.MustParseAddr("11.0.0.1"))
		Expect(ok).To(BeTrue())
		Expect(h.ID()).To(Equal(ID(0)))
		Expect(a.Len()).To(Equal(2))
	})

	It("should panic on sparse ids", func() {
		Expect(func() {
			NewArena([]*Host{makeHost(1, "11.0.0.1", 1)})
		}).To(Panic())
	})
})

var _ = Describe("LoggingRuntime", func() {
	It("should flip process state and log", func() {
		logger, hook := test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		rt := LoggingRuntime{Logger: logger}
		h := makeHost(0, "11.0.0.1", 1)
		p, _ := h.Process(1)

		Expect(rt.StartProcess(context.Background(), h, p)).To(Succeed())
		Expect(p.IsRunning()).To(BeTrue())

		Expect(rt.StopProcess(context.Background(), h, p)).To(Succeed())
		Expect(p.IsRunning()).To(BeFalse())

		Expect(hook.Entries).To(HaveLen(2))
		Expect(hook.LastEntry().Message).To(Equal("process stopped"))
		Expect(hook.LastEntry().Data).To(HaveKeyWithValue("process", "client"))
	})
})

package apps

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/netsim/dns"
	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/simulation"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/units"
)

func app(path string, start, stop timing.SimulationTime, args ...string) host.ProcessConfig {
	return host.ProcessConfig{
		Name:      path,
		Path:      "/bin/" + path,
		Args:      args,
		StartTime: start,
		StopTime:  stop,
	}
}

var _ = Describe("Runtime", func() {
	var (
		names *dns.NameServer
		b     simulation.Builder
	)

	BeforeEach(func() {
		network, err := topology.NewNetwork(
			[]topology.Node{
				{ID: 0, BandwidthUp: 8 * units.Mbit, BandwidthDown: 8 * units.Mbit},
				{ID: 1, BandwidthUp: 8 * units.Mbit, BandwidthDown: 8 * units.Mbit},
			},
			[]topology.Edge{
				{Src: 0, Dst: 1, Latency: 10 * timing.Millisecond},
				{Src: 1, Dst: 0, Latency: 10 * timing.Millisecond},
			})
		Expect(err).NotTo(HaveOccurred())

		logger, _ := test.NewNullLogger()
		names = dns.NewNameServer()

		b = simulation.MakeBuilder().
			WithSeed(5).
			WithLogger(logger).
			WithNameServer(names).
			WithRuntime(NewRuntime(names, logger)).
			WithParallelism(2).
			WithStopTime(timing.Second).
			WithHeartbeatInterval(0).
			WithNetwork(network)
	})

	run := func(b simulation.Builder) []PingStats {
		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Run(context.Background())).To(Succeed())

		return CollectPingStats(s.Hosts())
	}

	It("should measure the round trip to an echo host", func() {
		stats := run(b.
			WithHost(simulation.HostSpec{
				Name:      "client",
				Node:      0,
				Processes: []host.ProcessConfig{app(Ping, 0, 0, "server", "3")},
			}).
			WithHost(simulation.HostSpec{
				Name:      "server",
				Node:      1,
				Processes: []host.ProcessConfig{app(Echo, 0, 0)},
			}))

		Expect(stats).To(HaveLen(1))
		Expect(stats[0].Host).To(Equal("client"))
		Expect(stats[0].Sent).To(Equal(3))
		Expect(stats[0].Received).To(Equal(3))
		Expect(stats[0].RTTs).To(HaveEach(20 * timing.Millisecond))
		Expect(stats[0].Loss()).To(BeZero())
		Expect(stats[0].MeanRTT()).To(Equal(20 * timing.Millisecond))
	})

	It("should schedule every further request as a retransmit", func() {
		s, err := b.
			WithHost(simulation.HostSpec{
				Name:      "client",
				Node:      0,
				Processes: []host.ProcessConfig{app(Ping, 0, 0, "server", "4")},
			}).
			WithHost(simulation.HostSpec{
				Name:      "server",
				Node:      1,
				Processes: []host.ProcessConfig{app(Echo, 0, 0)},
			}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		kinds := hooking.NewKindCountTracer()
		s.Pool().AcceptHook(kinds)

		Expect(s.Run(context.Background())).To(Succeed())

		Expect(kinds.KindCount(event.CallbackRetransmit.String())).To(Equal(uint64(3)))
		Expect(kinds.KindCount(event.CallbackExpire.String())).To(BeZero())
	})

	It("should lose every request without an echo process", func() {
		stats := run(b.
			WithHost(simulation.HostSpec{
				Name:      "client",
				Node:      0,
				Processes: []host.ProcessConfig{app(Ping, 0, 0, "server", "2")},
			}).
			WithHost(simulation.HostSpec{Name: "server", Node: 1}))

		Expect(stats[0].Sent).To(Equal(2))
		Expect(stats[0].Received).To(BeZero())
		Expect(stats[0].Loss().Float64()).To(Equal(1.0))
	})

	It("should answer over the loopback without delay", func() {
		stats := run(b.
			WithHost(simulation.HostSpec{
				Name: "solo",
				Node: 0,
				Processes: []host.ProcessConfig{
					app(Echo, 0, 0),
					app(Ping, timing.Millisecond, 0, "127.0.0.1", "2"),
				},
			}))

		Expect(stats[0].Received).To(Equal(2))
		Expect(stats[0].RTTs).To(HaveEach(timing.SimulationTime(0)))
	})

	It("should stop pinging when the process stops", func() {
		stats := run(b.
			WithHost(simulation.HostSpec{
				Name: "client",
				Node: 0,
				Processes: []host.ProcessConfig{
					app(Ping, 0, 250*timing.Millisecond, "server", "10"),
				},
			}).
			WithHost(simulation.HostSpec{
				Name:      "server",
				Node:      1,
				Processes: []host.ProcessConfig{app(Echo, 0, 0)},
			}))

		Expect(stats[0].Sent).To(Equal(3))
	})

	It("should fail the run on unknown targets", func() {
		s, err := b.
			WithHost(simulation.HostSpec{
				Name:      "client",
				Node:      0,
				Processes: []host.ProcessConfig{app(Ping, 0, 0, "nowhere")},
			}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background())).To(MatchError(ContainSubstring("unknown host")))
	})
})

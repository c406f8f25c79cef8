package simulation

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/netsim/dns"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/units"
	"github.com/sarchlab/netsim/worker"
)

func twoNodes() *topology.Network {
	n, err := topology.NewNetwork(
		[]topology.Node{
			{ID: 0, BandwidthUp: 8 * units.Mbit, BandwidthDown: 8 * units.Mbit},
			{ID: 1, BandwidthUp: 8 * units.Mbit, BandwidthDown: 8 * units.Mbit},
		},
		[]topology.Edge{
			{Src: 0, Dst: 1, Latency: 10 * timing.Millisecond},
			{Src: 1, Dst: 0, Latency: 10 * timing.Millisecond},
			{Src: 0, Dst: 0, Latency: 20 * timing.Millisecond},
			{Src: 1, Dst: 1, Latency: 20 * timing.Millisecond},
		})
	Expect(err).NotTo(HaveOccurred())

	return n
}

func process(start, stop timing.SimulationTime) host.ProcessConfig {
	return host.ProcessConfig{
		Name:      "app",
		Path:      "app",
		StartTime: start,
		StopTime:  stop,
	}
}

type timedCall struct {
	host string
	at   timing.SimulationTime
}

type callLog struct {
	lock  sync.Mutex
	calls []timedCall
}

func (l *callLog) add(ctx context.Context, h *host.Host) {
	now, _ := worker.CurrentTime(ctx)

	l.lock.Lock()
	defer l.lock.Unlock()

	l.calls = append(l.calls, timedCall{host: h.Name(), at: now.SimulationTime()})
}

func (l *callLog) get() []timedCall {
	l.lock.Lock()
	defer l.lock.Unlock()

	return append([]timedCall(nil), l.calls...)
}

var _ = Describe("Builder", func() {
	var (
		logger *logrus.Logger
		b      Builder
	)

	BeforeEach(func() {
		logger, _ = test.NewNullLogger()
		b = MakeBuilder().
			WithSeed(1).
			WithLogger(logger).
			WithStopTime(timing.Second).
			WithHeartbeatInterval(0).
			WithNetwork(twoNodes()).
			WithHost(HostSpec{Name: "a", Node: 0}).
			WithHost(HostSpec{Name: "b", Node: 1})
	})

	It("should panic without a network", func() {
		Expect(func() { _, _ = b.WithNetwork(nil).Build() }).To(Panic())
	})

	It("should panic without a stop time", func() {
		Expect(func() { _, _ = b.WithStopTime(0).Build() }).To(Panic())
	})

	It("should panic without hosts", func() {
		empty := MakeBuilder().WithStopTime(timing.Second).WithNetwork(twoNodes())
		Expect(func() { _, _ = empty.Build() }).To(Panic())
	})

	It("should panic if parallelism is not positive", func() {
		Expect(func() { _, _ = b.WithParallelism(0).Build() }).To(Panic())
	})

	It("should panic if the runahead is zero", func() {
		Expect(func() { _, _ = b.WithRunahead(0).Build() }).To(Panic())
	})

	It("should panic if a monitor port is set without monitoring", func() {
		Expect(func() { _, _ = b.WithMonitorPort(8080).Build() }).To(Panic())
	})

	It("should not share hosts between derived builders", func() {
		b1 := b.WithHost(HostSpec{Name: "c", Node: 0})
		b2 := b.WithHost(HostSpec{Name: "d", Node: 0})

		s1, err := b1.Build()
		Expect(err).NotTo(HaveOccurred())
		s2, err := b2.Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s1.Hosts().All()[2].Name()).To(Equal("c"))
		Expect(s2.Hosts().All()[2].Name()).To(Equal("d"))
	})

	It("should allocate addresses around explicit ones", func() {
		ns := dns.NewNameServer()
		s, err := b.
			WithNameServer(ns).
			WithHost(HostSpec{
				Name: "c",
				Node: 0,
				IP:   netip.MustParseAddr("11.0.0.1"),
			}).
			Build()
		Expect(err).NotTo(HaveOccurred())

		hosts := s.Hosts().All()
		Expect(hosts[0].IP()).To(Equal(netip.MustParseAddr("11.0.0.2")))
		Expect(hosts[1].IP()).To(Equal(netip.MustParseAddr("11.0.0.3")))
		Expect(hosts[2].IP()).To(Equal(netip.MustParseAddr("11.0.0.1")))

		rec, ok := ns.Lookup("b")
		Expect(ok).To(BeTrue())
		Expect(rec.IP).To(Equal(hosts[1].IP()))
	})

	It("should fail on duplicated names", func() {
		_, err := b.WithHost(HostSpec{Name: "a", Node: 0}).Build()

		Expect(err).To(HaveOccurred())
	})

	It("should fail on unknown network nodes", func() {
		_, err := b.WithHost(HostSpec{Name: "c", Node: 9}).Build()

		Expect(errors.Is(err, topology.ErrNoSuchNode)).To(BeTrue())
	})

	It("should fall back to the node bandwidths", func() {
		s, err := b.WithHost(HostSpec{
			Name:        "c",
			Node:        0,
			BandwidthUp: units.Mbit,
		}).Build()
		Expect(err).NotTo(HaveOccurred())

		iface := s.Hosts().All()[2].Internet()
		Expect(iface.SendBucket().RefillQuantum()).To(Equal(units.Bytes(125)))
		Expect(iface.RecvBucket().RefillQuantum()).To(Equal(units.Bytes(1000)))
	})

	It("should use the smallest edge latency as runahead", func() {
		s, err := b.WithRunahead(timing.Millisecond).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Runahead()).To(Equal(10 * timing.Millisecond))
	})

	It("should give hosts the same seeds for the same run seed", func() {
		s1, err := b.Build()
		Expect(err).NotTo(HaveOccurred())
		s2, err := b.WithNameServer(dns.NewNameServer()).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s1.Seed()).To(Equal(s2.Seed()))
		Expect(s1.Hosts().All()[1].Random().Uint64()).
			To(Equal(s2.Hosts().All()[1].Random().Uint64()))
	})
})

var _ = Describe("Simulation", func() {
	var (
		mockCtrl *gomock.Controller
		runtime  *MockRuntime
		logger   *logrus.Logger
		logs     *test.Hook
		b        Builder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		runtime = NewMockRuntime(mockCtrl)
		logger, logs = test.NewNullLogger()

		b = MakeBuilder().
			WithSeed(1).
			WithLogger(logger).
			WithRuntime(runtime).
			WithParallelism(2).
			WithStopTime(350 * timing.Millisecond).
			WithHeartbeatInterval(0).
			WithNetwork(twoNodes()).
			WithHost(HostSpec{
				Name:      "a",
				Node:      0,
				Processes: []host.ProcessConfig{process(0, 200*timing.Millisecond)},
			}).
			WithHost(HostSpec{
				Name:      "b",
				Node:      1,
				Processes: []host.ProcessConfig{process(50*timing.Millisecond, 0)},
			})
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start and stop processes at their times", func() {
		started, stopped := &callLog{}, &callLog{}

		runtime.EXPECT().
			StartProcess(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, h *host.Host, _ *host.Process) error {
				started.add(ctx, h)
				return nil
			}).
			Times(2)
		runtime.EXPECT().
			StopProcess(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, h *host.Host, _ *host.Process) error {
				stopped.add(ctx, h)
				return nil
			})

		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background())).To(Succeed())

		Expect(started.get()).To(ConsistOf(
			timedCall{host: "a", at: 0},
			timedCall{host: "b", at: 50 * timing.Millisecond},
		))
		Expect(stopped.get()).To(ConsistOf(
			timedCall{host: "a", at: 200 * timing.Millisecond},
		))
		Expect(s.Now()).To(Equal(
			timing.FromSimulationTime(350 * timing.Millisecond)))
	})

	It("should only run once", func() {
		runtime.EXPECT().StartProcess(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
		runtime.EXPECT().StopProcess(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Run(context.Background())).To(MatchError(ErrAlreadyRun))
	})

	It("should abort when a process fails to start", func() {
		boom := errors.New("boom")
		runtime.EXPECT().
			StartProcess(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(boom)

		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background())).To(MatchError(boom))
	})

	It("should stop when the context is canceled", func() {
		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(s.Run(ctx)).To(MatchError(context.Canceled))
	})

	It("should log heartbeats for every interface", func() {
		runtime.EXPECT().StartProcess(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
		runtime.EXPECT().StopProcess(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

		s, err := b.WithHeartbeatInterval(100 * timing.Millisecond).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background())).To(Succeed())

		beats := 0
		for _, e := range logs.AllEntries() {
			if e.Message == "heartbeat" {
				beats++
			}
		}

		// Three beats, two hosts, two interfaces each.
		Expect(beats).To(Equal(12))
	})

	It("should finish on a network without links", func() {
		single, err := topology.NewNetwork(
			[]topology.Node{{ID: 0}}, nil)
		Expect(err).NotTo(HaveOccurred())

		s, err := MakeBuilder().
			WithLogger(logger).
			WithRuntime(runtime).
			WithStopTime(timing.Second).
			WithHeartbeatInterval(100 * timing.Millisecond).
			WithRunahead(timing.Millisecond).
			WithNetwork(single).
			WithHost(HostSpec{Name: "alone", Node: 0}).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Runahead()).To(Equal(timing.Millisecond))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Expect(s.Run(ctx)).To(Succeed())
		Expect(s.Now()).To(Equal(timing.FromSimulationTime(timing.Second)))
		Expect(s.Pool().Round()).To(BeNumerically(">=", 10))
	})

	It("should wait while paused", func() {
		runtime.EXPECT().StartProcess(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
		runtime.EXPECT().StopProcess(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		s.Pause()
		Expect(s.IsPaused()).To(BeTrue())

		done := make(chan error, 1)
		go func() { done <- s.Run(context.Background()) }()

		Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
		Expect(s.Now()).To(Equal(timing.SimulationStart))

		s.Continue()
		Expect(s.IsPaused()).To(BeFalse())

		var runErr error
		Eventually(done).Should(Receive(&runErr))
		Expect(runErr).NotTo(HaveOccurred())
	})

	It("should report the traffic of every host", func() {
		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		stats := s.Stats()
		Expect(stats).To(HaveLen(2))
		Expect(stats[0].Name).To(Equal("a"))
		Expect(stats[1].Internet.PacketsSent).To(BeZero())
	})

	It("should describe hosts by name", func() {
		s, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.HostNames()).To(Equal([]string{"a", "b"}))

		detail, ok := s.HostDetail("b")
		Expect(ok).To(BeTrue())
		Expect(detail).To(BeAssignableToTypeOf(&HostDetail{}))

		d := detail.(*HostDetail)
		Expect(d.Name).To(Equal("b"))
		Expect(d.Node).To(Equal(topology.NodeID(1)))
		Expect(d.Processes).To(Equal([]string{"app"}))
		Expect(d.Running).To(BeZero())

		_, ok = s.HostDetail("c")
		Expect(ok).To(BeFalse())
	})

	It("should record events when asked to", func() {
		runtime.EXPECT().StartProcess(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
		runtime.EXPECT().StopProcess(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

		path := GinkgoT().TempDir() + "/run/events"
		s, err := b.WithRecording(path).Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.DataRecorder().ListTables()).To(ContainElement("events"))
		Expect(s.Terminate()).To(Succeed())
		Expect(path + ".sqlite3").To(BeAnExistingFile())
	})
})

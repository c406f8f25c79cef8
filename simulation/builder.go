package simulation

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/netsim/datarecording"
	"github.com/sarchlab/netsim/dns"
	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/metrics"
	"github.com/sarchlab/netsim/monitoring"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/tracing"
	"github.com/sarchlab/netsim/units"
	"github.com/sarchlab/netsim/worker"
)

// HostSpec describes a host to create.
type HostSpec struct {
	Name string

	// IP is allocated from the name server when left invalid.
	IP   netip.Addr
	Node topology.NodeID

	// Zero bandwidths fall back to the bandwidths of the network node.
	BandwidthUp   units.BitRate
	BandwidthDown units.BitRate
	RouterLimit   int

	Processes []host.ProcessConfig
}

// Builder can be used to build a simulation.
type Builder struct {
	seed            *uint64
	stopTime        timing.SimulationTime
	bootstrapEnd    timing.SimulationTime
	heartbeat       timing.SimulationTime
	runahead        timing.SimulationTime
	parallelism     int
	useShortestPath bool

	network *topology.Network
	hosts   []HostSpec
	names   *dns.NameServer
	runtime host.Runtime
	hooks   []hooking.Hook
	tracers []tracing.Tracer
	logger  logrus.FieldLogger

	monitorOn     bool
	monitorPort   int
	recordOn      bool
	recordingPath string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		heartbeat:       timing.Second,
		runahead:        10 * timing.Millisecond,
		parallelism:     1,
		useShortestPath: true,
	}
}

// WithSeed fixes the seed of the run.
func (b Builder) WithSeed(seed uint64) Builder {
	b.seed = &seed
	return b
}

// WithStopTime sets the simulation time at which the run ends.
func (b Builder) WithStopTime(t timing.SimulationTime) Builder {
	b.stopTime = t
	return b
}

// WithBootstrapEndTime sets the end of the bootstrap window.
func (b Builder) WithBootstrapEndTime(t timing.SimulationTime) Builder {
	b.bootstrapEnd = t
	return b
}

// WithHeartbeatInterval sets how often hosts log their counters. Zero turns
// heartbeats off.
func (b Builder) WithHeartbeatInterval(t timing.SimulationTime) Builder {
	b.heartbeat = t
	return b
}

// WithRunahead sets the round length used when the network has no positive
// edge latency.
func (b Builder) WithRunahead(t timing.SimulationTime) Builder {
	b.runahead = t
	return b
}

// WithParallelism sets the number of worker threads.
func (b Builder) WithParallelism(n int) Builder {
	b.parallelism = n
	return b
}

// WithShortestPath selects between best-path routing and direct edges.
func (b Builder) WithShortestPath(use bool) Builder {
	b.useShortestPath = use
	return b
}

// WithNetwork sets the network graph.
func (b Builder) WithNetwork(n *topology.Network) Builder {
	b.network = n
	return b
}

// WithHost adds a host. Hosts get ids in the order they are added.
func (b Builder) WithHost(spec HostSpec) Builder {
	b.hosts = append(b.hosts[:len(b.hosts):len(b.hosts)], spec)
	return b
}

// WithNameServer sets the name server the hosts register with.
func (b Builder) WithNameServer(ns *dns.NameServer) Builder {
	b.names = ns
	return b
}

// WithRuntime sets what runs on the hosts.
func (b Builder) WithRuntime(rt host.Runtime) Builder {
	b.runtime = rt
	return b
}

// WithHook attaches a hook to the workers.
func (b Builder) WithHook(h hooking.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], h)
	return b
}

// WithTracer follows every packet with the tracer.
func (b Builder) WithTracer(t tracing.Tracer) Builder {
	b.tracers = append(b.tracers[:len(b.tracers):len(b.tracers)], t)
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l logrus.FieldLogger) Builder {
	b.logger = l
	return b
}

// WithMonitor turns the monitoring server on.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithRecording records executed events into a SQLite database at path,
// without the file extension. An empty path picks a name from the run id.
func (b Builder) WithRecording(path string) Builder {
	b.recordOn = true
	b.recordingPath = path

	return b
}

func (b Builder) parametersMustBeValid() {
	if b.network == nil {
		panic("a network is required")
	}

	if b.stopTime == 0 {
		panic("stop time must be positive")
	}

	if b.parallelism < 1 {
		panic("parallelism must be positive")
	}

	if b.runahead == 0 {
		panic("runahead must be positive")
	}

	if len(b.hosts) == 0 {
		panic("at least one host is required")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	if b.logger == nil {
		b.logger = logrus.StandardLogger()
	}

	if b.names == nil {
		b.names = dns.NewNameServer()
	}

	s := &Simulation{
		id:        xid.New().String(),
		driver:    NewDriver(b.seed),
		network:   b.network,
		names:     b.names,
		metrics:   metrics.New(),
		stopTime:  b.stopTime,
		heartbeat: b.heartbeat,
		runahead:  b.runahead,
	}
	s.logger = b.logger.WithField("simulation", s.id)
	s.now.Store(uint64(timing.SimulationStart))

	if latency, ok := b.network.MinLatency(); ok && latency > 0 {
		s.runahead = latency
	}

	hosts, err := b.buildHosts(s.driver)
	if err != nil {
		return nil, err
	}

	s.hosts = host.NewArena(hosts)
	s.scheduler = event.NewScheduler(len(hosts))
	s.pool = worker.NewPool(worker.Config{
		Scheduler:       s.scheduler,
		Hosts:           s.hosts,
		Network:         b.network,
		Runtime:         b.runtime,
		UseShortestPath: b.useShortestPath,
		BootstrapEnd:    timing.FromSimulationTime(b.bootstrapEnd),
		NumWorkers:      b.parallelism,
		Logger:          b.logger,
		Metrics:         s.metrics,
	})

	for _, h := range b.hooks {
		s.pool.AcceptHook(h)
	}

	for _, t := range b.tracers {
		tracing.CollectTrace(s.pool, t)
	}

	if b.recordOn {
		if err := b.buildRecorder(s); err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		if err := b.buildMonitor(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) buildHosts(driver *Driver) ([]*host.Host, error) {
	for _, spec := range b.hosts {
		if !spec.IP.IsValid() {
			continue
		}

		if _, err := b.names.Register(spec.Name, spec.IP); err != nil {
			return nil, fmt.Errorf("host %s: %w", spec.Name, err)
		}
	}

	hosts := make([]*host.Host, 0, len(b.hosts))

	for i, spec := range b.hosts {
		node, ok := b.network.Node(spec.Node)
		if !ok {
			return nil, fmt.Errorf("host %s: network node %d: %w",
				spec.Name, spec.Node, topology.ErrNoSuchNode)
		}

		ip := spec.IP
		if !ip.IsValid() {
			var err error

			ip, err = b.names.AllocateAddr()
			if err != nil {
				return nil, fmt.Errorf("host %s: %w", spec.Name, err)
			}

			if _, err := b.names.Register(spec.Name, ip); err != nil {
				return nil, fmt.Errorf("host %s: %w", spec.Name, err)
			}
		}

		up, down := spec.BandwidthUp, spec.BandwidthDown
		if up == 0 {
			up = node.BandwidthUp
		}

		if down == 0 {
			down = node.BandwidthDown
		}

		hosts = append(hosts, host.New(host.Config{
			Info: host.Info{
				ID:   host.ID(i),
				Name: spec.Name,
				IP:   ip,
				Node: spec.Node,
			},
			BandwidthUp:   up,
			BandwidthDown: down,
			RouterLimit:   spec.RouterLimit,
			Seed:          driver.NextSeed(),
			Processes:     spec.Processes,
		}))
	}

	return hosts, nil
}

func (b Builder) buildRecorder(s *Simulation) error {
	path := b.recordingPath
	if path == "" {
		path = "netsim_" + s.id
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("recording: %w", err)
	}

	s.recorder = datarecording.New(path)
	s.pool.AcceptHook(datarecording.NewEventTracer(s.recorder))
	tracing.CollectTrace(s.pool, tracing.NewDBTracer(s.recorder))

	return nil
}

func (b Builder) buildMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor().WithLogger(b.logger)
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterSimulation(s)
	s.monitor.RegisterProcessors(s.pool)
	s.monitor.RegisterHosts(s)
	s.monitor.RegisterRegistry(s.metrics.Registry)

	_, err := s.monitor.StartServer()

	return err
}

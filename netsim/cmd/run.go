package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/netsim/apps"
	"github.com/sarchlab/netsim/config"
	"github.com/sarchlab/netsim/dns"
	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/simulation"
	"github.com/sarchlab/netsim/tracing"
	"github.com/sarchlab/netsim/units"
)

type runOptions struct {
	configPath       string
	seed             uint64
	stopTime         string
	bootstrapEndTime string
	heartbeat        string
	useShortestPath  bool
	parallelism      int
	logLevel         string
	outputDirectory  string
	monitorPort      int
	monitor          bool
	record           bool
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}

	c := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation.",
		Long: "`run --config FILE` runs the simulation described by FILE. " +
			"Flags override the file and the NETSIM_* environment variables.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}

			return runSimulation(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	o.bindFlags(c)

	return c
}

func (o *runOptions) bindFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&o.configPath, "config", "", "Configuration file")
	f.Uint64Var(&o.seed, "seed", 0, "Seed of all random sources")
	f.StringVar(&o.stopTime, "stop-time", "", "Simulation time to stop at, such as \"10 s\"")
	f.StringVar(&o.bootstrapEndTime, "bootstrap-end-time", "", "End of the bootstrap window")
	f.StringVar(&o.heartbeat, "heartbeat-interval", "", "Interval of host heartbeats")
	f.BoolVar(&o.useShortestPath, "use-shortest-path", true, "Route along the best path instead of the direct edge")
	f.IntVar(&o.parallelism, "parallelism", 0, "Number of worker threads")
	f.StringVar(&o.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	f.StringVar(&o.outputDirectory, "output-directory", "", "Directory for recorded data")
	f.IntVar(&o.monitorPort, "monitor-port", 0, "Port of the monitoring server, implies --monitor")
	f.BoolVar(&o.monitor, "monitor", false, "Serve the monitoring API")
	f.BoolVar(&o.record, "record", false, "Record executed events into SQLite")
	_ = c.MarkFlagRequired("config")
}

// load reads the configuration and applies the environment, the flags that
// were set and the defaults, in that order.
func (o *runOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := o.apply(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	g := &cfg.General

	if f.Changed("seed") {
		seed := o.seed
		g.Seed = &seed
	}

	if f.Changed("parallelism") {
		g.Parallelism = o.parallelism
	}

	if f.Changed("log-level") {
		g.LogLevel = o.logLevel
	}

	if f.Changed("output-directory") {
		g.DataDirectory = o.outputDirectory
	}

	if f.Changed("record") {
		g.Record = o.record
	}

	if f.Changed("monitor") {
		g.Monitor = o.monitor
	}

	if f.Changed("monitor-port") {
		g.Monitor = true
		g.MonitorPort = o.monitorPort
	}

	if f.Changed("use-shortest-path") {
		use := o.useShortestPath
		cfg.Network.UseShortestPath = &use
	}

	intervals := []struct {
		flag  string
		value string
		set   func(units.Interval)
	}{
		{"stop-time", o.stopTime, func(v units.Interval) { g.StopTime = v }},
		{"bootstrap-end-time", o.bootstrapEndTime, func(v units.Interval) { g.BootstrapEndTime = v }},
		{"heartbeat-interval", o.heartbeat, func(v units.Interval) { g.HeartbeatInterval = &v }},
	}

	for _, i := range intervals {
		if !f.Changed(i.flag) {
			continue
		}

		t, err := units.ParseInterval(i.value)
		if err != nil {
			return fmt.Errorf("--%s: %w", i.flag, err)
		}

		i.set(units.Interval(t))
	}

	return nil
}

func runSimulation(ctx context.Context, cfg *config.Config, out io.Writer) error {
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}

	logger := logrus.StandardLogger()
	logger.SetLevel(level)

	b, err := simulation.FromConfig(cfg)
	if err != nil {
		return err
	}

	names := dns.NewNameServer()
	r := &report{
		kinds:   hooking.NewKindCountTracer(),
		flights: tracing.NewAverageTimeTracer(nil),
		total:   tracing.NewTotalTimeTracer(nil),
	}

	s, err := b.
		WithLogger(logger).
		WithNameServer(names).
		WithRuntime(apps.NewRuntime(names, logger)).
		WithHook(r.kinds).
		WithTracer(r.flights).
		WithTracer(r.total).
		Build()
	if err != nil {
		return err
	}
	defer s.Terminate()

	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	start := time.Now()
	if err := s.Run(ctx); err != nil {
		return err
	}

	r.print(out, s, time.Since(start))

	return nil
}

// report collects what the run command prints after the simulation.
type report struct {
	kinds   *hooking.KindCountTracer
	flights *tracing.AverageTimeTracer
	total   *tracing.TotalTimeTracer
}

func (r *report) print(out io.Writer, s *simulation.Simulation, wall time.Duration) {
	kinds := r.kinds
	seed := s.Seed()

	fmt.Fprintf(out, "simulation %s finished at %v in %v\n",
		s.ID(), s.Now().SimulationTime(), wall.Round(time.Millisecond))
	fmt.Fprintf(out, "seed %x, %d rounds, %d events\n",
		seed[:8], s.Pool().Round(), kinds.Total())

	for _, kind := range kinds.KindNames() {
		fmt.Fprintf(out, "  %-16s %d\n", kind, kinds.KindCount(kind))
	}

	fmt.Fprintf(out, "packets: %d delivered, %d dropped, %d in flight, mean flight time %v\n",
		r.flights.TotalCount(), r.total.Aborted(), r.total.InFlight(),
		r.flights.AverageTime())

	fmt.Fprintln(out, "hosts:")

	for _, h := range s.Stats() {
		fmt.Fprintf(out, "  %-16s sent %d (%s) received %d (%s) dropped %d\n",
			h.Name,
			h.Internet.PacketsSent, h.Internet.BytesSent.HumanSize(),
			h.Internet.PacketsReceived, h.Internet.BytesReceived.HumanSize(),
			h.Internet.PacketsDropped)
	}

	pings := apps.CollectPingStats(s.Hosts())
	if len(pings) == 0 {
		return
	}

	fmt.Fprintln(out, "ping:")

	for _, p := range pings {
		fmt.Fprintf(out, "  %s -> %s: %d/%d replies, loss %v, mean rtt %v\n",
			p.Host, p.Target, p.Received, p.Sent, p.Loss(), p.MeanRTT())
	}
}

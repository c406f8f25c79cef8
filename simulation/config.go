package simulation

import (
	"fmt"
	"net/netip"
	"path/filepath"

	"github.com/sarchlab/netsim/config"
	"github.com/sarchlab/netsim/host"
)

// FromConfig creates a builder from a validated configuration. The runtime,
// the logger and the hooks are left for the caller to add.
func FromConfig(cfg *config.Config) (Builder, error) {
	g := cfg.General

	network, err := cfg.BuildNetwork()
	if err != nil {
		return Builder{}, err
	}

	b := MakeBuilder().
		WithStopTime(g.StopTime.SimulationTime()).
		WithBootstrapEndTime(g.BootstrapEndTime.SimulationTime()).
		WithShortestPath(cfg.UseShortestPath()).
		WithNetwork(network)

	if g.Seed != nil {
		b = b.WithSeed(*g.Seed)
	}

	if g.Parallelism > 0 {
		b = b.WithParallelism(g.Parallelism)
	}

	if g.HeartbeatInterval != nil {
		b = b.WithHeartbeatInterval(g.HeartbeatInterval.SimulationTime())
	}

	if g.Runahead != nil {
		b = b.WithRunahead(g.Runahead.SimulationTime())
	}

	if g.Monitor {
		b = b.WithMonitor().WithMonitorPort(g.MonitorPort)
	}

	if g.Record {
		path := ""
		if g.DataDirectory != "" {
			path = filepath.Join(g.DataDirectory, "events")
		}

		b = b.WithRecording(path)
	}

	for _, e := range cfg.HostEntries() {
		spec, err := hostSpec(cfg, e)
		if err != nil {
			return Builder{}, err
		}

		b = b.WithHost(spec)
	}

	return b, nil
}

func hostSpec(cfg *config.Config, e config.HostEntry) (HostSpec, error) {
	opts := cfg.Options(e)

	spec := HostSpec{
		Name:        e.Name,
		Node:        e.NetworkNodeID,
		RouterLimit: opts.RouterQueueLimit,
	}

	if opts.BandwidthUp != nil {
		spec.BandwidthUp = *opts.BandwidthUp
	}

	if opts.BandwidthDown != nil {
		spec.BandwidthDown = *opts.BandwidthDown
	}

	if e.IPAddr != "" {
		ip, err := netip.ParseAddr(e.IPAddr)
		if err != nil {
			return HostSpec{}, fmt.Errorf("host %s: %w", e.Name, err)
		}

		spec.IP = ip
	}

	for _, p := range e.Processes {
		pc := host.ProcessConfig{
			Name:        filepath.Base(p.Path),
			Path:        p.Path,
			Args:        p.Args,
			Environment: p.Environment,
			StartTime:   p.StartTime.SimulationTime(),
		}

		if p.StopTime != nil {
			pc.StopTime = p.StopTime.SimulationTime()
		}

		spec.Processes = append(spec.Processes, pc)
	}

	return spec, nil
}

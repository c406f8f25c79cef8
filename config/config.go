// Package config loads the description of a simulation: run options, the
// network graph and the hosts with their processes.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/shirou/gopsutil/cpu"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/units"
)

// Defaults applied to options the file leaves out.
const (
	DefaultHeartbeatInterval = units.Interval(timing.Second)
	DefaultRunahead          = units.Interval(10 * timing.Millisecond)
	DefaultLogLevel          = "info"
)

// Config is the whole simulation description.
type Config struct {
	General      General               `yaml:"general"`
	Network      Network               `yaml:"network"`
	Topology     Topology              `yaml:"topology"`
	HostDefaults HostOptions           `yaml:"host_defaults"`
	Hosts        map[string]HostConfig `yaml:"hosts"`

	dir string
}

// General holds the run options.
type General struct {
	StopTime          units.Interval  `yaml:"stop_time"`
	Seed              *uint64         `yaml:"seed"`
	Parallelism       int             `yaml:"parallelism"`
	BootstrapEndTime  units.Interval  `yaml:"bootstrap_end_time"`
	HeartbeatInterval *units.Interval `yaml:"heartbeat_interval"`
	Runahead          *units.Interval `yaml:"runahead"`
	LogLevel          string          `yaml:"log_level"`
	DataDirectory     string          `yaml:"data_directory"`
	Record            bool            `yaml:"record"`
	MonitorPort       int             `yaml:"monitor_port"`
	Monitor           bool            `yaml:"monitor"`
}

// Network holds routing options.
type Network struct {
	UseShortestPath *bool `yaml:"use_shortest_path"`
}

// Topology is the network graph, given inline or in a separate file.
type Topology struct {
	File                 string `yaml:"file"`
	topology.Description `yaml:",inline"`
}

// HostOptions are the interface options of a host.
type HostOptions struct {
	BandwidthDown    *units.BitRate `yaml:"bandwidth_down"`
	BandwidthUp      *units.BitRate `yaml:"bandwidth_up"`
	RouterQueueLimit int            `yaml:"router_queue_limit"`
}

// HostConfig describes one host, or Quantity identical hosts.
type HostConfig struct {
	HostOptions `yaml:",inline"`

	NetworkNodeID topology.NodeID `yaml:"network_node_id"`
	IPAddr        string          `yaml:"ip_addr"`
	Quantity      int             `yaml:"quantity"`
	Processes     []ProcessConfig `yaml:"processes"`
}

// ProcessConfig describes a process started on a host.
type ProcessConfig struct {
	Path        string            `yaml:"path"`
	Args        []string          `yaml:"args"`
	Environment map[string]string `yaml:"environment"`
	StartTime   units.Interval    `yaml:"start_time"`
	StopTime    *units.Interval   `yaml:"stop_time"`
}

// Parse decodes a YAML configuration. Relative topology files are resolved
// against dir.
func Parse(data []byte, dir string) (*Config, error) {
	c := &Config{dir: dir}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return c, nil
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data, filepath.Dir(path))
}

// ApplyDefaults fills in the options left out.
func (c *Config) ApplyDefaults() {
	g := &c.General

	if g.Parallelism == 0 {
		g.Parallelism = defaultParallelism()
	}

	if g.HeartbeatInterval == nil {
		d := DefaultHeartbeatInterval
		g.HeartbeatInterval = &d
	}

	if g.Runahead == nil {
		d := DefaultRunahead
		g.Runahead = &d
	}

	if g.LogLevel == "" {
		g.LogLevel = DefaultLogLevel
	}

	if c.Network.UseShortestPath == nil {
		t := true
		c.Network.UseShortestPath = &t
	}
}

func defaultParallelism() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 1
	}

	return n
}

// UseShortestPath tells if packets follow the best path rather than the
// direct edge.
func (c *Config) UseShortestPath() bool {
	return c.Network.UseShortestPath == nil || *c.Network.UseShortestPath
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() (logrus.Level, error) {
	level := c.General.LogLevel
	if level == "" {
		level = DefaultLogLevel
	}

	return logrus.ParseLevel(level)
}

// BuildNetwork builds the network graph from the inline description or the
// topology file.
func (c *Config) BuildNetwork() (*topology.Network, error) {
	if c.Topology.File == "" {
		return c.Topology.Build()
	}

	if len(c.Topology.Nodes) > 0 || len(c.Topology.Edges) > 0 {
		return nil, errors.New("topology: give either a file or an inline graph")
	}

	path := c.Topology.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}

	return topology.Load(path)
}

// HostEntry is one host after expanding quantities.
type HostEntry struct {
	Name string
	HostConfig
}

// HostEntries lists the hosts sorted by name. A host with a quantity above
// one expands to that many hosts with the index appended to the name.
func (c *Config) HostEntries() []HostEntry {
	names := make([]string, 0, len(c.Hosts))
	for name := range c.Hosts {
		names = append(names, name)
	}

	sort.Strings(names)

	var entries []HostEntry

	for _, name := range names {
		hc := c.Hosts[name]

		if hc.Quantity <= 1 {
			entries = append(entries, HostEntry{Name: name, HostConfig: hc})
			continue
		}

		for i := 1; i <= hc.Quantity; i++ {
			entry := HostEntry{Name: name + strconv.Itoa(i), HostConfig: hc}
			entry.IPAddr = ""
			entries = append(entries, entry)
		}
	}

	return entries
}

// Options returns the interface options of the host, falling back to the
// host defaults.
func (c *Config) Options(e HostEntry) HostOptions {
	o := e.HostOptions

	if o.BandwidthDown == nil {
		o.BandwidthDown = c.HostDefaults.BandwidthDown
	}

	if o.BandwidthUp == nil {
		o.BandwidthUp = c.HostDefaults.BandwidthUp
	}

	if o.RouterQueueLimit == 0 {
		o.RouterQueueLimit = c.HostDefaults.RouterQueueLimit
	}

	return o
}

// Validate checks the configuration. It expects defaults to be applied.
func (c *Config) Validate() error {
	g := c.General

	if g.StopTime == 0 {
		return errors.New("general.stop_time is required")
	}

	if g.Parallelism < 1 {
		return fmt.Errorf("general.parallelism must be positive, got %d",
			g.Parallelism)
	}

	if g.HeartbeatInterval != nil && *g.HeartbeatInterval == 0 {
		return errors.New("general.heartbeat_interval must be positive")
	}

	if g.Runahead != nil && *g.Runahead == 0 {
		return errors.New("general.runahead must be positive")
	}

	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("general.log_level: %w", err)
	}

	network, err := c.BuildNetwork()
	if err != nil {
		return err
	}

	return c.validateHosts(network)
}

func (c *Config) validateHosts(network *topology.Network) error {
	if len(c.Hosts) == 0 {
		return errors.New("no hosts configured")
	}

	ips := make(map[netip.Addr]string)

	for _, e := range c.HostEntries() {
		if _, ok := network.Node(e.NetworkNodeID); !ok {
			return fmt.Errorf("host %s: network node %d: %w",
				e.Name, e.NetworkNodeID, topology.ErrNoSuchNode)
		}

		for i, p := range e.Processes {
			if p.Path == "" {
				return fmt.Errorf("host %s: process %d has no path", e.Name, i)
			}

			if p.StopTime != nil && *p.StopTime <= p.StartTime {
				return fmt.Errorf("host %s: process %s stops before it starts",
					e.Name, p.Path)
			}
		}

		if e.IPAddr == "" {
			continue
		}

		ip, err := netip.ParseAddr(e.IPAddr)
		if err != nil {
			return fmt.Errorf("host %s: %w", e.Name, err)
		}

		if other, dup := ips[ip]; dup {
			return fmt.Errorf("hosts %s and %s share the address %v",
				other, e.Name, ip)
		}

		ips[ip] = e.Name
	}

	return nil
}

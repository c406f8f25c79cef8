package host

import (
	"fmt"

	"github.com/sarchlab/netsim/timing"
)

// ProcessID identifies a process within its host.
type ProcessID uint32

// ThreadID identifies a thread within its process.
type ThreadID uint32

// ProcessConfig describes a process to run on a host. A zero StopTime means
// the process runs until the end of the simulation.
type ProcessConfig struct {
	Name        string
	Path        string
	Args        []string
	Environment map[string]string
	StartTime   timing.SimulationTime
	StopTime    timing.SimulationTime
}

// A Process is a program the host runtime executes.
type Process struct {
	id     ProcessID
	config ProcessConfig

	running    bool
	nextThread ThreadID
	threads    []ThreadID
}

func newProcess(id ProcessID, c ProcessConfig) *Process {
	if c.Name == "" {
		c.Name = c.Path
	}

	return &Process{id: id, config: c}
}

// ID returns the process id.
func (p *Process) ID() ProcessID {
	return p.id
}

// Name returns the process name.
func (p *Process) Name() string {
	return p.config.Name
}

// Config returns the process configuration.
func (p *Process) Config() ProcessConfig {
	return p.config
}

// IsRunning tells if the process has started and not stopped yet.
func (p *Process) IsRunning() bool {
	return p.running
}

// MarkStarted records that the process is running.
func (p *Process) MarkStarted() {
	p.running = true
}

// MarkStopped records that the process stopped and forgets its threads.
func (p *Process) MarkStopped() {
	p.running = false
	p.threads = nil
}

// NewThread allocates a thread id.
func (p *Process) NewThread() ThreadID {
	t := p.nextThread
	p.nextThread++
	p.threads = append(p.threads, t)

	return t
}

// Threads returns the ids of the live threads.
func (p *Process) Threads() []ThreadID {
	return p.threads
}

func (p *Process) String() string {
	return fmt.Sprintf("%s[%d]", p.config.Name, p.id)
}

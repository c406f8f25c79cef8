// Package simulation puts the engine together: it builds the hosts, drives
// the worker pool round by round until the stop time and offers pause and
// continue in between.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/netsim/datarecording"
	"github.com/sarchlab/netsim/dns"
	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/internal/poison"
	"github.com/sarchlab/netsim/metrics"
	"github.com/sarchlab/netsim/monitoring"
	"github.com/sarchlab/netsim/netif"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
	"github.com/sarchlab/netsim/worker"
)

// ErrLockUnavailable is returned when a lock of the engine was poisoned by a
// panicking holder. The run cannot continue.
var ErrLockUnavailable = poison.ErrLockUnavailable

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("simulation already run")

// A Simulation is a configured run of the engine.
type Simulation struct {
	id     string
	driver *Driver
	logger logrus.FieldLogger

	network   *topology.Network
	names     *dns.NameServer
	hosts     *host.Arena
	scheduler *event.Scheduler
	pool      *worker.Pool
	metrics   *metrics.Engine
	monitor   *monitoring.Monitor
	recorder  datarecording.DataRecorder

	stopTime  timing.SimulationTime
	heartbeat timing.SimulationTime
	runahead  timing.SimulationTime

	ran atomic.Bool
	now atomic.Uint64

	pauseLock sync.Mutex
	paused    bool
	resume    chan struct{}

	roundLock sync.Mutex
}

// ID returns the unique id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Seed returns the seed every random source of the run derives from.
func (s *Simulation) Seed() [SeedSize]byte {
	return s.driver.Seed()
}

// Hosts returns the hosts.
func (s *Simulation) Hosts() *host.Arena {
	return s.hosts
}

// NameServer returns the name server the hosts are registered with.
func (s *Simulation) NameServer() *dns.NameServer {
	return s.names
}

// Network returns the network graph.
func (s *Simulation) Network() *topology.Network {
	return s.network
}

// Pool returns the worker pool.
func (s *Simulation) Pool() *worker.Pool {
	return s.pool
}

// Metrics returns the Prometheus collectors of the run.
func (s *Simulation) Metrics() *metrics.Engine {
	return s.metrics
}

// Monitor returns the monitor, nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// DataRecorder returns the recorder, nil if recording is off.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.recorder
}

// Runahead returns the length of a round.
func (s *Simulation) Runahead() timing.SimulationTime {
	return s.runahead
}

// Now returns the emulated time all hosts have reached.
func (s *Simulation) Now() timing.EmulatedTime {
	return timing.EmulatedTime(s.now.Load())
}

// Pause makes the run stop before the next round.
func (s *Simulation) Pause() {
	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	if !s.paused {
		s.paused = true
		s.resume = make(chan struct{})
	}
}

// Continue resumes a paused run.
func (s *Simulation) Continue() {
	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	if s.paused {
		s.paused = false
		close(s.resume)
	}
}

// IsPaused tells if the run is paused.
func (s *Simulation) IsPaused() bool {
	s.pauseLock.Lock()
	defer s.pauseLock.Unlock()

	return s.paused
}

func (s *Simulation) waitWhilePaused(ctx context.Context) error {
	s.pauseLock.Lock()
	paused, resume := s.paused, s.resume
	s.pauseLock.Unlock()

	if !paused {
		return nil
	}

	s.logger.Info("simulation paused")

	select {
	case <-resume:
		s.logger.Info("simulation continued")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the simulation until no event is due at or before the stop
// time. It can only be called once.
func (s *Simulation) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if err := s.scheduleInitialEvents(); err != nil {
		return err
	}

	if err := s.pool.Start(ctx); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"hosts":    s.hosts.Len(),
		"workers":  len(s.pool.Workers()),
		"runahead": s.runahead,
		"stop":     s.stopTime,
	}).Info("simulation started")

	runErr := s.runRounds(ctx)

	s.pool.Stop()

	if err := s.scheduler.Stop(); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop scheduler: %w", err)
	}

	if runErr != nil {
		return runErr
	}

	s.logger.WithField("rounds", s.pool.Round()).Info("simulation finished")

	return nil
}

func (s *Simulation) scheduleInitialEvents() error {
	for _, h := range s.hosts.All() {
		if s.heartbeat > 0 {
			hb := heartbeat{interval: s.heartbeat, logger: s.logger}
			if err := s.push(hb.task(), h, s.heartbeat); err != nil {
				return err
			}
		}

		for _, p := range h.Processes() {
			c := p.Config()

			if err := s.push(event.StartProcess{Process: p.ID()}, h, c.StartTime); err != nil {
				return err
			}

			if c.StopTime == 0 {
				continue
			}

			if err := s.push(event.StopProcess{Process: p.ID()}, h, c.StopTime); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Simulation) push(task event.Task, h *host.Host, at timing.SimulationTime) error {
	_, err := s.scheduler.Push(
		event.New(task, h.ID(), h.ID(), timing.FromSimulationTime(at)))
	if err != nil {
		return fmt.Errorf("schedule %s on %s: %w", task.Kind(), h.Name(), err)
	}

	return nil
}

func (s *Simulation) runRounds(ctx context.Context) error {
	stop := timing.FromSimulationTime(s.stopTime)
	last := stop.Add(timing.Nanosecond)

	var progress *monitoring.ProgressBar
	if s.monitor != nil {
		progress = s.monitor.CreateProgressBar("simulation",
			uint64(s.stopTime/timing.Millisecond))
		defer s.monitor.CompleteProgressBar(progress)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.waitWhilePaused(ctx); err != nil {
			return err
		}

		next, ok, err := s.scheduler.NextTime()
		if err != nil {
			return fmt.Errorf("next event: %w", err)
		}

		if !ok || next > stop {
			break
		}

		end := timing.MinEmulated(next.Add(s.runahead), last)

		s.roundLock.Lock()
		err = s.pool.RunRound(end)
		s.roundLock.Unlock()

		if err != nil {
			return err
		}

		s.now.Store(uint64(end))

		if progress != nil {
			progress.SetFinished(uint64(end.SimulationTime() / timing.Millisecond))
		}
	}

	s.now.Store(uint64(stop))

	return nil
}

// HostStats is the traffic of one host.
type HostStats struct {
	Name     string
	Internet netif.Stats
	Loopback netif.Stats
}

// Stats returns the traffic counters of every host. It must not be called
// while Run is executing.
func (s *Simulation) Stats() []HostStats {
	stats := make([]HostStats, 0, s.hosts.Len())
	for _, h := range s.hosts.All() {
		stats = append(stats, HostStats{
			Name:     h.Name(),
			Internet: h.Internet().Stats(),
			Loopback: h.Loopback().Stats(),
		})
	}

	return stats
}

// Terminate releases the resources of the run.
func (s *Simulation) Terminate() error {
	if s.recorder == nil {
		return nil
	}

	return s.recorder.Close()
}

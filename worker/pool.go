package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/netsim/event"
	"github.com/sarchlab/netsim/hooking"
	"github.com/sarchlab/netsim/host"
	"github.com/sarchlab/netsim/internal/poison"
	"github.com/sarchlab/netsim/metrics"
	"github.com/sarchlab/netsim/timing"
	"github.com/sarchlab/netsim/topology"
)

// Config collects what a Pool needs.
type Config struct {
	Scheduler       *event.Scheduler
	Hosts           *host.Arena
	Network         *topology.Network
	Runtime         host.Runtime
	UseShortestPath bool
	BootstrapEnd    timing.EmulatedTime

	// NumWorkers is the number of worker threads. It is capped at the
	// number of hosts.
	NumWorkers int

	// NumProcessors is the number of logical CPUs the workers share. It
	// defaults to NumWorkers.
	NumProcessors int

	Logger  logrus.FieldLogger
	Metrics *metrics.Engine
}

// A Pool owns the workers and drives them through rounds.
type Pool struct {
	hooking.HookableBase

	scheduler       *event.Scheduler
	hosts           *host.Arena
	network         *topology.Network
	runtime         host.Runtime
	useShortestPath bool
	bootstrapEnd    timing.EmulatedTime
	logger          logrus.FieldLogger
	metrics         *metrics.Engine

	numWorkers int
	workers    []*Worker
	threads    sync.WaitGroup

	lock       poison.Mutex
	processors *Processors
	roundDone  sync.WaitGroup
	round      uint64

	fatalOnce sync.Once
	fatal     atomic.Pointer[error]
}

// NewPool creates a pool. Workers are spawned by Start.
func NewPool(c Config) *Pool {
	if c.Scheduler == nil || c.Hosts == nil || c.Network == nil {
		panic("worker pool needs a scheduler, hosts and a network")
	}

	if c.Runtime == nil {
		c.Runtime = host.LoggingRuntime{Logger: c.Logger}
	}

	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}

	numWorkers := c.NumWorkers
	if numWorkers > c.Hosts.Len() {
		numWorkers = c.Hosts.Len()
	}

	if numWorkers < 1 {
		numWorkers = 1
	}

	numProcessors := c.NumProcessors
	if numProcessors < 1 || numProcessors > numWorkers {
		numProcessors = numWorkers
	}

	return &Pool{
		scheduler:       c.Scheduler,
		hosts:           c.Hosts,
		network:         c.Network,
		runtime:         c.Runtime,
		useShortestPath: c.UseShortestPath,
		bootstrapEnd:    c.BootstrapEnd,
		logger:          c.Logger.WithField("component", "worker"),
		metrics:         c.Metrics,
		numWorkers:      numWorkers,
		processors:      NewProcessors(numProcessors),
	}
}

// Start spawns the workers. Hosts are dealt to workers round-robin and
// workers to processors the same way.
func (p *Pool) Start(ctx context.Context) error {
	if p.workers != nil {
		return fmt.Errorf("worker pool already started")
	}

	p.workers = make([]*Worker, p.numWorkers)
	for i := range p.workers {
		p.workers[i] = newWorker(ctx, i, p)
	}

	for _, h := range p.hosts.All() {
		w := p.workers[int(h.ID())%p.numWorkers]
		w.hosts = append(w.hosts, h.ID())
	}

	err := p.lock.Do(func() {
		for i, w := range p.workers {
			p.processors.Get(i % p.processors.Len()).AddWorker(w)
		}
	})
	if err != nil {
		return err
	}

	for _, w := range p.workers {
		p.threads.Add(1)
		go w.loop()
	}

	return nil
}

// Stop lets the worker threads exit and waits for them.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.wake)
	}

	p.threads.Wait()
}

// Workers returns the workers.
func (p *Pool) Workers() []*Worker {
	return p.workers
}

// Hosts returns the host arena.
func (p *Pool) Hosts() *host.Arena {
	return p.hosts
}

// Round returns the number of completed rounds.
func (p *Pool) Round() uint64 {
	return atomic.LoadUint64(&p.round)
}

// Err returns the first fatal error recorded by a worker.
func (p *Pool) Err() error {
	if err := p.fatal.Load(); err != nil {
		return *err
	}

	return nil
}

func (p *Pool) setFatal(err error) {
	p.fatalOnce.Do(func() {
		p.fatal.Store(&err)
		p.logger.WithError(err).Error("fatal error, aborting the run")
	})
}

// IdleTimes returns the idle time of each processor.
func (p *Pool) IdleTimes() ([]time.Duration, error) {
	var times []time.Duration
	err := p.lock.Do(func() { times = p.processors.IdleTimes() })

	return times, err
}

// RunRound runs every worker up to, but excluding, end and returns after
// all of them reached the barrier.
func (p *Pool) RunRound(end timing.EmulatedTime) error {
	if p.workers == nil {
		return fmt.Errorf("worker pool not started")
	}

	for _, w := range p.workers {
		w.executed = 0
	}

	err := p.lock.Do(func() {
		for i := 0; i < p.processors.Len(); i++ {
			w, ok := p.processors.PopWorkerToRunOn(i)
			if !ok {
				break
			}

			p.processors.Get(i).StartWorking()
			p.roundDone.Add(1)
			w.wake <- assignment{end: end, processor: i}
		}
	})
	if err != nil {
		return err
	}

	p.roundDone.Wait()

	err = p.lock.Do(func() { p.processors.FinishRound() })
	if err != nil {
		return err
	}

	return p.finishRound(end)
}

func (p *Pool) finishRound(end timing.EmulatedTime) error {
	summary := hooking.RoundSummary{
		Index: atomic.AddUint64(&p.round, 1),
		End:   end,
	}

	for _, w := range p.workers {
		summary.Events += w.executed
	}

	p.metrics.RecordRound(end.DurationSince(timing.SimulationStart))

	if p.metrics != nil {
		idle, err := p.IdleTimes()
		if err != nil {
			return err
		}

		for i, d := range idle {
			p.metrics.SetProcessorIdle(i, d)
		}
	}

	p.InvokeHook(hooking.HookCtx{
		Domain: p,
		Pos:    hooking.HookPosRoundEnd,
		Item:   summary,
	})

	p.logger.WithFields(logrus.Fields{
		"round":  summary.Index,
		"end":    end,
		"events": summary.Events,
	}).Trace("round finished")

	return p.Err()
}

// workerFinished is called by a worker that reached the barrier. It hands
// the processor to the next ready worker, or leaves the processor idle.
func (p *Pool) workerFinished(w *Worker, a assignment) {
	var (
		next *Worker
		ok   bool
	)

	err := p.lock.Do(func() {
		proc := p.processors.Get(a.processor)
		proc.PushDone(w)

		next, ok = p.processors.PopWorkerToRunOn(a.processor)
		if !ok {
			proc.StopWorking()
		}
	})
	if err != nil {
		p.setFatal(err)
	}

	if ok {
		next.wake <- a
		return
	}

	p.roundDone.Done()
}

func (w *Worker) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer w.pool.threads.Done()

	for a := range w.wake {
		w.runRound(a.end)
		w.pool.workerFinished(w, a)
	}
}

func (w *Worker) runRound(end timing.EmulatedTime) {
	w.clock.barrier = end

	for w.pool.Err() == nil {
		evt, err := w.pool.scheduler.PopNext(w.hosts, end)
		if err != nil {
			w.pool.setFatal(fmt.Errorf("worker %d: pop: %w", w.id, err))
			return
		}

		if evt == nil {
			return
		}

		w.execute(evt)
	}
}

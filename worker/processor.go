package worker

import (
	"time"

	"github.com/sarchlab/netsim/timing"
)

// A Processor stands for one logical CPU. It keeps the workers that still
// have to run in the current round and the ones that already did, and it
// measures how long the CPU had nothing to run.
type Processor struct {
	ready []*Worker
	done  []*Worker
	idle  *timing.PerfTimer
}

// NewProcessor creates an idle processor.
func NewProcessor() *Processor {
	return &Processor{idle: timing.StartPerfTimer()}
}

// AddWorker makes w ready to run on the processor.
func (p *Processor) AddWorker(w *Worker) {
	p.ready = append(p.ready, w)
}

// PopWorker removes the next ready worker.
func (p *Processor) PopWorker() (*Worker, bool) {
	if len(p.ready) == 0 {
		return nil, false
	}

	w := p.ready[0]
	p.ready[0] = nil
	p.ready = p.ready[1:]

	return w, true
}

// PushDone records that w finished the current round on this processor.
func (p *Processor) PushDone(w *Worker) {
	p.done = append(p.done, w)
}

// NumReady returns the number of workers waiting to run.
func (p *Processor) NumReady() int {
	return len(p.ready)
}

// NumDone returns the number of workers that finished the round.
func (p *Processor) NumDone() int {
	return len(p.done)
}

// StartWorking stops the idle clock.
func (p *Processor) StartWorking() {
	p.idle.Pause()
}

// StopWorking restarts the idle clock.
func (p *Processor) StopWorking() {
	p.idle.Resume()
}

// IdleTime returns the time the processor spent without running a worker.
func (p *Processor) IdleTime() time.Duration {
	return p.idle.Lapsed()
}

// FinishTask makes the workers that finished this round ready for the next
// one.
func (p *Processor) FinishTask() {
	p.ready, p.done = append(p.ready, p.done...), p.done[:0]
}

// Processors is the set of logical CPUs of the pool.
type Processors struct {
	procs []*Processor
}

// NewProcessors creates n idle processors.
func NewProcessors(n int) *Processors {
	ps := &Processors{procs: make([]*Processor, n)}
	for i := range ps.procs {
		ps.procs[i] = NewProcessor()
	}

	return ps
}

// Len returns the number of processors.
func (ps *Processors) Len() int {
	return len(ps.procs)
}

// Get returns the i-th processor.
func (ps *Processors) Get(i int) *Processor {
	return ps.procs[i]
}

// PopWorkerToRunOn returns a ready worker for processor p. If p has none, the
// following processors are searched in order, wrapping around, so that idle
// CPUs take over the work of busy ones.
func (ps *Processors) PopWorkerToRunOn(p int) (*Worker, bool) {
	n := len(ps.procs)
	for i := 0; i < n; i++ {
		if w, ok := ps.procs[(p+i)%n].PopWorker(); ok {
			return w, true
		}
	}

	return nil, false
}

// FinishRound prepares all processors for the next round.
func (ps *Processors) FinishRound() {
	for _, p := range ps.procs {
		p.FinishTask()
	}
}

// IdleTimes returns the idle time of every processor.
func (ps *Processors) IdleTimes() []time.Duration {
	times := make([]time.Duration, len(ps.procs))
	for i, p := range ps.procs {
		times[i] = p.IdleTime()
	}

	return times
}

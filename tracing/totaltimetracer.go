package tracing

import (
	"sync"

	"github.com/sarchlab/netsim/timing"
)

// TotalTimeTracer can collect the total time of executing a certain type of
// task. If the execution of two tasks overlaps, this tracer will simply add
// the two task processing time together.
type TotalTimeTracer struct {
	filter        TaskFilter
	lock          sync.Mutex
	totalTime     timing.SimulationTime
	aborted       uint64
	inflightTasks map[uint64]Task
}

// NewTotalTimeTracer creates a new TotalTimeTracer
func NewTotalTimeTracer(filter TaskFilter) *TotalTimeTracer {
	return &TotalTimeTracer{
		filter:        filter,
		inflightTasks: make(map[uint64]Task),
	}
}

// TotalTime returns the total time has been spent on a certain type of tasks.
func (t *TotalTimeTracer) TotalTime() timing.SimulationTime {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// Aborted returns the number of aborted tasks.
func (t *TotalTimeTracer) Aborted() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.aborted
}

// InFlight returns the number of started tasks that neither ended nor were
// aborted.
func (t *TotalTimeTracer) InFlight() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflightTasks)
}

// StartTask records the task start time
func (t *TotalTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// EndTask records the end of the task
func (t *TotalTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	t.totalTime += task.EndTime.DurationSince(originalTask.StartTime)
	delete(t.inflightTasks, task.ID)
}

// AbortTask counts and forgets the task.
func (t *TotalTimeTracer) AbortTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflightTasks[task.ID]; ok {
		delete(t.inflightTasks, task.ID)
		t.aborted++
	}
}

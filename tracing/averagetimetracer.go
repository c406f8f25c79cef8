package tracing

import (
	"sync"

	"github.com/sarchlab/netsim/timing"
)

// AverageTimeTracer can collect the average time of executing a certain type
// of task.
type AverageTimeTracer struct {
	filter        TaskFilter
	lock          sync.Mutex
	averageTime   float64
	inflightTasks map[uint64]Task
	taskCount     uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer. A nil filter accepts
// every task.
func NewAverageTimeTracer(filter TaskFilter) *AverageTimeTracer {
	return &AverageTimeTracer{
		filter:        filter,
		inflightTasks: make(map[uint64]Task),
	}
}

// AverageTime returns the average duration of the completed tasks.
func (t *AverageTimeTracer) AverageTime() timing.SimulationTime {
	t.lock.Lock()
	defer t.lock.Unlock()

	return timing.SimulationTime(t.averageTime)
}

// TotalCount returns the total number of tasks.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount
}

// StartTask records the task start time
func (t *AverageTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// EndTask records the end of the task
func (t *AverageTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	taskTime := task.EndTime.DurationSince(originalTask.StartTime)
	t.averageTime = (t.averageTime*float64(t.taskCount) + float64(taskTime)) /
		float64(t.taskCount+1)
	delete(t.inflightTasks, task.ID)
	t.taskCount++
}

// AbortTask forgets the task.
func (t *AverageTimeTracer) AbortTask(task Task) {
	t.lock.Lock()
	delete(t.inflightTasks, task.ID)
	t.lock.Unlock()
}

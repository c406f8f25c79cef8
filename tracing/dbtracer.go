package tracing

import (
	"sync"

	"github.com/sarchlab/netsim/datarecording"
	"github.com/sarchlab/netsim/timing"
)

// TaskTable is the table DBTracer writes to.
const TaskTable = "packet_trace"

// TaskEntry is one finished task. Times are simulation nanoseconds.
type TaskEntry struct {
	ID        uint64
	Kind      string
	What      string
	Location  string
	StartTime uint64
	EndTime   uint64
	Aborted   bool
}

// DBTracer is a tracer that stores finished tasks in a DataRecorder. Tasks
// starting outside of the time range are not traced.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	startTime, endTime timing.EmulatedTime

	tracingTasks map[uint64]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(TaskTable, TaskEntry{})

	return &DBTracer{
		backend:      dataRecorder,
		tracingTasks: make(map[uint64]Task),
	}
}

// SetTimeRange limits tracing to tasks starting in [startTime, endTime]. A
// zero bound is open.
func (t *DBTracer) SetTimeRange(startTime, endTime timing.EmulatedTime) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if task.StartTime < t.startTime {
		return
	}

	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = task
}

// EndTask marks the end of a task.
func (t *DBTracer) EndTask(task Task) {
	t.finish(task, false)
}

// AbortTask records the task as aborted.
func (t *DBTracer) AbortTask(task Task) {
	t.finish(task, true)
}

func (t *DBTracer) finish(task Task, aborted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	entry := TaskEntry{
		ID:        originalTask.ID,
		Kind:      originalTask.Kind,
		What:      originalTask.What,
		Location:  originalTask.Where,
		StartTime: uint64(originalTask.StartTime.SimulationTime()),
		Aborted:   aborted,
	}

	if !aborted {
		entry.EndTime = uint64(task.EndTime.SimulationTime())
	}

	t.backend.InsertData(TaskTable, entry)
}

// Terminate forgets the tasks in progress and flushes the recorder.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = make(map[uint64]Task)
	t.backend.Flush()
}

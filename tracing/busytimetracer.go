package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/netsim/timing"
)

const compactThreshold = 4096

type taskTimeStartEnd struct {
	start, end timing.EmulatedTime
}

// BusyTimeTracer traces the time during which at least one task of a kind is
// in progress. Overlapping tasks count once.
type BusyTimeTracer struct {
	filter        TaskFilter
	lock          sync.Mutex
	inflightTasks map[uint64]timing.EmulatedTime
	taskTimes     []taskTimeStartEnd
	compactAt     int
}

// NewBusyTimeTracer creates a new BusyTimeTracer
func NewBusyTimeTracer(filter TaskFilter) *BusyTimeTracer {
	return &BusyTimeTracer{
		filter:        filter,
		inflightTasks: make(map[uint64]timing.EmulatedTime),
		compactAt:     compactThreshold,
	}
}

// BusyTime returns the time covered by completed tasks.
func (t *BusyTimeTracer) BusyTime() timing.SimulationTime {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.taskTimes = merge(t.taskTimes)

	var total timing.SimulationTime
	for _, tt := range t.taskTimes {
		total += tt.end.DurationSince(tt.start)
	}

	return total
}

// TerminateAllTasks ends the tasks still in progress at now.
func (t *BusyTimeTracer) TerminateAllTasks(now timing.EmulatedTime) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for id, start := range t.inflightTasks {
		t.taskTimes = append(t.taskTimes, taskTimeStartEnd{start: start, end: now})
		delete(t.inflightTasks, id)
	}
}

// StartTask records the task start time
func (t *BusyTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task.StartTime
	t.lock.Unlock()
}

// EndTask records the end of the task
func (t *BusyTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	delete(t.inflightTasks, task.ID)
	t.taskTimes = append(t.taskTimes, taskTimeStartEnd{start: start, end: task.EndTime})

	if len(t.taskTimes) >= t.compactAt {
		t.taskTimes = merge(t.taskTimes)
		t.compactAt = 2*len(t.taskTimes) + compactThreshold
	}
}

// AbortTask forgets the task.
func (t *BusyTimeTracer) AbortTask(task Task) {
	t.lock.Lock()
	delete(t.inflightTasks, task.ID)
	t.lock.Unlock()
}

// merge sorts the intervals and joins the overlapping ones.
func merge(times []taskTimeStartEnd) []taskTimeStartEnd {
	if len(times) < 2 {
		return times
	}

	sort.Slice(times, func(i, j int) bool {
		return times[i].start < times[j].start
	})

	merged := times[:1]
	for _, tt := range times[1:] {
		last := &merged[len(merged)-1]
		if tt.start > last.end {
			merged = append(merged, tt)
			continue
		}

		if tt.end > last.end {
			last.end = tt.end
		}
	}

	return merged
}

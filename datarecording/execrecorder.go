package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTable = "exec_info"

// ExecInfo is one property of the program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the program ran.
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	recorder.CreateTable(execTable, ExecInfo{})

	return &execRecorder{recorder: recorder}
}

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}

// Start notes the start time, the command line and the working directory.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", timestamp()},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = err.Error()
	}

	e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
}

// End writes the collected properties together with the end time.
func (e *execRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(execTable, entry)
	}

	e.recorder.InsertData(execTable, ExecInfo{"End Time", timestamp()})
	e.entries = nil
}

package tracing

// A Tracer can collect task traces. Workers call tracers concurrently.
type Tracer interface {
	StartTask(task Task)
	EndTask(task Task)
	AbortTask(task Task)
}

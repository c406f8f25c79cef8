package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	lock       sync.Mutex
	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	InProgress uint64
}

// ProgressSnapshot is a copy of a bar taken under its lock.
type ProgressSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// Snapshot copies the bar.
func (b *ProgressBar) Snapshot() ProgressSnapshot {
	b.lock.Lock()
	defer b.lock.Unlock()

	return ProgressSnapshot{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		InProgress: b.InProgress,
	}
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.Finished += amount
}

// SetFinished sets the finished amount, capped at the total.
func (b *ProgressBar) SetFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if amount > b.Total {
		amount = b.Total
	}

	b.Finished = amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

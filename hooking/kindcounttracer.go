package hooking

import (
	"sort"
	"sync"
)

// A Kinded item can tell what kind of work it describes.
type Kinded interface {
	KindName() string
}

// KindCountTracer counts the executed events per kind.
type KindCountTracer struct {
	lock      sync.Mutex
	kindNames []string
	kindCount map[string]uint64
}

// NewKindCountTracer creates a new KindCountTracer.
func NewKindCountTracer() *KindCountTracer {
	return &KindCountTracer{
		kindCount: make(map[string]uint64),
	}
}

// Func counts the event if the hook fires after an event.
func (t *KindCountTracer) Func(ctx HookCtx) {
	if ctx.Pos != HookPosAfterEvent {
		return
	}

	item, ok := ctx.Item.(Kinded)
	if !ok {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.countKind(item.KindName())
}

func (t *KindCountTracer) countKind(kind string) {
	_, ok := t.kindCount[kind]
	if !ok {
		t.kindNames = append(t.kindNames, kind)
	}

	t.kindCount[kind]++
}

// KindNames returns all the kinds seen so far in alphabetical order.
func (t *KindCountTracer) KindNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := append([]string(nil), t.kindNames...)
	sort.Strings(names)

	return names
}

// KindCount returns how many events of a kind were executed.
func (t *KindCountTracer) KindCount(kind string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.kindCount[kind]
}

// Total returns the number of events counted.
func (t *KindCountTracer) Total() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	var total uint64
	for _, c := range t.kindCount {
		total += c
	}

	return total
}

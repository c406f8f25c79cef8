package event

import (
	"container/heap"
)

type eventHeap []*Event

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	return h[i].Less(h[j])
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]

	return evt
}

func (h eventHeap) peek() *Event {
	if len(h) == 0 {
		return nil
	}

	return h[0]
}

func (h *eventHeap) push(e *Event) {
	heap.Push(h, e)
}

func (h *eventHeap) pop() *Event {
	return heap.Pop(h).(*Event)
}

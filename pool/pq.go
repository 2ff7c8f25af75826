package pool

import "container/heap"

// taskHeap is a min-heap of pending tasks ordered by (priority, sequence).
// Ties always break on the sequence number, so tasks of equal priority keep
// their submission order and the plain-FIFO configuration is just the heap
// with priority comparison disabled.
type taskHeap[R any] struct {
	items      []*taskEntry[R]
	byPriority bool
}

func newTaskHeap[R any](byPriority bool) taskHeap[R] {
	return taskHeap[R]{byPriority: byPriority}
}

func (h *taskHeap[R]) Len() int { return len(h.items) }

func (h *taskHeap[R]) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if h.byPriority && a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

func (h *taskHeap[R]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *taskHeap[R]) Push(x any) {
	h.items = append(h.items, x.(*taskEntry[R]))
}

func (h *taskHeap[R]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid holding the task alive
	h.items = old[:n-1]
	return item
}

func (h *taskHeap[R]) push(t *taskEntry[R]) {
	heap.Push(h, t)
}

func (h *taskHeap[R]) pop() *taskEntry[R] {
	return heap.Pop(h).(*taskEntry[R])
}

func (h *taskHeap[R]) drain() []*taskEntry[R] {
	drained := make([]*taskEntry[R], 0, len(h.items))
	for len(h.items) > 0 {
		drained = append(drained, h.pop())
	}
	return drained
}

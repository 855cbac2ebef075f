package mailbox

import "container/heap"

// priorityItem wraps a Msg with the sequence number it arrived in, so the
// heap can break priority ties in FIFO order without a stability wrapper at
// every call site.
//
// container/heap, not a third-party binary heap, backs the priority queue:
// none of the retrieved example repos sources an actual usage of a
// third-party priority-heap package (github.com/aalpar/deheap surfaces only
// in a go.mod listing with no call site behind it), so there is nothing to
// ground an import on beyond the standard library's own heap algorithm.
type priorityItem[T any] struct {
	msg Msg[T]
	seq uint64
}

// priorityHeap is a max-heap on Priority, ties broken by seq ascending.
type priorityHeap[T any] []priorityItem[T]

func (h priorityHeap[T]) Len() int { return len(h) }

func (h priorityHeap[T]) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority > h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}

func (h priorityHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *priorityHeap[T]) Push(x any) {
	*h = append(*h, x.(priorityItem[T]))
}

func (h *priorityHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*priorityHeap[int])(nil)

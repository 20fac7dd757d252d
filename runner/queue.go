package runner

import (
	"sync"

	"github.com/testexec/testexec/types"
)

// PlotQueue is an unbounded FIFO of plot requests. The worker goroutine
// pushes while a test runs; the presentation loop polls with TryNext on its
// own schedule and drains the remainder when a test completes. Neither side
// ever blocks on the other.
type PlotQueue struct {
	mu       sync.Mutex
	payloads []types.PlotPayload
}

// NewPlotQueue creates an empty queue.
func NewPlotQueue() *PlotQueue {
	return &PlotQueue{}
}

// Push appends a payload to the queue.
func (q *PlotQueue) Push(p types.PlotPayload) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, p)
}

// TryNext pops the oldest payload without blocking. The second return is
// false when the queue is empty.
func (q *PlotQueue) TryNext() (types.PlotPayload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.payloads) == 0 {
		return types.PlotPayload{}, false
	}
	p := q.payloads[0]
	q.payloads = q.payloads[1:]
	return p, true
}

// Drain removes and returns everything queued, in arrival order.
func (q *PlotQueue) Drain() []types.PlotPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.payloads
	q.payloads = nil
	return out
}

// Len returns the number of queued payloads.
func (q *PlotQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.payloads)
}

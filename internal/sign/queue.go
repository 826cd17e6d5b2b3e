package sign

import (
	"context"
	"sync"
)

// jobQueue is the in-memory FIFO feeding the dispatch worker. A limit of
// zero means unbounded.
type jobQueue struct {
	mu     sync.Mutex
	items  []*Job
	wake   chan struct{}
	limit  int
	closed bool
}

func newJobQueue(limit int) *jobQueue {
	return &jobQueue{wake: make(chan struct{}, 1), limit: limit}
}

// Enqueue appends job in arrival order.
func (q *jobQueue) Enqueue(job *Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrStopped
	}
	if q.limit > 0 && len(q.items) >= q.limit {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, job)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Dequeue blocks until a job is available, the queue closes, or ctx ends.
func (q *jobQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return job, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrStopped
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

// Close fails every queued job with reason and rejects future submissions.
// Safe to call more than once.
func (q *jobQueue) Close(reason error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	drained := q.items
	q.items = nil
	q.mu.Unlock()

	q.signal()

	for _, job := range drained {
		job.resolve(job.failedResult(reason))
	}
}

// Depth reports how many jobs are waiting.
func (q *jobQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *jobQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

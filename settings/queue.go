package settings

import (
	"context"
	"fmt"
	"sync"
)

type updateFunc func(ctx context.Context) (map[string]any, error)

type updateJob struct {
	ctx    context.Context
	fn     updateFunc
	result map[string]any
	err    error
	done   chan struct{}
}

func (j *updateJob) run() {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			j.result, j.err = nil, fmt.Errorf("settings: update panicked: %v", r)
		}
	}()
	j.result, j.err = j.fn(j.ctx)
}

// updateQueue runs read-modify-write jobs one at a time, in submission
// order. A job starts only after the previous one has settled, whether it
// succeeded, failed or panicked. The queue is unbounded.
type updateQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*updateJob
	closed  bool
	stopped chan struct{}
}

func newUpdateQueue() *updateQueue {
	q := &updateQueue{stopped: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

func (q *updateQueue) loop() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		job.run()
	}
}

// submit enqueues fn and waits for its result. If ctx is done first, submit
// returns ctx.Err() but the job still runs in its turn, detached from ctx
// cancellation.
func (q *updateQueue) submit(ctx context.Context, fn updateFunc) (map[string]any, error) {
	job := &updateJob{
		ctx:  context.WithoutCancel(ctx),
		fn:   fn,
		done: make(chan struct{}),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()
	q.cond.Signal()

	select {
	case <-job.done:
		return job.result, job.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// depth returns the number of jobs waiting to start.
func (q *updateQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// close stops accepting jobs, lets queued ones finish and waits for the
// worker to exit.
func (q *updateQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	<-q.stopped
}

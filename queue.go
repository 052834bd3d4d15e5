package lockbox

import (
	"context"
	"reflect"
	"sync"
)

const queueDepth = 64

var (
	defaultQueue     *Queue
	defaultQueueOnce sync.Once
)

// DefaultQueue returns the process wide queue shared by every Lockbox that
// was not given its own.
func DefaultQueue() *Queue {
	defaultQueueOnce.Do(func() {
		defaultQueue = NewQueue()
	})
	return defaultQueue
}

type job struct {
	fn   func()
	done chan struct{}
}

// Queue runs submitted jobs one at a time, in submission order, on a single
// worker goroutine.
type Queue struct {
	jobs      chan *job
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	cachesMu sync.Mutex
	caches   map[Backend]*itemCache
}

// NewQueue starts a queue worker. Call Close to stop it.
func NewQueue() *Queue {
	q := &Queue{
		jobs:    make(chan *job, queueDepth),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		caches:  make(map[Backend]*itemCache),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		select {
		case j := <-q.jobs:
			j.run()
		case <-q.quit:
			// Drain whatever was accepted before Close.
			for {
				select {
				case j := <-q.jobs:
					j.run()
				default:
					return
				}
			}
		}
	}
}

func (j *job) run() {
	defer close(j.done)
	j.fn()
}

// Do enqueues fn and waits for it to finish. A job that was enqueued runs to
// completion even if ctx is cancelled while waiting; Do then returns
// ctx.Err() without waiting further.
func (q *Queue) Do(ctx context.Context, fn func()) error {
	select {
	case <-q.quit:
		return ErrQueueClosed
	default:
	}

	j := &job{fn: fn, done: make(chan struct{})}
	select {
	case q.jobs <- j:
	case <-q.quit:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		// The worker may have run the job during its final drain.
		select {
		case <-j.done:
			return nil
		default:
			return ErrQueueClosed
		}
	}
}

// Barrier returns once every job enqueued before it has completed. Call it
// before the program exits so no accepted write is lost.
func (q *Queue) Barrier(ctx context.Context) error {
	return q.Do(ctx, func() {})
}

// Close stops accepting jobs, runs the ones already accepted and waits for
// the worker to exit.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.quit)
	})
	<-q.stopped
}

// cacheFor returns the item cache shared by every Lockbox that reaches
// backend through this queue. Writes to it only happen inside queued jobs.
// A backend whose type cannot be a map key gets a private cache.
func (q *Queue) cacheFor(backend Backend) *itemCache {
	if !reflect.TypeOf(backend).Comparable() {
		return newItemCache()
	}
	q.cachesMu.Lock()
	defer q.cachesMu.Unlock()
	c, ok := q.caches[backend]
	if !ok {
		c = newItemCache()
		q.caches[backend] = c
	}
	return c
}

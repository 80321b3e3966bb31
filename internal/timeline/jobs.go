package timeline

import (
	"container/list"
	"context"
	"sync"
)

// fetchJob is one tracked per-bucket fetch. ready is closed as soon as assets
// are available (or the fetch failed); done is closed when the whole job,
// including any background reconciliation, has finished.
type fetchJob struct {
	bucket int64
	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}
	done   chan struct{}

	readyOnce sync.Once
	err       error
}

func (j *fetchJob) finishReady(err error) {
	j.readyOnce.Do(func() {
		j.err = err
		close(j.ready)
	})
}

func (j *fetchJob) active() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// jobTracker keeps at most cap fetch jobs, most recently used first. Tracking
// a bucket that already has an active job returns that job, so two concurrent
// requests for one bucket share a single fetch. When the cap is exceeded the
// least recently used job is evicted and cancelled.
type jobTracker struct {
	mu      sync.Mutex
	cap     int
	order   *list.List // front = most recently used, values are *fetchJob
	entries map[int64]*list.Element

	onEvict func(*fetchJob)
}

func newJobTracker(capacity int, onEvict func(*fetchJob)) *jobTracker {
	if capacity < 1 {
		capacity = 1
	}
	return &jobTracker{
		cap:     capacity,
		order:   list.New(),
		entries: make(map[int64]*list.Element),
		onEvict: onEvict,
	}
}

// track returns the job for bucket and whether the caller created it and owns
// running it. An existing active job is refreshed in the LRU order instead.
func (t *jobTracker) track(bucket int64, parent context.Context) (*fetchJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.entries[bucket]; ok {
		job := elem.Value.(*fetchJob)
		if job.active() {
			t.order.MoveToFront(elem)
			return job, false
		}
		t.order.Remove(elem)
		delete(t.entries, bucket)
	}

	ctx, cancel := context.WithCancel(parent)
	job := &fetchJob{
		bucket: bucket,
		ctx:    ctx,
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	t.entries[bucket] = t.order.PushFront(job)

	for t.order.Len() > t.cap {
		oldest := t.order.Back()
		evicted := oldest.Value.(*fetchJob)
		t.order.Remove(oldest)
		delete(t.entries, evicted.bucket)
		evicted.cancel()
		if t.onEvict != nil {
			t.onEvict(evicted)
		}
	}
	return job, true
}

// cancelAll cancels every tracked job; used on engine shutdown.
func (t *jobTracker) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for elem := t.order.Front(); elem != nil; elem = elem.Next() {
		elem.Value.(*fetchJob).cancel()
	}
}

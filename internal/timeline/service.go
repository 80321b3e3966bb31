// Package timeline is the client-side engine that presents a photo library,
// split between a remote server and the local device, as one chronologically
// bucketed timeline. It builds the month-bucket directory, lazily fetches and
// merges per-bucket asset lists, resolves flat pager ordinals and computes
// grid spans. Persistence, transport and media enumeration are reached only
// through the Store, RemoteSource, LocalSource and Locator contracts.
package timeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ljarka/immich-timeline/internal/metrics"
)

const (
	defaultJobCap       = 5
	defaultFetchWorkers = 3
)

// Config tunes the engine's concurrency bounds.
type Config struct {
	// JobCap bounds the tracked fetch jobs; exceeding it cancels the least
	// recently used job.
	JobCap int
	// FetchWorkers bounds fetch goroutines doing I/O concurrently.
	FetchWorkers int
}

func (c Config) withDefaults() Config {
	if c.JobCap <= 0 {
		c.JobCap = defaultJobCap
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = defaultFetchWorkers
	}
	return c
}

// bucketEntry is the in-memory cache record for one bucket. Entries are
// replaced wholesale, never mutated, so readers can hold snapshots.
type bucketEntry struct {
	items []RenderableAsset
	state FetchState
}

// Service owns the timeline state for a session.
type Service struct {
	store   Store
	remote  RemoteSource
	local   LocalSource
	locator Locator
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	jobs *jobTracker
	io   gate

	mu        sync.RWMutex
	directory []TimeBucket // descending by Timestamp
	entries   map[int64]*bucketEntry

	views *broadcaster[[]BucketView]
}

// NewService constructs the engine and starts republishing the bucket view
// whenever the store signals a bucket-row change.
func NewService(store Store, remote RemoteSource, local LocalSource, locator Locator, cfg Config, log *zap.Logger) *Service {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:   store,
		remote:  remote,
		local:   local,
		locator: locator,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		io:      newGate(cfg.FetchWorkers),
		entries: make(map[int64]*bucketEntry),
		views:   newBroadcaster[[]BucketView](),
	}
	s.jobs = newJobTracker(cfg.JobCap, s.onJobEvicted)

	changes, stop := store.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				s.publishBuckets(ctx)
			}
		}
	}()
	return s
}

// Close cancels in-flight fetches and closes all subscriptions.
func (s *Service) Close() {
	s.cancel()
	s.jobs.cancelAll()
	s.wg.Wait()
	s.views.close()
}

// ObserveBuckets subscribes to the ordered bucket view. The latest view is
// replayed immediately; the returned cancel func releases the subscription.
func (s *Service) ObserveBuckets() (<-chan []BucketView, func()) {
	return s.views.subscribe()
}

// GetAsset returns the cached renderable at (bucket, position), if any. It
// never triggers a fetch.
func (s *Service) GetAsset(bucket int64, position int) (RenderableAsset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[bucket]
	if !ok || position < 0 || position >= len(entry.items) {
		return RenderableAsset{}, false
	}
	return entry.items[position], true
}

// BucketState reports the fetch lifecycle of a bucket.
func (s *Service) BucketState(bucket int64) FetchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[bucket]; ok {
		return entry.state
	}
	return FetchStateDefault
}

func (s *Service) snapshotDirectory() []TimeBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directory
}

func (s *Service) markLoading(bucket int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[bucket]; ok && entry.state.Loaded() {
		return
	}
	s.entries[bucket] = &bucketEntry{state: FetchStateLoading}
}

// onJobEvicted runs with the tracker lock held; it only downgrades state.
func (s *Service) onJobEvicted(job *fetchJob) {
	s.mu.Lock()
	if entry, ok := s.entries[job.bucket]; ok && entry.state == FetchStateLoading {
		s.entries[job.bucket] = &bucketEntry{state: FetchStateDefault}
	}
	s.mu.Unlock()
	metrics.JobEvictions.Inc()
	s.log.Debug("fetch job evicted", zap.Int64("bucket", job.bucket))
}

package timeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ljarka/immich-timeline/internal/metrics"
	"github.com/ljarka/immich-timeline/internal/span"
)

// EnsureFetched triggers an asynchronous fetch for the bucket's assets. It is
// idempotent while a fetch for the same bucket is in flight.
func (s *Service) EnsureFetched(bucket int64) {
	if s.ctx.Err() != nil {
		return
	}
	job, created := s.jobs.track(bucket, s.ctx)
	if !created {
		return
	}
	s.markLoading(bucket)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runFetch(job)
	}()
}

// fetchBlocking joins (or starts) the bucket's fetch job and waits until its
// assets are available or the fetch fails.
func (s *Service) fetchBlocking(ctx context.Context, bucket int64) ([]RenderableAsset, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}
	job, created := s.jobs.track(bucket, s.ctx)
	if created {
		s.markLoading(bucket)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runFetch(job)
		}()
	}

	select {
	case <-job.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if job.err != nil {
		return nil, job.err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[bucket]
	if !ok || !entry.state.Loaded() {
		return nil, ErrNotFound
	}
	return entry.items, nil
}

// runFetch executes one tracked fetch job: persisted rows first, then a
// blocking source fetch only when the store has nothing for the bucket.
func (s *Service) runFetch(job *fetchJob) {
	defer close(job.done)
	defer job.cancel()

	metrics.InflightFetches.Inc()
	defer metrics.InflightFetches.Dec()

	if err := s.io.enter(job.ctx); err != nil {
		s.failFetch(job, err)
		return
	}
	defer s.io.leave()

	assets, err := s.store.Assets(job.ctx, job.bucket)
	if err != nil {
		if job.ctx.Err() != nil {
			s.failFetch(job, job.ctx.Err())
			return
		}
		// A broken read falls through to a full source fetch which will
		// rewrite the bucket's rows.
		s.log.Warn("read persisted assets", zap.Int64("bucket", job.bucket), zap.Error(err))
		assets = nil
	}

	if len(assets) > 0 {
		metrics.CacheHits.Inc()
		if !s.installAssets(job, assets) {
			s.failFetch(job, job.ctx.Err())
			return
		}
		job.finishReady(nil)
		metrics.BucketFetches.WithLabelValues("success").Inc()

		// Reconciliation: refresh the persisted rows from the live sources
		// without blocking anyone waiting on this bucket. The in-memory
		// items keep serving the persisted snapshot until the next load.
		if _, err := s.refreshAssets(job.ctx, job.bucket); err != nil {
			if !errors.Is(err, context.Canceled) {
				s.log.Debug("reconcile bucket", zap.Int64("bucket", job.bucket), zap.Error(err))
			}
		}
		return
	}

	merged, err := s.refreshAssets(job.ctx, job.bucket)
	if err != nil {
		s.failFetch(job, err)
		return
	}
	if !s.installAssets(job, merged) {
		s.failFetch(job, job.ctx.Err())
		return
	}
	job.finishReady(nil)
	metrics.BucketFetches.WithLabelValues("success").Inc()
}

// refreshAssets queries both sources for the bucket's month, merges and
// re-indexes the result and commits it with a single atomic store write. The
// merge happens in a local buffer so a cancelled job leaves the store
// untouched.
func (s *Service) refreshAssets(ctx context.Context, bucket int64) ([]Asset, error) {
	remote, err := s.remote.AssetsForMonth(ctx, bucket)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: remote assets for bucket %d: %v", ErrSourceUnavailable, bucket, err)
	}

	year, month := bucketMonth(bucket)
	locals, err := s.local.AssetsForMonth(ctx, year, month)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: local assets for %d-%02d: %v", ErrSourceUnavailable, year, month, err)
	}

	merged := make([]Asset, 0, len(remote)+len(locals))
	for _, a := range remote {
		merged = append(merged, Asset{
			ID:        a.ID,
			Type:      AssetTypeRemote,
			Width:     a.Width,
			Height:    a.Height,
			DateTaken: a.DateTaken,
			Bucket:    bucket,
		})
	}
	for _, a := range locals {
		merged = append(merged, Asset{
			ID:        a.ID,
			Type:      AssetTypeLocal,
			Width:     a.Width,
			Height:    a.Height,
			DateTaken: a.DateTaken,
			Bucket:    bucket,
		})
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DateTaken > merged[j].DateTaken
	})
	for i := range merged {
		merged[i].Position = i
	}

	// Liveness check: an evicted job must not write partial bucket state.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceAssets(ctx, bucket, merged); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("persist assets for bucket %d: %w", bucket, err)
	}
	return merged, nil
}

// installAssets computes the span layout, publishes the bucket's renderables
// and writes the resulting row count back onto the bucket. Returns false if
// the job was cancelled before the entry could be installed.
func (s *Service) installAssets(job *fetchJob, assets []Asset) bool {
	if job.ctx.Err() != nil {
		return false
	}

	spans := make([]int, len(assets))
	for i, a := range assets {
		spans[i] = span.FromRatio(span.Ratio(a.Width, a.Height))
	}
	packed := span.Pack(spans)

	items := make([]RenderableAsset, len(assets))
	for i, a := range assets {
		items[i] = RenderableAsset{
			ID:        a.ID,
			Type:      a.Type,
			Thumbnail: s.locator.Thumbnail(a.ID, a.Type),
			Span:      packed[i],
		}
	}

	s.mu.Lock()
	s.entries[job.bucket] = &bucketEntry{items: items, state: FetchStateLoaded}
	s.mu.Unlock()

	rows := span.Rows(packed)
	if err := s.store.UpdateBucketLayout(job.ctx, job.bucket, rows, time.Now().UnixMilli()); err != nil {
		if job.ctx.Err() == nil {
			s.log.Warn("persist bucket layout", zap.Int64("bucket", job.bucket), zap.Error(err))
		}
	}
	return true
}

// failFetch resets a bucket that never finished loading back to DEFAULT so a
// later EnsureFetched retries it.
func (s *Service) failFetch(job *fetchJob, err error) {
	s.mu.Lock()
	if entry, ok := s.entries[job.bucket]; ok && entry.state == FetchStateLoading {
		s.entries[job.bucket] = &bucketEntry{state: FetchStateDefault}
	}
	s.mu.Unlock()

	if err == nil {
		err = context.Canceled
	}
	job.finishReady(err)

	if errors.Is(err, context.Canceled) {
		metrics.BucketFetches.WithLabelValues("cancelled").Inc()
		s.log.Debug("fetch cancelled", zap.Int64("bucket", job.bucket))
		return
	}
	metrics.BucketFetches.WithLabelValues("error").Inc()
	s.log.Warn("fetch bucket", zap.Int64("bucket", job.bucket), zap.Error(err))
}

package timeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// RefreshDirectory rebuilds the month-bucket directory: remote month counts
// plus on-device counts, cumulative offsets folded in descending-time order
// and row estimates carried over from the previous layout. When the remote
// source is unreachable the previously persisted directory keeps serving and
// the error is returned to the caller.
func (s *Service) RefreshDirectory(ctx context.Context) error {
	counts, err := s.remote.MonthCounts(ctx)
	if err != nil {
		s.publishBuckets(ctx)
		return fmt.Errorf("%w: month counts: %v", ErrSourceUnavailable, err)
	}

	prior, err := s.store.Buckets(ctx)
	if err != nil {
		return fmt.Errorf("read persisted buckets: %w", err)
	}
	priorRows := make(map[int64]int, len(prior))
	for _, b := range prior {
		priorRows[b.Timestamp] = b.RowsNumber
	}

	now := time.Now().UnixMilli()
	buckets := make([]TimeBucket, 0, len(counts))
	for _, mc := range counts {
		ts := monthStart(mc.Bucket)
		year, month := bucketMonth(ts)
		localCount, err := s.local.CountForMonth(ctx, year, month)
		if err != nil {
			s.log.Warn("count local assets", zap.Int("year", year), zap.Stringer("month", month), zap.Error(err))
			localCount = 0
		}
		buckets = append(buckets, TimeBucket{
			Timestamp:  ts,
			Count:      mc.Count + localCount,
			RowsNumber: priorRows[ts],
			LastUpdate: now,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Timestamp > buckets[j].Timestamp
	})
	cumulative := 0
	for i := range buckets {
		buckets[i].CumulativeIndex = cumulative
		cumulative += buckets[i].Count
	}

	if err := s.store.UpsertBuckets(ctx, buckets); err != nil {
		return fmt.Errorf("persist buckets: %w", err)
	}

	s.dropOrphanAssets(ctx, buckets)
	s.publishBuckets(ctx)
	return nil
}

// dropOrphanAssets deletes asset rows whose bucket is no longer part of the
// directory. Orphans are a persisted-store corruption, never fatal.
func (s *Service) dropOrphanAssets(ctx context.Context, buckets []TimeBucket) {
	known := make(map[int64]struct{}, len(buckets))
	for _, b := range buckets {
		known[b.Timestamp] = struct{}{}
	}

	assetBuckets, err := s.store.AssetBuckets(ctx)
	if err != nil {
		s.log.Warn("list asset buckets", zap.Error(err))
		return
	}
	for _, ts := range assetBuckets {
		if _, ok := known[ts]; ok {
			continue
		}
		s.log.Warn("dropping orphan asset rows", zap.Int64("bucket", ts))
		if err := s.store.DeleteAssets(ctx, ts); err != nil {
			s.log.Warn("delete orphan assets", zap.Int64("bucket", ts), zap.Error(err))
		}
	}
}

// publishBuckets reloads the persisted directory and pushes the bucket view
// to subscribers.
func (s *Service) publishBuckets(ctx context.Context) {
	buckets, err := s.store.Buckets(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("load buckets", zap.Error(err))
		}
		return
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Timestamp > buckets[j].Timestamp
	})

	views := make([]BucketView, len(buckets))
	s.mu.Lock()
	s.directory = buckets
	for i, b := range buckets {
		state := FetchStateDefault
		if entry, ok := s.entries[b.Timestamp]; ok {
			state = entry.state
		}
		views[i] = BucketView{
			Timestamp:       b.Timestamp,
			Count:           b.Count,
			CumulativeIndex: b.CumulativeIndex,
			RowsNumber:      b.RowsNumber,
			LastUpdate:      b.LastUpdate,
			Label:           formatMonth(b.Timestamp),
			State:           state,
		}
	}
	s.mu.Unlock()

	s.views.publish(views)
}

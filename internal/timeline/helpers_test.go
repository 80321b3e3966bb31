package timeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// millis returns the epoch-millisecond start of a month, the bucket key used
// throughout the tests.
func millis(year int, month time.Month) int64 {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
}

func newTestService(t *testing.T, st Store, remote RemoteSource, local LocalSource, cfg Config) *Service {
	t.Helper()
	svc := NewService(st, remote, local, &fakeLocator{}, cfg, zap.NewNop())
	t.Cleanup(svc.Close)
	return svc
}

// --- fakes ---

type fakeStore struct {
	mu           sync.Mutex
	buckets      map[int64]TimeBucket
	assets       map[int64][]Asset
	replaceCalls int
	layoutRows   map[int64]int
	bucketsErr   error
	assetsErr    error
	subs         map[chan struct{}]struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		buckets:    make(map[int64]TimeBucket),
		assets:     make(map[int64][]Asset),
		layoutRows: make(map[int64]int),
		subs:       make(map[chan struct{}]struct{}),
	}
}

func (f *fakeStore) Buckets(ctx context.Context) ([]TimeBucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bucketsErr != nil {
		return nil, f.bucketsErr
	}
	out := make([]TimeBucket, 0, len(f.buckets))
	for _, b := range f.buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (f *fakeStore) UpsertBuckets(ctx context.Context, buckets []TimeBucket) error {
	f.mu.Lock()
	for _, b := range buckets {
		f.buckets[b.Timestamp] = b
	}
	f.mu.Unlock()
	f.pulse()
	return nil
}

func (f *fakeStore) UpdateBucketLayout(ctx context.Context, bucket int64, rows int, lastUpdate int64) error {
	f.mu.Lock()
	f.layoutRows[bucket] = rows
	if b, ok := f.buckets[bucket]; ok {
		b.RowsNumber = rows
		b.LastUpdate = lastUpdate
		f.buckets[bucket] = b
	}
	f.mu.Unlock()
	f.pulse()
	return nil
}

func (f *fakeStore) Assets(ctx context.Context, bucket int64) ([]Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assetsErr != nil {
		return nil, f.assetsErr
	}
	return append([]Asset(nil), f.assets[bucket]...), nil
}

func (f *fakeStore) ReplaceAssets(ctx context.Context, bucket int64, assets []Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaceCalls++
	f.assets[bucket] = append([]Asset(nil), assets...)
	return nil
}

func (f *fakeStore) AssetBuckets(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, 0, len(f.assets))
	for ts := range f.assets {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out, nil
}

func (f *fakeStore) DeleteAssets(ctx context.Context, bucket int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assets, bucket)
	return nil
}

func (f *fakeStore) Subscribe() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{}, 1)
	f.subs[ch] = struct{}{}
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, ch)
	}
}

func (f *fakeStore) pulse() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *fakeStore) storedAssets(bucket int64) []Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Asset(nil), f.assets[bucket]...)
}

func (f *fakeStore) rowsFor(bucket int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.layoutRows[bucket]
}

func (f *fakeStore) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaceCalls
}

type fakeRemote struct {
	mu        sync.Mutex
	counts    []MonthCount
	countsErr error
	assets    map[int64][]SourceAsset
	assetsErr error
	block     chan struct{} // non-nil: AssetsForMonth waits for close or ctx
	calls     int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{assets: make(map[int64][]SourceAsset)}
}

func (f *fakeRemote) MonthCounts(ctx context.Context) ([]MonthCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countsErr != nil {
		return nil, f.countsErr
	}
	return append([]MonthCount(nil), f.counts...), nil
}

func (f *fakeRemote) AssetsForMonth(ctx context.Context, bucket int64) ([]SourceAsset, error) {
	atomic.AddInt32(&f.calls, 1)

	f.mu.Lock()
	block := f.block
	err := f.assetsErr
	assets := append([]SourceAsset(nil), f.assets[bucket]...)
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (f *fakeRemote) assetCalls() int {
	return int(atomic.LoadInt32(&f.calls))
}

func (f *fakeRemote) setAssetsErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assetsErr = err
}

type fakeLocal struct {
	mu     sync.Mutex
	counts map[string]int
	assets map[string][]SourceAsset
	err    error
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{
		counts: make(map[string]int),
		assets: make(map[string][]SourceAsset),
	}
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func (f *fakeLocal) CountForMonth(ctx context.Context, year int, month time.Month) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if count, ok := f.counts[monthKey(year, month)]; ok {
		return count, nil
	}
	return len(f.assets[monthKey(year, month)]), nil
}

func (f *fakeLocal) AssetsForMonth(ctx context.Context, year int, month time.Month) ([]SourceAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]SourceAsset(nil), f.assets[monthKey(year, month)]...), nil
}

type fakeLocator struct{}

func (fakeLocator) Thumbnail(id string, t AssetType) string { return "thumb://" + id }
func (fakeLocator) Preview(id string, t AssetType) string   { return "preview://" + id }

package timeline

import (
	"context"
	"time"
)

// RemoteSource lists month histograms and month asset pages from the photo
// server. Implementations may fail with transport errors, which the engine
// wraps as ErrSourceUnavailable.
type RemoteSource interface {
	MonthCounts(ctx context.Context) ([]MonthCount, error)
	AssetsForMonth(ctx context.Context, bucket int64) ([]SourceAsset, error)
}

// LocalSource enumerates photos on the device. It is assumed reachable but
// may return zero results.
type LocalSource interface {
	CountForMonth(ctx context.Context, year int, month time.Month) (int, error)
	AssetsForMonth(ctx context.Context, year int, month time.Month) ([]SourceAsset, error)
}

// Store is the durable source of truth for buckets and assets. ReplaceAssets
// must swap a bucket's rows atomically; Subscribe delivers a pulse after any
// bucket-row write so views can be rebuilt.
type Store interface {
	Buckets(ctx context.Context) ([]TimeBucket, error)
	UpsertBuckets(ctx context.Context, buckets []TimeBucket) error
	UpdateBucketLayout(ctx context.Context, bucket int64, rows int, lastUpdate int64) error

	Assets(ctx context.Context, bucket int64) ([]Asset, error)
	ReplaceAssets(ctx context.Context, bucket int64, assets []Asset) error
	AssetBuckets(ctx context.Context) ([]int64, error)
	DeleteAssets(ctx context.Context, bucket int64) error

	Subscribe() (<-chan struct{}, func())
}

// Locator turns an asset identity into a thumbnail address. Pure; no network
// or caching behavior of its own.
type Locator interface {
	Thumbnail(id string, t AssetType) string
	Preview(id string, t AssetType) string
}

package timeline

import "time"

// AssetType says where an asset lives.
type AssetType string

const (
	AssetTypeLocal  AssetType = "LOCAL"
	AssetTypeRemote AssetType = "REMOTE"
)

// Asset is one photo, local or remote, as persisted. Width and height of 0
// mean the dimensions are unknown and the asset is treated as square.
type Asset struct {
	ID        string
	Type      AssetType
	Width     int
	Height    int
	DateTaken int64 // epoch milliseconds
	Bucket    int64 // owning month start, epoch milliseconds
	Position  int   // 0-based rank within the bucket, descending by DateTaken
}

// TimeBucket is one calendar month of activity.
type TimeBucket struct {
	Timestamp       int64 // start of month, epoch milliseconds, unique key
	Count           int   // local + remote assets in the month
	CumulativeIndex int   // offset of the first asset in the global ordering
	RowsNumber      int   // grid rows estimate from a previous layout, 0 = unknown
	LastUpdate      int64
}

// RenderableAsset is the UI-facing projection of an asset: identity, a
// thumbnail locator and the grid span it occupies. Never persisted.
type RenderableAsset struct {
	ID        string    `json:"id"`
	Type      AssetType `json:"type"`
	Thumbnail string    `json:"thumbnail"`
	Span      int       `json:"span"`
}

// BucketView is the bucket projection pushed to subscribers.
type BucketView struct {
	Timestamp       int64      `json:"timestamp"`
	Count           int        `json:"count"`
	CumulativeIndex int        `json:"cumulativeIndex"`
	RowsNumber      int        `json:"rowsNumber"`
	LastUpdate      int64      `json:"lastUpdate"`
	Label           string     `json:"label"`
	State           FetchState `json:"state"`
}

// FetchState is the lifecycle of a bucket's asset list.
type FetchState string

const (
	// FetchStateDefault means the bucket has not been requested, or its last
	// fetch failed or was cancelled.
	FetchStateDefault FetchState = "DEFAULT"
	// FetchStateLoading means a fetch is in flight.
	FetchStateLoading FetchState = "LOADING"
	// FetchStateLoaded means assets are available in memory.
	FetchStateLoaded FetchState = "LOADED"
)

// Loaded reports whether assets are available.
func (s FetchState) Loaded() bool { return s == FetchStateLoaded }

// MonthCount is one entry of the remote per-month histogram.
type MonthCount struct {
	Bucket int64 // start of month, epoch milliseconds
	Count  int
}

// SourceAsset is an asset as returned by a remote or local source, before it
// is attributed to a bucket.
type SourceAsset struct {
	ID        string
	Width     int
	Height    int
	DateTaken int64
}

// monthStart truncates an epoch-millisecond timestamp to its UTC month start.
func monthStart(millis int64) int64 {
	t := time.UnixMilli(millis).UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).UnixMilli()
}

// bucketMonth returns the calendar month a bucket timestamp falls in.
func bucketMonth(bucket int64) (int, time.Month) {
	t := time.UnixMilli(bucket).UTC()
	return t.Year(), t.Month()
}

// formatMonth renders the bucket label shown next to the grid.
func formatMonth(bucket int64) string {
	return time.UnixMilli(bucket).UTC().Format("January, 2006")
}

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ljarka/immich-timeline/internal/timeline"
)

func TestSyncFetchAndResolveFlow(t *testing.T) {
	feb := month(2025, time.February)
	jan := month(2025, time.January)

	ps := newPhotoServer(t)
	for i := 0; i < 3; i++ {
		ps.add(feb, photoServerAsset{
			ID: assetID(feb, i), Width: 100, Height: 100,
			Taken: feb.Add(time.Duration(10-i) * time.Hour),
		})
	}
	for i := 0; i < 5; i++ {
		ps.add(jan, photoServerAsset{
			ID: assetID(jan, i), Width: 100, Height: 100,
			Taken: jan.Add(time.Duration(10-i) * time.Hour),
		})
	}

	eng := newEngine(t, ps, "")
	ctx := context.Background()

	require.NoError(t, eng.Service.RefreshDirectory(ctx))

	buckets, err := eng.Store.Buckets(ctx)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	require.Equal(t, feb.UnixMilli(), buckets[0].Timestamp)
	require.Equal(t, 3, buckets[0].Count)
	require.Equal(t, 0, buckets[0].CumulativeIndex)
	require.Equal(t, 3, buckets[1].CumulativeIndex)
	require.Equal(t, 8, eng.Service.AssetCount())

	// Crossing the bucket boundary pulls January on demand.
	item, err := eng.Service.ResolveByIndex(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, assetID(jan, 1), item.ID)
	require.Equal(t, ps.url()+"/api/assets/"+item.ID+"/thumbnail", item.Thumbnail)

	index, ok := eng.Service.LocateIndex(item.ID)
	require.True(t, ok)
	require.Equal(t, 4, index)
}

func TestPersistedTimelineSurvivesRestartAndOutage(t *testing.T) {
	feb := month(2025, time.February)

	ps := newPhotoServer(t)
	ps.add(feb, photoServerAsset{ID: assetID(feb, 0), Width: 400, Height: 200, Taken: feb.Add(time.Hour)})

	first := newEngine(t, ps, "")
	ctx := context.Background()

	require.NoError(t, first.Service.RefreshDirectory(ctx))
	_, err := first.Service.ResolveByIndex(ctx, 0)
	require.NoError(t, err)
	first.Service.Close()

	// The server goes away; a fresh engine over the same database still
	// serves the cached month.
	ps.setDown(true)

	second := newEngine(t, ps, first.DBPath)
	require.ErrorIs(t, second.Service.RefreshDirectory(ctx), timeline.ErrSourceUnavailable)

	item, err := second.Service.ResolveByIndex(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, assetID(feb, 0), item.ID)
	require.Equal(t, 4, item.Span, "span is recomputed from the persisted dimensions")
	require.Equal(t, timeline.FetchStateLoaded, second.Service.BucketState(feb.UnixMilli()))
}

func TestDirectoryRebuildDropsRemovedMonths(t *testing.T) {
	feb := month(2025, time.February)
	jan := month(2025, time.January)

	ps := newPhotoServer(t)
	ps.add(feb, photoServerAsset{ID: assetID(feb, 0), Width: 100, Height: 100, Taken: feb.Add(time.Hour)})
	ps.add(jan, photoServerAsset{ID: assetID(jan, 0), Width: 100, Height: 100, Taken: jan.Add(time.Hour)})

	eng := newEngine(t, ps, "")
	ctx := context.Background()

	require.NoError(t, eng.Service.RefreshDirectory(ctx))
	_, err := eng.Service.ResolveByIndex(ctx, 1)
	require.NoError(t, err)

	// January disappears server-side (all assets archived or deleted).
	ps.mu.Lock()
	delete(ps.assets, jan.UTC().Format(time.RFC3339))
	ps.mu.Unlock()

	require.NoError(t, eng.Service.RefreshDirectory(ctx))
	require.Equal(t, 1, eng.Service.AssetCount())

	rows, err := eng.Store.Assets(ctx, jan.UnixMilli())
	require.NoError(t, err)
	require.Empty(t, rows, "asset rows of vanished months are dropped")
}

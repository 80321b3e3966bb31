package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ljarka/immich-timeline/internal/local"
	"github.com/ljarka/immich-timeline/internal/remote"
	"github.com/ljarka/immich-timeline/internal/store"
	"github.com/ljarka/immich-timeline/internal/thumb"
	"github.com/ljarka/immich-timeline/internal/timeline"
)

type photoServerAsset struct {
	ID     string
	Width  int
	Height int
	Taken  time.Time
}

// photoServer emulates the photo server's timeline API over httptest, enough
// for the engine to sync against.
type photoServer struct {
	mu     sync.Mutex
	assets map[string][]photoServerAsset // keyed by RFC3339 month start
	down   bool

	srv *httptest.Server
}

func newPhotoServer(t *testing.T) *photoServer {
	t.Helper()
	ps := &photoServer{assets: make(map[string][]photoServerAsset)}
	ps.srv = httptest.NewServer(http.HandlerFunc(ps.handle))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *photoServer) url() string { return ps.srv.URL }

func (ps *photoServer) setDown(down bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.down = down
}

func (ps *photoServer) add(month time.Time, assets ...photoServerAsset) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	key := month.UTC().Format(time.RFC3339)
	ps.assets[key] = append(ps.assets[key], assets...)
}

func (ps *photoServer) handle(w http.ResponseWriter, r *http.Request) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.down {
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	switch r.URL.Path {
	case "/api/timeline/buckets":
		type bucketDTO struct {
			TimeBucket string `json:"timeBucket"`
			Count      int    `json:"count"`
		}
		var out []bucketDTO
		for key, assets := range ps.assets {
			out = append(out, bucketDTO{TimeBucket: key, Count: len(assets)})
		}
		json.NewEncoder(w).Encode(out)

	case "/api/timeline/bucket":
		key := r.URL.Query().Get("timeBucket")
		type exifDTO struct {
			Width  int    `json:"exifImageWidth"`
			Height int    `json:"exifImageHeight"`
			Taken  string `json:"dateTimeOriginal"`
		}
		type assetDTO struct {
			ID   string  `json:"id"`
			Exif exifDTO `json:"exifInfo"`
		}
		out := make([]assetDTO, 0)
		for _, a := range ps.assets[key] {
			out = append(out, assetDTO{
				ID: a.ID,
				Exif: exifDTO{
					Width:  a.Width,
					Height: a.Height,
					Taken:  a.Taken.UTC().Format(time.RFC3339),
				},
			})
		}
		json.NewEncoder(w).Encode(out)

	default:
		http.NotFound(w, r)
	}
}

// engineFixture is a full engine wired against a real sqlite file and the
// emulated photo server.
type engineFixture struct {
	Service *timeline.Service
	Store   store.Store
	DBPath  string
}

func newEngine(t *testing.T, ps *photoServer, dbPath string) *engineFixture {
	t.Helper()

	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "timeline.db")
	}
	st, err := store.Open(context.Background(), "sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := timeline.NewService(
		st,
		remote.NewClient(ps.url(), "test-token"),
		local.NewMediaSource(""),
		thumb.NewProvider(ps.url(), ""),
		timeline.Config{},
		zap.NewNop(),
	)
	t.Cleanup(svc.Close)

	return &engineFixture{Service: svc, Store: st, DBPath: dbPath}
}

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func assetID(month time.Time, i int) string {
	return fmt.Sprintf("%s-%d", month.Format("2006-01"), i)
}

package local

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, width, height int, modTime time.Time) {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestAssetsForMonthFiltersByModTime(t *testing.T) {
	root := t.TempDir()

	inMonth := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)
	outOfMonth := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	writePNG(t, filepath.Join(root, "trip", "a.png"), 40, 20, inMonth)
	writePNG(t, filepath.Join(root, "b.png"), 10, 10, outOfMonth)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	src := NewMediaSource(root)
	assets, err := src.AssetsForMonth(context.Background(), 2025, time.February)
	require.NoError(t, err)
	require.Len(t, assets, 1)

	got := assets[0]
	require.Equal(t, "trip/a.png", got.ID, "ids are slash paths relative to the root")
	require.Equal(t, 40, got.Width)
	require.Equal(t, 20, got.Height)
	require.Equal(t, inMonth.UnixMilli(), got.DateTaken)

	count, err := src.CountForMonth(context.Background(), 2025, time.February)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMonthBoundariesAreHalfOpen(t *testing.T) {
	root := t.TempDir()

	first := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	writePNG(t, filepath.Join(root, "first.png"), 10, 10, first)

	src := NewMediaSource(root)

	feb, err := src.AssetsForMonth(context.Background(), 2025, time.February)
	require.NoError(t, err)
	require.Len(t, feb, 1)

	jan, err := src.AssetsForMonth(context.Background(), 2025, time.January)
	require.NoError(t, err)
	require.Empty(t, jan, "the month start belongs to the new month only")
}

func TestEmptyRootYieldsNothing(t *testing.T) {
	src := NewMediaSource("")

	assets, err := src.AssetsForMonth(context.Background(), 2025, time.February)
	require.NoError(t, err)
	require.Empty(t, assets)

	count, err := src.CountForMonth(context.Background(), 2025, time.February)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMissingRootYieldsNothing(t *testing.T) {
	src := NewMediaSource(filepath.Join(t.TempDir(), "does-not-exist"))

	assets, err := src.AssetsForMonth(context.Background(), 2025, time.February)
	require.NoError(t, err)
	require.Empty(t, assets)
}

// Package local implements the timeline.LocalSource contract over a photo
// directory on disk, the desktop analog of the device media store.
package local

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ljarka/immich-timeline/internal/timeline"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".heic": {},
}

// MediaSource enumerates photos under a root directory. File modification
// time stands in for the capture time; an asset's id is its path relative to
// the root.
type MediaSource struct {
	root string
}

// NewMediaSource builds a source rooted at dir. An empty dir yields a source
// that always reports zero photos.
func NewMediaSource(dir string) *MediaSource {
	return &MediaSource{root: dir}
}

// CountForMonth returns how many photos were taken in the given month.
func (m *MediaSource) CountForMonth(ctx context.Context, year int, month time.Month) (int, error) {
	assets, err := m.AssetsForMonth(ctx, year, month)
	if err != nil {
		return 0, err
	}
	return len(assets), nil
}

// AssetsForMonth lists the photos taken in the given month.
func (m *MediaSource) AssetsForMonth(ctx context.Context, year int, month time.Month) ([]timeline.SourceAsset, error) {
	if m.root == "" {
		return nil, nil
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var assets []timeline.SourceAsset
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		taken := info.ModTime().UTC()
		if taken.Before(start) || !taken.Before(end) {
			return nil
		}

		rel, err := filepath.Rel(m.root, path)
		if err != nil {
			rel = path
		}
		width, height := decodeDimensions(path)
		assets = append(assets, timeline.SourceAsset{
			ID:        filepath.ToSlash(rel),
			Width:     width,
			Height:    height,
			DateTaken: taken.UnixMilli(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return assets, nil
}

// decodeDimensions reads just the image header. Unknown formats come back as
// 0x0 and are laid out as squares.
func decodeDimensions(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

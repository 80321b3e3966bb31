// Package remote implements the timeline.RemoteSource contract against an
// Immich-compatible photo server.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ljarka/immich-timeline/internal/timeline"
)

const defaultTimeout = 30 * time.Second

// Client queries the server's timeline API. Safe for concurrent use.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient builds a client for the given server. accessToken may be empty
// for servers that allow anonymous reads.
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
}

type timeBucketDTO struct {
	TimeBucket string `json:"timeBucket"`
	Count      int    `json:"count"`
}

type assetDTO struct {
	ID       string `json:"id"`
	ExifInfo struct {
		ExifImageWidth   *int   `json:"exifImageWidth"`
		ExifImageHeight  *int   `json:"exifImageHeight"`
		DateTimeOriginal string `json:"dateTimeOriginal"`
	} `json:"exifInfo"`
}

// MonthCounts fetches the per-month asset histogram, most recent first.
func (c *Client) MonthCounts(ctx context.Context) ([]timeline.MonthCount, error) {
	query := url.Values{
		"size":         {"MONTH"},
		"withPartners": {"true"},
		"isArchived":   {"false"},
	}
	var dtos []timeBucketDTO
	if err := c.get(ctx, "/api/timeline/buckets", query, &dtos); err != nil {
		return nil, err
	}

	counts := make([]timeline.MonthCount, 0, len(dtos))
	for _, dto := range dtos {
		ts, err := parseInstant(dto.TimeBucket)
		if err != nil {
			return nil, fmt.Errorf("parse bucket %q: %w", dto.TimeBucket, err)
		}
		counts = append(counts, timeline.MonthCount{Bucket: ts, Count: dto.Count})
	}
	return counts, nil
}

// AssetsForMonth fetches the asset page for one month bucket.
func (c *Client) AssetsForMonth(ctx context.Context, bucket int64) ([]timeline.SourceAsset, error) {
	query := url.Values{
		"size":         {"MONTH"},
		"timeBucket":   {time.UnixMilli(bucket).UTC().Format(time.RFC3339)},
		"withPartners": {"true"},
		"isArchived":   {"false"},
	}
	var dtos []assetDTO
	if err := c.get(ctx, "/api/timeline/bucket", query, &dtos); err != nil {
		return nil, err
	}

	assets := make([]timeline.SourceAsset, 0, len(dtos))
	for _, dto := range dtos {
		taken, err := parseInstant(dto.ExifInfo.DateTimeOriginal)
		if err != nil {
			// Assets without a usable capture time sort at the bucket start.
			taken = bucket
		}
		asset := timeline.SourceAsset{ID: dto.ID, DateTaken: taken}
		if dto.ExifInfo.ExifImageWidth != nil {
			asset.Width = *dto.ExifInfo.ExifImageWidth
		}
		if dto.ExifInfo.ExifImageHeight != nil {
			asset.Height = *dto.ExifInfo.ExifImageHeight
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// parseInstant accepts the ISO-8601 instants the server emits, with or
// without fractional seconds.
func parseInstant(value string) (int64, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized instant %q", value)
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ljarka/immich-timeline/internal/timeline"
)

// SQLiteStore keeps the timeline in a local sqlite file, the on-device
// counterpart of the remote library.
type SQLiteStore struct {
	notifier
	path string
	conn *sql.DB
}

// OpenSQLite opens (or creates) the timeline database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	// Writes are serialized per bucket; a single connection avoids
	// SQLITE_BUSY on concurrent fetch commits.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{path: path, conn: conn}
	if err := s.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS month_buckets (
			timestamp INTEGER PRIMARY KEY,
			count INTEGER NOT NULL,
			cumulative_index INTEGER NOT NULL,
			rows_number INTEGER NOT NULL DEFAULT 0,
			last_update INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			bucket INTEGER NOT NULL,
			asset_index INTEGER NOT NULL,
			asset_id TEXT NOT NULL,
			asset_type TEXT NOT NULL,
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			date_taken INTEGER NOT NULL,
			PRIMARY KEY (bucket, asset_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assets_bucket ON assets (bucket)`,
	}
	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Buckets returns all buckets ordered by timestamp descending.
func (s *SQLiteStore) Buckets(ctx context.Context) ([]timeline.TimeBucket, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT timestamp, count, cumulative_index, rows_number, last_update
FROM month_buckets ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []timeline.TimeBucket
	for rows.Next() {
		var b timeline.TimeBucket
		if err := rows.Scan(&b.Timestamp, &b.Count, &b.CumulativeIndex, &b.RowsNumber, &b.LastUpdate); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// UpsertBuckets replaces directory rows, preserving nothing the caller did
// not supply.
func (s *SQLiteStore) UpsertBuckets(ctx context.Context, buckets []timeline.TimeBucket) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert buckets: %w", err)
	}
	defer tx.Rollback()

	for _, b := range buckets {
		_, err := tx.ExecContext(ctx, `
INSERT INTO month_buckets (timestamp, count, cumulative_index, rows_number, last_update)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(timestamp) DO UPDATE SET
	count = excluded.count,
	cumulative_index = excluded.cumulative_index,
	rows_number = excluded.rows_number,
	last_update = excluded.last_update`,
			b.Timestamp, b.Count, b.CumulativeIndex, b.RowsNumber, b.LastUpdate)
		if err != nil {
			return fmt.Errorf("upsert bucket %d: %w", b.Timestamp, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert buckets: %w", err)
	}
	s.pulse()
	return nil
}

// UpdateBucketLayout writes the computed row count back onto a bucket.
func (s *SQLiteStore) UpdateBucketLayout(ctx context.Context, bucket int64, rowsNumber int, lastUpdate int64) error {
	_, err := s.conn.ExecContext(ctx, `
UPDATE month_buckets SET rows_number = ?, last_update = ? WHERE timestamp = ?`,
		rowsNumber, lastUpdate, bucket)
	if err != nil {
		return fmt.Errorf("update bucket layout: %w", err)
	}
	s.pulse()
	return nil
}

// Assets returns a bucket's rows ordered by position.
func (s *SQLiteStore) Assets(ctx context.Context, bucket int64) ([]timeline.Asset, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT asset_id, asset_type, width, height, date_taken, asset_index
FROM assets WHERE bucket = ? ORDER BY asset_index`, bucket)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []timeline.Asset
	for rows.Next() {
		a := timeline.Asset{Bucket: bucket}
		var assetType string
		if err := rows.Scan(&a.ID, &assetType, &a.Width, &a.Height, &a.DateTaken, &a.Position); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.Type = timeline.AssetType(assetType)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// ReplaceAssets atomically swaps all rows for a bucket.
func (s *SQLiteStore) ReplaceAssets(ctx context.Context, bucket int64, assets []timeline.Asset) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assets: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("clear assets: %w", err)
	}
	for _, a := range assets {
		_, err := tx.ExecContext(ctx, `
INSERT INTO assets (bucket, asset_index, asset_id, asset_type, width, height, date_taken)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			bucket, a.Position, a.ID, string(a.Type), a.Width, a.Height, a.DateTaken)
		if err != nil {
			return fmt.Errorf("insert asset %s: %w", a.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assets: %w", err)
	}
	return nil
}

// AssetBuckets lists the distinct buckets that have asset rows.
func (s *SQLiteStore) AssetBuckets(ctx context.Context) ([]int64, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT DISTINCT bucket FROM assets ORDER BY bucket DESC`)
	if err != nil {
		return nil, fmt.Errorf("list asset buckets: %w", err)
	}
	defer rows.Close()

	var buckets []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan asset bucket: %w", err)
		}
		buckets = append(buckets, ts)
	}
	return buckets, rows.Err()
}

// DeleteAssets removes all rows for a bucket.
func (s *SQLiteStore) DeleteAssets(ctx context.Context, bucket int64) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM assets WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("delete assets: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error { return s.conn.Close() }

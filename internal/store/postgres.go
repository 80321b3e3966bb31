package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ljarka/immich-timeline/internal/timeline"
)

const queryTimeout = 5 * time.Second

// PostgresStore keeps the timeline in PostgreSQL, for deployments where the
// engine runs behind a shared cache server rather than on a device.
type PostgresStore struct {
	notifier
	pool *pgxpool.Pool
}

// OpenPostgres connects a pgx pool and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS month_buckets (
			timestamp BIGINT PRIMARY KEY,
			count INT NOT NULL,
			cumulative_index INT NOT NULL,
			rows_number INT NOT NULL DEFAULT 0,
			last_update BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			bucket BIGINT NOT NULL,
			asset_index INT NOT NULL,
			asset_id TEXT NOT NULL,
			asset_type TEXT NOT NULL,
			width INT NOT NULL DEFAULT 0,
			height INT NOT NULL DEFAULT 0,
			date_taken BIGINT NOT NULL,
			PRIMARY KEY (bucket, asset_index)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Buckets returns all buckets ordered by timestamp descending.
func (s *PostgresStore) Buckets(ctx context.Context) ([]timeline.TimeBucket, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return buckets, nil
}

// UpsertBuckets writes the directory in one transaction.
func (s *PostgresStore) UpsertBuckets(ctx context.Context, buckets []timeline.TimeBucket) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, b := range buckets {
			_, err := tx.Exec(ctx, `
INSERT INTO month_buckets (timestamp, count, cumulative_index, rows_number, last_update)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (timestamp) DO UPDATE SET
	count = EXCLUDED.count,
	cumulative_index = EXCLUDED.cumulative_index,
	rows_number = EXCLUDED.rows_number,
	last_update = EXCLUDED.last_update`,
				b.Timestamp, b.Count, b.CumulativeIndex, b.RowsNumber, b.LastUpdate)
			if err != nil {
				return fmt.Errorf("upsert bucket %d: %w", b.Timestamp, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.pulse()
	return nil
}

// UpdateBucketLayout writes the computed row count back onto a bucket.
func (s *PostgresStore) UpdateBucketLayout(ctx context.Context, bucket int64, rowsNumber int, lastUpdate int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
UPDATE month_buckets SET rows_number = $1, last_update = $2 WHERE timestamp = $3`,
		rowsNumber, lastUpdate, bucket)
	if err != nil {
		return fmt.Errorf("update bucket layout: %w", err)
	}
	s.pulse()
	return nil
}

// Assets returns a bucket's rows ordered by position.
func (s *PostgresStore) Assets(ctx context.Context, bucket int64) ([]timeline.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
SELECT asset_id, asset_type, width, height, date_taken, asset_index
FROM assets WHERE bucket = $1 ORDER BY asset_index`, bucket)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// ReplaceAssets atomically swaps all rows for a bucket.
func (s *PostgresStore) ReplaceAssets(ctx context.Context, bucket int64, assets []timeline.Asset) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM assets WHERE bucket = $1`, bucket); err != nil {
			return fmt.Errorf("clear assets: %w", err)
		}
		for _, a := range assets {
			_, err := tx.Exec(ctx, `
INSERT INTO assets (bucket, asset_index, asset_id, asset_type, width, height, date_taken)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				bucket, a.Position, a.ID, string(a.Type), a.Width, a.Height, a.DateTaken)
			if err != nil {
				return fmt.Errorf("insert asset %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// AssetBuckets lists the distinct buckets that have asset rows.
func (s *PostgresStore) AssetBuckets(ctx context.Context) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT DISTINCT bucket FROM assets ORDER BY bucket DESC`)
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
func (s *PostgresStore) DeleteAssets(ctx context.Context, bucket int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM assets WHERE bucket = $1`, bucket); err != nil {
		return fmt.Errorf("delete assets: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

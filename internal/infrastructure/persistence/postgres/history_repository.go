// Package postgres stores scan history in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/infrastructure/persistence"
)

var (
	insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		persistence.HistoryTable,
		strings.Join(persistence.HistoryColumns, ", "),
		placeholders(len(persistence.HistoryColumns)),
	)
	selectSQL = fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(persistence.HistoryColumns, ", "),
		persistence.HistoryTable,
	)
)

// HistoryRepository implements scan.Repository on PostgreSQL.
type HistoryRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewHistoryRepository wraps an existing pool. Call EnsureSchema before using it.
func NewHistoryRepository(pool *pgxpool.Pool, logger *zap.Logger) *HistoryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryRepository{pool: pool, logger: logger}
}

// EnsureSchema creates the history table if it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
CREATE TABLE IF NOT EXISTS scan_history (
  id BIGSERIAL PRIMARY KEY,
  url TEXT NOT NULL,
  https BOOLEAN NOT NULL,
  server_info TEXT NOT NULL,
  content_security_policy BOOLEAN NOT NULL,
  strict_transport_security BOOLEAN NOT NULL,
  x_content_type_options BOOLEAN NOT NULL,
  x_frame_options BOOLEAN NOT NULL,
  referrer_policy BOOLEAN NOT NULL,
  open_directory BOOLEAN NOT NULL,
  robots_txt BOOLEAN NOT NULL,
  risk_level TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_scan_history_url ON scan_history (url);`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create scan_history table: %w", err)
	}
	return nil
}

// NewDB opens a pgx pool with tuned defaults.
func NewDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	// Scans append one batch at a time; a small pool is plenty.
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// Append inserts the batch in one transaction.
func (r *HistoryRepository) Append(ctx context.Context, results []scan.Result) error {
	if len(results) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, res := range results {
			batch.Queue(insertSQL, persistence.RecordValues(scan.NewRecord(res))...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	r.logger.Debug("history appended", zap.Int("records", len(results)))
	return nil
}

// Query returns records whose url is in urls, oldest first.
func (r *HistoryRepository) Query(ctx context.Context, urls []string) ([]scan.Record, error) {
	if len(urls) == 0 {
		return []scan.Record{}, nil
	}
	return r.selectRecords(ctx, selectSQL+" WHERE url = ANY($1) ORDER BY id", urls)
}

// All returns every record, oldest first.
func (r *HistoryRepository) All(ctx context.Context) ([]scan.Record, error) {
	return r.selectRecords(ctx, selectSQL+" ORDER BY id")
}

// Close closes the pool.
func (r *HistoryRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *HistoryRepository) selectRecords(ctx context.Context, query string, args ...any) ([]scan.Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := make([]scan.Record, 0)
	for rows.Next() {
		scanner := persistence.NewRecordScanner()
		if err := rows.Scan(scanner.Dest()...); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		records = append(records, scanner.Record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

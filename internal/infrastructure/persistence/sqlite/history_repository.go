// Package sqlite stores scan history in a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/infrastructure/persistence"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	"github.com/khanhnv2901/webscan/internal/shared/security"
)

//go:embed schema.sql
var schemaSQL string

var (
	insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		persistence.HistoryTable,
		strings.Join(persistence.HistoryColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(persistence.HistoryColumns)), ", "),
	)
	selectSQL = fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(persistence.HistoryColumns, ", "),
		persistence.HistoryTable,
	)
)

// HistoryRepository implements scan.Repository on SQLite. The autoincrement id
// defines storage order.
type HistoryRepository struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewHistoryRepository opens (or creates) the database at path and applies the schema.
func NewHistoryRepository(path string, logger *zap.Logger) (*HistoryRepository, error) {
	cleanPath, err := security.CleanFilePath(path)
	if err != nil {
		return nil, fmt.Errorf("history database: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps pragmas on a single connection and avoids SQLITE_BUSY between
	// our own goroutines.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Debug("sqlite history opened", zap.String("path", cleanPath))
	return &HistoryRepository{db: db, path: cleanPath, logger: logger}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (r *HistoryRepository) Path() string {
	return r.path
}

// Append inserts the whole batch in one transaction.
func (r *HistoryRepository) Append(ctx context.Context, results []scan.Result) (err error) {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err = stmt.ExecContext(ctx, persistence.RecordValues(scan.NewRecord(res))...); err != nil {
			return fmt.Errorf("insert %s: %w", res.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.Debug("history appended", zap.String("path", r.path), zap.Int("records", len(results)))
	return nil
}

// Query returns records whose url is in urls, oldest first.
func (r *HistoryRepository) Query(ctx context.Context, urls []string) ([]scan.Record, error) {
	if len(urls) == 0 {
		return []scan.Record{}, nil
	}

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(urls)), ", ")

	query := selectSQL + " WHERE url IN (" + placeholders + ") ORDER BY id"
	return r.selectRecords(ctx, query, args...)
}

// All returns every record, oldest first.
func (r *HistoryRepository) All(ctx context.Context) ([]scan.Record, error) {
	return r.selectRecords(ctx, selectSQL+" ORDER BY id")
}

// Close closes the database.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

func (r *HistoryRepository) selectRecords(ctx context.Context, query string, args ...any) ([]scan.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"github.com/khanhnv2901/webscan/internal/shared/security"
)

const utf8BOM = "\ufeff"

// HistoryRepository implements scan.Repository on a flat CSV file.
// The header written on first append fixes the columns and their order for every later append.
type HistoryRepository struct {
	path   string
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewHistoryRepository creates a CSV-backed history at path. The file itself is
// created lazily by the first non-empty Append.
func NewHistoryRepository(path string, logger *zap.Logger) (*HistoryRepository, error) {
	cleanPath, err := security.CleanFilePath(path)
	if err != nil {
		return nil, fmt.Errorf("history file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &HistoryRepository{
		path:   cleanPath,
		logger: logger,
	}, nil
}

// Path returns the history file location.
func (r *HistoryRepository) Path() string {
	return r.path
}

// Append writes the whole batch with a single write call, emitting the header first
// when the file is new or empty. Rows follow an existing header's columns; fields that
// header does not name (error or https in older files) are not written.
func (r *HistoryRepository) Append(ctx context.Context, results []scan.Result) error {
	if len(results) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	header, err := r.readHeader()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	columns := header
	if columns == nil {
		columns = scan.RecordFields
		if err := writer.Write(columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	} else if !scan.IsHistoryHeader(columns) {
		return fmt.Errorf("%w: %s has columns %v", sharedErrors.ErrSchemaMismatch, r.path, columns)
	}

	for _, res := range results {
		if err := writer.Write(scan.NewRecord(res).Row(columns)); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}

	if _, err := file.Write(buf.Bytes()); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to append history: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}

	r.logger.Debug("history appended", zap.String("path", r.path), zap.Int("records", len(results)))
	return nil
}

// Query returns records whose url is in urls, in file order.
func (r *HistoryRepository) Query(ctx context.Context, urls []string) ([]scan.Record, error) {
	if len(urls) == 0 {
		return []scan.Record{}, nil
	}
	filter := scan.URLSet(urls)
	return r.load(ctx, func(url string) bool {
		_, ok := filter[url]
		return ok
	})
}

// All returns every record in file order.
func (r *HistoryRepository) All(ctx context.Context) ([]scan.Record, error) {
	return r.load(ctx, func(string) bool { return true })
}

// Close is a no-op; the file is opened per operation.
func (r *HistoryRepository) Close() error {
	return nil
}

// Helper methods

// readHeader returns the existing header, or nil when the file is missing or empty.
func (r *HistoryRepository) readHeader() ([]string, error) {
	file, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	header, err := csv.NewReader(file).Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return trimBOM(header), nil
}

func (r *HistoryRepository) load(ctx context.Context, match func(url string) bool) ([]scan.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]scan.Record, 0)

	file, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err == io.EOF {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = trimBOM(header)
	if !scan.IsHistoryHeader(header) {
		return nil, fmt.Errorf("%w: %s has columns %v", sharedErrors.ErrSchemaMismatch, r.path, header)
	}

	for n := 1; ; n++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		rec, err := scan.ParseRow(header, row)
		if err != nil {
			return nil, fmt.Errorf("history record %d: %w", n, err)
		}
		if match(rec.URL) {
			records = append(records, rec)
		}
	}

	return records, nil
}

func trimBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header
}

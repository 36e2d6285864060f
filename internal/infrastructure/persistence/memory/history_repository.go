package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
)

// HistoryRepository keeps history in process memory. Nothing survives a restart.
type HistoryRepository struct {
	mu      sync.RWMutex
	records []scan.Record
}

// NewHistoryRepository creates an empty in-memory history.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

// Append adds the batch under a single lock.
func (r *HistoryRepository) Append(ctx context.Context, results []scan.Result) error {
	if len(results) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := make([]scan.Record, 0, len(results))
	for _, res := range results {
		batch = append(batch, scan.NewRecord(res))
	}

	r.mu.Lock()
	r.records = append(r.records, batch...)
	r.mu.Unlock()
	return nil
}

// Query returns matching records in insertion order.
func (r *HistoryRepository) Query(ctx context.Context, urls []string) ([]scan.Record, error) {
	filter := scan.URLSet(urls)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]scan.Record, 0)
	for _, rec := range r.records {
		if _, ok := filter[rec.URL]; ok {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

// All returns every record in insertion order.
func (r *HistoryRepository) All(ctx context.Context) ([]scan.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]scan.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

// Close is a no-op.
func (r *HistoryRepository) Close() error {
	return nil
}

// cloneRecord copies the Headers map so callers cannot edit stored history.
func cloneRecord(rec scan.Record) scan.Record {
	rec.Headers = maps.Clone(rec.Headers)
	return rec
}

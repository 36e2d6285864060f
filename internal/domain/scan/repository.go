package scan

import "context"

// Repository is the append-only scan history.
type Repository interface {
	// Append persists a whole batch. An empty batch is a no-op.
	Append(ctx context.Context, results []Result) error

	// Query returns records whose url is one of urls, oldest first, duplicates included.
	// No match and an empty store both yield an empty slice.
	Query(ctx context.Context, urls []string) ([]Record, error)

	// All returns the whole history, oldest first.
	All(ctx context.Context) ([]Record, error)

	// Close releases the backend.
	Close() error
}

// URLSet builds a membership set for query filters.
func URLSet(urls []string) map[string]struct{} {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set
}

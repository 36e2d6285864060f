package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
)

func newTestRepo(t *testing.T) (*HistoryRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	repo, err := NewHistoryRepository(path, nil)
	if err != nil {
		t.Fatalf("NewHistoryRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestHistoryRepository_RoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	in := scan.Result{
		URL: "https://a.com",
		Signals: scan.Signals{
			UsesHTTPS:      true,
			ServerHeader:   "nginx",
			PresentHeaders: []string{"Content-Security-Policy", "Referrer-Policy"},
			OpenDirectory:  true,
			RobotsTxtFound: true,
		},
		RiskLevel: scan.RiskHigh,
	}
	if err := repo.Append(ctx, []scan.Result{in}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := repo.Query(ctx, []string{"https://a.com"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(got))
	}

	want := scan.NewRecord(in)
	rec := got[0]
	if rec.URL != want.URL || rec.HTTPS != want.HTTPS || rec.ServerInfo != want.ServerInfo ||
		rec.OpenDirectory != want.OpenDirectory || rec.RobotsTxt != want.RobotsTxt ||
		rec.RiskLevel != want.RiskLevel || rec.Error != want.Error {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", rec, want)
	}
	for _, h := range scan.RecommendedHeaders {
		if rec.Headers[h] != want.Headers[h] {
			t.Errorf("header %s: got %v, want %v", h, rec.Headers[h], want.Headers[h])
		}
	}
}

func TestHistoryRepository_OrderAndDuplicatesSurviveReopen(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	first := []scan.Result{
		{URL: "https://a.com", RiskLevel: scan.RiskGood},
		{URL: "https://b.com", RiskLevel: scan.RiskHigh},
	}
	if err := repo.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	repo.Close()

	reopened, err := NewHistoryRepository(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	failed := scan.Result{URL: "https://a.com", Signals: scan.FailedSignals("refused"), RiskLevel: scan.RiskError}
	if err := reopened.Append(ctx, []scan.Result{failed}); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}

	got, err := reopened.Query(ctx, []string{"https://a.com", "https://missing"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].RiskLevel != scan.RiskGood || got[1].RiskLevel != scan.RiskError {
		t.Fatalf("Unexpected records: %+v", got)
	}
	if got[1].Error != "refused" || got[1].ServerInfo != scan.ServerUnknown {
		t.Errorf("failure fields not persisted: %+v", got[1])
	}

	all, err := reopened.All(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d (%v)", len(all), err)
	}
}

func TestHistoryRepository_EmptyCases(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Append(ctx, nil); err != nil {
		t.Fatalf("empty Append: %v", err)
	}
	got, err := repo.Query(ctx, []string{"https://a.com"})
	if err != nil || len(got) != 0 {
		t.Fatalf("Expected empty result, got %v (%v)", got, err)
	}
	if got, _ := repo.Query(ctx, nil); len(got) != 0 {
		t.Fatalf("Expected empty result for empty filter, got %v", got)
	}
}

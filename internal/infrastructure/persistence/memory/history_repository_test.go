package memory

import (
	"context"
	"testing"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
)

func TestHistoryRepository_AppendAndQuery(t *testing.T) {
	repo := NewHistoryRepository()
	ctx := context.Background()

	batch := []scan.Result{
		{URL: "https://a.com", RiskLevel: scan.RiskGood, Signals: scan.Signals{UsesHTTPS: true, ServerHeader: "gws"}},
		{URL: "http://b.com", RiskLevel: scan.RiskHigh, Signals: scan.Signals{ServerHeader: scan.ServerNotPresent}},
		{URL: "https://a.com", RiskLevel: scan.RiskError, Signals: scan.FailedSignals("timeout")},
	}
	if err := repo.Append(ctx, batch); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := repo.Append(ctx, nil); err != nil {
		t.Fatalf("empty Append: %v", err)
	}

	got, err := repo.Query(ctx, []string{"https://a.com"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].RiskLevel != scan.RiskGood || got[1].Error != "timeout" {
		t.Errorf("Unexpected records order or contents: %+v", got)
	}

	if none, _ := repo.Query(ctx, nil); len(none) != 0 {
		t.Errorf("Expected empty result for empty filter, got %d", len(none))
	}

	all, _ := repo.All(ctx)
	if len(all) != 3 {
		t.Errorf("Expected 3 records, got %d", len(all))
	}
	all[0].URL = "mutated"
	if again, _ := repo.All(ctx); again[0].URL != "https://a.com" {
		t.Error("All must return a copy")
	}
}

func TestHistoryRepository_ReturnedHeadersAreCopies(t *testing.T) {
	repo := NewHistoryRepository()
	ctx := context.Background()

	batch := []scan.Result{{
		URL:       "https://a.com",
		RiskLevel: scan.RiskHigh,
		Signals:   scan.Signals{UsesHTTPS: true, PresentHeaders: []string{"X-Frame-Options"}},
	}}
	if err := repo.Append(ctx, batch); err != nil {
		t.Fatalf("Append: %v", err)
	}

	all, _ := repo.All(ctx)
	all[0].Headers["Content-Security-Policy"] = true
	queried, _ := repo.Query(ctx, []string{"https://a.com"})
	queried[0].Headers["Referrer-Policy"] = true

	again, _ := repo.All(ctx)
	if again[0].Headers["Content-Security-Policy"] || again[0].Headers["Referrer-Policy"] {
		t.Fatalf("stored headers changed through a returned record: %v", again[0].Headers)
	}
	if !again[0].Headers["X-Frame-Options"] {
		t.Errorf("expected X-Frame-Options to stay recorded, got %v", again[0].Headers)
	}
}

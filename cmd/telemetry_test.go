package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	scanapp "github.com/khanhnv2901/webscan/internal/application/scan"
)

func TestRecordTelemetry_WritesMetrics(t *testing.T) {
	dir := t.TempDir()

	summary := scanapp.Summary{
		Targets:          4,
		Good:             2,
		HighRisk:         1,
		Errors:           1,
		Duration:         2 * time.Second,
		PersistenceError: errors.New("locked"),
	}

	if err := recordTelemetry(dir, "scan", summary); err != nil {
		t.Fatalf("recordTelemetry returned error: %v", err)
	}
	if err := recordTelemetry(dir, "scan", scanapp.Summary{}); err != nil {
		t.Fatalf("recordTelemetry returned error: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "telemetry.jsonl"))
	if err != nil {
		t.Fatalf("failed to open telemetry file: %v", err)
	}
	defer f.Close()

	var records []telemetryRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec telemetryRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("failed to unmarshal record: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 telemetry records, got %d", len(records))
	}

	rec := records[0]
	if rec.Command != "scan" || rec.TargetCount != 4 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.GoodCount != 2 || rec.HighRiskCount != 1 || rec.ErrorCount != 1 {
		t.Errorf("unexpected counts: %+v", rec)
	}
	if rec.DurationSeconds != 2 || rec.AvgDurationPerScan != 0.5 {
		t.Errorf("unexpected durations: %+v", rec)
	}
	if !rec.PersistenceFailed {
		t.Error("expected persistence_failed to be true")
	}
	if _, err := uuid.Parse(rec.RunID); err != nil {
		t.Errorf("expected UUID run id, got %q", rec.RunID)
	}
	if rec.RunID == records[1].RunID {
		t.Error("expected distinct run ids")
	}
	if records[1].AvgDurationPerScan != 0 {
		t.Errorf("expected zero average for empty run, got %f", records[1].AvgDurationPerScan)
	}
}

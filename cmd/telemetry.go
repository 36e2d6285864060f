package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	scanapp "github.com/khanhnv2901/webscan/internal/application/scan"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	"github.com/khanhnv2901/webscan/internal/shared/security"
)

type telemetryRecord struct {
	Timestamp          time.Time `json:"timestamp"`
	RunID              string    `json:"run_id"`
	Command            string    `json:"command"`
	TargetCount        int       `json:"target_count"`
	GoodCount          int       `json:"good_count"`
	HighRiskCount      int       `json:"high_risk_count"`
	ErrorCount         int       `json:"error_count"`
	DurationSeconds    float64   `json:"duration_seconds"`
	AvgDurationPerScan float64   `json:"avg_duration_per_scan"`
	PersistenceFailed  bool      `json:"persistence_failed"`
}

func recordTelemetry(dataDir, command string, summary scanapp.Summary) error {
	avgDuration := 0.0
	if summary.Targets > 0 {
		avgDuration = summary.Duration.Seconds() / float64(summary.Targets)
	}

	record := telemetryRecord{
		Timestamp:          time.Now().UTC(),
		RunID:              uuid.NewString(),
		Command:            command,
		TargetCount:        summary.Targets,
		GoodCount:          summary.Good,
		HighRiskCount:      summary.HighRisk,
		ErrorCount:         summary.Errors,
		DurationSeconds:    summary.Duration.Seconds(),
		AvgDurationPerScan: avgDuration,
		PersistenceFailed:  summary.PersistenceError != nil,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	telemetryPath, err := security.ResolveWithin(dataDir, consts.TelemetryFileName)
	if err != nil {
		return fmt.Errorf("telemetry path: %w", err)
	}
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}

// telemetryHook returns a completion hook that appends one record per scan, logging failures.
func telemetryHook(appCtx *AppContext, command string) scanapp.CompleteFunc {
	return func(summary scanapp.Summary) {
		if err := recordTelemetry(appCtx.DataDir, command, summary); err != nil && appCtx.Logger != nil {
			appCtx.Logger.Warnw("failed to record telemetry", "error", err)
		}
	}
}

package application

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	scanapp "github.com/khanhnv2901/webscan/internal/application/scan"
	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/infrastructure/persistence/csvfile"
	"github.com/khanhnv2901/webscan/internal/infrastructure/persistence/memory"
	"github.com/khanhnv2901/webscan/internal/infrastructure/persistence/postgres"
	"github.com/khanhnv2901/webscan/internal/infrastructure/persistence/sqlite"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// History backends selectable through configuration.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config selects and tunes the components the container builds.
type Config struct {
	DataDir     string // Holds file-based history when HistoryPath is empty
	Backend     string // csv (default), sqlite, postgres or memory
	HistoryPath string // File location for csv and sqlite
	DSN         string // Connection string for postgres

	Concurrency   int
	RateLimit     int
	Timeout       time.Duration
	RobotsTimeout time.Duration
}

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	HistoryRepo scan.Repository

	// Services
	Prober           *checker.HTTPProber
	Runner           *checker.Runner
	ScanOrchestrator *scanapp.Orchestrator
}

// NewContainer creates a new application service container
func NewContainer(ctx context.Context, cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	historyRepo, err := NewHistoryRepository(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create history repository: %w", err)
	}

	prober := checker.NewHTTPProber(logger.Named("prober"))
	if cfg.Timeout > 0 {
		prober.Timeout = cfg.Timeout
	}
	if cfg.RobotsTimeout > 0 {
		prober.RobotsTimeout = cfg.RobotsTimeout
	}

	runner := &checker.Runner{
		Concurrency: cfg.Concurrency,
		RateLimit:   cfg.RateLimit,
		Logger:      logger.Named("runner"),
	}

	return &Container{
		HistoryRepo:      historyRepo,
		Prober:           prober,
		Runner:           runner,
		ScanOrchestrator: scanapp.NewOrchestrator(historyRepo, prober, runner, logger.Named("scan")),
	}, nil
}

// Close releases the history backend.
func (c *Container) Close() error {
	return c.HistoryRepo.Close()
}

// NewHistoryRepository builds the configured history backend.
func NewHistoryRepository(ctx context.Context, cfg Config, logger *zap.Logger) (scan.Repository, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))

	switch backend {
	case "", BackendCSV:
		return csvfile.NewHistoryRepository(historyPath(cfg, consts.HistoryFileName), logger)
	case BackendSQLite:
		return sqlite.NewHistoryRepository(historyPath(cfg, consts.SQLiteFileName), logger)
	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires history.dsn")
		}
		pool, err := postgres.NewDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.NewHistoryRepository(pool, logger), nil
	case BackendMemory:
		return memory.NewHistoryRepository(), nil
	}

	return nil, fmt.Errorf("%w: %q", sharedErrors.ErrUnknownBackend, cfg.Backend)
}

func historyPath(cfg Config, fileName string) string {
	if cfg.HistoryPath != "" {
		return cfg.HistoryPath
	}
	return filepath.Join(cfg.DataDir, fileName)
}

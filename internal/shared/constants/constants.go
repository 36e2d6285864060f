package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// PrimaryProbeTimeout bounds the main GET against a target, redirects included.
	PrimaryProbeTimeout = 5 * time.Second
	// RobotsProbeTimeout bounds the secondary robots.txt GET.
	RobotsProbeTimeout = 3 * time.Second
	// MaxBodyBytes caps how much of a response body is scanned for the directory listing marker.
	MaxBodyBytes = 2 << 20
	// DefaultConcurrency is the probe worker pool size.
	DefaultConcurrency = 8
)

const (
	// BrowserUserAgent is sent on every probe so trivial bot filters answer like they would a browser.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/115.0 Safari/537.36"
	// DirectoryListingMarker is the body substring that flags an exposed file index.
	DirectoryListingMarker = "Index of /"
)

const (
	// HistoryFileName is the flat CSV history file, named like the legacy web front end's.
	HistoryFileName = "history.csv"
	// SQLiteFileName is the database file used by the sqlite history backend.
	SQLiteFileName = "history.db"
	// TelemetryFileName collects one JSON line per scan run.
	TelemetryFileName = "telemetry.jsonl"
)

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// resetCommandState restores flag values, runtime config and viper between executions
// of the shared command tree.
func resetCommandState(t *testing.T) {
	t.Helper()

	*cliConfig = *newCLIConfig()
	viper.Reset()
	globalAppContext = nil

	originalNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = originalNoColor })

	t.Setenv("HOME", t.TempDir())

	for _, c := range []*cobra.Command{rootCmd, scanCmd, historyCmd, serveCmd, versionCmd} {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				if sv, ok := f.Value.(pflag.SliceValue); ok {
					_ = sv.Replace(nil)
				} else {
					_ = f.Value.Set(f.DefValue)
				}
				f.Changed = false
			})
		}
	}
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetCommandState(t)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func newTargetServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\n"))
			return
		}
		w.Header().Set("Server", "test-server")
		w.Header().Set("X-Frame-Options", "DENY")
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScanCommand_PersistsAndHistoryReads(t *testing.T) {
	server := newTargetServer(t)
	dataDir := t.TempDir()

	stdout, _, err := executeCommand(t, "", "scan", "--data-dir", dataDir, "--format", "csv-basic", server.URL)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	wantRow := server.URL + ",Yes,No,test-server,Yes,"
	if !strings.Contains(stdout, "url,reachable,https,server,robots_txt,error\n"+wantRow) {
		t.Fatalf("unexpected scan output:\n%s", stdout)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "history.csv")); err != nil {
		t.Fatalf("expected history.csv in data dir: %v", err)
	}

	stdout, _, err = executeCommand(t, "", "history", "--data-dir", dataDir, "--format", "json", "--url", server.URL)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var records []scan.Record
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("decode history: %v\n%s", err, stdout)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.RiskLevel != scan.RiskHigh || rec.ServerInfo != "test-server" || !rec.Headers["X-Frame-Options"] || !rec.RobotsTxt {
		t.Errorf("unexpected record: %+v", rec)
	}

	stdout, _, err = executeCommand(t, "", "history", "--data-dir", dataDir, "--url", "http://never-scanned.example")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if strings.Contains(stdout, server.URL) {
		t.Errorf("filter leaked other targets:\n%s", stdout)
	}
}

func TestScanCommand_ReadsStdinAndFile(t *testing.T) {
	server := newTargetServer(t)
	dataDir := t.TempDir()

	stdout, _, err := executeCommand(t, server.URL+"\n\n", "scan", "--data-dir", dataDir, "--format", "json")
	if err != nil {
		t.Fatalf("scan from stdin failed: %v", err)
	}
	var results []scan.Result
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 1 || string(results[0].URL) != server.URL {
		t.Fatalf("unexpected results: %+v", results)
	}

	targets := filepath.Join(t.TempDir(), "targets.txt")
	if err := os.WriteFile(targets, []byte(server.URL+"\n"+server.URL+"/again\n"), 0o644); err != nil {
		t.Fatalf("write targets: %v", err)
	}
	output := filepath.Join(t.TempDir(), "out.csv")

	_, stderr, err := executeCommand(t, "", "scan", "--data-dir", dataDir, "--file", targets, "--format", "csv", "--output", output)
	if err != nil {
		t.Fatalf("scan from file failed: %v", err)
	}
	if !strings.Contains(stderr, "Wrote 2 results") {
		t.Errorf("expected confirmation on stderr, got %q", stderr)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 3 {
		t.Errorf("expected header + 2 rows, got:\n%s", data)
	}
}

func TestScanCommand_Errors(t *testing.T) {
	dataDir := t.TempDir()

	_, _, err := executeCommand(t, "  \n", "scan", "--data-dir", dataDir)
	if !errors.Is(err, sharedErrors.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}

	_, _, err = executeCommand(t, "", "scan", "--data-dir", dataDir, "--format", "xml", "http://a.example")
	var formatErr *UnsupportedFormatError
	if !errors.As(err, &formatErr) || formatErr.Format != "xml" {
		t.Errorf("expected UnsupportedFormatError, got %v", err)
	}

	_, _, err = executeCommand(t, "", "history", "--data-dir", dataDir, "--history-backend", "mongo")
	if !errors.Is(err, sharedErrors.ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestScanCommand_PersistenceFailureStillPrintsResults(t *testing.T) {
	server := newTargetServer(t)
	dataDir := t.TempDir()
	// A directory in place of the history file makes every append fail.
	if err := os.Mkdir(filepath.Join(dataDir, "history.csv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	stdout, _, err := executeCommand(t, "", "scan", "--data-dir", dataDir, server.URL)

	var warning *PersistenceWarning
	if !errors.As(err, &warning) {
		t.Fatalf("expected PersistenceWarning, got %v", err)
	}
	if !errors.Is(err, sharedErrors.ErrPersistence) {
		t.Errorf("expected error to wrap ErrPersistence, got %v", err)
	}
	if !strings.Contains(stdout, server.URL) || !strings.Contains(stdout, "High Risk") {
		t.Errorf("expected results table despite persistence failure:\n%s", stdout)
	}
}

func TestScanCommand_SQLiteBackendAndTelemetryFromEnv(t *testing.T) {
	server := newTargetServer(t)
	dataDir := t.TempDir()
	t.Setenv("WEBSCAN_HISTORY_BACKEND", "sqlite")
	t.Setenv("WEBSCAN_TELEMETRY", "true")
	t.Setenv("WEBSCAN_SCAN_CONCURRENCY", "3")

	_, stderr, err := executeCommand(t, "", "scan", "--data-dir", dataDir, "--progress", server.URL)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if cliConfig.Scan.Concurrency != 3 {
		t.Errorf("expected concurrency 3 from environment, got %d", cliConfig.Scan.Concurrency)
	}
	if !strings.Contains(stderr, "Progress: 1/1") {
		t.Errorf("expected progress line on stderr, got %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "history.db")); err != nil {
		t.Errorf("expected sqlite history: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "history.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("csv history must not be written with the sqlite backend")
	}
	if _, err := os.Stat(filepath.Join(dataDir, "telemetry.jsonl")); err != nil {
		t.Errorf("expected telemetry record: %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "", "version", "--data-dir", t.TempDir())
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if stdout != "webscan version "+Version+"\n" {
		t.Errorf("unexpected version output %q", stdout)
	}

	stdout, _, err = executeCommand(t, "", "version", "-v", "--data-dir", t.TempDir())
	if err != nil {
		t.Fatalf("version -v failed: %v", err)
	}
	if !strings.Contains(stdout, "Go Version:") {
		t.Errorf("expected detailed version output, got %q", stdout)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in   string
		want outputFormat
		err  bool
	}{
		{"", formatTable, false},
		{"TABLE", formatTable, false},
		{"json", formatJSON, false},
		{"csv", formatCSV, false},
		{"csv-basic", formatCSVBasic, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := parseOutputFormat(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("parseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

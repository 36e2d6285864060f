package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"github.com/khanhnv2901/webscan/internal/shared/security"
)

var scanCmd = &cobra.Command{
	Use:   "scan [urls...]",
	Short: "Probe targets and append the results to history",
	Long: `Probe each target with a browser-like GET, inspect the response for baseline
security signals, classify the risk, and append the batch to the scan history.

Targets come from arguments, from --file (one per line), or from stdin when it is
not a terminal. Targets without a scheme are probed over http://.`,
	Example: `  webscan scan example.com https://example.org
  webscan scan --file targets.txt --format csv --output results.csv
  cat targets.txt | webscan scan --progress`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		formatValue, _ := cmd.Flags().GetString("format")
		format, err := parseOutputFormat(formatValue)
		if err != nil {
			return err
		}
		outputPath, _ := cmd.Flags().GetString("output")
		inputFile, _ := cmd.Flags().GetString("file")

		raw, err := collectTargets(cmd.InOrStdin(), args, inputFile)
		if err != nil {
			return err
		}
		targets := checker.NormalizeTargets(raw)
		if len(targets) == 0 {
			return fmt.Errorf("%w: pass URLs as arguments, with --file, or on stdin", sharedErrors.ErrEmptyInput)
		}

		services, err := newServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close()

		orchestrator := services.ScanOrchestrator
		if appCtx.Config.Scan.TelemetryEnabled {
			orchestrator.OnComplete(telemetryHook(appCtx, "scan"))
		}

		var printer *progressPrinter
		var onResult checker.ResultFunc
		if appCtx.Config.Scan.ProgressEnabled {
			printer = newProgressPrinter(cmd.ErrOrStderr(), len(targets), "scan")
			printer.Start()
			onResult = func(res scan.Result, d time.Duration) {
				printer.Increment(res.RiskLevel != scan.RiskError, d.Seconds())
			}
		}

		results, persistErr := orchestrator.RunScanWithProgress(cmd.Context(), raw, onResult)
		if printer != nil {
			printer.Stop()
		}

		if err := withOutput(cmd.OutOrStdout(), outputPath, func(w io.Writer) error {
			return renderResults(w, results, format)
		}); err != nil {
			return err
		}
		if outputPath != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Wrote %d results to %s\n", colorInfo("→"), len(results), outputPath)
		}

		if persistErr != nil {
			return &PersistenceWarning{Err: persistErr}
		}
		return nil
	},
}

// collectTargets joins targets from args, an input file and piped stdin into newline text.
func collectTargets(stdin io.Reader, args []string, inputFile string) (string, error) {
	parts := append([]string{}, args...)

	if inputFile != "" {
		path, err := security.CleanFilePath(inputFile)
		if err != nil {
			return "", fmt.Errorf("target file: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read target file: %w", err)
		}
		parts = append(parts, string(data))
	}

	if len(parts) == 0 && !isTerminal(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		parts = append(parts, string(data))
	}

	return strings.Join(parts, "\n"), nil
}

func init() {
	scanCmd.Flags().StringP("file", "f", "", "Read targets from a file, one per line")
	scanCmd.Flags().String("format", string(formatTable), "Output format: table, json, csv or csv-basic")
	scanCmd.Flags().StringP("output", "o", "", "Write results to a file instead of stdout")
	scanCmd.Flags().IntVar(&cliConfig.Scan.Concurrency, "concurrency", cliConfig.Scan.Concurrency, "Maximum concurrent probes")
	scanCmd.Flags().IntVar(&cliConfig.Scan.RateLimit, "rate-limit", cliConfig.Scan.RateLimit, "Probes started per second (0 = unlimited)")
	scanCmd.Flags().DurationVar(&cliConfig.Scan.Timeout, "timeout", cliConfig.Scan.Timeout, "Primary request timeout per target")
	scanCmd.Flags().BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", false, "Show progress on stderr")
	scanCmd.Flags().BoolVar(&cliConfig.Scan.TelemetryEnabled, "telemetry", false, "Append a run summary to telemetry.jsonl")
}

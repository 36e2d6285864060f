package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	"github.com/khanhnv2901/webscan/internal/export"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
	"github.com/khanhnv2901/webscan/internal/shared/security"
)

type outputFormat string

const (
	formatTable    outputFormat = "table"
	formatJSON     outputFormat = "json"
	formatCSV      outputFormat = "csv"
	formatCSVBasic outputFormat = "csv-basic"
)

func parseOutputFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return formatTable, nil
	case formatTable, formatJSON, formatCSV, formatCSVBasic:
		return f, nil
	}
	return "", &UnsupportedFormatError{Format: s}
}

// withOutput runs write against the --output file when set, otherwise against stdout.
func withOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}

	cleanPath, err := security.CleanFilePath(path)
	if err != nil {
		return fmt.Errorf("output file: %w", err)
	}

	f, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func renderResults(w io.Writer, results []scan.Result, format outputFormat) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, results)
	case formatCSV:
		return export.WriteCSV(w, export.Records(results), export.SchemaFull)
	case formatCSVBasic:
		return export.WriteCSV(w, export.Records(results), export.SchemaBasic)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tRisk\tHTTPS\tServer\tHeaders\tRobots\tOpen Dir\tError")
	fmt.Fprintln(tw, "---\t----\t-----\t------\t-------\t------\t--------\t-----")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\t%s\n",
			res.URL,
			formatRiskWithColor(res.RiskLevel),
			scan.FormatBool(res.UsesHTTPS),
			res.ServerHeader,
			len(res.PresentHeaders), len(scan.RecommendedHeaders),
			scan.FormatBool(res.RobotsTxtFound),
			scan.FormatBool(res.OpenDirectory),
			res.Error,
		)
	}
	return tw.Flush()
}

func renderRecords(w io.Writer, records []scan.Record, format outputFormat) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, records)
	case formatCSV:
		return export.WriteCSV(w, records, export.SchemaFull)
	case formatCSVBasic:
		return export.WriteCSV(w, records, export.SchemaBasic)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tRisk\tHTTPS\tServer\tHeaders\tRobots\tOpen Dir\tError")
	fmt.Fprintln(tw, "---\t----\t-----\t------\t-------\t------\t--------\t-----")
	for _, rec := range records {
		present := 0
		for _, h := range scan.RecommendedHeaders {
			if rec.Headers[h] {
				present++
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\t%s\n",
			rec.URL,
			formatRiskWithColor(rec.RiskLevel),
			scan.FormatBool(rec.HTTPS),
			rec.ServerInfo,
			present, len(scan.RecommendedHeaders),
			scan.FormatBool(rec.RobotsTxt),
			scan.FormatBool(rec.OpenDirectory),
			rec.Error,
		)
	}
	return tw.Flush()
}

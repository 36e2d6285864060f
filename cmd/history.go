package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or export recorded scan results",
	Long: `Read the scan history. Without --url every record is returned, oldest first.
With one or more --url values only records for those exact targets are returned.`,
	Example: `  webscan history
  webscan history --url https://example.com --format csv-basic --output example.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatValue, _ := cmd.Flags().GetString("format")
		format, err := parseOutputFormat(formatValue)
		if err != nil {
			return err
		}
		outputPath, _ := cmd.Flags().GetString("output")
		urls, _ := cmd.Flags().GetStringSlice("url")

		services, err := newServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close()

		var records []scan.Record
		if len(urls) == 0 {
			records, err = services.ScanOrchestrator.History(cmd.Context())
		} else {
			records, err = services.ScanOrchestrator.Query(cmd.Context(), urls)
		}
		if err != nil {
			return err
		}

		if err := withOutput(cmd.OutOrStdout(), outputPath, func(w io.Writer) error {
			return renderRecords(w, records, format)
		}); err != nil {
			return err
		}
		if outputPath != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Wrote %d records to %s\n", colorInfo("→"), len(records), outputPath)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringSlice("url", nil, "Only records for this target (repeatable)")
	historyCmd.Flags().String("format", string(formatTable), "Output format: table, json, csv or csv-basic")
	historyCmd.Flags().StringP("output", "o", "", "Write records to a file instead of stdout")
}

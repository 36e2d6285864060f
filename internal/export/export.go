// Package export renders scan records and results as CSV and JSON downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// Schema selects the CSV column layout.
type Schema string

const (
	// SchemaFull is the history schema, one column per recommended header.
	SchemaFull Schema = "full"
	// SchemaBasic is the coarse legacy layout: url, reachable, https, server, robots_txt, error.
	SchemaBasic Schema = "basic"
)

// BasicFields is the header of the coarse export.
var BasicFields = []string{"url", "reachable", "https", "server", "robots_txt", "error"}

// ParseSchema maps a query or flag value to a Schema. Empty means SchemaFull.
func ParseSchema(s string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SchemaFull):
		return SchemaFull, nil
	case string(SchemaBasic):
		return SchemaBasic, nil
	}
	return "", fmt.Errorf("%w: schema %q", sharedErrors.ErrUnknownFormat, s)
}

// Header returns the CSV header for the schema.
func (s Schema) Header() []string {
	if s == SchemaBasic {
		return BasicFields
	}
	return scan.RecordFields
}

// Records flattens a freshly scanned batch so it exports through the same path as history.
func Records(results []scan.Result) []scan.Record {
	records := make([]scan.Record, 0, len(results))
	for _, res := range results {
		records = append(records, scan.NewRecord(res))
	}
	return records
}

// WriteCSV writes a header and one row per record. An empty slice yields the header only.
func WriteCSV(w io.Writer, records []scan.Record, schema Schema) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(schema.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := writer.Write(row(rec, schema)); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func row(rec scan.Record, schema Schema) []string {
	if schema != SchemaBasic {
		return rec.Row(scan.RecordFields)
	}

	server := rec.ServerInfo
	if server == "" || server == scan.ServerNotPresent {
		server = scan.ServerUnknown
	}
	return []string{
		rec.URL,
		scan.FormatBool(rec.Reachable()),
		scan.FormatBool(rec.HTTPS),
		server,
		scan.FormatBool(rec.RobotsTxt),
		rec.Error,
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

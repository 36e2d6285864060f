package scan

import (
	"fmt"
	"strings"
)

// Record field names, in the fixed history schema order.
const (
	FieldURL           = "url"
	FieldHTTPS         = "https"
	FieldServerInfo    = "server_info"
	FieldOpenDirectory = "open_directory"
	FieldRobotsTxt     = "robots_txt"
	FieldRiskLevel     = "risk_level"
	FieldError         = "error"
)

// RecordFields is the history schema: field set and order of every persisted record.
var RecordFields = []string{
	FieldURL,
	FieldHTTPS,
	FieldServerInfo,
	"Content-Security-Policy",
	"Strict-Transport-Security",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
	FieldOpenDirectory,
	FieldRobotsTxt,
	FieldRiskLevel,
	FieldError,
}

// Record is a Result flattened to the history schema.
type Record struct {
	URL           string          `json:"url"`
	HTTPS         bool            `json:"https"`
	ServerInfo    string          `json:"server_info"`
	Headers       map[string]bool `json:"headers"`
	OpenDirectory bool            `json:"open_directory"`
	RobotsTxt     bool            `json:"robots_txt"`
	RiskLevel     RiskLevel       `json:"risk_level"`
	Error         string          `json:"error"`
}

// NewRecord flattens a classified result.
func NewRecord(r Result) Record {
	headers := make(map[string]bool, len(RecommendedHeaders))
	for _, h := range RecommendedHeaders {
		headers[h] = r.HasHeader(h)
	}
	return Record{
		URL:           string(r.URL),
		HTTPS:         r.UsesHTTPS,
		ServerInfo:    r.ServerHeader,
		Headers:       headers,
		OpenDirectory: r.OpenDirectory,
		RobotsTxt:     r.RobotsTxtFound,
		RiskLevel:     r.RiskLevel,
		Error:         r.Error,
	}
}

// Reachable reports whether the primary probe got a response.
func (r Record) Reachable() bool {
	return r.Error == ""
}

// Column renders one schema field. Booleans render as Yes/No.
func (r Record) Column(field string) string {
	switch field {
	case FieldURL:
		return r.URL
	case FieldHTTPS:
		return FormatBool(r.HTTPS)
	case FieldServerInfo:
		return r.ServerInfo
	case FieldOpenDirectory:
		return FormatBool(r.OpenDirectory)
	case FieldRobotsTxt:
		return FormatBool(r.RobotsTxt)
	case FieldRiskLevel:
		return string(r.RiskLevel)
	case FieldError:
		return r.Error
	}
	return FormatBool(r.Headers[field])
}

// Row renders the record in the given column order.
func (r Record) Row(columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = r.Column(col)
	}
	return row
}

// ParseRow rebuilds a record from a stored row whose columns are named by header.
// Header order may differ from RecordFields. Columns the header lacks read as "" or false.
func ParseRow(header, row []string) (Record, error) {
	if len(row) != len(header) {
		return Record{}, fmt.Errorf("row has %d fields, header has %d", len(row), len(header))
	}

	values := make(map[string]string, len(header))
	for i, name := range header {
		values[name] = row[i]
	}

	rec := Record{
		URL:        values[FieldURL],
		ServerInfo: values[FieldServerInfo],
		Error:      values[FieldError],
		Headers:    make(map[string]bool, len(RecommendedHeaders)),
	}

	var err error
	if rec.HTTPS, err = ParseBool(values[FieldHTTPS]); err != nil {
		return Record{}, fmt.Errorf("field %s: %w", FieldHTTPS, err)
	}
	if rec.OpenDirectory, err = ParseBool(values[FieldOpenDirectory]); err != nil {
		return Record{}, fmt.Errorf("field %s: %w", FieldOpenDirectory, err)
	}
	if rec.RobotsTxt, err = ParseBool(values[FieldRobotsTxt]); err != nil {
		return Record{}, fmt.Errorf("field %s: %w", FieldRobotsTxt, err)
	}
	for _, h := range RecommendedHeaders {
		present, err := ParseBool(values[h])
		if err != nil {
			return Record{}, fmt.Errorf("field %s: %w", h, err)
		}
		rec.Headers[h] = present
	}

	level, ok := ParseRiskLevel(values[FieldRiskLevel])
	if !ok {
		return Record{}, fmt.Errorf("field %s: unknown risk level %q", FieldRiskLevel, values[FieldRiskLevel])
	}
	rec.RiskLevel = level

	return rec, nil
}

// IsHistoryHeader reports whether header names a readable history layout: every column is
// a schema field named once, and url and risk_level are present. Files written by the older
// web front end take their header from the first result, so a success-first file has no
// error column and a failure-first file has no https column.
func IsHistoryHeader(header []string) bool {
	known := make(map[string]bool, len(RecordFields))
	for _, name := range RecordFields {
		known[name] = true
	}

	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if !known[name] || seen[name] {
			return false
		}
		seen[name] = true
	}
	return seen[FieldURL] && seen[FieldRiskLevel]
}

// FormatBool renders a boolean the way the CSV contracts expect.
func FormatBool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ParseBool accepts Yes/No plus the True/False spellings found in older history files.
// An empty value is false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// Package persistence holds the column mapping shared by the SQL history backends.
package persistence

import "github.com/khanhnv2901/webscan/internal/domain/scan"

// HistoryTable is the table both SQL backends append to.
const HistoryTable = "scan_history"

// HistoryColumns mirrors scan.RecordFields as SQL identifiers, in the same order.
var HistoryColumns = []string{
	"url",
	"https",
	"server_info",
	"content_security_policy",
	"strict_transport_security",
	"x_content_type_options",
	"x_frame_options",
	"referrer_policy",
	"open_directory",
	"robots_txt",
	"risk_level",
	"error",
}

// RecordValues returns insert arguments for HistoryColumns.
func RecordValues(rec scan.Record) []any {
	values := []any{rec.URL, rec.HTTPS, rec.ServerInfo}
	for _, h := range scan.RecommendedHeaders {
		values = append(values, rec.Headers[h])
	}
	return append(values, rec.OpenDirectory, rec.RobotsTxt, string(rec.RiskLevel), rec.Error)
}

// RecordScanner collects one row selected in HistoryColumns order.
type RecordScanner struct {
	rec     scan.Record
	risk    string
	headers []bool
}

// NewRecordScanner prepares a scanner for a single row.
func NewRecordScanner() *RecordScanner {
	return &RecordScanner{headers: make([]bool, len(scan.RecommendedHeaders))}
}

// Dest returns scan destinations in HistoryColumns order.
func (s *RecordScanner) Dest() []any {
	dest := []any{&s.rec.URL, &s.rec.HTTPS, &s.rec.ServerInfo}
	for i := range s.headers {
		dest = append(dest, &s.headers[i])
	}
	return append(dest, &s.rec.OpenDirectory, &s.rec.RobotsTxt, &s.risk, &s.rec.Error)
}

// Record assembles the scanned row.
func (s *RecordScanner) Record() scan.Record {
	rec := s.rec
	rec.RiskLevel = scan.RiskLevel(s.risk)
	if level, ok := scan.ParseRiskLevel(s.risk); ok {
		rec.RiskLevel = level
	}
	rec.Headers = make(map[string]bool, len(scan.RecommendedHeaders))
	for i, h := range scan.RecommendedHeaders {
		rec.Headers[h] = s.headers[i]
	}
	return rec
}

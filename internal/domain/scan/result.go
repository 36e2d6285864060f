package scan

import (
	"strings"
	"time"
)

// Target is a normalized absolute URL, always carrying an http:// or https:// scheme.
type Target string

// IsValid reports whether the target is non-empty and explicitly schemed.
func (t Target) IsValid() bool {
	lower := strings.ToLower(string(t))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// RiskLevel is the coarse classification derived from probe signals.
// The string values are the rendering used by exports and the CSV history.
type RiskLevel string

const (
	RiskGood  RiskLevel = "Good"
	RiskHigh  RiskLevel = "High Risk"
	RiskError RiskLevel = "Error"
)

// ParseRiskLevel maps a stored risk label back to a RiskLevel. Unknown labels yield false.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.TrimSpace(s) {
	case string(RiskGood):
		return RiskGood, true
	case string(RiskHigh), "HighRisk":
		return RiskHigh, true
	case string(RiskError):
		return RiskError, true
	}
	return "", false
}

const (
	// ServerNotPresent is reported when a response carries no Server header.
	ServerNotPresent = "Not Present"
	// ServerUnknown is reported when the primary probe failed.
	ServerUnknown = "Unknown"
)

// RecommendedHeaders lists the baseline hardening response headers, in report order.
var RecommendedHeaders = []string{
	"Content-Security-Policy",
	"Strict-Transport-Security",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
}

// Signals holds what a single probe observed about a target.
type Signals struct {
	FinalURL       string   `json:"final_url,omitempty"`
	UsesHTTPS      bool     `json:"https"`
	ServerHeader   string   `json:"server_info"`
	PresentHeaders []string `json:"present_headers"`
	OpenDirectory  bool     `json:"open_directory"`
	RobotsTxtFound bool     `json:"robots_txt"`
	StatusCode     int      `json:"http_status,omitempty"`
	ResponseTime   float64  `json:"response_time_ms,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Failed reports whether the primary probe failed.
func (s Signals) Failed() bool {
	return s.Error != ""
}

// HasHeader reports whether the named recommended header was present on the response.
func (s Signals) HasHeader(name string) bool {
	for _, h := range s.PresentHeaders {
		if h == name {
			return true
		}
	}
	return false
}

// FailedSignals builds the signal set recorded when the primary probe could not complete.
func FailedSignals(reason string) Signals {
	if reason == "" {
		reason = "probe failed"
	}
	return Signals{
		ServerHeader:   ServerUnknown,
		PresentHeaders: []string{},
		Error:          reason,
	}
}

// Result is one classified probe outcome. It is not modified after classification.
type Result struct {
	URL       Target    `json:"url"`
	CheckedAt time.Time `json:"checked_at"`
	Signals
	RiskLevel RiskLevel `json:"risk_level"`

	// Interrupted marks a target whose probe was skipped or cut short because the scan
	// itself was cancelled. Such results are reported but never written to history.
	Interrupted bool `json:"-"`
}

// Completed returns the results whose probe ran to an outcome, preserving order.
func Completed(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if !r.Interrupted {
			out = append(out, r)
		}
	}
	return out
}

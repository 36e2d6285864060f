package checker

import (
	"net/url"
	"strings"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
)

// NormalizeTargets turns raw multi-line input into scan targets.
// Lines are trimmed, blank lines dropped, and a missing scheme becomes http://.
// Input order and duplicates are kept: rescanning the same URL is allowed.
func NormalizeTargets(raw string) []scan.Target {
	lines := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	targets := make([]scan.Target, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		target := scan.Target(line)
		if !target.IsValid() {
			target = scan.Target("http://" + line)
		}
		targets = append(targets, target)
	}
	return targets
}

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string
	Scheme   string // http, https, or empty
	Host     string // Hostname (without protocol, path, port)
	Port     string // Port if specified
	Path     string // Path if specified
}

// ParseTarget splits a target into its components. Targets without a scheme are
// parsed as http URLs, so "example.com:8080/x" still yields a host and port.
func ParseTarget(target string) *TargetInfo {
	info := &TargetInfo{Original: target}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") || parsed.Host == "" {
		parsed, err = url.Parse("http://" + target)
	}
	if err != nil || parsed == nil {
		return info
	}

	info.Scheme = parsed.Scheme
	info.Host = parsed.Hostname()
	info.Port = parsed.Port()
	info.Path = parsed.Path
	return info
}

// ExtractHost extracts just the hostname from a target.
func ExtractHost(target string) string {
	return ParseTarget(target).Host
}

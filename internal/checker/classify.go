package checker

import (
	"strings"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
)

// MinRecommendedHeaders is the number of recommended headers an HTTPS origin needs
// to be rated Good.
const MinRecommendedHeaders = 3

// trustedFrontends are Server header fragments of frontends rated Good regardless of
// header count. Matching is on the lower-cased, trimmed header.
var trustedFrontends = []string{"gws", "googlefrontend", "google frontends"}

// Classify maps probe signals to a risk level. Rules apply in order:
// a failed probe is Error, plain HTTP is High Risk, a trusted frontend is Good,
// fewer than MinRecommendedHeaders recommended headers is High Risk, else Good.
func Classify(s scan.Signals) scan.RiskLevel {
	switch {
	case s.Failed():
		return scan.RiskError
	case !s.UsesHTTPS:
		return scan.RiskHigh
	case IsTrustedFrontend(s.ServerHeader):
		return scan.RiskGood
	case countRecommended(s) < MinRecommendedHeaders:
		return scan.RiskHigh
	}
	return scan.RiskGood
}

// IsTrustedFrontend reports whether a Server header names a trusted frontend.
func IsTrustedFrontend(server string) bool {
	server = strings.ToLower(strings.TrimSpace(server))
	if server == "" {
		return false
	}
	for _, fragment := range trustedFrontends {
		if strings.Contains(server, fragment) {
			return true
		}
	}
	return false
}

func countRecommended(s scan.Signals) int {
	n := 0
	for _, h := range scan.RecommendedHeaders {
		if s.HasHeader(h) {
			n++
		}
	}
	return n
}

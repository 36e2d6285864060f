// Package checker holds the scan core below the orchestrator.
//
//   - NormalizeTargets cleans raw operator input into schemed targets.
//   - HTTPProber implements Prober: one GET against the target, one best-effort
//     GET against robots.txt on the final origin. Failures become signal values.
//   - Classify is the pure risk rule set over the probe signals.
//   - Runner fans probes out over a bounded worker pool, optionally rate
//     limited, and returns results in input order.
//
// The open directory signal is a literal "Index of /" substring match on the
// first 2 MiB of the body and the trusted frontend rule is a substring
// match on the Server header. Both are heuristics: a page quoting the marker is
// flagged, and an index page served past the cap is missed.
package checker

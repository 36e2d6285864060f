// Package constants centralizes defaults shared across the CLI and the scan core.
//
// Probe timeouts, the browser User-Agent, the directory listing marker, and
// storage file names live here so cmd/ and internal/ agree on them without
// introducing import cycles.
package constants

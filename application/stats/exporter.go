// Package stats is the manager-socket statistics port (spec §6 "Persisted
// state", expanded in SPEC_FULL.md §4.J, component J).
package stats

// Sink receives periodic traffic snapshots, keyed by listening port, to
// forward to the manager process or a metrics backend.
type Sink interface {
	Report(port int, txRxBytes uint64)
}

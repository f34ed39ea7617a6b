// Package resolver is the name-resolution port (spec §4.H, component H).
package resolver

import "net/netip"

// Query is a single outstanding resolution; at most one may be
// outstanding per connection (spec §3 invariant 3).
type Query interface {
	// Cancel suppresses the callback and releases resources. Safe to call
	// after the callback has already fired.
	Cancel()
}

// Resolver resolves a hostname to an address asynchronously. The callback
// fires exactly once, with either a resolved address or a non-nil err,
// never both. It is invoked from a goroutine belonging to the resolver,
// not necessarily the caller's — callers that mutate connection state
// from it must synchronize.
type Resolver interface {
	Resolve(host string, callback func(addr netip.Addr, err error)) Query
}

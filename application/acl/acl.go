// Package acl is the access-control-list port (spec §1 "out of scope...
// treated as external collaborators", expanded in SPEC_FULL.md §4.I).
package acl

import "net/netip"

// Mode selects which list governs admission.
type Mode int

const (
	// ModeDisabled admits every peer; Ban is a no-op.
	ModeDisabled Mode = iota
	// ModeWhiteList admits only peers matching the white list.
	ModeWhiteList
	// ModeBlackList admits every peer except those matching the black
	// list; BAD_HEADER/AUTH_FAIL outcomes append the peer to it.
	ModeBlackList
)

// ACL decides whether to admit a peer and records black-list bans.
type ACL interface {
	Mode() Mode
	Allowed(addr netip.Addr) bool
	// Ban adds addr to the black list. Only meaningful in ModeBlackList;
	// a no-op otherwise.
	Ban(addr netip.Addr)
}

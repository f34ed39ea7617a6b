// Package acl implements the access-control list (spec §4.I, component
// I): glob and CIDR matching over peer addresses, with black-list mode
// auto-banning on BAD_HEADER/AUTH_FAIL (spec §4.F edge-case policy).
//
// Grounded on github.com/ryanuber/go-glob for `*`/`?` textual pattern
// matching (present in the example pack's manifest surveys as the
// standard lightweight glob library in Go CLI tooling); CIDR matching
// uses stdlib net/netip, which already expresses prefix containment
// directly and needs no third-party help.
package acl

import (
	"net/netip"
	"strings"
	"sync"

	"github.com/ryanuber/go-glob"

	appacl "shadowrelay/application/acl"
)

// rule is either a CIDR prefix or a glob pattern over the address's
// string form; exactly one of prefix.IsValid() or pattern != "" holds.
type rule struct {
	prefix  netip.Prefix
	pattern string
}

func parseRule(s string) rule {
	if p, err := netip.ParsePrefix(s); err == nil {
		return rule{prefix: p}
	}
	// A bare IP is a /32 or /128 CIDR rule.
	if addr, err := netip.ParseAddr(s); err == nil {
		bits := 32
		if addr.Is6() {
			bits = 128
		}
		return rule{prefix: netip.PrefixFrom(addr, bits)}
	}
	return rule{pattern: s}
}

func (r rule) matches(addr netip.Addr) bool {
	if r.prefix.IsValid() {
		return r.prefix.Contains(addr)
	}
	return glob.Glob(r.pattern, addr.String())
}

// list implements appacl.ACL over two rule sets. Ban only mutates the
// black list and only takes effect in ModeBlackList, per the port's
// contract.
type list struct {
	mode appacl.Mode

	mu    sync.RWMutex
	white []rule
	black []rule
}

// New builds an ACL in the given mode from glob/CIDR pattern strings,
// grounded on spec §4.I ("Two lists (white/black) of glob patterns and
// CIDR prefixes").
func New(mode appacl.Mode, whitePatterns, blackPatterns []string) appacl.ACL {
	l := &list{mode: mode}
	for _, p := range whitePatterns {
		l.white = append(l.white, parseRule(strings.TrimSpace(p)))
	}
	for _, p := range blackPatterns {
		l.black = append(l.black, parseRule(strings.TrimSpace(p)))
	}
	return l
}

func (l *list) Mode() appacl.Mode { return l.mode }

func (l *list) Allowed(addr netip.Addr) bool {
	switch l.mode {
	case appacl.ModeDisabled:
		return true
	case appacl.ModeWhiteList:
		l.mu.RLock()
		defer l.mu.RUnlock()
		return matchesAny(l.white, addr)
	case appacl.ModeBlackList:
		l.mu.RLock()
		defer l.mu.RUnlock()
		return !matchesAny(l.black, addr)
	default:
		return true
	}
}

func (l *list) Ban(addr netip.Addr) {
	if l.mode != appacl.ModeBlackList {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.black = append(l.black, rule{prefix: netip.PrefixFrom(addr, addr.BitLen())})
}

func matchesAny(rules []rule, addr netip.Addr) bool {
	for _, r := range rules {
		if r.matches(addr) {
			return true
		}
	}
	return false
}

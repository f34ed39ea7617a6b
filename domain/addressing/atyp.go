// Package addressing defines the ATYP/DST.ADDR/DST.PORT header structure
// (spec §4.E) as a pure value type. Wire parsing/emission lives in
// infrastructure/network/address; this package only describes the shape.
package addressing

import (
	"fmt"
	"net/netip"
)

// ATYP is the single address-type byte prefixing every session header.
// Bit 0x10 (OneTimeAuthFlag) may be set alongside any of the three base
// kinds below.
type ATYP byte

const (
	IPv4   ATYP = 0x01
	Domain ATYP = 0x03
	IPv6   ATYP = 0x04

	// OneTimeAuthFlag marks that a 10-byte HMAC trailer follows the header.
	OneTimeAuthFlag ATYP = 0x10

	kindMask = 0x0F
)

// Kind strips the one-time-auth flag, returning the base address kind.
func (a ATYP) Kind() ATYP { return a & kindMask }

// HasOneTimeAuth reports whether the one-time-auth flag bit is set.
func (a ATYP) HasOneTimeAuth() bool { return a&OneTimeAuthFlag != 0 }

func (a ATYP) String() string {
	switch a.Kind() {
	case IPv4:
		return "IPv4"
	case Domain:
		return "Domain"
	case IPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("ATYP(0x%02x)", byte(a))
	}
}

// DestAddr is the decoded destination of one session: either a literal IP
// or a domain name awaiting resolution, plus a port.
type DestAddr struct {
	Kind   ATYP
	IP     netip.Addr // valid when Kind is IPv4 or IPv6
	Domain string     // valid when Kind is Domain
	Port   uint16
}

// IsLiteralIP reports whether the destination is already an IP address,
// i.e. no asynchronous name resolution (§4.H) is needed.
func (d DestAddr) IsLiteralIP() bool {
	return d.Kind == IPv4 || d.Kind == IPv6
}

// Host returns the textual host part (IP or domain) independent of kind.
func (d DestAddr) Host() string {
	if d.IsLiteralIP() {
		return d.IP.String()
	}
	return d.Domain
}

func (d DestAddr) String() string {
	return fmt.Sprintf("%s:%d", d.Host(), d.Port)
}

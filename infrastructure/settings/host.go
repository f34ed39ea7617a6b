package settings

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// Host is a listen/bind address: a domain name, an IPv4 address, or an
// IPv6 address. Adapted from the teacher's client-routing Host value type
// (infrastructure/settings/host.go in NLipatov-TunGo), trimmed of the
// route-IP resolution helpers that existed only to support VPN client-side
// routing table setup — this server never owns a route table, only a
// listening socket.
type Host struct {
	domain string
	ipv4   netip.Addr
	ipv6   netip.Addr
}

// NewHost parses a single value: IPv4 → sets ipv4, IPv6 → sets ipv6,
// anything else → sets domain after validation. Empty string returns a
// zero Host (meaning "any"/unset).
func NewHost(raw string) (Host, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Host{}, nil
	}
	if ip, ok := parseHostIP(trimmed); ok {
		return hostFromIP(ip), nil
	}
	domain, ok := normalizeDomain(trimmed)
	if !ok {
		return Host{}, fmt.Errorf("invalid host %q: expected IP address or domain name", raw)
	}
	return Host{domain: domain}, nil
}

func hostFromIP(ip netip.Addr) Host {
	if ip.Unmap().Is4() {
		return Host{ipv4: ip.Unmap()}
	}
	return Host{ipv6: ip}
}

func (h Host) String() string {
	if h.domain != "" {
		return h.domain
	}
	if h.ipv4.IsValid() {
		return h.ipv4.String()
	}
	if h.ipv6.IsValid() {
		return h.ipv6.String()
	}
	return ""
}

func (h Host) IsZero() bool {
	return h.domain == "" && !h.ipv4.IsValid() && !h.ipv6.IsValid()
}

// Endpoint returns "host:port", suitable for net.Listen/net.Dial. The zero
// Host yields ":port", which net.Listen binds on every local address.
func (h Host) Endpoint(port int) (string, error) {
	if err := validatePort(port); err != nil {
		return "", err
	}
	if h.IsZero() {
		return net.JoinHostPort("", strconv.Itoa(port)), nil
	}
	return net.JoinHostPort(h.String(), strconv.Itoa(port)), nil
}

type hostJSON struct {
	Domain string `json:"Domain,omitempty"`
	IPv4   string `json:"IPv4,omitempty"`
	IPv6   string `json:"IPv6,omitempty"`
}

func (h Host) MarshalJSON() ([]byte, error) {
	obj := hostJSON{}
	switch {
	case h.domain != "":
		obj.Domain = h.domain
	case h.ipv4.IsValid():
		obj.IPv4 = h.ipv4.String()
	case h.ipv6.IsValid():
		obj.IPv6 = h.ipv6.String()
	}
	return json.Marshal(obj)
}

func (h *Host) UnmarshalJSON(data []byte) error {
	var obj hostJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid Host JSON: %w", err)
	}
	switch {
	case obj.Domain != "":
		domain, ok := normalizeDomain(obj.Domain)
		if !ok {
			return fmt.Errorf("invalid domain %q in Host", obj.Domain)
		}
		*h = Host{domain: domain}
	case obj.IPv4 != "":
		ip, ok := parseHostIP(obj.IPv4)
		if !ok || !ip.Is4() {
			return fmt.Errorf("invalid IPv4 %q in Host", obj.IPv4)
		}
		*h = Host{ipv4: ip}
	case obj.IPv6 != "":
		ip, ok := parseHostIP(obj.IPv6)
		if !ok || ip.Is4() {
			return fmt.Errorf("invalid IPv6 %q in Host", obj.IPv6)
		}
		*h = Host{ipv6: ip}
	default:
		*h = Host{}
	}
	return nil
}

func parseHostIP(raw string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(strings.Trim(raw, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return ip.Unmap(), true
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}

func normalizeDomain(raw string) (string, bool) {
	domain := strings.ToLower(strings.TrimSpace(raw))
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" || len(domain) > 253 {
		return "", false
	}
	for _, label := range strings.Split(domain, ".") {
		if !isValidDomainLabel(label) {
			return "", false
		}
	}
	return domain, true
}

func isValidDomainLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			continue
		}
		return false
	}
	return true
}

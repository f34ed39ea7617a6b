package acl

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	appacl "shadowrelay/application/acl"
)

func TestWhiteListAllowsOnlyMatches(t *testing.T) {
	a := New(appacl.ModeWhiteList, []string{"10.0.0.0/8", "192.168.1.*"}, nil)

	if !a.Allowed(netip.MustParseAddr("10.1.2.3")) {
		t.Fatal("CIDR match rejected")
	}
	if !a.Allowed(netip.MustParseAddr("192.168.1.42")) {
		t.Fatal("glob match rejected")
	}
	if a.Allowed(netip.MustParseAddr("8.8.8.8")) {
		t.Fatal("non-matching address admitted by white list")
	}
}

func TestBlackListAdmitsExceptMatches(t *testing.T) {
	a := New(appacl.ModeBlackList, nil, []string{"1.2.3.4"})

	if a.Allowed(netip.MustParseAddr("1.2.3.4")) {
		t.Fatal("black-listed address was admitted")
	}
	if !a.Allowed(netip.MustParseAddr("1.2.3.5")) {
		t.Fatal("non-matching address rejected by black list")
	}
}

func TestBanAppendsToBlackList(t *testing.T) {
	a := New(appacl.ModeBlackList, nil, nil)
	peer := netip.MustParseAddr("203.0.113.9")

	if !a.Allowed(peer) {
		t.Fatal("peer should be admitted before any ban")
	}
	a.Ban(peer)
	if a.Allowed(peer) {
		t.Fatal("banned peer still admitted")
	}
}

func TestBanIsNoOpOutsideBlackListMode(t *testing.T) {
	a := New(appacl.ModeDisabled, nil, nil)
	peer := netip.MustParseAddr("203.0.113.9")
	a.Ban(peer)
	if !a.Allowed(peer) {
		t.Fatal("Ban must be a no-op outside ModeBlackList")
	}
}

func TestLoadFileParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acl.conf")
	content := "# comment\n[white]\n10.0.0.0/8\n[black]\n1.2.3.4\n203.0.113.*\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	white, black, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(white) != 1 || white[0] != "10.0.0.0/8" {
		t.Fatalf("white = %v", white)
	}
	if len(black) != 2 {
		t.Fatalf("black = %v", black)
	}
}

package session

import (
	"errors"
	"net"
	"net/netip"
	"testing"

	appacl "shadowrelay/application/acl"
	"shadowrelay/domain/protoerr"
	"shadowrelay/infrastructure/acl"
)

func TestHandleBansOnBadHeaderInBlackListMode(t *testing.T) {
	blacklist := acl.New(appacl.ModeBlackList, nil, nil)
	h := testHandler(t, fixedDialer{})
	h.acl = blacklist

	remote := netip.MustParseAddr("203.0.113.9")
	server, peer := net.Pipe()
	defer peer.Close()

	// Unknown ATYP byte: a genuinely malformed header, not a truncated one.
	go func() {
		ctx, _ := h.suite.NewEncryptContext()
		_, _ = peer.Write(ctx.IV())
		ct, _ := ctx.Update([]byte{0x7f})
		_, _ = peer.Write(ct)
	}()

	if !blacklist.Allowed(remote) {
		t.Fatalf("peer should be allowed before any bad header is seen")
	}

	_, err := h.handle(server, remote)
	if err == nil || !errors.Is(err, protoerr.ErrBadHeader) {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
	h.banIfBannable(remote, err)

	if blacklist.Allowed(remote) {
		t.Fatalf("peer should have been banned after a bad header")
	}
}

func TestHandleEndToEndRelaysWithoutReportingStats(t *testing.T) {
	target, targetPeer := net.Pipe()
	defer targetPeer.Close()

	h := testHandler(t, fixedDialer{conn: target})
	sink := &recordingSink{}
	h.sink = sink

	clientSrv, clientPeer := net.Pipe()
	defer clientPeer.Close()

	remote := netip.MustParseAddr("198.51.100.7")
	dest := netip.MustParseAddr("127.0.0.1")

	encryptCli, err := h.suite.NewEncryptContext()
	if err != nil {
		t.Fatalf("NewEncryptContext: %v", err)
	}
	iv := encryptCli.IV()
	plain := buildHeader(iv, h.suite.Key(), false, dest, 8080)
	plain = append(plain, []byte("hello")...)
	ct, err := encryptCli.Update(plain)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		_, _ = clientPeer.Write(iv)
		_, _ = clientPeer.Write(ct)

		buf := make([]byte, 5)
		_, _ = targetPeer.Read(buf)
		if string(buf) != "hello" {
			t.Errorf("leading payload forwarded to target = %q, want %q", buf, "hello")
		}

		// Close without reading the relay's response IV: the point of
		// this test is the request-direction handshake and forwarding,
		// not the response pump.
		clientPeer.Close()
		targetPeer.Close()
	}()

	_, err = h.handle(clientSrv, remote)
	<-doneCh

	if err != nil {
		// Teardown after the test goroutine closes both pipe ends
		// surfaces as a plain closed-pipe error, not a protocol-level
		// disposition; only a protoerr sentinel here would be a bug.
		if protoerr.Classify(err) != protoerr.KindIOFatal {
			t.Fatalf("unexpected disposition for planned teardown: %v", err)
		}
	}

	if len(sink.reports) != 0 {
		t.Fatalf("sink.Report is wired through finish(), not handle() directly; handle() alone should not report")
	}
}

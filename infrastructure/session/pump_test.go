package session

import (
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"shadowrelay/domain/protoerr"
	"shadowrelay/infrastructure/acl"
	appacl "shadowrelay/application/acl"
	"shadowrelay/infrastructure/cryptography/replaycache"
	"shadowrelay/infrastructure/cryptography/suite"
	"shadowrelay/infrastructure/settings"
)

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string { return "i/o timeout" }
func (fakeTimeoutErr) Timeout() bool { return true }

func TestClassifyReadErrMapsTimeout(t *testing.T) {
	err := classifyReadErr(fakeTimeoutErr{})
	if !errors.Is(err, protoerr.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestClassifyReadErrPassesThroughOtherErrors(t *testing.T) {
	if got := classifyReadErr(net.ErrClosed); got != net.ErrClosed {
		t.Fatalf("expected net.ErrClosed to pass through unchanged, got %v", got)
	}
}

func newPumpHandler(t *testing.T, idleTimeout time.Duration) *Handler {
	t.Helper()
	s, err := suite.New("aes-128-cfb", "correct horse battery staple")
	if err != nil {
		t.Fatalf("suite.New: %v", err)
	}
	return NewHandler(
		nil,
		8388,
		settings.Settings{Method: s.Method(), IdleTimeout: idleTimeout},
		s,
		replaycache.New(),
		acl.New(appacl.ModeDisabled, nil, nil),
		immediateResolver{},
		fixedDialer{},
		noopLogger{},
		&recordingSink{},
		nil,
	)
}

// TestRelayEchoesWithoutChunkFraming drives a full S5 relay over two
// net.Pipe pairs standing in for the client and target sockets, verifying
// both the request direction's plain decrypt-and-forward and the
// response direction's cleartext-IV-then-unframed-ciphertext wire shape
// (spec §6: no chunk authentication ever applies to the response).
func TestRelayEchoesWithoutChunkFraming(t *testing.T) {
	h := newPumpHandler(t, time.Second)

	clientSrv, clientPeer := net.Pipe()
	targetSrv, targetPeer := net.Pipe()
	defer clientPeer.Close()
	defer targetPeer.Close()

	clientEnc, err := h.suite.NewEncryptContext()
	if err != nil {
		t.Fatalf("NewEncryptContext: %v", err)
	}
	decrypt, err := h.suite.NewDecryptContext()
	if err != nil {
		t.Fatalf("NewDecryptContext: %v", err)
	}
	if err := decrypt.SetIV(clientEnc.IV()); err != nil {
		t.Fatalf("SetIV: %v", err)
	}
	serverEnc, err := h.suite.NewEncryptContext()
	if err != nil {
		t.Fatalf("NewEncryptContext: %v", err)
	}

	c := newConnection(clientSrv, netip.MustParseAddr("10.0.0.5"), decrypt, serverEnc, false, h.idleTimeout, h.bufSize)
	c.target = targetSrv

	relayErr := make(chan error, 1)
	go func() { relayErr <- h.relay(c) }()

	// Server -> client: relay writes its response IV in cleartext before
	// starting either pump, and net.Pipe has no buffering, so the IV is
	// read before anything else is written.
	ivBuf := make([]byte, len(serverEnc.IV()))
	if _, err := clientPeer.Read(ivBuf); err != nil {
		t.Fatalf("reading response IV: %v", err)
	}
	if string(ivBuf) != string(serverEnc.IV()) {
		t.Fatalf("response IV mismatch")
	}

	// Client -> target: one ciphertext write, expected to arrive at the
	// target verbatim-decrypted, with no framing added.
	ct, err := clientEnc.Update([]byte("ping"))
	if err != nil {
		t.Fatalf("client Update: %v", err)
	}
	if _, err := clientPeer.Write(ct); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	got := make([]byte, 4)
	if _, err := targetPeer.Read(got); err != nil {
		t.Fatalf("reading forwarded request: %v", err)
	}
	if string(got) != "ping" {
		t.Fatalf("target received %q, want %q", got, "ping")
	}

	// Target -> client: unframed ciphertext under the IV read above.
	if _, err := targetPeer.Write([]byte("pong")); err != nil {
		t.Fatalf("writing response: %v", err)
	}

	respCipher := make([]byte, 4)
	if _, err := clientPeer.Read(respCipher); err != nil {
		t.Fatalf("reading response ciphertext: %v", err)
	}
	clientDec, err := h.suite.NewDecryptContext()
	if err != nil {
		t.Fatalf("NewDecryptContext: %v", err)
	}
	if err := clientDec.SetIV(ivBuf); err != nil {
		t.Fatalf("SetIV: %v", err)
	}
	plain, err := clientDec.Update(respCipher)
	if err != nil {
		t.Fatalf("decrypting response: %v", err)
	}
	if string(plain) != "pong" {
		t.Fatalf("decrypted response = %q, want %q", plain, "pong")
	}

	clientPeer.Close()
	targetPeer.Close()

	select {
	case <-relayErr:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not return after both sides closed")
	}

	if c.rxTotal == 0 || c.txTotal == 0 {
		t.Fatalf("expected non-zero byte totals, got rx=%d tx=%d", c.rxTotal, c.txTotal)
	}
}

func TestPumpClientToTargetFiresIdleTimeout(t *testing.T) {
	h := newPumpHandler(t, 30*time.Millisecond)

	clientSrv, clientPeer := net.Pipe()
	defer clientPeer.Close()
	targetSrv, targetPeer := net.Pipe()
	defer targetSrv.Close()
	defer targetPeer.Close()

	decrypt, err := h.suite.NewDecryptContext()
	if err != nil {
		t.Fatalf("NewDecryptContext: %v", err)
	}
	if err := decrypt.SetIV(make([]byte, h.suite.Method().IVLen())); err != nil {
		t.Fatalf("SetIV: %v", err)
	}
	encrypt, err := h.suite.NewEncryptContext()
	if err != nil {
		t.Fatalf("NewEncryptContext: %v", err)
	}

	c := newConnection(clientSrv, netip.MustParseAddr("10.0.0.6"), decrypt, encrypt, false, h.idleTimeout, h.bufSize)
	c.target = targetSrv

	errCh := make(chan error, 1)
	go func() { errCh <- h.pumpClientToTarget(c) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, protoerr.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("idle timeout never fired")
	}
}

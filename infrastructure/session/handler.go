package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	appacl "shadowrelay/application/acl"
	appcipher "shadowrelay/application/cipher"
	"shadowrelay/application/logging"
	appnetwork "shadowrelay/application/network"
	"shadowrelay/application/replay"
	appresolver "shadowrelay/application/resolver"
	"shadowrelay/application/stats"
	"shadowrelay/domain/protoerr"
	"shadowrelay/infrastructure/cryptography/chunkauth"
	"shadowrelay/infrastructure/settings"
	"shadowrelay/infrastructure/telemetry"
)

// Handler wires one listening port's process-wide collaborators (spec §5
// "Shared-resource policy": K, the replay cache, and the ACL set are
// process-wide) and drives each accepted connection through S0/S4/S5.
// One Handler is shared by every connection on its port; it holds no
// per-connection mutable state itself.
type Handler struct {
	ctx context.Context

	suite    appcipher.Suite
	replay   replay.Cache
	acl      appacl.ACL
	resolver appresolver.Resolver
	dialer   appnetwork.Dialer

	logger logging.Logger
	sink   stats.Sink
	port   int

	// metrics is nil when SPEC_FULL.md's --metrics-address is unset; every
	// call site below guards it, matching telemetry.Metrics's "additive
	// observability, not a protocol requirement" standing (§4.J).
	metrics *telemetry.Metrics

	bufSize     int
	idleTimeout time.Duration
	forceAuth   bool

	// timeoutSource, when set, overrides idleTimeout per accepted
	// connection — wired to a config.Mutable by the entrypoint so a
	// reload picked up by the config-file watcher (spec §6's
	// hot-reloadable fields) takes effect for every connection accepted
	// from then on. Existing
	// connections keep the idle timeout they were accepted with.
	timeoutSource func() time.Duration

	// aclSource, when set, overrides acl per accepted connection —
	// wired to the entrypoint's reloadable ACL list so a config reload
	// that changes the acl path takes effect without a restart. Edits to
	// the contents of an ACL file whose path is unchanged are not re-read.
	aclSource func() appacl.ACL
}

// SetTimeoutSource installs a dynamic idle-timeout source, consulted once
// per accepted connection. Pass nil to go back to the static duration
// computed at NewHandler time.
func (h *Handler) SetTimeoutSource(f func() time.Duration) {
	h.timeoutSource = f
}

// SetACLSource installs a dynamic ACL source, consulted once per accepted
// connection. Pass nil to go back to the static ACL passed to NewHandler.
func (h *Handler) SetACLSource(f func() appacl.ACL) {
	h.aclSource = f
}

func (h *Handler) currentACL() appacl.ACL {
	if h.aclSource != nil {
		return h.aclSource()
	}
	return h.acl
}

// NewHandler builds a Handler for one listening port. metrics may be nil.
func NewHandler(ctx context.Context, port int, s settings.Settings, suite appcipher.Suite, cache replay.Cache, acl appacl.ACL, resolver appresolver.Resolver, dialer appnetwork.Dialer, logger logging.Logger, sink stats.Sink, metrics *telemetry.Metrics) *Handler {
	return &Handler{
		ctx:         ctx,
		suite:       suite,
		replay:      cache,
		acl:         acl,
		resolver:    resolver,
		dialer:      dialer,
		logger:      logger,
		sink:        sink,
		port:        port,
		metrics:     metrics,
		bufSize:     settings.BufferSize,
		idleTimeout: s.ResolveIdleTimeout(),
		forceAuth:   s.ForceAuth,
	}
}

// HandleConn drives one accepted connection through the full S0->S4->S5
// lifecycle, logging its outcome and tearing it down on any exit (spec §5
// "Cancellation": teardown is synchronous and converges on close_and_free
// of both sides).
func (h *Handler) HandleConn(client net.Conn) {
	remote, err := remoteAddr(client)
	if err != nil {
		h.logger.Errorf("session: rejecting connection with unparsable remote address: %v", err)
		_ = client.Close()
		return
	}

	acl := h.currentACL()
	if acl != nil && !acl.Allowed(remote) {
		h.logger.Printf("session: ACL rejected %s", remote)
		_ = client.Close()
		return
	}

	if h.metrics != nil {
		h.metrics.ConnectionsAccepted.Inc()
		h.metrics.ActiveSessions.Inc()
		defer h.metrics.ActiveSessions.Dec()
	}

	c, err := h.handle(client, remote)
	h.finish(remote, c, err)
}

func (h *Handler) handle(client net.Conn, remote netip.Addr) (*connection, error) {
	decrypt, err := h.suite.NewDecryptContext()
	if err != nil {
		return nil, err
	}
	encrypt, err := h.suite.NewEncryptContext()
	if err != nil {
		return nil, err
	}

	idleTimeout := h.idleTimeout
	if h.timeoutSource != nil {
		idleTimeout = h.timeoutSource()
	}
	c := newConnection(client, remote, decrypt, encrypt, h.forceAuth, idleTimeout, h.bufSize)
	defer c.closeBoth()

	if err := h.readIV(c, h.suite.Method()); err != nil {
		return c, err
	}

	parsed, leading, err := h.readHeader(c)
	if err != nil {
		h.banIfBannable(remote, err)
		return c, err
	}

	if c.authActive {
		c.verifier = chunkauth.NewVerifier(c.decrypt.IV())
	}

	target, err := h.resolveAndDial(h.ctx, c, parsed.Addr, leading)
	if err != nil {
		return c, err
	}
	c.target = target

	return c, h.relay(c)
}

// banIfBannable appends remote to the ACL's black list when the
// connection failed with a bannable disposition (spec §4.F edge-case
// policy: "if ACL is in black-list mode, add the peer to the black
// list"), and §7's BAD_HEADER/AUTH_FAIL rows.
func (h *Handler) banIfBannable(remote netip.Addr, err error) {
	acl := h.currentACL()
	if acl != nil && protoerr.ACLBannable(err) {
		acl.Ban(remote)
	}
}

// finish logs the connection's terminal disposition, reports its byte
// totals to the stats sink once (spec §4.J), and updates the optional
// Prometheus counters for the disposition kind.
func (h *Handler) finish(remote netip.Addr, c *connection, err error) {
	if c != nil && h.sink != nil {
		h.sink.Report(h.port, c.rxTotal+c.txTotal)
	}
	if c != nil && h.metrics != nil {
		h.metrics.BytesRelayedRX.Add(float64(c.rxTotal))
		h.metrics.BytesRelayedTX.Add(float64(c.txTotal))
	}

	switch {
	case err == nil, errors.Is(err, io.EOF):
		h.logger.Debugf("session: %s closed", remote)
		return
	}

	kind := protoerr.Classify(err)
	h.logger.Printf("session: %s closed: %s: %v", remote, kind, err)
	if h.metrics == nil {
		return
	}
	switch kind {
	case protoerr.KindReplay:
		h.metrics.ReplayRejections.Inc()
	case protoerr.KindAuthFail:
		h.metrics.AuthFailures.Inc()
	}
}

func remoteAddr(conn net.Conn) (netip.Addr, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parsing remote address %q: %w", conn.RemoteAddr().String(), err)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parsing remote address %q: %w", host, err)
	}
	return addr, nil
}

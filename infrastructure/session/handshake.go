package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"

	"shadowrelay/domain/addressing"
	domaincipher "shadowrelay/domain/cipher"
	"shadowrelay/domain/protoerr"
	"shadowrelay/infrastructure/cryptography/chunkauth"
	"shadowrelay/infrastructure/network/address"
)

// readIV reads the cleartext IV prefix off the wire (spec §6: "IV : |IV|
// bytes (random, cleartext)") and runs the replay check (spec §4.F S0:
// "the decrypt context is initialized with those bytes [and] the replay
// check runs then"). Methods with no IV (table, rc4) skip both steps.
func (h *Handler) readIV(c *connection, method domaincipher.Method) error {
	ivLen := method.IVLen()
	if ivLen == 0 {
		return c.decrypt.SetIV(nil)
	}

	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(c.client, iv); err != nil {
		return fmt.Errorf("%w: reading IV: %v", protoerr.ErrCipherFail, err)
	}
	if !h.replay.Admit(iv) {
		return fmt.Errorf("%w: IV %x already seen", protoerr.ErrReplay, iv)
	}
	return c.decrypt.SetIV(iv)
}

// readHeader accumulates and decrypts ciphertext until a full ATYP header
// (and, once AuthActive is known, its one-time MAC trailer) has arrived,
// per spec §4.F S0's edge-case policy: "if the buffer after arrival is
// <= |IV| bytes, do nothing and await more data; do not decrypt yet."
// Bytes decrypted past the header boundary are preserved as the first
// payload the target will receive.
func (h *Handler) readHeader(c *connection) (address.Parsed, []byte, error) {
	var plain []byte
	raw := make([]byte, h.bufSize)

	for {
		n, err := c.client.Read(raw)
		if n > 0 {
			pt, decErr := c.decrypt.Update(raw[:n])
			if decErr != nil {
				return address.Parsed{}, nil, fmt.Errorf("%w: %v", protoerr.ErrCipherFail, decErr)
			}
			plain = append(plain, pt...)
		}
		if err != nil {
			return address.Parsed{}, nil, err
		}

		// headerLen determines how many more bytes are needed before
		// address.Parse can be trusted to report a genuine BAD_HEADER
		// rather than a header that simply hasn't fully arrived yet —
		// address.Parse itself can't tell the two apart, since both
		// surface the same truncation error.
		need, ok, lenErr := headerLen(plain)
		if lenErr != nil {
			return address.Parsed{}, nil, lenErr
		}
		if !ok || len(plain) < need {
			continue
		}

		parsed, parseErr := address.Parse(plain)
		if parseErr != nil {
			return address.Parsed{}, nil, parseErr
		}

		atyp := parsed.RawATYP
		c.authActive = c.authActive || atyp.HasOneTimeAuth()

		total := parsed.Consumed
		if c.authActive {
			total += chunkauth.MACLen
		}
		if len(plain) < total {
			continue
		}

		if c.authActive {
			mac := plain[parsed.Consumed:total]
			if err := chunkauth.VerifyHeaderMAC(c.decrypt.IV(), h.suite.Key(), parsed.HeaderBytes, mac); err != nil {
				return address.Parsed{}, nil, err
			}
		}

		return parsed, plain[total:], nil
	}
}

// headerLen peeks the ATYP byte (and, for a domain, the name-length byte)
// to compute exactly how many bytes the header will occupy, without
// requiring those bytes to have arrived yet. ok is false when not enough
// of the header is present even to know the length. An unrecognized ATYP
// fails immediately, per spec §4.F: "if ATYP is unknown ... fail with
// BAD_HEADER."
func headerLen(buf []byte) (need int, ok bool, err error) {
	if len(buf) < 1 {
		return 0, false, nil
	}
	atyp := addressing.ATYP(buf[0])
	switch atyp.Kind() {
	case addressing.IPv4:
		return 1 + 4 + 2, true, nil
	case addressing.IPv6:
		return 1 + 16 + 2, true, nil
	case addressing.Domain:
		if len(buf) < 2 {
			return 0, false, nil
		}
		return 1 + 1 + int(buf[1]) + 2, true, nil
	default:
		return 0, false, fmt.Errorf("%w: unrecognized ATYP 0x%02x", protoerr.ErrBadHeader, buf[0])
	}
}

// resolveAndDial performs S4: resolving a domain destination (spec §4.H)
// if needed, then opening the target TCP socket (spec §4.F: "TCP_NODELAY
// is set ... If configured, TCP Fast Open is used").
func (h *Handler) resolveAndDial(ctx context.Context, c *connection, dest addressing.DestAddr, leading []byte) (net.Conn, error) {
	c.stage = StageConnecting

	ip := dest.IP
	if !dest.IsLiteralIP() {
		resolved, err := h.resolve(c, dest.Domain)
		if err != nil {
			return nil, err
		}
		ip = resolved
	}

	target := net.JoinHostPort(ip.String(), strconv.Itoa(int(dest.Port)))
	conn, err := h.dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		// Deliberately unwrapped: a dial failure matches none of
		// protoerr's sentinels and so classifies as the IO_FATAL
		// catch-all (spec §7), same as any other socket-level error.
		return nil, fmt.Errorf("dialing %s: %w", target, err)
	}
	if len(leading) > 0 {
		// leading is whatever decrypted bytes arrived in the same recv as
		// the header, past its boundary. When auth is active those bytes
		// are the start of the first LEN|MAC|PAYLOAD chunk frame, not raw
		// payload — original_source/src/server.c's server_recv feeds this
		// same leftover through ss_check_hash before ever writing to the
		// target (server.c:771). Writing it unverified would both leak
		// framing bytes to the target and desync the verifier's chunk
		// counter for every chunk after it.
		if err := h.forwardFromClient(c, conn, leading); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("forwarding buffered payload: %w", err)
		}
	}
	return conn, nil
}

// resolve blocks the handling goroutine on the single outstanding query
// permitted per connection (spec §3 invariant 3), translating the
// resolver's async callback into a synchronous return via a one-shot
// channel — the handling goroutine has nothing else to do while S4 is
// pending anyway, so there is no readiness loop to preserve here.
func (h *Handler) resolve(c *connection, host string) (netip.Addr, error) {
	type result struct {
		addr netip.Addr
		err  error
	}
	done := make(chan result, 1)
	c.query = h.resolver.Resolve(host, func(addr netip.Addr, err error) {
		done <- result{addr: addr, err: err}
	})
	r := <-done
	c.query = nil
	if r.err != nil {
		return netip.Addr{}, r.err
	}
	return r.addr, nil
}

package session

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"shadowrelay/domain/protoerr"
	"shadowrelay/infrastructure/network/buffer"
)

// relay runs S5 (spec §4.G): two mirror pumps, client->target and
// target->client, until either side closes or errors. Grounded on the
// teacher's goroutine-per-direction dataplane worker shape
// (dataplane_worker.go), generalized from one egress stream into two.
func (h *Handler) relay(c *connection) error {
	c.stage = StageRelaying

	// Server -> Client wire prefix (spec §6): the encrypt-side IV, sent
	// once in cleartext before any encrypted bytes.
	if iv := c.encrypt.IV(); len(iv) > 0 {
		if _, err := c.client.Write(iv); err != nil {
			return fmt.Errorf("writing response IV: %w", err)
		}
	}

	// c.verifier is already built (handler.go's handle(), before dialing)
	// so the handshake's leading chunk bytes can be verified and forwarded
	// through the same counter sequence the relay pumps continue from.

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- h.pumpClientToTarget(c)
	}()
	go func() {
		defer wg.Done()
		errCh <- h.pumpTargetToClient(c)
	}()

	first := <-errCh
	c.closeBoth()
	wg.Wait()
	return first
}

// pumpClientToTarget implements on_readable(C)/on_writable(T): decrypt
// what arrives from the client, chunk-verify it when auth is active, and
// drain it to the target through the shared partial-write buffer (spec
// §4.D/§4.G). Every successful client read resets the idle deadline (spec
// §4.G: "every successful recv on the client-facing socket restarts the
// timer").
func (h *Handler) pumpClientToTarget(c *connection) error {
	raw := make([]byte, h.bufSize)
	for {
		if err := c.client.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			return err
		}
		n, err := c.client.Read(raw)
		if n > 0 {
			c.rxTotal += uint64(n)
			pt, decErr := c.decrypt.Update(raw[:n])
			if decErr != nil {
				return fmt.Errorf("%w: %v", protoerr.ErrCipherFail, decErr)
			}
			if werr := h.forwardFromClient(c, c.target, pt); werr != nil {
				return werr
			}
		}
		if err != nil {
			return classifyReadErr(err)
		}
	}
}

// forwardFromClient writes pt to target, chunk-verifying it first when
// auth is active (spec wire format: client->server chunks are
// LEN|MAC|PAYLOAD; server->client never is, see §6). target is passed
// explicitly rather than read off c: resolveAndDial calls this for the
// handshake's leading bytes before c.target is assigned.
func (h *Handler) forwardFromClient(c *connection, target net.Conn, pt []byte) error {
	if !c.authActive {
		c.targetBuf.Fill(pt)
		return buffer.DrainTo(target, c.targetBuf)
	}

	payloads, vErr := c.verifier.Feed(pt)
	for _, p := range payloads {
		c.targetBuf.Fill(p)
		if werr := buffer.DrainTo(target, c.targetBuf); werr != nil {
			return werr
		}
	}
	return vErr
}

// pumpTargetToClient implements on_readable(T)/on_writable(C): encrypt
// what arrives from the target and drain it to the client. The response
// direction carries no chunk framing (spec §6), so every target read maps
// to exactly one encrypted, drained write.
func (h *Handler) pumpTargetToClient(c *connection) error {
	raw := make([]byte, h.bufSize)
	for {
		n, err := c.target.Read(raw)
		if n > 0 {
			c.txTotal += uint64(n)
			ct, encErr := c.encrypt.Update(raw[:n])
			if encErr != nil {
				return fmt.Errorf("%w: %v", protoerr.ErrCipherFail, encErr)
			}
			c.clientBuf.Fill(ct)
			if werr := buffer.DrainTo(c.client, c.clientBuf); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

// classifyReadErr maps a timed-out deadline to protoerr.ErrTimeout (spec
// §4.G idle timeout), leaving every other read error (EOF, reset, closed)
// to fall through to the §7 IO_FATAL catch-all.
func classifyReadErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", protoerr.ErrTimeout, err)
	}
	return err
}

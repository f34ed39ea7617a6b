package session

import (
	"context"
	"errors"
	"net"

	"shadowrelay/application/logging"
	appnetwork "shadowrelay/application/network"
)

// Server runs one listening port's accept loop, dispatching each accepted
// connection to a Handler on its own goroutine. Grounded on the teacher's
// TransportHandler.HandleTransport accept loop (tcp_chacha20), translated
// from its single session-registrar + TUN-writer shape into this relay's
// one-Handler-per-port shape.
type Server struct {
	ctx      context.Context
	listener appnetwork.Listener
	handler  *Handler
	logger   logging.Logger
}

// NewServer builds a Server for one already-bound listener.
func NewServer(ctx context.Context, listener appnetwork.Listener, handler *Handler, logger logging.Logger) *Server {
	return &Server{ctx: ctx, listener: listener, handler: handler, logger: logger}
}

// Run accepts connections until ctx is canceled or the listener is
// otherwise closed, dispatching each to the Handler on its own goroutine.
// It returns ctx.Err() on a clean shutdown and the accept error when the
// listener has been closed; any other accept error is logged and the loop
// keeps accepting.
func (s *Server) Run() error {
	defer func() { _ = s.listener.Close() }()

	// Unblocks a pending Accept when the caller cancels ctx, mirroring
	// the teacher's "use a goroutine to unblock the blocking Accept call"
	// idiom.
	go func() {
		<-s.ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return err
		}
		if err != nil {
			s.logger.Printf("session: accept failed: %v", err)
			continue
		}
		go s.handler.HandleConn(conn)
	}
}

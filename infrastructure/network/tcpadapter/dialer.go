package tcpadapter

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	appnetwork "shadowrelay/application/network"
)

// dialer implements appnetwork.Dialer, applying TCP_NODELAY to every
// connection and, when fastOpen is true, TCP_FASTOPEN_CONNECT (so the
// first Write after DialContext returns rides the SYN, per spec §4.F: "If
// configured, TCP Fast Open is used by passing the first plaintext
// payload bytes into the connect call").
type dialer struct {
	fastOpen     bool
	outInterface string
}

// New builds a Dialer. outInterface, when non-empty, binds outbound
// sockets to that interface (spec §6 "-i interface").
func New(fastOpen bool, outInterface string) appnetwork.Dialer {
	return &dialer{fastOpen: fastOpen, outInterface: outInterface}
}

func (d *dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	nd := &net.Dialer{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				if d.fastOpen {
					sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_FASTOPEN_CONNECT, 1)
				}
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	if d.outInterface != "" {
		if ifc, err := net.InterfaceByName(d.outInterface); err == nil {
			if addrs, err := ifc.Addrs(); err == nil && len(addrs) > 0 {
				if ipNet, ok := addrs[0].(*net.IPNet); ok {
					nd.LocalAddr = &net.TCPAddr{IP: ipNet.IP}
				}
			}
		}
	}

	conn, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}
	return conn, nil
}

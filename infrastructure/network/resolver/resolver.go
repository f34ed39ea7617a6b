// Package resolver implements asynchronous, cancellable DNS resolution
// (spec §4.H, component H): one goroutine per outstanding query, a
// context.CancelFunc standing in for the source's cancellation token.
//
// Grounded on the teacher's infrastructure/settings/host.go
// resolveFirstAddr, which resolves via net.DefaultResolver.LookupHost
// under a context — generalized here from TunGo's synchronous,
// client-side "resolve once at startup" use into the server's
// fire-and-callback shape, since accepted connections must not block
// while a DNS query is outstanding (spec §4.F: "transition to S4 with a
// pending resolver query").
package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"

	appresolver "shadowrelay/application/resolver"
	"shadowrelay/domain/protoerr"
)

// netResolver adapts *net.Resolver to application/resolver.Resolver.
type netResolver struct {
	resolver *net.Resolver
}

// New builds a Resolver using net.DefaultResolver, optionally overridden
// with custom nameservers (spec §6 "-d nameserver", repeatable).
func New(nameservers []string) appresolver.Resolver {
	if len(nameservers) == 0 {
		return &netResolver{resolver: net.DefaultResolver}
	}
	idx := 0
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			addr := nameservers[idx%len(nameservers)]
			idx++
			if _, _, err := net.SplitHostPort(addr); err != nil {
				addr = net.JoinHostPort(addr, "53")
			}
			return d.DialContext(ctx, network, addr)
		},
	}
	return &netResolver{resolver: r}
}

// query implements appresolver.Query over a context.CancelFunc plus an
// explicit canceled flag: the context's own Err() only reliably reflects
// cancellation to the in-flight LookupHost call, not to the goroutine's
// own post-lookup decision of whether to still invoke callback.
type query struct {
	cancel   context.CancelFunc
	once     sync.Once
	canceled atomic.Bool
}

func (q *query) Cancel() {
	q.canceled.Store(true)
	q.once.Do(q.cancel)
}

// Resolve launches one goroutine that looks up host and invokes callback
// exactly once, unless Cancel fires first. At most one Query is ever
// outstanding per connection by construction of the session state
// machine (spec §3 invariant 3) — this type does not itself enforce that,
// since enforcement belongs to the caller holding the connection record.
func (r *netResolver) Resolve(host string, callback func(addr netip.Addr, err error)) appresolver.Query {
	ctx, cancel := context.WithCancel(context.Background())
	q := &query{cancel: cancel}

	go func() {
		addrs, err := r.resolver.LookupHost(ctx, host)
		if q.canceled.Load() {
			return // canceled: suppress the callback
		}
		if err != nil || len(addrs) == 0 {
			callback(netip.Addr{}, fmt.Errorf("%w: %v", protoerr.ErrResolveFail, err))
			return
		}
		addr, parseErr := netip.ParseAddr(addrs[0])
		if parseErr != nil {
			callback(netip.Addr{}, fmt.Errorf("%w: %v", protoerr.ErrResolveFail, parseErr))
			return
		}
		callback(addr, nil)
	}()

	return q
}

package target

import (
	"context"
	"net"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
)

// Resolver looks up both A and AAAA records for a hostname element
// (spec.md §4.3: "DNS resolution deferred; both A and AAAA records
// consumed"). Wraps *net.Resolver so tests can substitute a fake.
type Resolver struct {
	lookup func(ctx context.Context, host string) ([]net.IP, error)
}

// NewResolver builds a Resolver over r (net.DefaultResolver if nil).
func NewResolver(r *net.Resolver) *Resolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Resolver{lookup: r.LookupIP}
}

// NewResolverFunc builds a Resolver over an arbitrary lookup function, for
// tests that want deterministic hostname→address mappings without a real
// DNS round trip.
func NewResolverFunc(f func(ctx context.Context, host string) ([]net.IP, error)) *Resolver {
	return &Resolver{lookup: f}
}

// Lookup resolves host to its A and AAAA addresses, in the order the
// underlying resolver returns them.
func (r *Resolver) Lookup(ctx context.Context, host string) ([]addr.Address, error) {
	ips, err := r.lookup(ctx, host)
	if err != nil {
		return nil, err
	}
	out := make([]addr.Address, 0, len(ips))
	for _, ip := range ips {
		a, ok := netipFromIP(ip)
		if !ok {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func netipFromIP(ip net.IP) (addr.Address, bool) {
	s := ip.String()
	a, err := addr.ParseAddress(s)
	if err != nil {
		return addr.Address{}, false
	}
	return a, true
}

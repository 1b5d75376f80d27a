package target

import (
	"context"
	"fmt"
	"math/big"
	"net"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
)

// run is one resolved, directly-indexable element of an Expansion: a base
// address plus a count of consecutive addresses reachable via
// base.AddOffset(i) for i in [0, count).
type run struct {
	base  addr.Address
	count uint64
}

// Expansion is a Spec resolved into an ordered, indexable sequence of
// addresses. Index lookups walk the runs linearly, O(k) in the number of
// runs (k), never O(n) in the number of addresses, so a /64 IPv6 CIDR or a
// full hostname fan-out can be index-addressed without materializing the
// whole set — required for the keyed permutation to be restartable by
// index (spec.md §4.3, §9 resume).
type Expansion struct {
	runs  []run
	total uint64
}

// Resolve expands every element of s into Expansion runs. Hostname
// elements are resolved via r (both A and AAAA records are consumed, each
// contributing one run of length 1 in spec order). A nil resolver uses
// net.DefaultResolver.
func Resolve(ctx context.Context, s Spec, r *Resolver) (Expansion, error) {
	if r == nil {
		r = NewResolver(nil)
	}
	var exp Expansion
	for _, e := range s.elems {
		switch e.kind {
		case KindSingle:
			exp.appendRun(run{base: e.addr, count: 1})
		case KindCIDR:
			base, count, err := cidrRun(e.network)
			if err != nil {
				return Expansion{}, err
			}
			exp.appendRun(run{base: base, count: count})
		case KindRange:
			count, err := rangeCount(e.lo, e.hi)
			if err != nil {
				return Expansion{}, err
			}
			exp.appendRun(run{base: e.lo, count: count})
		case KindHostname:
			addrs, err := r.Lookup(ctx, e.host)
			if err != nil {
				return Expansion{}, fmt.Errorf("target: resolve %q: %w", e.host, err)
			}
			if len(addrs) == 0 {
				return Expansion{}, fmt.Errorf("target: %q resolved to no addresses", e.host)
			}
			for _, a := range addrs {
				exp.appendRun(run{base: a, count: 1})
			}
		default:
			return Expansion{}, fmt.Errorf("target: unknown spec element kind %d", e.kind)
		}
	}
	if exp.total == 0 {
		return Expansion{}, fmt.Errorf("target: spec expands to zero addresses")
	}
	return exp, nil
}

func (e *Expansion) appendRun(r run) {
	e.runs = append(e.runs, r)
	e.total += r.count
}

// Len reports the total number of addresses in the expansion.
func (e Expansion) Len() uint64 { return e.total }

// At returns the i-th address in expansion order (the order elements were
// given in the spec, each CIDR/range walked low-to-high).
func (e Expansion) At(i uint64) (addr.Address, error) {
	if i >= e.total {
		return addr.Address{}, fmt.Errorf("target: index %d out of range [0,%d)", i, e.total)
	}
	for _, r := range e.runs {
		if i < r.count {
			return r.base.AddOffset(i), nil
		}
		i -= r.count
	}
	return addr.Address{}, fmt.Errorf("target: index out of range")
}

// cidrRun returns the network's base address and the number of addresses
// it contains (including network/broadcast; the engine treats CIDR
// expansion as a flat address list rather than subtracting reserved
// addresses, matching common scanner behavior for /31s, /32s, and the
// IPv6 equivalents).
func cidrRun(n *net.IPNet) (addr.Address, uint64, error) {
	ones, bits := n.Mask.Size()
	hostBits := bits - ones
	if hostBits > 64 {
		return addr.Address{}, 0, fmt.Errorf("target: CIDR %s too large to expand directly (max /64 equivalent)", n.String())
	}
	base, err := addr.ParseAddress(n.IP.String())
	if err != nil {
		return addr.Address{}, 0, fmt.Errorf("target: invalid CIDR base %s: %w", n.IP.String(), err)
	}
	count := uint64(1) << uint(hostBits)
	return base, count, nil
}

// rangeCount returns the number of addresses spanned by [lo, hi]
// inclusive. lo and hi must share a family and hi must not precede lo
// (both already enforced by parseElem).
func rangeCount(lo, hi addr.Address) (uint64, error) {
	loBI := new(big.Int).SetBytes(lo.Bytes())
	hiBI := new(big.Int).SetBytes(hi.Bytes())
	span := new(big.Int).Sub(hiBI, loBI)
	span.Add(span, big.NewInt(1))
	if !span.IsUint64() {
		return 0, fmt.Errorf("target: range too large to expand directly")
	}
	return span.Uint64(), nil
}

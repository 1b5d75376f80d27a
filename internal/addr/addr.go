// Package addr holds the address and port primitives shared by every
// scanning component: a tagged IPv4/IPv6 address, and the port-spec
// grammar used to select which ports a target is probed on.
package addr

import (
	"fmt"
	"math/big"
	"net/netip"
)

// Family tags an Address as IPv4 or IPv6. Every network operation in the
// engine dispatches on this tag rather than inferring it from byte length.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyV4
	FamilyV6
)

func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ipv4"
	case FamilyV6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// Address wraps netip.Addr and exposes the family dispatch the spec
// requires (40-byte fixed IPv6 header, no header checksum, ICMPv6 for all
// diagnostics on that side of the tag).
type Address struct {
	a netip.Addr
}

// New wraps a netip.Addr, unmapping any IPv4-in-IPv6 representation so the
// family tag is unambiguous.
func New(a netip.Addr) Address {
	if a.Is4In6() {
		a = netip.AddrFrom4(a.As4())
	}
	return Address{a: a}
}

// New4 wraps a raw 4-byte IPv4 address.
func New4(b [4]byte) Address { return Address{a: netip.AddrFrom4(b)} }

// New6 wraps a raw 16-byte IPv6 address.
func New6(b [16]byte) Address { return Address{a: netip.AddrFrom16(b)} }

// ParseAddress parses a textual IPv4 or IPv6 address.
func ParseAddress(s string) (Address, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	return New(a), nil
}

// Family reports whether a is IPv4 or IPv6.
func (a Address) Family() Family {
	switch {
	case !a.a.IsValid():
		return FamilyUnknown
	case a.a.Is4():
		return FamilyV4
	default:
		return FamilyV6
	}
}

func (a Address) IsV4() bool { return a.Family() == FamilyV4 }
func (a Address) IsV6() bool { return a.Family() == FamilyV6 }

// Unwrap returns the underlying netip.Addr.
func (a Address) Unwrap() netip.Addr { return a.a }

// IsValid reports whether the address was ever successfully parsed/wrapped.
func (a Address) IsValid() bool { return a.a.IsValid() }

// Next returns the address immediately following a. When a is the last
// address of its family, the result is invalid (IsValid reports false);
// Next does not wrap. Used by CIDR/range expansion.
func (a Address) Next() Address {
	return Address{a: a.a.Next()}
}

// AddOffset returns the address n positions after a within its family's
// bit width, wrapping modulo 2^32 (IPv4) or 2^128 (IPv6). Used by the
// target planner to index directly into a CIDR block or range without
// materializing every intermediate address.
func (a Address) AddOffset(n uint64) Address {
	bi := new(big.Int).SetBytes(a.Bytes())
	bi.Add(bi, new(big.Int).SetUint64(n))

	if a.IsV4() {
		mod := new(big.Int).Lsh(big.NewInt(1), 32)
		bi.Mod(bi, mod)
		var b4 [4]byte
		bi.FillBytes(b4[:])
		return New4(b4)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), 128)
	bi.Mod(bi, mod)
	var b16 [16]byte
	bi.FillBytes(b16[:])
	return New6(b16)
}

// Less orders addresses for deterministic iteration prior to permutation.
func (a Address) Less(o Address) bool {
	return a.a.Less(o.a)
}

func (a Address) String() string {
	if !a.a.IsValid() {
		return "<invalid>"
	}
	return a.a.String()
}

// Bytes returns the raw address bytes (4 for IPv4, 16 for IPv6).
func (a Address) Bytes() []byte {
	b := a.a.As16()
	if a.IsV4() {
		b4 := a.a.As4()
		return b4[:]
	}
	return b[:]
}

// SolicitedNodeMulticast derives the IPv6 solicited-node multicast address
// ff02::1:ff00:0/104 from the low 24 bits of a, per RFC 4861 NDP. Only
// meaningful for IPv6 addresses; callers must check IsV6 first.
func (a Address) SolicitedNodeMulticast() Address {
	b := a.a.As16()
	out := [16]byte{0xff, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0xff, b[13], b[14], b[15]}
	return Address{a: netip.AddrFrom16(out)}
}

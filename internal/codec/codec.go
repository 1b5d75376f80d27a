// Package codec builds and parses the Ethernet/IPv4/IPv6/ICMP/ICMPv6/TCP/UDP
// frames the scanning engine sends and receives (spec.md §4.1), on top of
// github.com/google/gopacket and github.com/google/gopacket/layers.
//
// Pseudo-header checksums (TCP/UDP over IPv4 and IPv6, ICMPv6 over its
// 40-byte IPv6 pseudo-header) are computed by gopacket's
// SerializeLayers/ComputeChecksums machinery, which is wired in by calling
// SetNetworkLayerForChecksum on every transport-layer build below -- this is
// the same pattern the teacher's client/doublezerod/internal/pim package
// uses for PIM-over-IP checksums, generalized here to every L4 protocol the
// engine speaks.
package codec

import (
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrOversize is returned when a built frame exceeds MTU and fragmentation
// was not requested (spec.md §4.1).
var ErrOversize = errors.New("codec: frame exceeds MTU and fragmentation was not requested")

// DefaultMTU is used when BuildOptions.MTU is left zero.
const DefaultMTU = 1500

// BuildOptions carries the evasion knobs of spec.md §4.1: explicit
// TTL/hop-limit, a deliberately-invalid checksum, and IPv4-only fragment
// size in 8-byte multiples.
type BuildOptions struct {
	TTL            uint8 // 0 means "use DefaultTTL"
	BadChecksum    bool
	FragmentSize8B uint8 // 0 disables fragmentation; IPv4 only
	MTU            int   // 0 means DefaultMTU
}

// DefaultTTL matches common OS stack defaults closely enough to avoid
// fingerprinting the scanner by TTL alone.
const DefaultTTL = 64

func (o BuildOptions) ttl() uint8 {
	if o.TTL != 0 {
		return o.TTL
	}
	return DefaultTTL
}

func (o BuildOptions) mtu() int {
	if o.MTU != 0 {
		return o.MTU
	}
	return DefaultMTU
}

// serializeOpts returns the gopacket serialize options appropriate for opt,
// honoring the bad-checksum evasion knob.
func serializeOpts(opt BuildOptions) gopacket.SerializeOptions {
	return gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: !opt.BadChecksum,
	}
}

// checkMTU enforces the Oversize rule: a built frame whose length exceeds
// MTU without fragmentation requested is rejected.
func checkMTU(n int, opt BuildOptions) error {
	if opt.FragmentSize8B == 0 && n > opt.mtu() {
		return fmt.Errorf("%w: %d > %d", ErrOversize, n, opt.mtu())
	}
	return nil
}

// newBuffer returns the zero-copy serialize target: callers supply a
// gopacket.SerializeBuffer (backed by a caller-provided []byte via
// gopacket.NewSerializeBufferExpectedSize or a pooled buffer) for the
// zero-copy build path, or pass nil to let Build allocate a fresh one.
func newBuffer(into gopacket.SerializeBuffer) gopacket.SerializeBuffer {
	if into != nil {
		into.Clear()
		return into
	}
	return gopacket.NewSerializeBuffer()
}

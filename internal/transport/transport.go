// Package transport implements the Raw Transport component (spec.md §4.2):
// platform-abstracted send/receive of link-layer frames, BPF filter
// installation, and interface/gateway discovery. The Linux implementation
// (transport_linux.go) opens an AF_PACKET raw socket the way
// tools/uping/pkg/uping opens an AF_INET raw ICMP socket; unsupported
// platforms (transport_other.go) report ErrInsufficientPrivilege so callers
// degrade to the Connect strategy, matching tools/uping's build-tagged
// split between a real implementation and a stub.
package transport

import (
	"context"
	"errors"
	"net"
	"time"
)

// ErrInsufficientPrivilege is returned when raw/link-layer sockets cannot be
// obtained (missing capability, unsupported platform). Callers may fall
// back to the Connect strategy, which needs no raw capability (spec.md §4.2).
var ErrInsufficientPrivilege = errors.New("transport: insufficient privilege for raw capture")

// Frame is one received link-layer frame, timestamped on arrival.
type Frame struct {
	Data      []byte
	Received  time.Time
	Interface string
}

// Transport sends raw frames on an interface and streams received frames
// matching an installed capture filter.
type Transport interface {
	// SendFrame transmits a fully-built link-layer (or, on some platforms,
	// L3) frame out iface.
	SendFrame(iface string, frame []byte) error

	// RecvLoop installs filter and streams frames until ctx is canceled.
	// The returned channel is closed when the loop exits; a non-nil error
	// is sent on errCh (capacity 1) if the loop exits abnormally --
	// spec.md §4.12 classifies capture loop IO errors as fatal.
	RecvLoop(ctx context.Context, filter Filter) (<-chan Frame, <-chan error)

	// Close releases the underlying socket(s).
	Close() error
}

// Filter restricts capture to traffic addressed to the local scanner:
// TCP/UDP/ICMP(v6) to LocalIP, matching spec.md §4.2's BPF filter
// requirement. There is no port restriction: all ports for the named
// protocols are captured.
type Filter struct {
	LocalIP    net.IP
	TCP, UDP   bool
	ICMP       bool
	ICMPv6     bool
}

// GatewayInfo is the result of routing-table + ARP/NDP discovery (spec.md
// §4.2): the outbound interface, its local address, and the next-hop MAC
// to address frames to.
type GatewayInfo struct {
	Interface  string
	LocalIP    net.IP
	GatewayIP  net.IP
	GatewayMAC net.HardwareAddr
	MTU        int
}

// RouteResolver discovers the outbound interface and next hop for a
// destination, via the routing table and ARP/NDP (spec.md §4.2).
type RouteResolver interface {
	Resolve(ctx context.Context, dst net.IP) (GatewayInfo, error)
}

package strategy

import "github.com/doublegate/ProRT-IP-sub009/internal/result"

// Discovery implements host-discovery probing (spec.md §4.7): ICMP echo
// for IPv4, ICMPv6 echo plus a Neighbor Solicitation to the target's
// solicited-node multicast group for IPv6, and an optional TCP SYN/ACK
// probe against a small well-known port set as a fallback when ICMP is
// blocked.
type Discovery struct{}

func (Discovery) Kind() Kind                { return KindDiscovery }
func (Discovery) Protocol() result.Protocol { return result.ICMP }

// DefaultDiscoveryPorts is the small TCP port set probed when ICMP
// discovery alone is inconclusive.
var DefaultDiscoveryPorts = []uint16{80, 443, 22, 445, 3389}

// DiscoveryOutcome is what any one of the discovery probes (ICMP echo,
// NDP, or TCP ACK-style SYN) observed.
type DiscoveryOutcome uint8

const (
	DiscoveryNoReply DiscoveryOutcome = iota
	DiscoveryICMPEchoReply
	DiscoveryNeighborAdvertisement
	DiscoveryTCPReply
	DiscoveryICMPUnreachable
)

// Alive reports whether any discovery probe in a round produced evidence
// the host is up; callers fan this out across every DiscoveryOutcome
// gathered for a target and OR the results together.
func Alive(o DiscoveryOutcome) bool {
	switch o {
	case DiscoveryICMPEchoReply, DiscoveryNeighborAdvertisement, DiscoveryTCPReply:
		return true
	default:
		return false
	}
}

// Classify reduces a single DiscoveryOutcome to the PortState vocabulary
// used when discovery doubles as a zero-port liveness probe ahead of full
// enumeration: alive evidence reports Open (host responded), everything
// else reports Unknown (the orchestrator decides whether to skip the
// target rather than treating silence as Filtered).
func (Discovery) Classify(r Response) result.PortState {
	if r.Kind == RespICMPUnreachableFiltered || r.Kind == RespICMPUnreachablePortClosed {
		return result.Unknown
	}
	if r.Kind == RespTCP || r.Kind == RespUDP {
		return result.Open
	}
	return result.Unknown
}

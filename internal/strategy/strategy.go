// Package strategy implements the scan variants of spec.md §4.7: one type
// per technique (SYN, Connect, UDP, FIN/NULL/Xmas, ACK, Idle, Discovery,
// Decoy), each a pure classifier from an observed Response to a
// result.PortState. Packet construction and transport are handled by the
// dispatcher/orchestrator; strategies hold only the decision logic so they
// stay unit-testable without a live socket.
package strategy

import "github.com/doublegate/ProRT-IP-sub009/internal/result"

// Kind identifies a scan variant. A closed enum (rather than a string) so
// a switch over Kind gets compiler-checked exhaustiveness at call sites
// that care (spec.md §9 design note on exhaustive dispatch).
type Kind uint8

const (
	KindSYN Kind = iota
	KindConnect
	KindUDP
	KindFIN
	KindNULL
	KindXmas
	KindACK
	KindIdle
	KindDiscovery
	KindDecoy
)

func (k Kind) String() string {
	switch k {
	case KindSYN:
		return "syn"
	case KindConnect:
		return "connect"
	case KindUDP:
		return "udp"
	case KindFIN:
		return "fin"
	case KindNULL:
		return "null"
	case KindXmas:
		return "xmas"
	case KindACK:
		return "ack"
	case KindIdle:
		return "idle"
	case KindDiscovery:
		return "discovery"
	case KindDecoy:
		return "decoy"
	default:
		return "unknown"
	}
}

// ResponseKind classifies what, if anything, a probe elicited.
type ResponseKind uint8

const (
	// RespNone means no response arrived before timeout/retry exhaustion.
	RespNone ResponseKind = iota
	RespTCP
	RespUDP
	RespICMPUnreachableFiltered   // type 3 code {0,1,2,9,10,13} v4 / type 1 code {1,2,3} v6
	RespICMPUnreachablePortClosed // type 3 code 3 v4 / type 1 code 4 v6
	RespICMPUnreachableOther
)

// TCPFlagSet mirrors the subset of codec.TCPFlags a strategy needs to
// classify a response, kept local to avoid importing the codec package's
// full build-side surface into decision logic.
type TCPFlagSet struct {
	SYN, ACK, RST, FIN, PSH, URG bool
}

// Response is one observed reply (or its absence) correlated to a probe.
type Response struct {
	Kind       ResponseKind
	TCP        TCPFlagSet
	IPID       uint16 // IPv4 identification field of the reply, for idle-scan baselines
	TTL        uint8  // IP TTL/hop limit of the reply, for OS fingerprinting
	DF         bool   // IPv4 don't-fragment bit of the reply (always true on IPv6)
	Window     uint16 // TCP window size of the reply, for OS fingerprinting
	Attempts   int
	MaxRetries int
}

// Strategy classifies Responses into a result.PortState for its variant.
// Implementations are stateless and safe for concurrent use.
type Strategy interface {
	Kind() Kind
	Protocol() result.Protocol
	Classify(r Response) result.PortState
}

// exhausted reports whether a silent probe has used all its retries,
// shared by every strategy whose "no response" verdict depends on retry
// budget (SYN, Connect, FIN/NULL/Xmas, ACK).
func exhausted(r Response) bool {
	return r.Attempts >= r.MaxRetries
}

package strategy

import "github.com/doublegate/ProRT-IP-sub009/internal/result"

// Variant distinguishes the three TCP flag patterns FIN/NULL/Xmas send to
// a closed port, sharing identical response classification.
type Variant uint8

const (
	VariantFIN Variant = iota
	VariantNULL
	VariantXmas
)

// FINNULLXmas implements the FIN, NULL, and Xmas scan techniques (spec.md
// §4.7), which share one classification rule per RFC 793: a closed port
// answers with RST; an open port, per the RFC, stays silent; a firewall
// drop looks identical to "open" without an ICMP signal, hence
// OpenFiltered rather than Open on silence.
type FINNULLXmas struct {
	variant Variant
}

// NewFIN, NewNULL, and NewXmas construct the three FINNULLXmas variants.
func NewFIN() FINNULLXmas  { return FINNULLXmas{variant: VariantFIN} }
func NewNULL() FINNULLXmas { return FINNULLXmas{variant: VariantNULL} }
func NewXmas() FINNULLXmas { return FINNULLXmas{variant: VariantXmas} }

func (v FINNULLXmas) Kind() Kind {
	switch v.variant {
	case VariantFIN:
		return KindFIN
	case VariantNULL:
		return KindNULL
	default:
		return KindXmas
	}
}

func (FINNULLXmas) Protocol() result.Protocol { return result.TCP }

// Flags reports the TCP control bits this variant sends.
func (v FINNULLXmas) Flags() TCPFlagSet {
	switch v.variant {
	case VariantFIN:
		return TCPFlagSet{FIN: true}
	case VariantXmas:
		return TCPFlagSet{FIN: true, PSH: true, URG: true}
	default:
		return TCPFlagSet{}
	}
}

func (FINNULLXmas) Classify(r Response) result.PortState {
	switch r.Kind {
	case RespTCP:
		if r.TCP.RST {
			return result.Closed
		}
		return result.Unknown
	case RespICMPUnreachableFiltered, RespICMPUnreachablePortClosed, RespICMPUnreachableOther:
		return result.Filtered
	case RespNone:
		if exhausted(r) {
			return result.OpenFiltered
		}
		return result.Unknown
	default:
		return result.Unknown
	}
}

package strategy

import "github.com/doublegate/ProRT-IP-sub009/internal/result"

// SYN emits a bare-SYN TCP segment and classifies the reply (spec.md
// §4.7): SYN/ACK -> Open; RST -> Closed; a filtered-class ICMP unreachable
// -> Filtered; silence after retries -> Filtered.
type SYN struct{}

func (SYN) Kind() Kind                { return KindSYN }
func (SYN) Protocol() result.Protocol { return result.TCP }

func (SYN) Classify(r Response) result.PortState {
	switch r.Kind {
	case RespTCP:
		if r.TCP.SYN && r.TCP.ACK {
			return result.Open
		}
		if r.TCP.RST {
			return result.Closed
		}
		return result.Unknown
	case RespICMPUnreachableFiltered, RespICMPUnreachablePortClosed, RespICMPUnreachableOther:
		return result.Filtered
	case RespNone:
		if exhausted(r) {
			return result.Filtered
		}
		return result.Unknown
	default:
		return result.Unknown
	}
}

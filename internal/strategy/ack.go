package strategy

import "github.com/doublegate/ProRT-IP-sub009/internal/result"

// ACK probes firewall rulesets rather than port state directly (spec.md
// §4.7): an RST means the port is reachable past any stateful firewall
// (Unfiltered, open/closed unknown); silence or an ICMP unreachable means
// a firewall is dropping the probe (Filtered).
type ACK struct{}

func (ACK) Kind() Kind                { return KindACK }
func (ACK) Protocol() result.Protocol { return result.TCP }

func (ACK) Classify(r Response) result.PortState {
	switch r.Kind {
	case RespTCP:
		if r.TCP.RST {
			return result.Unfiltered
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

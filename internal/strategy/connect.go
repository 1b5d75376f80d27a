package strategy

import "github.com/doublegate/ProRT-IP-sub009/internal/result"

// Connect completes a real three-way handshake via the OS TCP stack,
// needing no raw-socket capability (spec.md §4.7): a successful connect ->
// Open, an ECONNREFUSED-equivalent RST -> Closed, timeout -> Filtered.
type Connect struct{}

func (Connect) Kind() Kind                { return KindConnect }
func (Connect) Protocol() result.Protocol { return result.TCP }

func (Connect) Classify(r Response) result.PortState {
	switch r.Kind {
	case RespTCP:
		if r.TCP.RST {
			return result.Closed
		}
		return result.Open
	case RespNone:
		if exhausted(r) {
			return result.Filtered
		}
		return result.Unknown
	default:
		return result.Unknown
	}
}

// ConnectOutcome is what the caller's os-stack dial actually observed,
// translated into a Response by TranslateDialResult so Connect.Classify
// never has to know about net.Dialer/net.OpError directly.
type ConnectOutcome uint8

const (
	DialSucceeded ConnectOutcome = iota
	DialRefused
	DialTimedOut
)

// TranslateDialResult maps a completed dial attempt to the Response shape
// Classify expects.
func TranslateDialResult(o ConnectOutcome, attempts, maxRetries int) Response {
	switch o {
	case DialSucceeded:
		return Response{Kind: RespTCP, TCP: TCPFlagSet{SYN: true, ACK: true}}
	case DialRefused:
		return Response{Kind: RespTCP, TCP: TCPFlagSet{RST: true}}
	default:
		return Response{Kind: RespNone, Attempts: attempts, MaxRetries: maxRetries}
	}
}

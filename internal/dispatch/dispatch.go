package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
	"github.com/doublegate/ProRT-IP-sub009/internal/codec"
	"github.com/doublegate/ProRT-IP-sub009/internal/conntrack"
	"github.com/doublegate/ProRT-IP-sub009/internal/stateless"
	"github.com/doublegate/ProRT-IP-sub009/internal/strategy"
	"github.com/doublegate/ProRT-IP-sub009/internal/transport"
)

// StatelessEvent is delivered for a frame that validated (or failed to
// validate) against the stateless cookie scheme.
type StatelessEvent struct {
	Target   addr.Address
	Port     uint16
	Valid    bool
	Response strategy.Response
}

// StatefulEvent is delivered for a frame correlated to a tracked
// connection.
type StatefulEvent struct {
	Key      conntrack.Key
	Response strategy.Response
}

// Handlers receives classified events from the capture loop. Either field
// may be nil if that mode is unused by the active scan.
type Handlers struct {
	OnStateless func(StatelessEvent)
	OnStateful  func(StatefulEvent)
}

// Dispatcher runs the single capture loop described in spec.md §4.8: parse,
// classify, and route to the stateless cookie validator and/or the
// stateful connection tracker, feeding ICMP unreachables to both.
type Dispatcher struct {
	cookieKey stateless.Key
	nonce     uint32
	handlers  Handlers
	malformed atomic.Uint64
}

// New constructs a Dispatcher. cookieKey/nonce are used to validate
// stateless SYN-scan responses; pass a zero Key when stateless mode is
// unused.
func New(cookieKey stateless.Key, nonce uint32, handlers Handlers) *Dispatcher {
	return &Dispatcher{cookieKey: cookieKey, nonce: nonce, handlers: handlers}
}

// Malformed reports how many received frames failed to parse.
func (d *Dispatcher) Malformed() uint64 { return d.malformed.Load() }

// Run reads frames from tp until ctx is canceled or the capture loop exits,
// dispatching each to Route. It returns the capture loop's terminal error,
// if any (nil on clean cancellation).
func (d *Dispatcher) Run(ctx context.Context, tp transport.Transport, filter transport.Filter) error {
	frames, errs := tp.RecvLoop(ctx, filter)
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return <-errs
			}
			d.Route(frame.Data)
		case err := <-errs:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

// Route classifies one received frame and dispatches it to the configured
// handlers. Malformed frames are counted and dropped (spec.md §4.8).
// Route is idempotent with respect to duplicate or out-of-order frames:
// it relies on the stateless validator's pure recomputation and the
// stateful tracker's in-place Ack to absorb repeats safely.
func (d *Dispatcher) Route(data []byte) {
	c, err := Classify(data)
	if err != nil {
		d.malformed.Add(1)
		return
	}

	resp := d.toResponse(c)

	// ICMP unreachables carry no TCP/UDP source port of their own; the
	// embedded original packet identifies which probe they answer, so both
	// stateless and stateful paths are offered the chance to correlate it
	// (spec.md §4.8: "ICMP/ICMPv6 unreachable to both").
	if c.Unreachable != nil {
		d.routeUnreachable(*c.Unreachable, resp)
		return
	}

	switch c.Protocol {
	case protoTCP:
		d.routeTCP(c, resp)
	case protoUDP:
		d.routeUDP(c, resp)
	}
}

func (d *Dispatcher) toResponse(c Classified) strategy.Response {
	switch {
	case c.Unreachable != nil:
		return strategy.Response{Kind: unreachableKind(*c.Unreachable), IPID: c.IPID, TTL: c.TTL, DF: c.DF}
	case c.Protocol == protoTCP:
		return strategy.Response{Kind: strategy.RespTCP, TCP: c.TCP, IPID: c.IPID, TTL: c.TTL, DF: c.DF, Window: c.Window}
	case c.Protocol == protoUDP:
		return strategy.Response{Kind: strategy.RespUDP, IPID: c.IPID, TTL: c.TTL, DF: c.DF}
	default:
		return strategy.Response{Kind: strategy.RespNone}
	}
}

func (d *Dispatcher) routeTCP(c Classified, resp strategy.Response) {
	target := addr.New(c.SrcIP)
	if c.TCP.SYN && c.TCP.ACK && d.handlers.OnStateless != nil {
		candidate := stateless.Cookie(c.Ack - 1)
		valid := stateless.Validate(d.cookieKey, target, c.SrcPort, d.nonce, candidate)
		d.handlers.OnStateless(StatelessEvent{Target: target, Port: c.SrcPort, Valid: valid, Response: resp})
		return
	}
	if d.handlers.OnStateful != nil {
		key := conntrack.Key{LocalPort: c.DstPort, RemoteAddr: target, RemotePort: c.SrcPort}
		d.handlers.OnStateful(StatefulEvent{Key: key, Response: resp})
	}
}

func (d *Dispatcher) routeUDP(c Classified, resp strategy.Response) {
	if d.handlers.OnStateful == nil {
		return
	}
	target := addr.New(c.SrcIP)
	key := conntrack.Key{LocalPort: c.DstPort, RemoteAddr: target, RemotePort: c.SrcPort}
	d.handlers.OnStateful(StatefulEvent{Key: key, Response: resp})
}

func (d *Dispatcher) routeUnreachable(u codec.ParsedUnreachable, resp strategy.Response) {
	target := addr.New(u.OrigDstIP)
	if d.handlers.OnStateless != nil {
		d.handlers.OnStateless(StatelessEvent{Target: target, Port: u.OrigDstPort, Valid: true, Response: resp})
	}
	if d.handlers.OnStateful != nil {
		key := conntrack.Key{LocalPort: u.OrigSrcPort, RemoteAddr: target, RemotePort: u.OrigDstPort}
		d.handlers.OnStateful(StatefulEvent{Key: key, Response: resp})
	}
}

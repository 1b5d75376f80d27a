package transport

import (
	"context"
	"net"
)

// staticResolver is a RouteResolver useful for tests and for platforms
// where netlink-based discovery (route_linux.go) is unavailable: it
// returns a fixed GatewayInfo regardless of destination.
type staticResolver struct {
	info GatewayInfo
}

// NewStaticResolver returns a RouteResolver that always resolves to info,
// for tests and for CLI-supplied --interface/--source overrides that
// bypass routing-table discovery entirely.
func NewStaticResolver(info GatewayInfo) RouteResolver {
	return staticResolver{info: info}
}

func (r staticResolver) Resolve(ctx context.Context, dst net.IP) (GatewayInfo, error) {
	return r.info, nil
}

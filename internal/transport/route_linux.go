//go:build linux

package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// netlinkResolver discovers the outbound interface, local address, and
// next-hop gateway for a destination via the Linux routing table and
// neighbor (ARP/NDP) cache, the same github.com/vishvananda/netlink stack
// the teacher's telemetry/global-monitor/internal/netlink package uses for
// BGP route discovery, generalized here from "list BGP routes" to
// "resolve the next hop for one destination".
type netlinkResolver struct{}

// NewRouteResolver returns the Linux netlink-backed RouteResolver.
func NewRouteResolver() RouteResolver { return netlinkResolver{} }

func (netlinkResolver) Resolve(ctx context.Context, dst net.IP) (GatewayInfo, error) {
	routes, err := netlink.RouteGet(dst)
	if err != nil {
		return GatewayInfo{}, fmt.Errorf("transport: route lookup for %s: %w", dst, err)
	}
	if len(routes) == 0 {
		return GatewayInfo{}, fmt.Errorf("transport: no route to %s", dst)
	}
	route := routes[0]

	link, err := netlink.LinkByIndex(route.LinkIndex)
	if err != nil {
		return GatewayInfo{}, fmt.Errorf("transport: resolve link index %d: %w", route.LinkIndex, err)
	}
	attrs := link.Attrs()

	localIP := route.Src
	if localIP == nil {
		localIP, err = localAddrOnLink(attrs.Name, dst)
		if err != nil {
			return GatewayInfo{}, err
		}
	}

	gw := route.Gw
	if gw == nil {
		gw = dst // on-link destination: the target itself is the "next hop" to ARP/NDP for
	}

	mac, err := neighborMAC(attrs.Name, gw)
	if err != nil {
		return GatewayInfo{}, fmt.Errorf("transport: resolve next-hop MAC for %s: %w", gw, err)
	}

	return GatewayInfo{
		Interface:  attrs.Name,
		LocalIP:    localIP,
		GatewayIP:  gw,
		GatewayMAC: mac,
		MTU:        attrs.MTU,
	}, nil
}

// localAddrOnLink picks the link's first address in the same family as dst.
func localAddrOnLink(ifaceName string, dst net.IP) (net.IP, error) {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return nil, err
	}
	family := netlink.FAMILY_V4
	if dst.To4() == nil {
		family = netlink.FAMILY_V6
	}
	addrs, err := netlink.AddrList(link, family)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no address on %s for family", ifaceName)
	}
	return addrs[0].IP, nil
}

// neighborMAC consults the kernel neighbor (ARP/NDP) table for gw's
// link-layer address. It sends no ARP/NDP probe of its own: when no entry
// is cached it returns an error.
func neighborMAC(ifaceName string, gw net.IP) (net.HardwareAddr, error) {
	link, err := netlink.LinkByName(ifaceName)
	if err != nil {
		return nil, err
	}
	neighs, err := netlink.NeighList(link.Attrs().Index, 0)
	if err != nil {
		return nil, err
	}
	for _, n := range neighs {
		if n.IP.Equal(gw) && len(n.HardwareAddr) > 0 {
			return n.HardwareAddr, nil
		}
	}
	return nil, fmt.Errorf("no cached neighbor entry for %s on %s (send an ARP/NDP probe first)", gw, ifaceName)
}

package servicedetect

import (
	"sort"
	"time"
)

// SelectProbes implements the probe selection algorithm of spec.md §4.9:
// for TCP, the NULL probe runs first (a banner grab); then every
// remaining probe applicable to port, in rarity-ascending order, whose
// rarity is at most intensity and which either lists port explicitly or
// is universal.
func SelectProbes(probes []Probe, port uint16, intensity int, proto Proto) []Probe {
	var null *Probe
	var rest []Probe

	for i := range probes {
		p := &probes[i]
		if p.Proto != proto {
			continue
		}
		if p.Name == "NULL" && proto == ProtoTCP {
			null = p
			continue
		}
		if p.Rarity > intensity {
			continue
		}
		if !p.Universal && !p.Ports[port] {
			continue
		}
		rest = append(rest, *p)
	}

	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Rarity < rest[j].Rarity })

	out := make([]Probe, 0, len(rest)+1)
	if null != nil {
		out = append(out, *null)
	}
	out = append(out, rest...)
	return out
}

// Timeout applies the adaptive per-port timeout table of spec.md §4.9:
// 500ms for fast well-known TLS ports, 1s for common text protocols, 5s
// default.
func Timeout(port uint16) time.Duration {
	switch port {
	case 443, 8443:
		return 500 * time.Millisecond
	case 21, 22, 25, 80:
		return time.Second
	default:
		return 5 * time.Second
	}
}

// NullProbeTotalWait and NullProbeTCPWrappedAfter are the
// total-wait/tcpwrapped-threshold pair for the NULL
// banner-grab probe (spec.md §4.9: "6s total-wait, 3s tcpwrapped threshold").
const (
	NullProbeTotalWait       = 6 * time.Second
	NullProbeTCPWrappedAfter = 3 * time.Second
)

// IsSSLPort reports whether port is in the sslports list of any probe in
// the set.
func IsSSLPort(probes []Probe, port uint16) bool {
	for _, p := range probes {
		if p.SSLPorts[port] {
			return true
		}
	}
	return false
}

// Package target implements the Target Planner (spec.md §4.3): parsing and
// lazy expansion of comma-separated target specs (single IP, CIDR, address
// range, hostname), a keyed permutation so every (target_set, key) yields a
// distinct but deterministic and restartable shuffle, and sharding across
// worker tasks.
package target

import (
	"fmt"
	"net"
	"strings"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
)

// Kind tags which grammar production a Spec element matched.
type Kind uint8

const (
	KindSingle Kind = iota
	KindCIDR
	KindRange
	KindHostname
)

// elem is one parsed, not-yet-resolved target spec element.
type elem struct {
	kind Kind
	// single
	addr addr.Address
	// cidr
	network *net.IPNet
	// range
	lo, hi addr.Address
	// hostname
	host string
}

// Spec is a parsed, ordered set of target spec elements (spec.md §3
// Target: "one of {single address, CIDR block, address range,
// hostname}"). DNS resolution for hostname elements is deferred to
// Resolve, since it requires a resolver and a context.
type Spec struct {
	elems []elem
}

// Parse splits s on commas and parses each element as a single address, a
// CIDR block (A/N), an address range (A-B), or a bare hostname. Hostname
// elements are accepted syntactically here; resolution happens in
// Resolve.
func Parse(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Spec{}, fmt.Errorf("target: empty spec")
	}
	var out Spec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Spec{}, fmt.Errorf("target: empty element in %q", s)
		}
		e, err := parseElem(part)
		if err != nil {
			return Spec{}, err
		}
		out.elems = append(out.elems, e)
	}
	return out, nil
}

func parseElem(s string) (elem, error) {
	if a, err := addr.ParseAddress(s); err == nil {
		return elem{kind: KindSingle, addr: a}, nil
	}
	if strings.Contains(s, "/") {
		_, network, err := net.ParseCIDR(s)
		if err != nil {
			return elem{}, fmt.Errorf("target: invalid CIDR %q: %w", s, err)
		}
		return elem{kind: KindCIDR, network: network}, nil
	}
	if strings.Contains(s, "-") {
		i := strings.LastIndex(s, "-")
		loS, hiS := strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
		lo, err := addr.ParseAddress(loS)
		if err != nil {
			return elem{}, fmt.Errorf("target: invalid range start %q: %w", loS, err)
		}
		// "A-B" where B is a bare last-octet (nmap-style) is not
		// supported; B must parse as a full address of the same family.
		hi, err := addr.ParseAddress(hiS)
		if err != nil {
			return elem{}, fmt.Errorf("target: invalid range end %q: %w", hiS, err)
		}
		if hi.Family() != lo.Family() {
			return elem{}, fmt.Errorf("target: range %q mixes address families", s)
		}
		if hi.Less(lo) {
			return elem{}, fmt.Errorf("target: reversed range %q", s)
		}
		return elem{kind: KindRange, lo: lo, hi: hi}, nil
	}
	if err := validHostname(s); err != nil {
		return elem{}, err
	}
	return elem{kind: KindHostname, host: s}, nil
}

func validHostname(s string) error {
	if s == "" || len(s) > 253 {
		return fmt.Errorf("target: invalid hostname %q", s)
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("target: invalid hostname label in %q", s)
		}
	}
	return nil
}

package servicedetect

import (
	"strconv"
	"strings"

	"github.com/doublegate/ProRT-IP-sub009/internal/result"
)

// Match runs probes' match rules against banner in order, returning on the
// first hard match. Soft matches along the way set softName to the
// first softmatch service name seen but do not stop the scan (spec.md
// §4.9): the caller may keep trying further probes if no hard match
// turns up, reporting the soft name as a fallback.
func Match(probes []Probe, banner []byte) (info *result.ServiceInfo, softName string) {
	for _, p := range probes {
		for _, rule := range p.MatchRules {
			loc := rule.Pattern.FindSubmatchIndex(banner)
			if loc == nil {
				continue
			}
			if rule.Soft {
				if softName == "" {
					softName = rule.ServiceName
				}
				continue
			}
			return buildServiceInfo(rule, banner, loc), softName
		}
	}
	return nil, softName
}

func buildServiceInfo(rule MatchRule, banner []byte, loc []int) *result.ServiceInfo {
	expand := func(tmpl string) string {
		if tmpl == "" {
			return ""
		}
		return expandCaptures(tmpl, banner, loc)
	}
	info := &result.ServiceInfo{
		Name:      rule.ServiceName,
		Product:   expand(rule.Extract.Product),
		Version:   expand(rule.Extract.Version),
		ExtraInfo: expand(rule.Extract.ExtraInfo),
		OSHint:    expand(rule.Extract.OS),
	}
	for _, cpe := range rule.Extract.CPE {
		info.CPE = append(info.CPE, expandCaptures(cpe, banner, loc))
	}
	return info
}

// expandCaptures substitutes nmap-style $1..$9 references in tmpl with
// the corresponding regex capture group from banner, per loc (as returned
// by regexp.FindSubmatchIndex).
func expandCaptures(tmpl string, banner []byte, loc []int) string {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '$' || i+1 >= len(tmpl) || tmpl[i+1] < '1' || tmpl[i+1] > '9' {
			b.WriteByte(tmpl[i])
			continue
		}
		n, _ := strconv.Atoi(string(tmpl[i+1]))
		if n < len(loc)/2 {
			start, end := loc[2*n], loc[2*n+1]
			if start >= 0 && end >= 0 {
				b.Write(banner[start:end])
			}
		}
		i++
	}
	return b.String()
}

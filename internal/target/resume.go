package target

import "fmt"

// ResumeState is the durable schema for restarting a stateless scan at a
// given logical index (spec.md §9 open question: "the source mentions
// resume files but does not define a durable schema... treat resume as
// optional and specify the schema before enabling"). This repo's
// decision, recorded in DESIGN.md: resume persists only the three values
// that determine iteration order and position — the target spec text,
// the permutation key, and the next logical index — plus the port spec
// text and the total address count as a consistency check against the
// spec text being re-parsed identically on resume.
type ResumeState struct {
	TargetSpec   string   `json:"target_spec"`
	PortSpec     string   `json:"port_spec"`
	PermKey      [16]byte `json:"perm_key"`
	Total        uint64   `json:"total"`
	NextIndex    uint64   `json:"next_index"`
	ScanTypeName string   `json:"scan_type"`
}

// Validate checks internal consistency of a loaded ResumeState before it
// is used to seek an Iterator.
func (r ResumeState) Validate(expLen uint64) error {
	if r.TargetSpec == "" {
		return fmt.Errorf("target: resume state missing target spec")
	}
	if r.Total != expLen {
		return fmt.Errorf("target: resume state total %d does not match re-expanded spec length %d (spec text or DNS results changed)", r.Total, expLen)
	}
	if r.NextIndex > r.Total {
		return fmt.Errorf("target: resume state next_index %d exceeds total %d", r.NextIndex, r.Total)
	}
	return nil
}

// Snapshot captures the current resume state of it against the given
// target/port spec text and scan type name.
func Snapshot(it *Iterator, targetSpec, portSpec, scanType string, key [16]byte) ResumeState {
	return ResumeState{
		TargetSpec:   targetSpec,
		PortSpec:     portSpec,
		PermKey:      key,
		Total:        it.exp.Len(),
		NextIndex:    it.Index(),
		ScanTypeName: scanType,
	}
}

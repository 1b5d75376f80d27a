package osfp

import "sort"

// Signature is one entry in the embedded corpus: a named OS/device class
// plus the attribute ranges nmap-style signatures encode. Ranges are
// represented as inclusive [Min,Max] pairs; a zero-value range (Min==0 &&
// Max==0 with Present==false) means "no constraint" and always matches.
type Signature struct {
	Name  string
	Class string
	CPE   []string

	GCDRange   Range
	ISRRange   Range
	SPRange    Range
	TI, CI, II IDGen
	SS         *bool
	TSGen      *bool

	WindowRange Range // matched against the first SEQ probe's window
	OptionsHint string // expected OPS encoding of the first SEQ probe, "" = no constraint

	ECNWindowRange Range
	ECNDF          *bool
}

// Range is an inclusive numeric constraint; Present false means
// unconstrained.
type Range struct {
	Present  bool
	Min, Max float64
}

func r(min, max float64) Range { return Range{Present: true, Min: min, Max: max} }

func (rg Range) score(v float64) float64 {
	if !rg.Present {
		return 1 // absence of a constraint matches fully
	}
	if v >= rg.Min && v <= rg.Max {
		return 1
	}
	// Partial credit for being close, tapering to 0 at 2x the range width
	// away from the nearest edge (spec.md §4.10: "range match up to
	// 80-100%").
	width := rg.Max - rg.Min
	if width <= 0 {
		width = 1
	}
	var dist float64
	if v < rg.Min {
		dist = rg.Min - v
	} else {
		dist = v - rg.Max
	}
	frac := 1 - dist/(2*width)
	if frac < 0 {
		return 0
	}
	return 0.8 * frac
}

func idGenScore(want, got IDGen) float64 {
	if want == IDUnknown {
		return 1
	}
	if got == IDUnknown {
		return 1 // absence matches absence (spec.md §4.10 scoring rule)
	}
	if want == got {
		return 1
	}
	return 0
}

func boolScore(want *bool, got bool) float64 {
	if want == nil {
		return 1
	}
	if *want == got {
		return 1
	}
	return 0
}

// ScoredSignature pairs a Signature with its computed score against a
// Bundle.
type ScoredSignature struct {
	Signature Signature
	Score     float64
}

// Result is the outcome of matching a Bundle against a Corpus (spec.md
// §4.10 scoring rule: "reported when top score >= 0.85 AND exceeds the
// second candidate by >= 0.05; otherwise top candidates returned with a
// low-confidence flag").
type Result struct {
	Candidates   []ScoredSignature // sorted descending by score, capped
	Confident    bool
	LowConfidence bool
}

const (
	confidenceThreshold = 0.85
	marginThreshold     = 0.05
	maxCandidates       = 5
)

// Score weights per spec.md §4.10: "SEQ contributes ~30%, OPS ~25%, WIN
// ~20%, ECN ~15%, IDs ~10%".
const (
	weightSEQ = 0.30
	weightOPS = 0.25
	weightWIN = 0.20
	weightECN = 0.15
	weightIDs = 0.10
)

// Score computes the weighted match score of b against sig.
func Score(b Bundle, sig Signature) float64 {
	seqScore := (sig.GCDRange.score(float64(b.SEQ.GCD)) +
		sig.ISRRange.score(b.SEQ.ISR) +
		sig.SPRange.score(b.SEQ.SP)) / 3

	var opsScore float64 = 1
	if sig.OptionsHint != "" {
		if b.OPS.PerProbe[0] == sig.OptionsHint {
			opsScore = 1
		} else {
			opsScore = 0
		}
	}

	winScore := sig.WindowRange.score(float64(b.WIN.PerProbe[0]))

	ecnScore := (sig.ECNWindowRange.score(float64(b.ECN.Window)) + boolScore(sig.ECNDF, b.ECN.DF)) / 2

	idsScore := (idGenScore(sig.TI, b.SEQ.TI) + idGenScore(sig.CI, b.SEQ.CI) + idGenScore(sig.II, b.SEQ.II) +
		boolScore(sig.SS, b.SEQ.SS) + boolScore(sig.TSGen, b.SEQ.TSGen)) / 5

	return weightSEQ*seqScore + weightOPS*opsScore + weightWIN*winScore + weightECN*ecnScore + weightIDs*idsScore
}

// Match scores b against every signature in corpus and applies the
// confidence rule of spec.md §4.10.
func Match(b Bundle, corpus []Signature) Result {
	scored := make([]ScoredSignature, 0, len(corpus))
	for _, sig := range corpus {
		scored = append(scored, ScoredSignature{Signature: sig, Score: Score(b, sig)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > maxCandidates {
		scored = scored[:maxCandidates]
	}

	res := Result{Candidates: scored}
	if len(scored) == 0 {
		return res
	}
	if len(scored) == 1 {
		res.Confident = scored[0].Score >= confidenceThreshold
		res.LowConfidence = !res.Confident
		return res
	}
	top, second := scored[0].Score, scored[1].Score
	res.Confident = top >= confidenceThreshold && (top-second) >= marginThreshold
	res.LowConfidence = !res.Confident
	return res
}

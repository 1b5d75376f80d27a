package cli

import "time"

// Template is one of the six timing templates of spec.md §6 (T0-T5,
// "paranoid" through "insane" in the source's own naming, named here only
// by number since the distilled spec doesn't carry the nicknames).
type Template int

const (
	T0 Template = iota
	T1
	T2
	T3
	T4
	T5
)

// TemplateParams is the concrete parameter set one Template maps to
// (spec.md §6 timing template table).
type TemplateParams struct {
	InitialRTO  time.Duration
	MinRTO      time.Duration
	MaxRTO      time.Duration
	Retries     int
	ScanDelay   time.Duration
	MaxParallel int
	Jitter      float64
}

// templates is the literal table from spec.md §6.
var templates = map[Template]TemplateParams{
	T0: {InitialRTO: 300 * time.Second, MinRTO: 100 * time.Second, MaxRTO: 300 * time.Second, Retries: 5, ScanDelay: 300 * time.Second, MaxParallel: 1, Jitter: 0.30},
	T1: {InitialRTO: 15 * time.Second, MinRTO: 5 * time.Second, MaxRTO: 15 * time.Second, Retries: 5, ScanDelay: 15 * time.Second, MaxParallel: 10, Jitter: 0.20},
	T2: {InitialRTO: 10 * time.Second, MinRTO: 1 * time.Second, MaxRTO: 10 * time.Second, Retries: 5, ScanDelay: 400 * time.Millisecond, MaxParallel: 100, Jitter: 0.10},
	T3: {InitialRTO: 3 * time.Second, MinRTO: 500 * time.Millisecond, MaxRTO: 10 * time.Second, Retries: 2, ScanDelay: 0, MaxParallel: 1000, Jitter: 0},
	T4: {InitialRTO: 1 * time.Second, MinRTO: 100 * time.Millisecond, MaxRTO: 1250 * time.Millisecond, Retries: 6, ScanDelay: 0, MaxParallel: 5000, Jitter: 0},
	T5: {InitialRTO: 250 * time.Millisecond, MinRTO: 50 * time.Millisecond, MaxRTO: 300 * time.Millisecond, Retries: 2, ScanDelay: 0, MaxParallel: 10000, Jitter: 0},
}

// DefaultTemplate is nmap-like tooling's conventional middle ground
// between stealth and speed.
const DefaultTemplate = T3

// ParseTemplate maps a --timing flag value ("0".."5") to a Template.
func ParseTemplate(s string) (Template, bool) {
	switch s {
	case "0":
		return T0, true
	case "1":
		return T1, true
	case "2":
		return T2, true
	case "3":
		return T3, true
	case "4":
		return T4, true
	case "5":
		return T5, true
	default:
		return 0, false
	}
}

// Params returns t's concrete parameter set.
func (t Template) Params() TemplateParams { return templates[t] }

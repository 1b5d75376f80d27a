package osfp

// Fingerprinter ties the probe plan, attribute extraction, and signature
// scoring into the single entry point the orchestrator calls once a
// target has yielded at least one open and one closed TCP port (spec.md
// §4.10).
type Fingerprinter struct {
	corpus []Signature
}

// NewFingerprinter builds a Fingerprinter over corpus (DefaultCorpus if
// nil).
func NewFingerprinter(corpus []Signature) *Fingerprinter {
	if corpus == nil {
		corpus = DefaultCorpus
	}
	return &Fingerprinter{corpus: corpus}
}

// Plan returns the 16-probe sequence to send for a target, or
// ErrMissingPorts if either port is zero (the orchestrator's signal that
// the precondition isn't met).
func (f *Fingerprinter) Plan(openPort, closedPort uint16) ([]ProbeSpec, error) {
	if openPort == 0 || closedPort == 0 {
		return nil, ErrMissingPorts
	}
	return Sequence(openPort, closedPort), nil
}

// Fingerprint extracts attributes from obs and scores them against the
// corpus, returning the Result the aggregator attaches to the target's
// OSFingerprint record.
func (f *Fingerprinter) Fingerprint(obs map[ProbeID]Observation) Result {
	bundle := Extract(obs)
	return Match(bundle, f.corpus)
}

package strategy

import "github.com/doublegate/ProRT-IP-sub009/internal/result"

// ZombiePolicy classifies how a candidate zombie host generates IP
// identification values, determined by sampling its IP ID across several
// baseline probes before trusting it for an idle scan (spec.md §4.7).
type ZombiePolicy uint8

const (
	PolicyUnknown ZombiePolicy = iota
	PolicySequential
	PolicyRandom
	PolicyGlobal
	PolicyPerDestination
	PolicyZero
)

func (p ZombiePolicy) String() string {
	switch p {
	case PolicySequential:
		return "sequential"
	case PolicyRandom:
		return "random"
	case PolicyGlobal:
		return "global"
	case PolicyPerDestination:
		return "per-destination"
	case PolicyZero:
		return "zero"
	default:
		return "unknown"
	}
}

// Suitable reports whether a zombie's ID generation policy is usable for
// an idle scan: only hosts with a monotonically incrementing counter
// (Sequential, shared across all destinations, or Global) leak information
// through their IP ID; Random, PerDestination, and Zero policies do not.
func (p ZombiePolicy) Suitable() bool {
	return p == PolicySequential || p == PolicyGlobal
}

// ClassifyZombiePolicy infers a ZombiePolicy from a short series of IP ID
// samples taken back-to-back from the same candidate host.
func ClassifyZombiePolicy(samples []uint16) ZombiePolicy {
	if len(samples) < 2 {
		return PolicyUnknown
	}

	allZero := true
	for _, s := range samples {
		if s != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return PolicyZero
	}

	monotonic := true
	maxStep := uint16(0)
	for i := 1; i < len(samples); i++ {
		step := samples[i] - samples[i-1] // wrapping subtraction
		if step == 0 || step > 1000 {
			monotonic = false
			break
		}
		if step > maxStep {
			maxStep = step
		}
	}
	if monotonic {
		if maxStep <= 2 {
			return PolicySequential
		}
		return PolicyGlobal
	}

	return PolicyRandom
}

// Idle implements the idle (zombie) scan (spec.md §4.7): a zombie IP ID
// baseline id0 is sampled, a spoofed SYN is sent from the zombie's address
// to the target, and the zombie is re-sampled for id1. The delta between
// samples reveals the target port's state without the scanner's own
// address ever appearing in the target's logs.
type Idle struct{}

func (Idle) Kind() Kind                { return KindIdle }
func (Idle) Protocol() result.Protocol { return result.TCP }

// IdleOutcome is the delta-based verdict for one idle-scan probe.
type IdleOutcome uint8

const (
	IdleOpen IdleOutcome = iota
	IdleClosed
	IdleFiltered
	IdleUnreliable
)

// ClassifyDelta interprets id1-id0 (wrapping) per spec.md §4.7: a delta of
// 2 means the zombie sent one packet of its own (a RST to the unsolicited
// SYN/ACK it received) -> Open; 1 means no reply was sent -> Closed; 0
// means the spoofed SYN never reached the target -> Filtered; anything
// else means the zombie was unsuitable for this probe round.
func ClassifyDelta(delta uint16) IdleOutcome {
	switch delta {
	case 2:
		return IdleOpen
	case 1:
		return IdleClosed
	case 0:
		return IdleFiltered
	default:
		return IdleUnreliable
	}
}

// Classify maps an IdleOutcome to the shared PortState vocabulary.
// Unreliable outcomes surface as Unknown so the caller can decide to retry
// with a different zombie or probe round.
func (Idle) Classify(o IdleOutcome) result.PortState {
	switch o {
	case IdleOpen:
		return result.Open
	case IdleClosed:
		return result.Closed
	case IdleFiltered:
		return result.Filtered
	default:
		return result.Unknown
	}
}

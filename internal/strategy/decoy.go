package strategy

import (
	"fmt"
	"math/rand"

	"github.com/doublegate/ProRT-IP-sub009/internal/addr"
)

// Decoy duplicates each probe N times with spoofed source addresses drawn
// from a caller-supplied decoy set, interleaving the real source at a
// random index so the target's logs cannot trivially identify the actual
// scanner (spec.md §4.7). It does not change state interpretation -- the
// underlying strategy's Classify is still used for the real probe's
// response -- it only fuzzes who appears to have sent each packet.
type Decoy struct {
	decoys []addr.Address
	real   addr.Address
}

// NewDecoy constructs a Decoy set from the caller's real source address
// and a list of decoy addresses to spoof alongside it.
func NewDecoy(real addr.Address, decoys []addr.Address) (Decoy, error) {
	if len(decoys) == 0 {
		return Decoy{}, fmt.Errorf("strategy: decoy set must be non-empty")
	}
	return Decoy{decoys: decoys, real: real}, nil
}

// SourceIndex returns a random position in [0, len(decoys)+1) for the real
// source to occupy among len(decoys) spoofed ones, so no fixed slot gives
// the scanner away.
func (d Decoy) SourceIndex(rng *rand.Rand) int {
	return rng.Intn(len(d.decoys) + 1)
}

// Sources returns the full ordered list of source addresses to use for one
// decoy round, with the real address placed at idx among the decoys.
func (d Decoy) Sources(idx int) []addr.Address {
	out := make([]addr.Address, 0, len(d.decoys)+1)
	out = append(out, d.decoys[:idx]...)
	out = append(out, d.real)
	out = append(out, d.decoys[idx:]...)
	return out
}

// Len reports the total number of packets sent per decoy round, real probe
// included.
func (d Decoy) Len() int { return len(d.decoys) + 1 }

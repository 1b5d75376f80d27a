package target

import "fmt"

// Shard splits a permuted [0, exp.Len()) range into n contiguous,
// disjoint logical-index ranges, one Iterator per worker task (spec.md
// §2 Target Planner: "shard across workers"). Sharding the logical
// index space (not the underlying address space) keeps each shard's
// traversal order a contiguous slice of the single keyed permutation, so
// the whole-scan order is still fully determined by (target_set, key)
// regardless of worker count.
func Shard(exp Expansion, perm *Permutation, n int) ([]*Iterator, error) {
	if n <= 0 {
		return nil, fmt.Errorf("target: shard count must be > 0")
	}
	total := exp.Len()
	out := make([]*Iterator, 0, n)
	base := total / uint64(n)
	rem := total % uint64(n)
	var start uint64
	for i := 0; i < n; i++ {
		size := base
		if uint64(i) < rem {
			size++
		}
		end := start + size
		out = append(out, &Iterator{exp: exp, perm: perm, next: start, end: end})
		start = end
	}
	return out, nil
}

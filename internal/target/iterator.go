package target

import "github.com/doublegate/ProRT-IP-sub009/internal/addr"

// Iterator walks an Expansion in permuted order, restartable at any index
// (spec.md §4.3, §8 property 2: a fixed permutation key yields a
// deterministic, reproducible order).
type Iterator struct {
	exp  Expansion
	perm *Permutation
	next uint64
	end  uint64 // exclusive
}

// NewIterator returns an Iterator over exp's full range [0, exp.Len())
// under perm.
func NewIterator(exp Expansion, perm *Permutation) *Iterator {
	return &Iterator{exp: exp, perm: perm, next: 0, end: exp.Len()}
}

// Seek repositions the iterator to resume at logical index i (the i-th
// address in permuted order), without replaying the addresses before it.
func (it *Iterator) Seek(i uint64) {
	if i > it.end {
		i = it.end
	}
	it.next = i
}

// Index reports the next logical index the iterator will emit, the value
// a resume file should persist (spec.md §9 resume).
func (it *Iterator) Index() uint64 { return it.next }

// Next returns the next address in permuted order, or ok=false once the
// iterator's range is exhausted.
func (it *Iterator) Next() (addr.Address, bool, error) {
	if it.next >= it.end {
		return addr.Address{}, false, nil
	}
	permuted := it.perm.At(it.next)
	it.next++
	a, err := it.exp.At(permuted)
	if err != nil {
		return addr.Address{}, false, err
	}
	return a, true, nil
}

// Remaining reports how many addresses are left to emit.
func (it *Iterator) Remaining() uint64 {
	if it.next >= it.end {
		return 0
	}
	return it.end - it.next
}

package lir

import (
	"fmt"
	"math/bits"
	"strings"
)

// TrackedIndex is the dense index of a liveness-tracked local.
type TrackedIndex uint32

// VarSet is a set of tracked locals, indexed by TrackedIndex.
//
// Most methods have a handful of tracked locals, so the first 320 indexes
// live in an inline buffer and larger sets are offloaded to the heap.
// The zero value is an empty set. Copying a non-empty VarSet aliases its
// storage: use Clone to obtain an independent copy.
type VarSet struct {
	bits []uint64
	buf  [5]uint64
}

// NewVarSet returns a set holding the given indexes.
func NewVarSet(idx ...TrackedIndex) VarSet {
	var s VarSet
	for _, i := range idx {
		s.Add(i)
	}
	return s
}

// Clear removes every element.
func (s *VarSet) Clear() {
	s.bits, s.buf = nil, [5]uint64{}
}

// Has returns true if i is in the set.
func (s *VarSet) Has(i TrackedIndex) bool {
	index, shift := uint(i)/64, uint(i)%64
	return index < uint(len(s.bits)) && (s.bits[index]&(1<<shift)) != 0
}

// Add inserts i.
func (s *VarSet) Add(i TrackedIndex) {
	index, shift := uint(i)/64, uint(i)%64
	s.grow(index + 1)
	s.bits[index] |= 1 << shift
}

// Remove deletes i.
func (s *VarSet) Remove(i TrackedIndex) {
	index, shift := uint(i)/64, uint(i)%64
	if index < uint(len(s.bits)) {
		s.bits[index] &^= 1 << shift
	}
}

func (s *VarSet) grow(words uint) {
	if words <= uint(len(s.bits)) {
		return
	}
	if words <= uint(len(s.buf)) && (s.bits == nil || &s.bits[0] == &s.buf[0]) {
		s.bits = s.buf[:words]
		return
	}
	n := make([]uint64, words)
	copy(n, s.bits)
	s.bits, s.buf = n, [5]uint64{}
}

// Len returns the number of elements.
func (s *VarSet) Len() (n int) {
	for _, v := range s.bits {
		n += bits.OnesCount64(v)
	}
	return
}

// IsEmpty returns true if the set has no element.
func (s *VarSet) IsEmpty() bool {
	for _, v := range s.bits {
		if v != 0 {
			return false
		}
	}
	return true
}

// Range calls f for each element in ascending order.
func (s *VarSet) Range(f func(TrackedIndex)) {
	for i, v := range s.bits {
		for j := uint(i * 64); v != 0; j++ {
			n := uint(bits.TrailingZeros64(v))
			j += n
			v >>= n + 1
			f(TrackedIndex(j))
		}
	}
}

// Clone returns an independent copy.
func (s *VarSet) Clone() VarSet {
	var ret VarSet
	ret.grow(uint(len(s.bits)))
	copy(ret.bits, s.bits)
	return ret
}

// Assign overwrites the receiver with the contents of o.
func (s *VarSet) Assign(o *VarSet) {
	for i := range s.bits {
		s.bits[i] = 0
	}
	s.grow(uint(len(o.bits)))
	copy(s.bits, o.bits)
}

// UnionWith adds every element of o.
func (s *VarSet) UnionWith(o *VarSet) {
	s.grow(uint(len(o.bits)))
	for i, v := range o.bits {
		s.bits[i] |= v
	}
}

// MinusWith removes every element of o.
func (s *VarSet) MinusWith(o *VarSet) {
	for i := range s.bits {
		if i < len(o.bits) {
			s.bits[i] &^= o.bits[i]
		}
	}
}

// IntersectWith keeps only the elements also in o.
func (s *VarSet) IntersectWith(o *VarSet) {
	for i := range s.bits {
		if i < len(o.bits) {
			s.bits[i] &= o.bits[i]
		} else {
			s.bits[i] = 0
		}
	}
}

// Equal returns true if both sets hold the same elements.
func (s *VarSet) Equal(o *VarSet) bool {
	longer, shorter := s.bits, o.bits
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	for i, v := range longer {
		var w uint64
		if i < len(shorter) {
			w = shorter[i]
		}
		if v != w {
			return false
		}
	}
	return true
}

// Slice returns the elements in ascending order.
func (s *VarSet) Slice() []TrackedIndex {
	var ret []TrackedIndex
	s.Range(func(i TrackedIndex) { ret = append(ret, i) })
	return ret
}

// String implements fmt.Stringer.
func (s *VarSet) String() string {
	var ret []string
	s.Range(func(i TrackedIndex) { ret = append(ret, fmt.Sprintf("%d", i)) })
	return "{" + strings.Join(ret, " ") + "}"
}

package lir

import (
	"fmt"
	"math/bits"
	"strings"
)

// RealReg represents a physical register. The numbering is defined by each target.
type RealReg byte

// RealRegInvalid is not a register. A local whose register is RealRegInvalid lives in its stack home.
const RealRegInvalid RealReg = 0

// RealRegsNumMax is the upper bound of RealReg values a RegSet can hold.
const RealRegsNumMax = 64

// RegType represents the class of a register.
type RegType byte

const (
	RegTypeInvalid RegType = iota
	RegTypeInt
	RegTypeFloat
	NumRegType
)

// String implements fmt.Stringer.
func (r RegType) String() string {
	switch r {
	case RegTypeInt:
		return "int"
	case RegTypeFloat:
		return "float"
	default:
		return "invalid"
	}
}

// NewRegSet returns a new RegSet with the given registers.
func NewRegSet(regs ...RealReg) RegSet {
	var ret RegSet
	for _, r := range regs {
		ret = ret.Add(r)
	}
	return ret
}

// RegSet represents a set of registers.
type RegSet uint64

// Has returns true if r is in the set.
func (rs RegSet) Has(r RealReg) bool {
	return r < RealRegsNumMax && rs&(1<<uint(r)) != 0
}

// Add returns the set with r added.
func (rs RegSet) Add(r RealReg) RegSet {
	if r >= RealRegsNumMax || r == RealRegInvalid {
		return rs
	}
	return rs | 1<<uint(r)
}

// Remove returns the set with r removed.
func (rs RegSet) Remove(r RealReg) RegSet {
	if r >= RealRegsNumMax {
		return rs
	}
	return rs &^ (1 << uint(r))
}

// Union returns rs ∪ o.
func (rs RegSet) Union(o RegSet) RegSet { return rs | o }

// Intersect returns rs ∩ o.
func (rs RegSet) Intersect(o RegSet) RegSet { return rs & o }

// Minus returns rs \ o.
func (rs RegSet) Minus(o RegSet) RegSet { return rs &^ o }

// Empty returns true if no register is in the set.
func (rs RegSet) Empty() bool { return rs == 0 }

// Count returns the number of registers in the set.
func (rs RegSet) Count() int { return bits.OnesCount64(uint64(rs)) }

// Range calls f for each register in ascending order.
func (rs RegSet) Range(f func(r RealReg)) {
	for v := uint64(rs); v != 0; v &= v - 1 {
		f(RealReg(bits.TrailingZeros64(v)))
	}
}

// Format renders the set with the given register naming function.
func (rs RegSet) Format(name func(RealReg) string) string {
	var ret []string
	rs.Range(func(r RealReg) {
		if name != nil {
			ret = append(ret, name(r))
		} else {
			ret = append(ret, fmt.Sprintf("r%d", r))
		}
	})
	return "{" + strings.Join(ret, ", ") + "}"
}

// String implements fmt.Stringer.
func (rs RegSet) String() string {
	return rs.Format(nil)
}

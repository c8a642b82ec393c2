// Package intcast decides how an integer-to-integer conversion is performed:
// which range check guards it and which extension (or load) produces the result.
package intcast

import "fmt"

// CheckKind is the overflow check performed on the source value.
type CheckKind byte

const (
	// CheckNone performs no check.
	CheckNone CheckKind = iota
	// CheckPositive checks that the source, read at CheckSrcSize, is not negative.
	CheckPositive
	// CheckUintRange checks that a 64-bit source fits in 32 unsigned bits.
	CheckUintRange
	// CheckPositiveIntRange checks that a 64-bit source, read unsigned, fits in 31 bits.
	CheckPositiveIntRange
	// CheckIntRange checks that a 64-bit source fits in 32 signed bits.
	CheckIntRange
	// CheckSmallIntRange checks that the source lies in [CheckMin, CheckMax].
	CheckSmallIntRange
)

// String implements fmt.Stringer.
func (c CheckKind) String() string {
	switch c {
	case CheckNone:
		return "none"
	case CheckPositive:
		return "positive"
	case CheckUintRange:
		return "uint_range"
	case CheckPositiveIntRange:
		return "positive_int_range"
	case CheckIntRange:
		return "int_range"
	case CheckSmallIntRange:
		return "small_int_range"
	}
	return fmt.Sprintf("check(%d)", byte(c))
}

// ExtendKind is how the result is produced once the check passed.
type ExtendKind byte

const (
	// ExtendCopy moves the source (if it is in another register) without extension.
	ExtendCopy ExtendKind = iota
	ExtendZeroSmallInt
	ExtendSignSmallInt
	ExtendZeroInt
	ExtendSignInt
	// The load kinds read the source from memory, extending as part of the load.
	ExtendLoadZeroSmallInt
	ExtendLoadSignSmallInt
	ExtendLoadZeroInt
	ExtendLoadSignInt
	// ExtendLoadSource loads the source at its own size.
	ExtendLoadSource
)

// String implements fmt.Stringer.
func (e ExtendKind) String() string {
	switch e {
	case ExtendCopy:
		return "copy"
	case ExtendZeroSmallInt:
		return "zero_extend_small_int"
	case ExtendSignSmallInt:
		return "sign_extend_small_int"
	case ExtendZeroInt:
		return "zero_extend_int"
	case ExtendSignInt:
		return "sign_extend_int"
	case ExtendLoadZeroSmallInt:
		return "load_zero_extend_small_int"
	case ExtendLoadSignSmallInt:
		return "load_sign_extend_small_int"
	case ExtendLoadZeroInt:
		return "load_zero_extend_int"
	case ExtendLoadSignInt:
		return "load_sign_extend_int"
	case ExtendLoadSource:
		return "load_source"
	}
	return fmt.Sprintf("extend(%d)", byte(e))
}

// IsLoad returns true if the extension reads the source from memory.
func (e ExtendKind) IsLoad() bool {
	return e >= ExtendLoadZeroSmallInt
}

// Desc describes a conversion.
type Desc struct {
	// SrcSize is the register size of the source, 4 or 8.
	SrcSize     int
	SrcUnsigned bool
	// CastSize is the size of the type converted to, 1, 2, 4 or 8.
	CastSize     int
	CastUnsigned bool
	// DstSize is the register size of the result, 4 or 8.
	DstSize int
	// Overflow requests a range check.
	Overflow bool

	// SrcIsMemory is set when the source is read directly from memory. LoadSize and
	// LoadUnsigned then describe the type stored in memory.
	SrcIsMemory  bool
	LoadSize     int
	LoadUnsigned bool

	// SrcRangeKnown is set when the source is known to be in [SrcMin, SrcMax].
	SrcRangeKnown  bool
	SrcMin, SrcMax int64

	// SignExtendNarrowed requests 64-to-32 truncations to be sign extended, for
	// targets that keep 32-bit values sign extended in 64-bit registers.
	SignExtendNarrowed bool
}

// Plan is the decided conversion.
type Plan struct {
	Check        CheckKind
	CheckSrcSize int
	// CheckMin and CheckMax bound CheckSmallIntRange. CheckMin is 0 when the source or
	// the cast is unsigned, so a negative source always fails the check.
	CheckMin, CheckMax int64

	Extend        ExtendKind
	ExtendSrcSize int
}

// String implements fmt.Stringer.
func (p Plan) String() string {
	s := fmt.Sprintf("check=%s", p.Check)
	switch p.Check {
	case CheckSmallIntRange:
		s += fmt.Sprintf("[%d,%d]", p.CheckMin, p.CheckMax)
	case CheckNone:
	default:
		s += fmt.Sprintf("/%d", p.CheckSrcSize)
	}
	return s + fmt.Sprintf(" extend=%s/%d", p.Extend, p.ExtendSrcSize)
}

// NewPlan decides the check and the extension for the conversion d.
func NewPlan(d Desc) Plan {
	var p Plan
	switch {
	case d.CastSize < 4:
		if d.Overflow {
			p.Check = CheckSmallIntRange
			p.CheckSrcSize = d.SrcSize
			bitsAvail := uint(d.CastSize * 8)
			if !d.CastUnsigned {
				bitsAvail--
			}
			p.CheckMax = int64(1)<<bitsAvail - 1
			if d.CastUnsigned || d.SrcUnsigned {
				p.CheckMin = 0
			} else {
				p.CheckMin = -p.CheckMax - 1
			}
			p.Extend = ExtendCopy
			p.ExtendSrcSize = d.DstSize
		} else {
			p.Check = CheckNone
			if d.CastUnsigned {
				p.Extend = ExtendZeroSmallInt
			} else {
				p.Extend = ExtendSignSmallInt
			}
			p.ExtendSrcSize = d.CastSize
		}
	case d.SrcSize < d.CastSize:
		// Widening from 32 to 64 bits.
		if d.Overflow && !d.SrcUnsigned && d.CastUnsigned {
			p.Check = CheckPositive
			p.CheckSrcSize = 4
			p.Extend = ExtendZeroInt
		} else {
			p.Check = CheckNone
			if d.SrcUnsigned {
				p.Extend = ExtendZeroInt
			} else {
				p.Extend = ExtendSignInt
			}
		}
		p.ExtendSrcSize = 4
	case d.SrcSize > d.CastSize:
		// Narrowing from 64 to 32 bits.
		switch {
		case !d.Overflow:
			p.Check = CheckNone
		case d.SrcRangeKnown && d.SrcMin >= 0 && d.SrcMax <= 1<<31-1:
			// The upper bound is already known to fit, so only the sign can be wrong.
			p.Check = CheckPositive
			p.CheckSrcSize = 8
		case d.CastUnsigned:
			p.Check = CheckUintRange
			p.CheckSrcSize = 8
		case d.SrcUnsigned:
			p.Check = CheckPositiveIntRange
			p.CheckSrcSize = 8
		default:
			p.Check = CheckIntRange
			p.CheckSrcSize = 8
		}
		if d.SignExtendNarrowed {
			p.Extend = ExtendSignInt
		} else {
			p.Extend = ExtendCopy
		}
		p.ExtendSrcSize = 4
	default:
		// Same size: only the interpretation of the sign bit changes.
		if d.Overflow && d.SrcUnsigned != d.CastUnsigned {
			p.Check = CheckPositive
			p.CheckSrcSize = d.SrcSize
		} else {
			p.Check = CheckNone
		}
		p.Extend = ExtendCopy
		p.ExtendSrcSize = d.SrcSize
	}

	if d.SrcIsMemory {
		p.Extend, p.ExtendSrcSize = loadExtend(d, p.Extend, p.ExtendSrcSize)
	}
	return p
}

// loadExtend folds the extension into the load of a memory source.
func loadExtend(d Desc, e ExtendKind, size int) (ExtendKind, int) {
	switch e {
	case ExtendZeroSmallInt:
		return ExtendLoadZeroSmallInt, min(d.LoadSize, size)
	case ExtendSignSmallInt:
		return ExtendLoadSignSmallInt, min(d.LoadSize, size)
	case ExtendZeroInt:
		if d.LoadSize < 4 {
			return ExtendLoadZeroSmallInt, d.LoadSize
		}
		return ExtendLoadZeroInt, 4
	case ExtendSignInt:
		if d.LoadSize < 4 {
			return ExtendLoadSignSmallInt, d.LoadSize
		}
		return ExtendLoadSignInt, 4
	case ExtendCopy:
		return ExtendLoadSource, 0
	}
	panic(fmt.Sprintf("BUG: unexpected extension %s for a memory source", e))
}

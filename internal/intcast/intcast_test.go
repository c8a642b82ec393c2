package intcast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	for _, tc := range []struct {
		name string
		desc Desc
		exp  Plan
	}{
		{
			name: "int to byte unchecked",
			desc: Desc{SrcSize: 4, CastSize: 1, CastUnsigned: true, DstSize: 4},
			exp:  Plan{Check: CheckNone, Extend: ExtendZeroSmallInt, ExtendSrcSize: 1},
		},
		{
			name: "int to sbyte unchecked",
			desc: Desc{SrcSize: 4, CastSize: 1, DstSize: 4},
			exp:  Plan{Check: CheckNone, Extend: ExtendSignSmallInt, ExtendSrcSize: 1},
		},
		{
			name: "int to short checked",
			desc: Desc{SrcSize: 4, CastSize: 2, DstSize: 4, Overflow: true},
			exp: Plan{Check: CheckSmallIntRange, CheckSrcSize: 4, CheckMin: math.MinInt16, CheckMax: math.MaxInt16,
				Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "long to ushort checked",
			desc: Desc{SrcSize: 8, CastSize: 2, CastUnsigned: true, DstSize: 4, Overflow: true},
			exp: Plan{Check: CheckSmallIntRange, CheckSrcSize: 8, CheckMin: 0, CheckMax: math.MaxUint16,
				Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "uint to sbyte checked",
			desc: Desc{SrcSize: 4, SrcUnsigned: true, CastSize: 1, DstSize: 4, Overflow: true},
			exp: Plan{Check: CheckSmallIntRange, CheckSrcSize: 4, CheckMin: 0, CheckMax: math.MaxInt8,
				Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "int to long",
			desc: Desc{SrcSize: 4, CastSize: 8, DstSize: 8},
			exp:  Plan{Check: CheckNone, Extend: ExtendSignInt, ExtendSrcSize: 4},
		},
		{
			name: "uint to long",
			desc: Desc{SrcSize: 4, SrcUnsigned: true, CastSize: 8, DstSize: 8},
			exp:  Plan{Check: CheckNone, Extend: ExtendZeroInt, ExtendSrcSize: 4},
		},
		{
			name: "int to ulong checked",
			desc: Desc{SrcSize: 4, CastSize: 8, CastUnsigned: true, DstSize: 8, Overflow: true},
			exp:  Plan{Check: CheckPositive, CheckSrcSize: 4, Extend: ExtendZeroInt, ExtendSrcSize: 4},
		},
		{
			name: "uint to long checked",
			desc: Desc{SrcSize: 4, SrcUnsigned: true, CastSize: 8, DstSize: 8, Overflow: true},
			exp:  Plan{Check: CheckNone, Extend: ExtendZeroInt, ExtendSrcSize: 4},
		},
		{
			name: "long to int unchecked",
			desc: Desc{SrcSize: 8, CastSize: 4, DstSize: 4},
			exp:  Plan{Check: CheckNone, Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "long to int unchecked sign extending target",
			desc: Desc{SrcSize: 8, CastSize: 4, DstSize: 4, SignExtendNarrowed: true},
			exp:  Plan{Check: CheckNone, Extend: ExtendSignInt, ExtendSrcSize: 4},
		},
		{
			name: "long to int checked",
			desc: Desc{SrcSize: 8, CastSize: 4, DstSize: 4, Overflow: true},
			exp:  Plan{Check: CheckIntRange, CheckSrcSize: 8, Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "long to uint checked",
			desc: Desc{SrcSize: 8, CastSize: 4, CastUnsigned: true, DstSize: 4, Overflow: true},
			exp:  Plan{Check: CheckUintRange, CheckSrcSize: 8, Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "ulong to int checked",
			desc: Desc{SrcSize: 8, SrcUnsigned: true, CastSize: 4, DstSize: 4, Overflow: true},
			exp:  Plan{Check: CheckPositiveIntRange, CheckSrcSize: 8, Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "long known in [0, 2^31) to uint checked",
			desc: Desc{SrcSize: 8, CastSize: 4, CastUnsigned: true, DstSize: 4, Overflow: true,
				SrcRangeKnown: true, SrcMin: 0, SrcMax: math.MaxInt32},
			exp: Plan{Check: CheckPositive, CheckSrcSize: 8, Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "long known in [-1, 2^31) to uint checked",
			desc: Desc{SrcSize: 8, CastSize: 4, CastUnsigned: true, DstSize: 4, Overflow: true,
				SrcRangeKnown: true, SrcMin: -1, SrcMax: math.MaxInt32},
			exp: Plan{Check: CheckUintRange, CheckSrcSize: 8, Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "int to uint checked",
			desc: Desc{SrcSize: 4, CastSize: 4, CastUnsigned: true, DstSize: 4, Overflow: true},
			exp:  Plan{Check: CheckPositive, CheckSrcSize: 4, Extend: ExtendCopy, ExtendSrcSize: 4},
		},
		{
			name: "long to long checked",
			desc: Desc{SrcSize: 8, CastSize: 8, DstSize: 8, Overflow: true},
			exp:  Plan{Check: CheckNone, Extend: ExtendCopy, ExtendSrcSize: 8},
		},
		{
			name: "ushort in memory to ubyte",
			desc: Desc{SrcSize: 4, CastSize: 1, CastUnsigned: true, DstSize: 4, SrcIsMemory: true, LoadSize: 2, LoadUnsigned: true},
			exp:  Plan{Check: CheckNone, Extend: ExtendLoadZeroSmallInt, ExtendSrcSize: 1},
		},
		{
			name: "sbyte in memory to short",
			desc: Desc{SrcSize: 4, CastSize: 2, DstSize: 4, SrcIsMemory: true, LoadSize: 1},
			exp:  Plan{Check: CheckNone, Extend: ExtendLoadSignSmallInt, ExtendSrcSize: 1},
		},
		{
			name: "ushort in memory to long",
			desc: Desc{SrcSize: 4, SrcUnsigned: true, CastSize: 8, DstSize: 8, SrcIsMemory: true, LoadSize: 2, LoadUnsigned: true},
			exp:  Plan{Check: CheckNone, Extend: ExtendLoadZeroSmallInt, ExtendSrcSize: 2},
		},
		{
			name: "int in memory to long",
			desc: Desc{SrcSize: 4, CastSize: 8, DstSize: 8, SrcIsMemory: true, LoadSize: 4},
			exp:  Plan{Check: CheckNone, Extend: ExtendLoadSignInt, ExtendSrcSize: 4},
		},
		{
			name: "long in memory to int",
			desc: Desc{SrcSize: 8, CastSize: 4, DstSize: 4, SrcIsMemory: true, LoadSize: 8},
			exp:  Plan{Check: CheckNone, Extend: ExtendLoadSource},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.exp, NewPlan(tc.desc))
		})
	}
}

func TestNewPlan_smallIntRangeIsRepresentable(t *testing.T) {
	for _, castSize := range []int{1, 2} {
		for _, unsigned := range []bool{false, true} {
			for _, srcSize := range []int{4, 8} {
				p := NewPlan(Desc{SrcSize: srcSize, CastSize: castSize, CastUnsigned: unsigned, DstSize: 4, Overflow: true})
				require.Equal(t, CheckSmallIntRange, p.Check)
				bitsN := uint(castSize * 8)
				if unsigned {
					require.Equal(t, int64(0), p.CheckMin)
					require.Equal(t, int64(1)<<bitsN-1, p.CheckMax)
				} else {
					require.Equal(t, -(int64(1) << (bitsN - 1)), p.CheckMin)
					require.Equal(t, int64(1)<<(bitsN-1)-1, p.CheckMax)
				}
			}
		}
	}
}

func TestNewPlan_narrowingNeverExtendsFromTheCheckedWidth(t *testing.T) {
	for _, overflow := range []bool{false, true} {
		for _, castUnsigned := range []bool{false, true} {
			for _, srcUnsigned := range []bool{false, true} {
				p := NewPlan(Desc{SrcSize: 8, SrcUnsigned: srcUnsigned, CastSize: 4, CastUnsigned: castUnsigned, DstSize: 4, Overflow: overflow})
				require.Equal(t, ExtendCopy, p.Extend)
				require.Equal(t, 4, p.ExtendSrcSize)
				if !overflow {
					require.Equal(t, CheckNone, p.Check)
				} else {
					require.Equal(t, 8, p.CheckSrcSize)
				}
			}
		}
	}
}

func TestPlan_String(t *testing.T) {
	require.Equal(t, "check=small_int_range[-128,127] extend=copy/4",
		NewPlan(Desc{SrcSize: 4, CastSize: 1, DstSize: 4, Overflow: true}).String())
	require.Equal(t, "check=int_range/8 extend=copy/4",
		NewPlan(Desc{SrcSize: 8, CastSize: 4, DstSize: 4, Overflow: true}).String())
	require.Equal(t, "check=none extend=sign_extend_int/4",
		NewPlan(Desc{SrcSize: 4, CastSize: 8, DstSize: 8}).String())
}

func TestExtendKind_IsLoad(t *testing.T) {
	require.False(t, ExtendCopy.IsLoad())
	require.False(t, ExtendSignInt.IsLoad())
	require.True(t, ExtendLoadZeroSmallInt.IsLoad())
	require.True(t, ExtendLoadSource.IsLoad())
}

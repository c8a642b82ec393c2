package lir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegSet(t *testing.T) {
	rs := NewRegSet(1, 5, 63)
	require.True(t, rs.Has(1))
	require.True(t, rs.Has(5))
	require.True(t, rs.Has(63))
	require.False(t, rs.Has(2))
	require.Equal(t, 3, rs.Count())

	// Out of range and invalid registers are ignored.
	require.Equal(t, rs, rs.Add(64))
	require.Equal(t, rs, rs.Add(RealRegInvalid))

	rs = rs.Remove(5)
	require.False(t, rs.Has(5))
	require.Equal(t, NewRegSet(1, 63), rs)

	var got []RealReg
	NewRegSet(9, 3, 7).Range(func(r RealReg) { got = append(got, r) })
	require.Equal(t, []RealReg{3, 7, 9}, got)
}

func TestRegSet_setOperations(t *testing.T) {
	a, b := NewRegSet(1, 2, 3), NewRegSet(2, 3, 4)
	require.Equal(t, NewRegSet(1, 2, 3, 4), a.Union(b))
	require.Equal(t, NewRegSet(2, 3), a.Intersect(b))
	require.Equal(t, NewRegSet(1), a.Minus(b))
	require.True(t, a.Minus(a).Empty())
}

func TestRegSet_Format(t *testing.T) {
	names := map[RealReg]string{1: "rax", 2: "rcx"}
	require.Equal(t, "{rax, rcx}", NewRegSet(1, 2).Format(func(r RealReg) string { return names[r] }))
	require.Equal(t, "{r1, r2}", NewRegSet(1, 2).String())
	require.Equal(t, "{}", RegSet(0).String())
}

func TestType(t *testing.T) {
	for _, tc := range []struct {
		typ        Type
		size       int
		unsigned   bool
		small      bool
		gc         GCKind
		actual     Type
		regType    RegType
		stringized string
	}{
		{typ: TypeI8, size: 1, small: true, actual: TypeI32, regType: RegTypeInt, stringized: "i8"},
		{typ: TypeU16, size: 2, unsigned: true, small: true, actual: TypeU32, regType: RegTypeInt, stringized: "u16"},
		{typ: TypeI32, size: 4, actual: TypeI32, regType: RegTypeInt, stringized: "i32"},
		{typ: TypeU64, size: 8, unsigned: true, actual: TypeU64, regType: RegTypeInt, stringized: "u64"},
		{typ: TypeF32, size: 4, actual: TypeF32, regType: RegTypeFloat, stringized: "f32"},
		{typ: TypeRef, size: 8, gc: GCRef, actual: TypeRef, regType: RegTypeInt, stringized: "ref"},
		{typ: TypeByref, size: 8, gc: GCByref, actual: TypeByref, regType: RegTypeInt, stringized: "byref"},
		{typ: TypeStruct, size: 0, actual: TypeStruct, regType: RegTypeInvalid, stringized: "struct"},
	} {
		tc := tc
		t.Run(tc.stringized, func(t *testing.T) {
			require.Equal(t, tc.size, tc.typ.Size())
			require.Equal(t, tc.unsigned, tc.typ.IsUnsigned())
			require.Equal(t, tc.small, tc.typ.IsSmall())
			require.Equal(t, tc.gc, tc.typ.GCKind())
			require.Equal(t, tc.gc != GCNone, tc.typ.IsGC())
			require.Equal(t, tc.actual, tc.typ.ActualType())
			require.Equal(t, tc.regType, tc.typ.RegType())
			require.Equal(t, tc.stringized, tc.typ.String())
		})
	}
}

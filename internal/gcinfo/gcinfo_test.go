package gcinfo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/lirgen/lir"
)

func TestTracker_kindsAreExclusive(t *testing.T) {
	tr := NewTracker()
	tr.MarkRegSetGCref(lir.NewRegSet(1, 2))
	tr.MarkRegSetByref(lir.NewRegSet(2, 3))
	require.Equal(t, lir.NewRegSet(1), tr.RefRegs())
	require.Equal(t, lir.NewRegSet(2, 3), tr.ByrefRegs())
	require.Equal(t, lir.NewRegSet(1, 2, 3), tr.PtrRegs())
	require.True(t, tr.RefRegs().Intersect(tr.ByrefRegs()).Empty())

	tr.MarkRegSetGCref(lir.NewRegSet(3))
	require.Equal(t, lir.GCRef, tr.RegKind(3))
	require.Equal(t, lir.GCByref, tr.RegKind(2))

	tr.MarkRegSetNpt(lir.NewRegSet(1, 2, 3))
	require.True(t, tr.PtrRegs().Empty())
	require.Equal(t, lir.GCNone, tr.RegKind(1))
}

func TestTracker_MarkRegPtrVal(t *testing.T) {
	for _, tc := range []struct {
		typ        lir.Type
		ref, byref bool
	}{
		{typ: lir.TypeRef, ref: true},
		{typ: lir.TypeByref, byref: true},
		{typ: lir.TypeI64},
		{typ: lir.TypeF64},
	} {
		tc := tc
		t.Run(tc.typ.String(), func(t *testing.T) {
			tr := NewTracker()
			// Whatever was there before is overwritten.
			tr.MarkRegSetByref(lir.NewRegSet(4))
			tr.MarkRegPtrVal(4, tc.typ)
			require.Equal(t, tc.ref, tr.RefRegs().Has(4))
			require.Equal(t, tc.byref, tr.ByrefRegs().Has(4))
		})
	}
}

func TestTracker_TransferRegGCState(t *testing.T) {
	tr := NewTracker()
	tr.MarkRegSetGCref(lir.NewRegSet(1))
	tr.MarkRegSetByref(lir.NewRegSet(5))
	tr.TransferRegGCState(2, 1)
	require.Equal(t, lir.GCRef, tr.RegKind(2))
	tr.TransferRegGCState(5, 3)
	require.Equal(t, lir.GCNone, tr.RegKind(5))
}

func TestTracker_Snapshot(t *testing.T) {
	tr := NewTracker()
	tr.MarkRegSetGCref(lir.NewRegSet(1))
	tr.MarkRegSetByref(lir.NewRegSet(2))
	tr.MarkStackSlotLive(3)
	tr.MarkStackSlotLive(7)
	tr.MarkStackSlotDead(7)
	tr.MarkTempLive(16, lir.GCRef)
	tr.MarkTempLive(8, lir.GCByref)
	tr.MarkTempLive(24, lir.GCNone)

	s := tr.Snapshot()
	require.Equal(t, lir.NewRegSet(1), s.RefRegs)
	require.Equal(t, lir.NewRegSet(2), s.ByrefRegs)
	require.Equal(t, lir.NewRegSet(1, 2), s.PtrRegs())
	require.Equal(t, []lir.TrackedIndex{3}, s.StackVars.Slice())
	require.Equal(t, []TempSlot{{Offset: 8, Kind: lir.GCByref}, {Offset: 16, Kind: lir.GCRef}}, s.Temps)
	require.Equal(t, "gcrefRegs={r1} byrefRegs={r2} stackVars={3} temps=[byref@8 ref@16]", s.String())

	// The snapshot does not change with the tracker.
	tr.MarkStackSlotLive(4)
	tr.MarkRegSetNpt(lir.NewRegSet(1))
	tr.MarkTempDead(16)
	require.Equal(t, []lir.TrackedIndex{3}, s.StackVars.Slice())
	require.True(t, s.RefRegs.Has(1))

	s2 := tr.Snapshot()
	require.False(t, s.Equal(s2))
	require.True(t, s2.Equal(tr.Snapshot()))
	// Snapshots are values: their methods work on the result of a call.
	require.Equal(t, lir.NewRegSet(2), tr.Snapshot().PtrRegs())
	require.Equal(t, s2.String(), tr.Snapshot().String())

	tr.Reset()
	s3 := tr.Snapshot()
	require.True(t, s3.PtrRegs().Empty())
	require.True(t, s3.StackVars.IsEmpty())
	require.Empty(t, s3.Temps)
}

// Package gcinfo tracks which registers and stack slots hold garbage collected
// pointers while code is generated, and snapshots that state at labels.
package gcinfo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/lirgen/lir"
)

// TempSlot is a spill temp currently holding a GC pointer.
type TempSlot struct {
	Offset int64
	Kind   lir.GCKind
}

// Snapshot is the GC state attached to a label: every register and stack slot
// the garbage collector must treat as a root at that point.
type Snapshot struct {
	RefRegs   lir.RegSet
	ByrefRegs lir.RegSet
	// StackVars are the tracked locals whose stack home holds a live pointer.
	StackVars lir.VarSet
	// Temps are the spill temps holding a pointer, ordered by offset.
	Temps []TempSlot
}

// PtrRegs returns every register holding a pointer.
func (s Snapshot) PtrRegs() lir.RegSet {
	return s.RefRegs | s.ByrefRegs
}

// Equal returns true if both snapshots describe the same roots.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.RefRegs != o.RefRegs || s.ByrefRegs != o.ByrefRegs || !s.StackVars.Equal(&o.StackVars) {
		return false
	}
	if len(s.Temps) != len(o.Temps) {
		return false
	}
	for i := range s.Temps {
		if s.Temps[i] != o.Temps[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (s Snapshot) String() string {
	var temps []string
	for _, t := range s.Temps {
		temps = append(temps, fmt.Sprintf("%s@%d", t.Kind, t.Offset))
	}
	return fmt.Sprintf("gcrefRegs=%s byrefRegs=%s stackVars=%s temps=[%s]",
		s.RefRegs, s.ByrefRegs, s.StackVars.String(), strings.Join(temps, " "))
}

// Tracker is the running GC state of the method being compiled.
//
// A register is in at most one of the ref and byref sets at a time: marking it with
// one kind removes it from the other.
type Tracker struct {
	refRegs, byrefRegs lir.RegSet
	stackVars          lir.VarSet
	temps              map[int64]lir.GCKind
}

// NewTracker returns a Tracker with no roots.
func NewTracker() *Tracker {
	return &Tracker{temps: map[int64]lir.GCKind{}}
}

// Reset forgets every root.
func (t *Tracker) Reset() {
	t.refRegs, t.byrefRegs = 0, 0
	t.stackVars.Clear()
	for k := range t.temps {
		delete(t.temps, k)
	}
}

// RefRegs returns the registers holding exact references.
func (t *Tracker) RefRegs() lir.RegSet { return t.refRegs }

// ByrefRegs returns the registers holding interior pointers.
func (t *Tracker) ByrefRegs() lir.RegSet { return t.byrefRegs }

// PtrRegs returns every register holding a pointer.
func (t *Tracker) PtrRegs() lir.RegSet { return t.refRegs | t.byrefRegs }

// RegKind returns the kind of the pointer held in r.
func (t *Tracker) RegKind(r lir.RealReg) lir.GCKind {
	switch {
	case t.refRegs.Has(r):
		return lir.GCRef
	case t.byrefRegs.Has(r):
		return lir.GCByref
	}
	return lir.GCNone
}

// MarkRegSetGCref marks every register in mask as holding an exact reference.
func (t *Tracker) MarkRegSetGCref(mask lir.RegSet) {
	t.byrefRegs &^= mask
	t.refRegs |= mask
}

// MarkRegSetByref marks every register in mask as holding an interior pointer.
func (t *Tracker) MarkRegSetByref(mask lir.RegSet) {
	t.refRegs &^= mask
	t.byrefRegs |= mask
}

// MarkRegSetNpt marks every register in mask as not holding a pointer.
func (t *Tracker) MarkRegSetNpt(mask lir.RegSet) {
	t.refRegs &^= mask
	t.byrefRegs &^= mask
}

// MarkRegSet marks every register in mask with kind.
func (t *Tracker) MarkRegSet(kind lir.GCKind, mask lir.RegSet) {
	switch kind {
	case lir.GCRef:
		t.MarkRegSetGCref(mask)
	case lir.GCByref:
		t.MarkRegSetByref(mask)
	default:
		t.MarkRegSetNpt(mask)
	}
}

// MarkRegPtrVal marks r according to the type of the value it now holds.
func (t *Tracker) MarkRegPtrVal(r lir.RealReg, typ lir.Type) {
	t.MarkRegSet(typ.GCKind(), lir.NewRegSet(r))
}

// TransferRegGCState gives dst the GC kind of src, as done by a register to register move.
func (t *Tracker) TransferRegGCState(dst, src lir.RealReg) {
	t.MarkRegSet(t.RegKind(src), lir.NewRegSet(dst))
}

// MarkStackSlotLive reports the stack home of the tracked local idx as holding a live pointer.
func (t *Tracker) MarkStackSlotLive(idx lir.TrackedIndex) {
	t.stackVars.Add(idx)
}

// MarkStackSlotDead stops reporting the stack home of the tracked local idx.
func (t *Tracker) MarkStackSlotDead(idx lir.TrackedIndex) {
	t.stackVars.Remove(idx)
}

// StackSlotLive returns true if the stack home of idx is reported.
func (t *Tracker) StackSlotLive(idx lir.TrackedIndex) bool {
	return t.stackVars.Has(idx)
}

// StackVars returns the live pointer stack homes. The returned set must not be modified.
func (t *Tracker) StackVars() *lir.VarSet {
	return &t.stackVars
}

// MarkTempLive reports the spill temp at offset as holding a pointer of kind.
func (t *Tracker) MarkTempLive(offset int64, kind lir.GCKind) {
	if kind == lir.GCNone {
		delete(t.temps, offset)
		return
	}
	t.temps[offset] = kind
}

// MarkTempDead stops reporting the spill temp at offset.
func (t *Tracker) MarkTempDead(offset int64) {
	delete(t.temps, offset)
}

// Snapshot returns an independent copy of the current roots.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{RefRegs: t.refRegs, ByrefRegs: t.byrefRegs, StackVars: t.stackVars.Clone()}
	for off, kind := range t.temps {
		s.Temps = append(s.Temps, TempSlot{Offset: off, Kind: kind})
	}
	sort.Slice(s.Temps, func(i, j int) bool { return s.Temps[i].Offset < s.Temps[j].Offset })
	return s
}

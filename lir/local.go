package lir

import "fmt"

// VarNum identifies a local variable of a Method. It is the index into Method.Locals.
type VarNum uint32

// String implements fmt.Stringer.
func (v VarNum) String() string {
	return fmt.Sprintf("V%02d", uint32(v))
}

// LocalVar describes a local variable (including parameters) as decided by the
// register allocator and the frame layout.
type LocalVar struct {
	Num  VarNum
	Type Type

	// Tracked is true if liveness is tracked for this local, in which case TrackedIndex
	// is its index in every VarSet.
	Tracked      bool
	TrackedIndex TrackedIndex

	// RegCandidate is true if the register allocator considered this local for enregistration.
	// Only register candidates move between registers and the stack during code generation.
	RegCandidate bool
	// Reg is the register currently holding this local. RealRegInvalid means the local
	// lives in its stack home. Code generation updates it as the local is spilled,
	// reloaded or relocated.
	Reg RealReg

	IsParam bool
	// AddressExposed is true if the address of this local escapes, so it must stay in memory.
	AddressExposed bool
	// WriteThru is true for a local whose every definition is also stored to its stack home.
	WriteThru bool
	// SpillAtSingleDef is true for a local with a single definition which is spilled right there.
	SpillAtSingleDef bool

	// StackOffset is the frame-pointer relative offset of the stack home.
	StackOffset int64

	// Fields holds the field locals of a promoted multi-register local.
	Fields []VarNum
}

// AlwaysAliveInMemory returns true if the stack home of this local always holds its current value,
// so spilling it needs no store.
func (l *LocalVar) AlwaysAliveInMemory() bool {
	return l.WriteThru || l.SpillAtSingleDef
}

// InReg returns true if this local is currently enregistered.
func (l *LocalVar) InReg() bool {
	return l.Reg != RealRegInvalid
}

// GCTrackedOnStack returns true if the stack home of this local is reported to the
// garbage collector through liveness rather than for the whole method.
func (l *LocalVar) GCTrackedOnStack() bool {
	return l.Tracked && l.Type.IsGC() && !l.AddressExposed
}

// IsMultiReg returns true if this local is a promoted local whose fields are enregistered independently.
func (l *LocalVar) IsMultiReg() bool {
	return len(l.Fields) > 0
}

// String implements fmt.Stringer.
func (l *LocalVar) String() string {
	loc := "stk"
	if l.InReg() {
		loc = fmt.Sprintf("r%d", l.Reg)
	}
	return fmt.Sprintf("%s(%s,%s)", l.Num, l.Type, loc)
}

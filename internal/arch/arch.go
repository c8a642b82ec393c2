// Package arch describes the code generation targets: their register files and the
// few block-level decisions that differ between architectures.
package arch

import (
	"fmt"

	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/lir"
)

// RegisterInfo describes the registers the code generator must know about.
type RegisterInfo struct {
	// Name returns the name of a register.
	Name func(lir.RealReg) string
	// IsFloat returns true for registers of the float class.
	IsFloat func(lir.RealReg) bool

	IntReturn, SecondIntReturn, FloatReturn lir.RealReg
	// RetBufReturn returns the address of the return buffer.
	RetBufReturn lir.RealReg
	// AsyncContinuation carries the continuation of an async method on return.
	AsyncContinuation lir.RealReg
	// ExceptionObject holds the exception on entry of a handler.
	ExceptionObject lir.RealReg

	IntArgRegs  lir.RegSet
	CallerSaved lir.RegSet
}

// ReturnRegs returns the registers m leaves its return value in.
func (r *RegisterInfo) ReturnRegs(m *lir.Method) lir.RegSet {
	switch {
	case m.HasRetBuf:
		return lir.NewRegSet(r.RetBufReturn)
	case m.ReturnsStruct:
		return lir.NewRegSet(r.IntReturn, r.SecondIntReturn)
	case m.ReturnType.IsFloat():
		return lir.NewRegSet(r.FloatReturn)
	case m.ReturnType == lir.TypeInvalid:
		return 0
	}
	return lir.NewRegSet(r.IntReturn)
}

// ReturnReg returns the register a value of type t is returned in.
func (r *RegisterInfo) ReturnReg(t lir.Type) lir.RealReg {
	if t.IsFloat() {
		return r.FloatReturn
	}
	return r.IntReturn
}

// Target abstracts the per-architecture decisions of the block driver.
type Target interface {
	// Name returns the architecture name, as used by GOARCH.
	Name() string
	// RegisterInfo returns the register file description.
	RegisterInfo() *RegisterInfo
	// NewAssembler returns an assembler producing machine code for this target.
	NewAssembler() (asm.Assembler, error)
	// ElideFallthroughJump returns true if a jump from the end of from to target can be omitted
	// because next, the block laid out right after from, is target and control falls into it.
	ElideFallthroughJump(from *lir.Block, target lir.BlockID, next *lir.Block) bool
	// EmitReturnSequence emits the code leaving the method.
	EmitReturnSequence(a asm.Assembler)
	// EmitNoReturnGuard emits an instruction trapping if control ever flows past a call which never returns.
	EmitNoReturnGuard(a asm.Assembler)
	// NeedsNopAfterCallBeforeRegionChange returns true if a call which ends a block followed by another
	// exception handling region must not be the last instruction before the region boundary.
	NeedsNopAfterCallBeforeRegionChange() bool
	// BlockAlignment returns the boundary blocks are aligned to when requested.
	BlockAlignment() int
}

// ForName returns the Target named name.
func ForName(name string) (Target, error) {
	switch name {
	case "amd64":
		return AMD64(), nil
	case "arm64":
		return ARM64(), nil
	}
	return nil, fmt.Errorf("unsupported target %q", name)
}

// elideFallthroughJump is shared by every target: a jump to the next block in the same section is not needed.
func elideFallthroughJump(from *lir.Block, target lir.BlockID, next *lir.Block) bool {
	return next != nil && next.ID == target && next.Cold == from.Cold
}

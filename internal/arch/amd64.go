package arch

import (
	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/internal/asm/amd64"
	"github.com/tetratelabs/lirgen/lir"
)

type amd64Target struct {
	info RegisterInfo
}

// AMD64 returns the amd64 Target, using the System V calling convention.
func AMD64() Target {
	return &amd64Target{info: RegisterInfo{
		Name:              amd64.RegisterName,
		IsFloat:           amd64.IsFloatRegister,
		IntReturn:         amd64.RAX,
		SecondIntReturn:   amd64.RDX,
		FloatReturn:       amd64.XMM0,
		RetBufReturn:      amd64.RAX,
		AsyncContinuation: amd64.RCX,
		ExceptionObject:   amd64.RAX,
		IntArgRegs:        lir.NewRegSet(amd64.RDI, amd64.RSI, amd64.RDX, amd64.RCX, amd64.R8, amd64.R9),
		CallerSaved: lir.NewRegSet(amd64.RAX, amd64.RCX, amd64.RDX, amd64.RSI, amd64.RDI,
			amd64.R8, amd64.R9, amd64.R10, amd64.R11,
			amd64.XMM0, amd64.XMM1, amd64.XMM2, amd64.XMM3, amd64.XMM4, amd64.XMM5, amd64.XMM6, amd64.XMM7,
			amd64.XMM8, amd64.XMM9, amd64.XMM10, amd64.XMM11, amd64.XMM12, amd64.XMM13, amd64.XMM14, amd64.XMM15),
	}}
}

// Name implements Target.Name.
func (t *amd64Target) Name() string { return "amd64" }

// RegisterInfo implements Target.RegisterInfo.
func (t *amd64Target) RegisterInfo() *RegisterInfo { return &t.info }

// NewAssembler implements Target.NewAssembler.
func (t *amd64Target) NewAssembler() (asm.Assembler, error) { return amd64.NewAssembler() }

// ElideFallthroughJump implements Target.ElideFallthroughJump.
func (t *amd64Target) ElideFallthroughJump(from *lir.Block, target lir.BlockID, next *lir.Block) bool {
	return elideFallthroughJump(from, target, next)
}

// EmitReturnSequence implements Target.EmitReturnSequence.
func (t *amd64Target) EmitReturnSequence(a asm.Assembler) { a.CompileReturn() }

// EmitNoReturnGuard implements Target.EmitNoReturnGuard.
func (t *amd64Target) EmitNoReturnGuard(a asm.Assembler) { a.CompileBreakpoint() }

// NeedsNopAfterCallBeforeRegionChange implements Target.NeedsNopAfterCallBeforeRegionChange.
//
// The unwinder attributes the return address of a call to the instruction after it, so a
// call right before a region boundary would appear to return into the next region.
func (t *amd64Target) NeedsNopAfterCallBeforeRegionChange() bool { return true }

// BlockAlignment implements Target.BlockAlignment.
func (t *amd64Target) BlockAlignment() int { return 32 }

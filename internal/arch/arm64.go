package arch

import (
	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/internal/asm/arm64"
	"github.com/tetratelabs/lirgen/lir"
)

type arm64Target struct {
	info RegisterInfo
}

// ARM64 returns the arm64 Target, using the AAPCS64 calling convention.
func ARM64() Target {
	callerSaved := lir.NewRegSet()
	for r := arm64.X0; r <= arm64.X17; r++ {
		callerSaved = callerSaved.Add(r)
	}
	for i := 0; i < 32; i++ {
		// v8 to v15 are callee-saved.
		if i < 8 || i > 15 {
			callerSaved = callerSaved.Add(arm64.V(i))
		}
	}
	return &arm64Target{info: RegisterInfo{
		Name:              arm64.RegisterName,
		IsFloat:           arm64.IsFloatRegister,
		IntReturn:         arm64.X0,
		SecondIntReturn:   arm64.X1,
		FloatReturn:       arm64.V(0),
		RetBufReturn:      arm64.X0,
		AsyncContinuation: arm64.X2,
		ExceptionObject:   arm64.X0,
		IntArgRegs: lir.NewRegSet(arm64.X0, arm64.X1, arm64.X2, arm64.X3,
			arm64.X4, arm64.X5, arm64.X6, arm64.X7),
		CallerSaved: callerSaved,
	}}
}

// Name implements Target.Name.
func (t *arm64Target) Name() string { return "arm64" }

// RegisterInfo implements Target.RegisterInfo.
func (t *arm64Target) RegisterInfo() *RegisterInfo { return &t.info }

// NewAssembler implements Target.NewAssembler.
func (t *arm64Target) NewAssembler() (asm.Assembler, error) { return arm64.NewAssembler() }

// ElideFallthroughJump implements Target.ElideFallthroughJump.
func (t *arm64Target) ElideFallthroughJump(from *lir.Block, target lir.BlockID, next *lir.Block) bool {
	return elideFallthroughJump(from, target, next)
}

// EmitReturnSequence implements Target.EmitReturnSequence.
func (t *arm64Target) EmitReturnSequence(a asm.Assembler) { a.CompileReturn() }

// EmitNoReturnGuard implements Target.EmitNoReturnGuard.
func (t *arm64Target) EmitNoReturnGuard(a asm.Assembler) { a.CompileBreakpoint() }

// NeedsNopAfterCallBeforeRegionChange implements Target.NeedsNopAfterCallBeforeRegionChange.
func (t *arm64Target) NeedsNopAfterCallBeforeRegionChange() bool { return false }

// BlockAlignment implements Target.BlockAlignment.
func (t *arm64Target) BlockAlignment() int { return 16 }

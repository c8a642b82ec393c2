package asm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/lirgen/lir"
)

func TestListingAssembler(t *testing.T) {
	a := NewListingAssembler(nil)
	require.Equal(t, InstructionKindNone, a.LastInstruction())

	a.CompileRegisterMove(Size64, 1, 2)
	a.CompileConst(Size32, -5, 3)
	a.CompileLoad(Size8, true, FrameSlot(-16), 4)
	a.CompileLoad(Size64, false, Address{Base: BaseOutgoingArgs, Offset: 8}, 4)
	a.CompileStore(Size32, 4, FrameSlot(-8))
	a.CompileExtend(Size16, false, 4, 5)
	a.CompileBinary(BinaryOpXor, Size64, 1, 2)
	a.CompileCompare(Size32, 1, 2)
	a.CompileCompareConst(Size64, 1, 127)
	fwd := a.CompileJump(lir.CondLtS)
	a.CompileCallRegister(6)
	require.Equal(t, InstructionKindCall, a.LastInstruction())
	a.SetJumpTargetOnNext(fwd)
	label := a.CompileLabel()
	// Labels do not change the last instruction.
	require.Equal(t, InstructionKindCall, a.LastInstruction())
	back := a.CompileJump(lir.CondAlways)
	back.AssignJumpTarget(label)
	a.CompileNop()
	a.CompileBreakpoint()
	a.CompileAlign(16)
	require.Equal(t, InstructionKindAlign, a.LastInstruction())
	a.CompileReturn()

	require.Equal(t, []string{
		"MOV.64 r1, r2",
		"MOV.32 $-5, r3",
		"LOAD.S8 [fp - 0x10], r4",
		"LOAD.64 [sp + 0x8], r4",
		"STORE.32 r4, [fp - 0x8]",
		"EXT.U16 r4, r5",
		"XOR.64 r1, r2",
		"CMP.32 r1, r2",
		"CMP.64 r1, $127",
		"JLT L0",
		"CALL r6",
		"L0:",
		"JMP L0",
		"NOP",
		"BREAKPOINT",
		"ALIGN 16",
		"RET",
	}, a.Lines())
	require.Equal(t, int64(11), label.OffsetInBinary())

	code, err := a.Assemble()
	require.NoError(t, err)
	require.Contains(t, string(code), "L0:\n\tJMP L0\n")
}

func TestListingAssembler_unresolvedJumps(t *testing.T) {
	t.Run("no target", func(t *testing.T) {
		a := NewListingAssembler(nil)
		a.CompileJump(lir.CondEq)
		_, err := a.Assemble()
		require.EqualError(t, err, "jump without target at 0: JEQ ?")
	})
	t.Run("targets the end", func(t *testing.T) {
		a := NewListingAssembler(nil)
		a.SetJumpTargetOnNext(a.CompileJump(lir.CondEq))
		_, err := a.Assemble()
		require.Error(t, err)
	})
}

func TestListingAssembler_RegisterName(t *testing.T) {
	a := NewListingAssembler(func(r lir.RealReg) string { return "reg" })
	require.Equal(t, "reg", a.RegisterName(1))
	a.CompileReturn()
	a.CompileCallRegister(1)
	require.Equal(t, []string{"RET", "CALL reg"}, a.Lines())
}

func TestSizeOf(t *testing.T) {
	require.Equal(t, Size32, SizeOf(lir.TypeI8))
	require.Equal(t, Size32, SizeOf(lir.TypeU32))
	require.Equal(t, Size32, SizeOf(lir.TypeF32))
	require.Equal(t, Size64, SizeOf(lir.TypeRef))
	require.Equal(t, Size64, SizeOf(lir.TypeF64))
}

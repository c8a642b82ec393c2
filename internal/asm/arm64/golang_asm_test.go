package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/lir"
)

func TestAssembler(t *testing.T) {
	a, err := NewAssembler()
	require.NoError(t, err)

	a.CompileRegisterMove(asm.Size64, X0, X1)
	a.CompileLoad(asm.Size64, false, asm.FrameSlot(-16), X2)
	a.CompileStore(asm.Size32, X2, asm.FrameSlot(-24))
	a.CompileCompare(asm.Size64, X1, X2)
	jmp := a.CompileJump(lir.CondGeU)
	a.CompileRegisterMove(asm.Size64, V(0), V(1))
	a.SetJumpTargetOnNext(jmp)
	label := a.CompileLabel()
	a.CompileReturn()

	code, err := a.Assemble()
	require.NoError(t, err)
	// Every arm64 instruction is 4 bytes.
	require.Equal(t, 0, len(code)%4)
	require.True(t, label.OffsetInBinary() > 0)
	require.True(t, label.OffsetInBinary() < int64(len(code)))
}

func TestRegisterName(t *testing.T) {
	require.Equal(t, "x0", RegisterName(X0))
	require.Equal(t, "x29", RegisterName(FP))
	require.Equal(t, "v31", RegisterName(V(31)))
	require.Equal(t, "invalid(64)", RegisterName(64))
	require.True(t, IsFloatRegister(V(0)))
	require.False(t, IsFloatRegister(LR))
}

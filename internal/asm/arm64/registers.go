package arm64

import (
	"fmt"

	"github.com/twitchyliquid64/golang-asm/obj/arm64"

	"github.com/tetratelabs/lirgen/lir"
)

// arm64 registers, numbered as lir.RealReg: X0..X30 are 1..31 and V0..V31 are 32..63.
const (
	X0 lir.RealReg = iota + 1
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	V0
	// V1 to V31 follow V0.
	numRegs = V0 + 32
)

// FP and LR are the frame pointer and link register.
const (
	FP = X29
	LR = X30
)

// V returns the i-th vector register.
func V(i int) lir.RealReg {
	return V0 + lir.RealReg(i)
}

// RegisterName returns the name of r.
func RegisterName(r lir.RealReg) string {
	switch {
	case r >= X0 && r <= X30:
		return fmt.Sprintf("x%d", r-X0)
	case r >= V0 && r < numRegs:
		return fmt.Sprintf("v%d", r-V0)
	}
	return fmt.Sprintf("invalid(%d)", r)
}

// IsFloatRegister returns true for the vector registers.
func IsFloatRegister(r lir.RealReg) bool {
	return r >= V0 && r < numRegs
}

func golangAsmRegister(r lir.RealReg) int16 {
	switch {
	case r >= X0 && r <= X30:
		return arm64.REG_R0 + int16(r-X0)
	case r >= V0 && r < numRegs:
		return arm64.REG_F0 + int16(r-V0)
	}
	panic(fmt.Sprintf("BUG: invalid arm64 register %d", r))
}

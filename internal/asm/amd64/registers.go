package amd64

import (
	"fmt"

	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/tetratelabs/lirgen/lir"
)

// amd64 registers, numbered as lir.RealReg.
const (
	RAX lir.RealReg = iota + 1
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
	numRegs
)

var registerNames = [numRegs]string{
	RAX: "rax", RCX: "rcx", RDX: "rdx", RBX: "rbx", RSP: "rsp", RBP: "rbp", RSI: "rsi", RDI: "rdi",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11", R12: "r12", R13: "r13", R14: "r14", R15: "r15",
	XMM0: "xmm0", XMM1: "xmm1", XMM2: "xmm2", XMM3: "xmm3", XMM4: "xmm4", XMM5: "xmm5", XMM6: "xmm6", XMM7: "xmm7",
	XMM8: "xmm8", XMM9: "xmm9", XMM10: "xmm10", XMM11: "xmm11", XMM12: "xmm12", XMM13: "xmm13", XMM14: "xmm14", XMM15: "xmm15",
}

var golangAsmRegisters = [numRegs]int16{
	RAX: x86.REG_AX, RCX: x86.REG_CX, RDX: x86.REG_DX, RBX: x86.REG_BX,
	RSP: x86.REG_SP, RBP: x86.REG_BP, RSI: x86.REG_SI, RDI: x86.REG_DI,
	R8: x86.REG_R8, R9: x86.REG_R9, R10: x86.REG_R10, R11: x86.REG_R11,
	R12: x86.REG_R12, R13: x86.REG_R13, R14: x86.REG_R14, R15: x86.REG_R15,
	XMM0: x86.REG_X0, XMM1: x86.REG_X1, XMM2: x86.REG_X2, XMM3: x86.REG_X3,
	XMM4: x86.REG_X4, XMM5: x86.REG_X5, XMM6: x86.REG_X6, XMM7: x86.REG_X7,
	XMM8: x86.REG_X8, XMM9: x86.REG_X9, XMM10: x86.REG_X10, XMM11: x86.REG_X11,
	XMM12: x86.REG_X12, XMM13: x86.REG_X13, XMM14: x86.REG_X14, XMM15: x86.REG_X15,
}

// RegisterName returns the name of r.
func RegisterName(r lir.RealReg) string {
	if r == lir.RealRegInvalid || r >= numRegs {
		return fmt.Sprintf("invalid(%d)", r)
	}
	return registerNames[r]
}

// IsFloatRegister returns true for the XMM registers.
func IsFloatRegister(r lir.RealReg) bool {
	return r >= XMM0 && r <= XMM15
}

func golangAsmRegister(r lir.RealReg) int16 {
	if r == lir.RealRegInvalid || r >= numRegs {
		panic(fmt.Sprintf("BUG: invalid amd64 register %d", r))
	}
	return golangAsmRegisters[r]
}

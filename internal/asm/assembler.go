// Package asm defines the architecture-independent instruction stream the code
// generator emits. Implementations encode it into machine code (see the amd64 and
// arm64 packages) or into a textual listing.
package asm

import (
	"fmt"

	"github.com/tetratelabs/lirgen/lir"
)

// Node represents an instruction in the emitted stream.
type Node interface {
	fmt.Stringer
	// AssignJumpTarget assigns the given target node as the destination of
	// jump instruction for this Node.
	AssignJumpTarget(target Node)
	// OffsetInBinary returns the offset of this node in the assembled binary.
	// Only valid after Assemble.
	OffsetInBinary() int64
}

// Size is an operand size in bytes.
type Size byte

const (
	Size8  Size = 1
	Size16 Size = 2
	Size32 Size = 4
	Size64 Size = 8
)

// SizeOf returns the operand size of a register holding a value of type t.
func SizeOf(t lir.Type) Size {
	if t.ActualType().Size() == 8 {
		return Size64
	}
	return Size32
}

// Base is the base register of a memory operand.
type Base byte

const (
	// BaseFrame addresses the frame through the frame pointer: stack homes and spill temps.
	BaseFrame Base = iota
	// BaseOutgoingArgs addresses the outgoing argument area through the stack pointer.
	BaseOutgoingArgs
)

// Address is a memory operand.
type Address struct {
	Base   Base
	Offset int64
}

// FrameSlot returns the Address of the frame slot at offset.
func FrameSlot(offset int64) Address {
	return Address{Base: BaseFrame, Offset: offset}
}

// String implements fmt.Stringer.
func (a Address) String() string {
	base := "fp"
	if a.Base == BaseOutgoingArgs {
		base = "sp"
	}
	if a.Offset < 0 {
		return fmt.Sprintf("[%s - 0x%x]", base, -a.Offset)
	}
	return fmt.Sprintf("[%s + 0x%x]", base, a.Offset)
}

// BinaryOp is a two operand integer operation.
type BinaryOp byte

const (
	BinaryOpAdd BinaryOp = iota
	BinaryOpSub
	BinaryOpAnd
	BinaryOpOr
	BinaryOpXor
)

// String implements fmt.Stringer.
func (o BinaryOp) String() string {
	switch o {
	case BinaryOpAdd:
		return "ADD"
	case BinaryOpSub:
		return "SUB"
	case BinaryOpAnd:
		return "AND"
	case BinaryOpOr:
		return "OR"
	case BinaryOpXor:
		return "XOR"
	}
	return fmt.Sprintf("BINOP(%d)", byte(o))
}

// InstructionKind classifies the last emitted instruction.
type InstructionKind byte

const (
	InstructionKindNone InstructionKind = iota
	InstructionKindCall
	InstructionKindAlign
	InstructionKindOther
)

// Assembler is the common interface for assemblers among multiple architectures.
//
// Operand order follows the Go assembler: sources first, destination last.
type Assembler interface {
	// Assemble produces the final binary for the assembled operations.
	Assemble() ([]byte, error)
	// SetJumpTargetOnNext instructs the assembler that the next node must be
	// assigned to the given nodes's jump destination.
	SetJumpTargetOnNext(nodes ...Node)
	// CompileLabel adds a zero-sized instruction marking a position jumps can target.
	CompileLabel() Node
	// CompileRegisterMove copies src into dst. The register classes of src and dst must match.
	CompileRegisterMove(size Size, src, dst lir.RealReg)
	// CompileConst materializes value into the integer register dst.
	CompileConst(size Size, value int64, dst lir.RealReg)
	// CompileLoad reads size bytes at src into dst, sign extending small values if signed is true
	// and zero extending otherwise.
	CompileLoad(size Size, signed bool, src Address, dst lir.RealReg)
	// CompileStore writes the low size bytes of src at dst.
	CompileStore(size Size, src lir.RealReg, dst Address)
	// CompileExtend extends the low size bytes of src into the 64-bit dst.
	CompileExtend(size Size, signed bool, src, dst lir.RealReg)
	// CompileBinary computes dst = dst op src.
	CompileBinary(op BinaryOp, size Size, src, dst lir.RealReg)
	// CompileCompare sets the flags for a conditional jump on "a cond b".
	CompileCompare(size Size, a, b lir.RealReg)
	// CompileCompareConst sets the flags for a conditional jump on "a cond value".
	CompileCompareConst(size Size, a lir.RealReg, value int64)
	// CompileJump adds a jump taken when cond holds and returns the corresponding Node
	// so that its target can be assigned.
	CompileJump(cond lir.Cond) Node
	// CompileCallRegister calls the address held in target.
	CompileCallRegister(target lir.RealReg)
	// CompileReturn returns to the caller.
	CompileReturn()
	// CompileBreakpoint adds an instruction which traps if it is ever executed.
	CompileBreakpoint()
	// CompileNop adds a single no-op instruction.
	CompileNop()
	// CompileAlign pads the stream so the next instruction starts at a multiple of boundary.
	CompileAlign(boundary int)
	// LastInstruction returns the kind of the most recently emitted instruction.
	LastInstruction() InstructionKind
	// RegisterName returns the name of r.
	RegisterName(r lir.RealReg) string
}

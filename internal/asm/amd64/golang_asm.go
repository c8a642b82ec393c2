// Package amd64 encodes the asm instruction stream into amd64 machine code with golang-asm.
package amd64

import (
	"fmt"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/internal/asm/golang_asm"
	"github.com/tetratelabs/lirgen/lir"
)

// FramePointer is the base register of asm.BaseFrame addresses.
const FramePointer = RBP

type assemblerGoAsmImpl struct {
	*golang_asm.GolangAsmBaseAssembler
}

var _ asm.Assembler = &assemblerGoAsmImpl{}

// NewAssembler returns an asm.Assembler producing amd64 machine code.
func NewAssembler() (asm.Assembler, error) {
	g, err := golang_asm.NewGolangAsmBaseAssembler("amd64")
	if err != nil {
		return nil, err
	}
	return &assemblerGoAsmImpl{GolangAsmBaseAssembler: g}, nil
}

// RegisterName implements asm.Assembler.RegisterName.
func (a *assemblerGoAsmImpl) RegisterName(r lir.RealReg) string {
	return RegisterName(r)
}

func (a *assemblerGoAsmImpl) addRegisterToRegister(inst obj.As, from, to lir.RealReg) {
	p := a.NewProg()
	p.As = inst
	p.From.Type = obj.TYPE_REG
	p.From.Reg = golangAsmRegister(from)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = golangAsmRegister(to)
	a.AddInstruction(p, asm.InstructionKindOther)
}

func setMemoryOperand(addr *obj.Addr, a asm.Address) {
	addr.Type = obj.TYPE_MEM
	addr.Offset = a.Offset
	switch a.Base {
	case asm.BaseFrame:
		addr.Reg = golangAsmRegister(FramePointer)
	case asm.BaseOutgoingArgs:
		addr.Reg = golangAsmRegister(RSP)
	default:
		panic(fmt.Sprintf("BUG: unknown base %d", a.Base))
	}
}

// CompileLabel implements asm.Assembler.CompileLabel.
func (a *assemblerGoAsmImpl) CompileLabel() asm.Node {
	p := a.NewProg()
	p.As = obj.ANOP
	return a.AddInstruction(p, a.Last)
}

// CompileRegisterMove implements asm.Assembler.CompileRegisterMove.
func (a *assemblerGoAsmImpl) CompileRegisterMove(size asm.Size, src, dst lir.RealReg) {
	inst := obj.As(x86.AMOVQ)
	if size != asm.Size64 && !IsFloatRegister(src) && !IsFloatRegister(dst) {
		inst = x86.AMOVL
	}
	a.addRegisterToRegister(inst, src, dst)
}

// CompileConst implements asm.Assembler.CompileConst.
func (a *assemblerGoAsmImpl) CompileConst(size asm.Size, value int64, dst lir.RealReg) {
	if IsFloatRegister(dst) {
		panic(fmt.Sprintf("BUG: constant into float register %s", RegisterName(dst)))
	}
	p := a.NewProg()
	p.As = x86.AMOVQ
	if size != asm.Size64 {
		p.As = x86.AMOVL
	}
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = value
	p.To.Type = obj.TYPE_REG
	p.To.Reg = golangAsmRegister(dst)
	a.AddInstruction(p, asm.InstructionKindOther)
}

func loadInstruction(size asm.Size, signed, float bool) obj.As {
	switch size {
	case asm.Size8:
		if signed {
			return x86.AMOVBQSX
		}
		return x86.AMOVBQZX
	case asm.Size16:
		if signed {
			return x86.AMOVWQSX
		}
		return x86.AMOVWQZX
	case asm.Size32:
		if signed && !float {
			return x86.AMOVLQSX
		}
		return x86.AMOVL
	case asm.Size64:
		return x86.AMOVQ
	}
	panic(fmt.Sprintf("BUG: invalid size %d", size))
}

// CompileLoad implements asm.Assembler.CompileLoad.
func (a *assemblerGoAsmImpl) CompileLoad(size asm.Size, signed bool, src asm.Address, dst lir.RealReg) {
	p := a.NewProg()
	p.As = loadInstruction(size, signed, IsFloatRegister(dst))
	setMemoryOperand(&p.From, src)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = golangAsmRegister(dst)
	a.AddInstruction(p, asm.InstructionKindOther)
}

// CompileStore implements asm.Assembler.CompileStore.
func (a *assemblerGoAsmImpl) CompileStore(size asm.Size, src lir.RealReg, dst asm.Address) {
	p := a.NewProg()
	switch size {
	case asm.Size8:
		p.As = x86.AMOVB
	case asm.Size16:
		p.As = x86.AMOVW
	case asm.Size32:
		p.As = x86.AMOVL
	default:
		p.As = x86.AMOVQ
	}
	p.From.Type = obj.TYPE_REG
	p.From.Reg = golangAsmRegister(src)
	setMemoryOperand(&p.To, dst)
	a.AddInstruction(p, asm.InstructionKindOther)
}

// CompileExtend implements asm.Assembler.CompileExtend.
func (a *assemblerGoAsmImpl) CompileExtend(size asm.Size, signed bool, src, dst lir.RealReg) {
	a.addRegisterToRegister(loadInstruction(size, signed, false), src, dst)
}

var binaryInstructions = map[asm.BinaryOp][2]obj.As{
	asm.BinaryOpAdd: {x86.AADDL, x86.AADDQ},
	asm.BinaryOpSub: {x86.ASUBL, x86.ASUBQ},
	asm.BinaryOpAnd: {x86.AANDL, x86.AANDQ},
	asm.BinaryOpOr:  {x86.AORL, x86.AORQ},
	asm.BinaryOpXor: {x86.AXORL, x86.AXORQ},
}

// CompileBinary implements asm.Assembler.CompileBinary.
func (a *assemblerGoAsmImpl) CompileBinary(op asm.BinaryOp, size asm.Size, src, dst lir.RealReg) {
	insts, ok := binaryInstructions[op]
	if !ok {
		panic(fmt.Sprintf("BUG: unknown binary op %s", op))
	}
	inst := insts[0]
	if size == asm.Size64 {
		inst = insts[1]
	}
	a.addRegisterToRegister(inst, src, dst)
}

func compareInstruction(size asm.Size) obj.As {
	if size == asm.Size64 {
		return x86.ACMPQ
	}
	return x86.ACMPL
}

// CompileCompare implements asm.Assembler.CompileCompare.
func (a *assemblerGoAsmImpl) CompileCompare(size asm.Size, x, y lir.RealReg) {
	a.addRegisterToRegister(compareInstruction(size), x, y)
}

// CompileCompareConst implements asm.Assembler.CompileCompareConst.
func (a *assemblerGoAsmImpl) CompileCompareConst(size asm.Size, x lir.RealReg, value int64) {
	p := a.NewProg()
	p.As = compareInstruction(size)
	p.From.Type = obj.TYPE_REG
	p.From.Reg = golangAsmRegister(x)
	p.To.Type = obj.TYPE_CONST
	p.To.Offset = value
	a.AddInstruction(p, asm.InstructionKindOther)
}

var jumpInstructions = map[lir.Cond]obj.As{
	lir.CondAlways: obj.AJMP,
	lir.CondEq:     x86.AJEQ,
	lir.CondNe:     x86.AJNE,
	lir.CondLtS:    x86.AJLT,
	lir.CondLeS:    x86.AJLE,
	lir.CondGtS:    x86.AJGT,
	lir.CondGeS:    x86.AJGE,
	lir.CondLtU:    x86.AJCS,
	lir.CondLeU:    x86.AJLS,
	lir.CondGtU:    x86.AJHI,
	lir.CondGeU:    x86.AJCC,
}

// CompileJump implements asm.Assembler.CompileJump.
func (a *assemblerGoAsmImpl) CompileJump(cond lir.Cond) asm.Node {
	inst, ok := jumpInstructions[cond]
	if !ok {
		panic(fmt.Sprintf("BUG: unknown condition %s", cond))
	}
	p := a.NewProg()
	p.As = inst
	p.To.Type = obj.TYPE_BRANCH
	return a.AddInstruction(p, asm.InstructionKindOther)
}

// CompileCallRegister implements asm.Assembler.CompileCallRegister.
func (a *assemblerGoAsmImpl) CompileCallRegister(target lir.RealReg) {
	p := a.NewProg()
	p.As = obj.ACALL
	p.To.Type = obj.TYPE_REG
	p.To.Reg = golangAsmRegister(target)
	a.AddInstruction(p, asm.InstructionKindCall)
}

func (a *assemblerGoAsmImpl) addStandAlone(inst obj.As) {
	p := a.NewProg()
	p.As = inst
	a.AddInstruction(p, asm.InstructionKindOther)
}

// CompileReturn implements asm.Assembler.CompileReturn.
func (a *assemblerGoAsmImpl) CompileReturn() {
	a.addStandAlone(obj.ARET)
}

// CompileBreakpoint implements asm.Assembler.CompileBreakpoint.
func (a *assemblerGoAsmImpl) CompileBreakpoint() {
	a.addStandAlone(obj.AUNDEF)
}

// CompileNop implements asm.Assembler.CompileNop.
func (a *assemblerGoAsmImpl) CompileNop() {
	// obj.ANOP is dropped by the assembler, so emit the single byte NOP directly.
	p := a.NewProg()
	p.As = x86.ABYTE
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = 0x90
	a.AddInstruction(p, asm.InstructionKindOther)
}

// CompileAlign implements asm.Assembler.CompileAlign.
//
// This version of golang-asm has no PCALIGN support on amd64, so the padding is
// left to the loader and only the position is recorded.
func (a *assemblerGoAsmImpl) CompileAlign(int) {
	p := a.NewProg()
	p.As = obj.ANOP
	a.AddInstruction(p, asm.InstructionKindAlign)
}

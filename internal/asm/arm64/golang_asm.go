// Package arm64 encodes the asm instruction stream into arm64 machine code with golang-asm.
package arm64

import (
	"fmt"

	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/arm64"

	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/internal/asm/golang_asm"
	"github.com/tetratelabs/lirgen/lir"
)

type assemblerGoAsmImpl struct {
	*golang_asm.GolangAsmBaseAssembler
}

var _ asm.Assembler = &assemblerGoAsmImpl{}

// NewAssembler returns an asm.Assembler producing arm64 machine code.
func NewAssembler() (asm.Assembler, error) {
	g, err := golang_asm.NewGolangAsmBaseAssembler("arm64")
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
		addr.Reg = golangAsmRegister(FP)
	case asm.BaseOutgoingArgs:
		addr.Reg = arm64.REGSP
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
	switch {
	case IsFloatRegister(src) && size == asm.Size64:
		a.addRegisterToRegister(arm64.AFMOVD, src, dst)
	case IsFloatRegister(src):
		a.addRegisterToRegister(arm64.AFMOVS, src, dst)
	default:
		a.addRegisterToRegister(arm64.AMOVD, src, dst)
	}
}

// CompileConst implements asm.Assembler.CompileConst.
func (a *assemblerGoAsmImpl) CompileConst(_ asm.Size, value int64, dst lir.RealReg) {
	if IsFloatRegister(dst) {
		panic(fmt.Sprintf("BUG: constant into float register %s", RegisterName(dst)))
	}
	p := a.NewProg()
	p.As = arm64.AMOVD
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
			return arm64.AMOVB
		}
		return arm64.AMOVBU
	case asm.Size16:
		if signed {
			return arm64.AMOVH
		}
		return arm64.AMOVHU
	case asm.Size32:
		if float {
			return arm64.AFMOVS
		}
		if signed {
			return arm64.AMOVW
		}
		return arm64.AMOVWU
	case asm.Size64:
		if float {
			return arm64.AFMOVD
		}
		return arm64.AMOVD
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
	float := IsFloatRegister(src)
	switch {
	case size == asm.Size8:
		p.As = arm64.AMOVB
	case size == asm.Size16:
		p.As = arm64.AMOVH
	case size == asm.Size32 && float:
		p.As = arm64.AFMOVS
	case size == asm.Size32:
		p.As = arm64.AMOVW
	case float:
		p.As = arm64.AFMOVD
	default:
		p.As = arm64.AMOVD
	}
	p.From.Type = obj.TYPE_REG
	p.From.Reg = golangAsmRegister(src)
	setMemoryOperand(&p.To, dst)
	a.AddInstruction(p, asm.InstructionKindOther)
}

// CompileExtend implements asm.Assembler.CompileExtend.
func (a *assemblerGoAsmImpl) CompileExtend(size asm.Size, signed bool, src, dst lir.RealReg) {
	var inst obj.As
	switch size {
	case asm.Size8:
		inst = arm64.AMOVBU
		if signed {
			inst = arm64.ASXTB
		}
	case asm.Size16:
		inst = arm64.AMOVHU
		if signed {
			inst = arm64.ASXTH
		}
	case asm.Size32:
		inst = arm64.AUXTW
		if signed {
			inst = arm64.ASXTW
		}
	default:
		inst = arm64.AMOVD
	}
	a.addRegisterToRegister(inst, src, dst)
}

var binaryInstructions = map[asm.BinaryOp][2]obj.As{
	asm.BinaryOpAdd: {arm64.AADDW, arm64.AADD},
	asm.BinaryOpSub: {arm64.ASUBW, arm64.ASUB},
	asm.BinaryOpAnd: {arm64.AANDW, arm64.AAND},
	asm.BinaryOpOr:  {arm64.AORRW, arm64.AORR},
	asm.BinaryOpXor: {arm64.AEORW, arm64.AEOR},
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
		return arm64.ACMP
	}
	return arm64.ACMPW
}

// CompileCompare implements asm.Assembler.CompileCompare.
func (a *assemblerGoAsmImpl) CompileCompare(size asm.Size, x, y lir.RealReg) {
	// CMP y, x sets the flags for x - y.
	p := a.NewProg()
	p.As = compareInstruction(size)
	p.From.Type = obj.TYPE_REG
	p.From.Reg = golangAsmRegister(y)
	p.Reg = golangAsmRegister(x)
	a.AddInstruction(p, asm.InstructionKindOther)
}

// CompileCompareConst implements asm.Assembler.CompileCompareConst.
func (a *assemblerGoAsmImpl) CompileCompareConst(size asm.Size, x lir.RealReg, value int64) {
	p := a.NewProg()
	p.As = compareInstruction(size)
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = value
	p.Reg = golangAsmRegister(x)
	a.AddInstruction(p, asm.InstructionKindOther)
}

var jumpInstructions = map[lir.Cond]obj.As{
	lir.CondAlways: arm64.AB,
	lir.CondEq:     arm64.ABEQ,
	lir.CondNe:     arm64.ABNE,
	lir.CondLtS:    arm64.ABLT,
	lir.CondLeS:    arm64.ABLE,
	lir.CondGtS:    arm64.ABGT,
	lir.CondGeS:    arm64.ABGE,
	lir.CondLtU:    arm64.ABLO,
	lir.CondLeU:    arm64.ABLS,
	lir.CondGtU:    arm64.ABHI,
	lir.CondGeU:    arm64.ABHS,
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
	a.addStandAlone(arm64.ANOOP)
}

// CompileAlign implements asm.Assembler.CompileAlign.
func (a *assemblerGoAsmImpl) CompileAlign(boundary int) {
	p := a.NewProg()
	p.As = obj.APCALIGN
	p.From.Type = obj.TYPE_CONST
	p.From.Offset = int64(boundary)
	a.AddInstruction(p, asm.InstructionKindAlign)
}

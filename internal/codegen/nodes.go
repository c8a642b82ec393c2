package codegen

import (
	"math"

	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/lir"
)

var binaryOps = map[lir.Op]asm.BinaryOp{
	lir.OpAdd: asm.BinaryOpAdd,
	lir.OpSub: asm.BinaryOpSub,
	lir.OpAnd: asm.BinaryOpAnd,
	lir.OpOr:  asm.BinaryOpOr,
	lir.OpXor: asm.BinaryOpXor,
}

func (g *Generator) genCodeForNode(n *lir.Node) {
	switch n.Op {
	case lir.OpNop:
	case lir.OpConst:
		g.asm.CompileConst(asm.SizeOf(n.Type), n.Imm, n.Reg())
		g.ProduceReg(n)
	case lir.OpLocalVar:
		g.genCodeForLocalVar(n)
	case lir.OpStoreLocal:
		g.genCodeForStoreLocal(n)
	case lir.OpAdd, lir.OpSub, lir.OpAnd, lir.OpOr, lir.OpXor:
		g.genCodeForBinary(n)
	case lir.OpCast:
		g.genCodeForCast(n)
	case lir.OpJcc:
		g.genCodeForJcc(n)
	case lir.OpSwitch:
		g.genCodeForSwitch(n)
	case lir.OpCall:
		g.genCodeForCall(n)
	case lir.OpPutArgStack:
		g.genCodeForPutArgStack(n)
	case lir.OpReturn:
		g.genCodeForReturn(n)
	case lir.OpCatchArg:
		g.genCodeForCatchArg(n)
	case lir.OpCustom:
		if g.opts.NodeEmitter == nil {
			g.fail(ErrKindMalformedInput, "no emitter for %s", n)
		}
		g.opts.NodeEmitter.EmitNode(g, n)
	default:
		g.fail(ErrKindMalformedInput, "unexpected node %s", n)
	}
}

func (g *Generator) genCodeForLocalVar(n *lir.Node) {
	l := g.local(n.Local)
	if l.RegCandidate || !n.HasReg() {
		// Read where the local lives by the user.
		return
	}
	g.asm.CompileLoad(homeSize(l.Type), !l.Type.IsUnsigned(), g.homeAddress(l), n.Reg())
	g.ProduceReg(n)
}

func (g *Generator) genCodeForStoreLocal(n *lir.Node) {
	l := g.local(n.Local)
	if len(n.Operands) != 1 {
		g.fail(ErrKindMalformedInput, "%s has %d operands", n, len(n.Operands))
	}
	op := n.Operands[0]

	if g.isMultiRegLocal(n) {
		g.ConsumeReg(op)
		for i, fv := range l.Fields {
			f := g.local(fv)
			src, dst := op.RegAt(i), n.RegAt(i)
			if dst == lir.RealRegInvalid {
				g.asm.CompileStore(homeSize(f.Type), src, g.homeAddress(f))
				continue
			}
			g.moveReg(f.Type, src, dst)
			g.setLocalReg(f, dst)
		}
		g.ProduceReg(n)
		return
	}

	src := g.ConsumeReg(op)
	if l.RegCandidate && n.HasReg() {
		g.moveReg(l.Type, src, n.Reg())
		g.setLocalReg(l, n.Reg())
	} else {
		g.asm.CompileStore(homeSize(l.Type), src, g.homeAddress(l))
	}
	g.ProduceReg(n)
}

// setLocalReg makes r the register of l for a definition. The previous register no
// longer holds l.
func (g *Generator) setLocalReg(l *lir.LocalVar, r lir.RealReg) {
	if l.InReg() && l.Reg != r && g.varRegs.Has(l.Reg) {
		g.freeLocalReg(l)
	}
	l.Reg = r
}

func (g *Generator) genCodeForBinary(n *lir.Node) {
	if len(n.Operands) != 2 {
		g.fail(ErrKindMalformedInput, "%s has %d operands", n, len(n.Operands))
	}
	op := binaryOps[n.Op]
	x := g.ConsumeReg(n.Operands[0])
	y := g.ConsumeReg(n.Operands[1])
	dst := n.Reg()
	size := asm.SizeOf(n.Type)

	if y == dst && x != dst {
		if op == asm.BinaryOpSub {
			g.fail(ErrKindConsistency, "%s subtracts its destination register", n)
		}
		x, y = y, x
	}
	g.moveReg(n.Type, x, dst)
	g.asm.CompileBinary(op, size, y, dst)
	g.ProduceReg(n)
}

// compareConst compares x with value, materializing value in the node's temporary
// register when it cannot be an immediate.
func (g *Generator) compareConst(n *lir.Node, size asm.Size, x lir.RealReg, value int64) {
	if value >= math.MinInt32 && value <= math.MaxInt32 {
		g.asm.CompileCompareConst(size, x, value)
		return
	}
	if len(n.TempRegs) == 0 {
		g.fail(ErrKindMalformedInput, "%s needs a temporary register to compare with %d", n, value)
	}
	tmp := n.TempRegs[0]
	g.asm.CompileConst(size, value, tmp)
	g.asm.CompileCompare(size, x, tmp)
}

func (g *Generator) genCodeForJcc(n *lir.Node) {
	b := g.curBlock
	if b.Kind != lir.BlockCond || b.LastNode() != n {
		g.fail(ErrKindMalformedInput, "%s does not end a %s block", n, lir.BlockCond)
	}
	var size asm.Size
	switch len(n.Operands) {
	case 1:
		size = asm.SizeOf(n.Operands[0].Node.Type)
		x := g.ConsumeReg(n.Operands[0])
		g.compareConst(n, size, x, n.Imm)
	case 2:
		size = asm.SizeOf(n.Operands[0].Node.Type)
		x := g.ConsumeReg(n.Operands[0])
		y := g.ConsumeReg(n.Operands[1])
		g.asm.CompileCompare(size, x, y)
	default:
		g.fail(ErrKindMalformedInput, "%s has %d operands", n, len(n.Operands))
	}
	g.jumpTo(g.asm.CompileJump(n.Cond), b.Target)
}

func (g *Generator) genCodeForSwitch(n *lir.Node) {
	b := g.curBlock
	if b.Kind != lir.BlockSwitch || b.LastNode() != n {
		g.fail(ErrKindMalformedInput, "%s does not end a %s block", n, lir.BlockSwitch)
	}
	if len(n.Operands) != 1 {
		g.fail(ErrKindMalformedInput, "%s has %d operands", n, len(n.Operands))
	}
	size := asm.SizeOf(n.Operands[0].Node.Type)
	x := g.ConsumeReg(n.Operands[0])
	for i, target := range b.SwitchTargets {
		g.asm.CompileCompareConst(size, x, int64(i))
		g.jumpTo(g.asm.CompileJump(lir.CondEq), target)
	}
}

func (g *Generator) genCodeForCall(n *lir.Node) {
	if len(n.Operands) == 0 {
		g.fail(ErrKindMalformedInput, "%s has no call target", n)
	}
	target := g.ConsumeReg(n.Operands[0])
	for _, arg := range n.Operands[1:] {
		g.ConsumeRegs(arg)
	}
	g.asm.CompileCallRegister(target)
	g.killCallerSaved(n)

	if n.StackArgBytes > 0 {
		g.stackLevel -= n.StackArgBytes
		if g.stackLevel < 0 {
			g.fail(ErrKindConsistency, "%s pops %d bytes of stack arguments which were never stored", n, n.StackArgBytes)
		}
	}
	if n.HasReg() {
		g.ProduceReg(n)
	}
}

// killCallerSaved ends the residency of every register the callee may overwrite.
func (g *Generator) killCallerSaved(call *lir.Node) {
	trashed := g.regs.CallerSaved
	if g.opts.Validation {
		g.res.regs().Intersect(trashed).Range(func(r lir.RealReg) {
			g.fail(ErrKindConsistency, "%s holds %s across the call %s", g.regName(r), g.res.owner(r), call)
		})
	}
	trashed.Range(func(r lir.RealReg) {
		g.res.clear(r)
	})
	g.gc.MarkRegSetNpt(trashed)
	g.varRegs = g.varRegs.Minus(trashed)
}

func (g *Generator) genCodeForPutArgStack(n *lir.Node) {
	if len(n.Operands) != 1 {
		g.fail(ErrKindMalformedInput, "%s has %d operands", n, len(n.Operands))
	}
	v := n.Operands[0].Node
	src := g.ConsumeReg(n.Operands[0])
	g.asm.CompileStore(asm.SizeOf(v.Type), src, asm.Address{Base: asm.BaseOutgoingArgs, Offset: n.Imm})
	g.stackLevel += lir.PointerSize
}

func (g *Generator) genCodeForReturn(n *lir.Node) {
	if g.curBlock.Kind != lir.BlockReturn {
		g.fail(ErrKindMalformedInput, "%s in a %s block", n, g.curBlock.Kind)
	}
	if len(n.Operands) == 0 {
		return
	}
	op := n.Operands[0]
	v := op.Node

	switch {
	case g.m.HasRetBuf:
		src := g.ConsumeReg(op)
		dst := g.regs.RetBufReturn
		g.moveReg(lir.TypeByref, src, dst)
		g.bind(dst, valueOwner(n, 0), lir.TypeByref)
	case g.m.ReturnsStruct:
		g.ConsumeReg(op)
		dsts := [2]lir.RealReg{g.regs.IntReturn, g.regs.SecondIntReturn}
		count := g.regCount(v)
		if count > len(dsts) {
			g.fail(ErrKindMalformedInput, "%s returns %d registers", n, count)
		}
		if count == 2 && op.RegAt(1) == dsts[0] {
			g.fail(ErrKindConsistency, "%s returns its second register in %s", n, g.regName(dsts[0]))
		}
		for i := 0; i < count; i++ {
			typ := g.regTypeAt(v, i)
			g.moveReg(typ, op.RegAt(i), dsts[i])
			g.bind(dsts[i], valueOwner(n, i), typ)
		}
	default:
		src := g.ConsumeReg(op)
		dst := g.regs.ReturnReg(v.Type)
		g.moveReg(v.Type, src, dst)
		g.bind(dst, valueOwner(n, 0), v.Type)
	}
}

func (g *Generator) genCodeForCatchArg(n *lir.Node) {
	if !g.curBlock.HasFlag(lir.BlockHandlerEntry) {
		g.fail(ErrKindMalformedInput, "%s outside of a handler entry", n)
	}
	exc := g.regs.ExceptionObject
	if !n.HasReg() {
		g.freeReg(exc)
		return
	}
	if dst := n.Reg(); dst != exc {
		g.checkClobber(dst, nil)
		g.moveReg(lir.TypeRef, exc, dst)
		g.TransferRegGCState(dst, exc)
		g.freeReg(exc)
	}
	g.ProduceReg(n)
}

package codegen

import (
	"math"

	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/internal/intcast"
	"github.com/tetratelabs/lirgen/lir"
)

// castDesc describes the conversion n performs for intcast.NewPlan.
func (g *Generator) castDesc(n *lir.Node) intcast.Desc {
	c := n.Cast
	d := intcast.Desc{
		SrcSize:            c.From.ActualType().Size(),
		SrcUnsigned:        c.From.IsUnsigned(),
		CastSize:           c.To.Size(),
		CastUnsigned:       c.To.IsUnsigned(),
		DstSize:            n.Type.ActualType().Size(),
		Overflow:           c.Overflow,
		SignExtendNarrowed: g.opts.SignExtendNarrowedInts,
	}
	if r := c.SrcRange; r != nil {
		d.SrcRangeKnown, d.SrcMin, d.SrcMax = true, r.Min, r.Max
	}
	if src := n.Operands[0].Node; src.IsContained() && src.Op == lir.OpLocalVar {
		d.SrcIsMemory = true
		d.LoadSize = c.From.Size()
		d.LoadUnsigned = c.From.IsUnsigned()
	}
	return d
}

func (g *Generator) genCodeForCast(n *lir.Node) {
	if len(n.Operands) != 1 {
		g.fail(ErrKindMalformedInput, "%s has %d operands", n, len(n.Operands))
	}
	if !n.Cast.From.IsInt() || !n.Cast.To.IsInt() || !n.Type.IsInt() {
		g.fail(ErrKindMalformedInput, "%s is not an integer conversion from %s to %s", n, n.Cast.From, n.Cast.To)
	}
	op := n.Operands[0]
	dst := n.Reg()
	d := g.castDesc(n)
	if op.Node.IsContained() && !d.SrcIsMemory {
		g.fail(ErrKindMalformedInput, "%s has a contained source which is not a local", n)
	}
	plan := intcast.NewPlan(d)

	var src lir.RealReg
	if d.SrcIsMemory {
		home := g.homeAddress(g.local(op.Node.Local))
		g.ConsumeRegs(op)
		if plan.Check == intcast.CheckNone {
			g.genLoadExtend(plan, d, home, dst)
			g.ProduceReg(n)
			return
		}
		// The check needs the source in a register: load it as it is and extend from there.
		g.asm.CompileLoad(asm.Size(d.LoadSize), !d.LoadUnsigned, home, dst)
		d.SrcIsMemory = false
		plan = intcast.NewPlan(d)
		src = dst
	} else {
		src = g.ConsumeReg(op)
	}

	g.genCastCheck(n, plan, src)
	g.genExtend(plan, n.Type, src, dst)
	g.ProduceReg(n)
}

// genCastCheck branches to the overflow trap if src does not fit the cast.
func (g *Generator) genCastCheck(n *lir.Node, plan intcast.Plan, src lir.RealReg) {
	size := asm.Size(plan.CheckSrcSize)
	switch plan.Check {
	case intcast.CheckNone:
	case intcast.CheckPositive:
		g.asm.CompileCompareConst(size, src, 0)
		g.overflowIf(lir.CondLtS)
	case intcast.CheckUintRange:
		g.compareConst(n, asm.Size64, src, math.MaxUint32)
		g.overflowIf(lir.CondGtU)
	case intcast.CheckPositiveIntRange:
		g.asm.CompileCompareConst(asm.Size64, src, math.MaxInt32)
		g.overflowIf(lir.CondGtU)
	case intcast.CheckIntRange:
		g.asm.CompileCompareConst(asm.Size64, src, math.MinInt32)
		g.overflowIf(lir.CondLtS)
		g.asm.CompileCompareConst(asm.Size64, src, math.MaxInt32)
		g.overflowIf(lir.CondGtS)
	case intcast.CheckSmallIntRange:
		if plan.CheckMin == 0 {
			// A single unsigned comparison also catches the negative values.
			g.asm.CompileCompareConst(size, src, plan.CheckMax)
			g.overflowIf(lir.CondGtU)
			return
		}
		g.asm.CompileCompareConst(size, src, plan.CheckMax)
		g.overflowIf(lir.CondGtS)
		g.asm.CompileCompareConst(size, src, plan.CheckMin)
		g.overflowIf(lir.CondLtS)
	default:
		g.fail(ErrKindConsistency, "unexpected cast check %s", plan.Check)
	}
}

func (g *Generator) overflowIf(cond lir.Cond) {
	g.overflowJumps = append(g.overflowJumps, g.asm.CompileJump(cond))
}

// genExtend produces the result of the cast in dst from src.
func (g *Generator) genExtend(plan intcast.Plan, typ lir.Type, src, dst lir.RealReg) {
	switch plan.Extend {
	case intcast.ExtendCopy:
		if plan.ExtendSrcSize == 8 {
			typ = lir.TypeI64
		} else if plan.ExtendSrcSize == 4 {
			typ = lir.TypeI32
		}
		g.moveReg(typ, src, dst)
	case intcast.ExtendZeroSmallInt:
		g.asm.CompileExtend(asm.Size(plan.ExtendSrcSize), false, src, dst)
	case intcast.ExtendSignSmallInt:
		g.asm.CompileExtend(asm.Size(plan.ExtendSrcSize), true, src, dst)
	case intcast.ExtendZeroInt:
		g.asm.CompileExtend(asm.Size32, false, src, dst)
	case intcast.ExtendSignInt:
		g.asm.CompileExtend(asm.Size32, true, src, dst)
	default:
		g.fail(ErrKindConsistency, "unexpected register extension %s", plan.Extend)
	}
}

// genLoadExtend produces the result of the cast in dst by loading the source from home.
func (g *Generator) genLoadExtend(plan intcast.Plan, d intcast.Desc, home asm.Address, dst lir.RealReg) {
	switch plan.Extend {
	case intcast.ExtendLoadZeroSmallInt:
		g.asm.CompileLoad(asm.Size(plan.ExtendSrcSize), false, home, dst)
	case intcast.ExtendLoadSignSmallInt:
		g.asm.CompileLoad(asm.Size(plan.ExtendSrcSize), true, home, dst)
	case intcast.ExtendLoadZeroInt:
		g.asm.CompileLoad(asm.Size32, false, home, dst)
	case intcast.ExtendLoadSignInt:
		g.asm.CompileLoad(asm.Size32, true, home, dst)
	case intcast.ExtendLoadSource:
		// A same-width copy becomes a load at the destination width.
		g.asm.CompileLoad(asm.Size(min(d.LoadSize, d.DstSize)), !d.LoadUnsigned, home, dst)
	default:
		g.fail(ErrKindConsistency, "unexpected load extension %s", plan.Extend)
	}
}

package codegen

import (
	"math/bits"
	"strings"

	"github.com/tetratelabs/lirgen/lir"
)

// numberOperandUses numbers the operands of the nodes of b in the order they must be
// consumed. Operands of contained nodes are numbered in place of the contained node.
func (g *Generator) numberOperandUses(b *lir.Block) {
	next := 0
	for _, n := range b.Nodes {
		if n.IsContained() {
			continue
		}
		for _, op := range n.Operands {
			next = g.numberOperandUse(op, next)
		}
	}
	g.lastConsumed = nil
}

func (g *Generator) numberOperandUse(op lir.Operand, next int) int {
	n := op.Node
	if n == nil {
		g.fail(ErrKindMalformedInput, "operand without a node")
	}
	if n.IsContained() && op.Kind == lir.OperandDirect {
		for _, o := range n.Operands {
			next = g.numberOperandUse(o, next)
		}
		return next
	}
	s := g.state(n)
	if s.useNum != -1 && !s.kept {
		g.fail(ErrKindConsistency, "%s is an operand of more than one node", n)
	}
	s.useNum = next
	s.kept = op.Kind == lir.OperandReload && op.ReSpill
	return next + 1
}

// checkConsume verifies that the value op reads is consumed once, in operand order.
func (g *Generator) checkConsume(op lir.Operand) {
	if !g.opts.Validation {
		return
	}
	if op.Kind == lir.OperandReload && op.ReSpill {
		// Read from its spill temp, where it stays for a later use.
		return
	}
	n := op.Node
	s := g.state(n)
	if s.consumed {
		g.fail(ErrKindConsistency, "%s is consumed twice", n)
	}
	if s.consumedRegs != 0 {
		g.fail(ErrKindConsistency, "%s is consumed whole after some of its registers", n)
	}
	g.checkUseOrder(n, s)
	s.consumed = true
}

// checkConsumeAt verifies that the i-th register of the value op reads is consumed
// once. The first register consumed is checked against the operand order.
func (g *Generator) checkConsumeAt(op lir.Operand, i int) {
	if !g.opts.Validation {
		return
	}
	n := op.Node
	if i < 0 || i >= n.RegCount() {
		g.fail(ErrKindConsistency, "%s has no register %d", n, i)
	}
	s := g.state(n)
	if s.consumed {
		g.fail(ErrKindConsistency, "%s is consumed twice", n)
	}
	bit := uint64(1) << uint(i)
	if s.consumedRegs&bit != 0 {
		g.fail(ErrKindConsistency, "register %d of %s is consumed twice", i, n)
	}
	if s.consumedRegs == 0 {
		g.checkUseOrder(n, s)
	}
	s.consumedRegs |= bit
	if bits.OnesCount64(s.consumedRegs) == n.RegCount() {
		s.consumed = true
	}
}

func (g *Generator) checkUseOrder(n *lir.Node, s *nodeState) {
	if g.lastConsumed != nil && s.useNum != -1 {
		if last := g.state(g.lastConsumed); s.useNum < last.useNum {
			g.fail(ErrKindConsistency, "%s is consumed after %s which is a later operand", n, g.lastConsumed)
		}
	}
	g.lastConsumed = n
}

// excusedRegs returns the registers which may legitimately hold GC pointers at the end
// of b without a live local in them: the return registers, the async continuation and,
// before a tail jump, the argument registers.
func (g *Generator) excusedRegs(b *lir.Block) lir.RegSet {
	ex := g.regs.ReturnRegs(g.m)
	if g.m.IsAsync {
		ex = ex.Add(g.regs.AsyncContinuation)
	}
	if b.HasFlag(lir.BlockHasJmp) {
		ex = ex.Union(g.regs.IntArgRegs)
	}
	return ex
}

// verifyBlockEnd checks that the state at the end of b agrees with what the allocator
// and liveness computed for the block boundary.
func (g *Generator) verifyBlockEnd(b *lir.Block) {
	excused := g.excusedRegs(b)

	if nonVarPtrRegs := g.gc.PtrRegs().Minus(g.varRegs).Minus(excused); !nonVarPtrRegs.Empty() {
		g.fail(ErrKindConsistency, "%s hold GC pointers at the end of the block but no live local",
			nonVarPtrRegs.Format(g.regName))
	}

	var expected lir.RegSet
	b.LiveOut.Range(func(i lir.TrackedIndex) {
		if l := g.trackedLocal(i); l.InReg() && l.Type.IsGC() {
			expected = expected.Add(l.Reg)
		}
	})
	if actual := g.gc.PtrRegs().Minus(excused); actual != expected.Minus(excused) {
		g.fail(ErrKindConsistency, "GC registers at the end of the block are %s, the live out locals are in %s",
			actual.Format(g.regName), expected.Minus(excused).Format(g.regName))
	}

	extra := g.curLife.Clone()
	extra.MinusWith(&b.LiveOut)
	missing := b.LiveOut.Clone()
	missing.MinusWith(&g.curLife)
	var bad []string
	report := func(prefix string) func(i lir.TrackedIndex) {
		return func(i lir.TrackedIndex) {
			if l := g.trackedLocal(i); l.RegCandidate {
				bad = append(bad, prefix+l.Num.String())
			}
		}
	}
	extra.Range(report("+"))
	missing.Range(report("-"))
	if len(bad) > 0 {
		g.fail(ErrKindConsistency, "live locals at the end of the block differ from the live out set: %s",
			strings.Join(bad, " "))
	}

	g.res.regs().Minus(excused).Range(func(r lir.RealReg) {
		if o := g.res.owner(r); o.local == nil || !g.varRegs.Has(r) {
			g.fail(ErrKindConsistency, "%s still holds %s at the end of the block", g.regName(r), o)
		}
	})
}

// verifyMethodEnd checks that every spill temp was released and every produced value consumed.
func (g *Generator) verifyMethodEnd() {
	if leased := g.temps.Leased(); len(leased) > 0 {
		var names []string
		for _, t := range leased {
			names = append(names, t.String())
		}
		g.fail(ErrKindResource, "spill temps still leased at the end of the method: %s", strings.Join(names, " "))
	}
	for i := 0; i < g.arena.len(); i++ {
		s := g.arena.at(i)
		n := s.node
		if !s.produced || s.consumed || s.consumedRegs != 0 || !n.HasReg() || n.Op.IsLocal() {
			continue
		}
		g.fail(ErrKindConsistency, "%s is produced but never consumed", n)
	}
}

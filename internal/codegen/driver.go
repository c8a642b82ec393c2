package codegen

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/lir"
)

// markLabelsForCodegen flags every block some code jumps to with lir.BlockHasLabel,
// together with the first block, the handler entries and the first cold block.
func (g *Generator) markLabelsForCodegen() {
	blocks := g.m.Blocks
	if len(blocks) == 0 {
		return
	}
	mark := func(id lir.BlockID) {
		i, ok := g.blockIndex[id]
		if !ok {
			g.fail(ErrKindMalformedInput, "jump to unknown block %s", id)
		}
		blocks[i].Flags |= lir.BlockHasLabel
	}

	blocks[0].Flags |= lir.BlockHasLabel
	for i, b := range blocks {
		var next *lir.Block
		if i+1 < len(blocks) {
			next = blocks[i+1]
		}
		switch b.Kind {
		case lir.BlockAlways:
			if !g.target.ElideFallthroughJump(b, b.Target, next) {
				mark(b.Target)
			}
		case lir.BlockCond:
			mark(b.Target)
			if !g.target.ElideFallthroughJump(b, b.FalseTarget, next) {
				mark(b.FalseTarget)
			}
		case lir.BlockSwitch:
			for _, t := range b.SwitchTargets {
				mark(t)
			}
			if !g.target.ElideFallthroughJump(b, b.Target, next) {
				mark(b.Target)
			}
		}
		if b.HasFlag(lir.BlockHandlerEntry) {
			b.Flags |= lir.BlockHasLabel
		}
	}
	if g.firstCold >= 0 {
		blocks[g.firstCold].Flags |= lir.BlockHasLabel
	}
}

// GenerateBlock generates the code of b, which must be the next block in layout order.
//
// The register and GC state is re-derived from b's live-in set and the allocator's
// placement of locals at b's entry, never carried over from the previous block.
func (g *Generator) GenerateBlock(b *lir.Block) {
	idx, ok := g.blockIndex[b.ID]
	if !ok || g.m.Blocks[idx] != b {
		g.fail(ErrKindMalformedInput, "%s is not a block of the method", b.ID)
	}
	g.curBlock = b
	g.tracef("Generating %s", b.ID)

	g.startBlock(b)

	needLabel := b.HasFlag(lir.BlockHasLabel)
	if idx == g.firstCold {
		needLabel = true
	}
	if idx > 0 {
		if prev := g.m.Blocks[idx-1]; prev.Kind == lir.BlockCond && prev.Weight != b.Weight {
			g.tracef("Adding label due to weight difference")
			needLabel = true
		}
	}
	if g.asm.LastInstruction() == asm.InstructionKindAlign {
		g.tracef("Adding label due to alignment")
		needLabel = true
	}
	if needLabel {
		g.addLabel(b)
	}

	if g.stackLevel != 0 {
		g.fail(ErrKindConsistency, "stack level is %d at the start of the block", g.stackLevel)
	}

	if g.opts.Validation {
		g.numberOperandUses(b)
	}

	for _, n := range b.Nodes {
		if !n.IsContained() {
			g.genCodeForNode(n)
		}
		if n.HasReg() && n.IsUnusedValue() {
			g.ConsumeReg(lir.Direct(n))
		}
	}

	if g.opts.Validation {
		g.verifyBlockEnd(b)
	}
	if g.stackLevel != 0 {
		g.fail(ErrKindConsistency, "stack level is %d at the end of the block", g.stackLevel)
	}

	var next *lir.Block
	if idx+1 < len(g.m.Blocks) {
		next = g.m.Blocks[idx+1]
	}
	g.genBlockEnd(b, next)

	if PrintBlockListing {
		if l, ok := g.asm.(interface{ Listing() string }); ok {
			fmt.Printf("%s:\n%s", b.ID, l.Listing())
		}
	}
	g.curBlock = nil
}

// startBlock derives the state at the entry of b.
func (g *Generator) startBlock(b *lir.Block) {
	g.res.reset()
	g.gc.MarkRegSetNpt(g.gc.PtrRegs())
	g.varRegs = 0

	if b.VarRegsAtEntry != nil {
		b.LiveIn.Range(func(i lir.TrackedIndex) {
			if l := g.trackedLocal(i); l.RegCandidate {
				l.Reg = b.VarRegsAtEntry[l.Num]
			}
		})
	}

	before := g.gc.StackVars().Clone()
	g.updateLifeTo(&b.LiveIn)
	b.LiveIn.Range(func(i lir.TrackedIndex) {
		l := g.trackedLocal(i)
		if l.InReg() {
			g.bindLocalReg(l)
			if l.GCTrackedOnStack() && !l.AlwaysAliveInMemory() {
				g.gc.MarkStackSlotDead(i)
			}
		}
		if (!l.InReg() || l.AlwaysAliveInMemory()) && l.GCTrackedOnStack() {
			g.gc.MarkStackSlotLive(i)
		}
	})
	if g.opts.Trace != nil || LoggingEnabled {
		after := g.gc.StackVars().Clone()
		added, removed := after.Clone(), before.Clone()
		added.MinusWith(&before)
		removed.MinusWith(&after)
		if !added.IsEmpty() {
			g.tracef("Added GCVars: %s", g.varNames(&added))
		}
		if !removed.IsEmpty() {
			g.tracef("Removed GCVars: %s", g.varNames(&removed))
		}
	}

	if b.HasFlag(lir.BlockHandlerEntry) {
		// The exception object is handed over in a fixed register.
		for _, n := range b.Nodes {
			if n.Op == lir.OpCatchArg {
				g.bind(g.regs.ExceptionObject, valueOwner(n, 0), lir.TypeRef)
				break
			}
		}
	}
}

func (g *Generator) varNames(s *lir.VarSet) string {
	var names []string
	s.Range(func(i lir.TrackedIndex) {
		names = append(names, g.trackedLocal(i).Num.String())
	})
	return strings.Join(names, " ")
}

func (g *Generator) addLabel(b *lir.Block) {
	label := g.asm.CompileLabel()
	g.blockLabels[b.ID] = label
	for _, j := range g.pendingJumps[b.ID] {
		j.AssignJumpTarget(label)
	}
	delete(g.pendingJumps, b.ID)

	snapshot := g.gc.Snapshot()
	g.labels = append(g.labels, Label{Block: b.ID, Node: label, GC: snapshot})
	if PrintGCLabels {
		fmt.Printf("%s: %s\n", b.ID, snapshot.String())
	}
}

// jumpTo makes j branch to the label of target, now or once target is generated.
func (g *Generator) jumpTo(j asm.Node, target lir.BlockID) {
	if label, ok := g.blockLabels[target]; ok {
		j.AssignJumpTarget(label)
		return
	}
	g.pendingJumps[target] = append(g.pendingJumps[target], j)
}

// genBlockEnd emits the transfer of control at the end of b.
func (g *Generator) genBlockEnd(b *lir.Block, next *lir.Block) {
	last := b.LastNode()
	lastIsNoReturnCall := last != nil && last.Op == lir.OpCall && last.Flags.Has(lir.FlagNoReturn)

	// Unwinding attributes a return address which is the first instruction of the next
	// region to that region, so a call must not be the last instruction before it.
	nopBeforeRegion := g.target.NeedsNopAfterCallBeforeRegionChange() &&
		g.asm.LastInstruction() == asm.InstructionKindCall &&
		(next == nil || next.Region != b.Region)

	switch b.Kind {
	case lir.BlockReturn:
		g.target.EmitReturnSequence(g.asm)
	case lir.BlockThrow:
		switch {
		case next == nil, next.Region != b.Region, next.HasFlag(lir.BlockHandlerEntry), next.Cold && !b.Cold:
			g.target.EmitNoReturnGuard(g.asm)
		case lastIsNoReturnCall:
			g.target.EmitNoReturnGuard(g.asm)
		}
	case lir.BlockAlways:
		if lastIsNoReturnCall {
			g.fail(ErrKindMalformedInput, "%s ends with a call which never returns", b.Kind)
		}
		if g.target.ElideFallthroughJump(b, b.Target, next) {
			if nopBeforeRegion {
				g.asm.CompileNop()
			}
			break
		}
		g.jumpTo(g.asm.CompileJump(lir.CondAlways), b.Target)
	case lir.BlockCond:
		if last == nil || last.Op != lir.OpJcc {
			g.fail(ErrKindMalformedInput, "%s block does not end with %s", b.Kind, lir.OpJcc)
		}
		if !g.target.ElideFallthroughJump(b, b.FalseTarget, next) {
			g.jumpTo(g.asm.CompileJump(lir.CondAlways), b.FalseTarget)
		}
	case lir.BlockSwitch:
		if last == nil || last.Op != lir.OpSwitch {
			g.fail(ErrKindMalformedInput, "%s block does not end with %s", b.Kind, lir.OpSwitch)
		}
		if !g.target.ElideFallthroughJump(b, b.Target, next) {
			g.jumpTo(g.asm.CompileJump(lir.CondAlways), b.Target)
		}
	default:
		g.fail(ErrKindMalformedInput, "unexpected block kind %s", b.Kind)
	}

	if b.HasFlag(lir.BlockAlignTail) {
		g.asm.CompileAlign(g.target.BlockAlignment())
	}
}

// FinishMethod completes the method: nothing stays live past its end, the overflow
// trap shared by every checked cast is emitted and every jump must have found its label.
func (g *Generator) FinishMethod() {
	var empty lir.VarSet
	g.updateLifeTo(&empty)
	g.res.reset()
	g.gc.MarkRegSetNpt(g.gc.PtrRegs())
	g.varRegs = 0

	if len(g.overflowJumps) > 0 {
		// The trap needs no label: nothing is live there.
		g.asm.SetJumpTargetOnNext(g.overflowJumps...)
		g.target.EmitNoReturnGuard(g.asm)
	}

	if len(g.pendingJumps) > 0 {
		var targets []string
		for _, b := range g.m.Blocks {
			if _, ok := g.pendingJumps[b.ID]; ok {
				targets = append(targets, b.ID.String())
			}
		}
		g.fail(ErrKindConsistency, "jumps to %s were never resolved", strings.Join(targets, " "))
	}

	if g.opts.Validation {
		g.verifyMethodEnd()
	}
}

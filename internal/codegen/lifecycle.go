package codegen

import (
	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/lir"
)

// bind makes r hold o, a value of type typ. Every resident register is rooted
// according to the type of the value it holds.
func (g *Generator) bind(r lir.RealReg, o owner, typ lir.Type) {
	if r == lir.RealRegInvalid {
		g.fail(ErrKindConsistency, "%s has no register to be held in", o)
	}
	if g.opts.Validation {
		if cur := g.res.owner(r); cur.valid() && cur != o {
			g.fail(ErrKindConsistency, "%s holds %s and cannot also hold %s", g.regName(r), cur, o)
		}
	}
	g.res.set(r, o)
	g.gc.MarkRegPtrVal(r, typ)
}

// freeReg ends the residency of whatever r holds.
func (g *Generator) freeReg(r lir.RealReg) {
	if r == lir.RealRegInvalid {
		return
	}
	g.res.clear(r)
	g.gc.MarkRegSetNpt(lir.NewRegSet(r))
}

func (g *Generator) bindLocalReg(l *lir.LocalVar) {
	g.bind(l.Reg, localOwner(l), l.Type)
	g.varRegs = g.varRegs.Add(l.Reg)
}

func (g *Generator) freeLocalReg(l *lir.LocalVar) {
	if !l.InReg() {
		return
	}
	g.varRegs = g.varRegs.Remove(l.Reg)
	if g.res.owner(l.Reg).local == l {
		g.freeReg(l.Reg)
	}
}

// checkClobber fails if writing dst would destroy a value other than allowed.
func (g *Generator) checkClobber(dst lir.RealReg, allowed *lir.LocalVar) {
	if !g.opts.Validation {
		return
	}
	if o := g.res.owner(dst); o.valid() && (o.local == nil || o.local != allowed) {
		g.fail(ErrKindConsistency, "writing %s would overwrite %s", g.regName(dst), o)
	}
}

func (g *Generator) moveReg(typ lir.Type, src, dst lir.RealReg) {
	if src == dst {
		return
	}
	g.asm.CompileRegisterMove(asm.SizeOf(typ), src, dst)
}

// regTypeAt returns the type of the value in the i-th register of n.
func (g *Generator) regTypeAt(n *lir.Node, i int) lir.Type {
	if g.isMultiRegLocal(n) {
		return g.local(g.local(n.Local).Fields[i]).Type
	}
	return n.RegType(i)
}

// regCount returns the number of registers n is consumed from.
func (g *Generator) regCount(n *lir.Node) int {
	if g.isMultiRegLocal(n) {
		return len(g.local(n.Local).Fields)
	}
	return n.RegCount()
}

// homeSize is the width of the stack home of a local of type t.
func homeSize(t lir.Type) asm.Size {
	if t.IsSmall() {
		return asm.Size(t.Size())
	}
	return asm.SizeOf(t)
}

// TransferRegGCState gives dst the GC kind and the owner of src, as a register to
// register move of the value does.
func (g *Generator) TransferRegGCState(dst, src lir.RealReg) {
	g.gc.TransferRegGCState(dst, src)
	if o := g.res.owner(src); o.valid() {
		g.res.set(dst, o)
	} else {
		g.res.clear(dst)
	}
}

// ConsumeReg ends the use of the value op reads and returns the register it is read
// from. The value is first reloaded or copied there if op asks for it. A local whose
// last use this is stops being live, and a value which is not a live local stops
// being resident.
func (g *Generator) ConsumeReg(op lir.Operand) lir.RealReg {
	if op.Kind == lir.OperandCopy {
		return g.regCopy(op)
	}
	return g.consume(op)
}

func (g *Generator) consume(op lir.Operand) lir.RealReg {
	n := op.Node
	if g.isRegCandidateLocal(n) {
		// The allocator may read the local from another register than the one it lives in.
		if l := g.local(n.Local); l.InReg() && n.HasReg() && l.Reg != n.Reg() {
			g.checkClobber(n.Reg(), l)
			g.moveReg(l.Type, l.Reg, n.Reg())
		}
	}

	g.UnspillRegIfNeeded(op)
	g.updateLife(n)

	switch {
	case g.isRegCandidateLocal(n):
		// Loaded from the stack just for this use.
		if !g.local(n.Local).InReg() {
			g.freeReg(op.Reg())
		}
	case g.isMultiRegLocal(n):
		for i, fv := range g.local(n.Local).Fields {
			if !g.local(fv).InReg() {
				g.freeReg(op.RegAt(i))
			}
		}
	default:
		for i := 0; i < n.RegCount(); i++ {
			g.freeReg(op.RegAt(i))
		}
	}

	g.checkConsume(op)
	return op.Reg()
}

// ConsumeRegAt ends the use of the i-th register of the multi-register value op reads.
// Each register is consumed once, and the value counts as consumed once all of them are.
func (g *Generator) ConsumeRegAt(op lir.Operand, i int) lir.RealReg {
	g.checkConsumeAt(op, i)
	if op.Kind != lir.OperandCopy {
		return g.consumeAt(op, i)
	}
	n := op.Node
	src := g.consumeAt(lir.Direct(n), i)
	dst := op.RegAt(i)
	if src != dst {
		g.checkClobber(dst, nil)
		g.moveReg(g.regTypeAt(n, i), src, dst)
		g.relocate(op, i, dst)
	}
	return dst
}

func (g *Generator) consumeAt(op lir.Operand, i int) lir.RealReg {
	n := op.Node
	reg := op.RegAt(i)
	g.unspillRegAt(op, i)
	if g.isMultiRegLocal(n) {
		f := g.local(g.local(n.Local).Fields[i])
		g.updateLifeVar(n, f, i, n.Flags.Has(lir.FlagVarDef), n.IsFieldDeath(i), n.RegFlagsAt(i).Has(lir.FlagSpill))
		if !f.InReg() {
			g.freeReg(reg)
		}
		return reg
	}
	g.freeReg(reg)
	return reg
}

// ConsumeRegs consumes the value op reads, or, if the node is contained, every
// value the contained node reads. A contained local read only updates liveness.
func (g *Generator) ConsumeRegs(op lir.Operand) {
	n := op.Node
	switch {
	case n.IsContained() && n.Flags.Has(lir.FlagSpilled):
		// Read straight from its spill temp by the user.
	case n.IsContained() && n.Op == lir.OpLocalVar:
		if l := g.local(n.Local); l.RegCandidate && l.InReg() && !l.IsMultiReg() {
			g.fail(ErrKindConsistency, "contained read of %s which is in %s", l.Num, g.regName(l.Reg))
		}
		g.updateLife(n)
	case n.IsContained():
		for _, o := range n.Operands {
			g.ConsumeRegs(o)
		}
	default:
		g.ConsumeReg(op)
	}
}

// ConsumeOperands consumes every operand of n, in order.
func (g *Generator) ConsumeOperands(n *lir.Node) {
	for _, o := range n.Operands {
		g.ConsumeRegs(o)
	}
}

// regCopy consumes the value op copies and copies it into the registers op names.
// Unless the copy is temporary, a local which is still live afterwards now lives
// in the new register.
func (g *Generator) regCopy(op lir.Operand) lir.RealReg {
	n := op.Node
	g.consume(lir.Direct(n))
	for i := 0; i < g.regCount(n); i++ {
		src, dst := n.RegAt(i), op.RegAt(i)
		if src == dst {
			continue
		}
		g.checkClobber(dst, nil)
		g.moveReg(g.regTypeAt(n, i), src, dst)
		g.relocate(op, i, dst)
	}
	return op.Reg()
}

func (g *Generator) relocate(op lir.Operand, i int, dst lir.RealReg) {
	if op.Temporary {
		return
	}
	n := op.Node
	var l *lir.LocalVar
	switch {
	case g.isRegCandidateLocal(n):
		if n.Flags.Has(lir.FlagVarDeath) {
			return
		}
		l = g.local(n.Local)
	case g.isMultiRegLocal(n):
		if n.IsFieldDeath(i) {
			return
		}
		l = g.local(g.local(n.Local).Fields[i])
	default:
		return
	}
	if !l.InReg() {
		return
	}
	g.tracef("%s moved from %s to %s", l.Num, g.regName(l.Reg), g.regName(dst))
	g.freeLocalReg(l)
	l.Reg = dst
	g.bindLocalReg(l)
}

// CopyRegIfNeeded makes the value of n also available in need, emitting a move only
// if n is held in another register. The copy is not resident: it is a scratch operand
// of the instruction being emitted.
func (g *Generator) CopyRegIfNeeded(n *lir.Node, need lir.RealReg) {
	if n.IsContained() && n.Flags.Has(lir.FlagSpilled) {
		g.fail(ErrKindConsistency, "copying %s which is read from its spill temp", n)
	}
	g.moveReg(n.Type, n.Reg(), need)
}

// ConsumeRegAndCopy consumes the value op reads and copies it into need. It does
// nothing when need is lir.RealRegInvalid.
func (g *Generator) ConsumeRegAndCopy(op lir.Operand, need lir.RealReg) {
	if need == lir.RealRegInvalid {
		return
	}
	r := g.ConsumeReg(op)
	g.moveReg(op.Node.Type, r, need)
}

// ProduceReg completes the definition of the value of n: the value is spilled if the
// allocator asked for it, the liveness of a defined local is updated and the registers
// now holding the value become resident and rooted.
func (g *Generator) ProduceReg(n *lir.Node) {
	if g.opts.Validation {
		s := g.state(n)
		if s.produced {
			g.fail(ErrKindConsistency, "%s is produced twice", n)
		}
		s.produced = true
	}

	if needsSpill(n) {
		switch {
		case g.isRegCandidateLocal(n):
			g.SpillLocal(n.Local, g.local(n.Local).Type, n, n.Reg())
		case g.isMultiRegLocal(n):
			for i, fv := range g.local(n.Local).Fields {
				if n.RegFlagsAt(i).Has(lir.FlagSpill) {
					g.SpillLocal(fv, g.local(fv).Type, n, n.RegAt(i))
				}
			}
		default:
			g.spillValue(n)
			return
		}
	}

	g.updateLife(n)
	if !n.HasReg() {
		return
	}

	switch {
	case g.isRegCandidateLocal(n):
		// Unless the definition is dead or it went to the stack.
		if l := g.local(n.Local); !n.Flags.Has(lir.FlagVarDeath) && l.Reg == n.Reg() {
			g.bindLocalReg(l)
		}
	case g.isMultiRegLocal(n):
		for i, fv := range g.local(n.Local).Fields {
			if f := g.local(fv); !n.IsFieldDeath(i) && f.InReg() && f.Reg == n.RegAt(i) {
				g.bindLocalReg(f)
			}
		}
	default:
		for i := 0; i < n.RegCount(); i++ {
			g.bind(n.RegAt(i), valueOwner(n, i), n.RegType(i))
		}
	}
}

func needsSpill(n *lir.Node) bool {
	if n.Flags.Has(lir.FlagSpill) {
		return true
	}
	for _, f := range n.RegFlags {
		if f.Has(lir.FlagSpill) {
			return true
		}
	}
	return false
}

// spillValue stores every register of n flagged for spilling to a fresh spill temp.
// The other registers of a multi-register value become resident as usual.
func (g *Generator) spillValue(n *lir.Node) {
	if !n.HasReg() {
		g.fail(ErrKindMalformedInput, "%s is spilled but has no register", n)
	}
	for i := 0; i < n.RegCount(); i++ {
		f := n.RegFlagsAt(i)
		typ := n.RegType(i)
		if !f.Has(lir.FlagSpill) {
			g.bind(n.RegAt(i), valueOwner(n, i), typ)
			continue
		}
		tmp := g.temps.Lease(typ)
		if g.temps.AreaSize() > maxTempAreaSize {
			g.fail(ErrKindResource, "spill temp area exceeds %d bytes", maxTempAreaSize)
		}
		addr := g.tempAddress(tmp)
		g.asm.CompileStore(asm.SizeOf(typ), n.RegAt(i), addr)
		g.spills[spillKey{node: n, index: i}] = tmp
		g.gc.MarkTempLive(addr.Offset, typ.GCKind())
		g.tracef("[%06d] spilled from %s to %s", n.ID, g.regName(n.RegAt(i)), tmp)
		n.SetRegFlagsAt(i, f&^lir.FlagSpill|lir.FlagSpilled)
	}
	n.Flags = n.Flags&^lir.FlagSpill | lir.FlagSpilled
}

// SpillLocal stores the local v of type typ, held in r, to its stack home as required
// by n. Uses of a local whose home is always up to date need no store.
func (g *Generator) SpillLocal(v lir.VarNum, typ lir.Type, n *lir.Node, r lir.RealReg) {
	l := g.local(v)
	if n.Flags.Has(lir.FlagVarDef) || !l.AlwaysAliveInMemory() {
		g.asm.CompileStore(homeSize(typ), r, g.homeAddress(l))
	}
}

// SpillVar moves the local n accesses to its stack home, as requested by FlagSpill on n.
// At a use the register is stored, unless the home is already up to date, and released.
// A definition was stored by ProduceReg. If n also carries FlagSpilled, this is a
// write-through definition and the local stays in its register as well.
func (g *Generator) SpillVar(n *lir.Node) {
	g.spillVarAt(n, g.local(n.Local), 0)
}

func (g *Generator) spillVarAt(n *lir.Node, l *lir.LocalVar, i int) {
	if !l.RegCandidate {
		g.fail(ErrKindConsistency, "spilling %s which is not a register candidate", l.Num)
	}
	isDef := n.Flags.Has(lir.FlagVarDef)
	flags := n.RegFlagsAt(i)

	if !isDef && l.InReg() {
		if flags.Has(lir.FlagSpilled) {
			g.fail(ErrKindConsistency, "%s is spilled by a use which reloads it", l.Num)
		}
		if !l.AlwaysAliveInMemory() {
			g.asm.CompileStore(homeSize(l.Type), l.Reg, g.homeAddress(l))
		}
		g.tracef("%s spilled from %s", l.Num, g.regName(l.Reg))
	}

	toStack := !flags.Has(lir.FlagSpilled)
	if toStack {
		// A definition going to the stack leaves nothing in the register.
		g.freeLocalReg(l)
		l.Reg = lir.RealRegInvalid
	} else if !isDef || !l.AlwaysAliveInMemory() {
		g.fail(ErrKindConsistency, "%s stays in its register after a spill but is not written through", l.Num)
	}
	if l.GCTrackedOnStack() && g.curLife.Has(l.TrackedIndex) {
		g.markStackSlotLive(l)
	}
	n.SetRegFlagsAt(i, flags&^lir.FlagSpill)
}

// UnspillRegIfNeeded reloads the value op reads if it was spilled. A local is reloaded
// from its home and lives in the register from now on, unless the use spills it again.
// Any other value is reloaded from its spill temp, which is released unless op keeps
// the value in memory.
func (g *Generator) UnspillRegIfNeeded(op lir.Operand) {
	n := op.Node
	switch {
	case g.isRegCandidateLocal(n):
		if !n.Flags.Has(lir.FlagSpilled) {
			return
		}
		if op.Kind == lir.OperandReload {
			g.fail(ErrKindConsistency, "reload operand of the local read %s", n)
		}
		n.Flags &^= lir.FlagSpilled
		g.unspillLocal(n.Local, g.local(n.Local).Type, n, n.Reg(), n.Flags.Has(lir.FlagSpill))
	case g.isMultiRegLocal(n):
		for i := range g.local(n.Local).Fields {
			g.unspillRegAt(op, i)
		}
		n.Flags &^= lir.FlagSpilled
	default:
		spilled := false
		for i := 0; i < n.RegCount(); i++ {
			g.unspillValue(op, i)
			spilled = spilled || n.RegFlagsAt(i).Has(lir.FlagSpilled)
		}
		if !spilled {
			n.Flags &^= lir.FlagSpilled
		}
	}
}

func (g *Generator) unspillRegAt(op lir.Operand, i int) {
	n := op.Node
	if !g.isMultiRegLocal(n) {
		g.unspillValue(op, i)
		return
	}
	f := n.RegFlagsAt(i)
	if !f.Has(lir.FlagSpilled) {
		return
	}
	fv := g.local(n.Local).Fields[i]
	n.SetRegFlagsAt(i, f&^lir.FlagSpilled)
	g.unspillLocal(fv, g.local(fv).Type, n, n.RegAt(i), f.Has(lir.FlagSpill))
}

func (g *Generator) unspillValue(op lir.Operand, i int) {
	n := op.Node
	f := n.RegFlagsAt(i)
	if !f.Has(lir.FlagSpilled) {
		return
	}
	key := spillKey{node: n, index: i}
	tmp, ok := g.spills[key]
	if !ok {
		g.fail(ErrKindConsistency, "%s has no spill temp for register %d", n, i)
	}
	dst := op.RegAt(i)
	typ := n.RegType(i)
	addr := g.tempAddress(tmp)
	g.asm.CompileLoad(asm.SizeOf(typ), false, addr, dst)
	g.bind(dst, valueOwner(n, i), typ)

	if op.Kind == lir.OperandReload && op.ReSpill {
		g.tracef("[%06d] reloaded into %s, staying in %s", n.ID, g.regName(dst), tmp)
		return
	}
	delete(g.spills, key)
	g.gc.MarkTempDead(addr.Offset)
	g.temps.Release(tmp)
	n.SetRegFlagsAt(i, f&^lir.FlagSpilled)
}

// unspillLocal loads v from its stack home into r. Unless reSpill is set, v lives in
// r from now on and its home is no longer reported if it is not kept up to date.
func (g *Generator) unspillLocal(v lir.VarNum, typ lir.Type, n *lir.Node, r lir.RealReg, reSpill bool) {
	l := g.local(v)
	g.asm.CompileLoad(homeSize(typ), !typ.IsUnsigned(), g.homeAddress(l), r)
	if reSpill {
		g.bind(r, localOwner(l), typ)
		return
	}
	if l.InReg() && l.Reg != r {
		g.freeLocalReg(l)
	}
	l.Reg = r
	if l.GCTrackedOnStack() && !l.AlwaysAliveInMemory() {
		g.markStackSlotDead(l)
	}
	g.tracef("%s reloaded into %s at [%06d]", l.Num, g.regName(r), n.ID)
	g.bindLocalReg(l)
}

// updateLife applies the effect of the local access n on the live set, the registers
// holding locals and the stack homes reported to the GC.
func (g *Generator) updateLife(n *lir.Node) {
	if !n.Op.IsLocal() {
		return
	}
	l := g.local(n.Local)
	isBorn := n.Flags.Has(lir.FlagVarDef)
	if l.IsMultiReg() {
		multi := n.Flags.Has(lir.FlagMultiReg)
		for i, fv := range l.Fields {
			isDying := n.Flags.Has(lir.FlagVarDeath)
			spill := false
			if multi {
				isDying = n.IsFieldDeath(i)
				spill = n.RegFlagsAt(i).Has(lir.FlagSpill)
			}
			g.updateLifeVar(n, g.local(fv), i, isBorn, isDying, spill)
		}
		return
	}
	g.updateLifeVar(n, l, 0, isBorn, n.Flags.Has(lir.FlagVarDeath), n.Flags.Has(lir.FlagSpill))
}

func (g *Generator) updateLifeVar(n *lir.Node, l *lir.LocalVar, i int, isBorn, isDying, spill bool) {
	if !l.Tracked {
		return
	}
	switch {
	case isDying:
		g.curLife.Remove(l.TrackedIndex)
	case isBorn:
		g.curLife.Add(l.TrackedIndex)
	}

	if l.InReg() {
		if isDying {
			g.freeLocalReg(l)
		}
		if l.GCTrackedOnStack() && (isDying || (isBorn && !l.AlwaysAliveInMemory())) {
			g.markStackSlotDead(l)
		}
	} else if l.GCTrackedOnStack() {
		switch {
		case isDying:
			g.markStackSlotDead(l)
		case isBorn:
			g.markStackSlotLive(l)
		}
	}

	if spill {
		g.spillVarAt(n, l, i)
	}
}

// updateLifeTo makes live the set of live tracked locals, as at a block boundary.
func (g *Generator) updateLifeTo(live *lir.VarSet) {
	dying := g.curLife.Clone()
	dying.MinusWith(live)
	dying.Range(func(i lir.TrackedIndex) {
		l := g.trackedLocal(i)
		if l.InReg() && g.varRegs.Has(l.Reg) {
			g.freeLocalReg(l)
		}
		if l.GCTrackedOnStack() {
			g.markStackSlotDead(l)
		}
	})

	born := live.Clone()
	born.MinusWith(&g.curLife)
	born.Range(func(i lir.TrackedIndex) {
		l := g.trackedLocal(i)
		if l.InReg() {
			g.bindLocalReg(l)
		} else if l.GCTrackedOnStack() {
			g.markStackSlotLive(l)
		}
	})
	g.curLife.Assign(live)
}

func (g *Generator) trackedLocal(i lir.TrackedIndex) *lir.LocalVar {
	if int(i) >= len(g.tracked) || g.tracked[i] == nil {
		g.fail(ErrKindMalformedInput, "no local has tracked index %d", i)
	}
	return g.tracked[i]
}

func (g *Generator) markStackSlotLive(l *lir.LocalVar) {
	if g.gc.StackSlotLive(l.TrackedIndex) {
		return
	}
	g.tracef("Var %s becoming live", l.Num)
	g.gc.MarkStackSlotLive(l.TrackedIndex)
}

func (g *Generator) markStackSlotDead(l *lir.LocalVar) {
	if !g.gc.StackSlotLive(l.TrackedIndex) {
		return
	}
	g.tracef("Var %s becoming dead", l.Num)
	g.gc.MarkStackSlotDead(l.TrackedIndex)
}

package codegen

import (
	"fmt"

	"github.com/tetratelabs/lirgen/lir"
)

// owner is what a register currently holds: either a local or the index-th
// register of the value produced by node.
type owner struct {
	local *lir.LocalVar
	node  *lir.Node
	index int
}

func localOwner(l *lir.LocalVar) owner { return owner{local: l} }

func valueOwner(n *lir.Node, i int) owner { return owner{node: n, index: i} }

func (o owner) valid() bool { return o.local != nil || o.node != nil }

// String implements fmt.Stringer.
func (o owner) String() string {
	switch {
	case o.local != nil:
		return o.local.Num.String()
	case o.node != nil && o.node.RegCount() > 1:
		return fmt.Sprintf("[%06d]#%d", o.node.ID, o.index)
	case o.node != nil:
		return fmt.Sprintf("[%06d]", o.node.ID)
	}
	return "free"
}

// residency maps every register to its current owner.
type residency struct {
	owners [lir.RealRegsNumMax]owner
	used   lir.RegSet
}

func (r *residency) reset() {
	r.used.Range(func(reg lir.RealReg) { r.owners[reg] = owner{} })
	r.used = 0
}

func (r *residency) owner(reg lir.RealReg) owner {
	return r.owners[reg]
}

func (r *residency) set(reg lir.RealReg, o owner) {
	r.owners[reg] = o
	r.used = r.used.Add(reg)
}

func (r *residency) clear(reg lir.RealReg) {
	r.owners[reg] = owner{}
	r.used = r.used.Remove(reg)
}

// regs returns every register with an owner.
func (r *residency) regs() lir.RegSet {
	return r.used
}

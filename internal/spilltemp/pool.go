// Package spilltemp manages the stack slots holding values spilled out of registers
// which are not locals with a home slot of their own.
package spilltemp

import (
	"fmt"

	"github.com/google/btree"

	"github.com/tetratelabs/lirgen/lir"
)

// Temp is a leased spill slot.
type Temp struct {
	// Num is the identity of the slot, stable across leases.
	Num int
	// Type is the type the slot is currently leased for.
	Type lir.Type
	// Size and Offset describe the slot within the temp area: it covers
	// [Offset, Offset+Size) bytes below the start of the area.
	Size   int
	Offset int64

	gc     lir.GCKind
	leased bool
}

// String implements fmt.Stringer.
func (t *Temp) String() string {
	return fmt.Sprintf("T%02d(%s,%d@%d)", t.Num, t.Type, t.Size, t.Offset)
}

// Leased returns true if this slot is currently in use.
func (t *Temp) Leased() bool {
	return t.leased
}

// Pool hands out spill slots, reusing released slots of a compatible size.
//
// The free slots are kept in a btree ordered by (size, gc kind, offset), so that a
// lease always picks the lowest-addressed compatible slot.
type Pool struct {
	free   *btree.BTreeG[*Temp]
	all    []*Temp
	leased int
	// areaSize is the total size of every slot ever created.
	areaSize int64
}

func lessTemp(a, b *Temp) bool {
	if a.Size != b.Size {
		return a.Size < b.Size
	}
	if a.gc != b.gc {
		return a.gc < b.gc
	}
	return a.Offset < b.Offset
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{free: btree.NewG[*Temp](8, lessTemp)}
}

// Reset releases every slot and forgets the temp area so that the Pool can be reused for another method.
func (p *Pool) Reset() {
	p.free.Clear(false)
	p.all = p.all[:0]
	p.leased = 0
	p.areaSize = 0
}

// Lease returns a slot able to hold a value of type t, reusing a released slot of the same size when possible.
// GC-typed values only reuse slots that held the same GC kind, so that the slot's reporting stays exact.
func (p *Pool) Lease(t lir.Type) *Temp {
	size := slotSize(t)
	kind := t.GCKind()

	var found *Temp
	p.free.AscendGreaterOrEqual(&Temp{Size: size, gc: kind, Offset: -1 << 62}, func(item *Temp) bool {
		if item.Size == size && item.gc == kind {
			found = item
		}
		return false
	})

	if found != nil {
		p.free.Delete(found)
	} else {
		p.areaSize = alignUp(p.areaSize, int64(size))
		found = &Temp{Num: len(p.all), Size: size, gc: kind, Offset: p.areaSize}
		p.areaSize += int64(size)
		p.all = append(p.all, found)
	}
	found.Type = t
	found.leased = true
	p.leased++
	return found
}

// Release returns tmp to the pool. Releasing a slot which is not leased is a bug in the caller.
func (p *Pool) Release(tmp *Temp) {
	if tmp == nil || !tmp.leased {
		panic(fmt.Sprintf("BUG: releasing a spill temp which is not leased: %v", tmp))
	}
	tmp.leased = false
	p.leased--
	p.free.ReplaceOrInsert(tmp)
}

// LeasedCount returns the number of slots currently leased.
func (p *Pool) LeasedCount() int {
	return p.leased
}

// AreaSize returns the size of the temp area the frame must reserve.
func (p *Pool) AreaSize() int64 {
	return p.areaSize
}

// Temps returns every slot ever created, in creation order.
func (p *Pool) Temps() []*Temp {
	return p.all
}

// Leased returns the slots currently leased, in creation order.
func (p *Pool) Leased() []*Temp {
	var ret []*Temp
	for _, t := range p.all {
		if t.leased {
			ret = append(ret, t)
		}
	}
	return ret
}

func slotSize(t lir.Type) int {
	size := t.ActualType().Size()
	if size < 4 {
		size = 4
	}
	return size
}

func alignUp(v, align int64) int64 {
	return (v + align - 1) &^ (align - 1)
}

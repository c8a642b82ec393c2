// Package lir is the input of the code generator: methods made of blocks of nodes in
// layout order, already annotated by register allocation and liveness analysis.
package lir

import "fmt"

// BlockID identifies a Block within a Method.
type BlockID uint32

// String implements fmt.Stringer.
func (b BlockID) String() string {
	return fmt.Sprintf("BB%02d", uint32(b))
}

// BlockKind determines how control leaves a block.
type BlockKind byte

const (
	BlockKindInvalid BlockKind = iota
	// BlockAlways jumps unconditionally to Target.
	BlockAlways
	// BlockCond ends with an OpJcc node branching to Target, falling to FalseTarget.
	BlockCond
	// BlockReturn returns from the method.
	BlockReturn
	// BlockThrow ends with a call which raises an exception.
	BlockThrow
	// BlockSwitch ends with an OpSwitch node dispatching to SwitchTargets, defaulting to Target.
	BlockSwitch
)

// String implements fmt.Stringer.
func (k BlockKind) String() string {
	switch k {
	case BlockAlways:
		return "always"
	case BlockCond:
		return "cond"
	case BlockReturn:
		return "return"
	case BlockThrow:
		return "throw"
	case BlockSwitch:
		return "switch"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// BlockFlags are layout and control-flow annotations of a block.
type BlockFlags uint16

const (
	// BlockHasLabel marks a block which must start with a label.
	BlockHasLabel BlockFlags = 1 << iota
	// BlockHandlerEntry marks the entry of an exception handler which receives the exception object.
	BlockHandlerEntry
	// BlockHasJmp marks a block ending with a tail jump which keeps the argument registers live.
	BlockHasJmp
	// BlockAlignTail marks a block after which the next block must be aligned.
	BlockAlignTail
)

// Block is a basic block in layout order.
type Block struct {
	ID    BlockID
	Kind  BlockKind
	Flags BlockFlags

	// Target is the jump target of BlockAlways, the true target of BlockCond and
	// the default target of BlockSwitch.
	Target BlockID
	// FalseTarget is the fall-through target of BlockCond.
	FalseTarget BlockID
	// SwitchTargets are the case targets of BlockSwitch.
	SwitchTargets []BlockID

	// Weight is the profile weight of this block.
	Weight float64
	// Cold is true if this block is placed in the cold section.
	Cold bool
	// Region identifies the exception handling region this block belongs to. Zero is the method body.
	Region uint32

	// LiveIn and LiveOut are the tracked locals live on entry and on exit.
	LiveIn, LiveOut VarSet
	// VarRegsAtEntry is where the register allocator placed each enregistered
	// local at the start of this block. Locals absent from it live on the stack.
	VarRegsAtEntry map[VarNum]RealReg

	Nodes []*Node
}

// HasFlag returns true if every flag in f is set.
func (b *Block) HasFlag(f BlockFlags) bool {
	return b.Flags&f == f
}

// LastNode returns the last node of the block or nil.
func (b *Block) LastNode() *Node {
	if len(b.Nodes) == 0 {
		return nil
	}
	return b.Nodes[len(b.Nodes)-1]
}

// Method is the unit of compilation: locals plus blocks in layout order.
type Method struct {
	Name   string
	Locals []*LocalVar
	Blocks []*Block

	// ReturnType is the type returned by the method, TypeInvalid if none.
	ReturnType Type
	// ReturnsStruct is true if the return value is a multi-register struct.
	ReturnsStruct bool
	// HasRetBuf is true if the method returns through a hidden return buffer.
	HasRetBuf bool
	// IsAsync is true if the method carries an async continuation register on return.
	IsAsync bool

	// FrameLocalsSize is the size of the frame below the frame pointer used by locals.
	// Spill temps are allocated below it.
	FrameLocalsSize int64
}

// Local returns the descriptor of v.
func (m *Method) Local(v VarNum) *LocalVar {
	return m.Locals[v]
}

// TrackedLocal returns the descriptor of the local with the given tracked index.
func (m *Method) TrackedLocal(i TrackedIndex) *LocalVar {
	for _, l := range m.Locals {
		if l.Tracked && l.TrackedIndex == i {
			return l
		}
	}
	return nil
}

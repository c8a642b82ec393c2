package lir

import (
	"fmt"
	"strings"
)

// NodeID identifies a Node within a Method.
type NodeID uint32

// Op is the operation of a Node.
type Op byte

const (
	OpInvalid Op = iota
	// OpNop emits nothing.
	OpNop
	// OpConst materializes Imm into the node's register.
	OpConst
	// OpLocalVar reads local Local.
	OpLocalVar
	// OpStoreLocal defines local Local from Operands[0].
	OpStoreLocal
	// OpAdd, OpSub, OpAnd, OpOr and OpXor compute Operands[0] op Operands[1].
	OpAdd
	OpSub
	OpAnd
	OpOr
	OpXor
	// OpCast converts Operands[0] from Cast.From to the node's type.
	OpCast
	// OpJcc compares Operands[0] with Operands[1] (or with Imm if there is a single operand)
	// and branches to the block's true target if Cond holds. It must end an OpJcc block.
	OpJcc
	// OpSwitch dispatches on Operands[0] to the block's switch targets.
	OpSwitch
	// OpCall calls the address in Operands[0]. The remaining operands are arguments
	// already placed by the register allocator.
	OpCall
	// OpPutArgStack stores Operands[0] to the outgoing argument area at Imm.
	OpPutArgStack
	// OpReturn moves Operands[0], if any, into the return registers.
	OpReturn
	// OpCatchArg is the exception object handed to a handler entry block.
	OpCatchArg
	// OpCustom is emitted by a target-specific NodeEmitter.
	OpCustom
)

var opNames = [...]string{
	OpInvalid:     "invalid",
	OpNop:         "nop",
	OpConst:       "const",
	OpLocalVar:    "lcl_var",
	OpStoreLocal:  "store_lcl",
	OpAdd:         "add",
	OpSub:         "sub",
	OpAnd:         "and",
	OpOr:          "or",
	OpXor:         "xor",
	OpCast:        "cast",
	OpJcc:         "jcc",
	OpSwitch:      "switch",
	OpCall:        "call",
	OpPutArgStack: "putarg_stk",
	OpReturn:      "return",
	OpCatchArg:    "catch_arg",
	OpCustom:      "custom",
}

// String implements fmt.Stringer.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", byte(o))
}

// IsLocal returns true for operations that access a local.
func (o Op) IsLocal() bool {
	return o == OpLocalVar || o == OpStoreLocal
}

// NodeFlags are the per-node annotations produced by the register allocator and liveness.
type NodeFlags uint16

const (
	// FlagSpill requests the value to be spilled right after it is produced
	// (or, for a local use, after its use).
	FlagSpill NodeFlags = 1 << iota
	// FlagSpilled marks a value which currently lives in a spill temp or, together with
	// FlagSpill on a local definition, a write-through definition.
	FlagSpilled
	// FlagContained marks a node folded into its user: it emits no code of its own.
	FlagContained
	// FlagUnusedValue marks a node whose value is never consumed.
	FlagUnusedValue
	// FlagVarDef marks the definition of a local.
	FlagVarDef
	// FlagVarDeath marks the last use of a local.
	FlagVarDeath
	// FlagNoReturn marks a call which never returns.
	FlagNoReturn
	// FlagMultiReg marks a node whose value occupies more than one register.
	FlagMultiReg
)

// Has returns true if every flag in f is set.
func (n NodeFlags) Has(f NodeFlags) bool { return n&f == f }

// Cond is the condition of a conditional branch.
type Cond byte

const (
	CondAlways Cond = iota
	CondEq
	CondNe
	CondLtS
	CondLeS
	CondGtS
	CondGeS
	CondLtU
	CondLeU
	CondGtU
	CondGeU
)

var condNames = [...]string{"always", "eq", "ne", "lt", "le", "gt", "ge", "lo", "ls", "hi", "hs"}

// String implements fmt.Stringer.
func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}
	return fmt.Sprintf("cond(%d)", byte(c))
}

// CastInfo describes an integer-to-integer conversion.
type CastInfo struct {
	// From is the type of the source value.
	From Type
	// To is the type being cast to. The node's Type is its register type.
	To Type
	// Overflow requests a range check which throws if the value does not fit.
	Overflow bool
	// SrcRange is the known range of the source value, if any.
	SrcRange *ValueRange
}

// ValueRange is a closed interval of signed 64-bit values.
type ValueRange struct {
	Min, Max int64
}

// Node is a single operation in a Block, already register-allocated.
type Node struct {
	ID   NodeID
	Op   Op
	Type Type

	// Regs are the registers assigned to the value of this node. Multi-register nodes
	// have one per register; RegTypes then holds each register's type.
	Regs     []RealReg
	RegTypes []Type
	// RegFlags holds FlagSpill and FlagSpilled per register of a multi-register node.
	RegFlags []NodeFlags
	// TempRegs are internal registers the allocator reserved for this node's code.
	TempRegs []RealReg

	Flags NodeFlags
	// FieldDeath marks the last use per field of a multi-register local.
	FieldDeath []bool

	Operands []Operand

	// Local is the local accessed by OpLocalVar and OpStoreLocal.
	Local VarNum
	// Imm is the immediate of OpConst, OpJcc and OpPutArgStack.
	Imm int64
	// Cond is the condition of OpJcc.
	Cond Cond
	// Cast describes OpCast.
	Cast CastInfo
	// StackArgBytes is the size of the outgoing stack arguments an OpCall pops.
	StackArgBytes int
	// Custom is an opaque payload for OpCustom.
	Custom any
}

// Reg returns the first register of this node.
func (n *Node) Reg() RealReg {
	if len(n.Regs) == 0 {
		return RealRegInvalid
	}
	return n.Regs[0]
}

// RegAt returns the i-th register of this node.
func (n *Node) RegAt(i int) RealReg {
	if i >= len(n.Regs) {
		return RealRegInvalid
	}
	return n.Regs[i]
}

// HasReg returns true if a register was assigned to this node.
func (n *Node) HasReg() bool {
	return n.Reg() != RealRegInvalid
}

// RegCount returns the number of registers holding this node's value.
func (n *Node) RegCount() int {
	return len(n.Regs)
}

// RegType returns the type of the value in the i-th register.
func (n *Node) RegType(i int) Type {
	if i < len(n.RegTypes) {
		return n.RegTypes[i]
	}
	return n.Type
}

// RegFlagsAt returns the spill flags of the i-th register.
func (n *Node) RegFlagsAt(i int) NodeFlags {
	if n.Flags.Has(FlagMultiReg) {
		if i < len(n.RegFlags) {
			return n.RegFlags[i]
		}
		return 0
	}
	return n.Flags & (FlagSpill | FlagSpilled)
}

// SetRegFlagsAt replaces the spill flags of the i-th register.
func (n *Node) SetRegFlagsAt(i int, f NodeFlags) {
	f &= FlagSpill | FlagSpilled
	if n.Flags.Has(FlagMultiReg) {
		for len(n.RegFlags) <= i {
			n.RegFlags = append(n.RegFlags, 0)
		}
		n.RegFlags[i] = f
		return
	}
	n.Flags = n.Flags&^(FlagSpill|FlagSpilled) | f
}

// IsContained returns true if this node is folded into its user.
func (n *Node) IsContained() bool {
	return n.Flags.Has(FlagContained)
}

// IsUnusedValue returns true if this node produces a value nobody consumes.
func (n *Node) IsUnusedValue() bool {
	return n.Flags.Has(FlagUnusedValue)
}

// IsFieldDeath returns true if the i-th field of a multi-register local dies at this node.
func (n *Node) IsFieldDeath(i int) bool {
	return i < len(n.FieldDeath) && n.FieldDeath[i]
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	var regs []string
	for _, r := range n.Regs {
		regs = append(regs, fmt.Sprintf("r%d", r))
	}
	s := fmt.Sprintf("[%06d] %s.%s", n.ID, n.Op, n.Type)
	if n.Op.IsLocal() {
		s += " " + n.Local.String()
	}
	if len(regs) > 0 {
		s += " REG " + strings.Join(regs, ",")
	}
	return s
}

// OperandKind distinguishes direct operands from register transfers inserted by the allocator.
type OperandKind byte

const (
	// OperandDirect uses the value where it was produced.
	OperandDirect OperandKind = iota
	// OperandReload uses the value after reloading it from its spill location into Regs.
	OperandReload
	// OperandCopy uses the value after copying it into Regs.
	OperandCopy
)

// Operand is an input of a Node.
type Operand struct {
	Kind OperandKind
	Node *Node
	// Regs are the destination registers of a reload or a copy.
	Regs []RealReg
	// ReSpill is set on a reload after which the value stays in memory.
	ReSpill bool
	// Temporary is set on a copy which does not relocate the local it copies.
	Temporary bool
}

// Direct returns a direct operand.
func Direct(n *Node) Operand {
	return Operand{Kind: OperandDirect, Node: n}
}

// Reload returns an operand reloading n into regs.
func Reload(n *Node, regs ...RealReg) Operand {
	return Operand{Kind: OperandReload, Node: n, Regs: regs}
}

// Copy returns an operand copying n into regs.
func Copy(n *Node, regs ...RealReg) Operand {
	return Operand{Kind: OperandCopy, Node: n, Regs: regs}
}

// Reg returns the register this operand is read from.
func (o Operand) Reg() RealReg {
	return o.RegAt(0)
}

// RegAt returns the i-th register this operand is read from.
func (o Operand) RegAt(i int) RealReg {
	if o.Kind != OperandDirect && i < len(o.Regs) && o.Regs[i] != RealRegInvalid {
		return o.Regs[i]
	}
	return o.Node.RegAt(i)
}

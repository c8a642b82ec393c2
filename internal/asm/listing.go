package asm

import (
	"fmt"
	"strings"

	"github.com/tetratelabs/lirgen/lir"
)

// ListingAssembler implements Assembler by recording a textual listing instead of
// machine code. It is used for dry runs and by tests asserting the exact stream.
type ListingAssembler struct {
	BaseAssemblerImpl
	nodes      []*ListingNode
	regName    func(lir.RealReg) string
	labelCount int
}

var _ Assembler = &ListingAssembler{}

// NewListingAssembler returns a ListingAssembler naming registers with regName.
func NewListingAssembler(regName func(lir.RealReg) string) *ListingAssembler {
	return &ListingAssembler{regName: regName}
}

// ListingNode implements Node for ListingAssembler.
type ListingNode struct {
	index  int
	text   string
	label  int
	jump   bool
	target *ListingNode
}

// String implements fmt.Stringer.
func (n *ListingNode) String() string {
	switch {
	case n.label >= 0:
		return fmt.Sprintf("L%d:", n.label)
	case n.jump && n.target != nil:
		return n.text + " " + n.target.name()
	case n.jump:
		return n.text + " ?"
	}
	return n.text
}

func (n *ListingNode) name() string {
	if n.label >= 0 {
		return fmt.Sprintf("L%d", n.label)
	}
	return fmt.Sprintf("@%d", n.index)
}

// AssignJumpTarget implements Node.AssignJumpTarget.
func (n *ListingNode) AssignJumpTarget(target Node) {
	n.target = target.(*ListingNode)
}

// OffsetInBinary implements Node.OffsetInBinary. The offset of a listing node is its index.
func (n *ListingNode) OffsetInBinary() int64 {
	return int64(n.index)
}

func (a *ListingAssembler) add(kind InstructionKind, text string) *ListingNode {
	n := &ListingNode{index: len(a.nodes), text: text, label: -1}
	a.nodes = append(a.nodes, n)
	a.ResolvePendingTargets(n)
	a.Last = kind
	return n
}

func (a *ListingAssembler) reg(r lir.RealReg) string {
	return a.RegisterName(r)
}

// RegisterName implements Assembler.RegisterName.
func (a *ListingAssembler) RegisterName(r lir.RealReg) string {
	if a.regName != nil {
		return a.regName(r)
	}
	return fmt.Sprintf("r%d", r)
}

// Assemble implements Assembler.Assemble. The result is the listing text.
func (a *ListingAssembler) Assemble() ([]byte, error) {
	for _, n := range a.nodes {
		if n.jump && n.target == nil {
			return nil, fmt.Errorf("jump without target at %d: %s", n.index, n)
		}
	}
	if len(a.SetBranchTargetOnNextNodes) > 0 {
		return nil, fmt.Errorf("%d jumps target the end of the code", len(a.SetBranchTargetOnNextNodes))
	}
	return []byte(a.Listing()), nil
}

// Lines returns the listing, one entry per node.
func (a *ListingAssembler) Lines() []string {
	ret := make([]string, 0, len(a.nodes))
	for _, n := range a.nodes {
		ret = append(ret, n.String())
	}
	return ret
}

// Listing returns the listing as text, with instructions indented under their labels.
func (a *ListingAssembler) Listing() string {
	var sb strings.Builder
	for _, n := range a.nodes {
		if n.label < 0 {
			sb.WriteByte('\t')
		}
		sb.WriteString(n.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// CompileLabel implements Assembler.CompileLabel.
func (a *ListingAssembler) CompileLabel() Node {
	n := a.add(a.Last, "")
	n.label = a.labelCount
	a.labelCount++
	return n
}

// CompileRegisterMove implements Assembler.CompileRegisterMove.
func (a *ListingAssembler) CompileRegisterMove(size Size, src, dst lir.RealReg) {
	a.add(InstructionKindOther, fmt.Sprintf("MOV.%d %s, %s", size*8, a.reg(src), a.reg(dst)))
}

// CompileConst implements Assembler.CompileConst.
func (a *ListingAssembler) CompileConst(size Size, value int64, dst lir.RealReg) {
	a.add(InstructionKindOther, fmt.Sprintf("MOV.%d $%d, %s", size*8, value, a.reg(dst)))
}

// CompileLoad implements Assembler.CompileLoad.
func (a *ListingAssembler) CompileLoad(size Size, signed bool, src Address, dst lir.RealReg) {
	a.add(InstructionKindOther, fmt.Sprintf("LOAD.%s %s, %s", extSuffix(size, signed), src, a.reg(dst)))
}

// CompileStore implements Assembler.CompileStore.
func (a *ListingAssembler) CompileStore(size Size, src lir.RealReg, dst Address) {
	a.add(InstructionKindOther, fmt.Sprintf("STORE.%d %s, %s", size*8, a.reg(src), dst))
}

// CompileExtend implements Assembler.CompileExtend.
func (a *ListingAssembler) CompileExtend(size Size, signed bool, src, dst lir.RealReg) {
	a.add(InstructionKindOther, fmt.Sprintf("EXT.%s %s, %s", extSuffix(size, signed), a.reg(src), a.reg(dst)))
}

// CompileBinary implements Assembler.CompileBinary.
func (a *ListingAssembler) CompileBinary(op BinaryOp, size Size, src, dst lir.RealReg) {
	a.add(InstructionKindOther, fmt.Sprintf("%s.%d %s, %s", op, size*8, a.reg(src), a.reg(dst)))
}

// CompileCompare implements Assembler.CompileCompare.
func (a *ListingAssembler) CompileCompare(size Size, x, y lir.RealReg) {
	a.add(InstructionKindOther, fmt.Sprintf("CMP.%d %s, %s", size*8, a.reg(x), a.reg(y)))
}

// CompileCompareConst implements Assembler.CompileCompareConst.
func (a *ListingAssembler) CompileCompareConst(size Size, x lir.RealReg, value int64) {
	a.add(InstructionKindOther, fmt.Sprintf("CMP.%d %s, $%d", size*8, a.reg(x), value))
}

// CompileJump implements Assembler.CompileJump.
func (a *ListingAssembler) CompileJump(cond lir.Cond) Node {
	name := "JMP"
	if cond != lir.CondAlways {
		name = "J" + strings.ToUpper(cond.String())
	}
	n := a.add(InstructionKindOther, name)
	n.jump = true
	return n
}

// CompileCallRegister implements Assembler.CompileCallRegister.
func (a *ListingAssembler) CompileCallRegister(target lir.RealReg) {
	a.add(InstructionKindCall, "CALL "+a.reg(target))
}

// CompileReturn implements Assembler.CompileReturn.
func (a *ListingAssembler) CompileReturn() {
	a.add(InstructionKindOther, "RET")
}

// CompileBreakpoint implements Assembler.CompileBreakpoint.
func (a *ListingAssembler) CompileBreakpoint() {
	a.add(InstructionKindOther, "BREAKPOINT")
}

// CompileNop implements Assembler.CompileNop.
func (a *ListingAssembler) CompileNop() {
	a.add(InstructionKindOther, "NOP")
}

// CompileAlign implements Assembler.CompileAlign.
func (a *ListingAssembler) CompileAlign(boundary int) {
	a.add(InstructionKindAlign, fmt.Sprintf("ALIGN %d", boundary))
}

func extSuffix(size Size, signed bool) string {
	if size == Size64 {
		return "64"
	}
	if signed {
		return fmt.Sprintf("S%d", size*8)
	}
	return fmt.Sprintf("U%d", size*8)
}

package golang_asm

import (
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"

	"github.com/tetratelabs/lirgen/internal/asm"
)

// GolangAsmNode implements Node for golang-asm library.
type GolangAsmNode struct {
	prog *obj.Prog
}

// NewGolangAsmNode wraps p.
func NewGolangAsmNode(p *obj.Prog) *GolangAsmNode {
	return &GolangAsmNode{prog: p}
}

// Prog returns the wrapped instruction.
func (n *GolangAsmNode) Prog() *obj.Prog {
	return n.prog
}

// String implements fmt.Stringer.
func (n *GolangAsmNode) String() string {
	return n.prog.String()
}

// OffsetInBinary implements Node.OffsetInBinary.
func (n *GolangAsmNode) OffsetInBinary() int64 {
	return n.prog.Pc
}

// AssignJumpTarget implements Node.AssignJumpTarget.
func (n *GolangAsmNode) AssignJumpTarget(target asm.Node) {
	b := target.(*GolangAsmNode)
	n.prog.To.SetTarget(b.prog)
}

// GolangAsmBaseAssembler implements *part of* Assembler for golang-asm library.
type GolangAsmBaseAssembler struct {
	asm.BaseAssemblerImpl
	b *goasm.Builder
}

// NewGolangAsmBaseAssembler returns a base assembler for arch, one of the architecture names golang-asm accepts.
func NewGolangAsmBaseAssembler(arch string) (*GolangAsmBaseAssembler, error) {
	b, err := goasm.NewBuilder(arch, 1024)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new assembly builder: %w", err)
	}
	return &GolangAsmBaseAssembler{b: b}, nil
}

// Assemble implements Assembler.Assemble
func (a *GolangAsmBaseAssembler) Assemble() (code []byte, err error) {
	if n := len(a.SetBranchTargetOnNextNodes); n > 0 {
		return nil, fmt.Errorf("%d jumps target the end of the code", n)
	}
	// golang-asm reports malformed instructions by panicking.
	defer func() {
		if r := recover(); r != nil {
			code, err = nil, fmt.Errorf("golang-asm: %v", r)
		}
	}()
	code = a.b.Assemble()
	return
}

// AddInstruction is used in architecture specific assembler implementation for golang-asm.
func (a *GolangAsmBaseAssembler) AddInstruction(next *obj.Prog, kind asm.InstructionKind) *GolangAsmNode {
	a.b.AddInstruction(next)
	n := NewGolangAsmNode(next)
	a.ResolvePendingTargets(n)
	a.Last = kind
	return n
}

// NewProg is used in architecture specific assembler implementation for golang-asm.
func (a *GolangAsmBaseAssembler) NewProg() (prog *obj.Prog) {
	prog = a.b.NewProg()
	return
}

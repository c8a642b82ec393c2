package asm

// BaseAssemblerImpl includes code common to all architectures.
//
// Note: When possible, add code here instead of in architecture-specific files to reduce drift:
// As this is internal, exporting symbols only to reduce duplication is ok.
type BaseAssemblerImpl struct {
	// SetBranchTargetOnNextNodes holds branch kind instructions (JMP, conditional JMP, etc.)
	// where we want to set the next coming instruction as the destination of these instructions.
	SetBranchTargetOnNextNodes []Node

	// Last is the kind of the most recently emitted instruction.
	Last InstructionKind
}

// SetJumpTargetOnNext implements Assembler.SetJumpTargetOnNext
func (a *BaseAssemblerImpl) SetJumpTargetOnNext(nodes ...Node) {
	a.SetBranchTargetOnNextNodes = append(a.SetBranchTargetOnNextNodes, nodes...)
}

// LastInstruction implements Assembler.LastInstruction
func (a *BaseAssemblerImpl) LastInstruction() InstructionKind {
	return a.Last
}

// ResolvePendingTargets assigns next as the destination of every node passed to SetJumpTargetOnNext.
func (a *BaseAssemblerImpl) ResolvePendingTargets(next Node) {
	for _, n := range a.SetBranchTargetOnNextNodes {
		n.AssignJumpTarget(next)
	}
	a.SetBranchTargetOnNextNodes = a.SetBranchTargetOnNextNodes[:0]
}

package codegen

import (
	"fmt"

	"github.com/tetratelabs/lirgen/lir"
)

// ErrKind classifies an InternalError.
type ErrKind byte

const (
	// ErrKindConsistency is a violated invariant of the code generator or of the
	// allocation it was handed: double consumption, out-of-order uses, GC roots or
	// liveness disagreeing with the block's boundary, unbalanced stack level.
	ErrKindConsistency ErrKind = iota + 1
	// ErrKindResource is an accounting defect, such as spill temps leased at the end of a method.
	ErrKindResource
	// ErrKindMalformedInput is an input the generator has no code for, such as an unknown block kind.
	ErrKindMalformedInput
)

// String implements fmt.Stringer.
func (k ErrKind) String() string {
	switch k {
	case ErrKindConsistency:
		return "consistency"
	case ErrKindResource:
		return "resource"
	case ErrKindMalformedInput:
		return "malformed input"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// InternalError is raised (by panicking) from inside the Generator when compilation
// cannot continue. It is never a condition the caller can retry: the method must
// not be executed.
type InternalError struct {
	Kind   ErrKind
	Method string
	// Block is the block being generated, valid only if InBlock is true.
	Block   lir.BlockID
	InBlock bool
	Msg     string
}

// Error implements error.
func (e *InternalError) Error() string {
	if e.InBlock {
		return fmt.Sprintf("%s (%s error in %s at %s)", e.Msg, e.Kind, e.Method, e.Block)
	}
	return fmt.Sprintf("%s (%s error in %s)", e.Msg, e.Kind, e.Method)
}

// fail aborts the compilation of the current method.
func (g *Generator) fail(kind ErrKind, format string, args ...any) {
	e := &InternalError{Kind: kind, Method: g.m.Name, Msg: "BUG: " + fmt.Sprintf(format, args...)}
	if g.curBlock != nil {
		e.Block, e.InBlock = g.curBlock.ID, true
	}
	panic(e)
}

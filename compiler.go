// Package lirgen generates machine code for methods whose registers were already
// allocated, and records where the garbage collector finds live references.
package lirgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/lirgen/internal/arch"
	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/internal/codegen"
	"github.com/tetratelabs/lirgen/internal/gcinfo"
	"github.com/tetratelabs/lirgen/lir"
)

// Compiler generates the code of methods. It is safe for concurrent use: each
// CompileMethod call has its own state.
type Compiler interface {
	// CompileMethod generates the code of m.
	//
	// The method is validated first, and an error is returned for a shape the
	// generator cannot handle. Any inconsistency detected while generating, such as
	// GC roots disagreeing with the liveness of a block, is returned as an error
	// wrapping a *InternalError and no code is returned.
	//
	// Note: The code generator updates lir.LocalVar.Reg and lir.Block flags of m while
	// generating, so m must not be shared between concurrent calls.
	CompileMethod(ctx context.Context, m *lir.Method) (*CompiledMethod, error)
}

// InternalError is a defect detected while generating the code of a method. It
// never depends on anything but the method and the configuration: compiling the
// same method again fails the same way.
type InternalError = codegen.InternalError

// ErrKind classifies an InternalError.
type ErrKind = codegen.ErrKind

const (
	// ErrKindConsistency is a violated invariant of the register allocation or of the generator.
	ErrKindConsistency = codegen.ErrKindConsistency
	// ErrKindResource is an accounting defect, such as spill temps still in use at the end of the method.
	ErrKindResource = codegen.ErrKindResource
	// ErrKindMalformedInput is a node or block the generator has no code for.
	ErrKindMalformedInput = codegen.ErrKindMalformedInput
)

// CompiledMethod is the result of Compiler.CompileMethod.
type CompiledMethod struct {
	// Code is the machine code, or the listing text when CompilerConfig.WithListing is enabled.
	Code []byte
	// Labels are the GC states at the start of every labeled block, in code order.
	Labels []GCLabel
	// TempAreaSize is the size of the frame area below lir.Method.FrameLocalsSize used by spill temps.
	TempAreaSize int64
	// Listing is the textual listing, only set when CompilerConfig.WithListing is enabled.
	Listing string
}

// GCLabel is the GC state at a label: the registers and stack slots holding live references.
type GCLabel struct {
	Block lir.BlockID
	// Offset is the offset of the label in CompiledMethod.Code, or its instruction
	// index when CompilerConfig.WithListing is enabled.
	Offset int64

	// RefRegs hold exact references, ByrefRegs interior pointers.
	RefRegs, ByrefRegs lir.RegSet
	// StackVars are the tracked locals whose stack home holds a live reference.
	StackVars []lir.TrackedIndex
	// Temps are the spill temps holding a live reference, ordered by offset.
	Temps []GCTemp
}

// GCTemp is a spill temp holding a live reference.
type GCTemp struct {
	// Offset is the frame pointer relative offset of the temp.
	Offset int64
	Kind   lir.GCKind
}

// NewCompiler returns a Compiler configured by config.
func NewCompiler(config CompilerConfig) Compiler {
	return &compiler{config: config.(*compilerConfig)}
}

type compiler struct {
	config *compilerConfig
}

// CompileMethod implements Compiler.CompileMethod
func (c *compiler) CompileMethod(ctx context.Context, m *lir.Method) (*CompiledMethod, error) {
	if m == nil {
		return nil, errors.New("nil method")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid method %s: %w", m.Name, err)
	}

	target, err := arch.ForName(string(c.config.target))
	if err != nil {
		return nil, err
	}

	var a asm.Assembler
	var listing *asm.ListingAssembler
	if c.config.listing {
		listing = asm.NewListingAssembler(target.RegisterInfo().Name)
		a = listing
	} else if a, err = target.NewAssembler(); err != nil {
		return nil, err
	}

	g := codegen.NewGenerator(target, a, m, codegen.Options{
		Validation:             c.config.validation,
		SignExtendNarrowedInts: c.config.signExtend,
		Trace:                  c.config.trace,
	})
	if err = generate(g); err != nil {
		return nil, err
	}

	code, err := a.Assemble()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble %s: %w", m.Name, err)
	}

	ret := &CompiledMethod{Code: code, TempAreaSize: g.TempAreaSize()}
	if listing != nil {
		ret.Listing = listing.Listing()
	}
	for _, l := range g.Labels() {
		ret.Labels = append(ret.Labels, newGCLabel(l))
	}
	return ret, nil
}

// generate runs g, turning the panic of a detected defect into an error.
func generate(g *codegen.Generator) (err error) {
	defer func() {
		if v := recover(); v != nil {
			internalErr, ok := v.(*codegen.InternalError)
			if !ok {
				panic(v)
			}
			err = fmt.Errorf("code generation failed: %w", internalErr)
		}
	}()
	g.GenerateMethod()
	return
}

func newGCLabel(l codegen.Label) GCLabel {
	ret := GCLabel{
		Block:     l.Block,
		Offset:    l.Node.OffsetInBinary(),
		RefRegs:   l.GC.RefRegs,
		ByrefRegs: l.GC.ByrefRegs,
		StackVars: l.GC.StackVars.Slice(),
	}
	for _, t := range l.GC.Temps {
		ret.Temps = append(ret.Temps, newGCTemp(t))
	}
	return ret
}

func newGCTemp(t gcinfo.TempSlot) GCTemp {
	return GCTemp{Offset: t.Offset, Kind: t.Kind}
}

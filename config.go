package lirgen

import (
	"io"

	"github.com/tetratelabs/lirgen/internal/codegen"
)

// Target names the architecture code is generated for.
type Target string

const (
	// TargetAMD64 generates x86-64 code.
	TargetAMD64 Target = "amd64"
	// TargetARM64 generates AArch64 code.
	TargetARM64 Target = "arm64"
)

// CompilerConfig controls the code generation of a Compiler, with the default
// implementation as NewCompilerConfig.
//
// Note: CompilerConfig is immutable. Each WithXXX function returns a new instance
// including the corresponding change.
type CompilerConfig interface {
	// WithTarget sets the architecture to generate code for. Defaults to the host
	// architecture when it is supported, or TargetAMD64 otherwise.
	WithTarget(Target) CompilerConfig

	// WithValidation enables the consistency checks run while generating: consumption
	// order, double consumption, GC registers and live locals at each block boundary,
	// stack level and spill temp balance. Defaults to true.
	//
	// Disabling this does not change the generated code for a well-formed method, but a
	// malformed one may then compile into code with an incorrect GC root map.
	WithValidation(bool) CompilerConfig

	// WithListing generates a textual listing instead of machine code. The listing is
	// returned as CompiledMethod.Listing and CompiledMethod.Code holds its bytes.
	// Defaults to false.
	WithListing(bool) CompilerConfig

	// WithTraceWriter writes a line per notable event of the generation, such as block
	// starts, labels, spills and GC liveness changes. Defaults to nil, which disables tracing.
	WithTraceWriter(io.Writer) CompilerConfig

	// WithSignExtendNarrowedInts sign extends the result of 64 to 32-bit integer
	// truncations, for ABIs requiring 32-bit values to be kept sign extended. Defaults to false.
	WithSignExtendNarrowedInts(bool) CompilerConfig
}

type compilerConfig struct {
	target     Target
	validation bool
	listing    bool
	trace      io.Writer
	signExtend bool
}

// targetLessConfig helps avoid copy/pasting the wrong defaults.
var targetLessConfig = &compilerConfig{
	validation: codegen.ValidationEnabledByDefault,
}

// clone makes a copy of this compiler config.
func (c *compilerConfig) clone() *compilerConfig {
	ret := *c
	return &ret
}

// WithTarget implements CompilerConfig.WithTarget
func (c *compilerConfig) WithTarget(target Target) CompilerConfig {
	ret := c.clone()
	ret.target = target
	return ret
}

// WithValidation implements CompilerConfig.WithValidation
func (c *compilerConfig) WithValidation(enabled bool) CompilerConfig {
	ret := c.clone()
	ret.validation = enabled
	return ret
}

// WithListing implements CompilerConfig.WithListing
func (c *compilerConfig) WithListing(enabled bool) CompilerConfig {
	ret := c.clone()
	ret.listing = enabled
	return ret
}

// WithTraceWriter implements CompilerConfig.WithTraceWriter
func (c *compilerConfig) WithTraceWriter(w io.Writer) CompilerConfig {
	ret := c.clone()
	ret.trace = w
	return ret
}

// WithSignExtendNarrowedInts implements CompilerConfig.WithSignExtendNarrowedInts
func (c *compilerConfig) WithSignExtendNarrowedInts(enabled bool) CompilerConfig {
	ret := c.clone()
	ret.signExtend = enabled
	return ret
}

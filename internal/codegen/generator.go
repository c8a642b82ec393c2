// Package codegen is the final stage of the compiler: it walks the register-allocated
// blocks of a method in layout order and emits instructions for every node, keeping
// track of which register holds which value, which locals are live, what the garbage
// collector must treat as a root and which spill temps are in use.
package codegen

import (
	"fmt"
	"io"

	"github.com/tetratelabs/lirgen/internal/arch"
	"github.com/tetratelabs/lirgen/internal/asm"
	"github.com/tetratelabs/lirgen/internal/gcinfo"
	"github.com/tetratelabs/lirgen/internal/spilltemp"
	"github.com/tetratelabs/lirgen/lir"
)

// maxTempAreaSize bounds the spill temp area of a single method.
const maxTempAreaSize = 1 << 20

// Options configures a Generator.
type Options struct {
	// Validation enables the consistency checks run at every consumption and at every block end.
	Validation bool
	// SignExtendNarrowedInts sign extends the result of 64 to 32-bit truncations.
	SignExtendNarrowedInts bool
	// Trace, if non-nil, receives a line per notable event of the generation.
	Trace io.Writer
	// NodeEmitter generates OpCustom nodes.
	NodeEmitter NodeEmitter
}

// NodeEmitter generates code for nodes the Generator has no built-in code for.
// Implementations go through Generator.ConsumeReg, Generator.ProduceReg and friends
// so that register, liveness and GC bookkeeping stays exact.
type NodeEmitter interface {
	EmitNode(g *Generator, n *lir.Node)
}

// Label is a position in the code where the GC state is recorded: the start of every
// block which needed a label.
type Label struct {
	Block lir.BlockID
	Node  asm.Node
	GC    gcinfo.Snapshot
}

// nodeState is the per-node bookkeeping of the validation.
type nodeState struct {
	node *lir.Node
	// useNum is the order in which the node is consumed within its block, -1 if unused.
	useNum int
	// kept is set while the only use numbered so far reloads the value and keeps it spilled.
	kept     bool
	consumed bool
	// consumedRegs has bit i set once the i-th register of the value was consumed on its own.
	consumedRegs uint64
	produced     bool
}

type spillKey struct {
	node  *lir.Node
	index int
}

// Generator generates the code of a single method.
type Generator struct {
	target arch.Target
	regs   *arch.RegisterInfo
	asm    asm.Assembler
	opts   Options

	m *lir.Method
	// tracked is indexed by lir.TrackedIndex.
	tracked []*lir.LocalVar

	gc    *gcinfo.Tracker
	temps *spilltemp.Pool
	// spills maps each spilled register of a value to its temp.
	spills map[spillKey]*spilltemp.Temp

	// curLife is the set of tracked locals live at the current position.
	curLife lir.VarSet
	// varRegs are the registers holding live enregistered locals.
	varRegs lir.RegSet
	res     residency

	arena        stateArena
	states       map[*lir.Node]*nodeState
	lastConsumed *lir.Node

	// stackLevel is the number of bytes of outgoing arguments stored but not yet popped by a call.
	stackLevel int

	curBlock     *lir.Block
	blockIndex   map[lir.BlockID]int
	firstCold    int
	blockLabels  map[lir.BlockID]asm.Node
	pendingJumps map[lir.BlockID][]asm.Node
	labels       []Label
	// overflowJumps branch to the overflow trap emitted after the last block.
	overflowJumps []asm.Node
}

// NewGenerator returns a Generator emitting the code of m into a for target.
func NewGenerator(target arch.Target, a asm.Assembler, m *lir.Method, opts Options) *Generator {
	g := &Generator{
		target:       target,
		regs:         target.RegisterInfo(),
		asm:          a,
		opts:         opts,
		m:            m,
		gc:           gcinfo.NewTracker(),
		temps:        spilltemp.NewPool(),
		spills:       map[spillKey]*spilltemp.Temp{},
		states:       map[*lir.Node]*nodeState{},
		blockIndex:   map[lir.BlockID]int{},
		blockLabels:  map[lir.BlockID]asm.Node{},
		pendingJumps: map[lir.BlockID][]asm.Node{},
		firstCold:    -1,
	}
	for _, l := range m.Locals {
		if !l.Tracked {
			continue
		}
		for int(l.TrackedIndex) >= len(g.tracked) {
			g.tracked = append(g.tracked, nil)
		}
		g.tracked[l.TrackedIndex] = l
	}
	return g
}

// Assembler returns the assembler the code is emitted into.
func (g *Generator) Assembler() asm.Assembler {
	return g.asm
}

// Method returns the method being generated.
func (g *Generator) Method() *lir.Method {
	return g.m
}

// Target returns the target the code is generated for.
func (g *Generator) Target() arch.Target {
	return g.target
}

// GC returns a snapshot of the current GC roots.
func (g *Generator) GC() gcinfo.Snapshot {
	return g.gc.Snapshot()
}

// Labels returns the labels recorded so far, in code order.
func (g *Generator) Labels() []Label {
	return g.labels
}

// TempAreaSize returns the size of the spill temp area the frame must reserve.
func (g *Generator) TempAreaSize() int64 {
	return g.temps.AreaSize()
}

// LeasedTemps returns the spill temps currently leased.
func (g *Generator) LeasedTemps() []*spilltemp.Temp {
	return g.temps.Leased()
}

// CurrentLife returns the tracked locals live at the current position. The returned set must not be modified.
func (g *Generator) CurrentLife() *lir.VarSet {
	return &g.curLife
}

// VarRegs returns the registers holding live enregistered locals.
func (g *Generator) VarRegs() lir.RegSet {
	return g.varRegs
}

// StackLevel returns the number of bytes of outgoing stack arguments not yet popped.
func (g *Generator) StackLevel() int {
	return g.stackLevel
}

// GenerateMethod generates every block of the method in layout order.
func (g *Generator) GenerateMethod() {
	g.InitializeMethod()
	for _, b := range g.m.Blocks {
		g.GenerateBlock(b)
	}
	g.FinishMethod()
}

// InitializeMethod prepares the generation of the method: it marks the blocks
// needing a label and makes the enregistered parameters live on entry resident.
// Anything left by a previous generation is forgotten.
func (g *Generator) InitializeMethod() {
	g.gc.Reset()
	g.temps.Reset()
	g.res.reset()
	g.varRegs = 0
	g.curLife.Clear()
	g.stackLevel = 0
	g.curBlock = nil

	g.arena.reset()
	clear(g.states)
	g.lastConsumed = nil
	clear(g.spills)
	clear(g.blockIndex)
	clear(g.blockLabels)
	clear(g.pendingJumps)
	g.labels = nil
	g.overflowJumps = g.overflowJumps[:0]
	g.firstCold = -1

	for i, b := range g.m.Blocks {
		g.blockIndex[b.ID] = i
		if b.Cold && g.firstCold < 0 {
			g.firstCold = i
		}
	}
	g.markLabelsForCodegen()

	if len(g.m.Blocks) == 0 {
		return
	}
	entry := g.m.Blocks[0]
	for _, l := range g.m.Locals {
		if !l.IsParam || !l.Tracked || !l.InReg() || l.AddressExposed {
			continue
		}
		if !entry.LiveIn.Has(l.TrackedIndex) {
			continue
		}
		g.curLife.Add(l.TrackedIndex)
		g.bindLocalReg(l)
	}
}

func (g *Generator) state(n *lir.Node) *nodeState {
	s, ok := g.states[n]
	if !ok {
		s = g.arena.alloc(n)
		g.states[n] = s
	}
	return s
}

func (g *Generator) local(v lir.VarNum) *lir.LocalVar {
	if int(v) >= len(g.m.Locals) {
		g.fail(ErrKindMalformedInput, "unknown local %s", v)
	}
	return g.m.Locals[v]
}

// isRegCandidateLocal returns true if n accesses a single-register local the allocator may enregister.
func (g *Generator) isRegCandidateLocal(n *lir.Node) bool {
	if !n.Op.IsLocal() {
		return false
	}
	l := g.local(n.Local)
	return l.RegCandidate && !l.IsMultiReg()
}

// isMultiRegLocal returns true if n accesses every field of a promoted local at once.
func (g *Generator) isMultiRegLocal(n *lir.Node) bool {
	return n.Op.IsLocal() && n.Flags.Has(lir.FlagMultiReg) && g.local(n.Local).IsMultiReg()
}

func (g *Generator) regName(r lir.RealReg) string {
	return g.regs.Name(r)
}

func (g *Generator) tracef(format string, args ...any) {
	if !LoggingEnabled && g.opts.Trace == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	if LoggingEnabled {
		fmt.Println(line)
	}
	if g.opts.Trace != nil {
		fmt.Fprintln(g.opts.Trace, line)
	}
}

// homeAddress returns the stack home of l.
func (g *Generator) homeAddress(l *lir.LocalVar) asm.Address {
	return asm.FrameSlot(l.StackOffset)
}

// tempAddress returns the frame slot of tmp. The temp area lies right below the locals.
func (g *Generator) tempAddress(tmp *spilltemp.Temp) asm.Address {
	return asm.FrameSlot(-(g.m.FrameLocalsSize + tmp.Offset + int64(tmp.Size)))
}

package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/lirgen/internal/asm/amd64"
	"github.com/tetratelabs/lirgen/lir"
)

func jumpBlock(id, target lir.BlockID, nodes ...*lir.Node) *lir.Block {
	return &lir.Block{ID: id, Kind: lir.BlockAlways, Target: target, Nodes: nodes}
}

// condBlock compares a constant with zero and branches to target if they are equal.
func condBlock(id, target, falseTarget lir.BlockID) *lir.Block {
	n1 := constNode(lir.NodeID(id)*10+1, lir.TypeI32, 1, amd64.RCX)
	n2 := &lir.Node{ID: lir.NodeID(id)*10 + 2, Op: lir.OpJcc, Cond: lir.CondEq, Operands: []lir.Operand{lir.Direct(n1)}}
	return &lir.Block{ID: id, Kind: lir.BlockCond, Target: target, FalseTarget: falseTarget, Nodes: []*lir.Node{n1, n2}}
}

// callNodes calls the address 4096, never returning if noReturn is set.
func callNodes(id lir.NodeID, noReturn bool) []*lir.Node {
	n1 := constNode(id, lir.TypeI64, 4096, amd64.R11)
	n2 := &lir.Node{ID: id + 1, Op: lir.OpCall, Operands: []lir.Operand{lir.Direct(n1)}}
	if noReturn {
		n2.Flags |= lir.FlagNoReturn
	}
	return []*lir.Node{n1, n2}
}

func TestGenerator_condLabels(t *testing.T) {
	for _, tc := range []struct {
		name     string
		weight   float64
		exp      []string
		expTrace bool
	}{
		{
			name:   "same weight",
			weight: 1,
			exp:    []string{"L0:", "MOV.32 $1, rcx", "CMP.32 rcx, $0", "JEQ L1", "JMP L2", "L1:", "L2:", "RET"},
		},
		{
			name:     "weight difference",
			weight:   0.5,
			exp:      []string{"L0:", "MOV.32 $1, rcx", "CMP.32 rcx, $0", "JEQ L2", "L1:", "JMP L3", "L2:", "L3:", "RET"},
			expTrace: true,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b0 := condBlock(0, 2, 1)
			b0.Weight = 1
			b1 := jumpBlock(1, 3)
			b1.Weight = tc.weight
			b2 := jumpBlock(2, 3)
			m := &lir.Method{Name: "cond", Blocks: []*lir.Block{b0, b1, b2, returnBlock(3)}}

			res := generate(m, nil)
			require.Nil(t, res.err)
			require.Equal(t, tc.exp, res.a.Lines())
			require.Equal(t, tc.expTrace, strings.Contains(res.trace, "Adding label due to weight difference"))

			// The fall-through false target needs no label of its own.
			require.False(t, b1.HasFlag(lir.BlockHasLabel))
			require.True(t, b2.HasFlag(lir.BlockHasLabel))
		})
	}
}

func TestGenerator_falseTargetJump(t *testing.T) {
	m := &lir.Method{Name: "cond", Blocks: []*lir.Block{condBlock(0, 1, 2), returnBlock(1), returnBlock(2)}}

	res := generate(m, nil)
	require.Nil(t, res.err)
	require.Equal(t, []string{
		"L0:", "MOV.32 $1, rcx", "CMP.32 rcx, $0", "JEQ L1", "JMP L2",
		"L1:", "RET",
		"L2:", "RET",
	}, res.a.Lines())

	var blocks []lir.BlockID
	for _, l := range res.g.Labels() {
		blocks = append(blocks, l.Block)
	}
	require.Equal(t, []lir.BlockID{0, 1, 2}, blocks)
}

func TestGenerator_switch(t *testing.T) {
	n1 := constNode(1, lir.TypeI32, 1, amd64.RCX)
	n2 := &lir.Node{ID: 2, Op: lir.OpSwitch, Operands: []lir.Operand{lir.Direct(n1)}}
	b0 := &lir.Block{ID: 0, Kind: lir.BlockSwitch, SwitchTargets: []lir.BlockID{1, 2}, Target: 3, Nodes: []*lir.Node{n1, n2}}
	m := &lir.Method{Name: "switch", Blocks: []*lir.Block{b0, returnBlock(1), returnBlock(2), returnBlock(3)}}

	res := generate(m, nil)
	require.Nil(t, res.err)
	require.Equal(t, []string{
		"L0:", "MOV.32 $1, rcx",
		"CMP.32 rcx, $0", "JEQ L1",
		"CMP.32 rcx, $1", "JEQ L2",
		"JMP L3",
		"L1:", "RET",
		"L2:", "RET",
		"L3:", "RET",
	}, res.a.Lines())
}

func TestGenerator_coldLabels(t *testing.T) {
	for _, tc := range []struct {
		name   string
		blocks func() []*lir.Block
		exp    []string
	}{
		{
			name: "jump into the cold section",
			blocks: func() []*lir.Block {
				cold := returnBlock(1)
				cold.Cold = true
				return []*lir.Block{jumpBlock(0, 1), cold}
			},
			exp: []string{"L0:", "JMP L1", "L1:", "RET"},
		},
		{
			name: "unreachable cold block",
			blocks: func() []*lir.Block {
				cold := returnBlock(1)
				cold.Cold = true
				return []*lir.Block{returnBlock(0), cold}
			},
			exp: []string{"L0:", "RET", "L1:", "RET"},
		},
		{
			name: "fall through",
			blocks: func() []*lir.Block {
				return []*lir.Block{jumpBlock(0, 1), returnBlock(1)}
			},
			exp: []string{"L0:", "RET"},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := &lir.Method{Name: "cold", Blocks: tc.blocks()}
			res := generate(m, nil)
			require.Nil(t, res.err)
			require.Equal(t, tc.exp, res.a.Lines())
		})
	}
}

func TestGenerator_alignedTail(t *testing.T) {
	b0 := jumpBlock(0, 1)
	b0.Flags |= lir.BlockAlignTail
	m := &lir.Method{Name: "align", Blocks: []*lir.Block{b0, returnBlock(1)}}

	res := generate(m, nil)
	require.Nil(t, res.err)
	require.Equal(t, []string{"L0:", "ALIGN 32", "L1:", "RET"}, res.a.Lines())
	require.Contains(t, res.trace, "Adding label due to alignment")
}

func TestGenerator_throwGuard(t *testing.T) {
	for _, tc := range []struct {
		name     string
		noReturn bool
		next     func() *lir.Block
		exp      []string
	}{
		{name: "last block", exp: []string{"L0:", "BREAKPOINT"}},
		{
			name: "same region",
			next: func() *lir.Block { return returnBlock(1) },
			exp:  []string{"L0:", "RET"},
		},
		{
			name:     "same region after a call which never returns",
			noReturn: true,
			next:     func() *lir.Block { return returnBlock(1) },
			exp:      []string{"L0:", "MOV.64 $4096, r11", "CALL r11", "BREAKPOINT", "RET"},
		},
		{
			name: "other region",
			next: func() *lir.Block {
				b := returnBlock(1)
				b.Region = 1
				return b
			},
			exp: []string{"L0:", "BREAKPOINT", "RET"},
		},
		{
			name: "handler entry",
			next: func() *lir.Block {
				b := returnBlock(1)
				b.Flags |= lir.BlockHandlerEntry
				return b
			},
			exp: []string{"L0:", "BREAKPOINT", "L1:", "RET"},
		},
		{
			name: "cold block",
			next: func() *lir.Block {
				b := returnBlock(1)
				b.Cold = true
				return b
			},
			exp: []string{"L0:", "BREAKPOINT", "L1:", "RET"},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b0 := &lir.Block{ID: 0, Kind: lir.BlockThrow}
			if tc.noReturn {
				b0.Nodes = callNodes(1, true)
			}
			blocks := []*lir.Block{b0}
			if tc.next != nil {
				blocks = append(blocks, tc.next())
			}
			m := &lir.Method{Name: "throw", Blocks: blocks}

			res := generate(m, nil)
			require.Nil(t, res.err)
			require.Equal(t, tc.exp, res.a.Lines())
		})
	}
}

func TestGenerator_nopBeforeRegionChange(t *testing.T) {
	for _, tc := range []struct {
		name   string
		region uint32
		exp    []string
	}{
		{name: "same region", exp: []string{"L0:", "MOV.64 $4096, r11", "CALL r11", "RET"}},
		{name: "other region", region: 1, exp: []string{"L0:", "MOV.64 $4096, r11", "CALL r11", "NOP", "RET"}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			b1 := returnBlock(1)
			b1.Region = tc.region
			m := &lir.Method{Name: "nop", Blocks: []*lir.Block{jumpBlock(0, 1, callNodes(1, false)...), b1}}

			res := generate(m, nil)
			require.Nil(t, res.err)
			require.Equal(t, tc.exp, res.a.Lines())
		})
	}
}

func TestGenerator_malformedBlocks(t *testing.T) {
	for _, tc := range []struct {
		name    string
		blocks  func() []*lir.Block
		expErr  string
		inBlock bool
	}{
		{
			name:    "unknown kind",
			blocks:  func() []*lir.Block { return []*lir.Block{{ID: 0}} },
			expErr:  "unexpected block kind kind(0)",
			inBlock: true,
		},
		{
			name:   "unknown target",
			blocks: func() []*lir.Block { return []*lir.Block{jumpBlock(0, 9)} },
			expErr: "jump to unknown block BB09",
		},
		{
			name: "cond without jcc",
			blocks: func() []*lir.Block {
				return []*lir.Block{{ID: 0, Kind: lir.BlockCond, Target: 1, FalseTarget: 1}, returnBlock(1)}
			},
			expErr:  "cond block does not end with jcc",
			inBlock: true,
		},
		{
			name: "switch without switch",
			blocks: func() []*lir.Block {
				return []*lir.Block{{ID: 0, Kind: lir.BlockSwitch, Target: 1}, returnBlock(1)}
			},
			expErr:  "switch block does not end with switch",
			inBlock: true,
		},
		{
			name: "jump after a call which never returns",
			blocks: func() []*lir.Block {
				return []*lir.Block{jumpBlock(0, 1, callNodes(1, true)...), returnBlock(1)}
			},
			expErr:  "always ends with a call which never returns",
			inBlock: true,
		},
		{
			name: "jcc in an always block",
			blocks: func() []*lir.Block {
				b := condBlock(0, 1, 1)
				b.Kind = lir.BlockAlways
				return []*lir.Block{b, returnBlock(1)}
			},
			expErr:  "does not end a cond block",
			inBlock: true,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := &lir.Method{Name: "malformed", Blocks: tc.blocks()}
			res := generate(m, nil)
			requireInternalError(t, res, ErrKindMalformedInput, tc.expErr)
			require.Equal(t, tc.inBlock, res.err.InBlock)
		})
	}
}

func TestGenerator_gcVarsTrace(t *testing.T) {
	l := regLocal(0, lir.TypeRef, lir.RealRegInvalid)
	b0 := jumpBlock(0, 1)
	b0.LiveIn, b0.LiveOut = lir.NewVarSet(0), lir.NewVarSet(0)
	m := &lir.Method{Name: "trace", Locals: []*lir.LocalVar{l}, Blocks: []*lir.Block{b0, returnBlock(1)}}

	res := generate(m, nil)
	require.Nil(t, res.err)
	require.Equal(t, `Generating BB00
Var V00 becoming live
Added GCVars: V00
Generating BB01
Var V00 becoming dead
Removed GCVars: V00
`, res.trace)

	// BB01 is reached by falling through and needs no label.
	require.Equal(t, 1, len(res.g.Labels()))
	require.True(t, res.g.Labels()[0].GC.StackVars.Has(0))
}

func TestGenerator_varRegsAtEntry(t *testing.T) {
	l := regLocal(0, lir.TypeRef, amd64.RCX)
	b0 := jumpBlock(0, 1)
	b0.LiveIn, b0.LiveOut = lir.NewVarSet(0), lir.NewVarSet(0)

	n1 := localNode(1, l, amd64.RBX, lir.FlagVarDeath)
	var entryRegs lir.RegSet
	e := emitter{
		2: func(g *Generator, n *lir.Node) { entryRegs = g.GC().RefRegs },
		3: consumeAll,
	}
	b1 := returnBlock(1, customNode(2), n1, customNode(3, lir.Direct(n1)))
	b1.Flags |= lir.BlockHasLabel
	b1.LiveIn = lir.NewVarSet(0)
	b1.VarRegsAtEntry = map[lir.VarNum]lir.RealReg{0: amd64.RBX}
	m := &lir.Method{Name: "entry", Locals: []*lir.LocalVar{l}, Blocks: []*lir.Block{b0, b1}}

	res := generate(m, e)
	require.Nil(t, res.err)
	require.Equal(t, lir.NewRegSet(amd64.RBX), entryRegs)
	require.Equal(t, amd64.RBX, l.Reg)

	labels := res.g.Labels()
	require.Equal(t, 2, len(labels))
	require.Equal(t, lir.NewRegSet(amd64.RCX), labels[0].GC.RefRegs)
	require.Equal(t, lir.NewRegSet(amd64.RBX), labels[1].GC.RefRegs)
}

func TestGenerator_enregisteredParams(t *testing.T) {
	p := regLocal(0, lir.TypeRef, amd64.RDI)
	p.IsParam = true
	unused := regLocal(1, lir.TypeRef, amd64.RSI)
	unused.IsParam = true

	n1 := localNode(1, p, amd64.RDI, lir.FlagVarDeath)
	b0 := returnBlock(0, n1, returnNode(2, lir.Direct(n1)))
	b0.LiveIn = lir.NewVarSet(0)
	m := &lir.Method{Name: "params", ReturnType: lir.TypeRef, Locals: []*lir.LocalVar{p, unused}, Blocks: []*lir.Block{b0}}

	res := generate(m, nil)
	require.Nil(t, res.err)
	require.Equal(t, []string{"L0:", "MOV.64 rdi, rax", "RET"}, res.a.Lines())
	require.Equal(t, lir.NewRegSet(amd64.RDI), res.g.Labels()[0].GC.RefRegs)
}

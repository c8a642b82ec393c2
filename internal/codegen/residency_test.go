package codegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/lirgen/lir"
)

func TestResidency(t *testing.T) {
	var r residency
	l := &lir.LocalVar{Num: 7}
	n := &lir.Node{ID: 42}
	multi := &lir.Node{ID: 43, Regs: []lir.RealReg{4, 5}}

	r.set(1, localOwner(l))
	r.set(3, valueOwner(n, 0))
	require.Equal(t, "V07", r.owner(1).String())
	require.Equal(t, "[000042]", r.owner(3).String())
	require.Equal(t, "free", r.owner(2).String())
	require.Equal(t, "[000043]#1", valueOwner(multi, 1).String())
	require.Equal(t, 2, r.regs().Count())

	r.clear(1)
	require.False(t, r.owner(1).valid())
	require.True(t, r.regs().Has(3))

	r.reset()
	require.True(t, r.regs().Empty())
	require.False(t, r.owner(3).valid())
}

package spilltemp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/lirgen/lir"
)

func TestPool_LeaseRelease(t *testing.T) {
	p := NewPool()

	a := p.Lease(lir.TypeI32)
	require.Equal(t, 0, a.Num)
	require.Equal(t, 4, a.Size)
	require.Equal(t, int64(0), a.Offset)
	require.True(t, a.Leased())

	b := p.Lease(lir.TypeI64)
	require.Equal(t, 1, b.Num)
	require.Equal(t, 8, b.Size)
	require.Equal(t, int64(8), b.Offset) // Aligned to its size.
	require.Equal(t, int64(16), p.AreaSize())
	require.Equal(t, 2, p.LeasedCount())

	p.Release(a)
	require.False(t, a.Leased())
	require.Equal(t, 1, p.LeasedCount())

	// A compatible size reuses the released slot.
	c := p.Lease(lir.TypeU32)
	require.Same(t, a, c)
	require.Equal(t, lir.TypeU32, c.Type)
	require.Equal(t, int64(16), p.AreaSize())

	// Small types use a 4 byte slot.
	d := p.Lease(lir.TypeI8)
	require.Equal(t, 4, d.Size)
	require.Equal(t, int64(16), d.Offset)
	require.Equal(t, []*Temp{c, b, d}, p.Leased())
}

func TestPool_GCKindsAreNotMixed(t *testing.T) {
	p := NewPool()
	l := p.Lease(lir.TypeI64)
	p.Release(l)

	r := p.Lease(lir.TypeRef)
	require.NotSame(t, l, r)
	p.Release(r)

	require.Same(t, r, p.Lease(lir.TypeRef))
	require.Same(t, l, p.Lease(lir.TypeU64))
	require.NotSame(t, r, p.Lease(lir.TypeByref))
}

func TestPool_LowestOffsetFirst(t *testing.T) {
	p := NewPool()
	temps := []*Temp{p.Lease(lir.TypeI64), p.Lease(lir.TypeI64), p.Lease(lir.TypeI64)}
	for i := len(temps) - 1; i >= 0; i-- {
		p.Release(temps[i])
	}
	require.Same(t, temps[0], p.Lease(lir.TypeI64))
	require.Same(t, temps[1], p.Lease(lir.TypeI64))
}

func TestPool_ReleaseNotLeased(t *testing.T) {
	p := NewPool()
	tmp := p.Lease(lir.TypeI32)
	p.Release(tmp)
	require.Panics(t, func() { p.Release(tmp) })
	require.Panics(t, func() { p.Release(nil) })
}

func TestPool_Reset(t *testing.T) {
	p := NewPool()
	p.Lease(lir.TypeI32)
	p.Lease(lir.TypeF64)
	p.Reset()
	require.Equal(t, 0, p.LeasedCount())
	require.Equal(t, int64(0), p.AreaSize())
	require.Empty(t, p.Temps())

	tmp := p.Lease(lir.TypeF64)
	require.Equal(t, 0, tmp.Num)
	require.Equal(t, int64(0), tmp.Offset)
}

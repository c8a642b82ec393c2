package codegen

import "github.com/tetratelabs/lirgen/lir"

const stateArenaPageSize = 128

// stateArena hands out the nodeState of every node seen while generating a method.
// States live in fixed size pages so the pointers held by Generator.states stay valid
// as more nodes are seen. Pages survive reset and are reused by the next method.
type stateArena struct {
	pages []*[stateArenaPageSize]nodeState
	// used is the number of states handed out since the last reset.
	used int
}

// alloc returns a fresh state for n, which is not consumed yet nor numbered.
func (a *stateArena) alloc(n *lir.Node) *nodeState {
	page, i := a.used/stateArenaPageSize, a.used%stateArenaPageSize
	if page == len(a.pages) {
		a.pages = append(a.pages, new([stateArenaPageSize]nodeState))
	}
	s := &a.pages[page][i]
	*s = nodeState{node: n, useNum: -1}
	a.used++
	return s
}

func (a *stateArena) len() int {
	return a.used
}

// at returns the i-th state handed out since the last reset.
func (a *stateArena) at(i int) *nodeState {
	return &a.pages[i/stateArenaPageSize][i%stateArenaPageSize]
}

// reset forgets every state. Their pages are overwritten as states are handed out again.
func (a *stateArena) reset() {
	a.used = 0
}

package lir

import "fmt"

// Validate returns an error if m is not shaped the way the code generator expects:
// it must have blocks with distinct IDs, every jump must target a block of the method,
// every local must sit at its own index and every local access must name a local of m.
// Tracked indices must be distinct and every register must be below RealRegsNumMax.
//
// This does not check the register allocation itself: that is audited while generating.
func (m *Method) Validate() error {
	if len(m.Blocks) == 0 {
		return fmt.Errorf("method %s has no blocks", m.Name)
	}

	for i, l := range m.Locals {
		if l == nil {
			return fmt.Errorf("local %s is nil", VarNum(i))
		}
		if l.Num != VarNum(i) {
			return fmt.Errorf("local %s is at index %d", l.Num, i)
		}
		for _, f := range l.Fields {
			if int(f) >= len(m.Locals) {
				return fmt.Errorf("field %s of %s is not a local of %s", f, l.Num, m.Name)
			}
		}
		if err := checkReg(l.Reg); err != nil {
			return fmt.Errorf("local %s: %w", l.Num, err)
		}
		if l.Tracked {
			if first := m.TrackedLocal(l.TrackedIndex); first != l {
				return fmt.Errorf("local %s has the tracked index %d of %s", l.Num, l.TrackedIndex, first.Num)
			}
		}
	}

	ids := make(map[BlockID]struct{}, len(m.Blocks))
	for _, b := range m.Blocks {
		if _, ok := ids[b.ID]; ok {
			return fmt.Errorf("duplicate block %s", b.ID)
		}
		ids[b.ID] = struct{}{}
	}

	for _, b := range m.Blocks {
		if err := b.validateTargets(ids); err != nil {
			return fmt.Errorf("invalid %s block %s: %w", b.Kind, b.ID, err)
		}
		for v, r := range b.VarRegsAtEntry {
			if err := checkReg(r); err != nil {
				return fmt.Errorf("%s on entry of %s: %w", v, b.ID, err)
			}
		}
		for i, n := range b.Nodes {
			if n == nil {
				return fmt.Errorf("node %d of %s is nil", i, b.ID)
			}
			if err := m.validateNode(n); err != nil {
				return fmt.Errorf("invalid %s in %s: %w", n, b.ID, err)
			}
		}
	}
	return nil
}

func (b *Block) validateTargets(ids map[BlockID]struct{}) error {
	check := func(target BlockID) error {
		if _, ok := ids[target]; !ok {
			return fmt.Errorf("jumps to unknown block %s", target)
		}
		return nil
	}
	switch b.Kind {
	case BlockAlways:
		return check(b.Target)
	case BlockCond:
		if err := check(b.Target); err != nil {
			return err
		}
		return check(b.FalseTarget)
	case BlockSwitch:
		if err := check(b.Target); err != nil {
			return err
		}
		for _, target := range b.SwitchTargets {
			if err := check(target); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Method) validateNode(n *Node) error {
	if n.Op.IsLocal() && int(n.Local) >= len(m.Locals) {
		return fmt.Errorf("accesses unknown local %s", n.Local)
	}
	if err := checkRegs(n.Regs); err != nil {
		return err
	}
	if err := checkRegs(n.TempRegs); err != nil {
		return fmt.Errorf("temp %w", err)
	}
	for i, op := range n.Operands {
		if op.Node == nil {
			return fmt.Errorf("operand %d is nil", i)
		}
		if err := checkRegs(op.Regs); err != nil {
			return fmt.Errorf("operand %d: %w", i, err)
		}
		if !op.Node.IsContained() {
			continue
		}
		if err := m.validateNode(op.Node); err != nil {
			return fmt.Errorf("contained %s: %w", op.Node, err)
		}
	}
	return nil
}

func checkRegs(regs []RealReg) error {
	for _, r := range regs {
		if err := checkReg(r); err != nil {
			return err
		}
	}
	return nil
}

func checkReg(r RealReg) error {
	if r >= RealRegsNumMax {
		return fmt.Errorf("register %d is out of range", r)
	}
	return nil
}

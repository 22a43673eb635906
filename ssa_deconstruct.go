package main

// SSADeconstruct materializes every φ as predecessor-block MOVEs, then
// clears SSA indices from every operand, returning fn to plain 3AC
// (spec.md §4.9).
func SSADeconstruct(fn *Function) {
	for _, b := range fn.Blocks {
		for _, p := range b.OrderedPhis() {
			if p.Cleared() {
				continue
			}
			for i, op := range p.R {
				pred := p.Pre[i]
				if pred == nil {
					continue
				}
				if c, ok := AsConst(op); ok {
					mv := NewInstruction(fn.NextInstrName(), OpMove,
						ConstOperand{Value: c.Value}, LocalOperand{Var: p.Var, SSAIndex: -1})
					pred.InsertBeforeTerminator(mv)
				}
				// A LOCAL (SSA-named) slot needs no emitted move: every SSA
				// version of the same variable aliases the same storage
				// once SSA indices are stripped below.
			}
		}
		b.Phis = map[*LocalVariable]*Phi{}
	}

	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			for i := 0; i < in.NumArgs; i++ {
				if l, ok := AsLocal(in.Arg(i)); ok && l.SSAIndex != -1 {
					in.SetArg(i, LocalOperand{Var: l.Var, SSAIndex: -1})
				}
			}
		}
	}
}

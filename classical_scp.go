package main

// reachingDef is one (variable, defining-MOVE) pair tracked by the
// non-SSA reaching-definitions fixed point (spec.md §4.7). A function
// argument is modeled as a definition with Instr == nil, emanating from
// ENTER — its value is never known to be constant.
type reachingDef struct {
	Var   *LocalVariable
	Instr *Instruction // nil for the implicit ENTER-argument definition
}

// ClassicalConstantPropagate runs the two-stage reaching-definitions fixed
// point over fn's non-SSA CFG (spec.md §4.7).
func ClassicalConstantPropagate(fn *Function) {
	gen, kill := computeGenKill(fn)
	in, out := reachingFixedPoint(fn, gen, kill)

	for {
		changed := false
		for _, b := range fn.Blocks {
			cur := cloneDefSet(in[b])
			for _, instr := range b.Instrs {
				if instr.IsNop() {
					continue
				}
				for i := 0; i < instr.NumArgs; i++ {
					if instr.Op == OpMove && i == 1 {
						continue
					}
					op := instr.Arg(i)
					if l, ok := AsLocal(op); ok {
						if v, ok := constFromReachingDefs(cur[l.Var]); ok {
							instr.SetArg(i, ConstOperand{Value: v})
							changed = true
						}
					}
					if r, ok := AsReg(op); ok && r.Def.isConst {
						instr.SetArg(i, ConstOperand{Value: r.Def.constVal})
						changed = true
					}
				}
				if dest, ok := instr.Dest(); ok {
					cur[dest.Var] = map[*Instruction]bool{instr: true}
				}
				if instr.Op.Foldable() {
					reads := readSlots(instr)
					if allReadsConst(instr, reads) {
						v, ok := evalFold(instr.Op, constArg(instr, reads, 0), constArg(instr, reads, 1))
						if ok && (!instr.isConst || instr.constVal != v) {
							instr.isConst = true
							instr.constVal = v
							changed = true
						}
					}
				}
			}
		}
		if !changed {
			break
		}
		// Definitions didn't move, so gen/kill and the dataflow sets are
		// still valid; only operand contents changed. Recompute isconst
		// caches, which the next iteration's substitutions depend on, and
		// loop again until no operand is rewritten.
	}
	_ = out
}

func cloneDefSet(s map[*LocalVariable]map[*Instruction]bool) map[*LocalVariable]map[*Instruction]bool {
	out := make(map[*LocalVariable]map[*Instruction]bool, len(s))
	for v, defs := range s {
		d2 := make(map[*Instruction]bool, len(defs))
		for d := range defs {
			d2[d] = true
		}
		out[v] = d2
	}
	return out
}

// constFromReachingDefs reports the shared constant value of a use, if
// every reaching definition assigns the same CONST (spec.md §4.7 Stage 2).
func constFromReachingDefs(defs map[*Instruction]bool) (int64, bool) {
	if len(defs) == 0 {
		return 0, false
	}
	var val int64
	first := true
	for d := range defs {
		if d == nil || !d.isConst {
			return 0, false
		}
		if first {
			val = d.constVal
			first = false
		} else if d.constVal != val {
			return 0, false
		}
	}
	return val, true
}

// computeGenKill builds, for every block, gen (the last MOVE into each
// variable within the block) per spec.md §4.7 Stage 1. The returned kill
// map is empty: reachingFixedPoint treats a variable present in gen as
// killing every other definition of that variable.
func computeGenKill(fn *Function) (gen, kill map[*Block]map[*LocalVariable]*Instruction) {
	gen = make(map[*Block]map[*LocalVariable]*Instruction)
	kill = make(map[*Block]map[*LocalVariable]*Instruction)
	for _, b := range fn.Blocks {
		last := make(map[*LocalVariable]*Instruction)
		for _, instr := range b.Instrs {
			if instr.IsNop() {
				continue
			}
			if dest, ok := instr.Dest(); ok {
				last[dest.Var] = instr
			}
		}
		gen[b] = last
	}
	return gen, kill
}

// reachingFixedPoint propagates IN/OUT sets of (variable -> defining
// instructions) to a fixed point. A block's OUT is its gen, union the part
// of IN not killed by gen (spec.md §4.7 Stage 1).
func reachingFixedPoint(fn *Function, gen, _ map[*Block]map[*LocalVariable]*Instruction) (
	in, out map[*Block]map[*LocalVariable]map[*Instruction]bool,
) {
	in = make(map[*Block]map[*LocalVariable]map[*Instruction]bool)
	out = make(map[*Block]map[*LocalVariable]map[*Instruction]bool)
	for _, b := range fn.Blocks {
		in[b] = make(map[*LocalVariable]map[*Instruction]bool)
		out[b] = make(map[*LocalVariable]map[*Instruction]bool)
	}
	if fn.Entry != nil {
		for _, v := range fn.Vars.All() {
			in[fn.Entry][v] = map[*Instruction]bool{nil: true} // ENTER argument def
		}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range fn.Blocks {
			merged := make(map[*LocalVariable]map[*Instruction]bool)
			for _, p := range b.Preds {
				for v, defs := range out[p] {
					dst, ok := merged[v]
					if !ok {
						dst = make(map[*Instruction]bool)
						merged[v] = dst
					}
					for d := range defs {
						dst[d] = true
					}
				}
			}
			if b == fn.Entry {
				for _, v := range fn.Vars.All() {
					if merged[v] == nil {
						merged[v] = make(map[*Instruction]bool)
					}
					merged[v][nil] = true // ENTER argument def
				}
			}
			if !defSetEquals(merged, in[b]) {
				in[b] = merged
				changed = true
			}

			newOut := make(map[*LocalVariable]map[*Instruction]bool)
			for v, defs := range in[b] {
				if _, killed := gen[b][v]; killed {
					continue
				}
				newOut[v] = defs
			}
			for v, instr := range gen[b] {
				newOut[v] = map[*Instruction]bool{instr: true}
			}
			if !defSetEquals(newOut, out[b]) {
				out[b] = newOut
				changed = true
			}
		}
	}
	return in, out
}

func defSetEquals(a, b map[*LocalVariable]map[*Instruction]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v, defsA := range a {
		defsB, ok := b[v]
		if !ok || len(defsA) != len(defsB) {
			return false
		}
		for d := range defsA {
			if !defsB[d] {
				return false
			}
		}
	}
	return true
}

package main

// DCEReport summarizes how many instructions a dead-code elimination pass
// removed, split by whether they sat inside a natural loop (spec.md §4.8:
// "the pass optionally reports eliminated count split by inside/outside any
// natural loop").
type DCEReport struct {
	InLoop    int
	OutOfLoop int
}

// DeadCodeEliminate runs live-variable DCE over fn's non-SSA CFG: reverse
// dataflow over live variables and live REGs to a fixed point, then a final
// pass erasing every non-live instruction to NOP (spec.md §4.8).
func DeadCodeEliminate(fn *Function) DCEReport {
	liveIn := make(map[*Block]map[*LocalVariable]bool)
	liveOut := make(map[*Block]map[*LocalVariable]bool)
	for _, b := range fn.Blocks {
		liveIn[b] = make(map[*LocalVariable]bool)
		liveOut[b] = make(map[*LocalVariable]bool)
	}
	liveReg := make(map[*Instruction]bool)

	changed := true
	for changed {
		changed = false
		for i := len(fn.Blocks) - 1; i >= 0; i-- {
			b := fn.Blocks[i]

			out := make(map[*LocalVariable]bool)
			for _, s := range b.Successors() {
				for v := range liveIn[s] {
					out[v] = true
				}
			}
			if !varSetEquals(out, liveOut[b]) {
				liveOut[b] = out
				changed = true
			}

			cur := cloneVarSet(out)
			for j := len(b.Instrs) - 1; j >= 0; j-- {
				in := b.Instrs[j]
				if in.IsNop() {
					continue
				}
				if !isLiveInstruction(in, cur, liveReg) {
					continue
				}
				markLiveReads(in, cur, liveReg, &changed)
			}

			if !varSetEquals(cur, liveIn[b]) {
				liveIn[b] = cur
				changed = true
			}
		}
	}

	var report DCEReport
	for _, b := range fn.Blocks {
		cur := cloneVarSet(liveOut[b])
		for j := len(b.Instrs) - 1; j >= 0; j-- {
			in := b.Instrs[j]
			if in.IsNop() {
				continue
			}
			if isLiveInstruction(in, cur, liveReg) {
				var ignored bool
				markLiveReads(in, cur, liveReg, &ignored)
				continue
			}
			in.MakeNop()
			if fn.InAnyLoop(b) {
				report.InLoop++
			} else {
				report.OutOfLoop++
			}
		}
	}
	return report
}

// isLiveInstruction reports whether in must survive DCE: it is
// side-effecting (non-eliminable), or its REG result is used, or it is a
// MOVE whose written LOCAL is live out (spec.md §4.8).
func isLiveInstruction(in *Instruction, cur map[*LocalVariable]bool, liveReg map[*Instruction]bool) bool {
	if !in.Op.Eliminable() {
		return true
	}
	if liveReg[in] {
		return true
	}
	if dest, ok := in.Dest(); ok {
		return cur[dest.Var]
	}
	return false
}

// markLiveReads records a live instruction's LOCAL reads into cur and its
// REG reads into liveReg, clearing its own MOVE destination from cur first
// (spec.md §4.8: "live instructions mark their LOCAL reads into cur").
func markLiveReads(in *Instruction, cur map[*LocalVariable]bool, liveReg map[*Instruction]bool, changed *bool) {
	if dest, ok := in.Dest(); ok {
		delete(cur, dest.Var)
	}
	for k := 0; k < in.NumArgs; k++ {
		if in.Op == OpMove && k == 1 {
			continue
		}
		op := in.Arg(k)
		if l, ok := AsLocal(op); ok {
			if !cur[l.Var] {
				cur[l.Var] = true
				*changed = true
			}
		}
		if r, ok := AsReg(op); ok {
			if !liveReg[r.Def] {
				liveReg[r.Def] = true
				*changed = true
			}
		}
	}
}

func cloneVarSet(s map[*LocalVariable]bool) map[*LocalVariable]bool {
	out := make(map[*LocalVariable]bool, len(s))
	for v := range s {
		out[v] = true
	}
	return out
}

func varSetEquals(a, b map[*LocalVariable]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

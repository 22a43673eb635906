package main

// BuildSSA converts fn's blocks from flat 3AC into SSA form: φ placement at
// the iterated dominance frontier of every variable's def-sites, followed by
// dominator-tree pre-order renaming (spec.md §4.4). fn's dominator tree and
// dominance frontiers must already be computed. Grounded on the
// insertPhiNodes/varVersions/renameBlock shape of a sibling pack repo's SSA
// builder (spec.md §9 expansion).
func BuildSSA(fn *Function) {
	if fn.Entry == nil {
		return
	}
	collectDefSites(fn)
	placePhis(fn)
	rn := &renamer{
		counter: make(map[*LocalVariable]int),
		stack:   make(map[*LocalVariable][]int),
	}
	rn.renameBlock(fn.Entry)
}

// collectDefSites fills in Block.Defs: the set of variables a MOVE in that
// block assigns (spec.md §4.4, "def-site collection").
func collectDefSites(fn *Function) {
	for _, b := range fn.Blocks {
		for v := range b.Defs {
			delete(b.Defs, v)
		}
		for _, in := range b.Instrs {
			if dest, ok := in.Dest(); ok {
				b.Defs[dest.Var] = true
			}
		}
	}
}

// placePhis inserts a φ for each variable at every block in the iterated
// dominance frontier of its def-sites (spec.md §4.4, Cytron et al.'s
// classical worklist formulation).
func placePhis(fn *Function) {
	defSites := make(map[*LocalVariable]map[*Block]bool)
	for _, b := range fn.Blocks {
		for v := range b.Defs {
			sites, ok := defSites[v]
			if !ok {
				sites = make(map[*Block]bool)
				defSites[v] = sites
			}
			sites[b] = true
		}
	}

	for _, v := range fn.Vars.All() {
		defs := defSites[v]
		if len(defs) == 0 {
			continue
		}
		hasPhi := make(map[*Block]bool)
		queued := make(map[*Block]bool, len(defs))
		var worklist []*Block
		for b := range defs {
			worklist = append(worklist, b)
			queued[b] = true
		}
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, d := range b.DF {
				if hasPhi[d] {
					continue
				}
				d.PhiFor(v)
				hasPhi[d] = true
				if !defs[d] && !queued[d] {
					queued[d] = true
					worklist = append(worklist, d)
				}
			}
		}
	}
}

// renamer assigns fresh SSA indices per variable during the dominator-tree
// walk. The stack's top prior to any push is the implicit zero version,
// reserved for uninitialized reads (spec.md §4.4).
type renamer struct {
	counter map[*LocalVariable]int
	stack   map[*LocalVariable][]int
}

func (r *renamer) current(v *LocalVariable) int {
	s := r.stack[v]
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

func (r *renamer) push(v *LocalVariable) int {
	r.counter[v]++
	idx := r.counter[v]
	r.stack[v] = append(r.stack[v], idx)
	return idx
}

func (r *renamer) pop(v *LocalVariable) {
	s := r.stack[v]
	if len(s) > 0 {
		r.stack[v] = s[:len(s)-1]
	}
}

// renameBlock walks the dominator tree in pre-order, stamping every LOCAL
// read with its current SSA version, every MOVE destination with a freshly
// pushed one, and filling in this block's contribution to each successor's
// φ operand slots, before recursing into dominator children and popping
// whatever it pushed (spec.md §4.4, "Renaming").
func (r *renamer) renameBlock(b *Block) {
	var pushed []*LocalVariable

	for _, p := range b.OrderedPhis() {
		p.L = r.push(p.Var)
		pushed = append(pushed, p.Var)
	}

	for _, in := range b.Instrs {
		if in.IsNop() {
			continue
		}
		for i := 0; i < in.NumArgs; i++ {
			if in.Op == OpMove && i == 1 {
				continue // destination slot, stamped below as a write
			}
			if l, ok := AsLocal(in.Arg(i)); ok {
				in.SetArg(i, LocalOperand{Var: l.Var, SSAIndex: r.current(l.Var)})
			}
		}
		if dest, ok := in.Dest(); ok {
			idx := r.push(dest.Var)
			in.SetArg(1, LocalOperand{Var: dest.Var, SSAIndex: idx})
			pushed = append(pushed, dest.Var)
		}
	}

	for _, s := range b.Successors() {
		slot := s.PredIndex(b)
		if slot < 0 {
			continue
		}
		for _, p := range s.OrderedPhis() {
			p.SetSlot(slot, LocalOperand{Var: p.Var, SSAIndex: r.current(p.Var)}, b)
		}
	}

	for _, c := range b.DomChild {
		r.renameBlock(c)
	}

	for _, v := range pushed {
		r.pop(v)
	}
}

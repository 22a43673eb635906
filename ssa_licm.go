package main

// SSALICM hoists loop-invariant, eliminable instructions out to a
// materialized pre-header for each natural loop (spec.md §4.6). Grounded on
// a sibling pack repo's Loop/identifyLoops/findLoopInvariants/hoistInvariants
// shape (spec.md §9 expansion), adapted to operate over the already-computed
// dominator tree and natural-loop set instead of re-deriving them.
func SSALICM(fn *Function) int {
	if len(fn.Loops) == 0 {
		return 0
	}
	localProducer := buildLocalProducerMap(fn)

	blocks := append([]*Block(nil), fn.Blocks...)
	sortBlocksByLoopDepth(fn, blocks)

	pending := make(map[*Block][]*Instruction)
	for _, b := range blocks {
		for _, in := range b.Instrs {
			if in.IsNop() || !in.Op.Eliminable() {
				continue
			}
			target := hoistTarget(fn, b, in, localProducer)
			if target == nil {
				continue
			}
			pending[target] = append(pending[target], in)
		}
	}

	hoisted := 0
	for header, instrs := range pending {
		loop := fn.Loops[header]
		pre := materializePreheader(fn, header, loop)
		if pre == header {
			continue // no external entry; nothing to hoist into
		}
		for _, in := range instrs {
			removeInstr(in.Block, in)
			in.Block = pre
			pre.Instrs = append(pre.Instrs, in)
			hoisted++
		}
	}
	return hoisted
}

// buildLocalProducerMap maps every SSA-LOCAL destination to its defining
// block (spec.md §4.6: "map producer(operand) -> defining block"). REG
// producers need no map: a RegOperand already points at its defining
// instruction, whose Block field is the producer.
func buildLocalProducerMap(fn *Function) map[ssaLocalKey]*Block {
	m := make(map[ssaLocalKey]*Block)
	for _, b := range fn.Blocks {
		for _, p := range b.OrderedPhis() {
			if !p.Cleared() {
				m[ssaLocalKey{p.Var, p.L}] = b
			}
		}
		for _, in := range b.Instrs {
			if dest, ok := in.Dest(); ok {
				m[ssaLocalKey{dest.Var, dest.SSAIndex}] = b
			}
		}
	}
	return m
}

func producerBlock(op Operand, localProducer map[ssaLocalKey]*Block) *Block {
	if l, ok := AsLocal(op); ok {
		return localProducer[ssaLocalKey{l.Var, l.SSAIndex}]
	}
	if r, ok := AsReg(op); ok {
		return r.Def.Block
	}
	return nil
}

// hoistTarget walks from b up the dominator tree, testing the header of each
// loop that contains b as a hoist target; the outermost one for which
// neither operand producer lies inside the loop wins (spec.md §4.6).
func hoistTarget(fn *Function, b *Block, in *Instruction, localProducer map[ssaLocalKey]*Block) *Block {
	var best *Block
	for cur := b; cur != nil; cur = cur.IDom {
		loop, isHeader := fn.Loops[cur]
		if !isHeader || !loop.Contains(b) {
			continue
		}
		if validHoistTarget(in, loop, localProducer) {
			best = cur
		}
	}
	return best
}

func validHoistTarget(in *Instruction, loop *LoopSet, localProducer map[ssaLocalKey]*Block) bool {
	for _, i := range readSlots(in) {
		p := producerBlock(in.Arg(i), localProducer)
		if p != nil && loop.Contains(p) {
			return false
		}
	}
	return true
}

func sortBlocksByLoopDepth(fn *Function, blocks []*Block) {
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && fn.DepthOf(blocks[j]) < fn.DepthOf(blocks[j-1]); j-- {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
		}
	}
}

func removeInstr(b *Block, in *Instruction) {
	for i, x := range b.Instrs {
		if x == in {
			b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
			return
		}
	}
}

// materializePreheader inserts a new block between header and its
// non-loop ("forward") predecessors, leaving back-edge predecessors
// attached to header directly, and returns it. The new block is spliced
// into fn.Blocks immediately before header — RenumberLive and Emit3AC
// walk fn.Blocks in slice order and rely on positional fallthrough to
// express SeqNext, so a pre-header left trailing at the end (where
// fn.NewBlock appends it) would emit after the function's RET and never
// execute. If header has no forward predecessor (e.g. an already-
// irreducible or headerless entry loop), header itself is returned and
// the caller must not hoist into it.
//
// Simplification: when more than one forward predecessor feeds a header φ
// with distinct values, they collapse onto the pre-header's single φ slot
// using the first encountered value — correct for the common case of one
// forward predecessor, which is how the loops this pass targets are
// constructed (spec.md §4.6).
func materializePreheader(fn *Function, header *Block, loop *LoopSet) *Block {
	var forwardSet = make(map[int]bool)
	for i, p := range header.Preds {
		if !loop.Contains(p) {
			forwardSet[i] = true
		}
	}
	if len(forwardSet) == 0 {
		return header
	}

	pre := fn.NewBlock()
	fn.InsertBlockBefore(pre, header)
	pre.SeqNext = header

	newPreds := make([]*Block, 0, len(header.Preds))
	preSlot := -1
	for i, p := range header.Preds {
		if !forwardSet[i] {
			newPreds = append(newPreds, p)
			continue
		}
		if preSlot < 0 {
			preSlot = len(newPreds)
			newPreds = append(newPreds, pre)
		}
		pre.Preds = append(pre.Preds, p)
		retargetBranch(p, header, pre)
		if p.SeqNext == header {
			p.SeqNext = pre
		}
		if p.BrNext == header {
			p.BrNext = pre
		}
	}

	for _, ph := range header.OrderedPhis() {
		if ph.Cleared() {
			continue
		}
		newR := make([]Operand, len(newPreds))
		newPre := make([]*Block, len(newPreds))
		j := 0
		var merged Operand
		haveMerged := false
		for i, p := range header.Preds {
			if forwardSet[i] {
				if !haveMerged {
					merged = ph.R[i]
					haveMerged = true
				}
				continue
			}
			newR[j] = ph.R[i]
			newPre[j] = p
			j++
		}
		newR[preSlot] = merged
		newPre[preSlot] = pre
		ph.R = newR
		ph.Pre = newPre
	}
	header.Preds = newPreds
	return pre
}

func retargetBranch(p, from, to *Block) {
	term := p.Terminator()
	if term != nil && term.Op.IsBranch() && term.BranchTarget() == from {
		term.SetBranchTarget(to)
	}
}

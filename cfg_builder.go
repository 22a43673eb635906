package main

import "sort"

// pendingRef records an operand slot whose REG/LABEL/FUNC resolution must
// wait until every instruction and block exists (spec.md §4.1 step 3).
type pendingRef struct {
	instr   *Instruction
	slot    int
	refAddr int
	isFunc  bool // CALL's single operand: resolve to FuncOperand, not LabelOperand
}

// BuildProgram partitions a flat instruction sequence into functions and
// basic blocks, resolving every operand back-reference (spec.md §4.1).
func BuildProgram(raws []RawInstr) (*Program, error) {
	ranges, err := splitFunctionRanges(raws)
	if err != nil {
		return nil, err
	}
	if !anyMain(ranges) {
		return nil, structuralErrorf("program has no main function")
	}
	for i := range ranges {
		if ranges[i].isMain {
			ranges[i].name = "main"
		}
	}

	addrToInstr := make(map[int]*Instruction)
	addrToBlock := make(map[int]*Block)

	prog := NewProgram()
	var pending []pendingRef

	for _, fr := range ranges {
		fn := NewFunction(fr.name)
		prog.AddFunction(fn, fr.isMain)

		boundaries := computeBoundaries(raws, fr)
		blocks := emitBlocks(fn, raws, fr, boundaries)

		for _, blk := range blocks {
			for _, raw := range blk.raws {
				in := NewInstruction(raw.Addr, raw.Op)
				in.NumArgs = len(raw.Args)
				for i, a := range raw.Args {
					switch a.Kind {
					case rawGP:
						in.Args[i] = GPOperand{}
					case rawFP:
						in.Args[i] = FPOperand{}
					case rawConst:
						in.Args[i] = ConstOperand{Value: a.IntVal, Tag: a.Tag}
					case rawLocal:
						in.Args[i] = LocalOperand{Var: fn.Vars.Intern(fn, a.Name, a.RefAddr), SSAIndex: -1}
					case rawReg:
						pending = append(pending, pendingRef{instr: in, slot: i, refAddr: a.RefAddr})
					case rawLabel:
						pending = append(pending, pendingRef{instr: in, slot: i, refAddr: a.RefAddr, isFunc: raw.Op == OpCall})
					}
				}
				blk.block.Append(in)
				addrToInstr[raw.Addr] = in
				fn.SeedInstrName(raw.Addr)
			}
			addrToBlock[blockFirstAddr(blk)] = blk.block
		}
		if len(fn.Blocks) > 0 {
			fn.Entry = fn.Blocks[0]
		}
	}

	for _, pr := range pending {
		target, ok := addrToInstr[pr.refAddr]
		if !ok {
			return nil, structuralErrorf("dangling reference to instruction %d", pr.refAddr)
		}
		if pr.isFunc {
			pr.instr.SetArg(pr.slot, FuncOperand{Fn: target.Block.Fn})
			continue
		}
		if pr.instr.Op.IsBranch() && pr.slot == pr.instr.Op.BranchTargetSlot() {
			pr.instr.SetArg(pr.slot, LabelOperand{Target: target.Block})
		} else {
			pr.instr.SetArg(pr.slot, RegOperand{Def: target})
		}
	}

	for _, fn := range prog.Functions {
		wireSuccessors(fn)
	}

	return prog, nil
}

type funcRange struct {
	name         string
	start, end   int // indices into raws, inclusive, end is the RET
	isMain       bool
}

// splitFunctionRanges scans for ENTER..RET spans (spec.md §4.1 step 1),
// enforcing the structural invariants of spec.md §7.
func splitFunctionRanges(raws []RawInstr) ([]funcRange, error) {
	var ranges []funcRange
	inFunc := false
	var cur funcRange
	n := 1
	for i, r := range raws {
		switch r.Op {
		case OpEnter:
			if inFunc {
				return nil, structuralErrorf("nested ENTER at instruction %d", r.Addr)
			}
			inFunc = true
			cur = funcRange{start: i, name: funcLabel(n)}
			n++
			if i > 0 && raws[i-1].Op == OpEntryPC {
				cur.isMain = true
			}
		case OpRet:
			if !inFunc {
				return nil, structuralErrorf("RET without matching ENTER at instruction %d", r.Addr)
			}
			cur.end = i
			ranges = append(ranges, cur)
			inFunc = false
		}
	}
	if inFunc {
		return nil, structuralErrorf("ENTER without matching RET")
	}
	return ranges, nil
}

func funcLabel(n int) string {
	return "func" + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func anyMain(ranges []funcRange) bool {
	for _, r := range ranges {
		if r.isMain {
			return true
		}
	}
	return false
}

// computeBoundaries finds every address within fr that starts a new block:
// fr.start itself, the instruction after every branch/RET/CALL, and every
// explicit branch target (spec.md §4.1 step 2).
func computeBoundaries(raws []RawInstr, fr funcRange) []int {
	set := map[int]bool{raws[fr.start].Addr: true}
	for i := fr.start; i <= fr.end; i++ {
		r := raws[i]
		if r.Op.IsTerminator() || r.Op == OpCall {
			if i+1 <= fr.end {
				set[raws[i+1].Addr] = true
			}
		}
		if r.Op.IsBranch() {
			slot := r.Op.BranchTargetSlot()
			if slot < len(r.Args) && r.Args[slot].Kind == rawLabel {
				set[r.Args[slot].RefAddr] = true
			}
		}
	}
	addrs := make([]int, 0, len(set))
	for a := range set {
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)
	return addrs
}

type builtBlock struct {
	block *Block
	raws  []RawInstr
}

func blockFirstAddr(b builtBlock) int {
	if len(b.raws) == 0 {
		return -1
	}
	return b.raws[0].Addr
}

// emitBlocks creates Blocks as half-open ranges between consecutive
// boundary addresses (spec.md §4.1 step 3/4).
func emitBlocks(fn *Function, raws []RawInstr, fr funcRange, boundaries []int) []builtBlock {
	addrToIdx := make(map[int]int, fr.end-fr.start+1)
	for i := fr.start; i <= fr.end; i++ {
		addrToIdx[raws[i].Addr] = i
	}

	var out []builtBlock
	for k, addr := range boundaries {
		startIdx := addrToIdx[addr]
		endIdx := fr.end
		if k+1 < len(boundaries) {
			endIdx = addrToIdx[boundaries[k+1]] - 1
		}
		blk := fn.NewBlock()
		out = append(out, builtBlock{block: blk, raws: raws[startIdx : endIdx+1]})
	}
	return out
}

// wireSuccessors sets seq_next/br_next and predecessor lists for every
// block in fn, in block-index order so predecessor ordering is stable and
// deterministic from construction onward (spec.md §3, §4.1 step 4).
func wireSuccessors(fn *Function) {
	for _, b := range fn.Blocks {
		term := b.Terminator()
		next := nextBlockInFunc(fn, b)
		switch {
		case term != nil && term.Op == OpBr:
			b.BrNext = term.BranchTarget()
		case term != nil && term.Op == OpRet:
			// no successors
		case term != nil && (term.Op == OpBlbc || term.Op == OpBlbs):
			b.SeqNext = next
			b.BrNext = term.BranchTarget()
		default:
			b.SeqNext = next
		}
		if b.SeqNext != nil {
			b.SeqNext.AddPred(b)
		}
		if b.BrNext != nil {
			b.BrNext.AddPred(b)
		}
	}
}

func nextBlockInFunc(fn *Function, b *Block) *Block {
	if b.Index+1 < len(fn.Blocks) {
		return fn.Blocks[b.Index+1]
	}
	return nil
}

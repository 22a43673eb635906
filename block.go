package main

// Block is a contiguous run of instructions ending in at most one
// control-transfer instruction (spec.md §3).
type Block struct {
	Index int // position in Function.Blocks; Function.InsertBlockBefore renumbers it
	Instrs []*Instruction

	SeqNext *Block // fall-through successor, nil if terminator is BR/RET
	BrNext  *Block // branch successor, nil unless terminator is a branch

	// Preds is ordered; slot i is the predecessor that feeds φ operand
	// slot i in every φ hosted by this block (spec.md §3, §4.4).
	Preds []*Block

	IDom     *Block
	DomChild []*Block
	DF       []*Block // dominance frontier

	Defs map[*LocalVariable]bool  // variables assigned in this block
	Phis map[*LocalVariable]*Phi

	Fn *Function
}

// NewBlock allocates an empty block owned by fn.
func NewBlock(fn *Function, index int) *Block {
	return &Block{
		Index: index,
		Defs:  make(map[*LocalVariable]bool),
		Phis:  make(map[*LocalVariable]*Phi),
		Fn:    fn,
	}
}

// Successors returns the (at most two) CFG successors in the canonical
// order seq_next, br_next, skipping nils.
func (b *Block) Successors() []*Block {
	var out []*Block
	if b.SeqNext != nil {
		out = append(out, b.SeqNext)
	}
	if b.BrNext != nil {
		out = append(out, b.BrNext)
	}
	return out
}

// PredIndex returns the slot of pred within b.Preds, or -1.
func (b *Block) PredIndex(pred *Block) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}
	return -1
}

// AddPred appends pred to the predecessor list, establishing its φ slot.
func (b *Block) AddPred(pred *Block) {
	b.Preds = append(b.Preds, pred)
}

// Terminator returns the block's last instruction, or nil if empty.
func (b *Block) Terminator() *Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[len(b.Instrs)-1]
}

// Append adds an instruction to the end of the block.
func (b *Block) Append(in *Instruction) {
	in.Block = b
	b.Instrs = append(b.Instrs, in)
}

// InsertBeforeTerminator inserts in just before the block's terminator if
// the terminator is a branch, or at the end otherwise (spec.md §4.9).
func (b *Block) InsertBeforeTerminator(in *Instruction) {
	in.Block = b
	if term := b.Terminator(); term != nil && term.Op.IsBranch() {
		last := len(b.Instrs) - 1
		b.Instrs = append(b.Instrs, nil)
		copy(b.Instrs[last+1:], b.Instrs[last:last+1])
		b.Instrs[last] = in
		return
	}
	b.Instrs = append(b.Instrs, in)
}

// PhiFor returns (creating if needed, sized to len(Preds)) the φ for v hosted
// by this block.
func (b *Block) PhiFor(v *LocalVariable) *Phi {
	if p, ok := b.Phis[v]; ok {
		return p
	}
	p := NewPhi(v, b, len(b.Preds))
	b.Phis[v] = p
	return p
}

// OrderedPhis returns the block's φs in a deterministic order (by variable
// offset), for stable emission and dumps.
func (b *Block) OrderedPhis() []*Phi {
	out := make([]*Phi, 0, len(b.Phis))
	for _, p := range b.Phis {
		out = append(out, p)
	}
	sortPhisByOffset(out)
	return out
}

func sortPhisByOffset(phis []*Phi) {
	for i := 1; i < len(phis); i++ {
		for j := i; j > 0 && phis[j].Var.Offset < phis[j-1].Var.Offset; j-- {
			phis[j], phis[j-1] = phis[j-1], phis[j]
		}
	}
}

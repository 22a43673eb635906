package main

// Phi is owned by a (block, variable) pair. R is aligned with the host
// block's predecessor list; Pre parallels R with the originating predecessor
// block, so a cleared φ (both empty) is semantically absent (spec.md §3).
type Phi struct {
	Var   *LocalVariable
	Block *Block
	L     int // assigned SSA index for the defined value

	R   []Operand
	Pre []*Block
}

// NewPhi allocates a φ sized to numPreds predecessor slots.
func NewPhi(v *LocalVariable, b *Block, numPreds int) *Phi {
	return &Phi{
		Var:   v,
		Block: b,
		R:     make([]Operand, numPreds),
		Pre:   make([]*Block, numPreds),
	}
}

// Cleared reports whether the φ has been collapsed away (both vectors
// emptied — spec.md §3).
func (p *Phi) Cleared() bool {
	return len(p.R) == 0 && len(p.Pre) == 0
}

// Clear empties both vectors, marking the φ semantically absent.
func (p *Phi) Clear() {
	p.R = nil
	p.Pre = nil
}

// SetSlot records the SSA value reaching this φ along predecessor pred,
// which must occupy slot i in Block.Preds (spec.md §4.4 step 3).
func (p *Phi) SetSlot(i int, op Operand, pred *Block) {
	p.R[i] = op
	p.Pre[i] = pred
}

package main

// Function holds one function's entry block, block list (insertion order),
// local variable table, natural loops, and frame metadata (spec.md §3).
type Function struct {
	Name    string // textual label used only for dumps/reports
	Entry   *Block
	Blocks  []*Block
	Vars    *VarTable
	Loops   map[*Block]*LoopSet // header -> member blocks, including header
	FrameSz int
	ArgCnt  int
	IsMain  bool

	nextInstrName int
}

// NewFunction allocates an empty function.
func NewFunction(name string) *Function {
	return &Function{
		Name:  name,
		Vars:  NewVarTable(),
		Loops: make(map[*Block]*LoopSet),
	}
}

// NewBlock allocates and appends a new block to the function.
func (fn *Function) NewBlock() *Block {
	b := NewBlock(fn, len(fn.Blocks))
	fn.Blocks = append(fn.Blocks, b)
	return b
}

// InsertBlockBefore splices b — which must currently be the last element of
// fn.Blocks, as fn.NewBlock leaves it — into fn.Blocks immediately before
// before, renumbering Index for b and every block shifted after it.
// RenumberLive and Emit3AC walk fn.Blocks in this slice order (spec.md
// §4.10, §6), so a block created mid-pipeline (e.g. LICM's pre-header)
// must be spliced into position rather than left trailing at the end.
func (fn *Function) InsertBlockBefore(b, before *Block) {
	n := len(fn.Blocks)
	fn.Blocks = fn.Blocks[:n-1] // drop b from the tail fn.NewBlock left it at
	idx := before.Index
	fn.Blocks = append(fn.Blocks, nil)
	copy(fn.Blocks[idx+1:], fn.Blocks[idx:n-1])
	fn.Blocks[idx] = b
	for i := idx; i < len(fn.Blocks); i++ {
		fn.Blocks[i].Index = i
	}
}

// NextInstrName returns a fresh monotone instruction name.
func (fn *Function) NextInstrName() int {
	fn.nextInstrName++
	return fn.nextInstrName
}

// SeedInstrName ensures subsequent NextInstrName calls stay past n.
func (fn *Function) SeedInstrName(n int) {
	if n > fn.nextInstrName {
		fn.nextInstrName = n
	}
}

// AllInstructions walks every live and dead instruction across all blocks,
// in block then in-block order.
func (fn *Function) AllInstructions() []*Instruction {
	var out []*Instruction
	for _, b := range fn.Blocks {
		out = append(out, b.Instrs...)
	}
	return out
}

// LiveInstructions is AllInstructions filtered to non-NOP.
func (fn *Function) LiveInstructions() []*Instruction {
	var out []*Instruction
	for _, in := range fn.AllInstructions() {
		if !in.IsNop() {
			out = append(out, in)
		}
	}
	return out
}

// LoopSet is a natural loop: its header and the flat sorted set of member
// blocks (including the header), per spec.md §9's "flat sorted vector"
// design note.
type LoopSet struct {
	Header  *Block
	Members []*Block // sorted by Index, header included
}

// Contains reports whether b is a member of the loop.
func (l *LoopSet) Contains(b *Block) bool {
	for _, m := range l.Members {
		if m == b {
			return true
		}
	}
	return false
}

// DepthOf returns how many of fn's natural loops contain b (spec.md §4.6:
// "the number of loops that contain it").
func (fn *Function) DepthOf(b *Block) int {
	n := 0
	for _, loop := range fn.Loops {
		if loop.Contains(b) {
			n++
		}
	}
	return n
}

// InAnyLoop reports whether b belongs to at least one natural loop.
func (fn *Function) InAnyLoop(b *Block) bool {
	return fn.DepthOf(b) > 0
}

package main

import "strings"

// Instruction is a single 3AC instruction. Name is its monotone identity and
// doubles as its pseudo-register when other instructions reference its
// result via a RegOperand (spec.md §3).
type Instruction struct {
	Name    int
	Op      Opcode
	Args    [2]Operand
	NumArgs int

	Block *Block

	// constVal/isConst cache a folded constant result so later passes (and
	// classical SCP's isconst/constvalue lookups, spec.md §4.7) don't need
	// to re-derive it from a NOP'd-out instruction.
	isConst  bool
	constVal int64
}

// NewInstruction builds an instruction with up to two operands.
func NewInstruction(name int, op Opcode, args ...Operand) *Instruction {
	in := &Instruction{Name: name, Op: op, NumArgs: len(args)}
	for i, a := range args {
		in.Args[i] = a
	}
	return in
}

// Arg returns operand i, or nil if the instruction doesn't carry that many.
func (in *Instruction) Arg(i int) Operand {
	if i < 0 || i >= in.NumArgs {
		return nil
	}
	return in.Args[i]
}

// SetArg replaces operand i in place.
func (in *Instruction) SetArg(i int, op Operand) {
	in.Args[i] = op
}

// BranchTarget returns the Block a branch/BR instruction targets, or nil.
func (in *Instruction) BranchTarget() *Block {
	if !in.Op.IsBranch() {
		return nil
	}
	lbl, ok := in.Arg(in.Op.BranchTargetSlot()).(LabelOperand)
	if !ok {
		return nil
	}
	return lbl.Target
}

// SetBranchTarget retargets a branch instruction's LabelOperand.
func (in *Instruction) SetBranchTarget(b *Block) {
	in.SetArg(in.Op.BranchTargetSlot(), LabelOperand{Target: b})
}

// Dest returns the LocalOperand written by a MOVE instruction, if any.
func (in *Instruction) Dest() (LocalOperand, bool) {
	if in.Op != OpMove {
		return LocalOperand{}, false
	}
	return AsLocal(in.Arg(1))
}

// MakeNop turns this instruction into a NOP in place, preserving Name so
// later renaming can still identify gaps (spec.md §4.8, §4.10).
func (in *Instruction) MakeNop() {
	in.Op = OpNop
	in.Args = [2]Operand{}
	in.NumArgs = 0
}

// IsNop reports whether the instruction has been eliminated.
func (in *Instruction) IsNop() bool {
	return in.Op == OpNop
}

// String renders the instruction in the input/output textual form
// (spec.md §6), without the leading "instr N:" prefix.
func (in *Instruction) String() string {
	var b strings.Builder
	b.WriteString(in.Op.String())
	for i := 0; i < in.NumArgs; i++ {
		b.WriteByte(' ')
		b.WriteString(in.Args[i].String())
	}
	return b.String()
}

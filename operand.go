package main

import "fmt"

// Operand is a sum type over the operand kinds named in spec.md §3. Each
// kind carries only the fields relevant to it — no shared raw numeric field
// that could be reinterpreted across kinds (spec.md §9 Design Notes).
type Operand interface {
	isOperand()
	String() string
}

// GPOperand is the global-pointer symbol operand.
type GPOperand struct{}

func (GPOperand) isOperand()     {}
func (GPOperand) String() string { return "GP" }

// FPOperand is the frame-pointer symbol operand.
type FPOperand struct{}

func (FPOperand) isOperand()     {}
func (FPOperand) String() string { return "FP" }

// ConstOperand is a 64-bit signed constant. Tag is display-only — it never
// participates in folding or comparison semantics (spec.md §3 invariant).
type ConstOperand struct {
	Value int64
	Tag   string
}

func (ConstOperand) isOperand() {}
func (c ConstOperand) String() string {
	if c.Tag != "" {
		return c.Tag
	}
	return fmt.Sprintf("%d", c.Value)
}

// LocalOperand references a local variable, optionally SSA-versioned.
// SSAIndex is -1 in non-SSA form (spec.md §3 invariant).
type LocalOperand struct {
	Var      *LocalVariable
	SSAIndex int
}

func (LocalOperand) isOperand() {}
func (l LocalOperand) String() string {
	if l.SSAIndex < 0 {
		return fmt.Sprintf("%s#%d", l.Var.Name, l.Var.Offset)
	}
	return fmt.Sprintf("%s#%d.%d", l.Var.Name, l.Var.Offset, l.SSAIndex)
}

// RegOperand references the defining instruction's result register.
type RegOperand struct {
	Def *Instruction
}

func (RegOperand) isOperand()     {}
func (r RegOperand) String() string { return fmt.Sprintf("(%d)", r.Def.Name) }

// LabelOperand references a branch target block.
type LabelOperand struct {
	Target *Block
}

func (LabelOperand) isOperand() {}
func (l LabelOperand) String() string {
	if n := BlockName(l.Target); n >= 0 {
		return fmt.Sprintf("[%d]", n)
	}
	return "[?]"
}

// FuncOperand references a callee function.
type FuncOperand struct {
	Fn *Function
}

func (FuncOperand) isOperand()     {}
func (f FuncOperand) String() string { return fmt.Sprintf("[%d]", BlockName(f.Fn.Entry)) }

// AsLocal type-asserts an operand to LocalOperand, reporting ok.
func AsLocal(op Operand) (LocalOperand, bool) {
	l, ok := op.(LocalOperand)
	return l, ok
}

// AsConst type-asserts an operand to ConstOperand, reporting ok.
func AsConst(op Operand) (ConstOperand, bool) {
	c, ok := op.(ConstOperand)
	return c, ok
}

// AsReg type-asserts an operand to RegOperand, reporting ok.
func AsReg(op Operand) (RegOperand, bool) {
	r, ok := op.(RegOperand)
	return r, ok
}

// SameLocal reports whether two operands name the same LocalVariable,
// ignoring SSA index.
func SameLocal(a, b Operand) bool {
	la, ok := AsLocal(a)
	if !ok {
		return false
	}
	lb, ok := AsLocal(b)
	if !ok {
		return false
	}
	return la.Var == lb.Var
}

package main

// Opcode is the closed set of 3AC instruction kinds. PHI only ever appears
// after SSA construction; it has no textual form in the input grammar.
type Opcode int

const (
	OpNop Opcode = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpCmpEQ
	OpCmpLE
	OpCmpLT
	OpBr
	OpBlbc
	OpBlbs
	OpCall
	OpRet
	OpLoad
	OpStore
	OpMove
	OpRead
	OpWrite
	OpWrl
	OpParam
	OpEnter
	OpEntryPC
	OpPhi
	OpUnknown
)

var opcodeNames = map[Opcode]string{
	OpNop:     "nop",
	OpAdd:     "add",
	OpSub:     "sub",
	OpMul:     "mul",
	OpDiv:     "div",
	OpMod:     "mod",
	OpNeg:     "neg",
	OpCmpEQ:   "cmpeq",
	OpCmpLE:   "cmple",
	OpCmpLT:   "cmplt",
	OpBr:      "br",
	OpBlbc:    "blbc",
	OpBlbs:    "blbs",
	OpCall:    "call",
	OpRet:     "ret",
	OpLoad:    "load",
	OpStore:   "store",
	OpMove:    "move",
	OpRead:    "read",
	OpWrite:   "write",
	OpWrl:     "wrl",
	OpParam:   "param",
	OpEnter:   "enter",
	OpEntryPC: "entrypc",
	OpPhi:     "phi",
	OpUnknown: "unknown",
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

// String renders the opcode in its textual input/output form.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "unknown"
}

// LookupOpcode resolves a textual opname to its Opcode, reporting ok=false
// for anything not in the fixed grammar (spec.md §6).
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// Arity is the fixed operand count for an opcode (spec.md §6).
func (op Opcode) Arity() int {
	switch op {
	case OpNeg, OpBr, OpCall, OpLoad, OpWrite, OpParam, OpEnter, OpRet:
		return 1
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpCmpEQ, OpCmpLE, OpCmpLT,
		OpBlbc, OpBlbs, OpStore, OpMove:
		return 2
	default:
		return 0
	}
}

// IsBranch reports whether op is a control-transfer instruction that
// terminates a basic block with a branch successor (as opposed to a plain
// fall-through or return).
func (op Opcode) IsBranch() bool {
	return op == OpBr || op == OpBlbc || op == OpBlbs
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool {
	return op.IsBranch() || op == OpRet
}

// BranchTargetSlot returns the operand index that carries the branch target
// for a branch opcode (spec.md §3: slot 0 for BR, slot 1 for BLBC/BLBS).
func (op Opcode) BranchTargetSlot() int {
	if op == OpBr {
		return 0
	}
	return 1
}

// Eliminable reports whether an instruction of this opcode may be removed by
// dead-code elimination when its result is unused, or hoisted by LICM — i.e.
// it has no side effect other than producing its result (spec.md §4.8/§4.6).
func (op Opcode) Eliminable() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpNeg,
		OpCmpEQ, OpCmpLE, OpCmpLT, OpLoad, OpMove:
		return true
	default:
		return false
	}
}

// Foldable reports whether an instruction of this opcode can be constant
// folded once all its right-hand-side operands are constants (spec.md §4.5).
func (op Opcode) Foldable() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpNeg,
		OpCmpEQ, OpCmpLE, OpCmpLT, OpMove:
		return true
	default:
		return false
	}
}

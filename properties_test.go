package main

import "testing"

// loopFixture builds a tight `i = 0; while (i < 10) { i = i + 1 }` function:
// b0 (entry) -> b1 (header, cmplt/blbc) -> b2 (body, add/move/br back to b1)
// with b3 as the loop exit, matching spec.md's S2 shape before optimization.
func loopFixture(t *testing.T) *Program {
	t.Helper()
	src := "instr 1: entrypc\n" +
		"instr 2: enter 0\n" +
		"instr 3: move 0 i#-8\n" +
		"instr 4: cmplt i#-8 10\n" +
		"instr 5: blbc (4) [9]\n" +
		"instr 6: add i#-8 1\n" +
		"instr 7: move (6) i#-8\n" +
		"instr 8: br [4]\n" +
		"instr 9: ret 0\n"
	return buildFrom(t, src)
}

func blockByFirstAddr(fn *Function, addr int) *Block {
	for _, b := range fn.Blocks {
		if len(b.Instrs) > 0 && b.Instrs[0].Name == addr {
			return b
		}
	}
	return nil
}

// TestCFGWellFormedness covers property 1: successors differ when both
// present, every successor lists this block as a predecessor, and the
// header/body back-edge is wired as expected.
func TestCFGWellFormedness(t *testing.T) {
	prog := loopFixture(t)
	fn := prog.Main

	header := blockByFirstAddr(fn, 4)
	body := blockByFirstAddr(fn, 6)
	exit := blockByFirstAddr(fn, 9)
	if header == nil || body == nil || exit == nil {
		t.Fatalf("expected blocks at addrs 4, 6, 9; got header=%v body=%v exit=%v", header, body, exit)
	}

	if header.SeqNext != body || header.BrNext != exit {
		t.Errorf("header successors: want seq=body br=exit, got seq=%v br=%v", header.SeqNext, header.BrNext)
	}
	if header.SeqNext == header.BrNext {
		t.Error("header's two successors must differ")
	}

	for _, b := range fn.Blocks {
		for _, s := range b.Successors() {
			if s.PredIndex(b) < 0 {
				t.Errorf("block at %v is a successor of %v but doesn't list it as a predecessor",
					blockAddr(s), blockAddr(b))
			}
		}
	}

	if body.BrNext != header {
		t.Errorf("loop body's back-edge must target the header")
	}
}

func blockAddr(b *Block) int {
	if b == nil || len(b.Instrs) == 0 {
		return -1
	}
	return b.Instrs[0].Name
}

// TestDominatorTreeIsATree covers property 2: every non-entry block has
// exactly one immediate dominator, and following idom from any block
// reaches the entry.
func TestDominatorTreeIsATree(t *testing.T) {
	prog := loopFixture(t)
	fn := prog.Main

	for _, b := range fn.Blocks {
		if b == fn.Entry {
			if b.IDom != nil {
				t.Errorf("entry block must have a nil idom, got %v", blockAddr(b.IDom))
			}
			continue
		}
		if b.IDom == nil {
			t.Fatalf("block at %d has no immediate dominator", blockAddr(b))
		}
		seen := map[*Block]bool{b: true}
		cur := b
		for cur != fn.Entry {
			if cur.IDom == nil {
				t.Fatalf("idom chain from block %d never reaches entry", blockAddr(b))
			}
			if seen[cur.IDom] {
				t.Fatalf("idom chain from block %d cycles", blockAddr(b))
			}
			seen[cur.IDom] = true
			cur = cur.IDom
		}
	}
}

// TestDominanceFrontierCorrectness covers property 3 on the loop fixture:
// the header is its own dominance frontier member (it's a loop header), and
// the body's frontier is exactly the header.
func TestDominanceFrontierCorrectness(t *testing.T) {
	prog := loopFixture(t)
	fn := prog.Main
	header := blockByFirstAddr(fn, 4)
	body := blockByFirstAddr(fn, 6)

	if len(body.DF) != 1 || body.DF[0] != header {
		t.Errorf("DF(body): want {header}, got %v", blockAddrs(body.DF))
	}
	foundSelf := false
	for _, y := range header.DF {
		if y == header {
			foundSelf = true
		}
	}
	if !foundSelf {
		t.Errorf("DF(header): want to include header itself (loop header), got %v", blockAddrs(header.DF))
	}
}

func blockAddrs(bs []*Block) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		out[i] = blockAddr(b)
	}
	return out
}

// TestSSASingleAssignment covers property 4: after BuildSSA, every
// SSA-versioned LOCAL destination is written by exactly one instruction
// (MOVE or φ) in the function.
func TestSSASingleAssignment(t *testing.T) {
	prog := loopFixture(t)
	fn := prog.Main
	BuildSSA(fn)

	defCount := map[string]int{}
	for _, in := range fn.LiveInstructions() {
		if dest, ok := in.Dest(); ok {
			defCount[dest.String()]++
		}
	}
	for _, b := range fn.Blocks {
		for _, p := range b.OrderedPhis() {
			if p.Cleared() {
				continue
			}
			key := LocalOperand{Var: p.Var, SSAIndex: p.L}.String()
			defCount[key]++
		}
	}
	for key, n := range defCount {
		if n != 1 {
			t.Errorf("SSA value %s has %d defining instructions, want exactly 1", key, n)
		}
	}
}

// TestPhiOperandAlignment covers property 5: the header's φ for i has one
// operand per predecessor, aligned by slot to Preds.
func TestPhiOperandAlignment(t *testing.T) {
	prog := loopFixture(t)
	fn := prog.Main
	BuildSSA(fn)
	header := blockByFirstAddr(fn, 4)

	if len(header.Phis) != 1 {
		t.Fatalf("expected exactly one phi at the loop header, got %d", len(header.Phis))
	}
	for _, p := range header.Phis {
		if len(p.R) != len(header.Preds) || len(p.Pre) != len(header.Preds) {
			t.Fatalf("phi operand vectors: want length %d, got R=%d Pre=%d",
				len(header.Preds), len(p.R), len(p.Pre))
		}
		for i, pred := range header.Preds {
			if p.Pre[i] != pred {
				t.Errorf("phi slot %d: want predecessor %v, got %v", i, blockAddr(pred), blockAddr(p.Pre[i]))
			}
		}
	}
}

// TestLICMHoistsToPreheader covers S4/property 9: a loop-invariant mul
// whose operands are both defined outside the loop is hoisted exactly once,
// into a freshly materialized pre-header feeding the original header.
func TestLICMHoistsToPreheader(t *testing.T) {
	src := "instr 1: entrypc\n" +
		"instr 2: enter 0\n" +
		"instr 3: move 2 a#-32\n" +
		"instr 4: move 3 b#-16\n" +
		"instr 5: move 0 i#-8\n" +
		"instr 6: cmplt i#-8 10\n" +
		"instr 7: blbc (6) [13]\n" +
		"instr 8: mul a#-32 b#-16\n" +
		"instr 9: move (8) y#-24\n" +
		"instr 10: add i#-8 1\n" +
		"instr 11: move (10) i#-8\n" +
		"instr 12: br [6]\n" +
		"instr 13: ret 0\n"
	prog := buildFrom(t, src)
	fn := prog.Main

	preEntry := blockByFirstAddr(fn, 2)
	header := blockByFirstAddr(fn, 6)
	body := blockByFirstAddr(fn, 8)
	if preEntry == nil || header == nil || body == nil {
		t.Fatalf("expected blocks at addrs 2, 6, 8")
	}

	BuildSSA(fn)
	hoisted := SSALICM(fn)
	if hoisted != 1 {
		t.Fatalf("expected exactly 1 hoisted instruction, got %d", hoisted)
	}

	preheader := preEntry.SeqNext
	if preheader == header {
		t.Fatal("expected a new pre-header distinct from the header")
	}
	if preheader.SeqNext != header {
		t.Errorf("pre-header's seq_next: want header, got %v", blockAddr(preheader.SeqNext))
	}

	var muls []*Instruction
	for _, in := range preheader.Instrs {
		if in.Op == OpMul {
			muls = append(muls, in)
		}
	}
	if len(muls) != 1 {
		t.Fatalf("expected exactly one mul in the pre-header, got %d", len(muls))
	}
	for _, in := range body.Instrs {
		if in.Op == OpMul {
			t.Error("mul instruction still present in the loop body after hoisting")
		}
	}
}

package main

import (
	"testing"
)

// TestDegenerateMain covers spec.md's S6: a main with only ENTER/RET is
// left untouched by an empty pass list, and renumbering/emission produce
// the exact expected listing.
func TestDegenerateMain(t *testing.T) {
	prog := buildFrom(t, "instr 1: entrypc\ninstr 2: enter 0\ninstr 3: ret 0\n")
	got := emit3ACString(t, prog)
	want := "instr 1: nop\ninstr 2: entrypc\ninstr 3: enter 0\ninstr 4: ret 0\ninstr 5: nop\n"
	if got != want {
		t.Errorf("degenerate main output mismatch:\n got: %q\nwant: %q", got, want)
	}
}

// TestClassicalSCPFoldsConstantIntoUse covers S1's shape: a MOVE of a
// constant into a local, read once downstream with no intervening write,
// is substituted by classical constant propagation.
func TestClassicalSCPFoldsConstantIntoUse(t *testing.T) {
	src := "instr 1: entrypc\n" +
		"instr 2: enter 0\n" +
		"instr 3: move 5 x#-8\n" +
		"instr 4: write x#-8\n" +
		"instr 5: ret 0\n"
	prog := buildFrom(t, src)
	tags, err := ParsePassList("scp")
	if err != nil {
		t.Fatalf("parse pass list: %v", err)
	}
	RunPipeline(prog, tags, nil)

	fn := prog.Main
	var write *Instruction
	for _, in := range fn.LiveInstructions() {
		if in.Op == OpWrite {
			write = in
		}
	}
	if write == nil {
		t.Fatal("no write instruction found")
	}
	c, ok := AsConst(write.Arg(0))
	if !ok || c.Value != 5 {
		t.Errorf("write operand after SCP: want CONST 5, got %#v", write.Arg(0))
	}
}

// TestJoinPhiDisagreesAfterSSASCP covers S3: two predecessors assign
// different constants to the same variable, the join block's φ gets two
// operands, and SSA-SCP must NOT collapse it since the values disagree.
func TestJoinPhiDisagreesAfterSSASCP(t *testing.T) {
	// A single main function (entrypc precedes its enter):
	// b0: blbc x#-8 [b2]   (branches to b2 when x is false, else falls to b1)
	// b1: move 1 y#-16 ; br [b3]
	// b2: move 2 y#-16
	// b3 (join): write y#-16 ; ret 0
	src := "instr 1: entrypc\n" +
		"instr 2: enter 0\n" +
		"instr 3: blbc x#-8 [6]\n" +
		"instr 4: move 1 y#-16\n" +
		"instr 5: br [7]\n" +
		"instr 6: move 2 y#-16\n" +
		"instr 7: write y#-16\n" +
		"instr 8: ret 0\n"
	prog := buildFrom(t, src)
	tags, err := ParsePassList("ssa,scp")
	if err != nil {
		t.Fatalf("parse pass list: %v", err)
	}
	RunPipeline(prog, tags, nil)

	fn := prog.Main
	var join *Block
	for _, b := range fn.Blocks {
		if len(b.Preds) == 2 {
			join = b
		}
	}
	if join == nil {
		t.Fatal("expected a two-predecessor join block")
	}
	if len(join.Phis) != 1 {
		t.Fatalf("expected exactly one phi at the join, got %d", len(join.Phis))
	}
	for _, p := range join.Phis {
		if p.Cleared() {
			t.Error("phi with disagreeing constant operands must not be cleared by SSA-SCP")
		}
		if len(p.R) != len(join.Preds) {
			t.Errorf("phi operand count %d != predecessor count %d", len(p.R), len(join.Preds))
		}
	}
}

// TestDSEEliminatesDeadMove covers S5: a MOVE whose local is never read
// downstream becomes a NOP and vanishes from the renumbered output.
func TestDSEEliminatesDeadMove(t *testing.T) {
	src := "instr 1: entrypc\n" +
		"instr 2: enter 0\n" +
		"instr 3: move 7 dead#-8\n" +
		"instr 4: write y#-16\n" +
		"instr 5: ret 0\n"
	prog := buildFrom(t, src)
	tags, err := ParsePassList("dse")
	if err != nil {
		t.Fatalf("parse pass list: %v", err)
	}
	RunPipeline(prog, tags, nil)

	for _, in := range prog.Main.AllInstructions() {
		if in.Op == OpMove {
			if !in.IsNop() {
				t.Errorf("dead move at addr %d was not eliminated", in.Name)
			}
		}
	}
	got := emit3ACString(t, prog)
	if containsSubstring(got, "dead") {
		t.Errorf("eliminated move's operand leaked into output: %q", got)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

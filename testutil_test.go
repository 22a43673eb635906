package main

import (
	"bytes"
	"strings"
	"testing"
)

// buildFrom parses src through the front door (ParseInstructions +
// BuildProgram + PrepareCFG) the way main's run() does, failing the test on
// any error rather than returning one — every fixture here is known-good
// input.
func buildFrom(t *testing.T, src string) *Program {
	t.Helper()
	raws, err := ParseInstructions(strings.NewReader(src), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	prog, err := BuildProgram(raws)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	PrepareCFG(prog)
	return prog
}

// emit3ACString runs FinishPipeline and Emit3AC, returning the rendered
// text.
func emit3ACString(t *testing.T, prog *Program) string {
	t.Helper()
	FinishPipeline(prog)
	var buf bytes.Buffer
	if err := Emit3AC(&buf, prog); err != nil {
		t.Fatalf("emit: %v", err)
	}
	return buf.String()
}

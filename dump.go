package main

import (
	"bufio"
	"fmt"
	"io"
)

// DumpCFG writes the CFG text dump (spec.md §6): per function, a header,
// its basic block list, then a CFG section listing each block's successors.
// Layout follows original_source/'s debug.cpp structure (SPEC_FULL.md §9).
func DumpCFG(w io.Writer, prog *Program) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	for _, fn := range prog.Functions {
		writeFunctionHeader(bw, fn)
		fmt.Fprintln(bw, "CFG:")
		for _, b := range fn.Blocks {
			fmt.Fprintf(bw, "  %s:", blockLabel(b))
			for _, s := range b.Successors() {
				fmt.Fprintf(bw, " %s", blockLabel(s))
			}
			fmt.Fprintln(bw)
		}
	}
	return bw.Err()
}

// DumpDom writes the CFG dump plus dominator tree and natural loops
// (spec.md §6, "optionally followed by Dom Tree: and Loops:").
func DumpDom(w io.Writer, prog *Program) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	for _, fn := range prog.Functions {
		writeFunctionHeader(bw, fn)
		fmt.Fprintln(bw, "CFG:")
		for _, b := range fn.Blocks {
			fmt.Fprintf(bw, "  %s:", blockLabel(b))
			for _, s := range b.Successors() {
				fmt.Fprintf(bw, " %s", blockLabel(s))
			}
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw, "Dom Tree:")
		for _, b := range fn.Blocks {
			idom := "-"
			if b.IDom != nil {
				idom = blockLabel(b.IDom)
			}
			fmt.Fprintf(bw, "  %s <- %s\n", blockLabel(b), idom)
		}
		if len(fn.Loops) > 0 {
			fmt.Fprintln(bw, "Loops:")
			for _, loop := range orderedLoops(fn) {
				fmt.Fprintf(bw, "  header %s:", blockLabel(loop.Header))
				for _, m := range loop.Members {
					fmt.Fprintf(bw, " %s", blockLabel(m))
				}
				fmt.Fprintln(bw)
			}
		}
	}
	return bw.Err()
}

func writeFunctionHeader(w io.Writer, fn *Function) {
	fmt.Fprintf(w, "Function: %s\n", fn.Name)
	fmt.Fprint(w, "Basic blocks:")
	for _, b := range fn.Blocks {
		fmt.Fprintf(w, " %s", blockLabel(b))
	}
	fmt.Fprintln(w)
}

func orderedLoops(fn *Function) []*LoopSet {
	out := make([]*LoopSet, 0, len(fn.Loops))
	for _, l := range fn.Loops {
		out = append(out, l)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Header.Index < out[j-1].Header.Index; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

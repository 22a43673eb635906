package main

import (
	"bufio"
	"fmt"
	"io"
)

// Emit3AC writes prog's final, renumbered form in the line-oriented 3AC
// grammar (spec.md §6). FinishPipeline must have already renumbered the
// program. This is an external-collaborator re-printer, not part of the
// core pipeline — it only ever reads what the core already computed.
func Emit3AC(w io.Writer, prog *Program) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	fmt.Fprintln(bw, "instr 1: nop")

	last := 1
	for _, fn := range prog.Functions {
		if fn == prog.Main {
			entry := BlockName(fn.Entry)
			fmt.Fprintf(bw, "instr %d: entrypc\n", entry-1)
			last = entry - 1
		}
		for _, b := range fn.Blocks {
			for _, in := range b.Instrs {
				if in.IsNop() {
					continue
				}
				fmt.Fprintf(bw, "instr %d: %s\n", in.Name, in.String())
				last = in.Name
			}
		}
	}

	fmt.Fprintf(bw, "instr %d: nop\n", last+1)
	return bw.Err()
}

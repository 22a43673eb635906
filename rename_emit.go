package main

// RenumberLive assigns a dense, monotone Name to every live (non-NOP)
// instruction across the whole program, in function-then-block-then-
// instruction order, skipping NOPs, starting from start. A one-address gap
// is reserved immediately before main's first instruction for the
// emitter's ENTRYPC prefix (spec.md §4.10, §6). It returns the name main's
// entry block was given, i.e. entrypc's address plus one.
func RenumberLive(prog *Program, start int) (mainEntryName int) {
	next := start
	for _, fn := range prog.Functions {
		if fn == prog.Main {
			next++ // reserve the ENTRYPC slot right before main's entry
		}
		for _, b := range fn.Blocks {
			for _, in := range b.Instrs {
				if in.IsNop() {
					continue
				}
				in.Name = next
				next++
			}
		}
	}
	if prog.Main != nil {
		mainEntryName = BlockName(prog.Main.Entry)
	}
	return mainEntryName
}

// BlockName is a block's display identity: its first live instruction's
// Name, or -1 for a block that has been fully eliminated (spec.md §4.10:
// "Block names are set to the name of their first live instruction").
func BlockName(b *Block) int {
	if b == nil {
		return -1
	}
	for _, in := range b.Instrs {
		if !in.IsNop() {
			return in.Name
		}
	}
	return -1
}

package main

import "golang.org/x/tools/container/intsets"

// ComputeDominators fills in IDom and DomChild for every block of fn via
// iterative set intersection over predecessors until fixed point
// (spec.md §4.2). Sets are block-index bitsets
// (golang.org/x/tools/container/intsets.Sparse), the teacher's own
// transitive dependency, used here the way Go's own SSA-based compiler
// packages represent dominance/dataflow sets (spec.md §9 expansion).
func ComputeDominators(fn *Function) {
	n := len(fn.Blocks)
	if n == 0 {
		return
	}
	entry := fn.Blocks[0]

	// domPlus[i] = {i} ∪ every dominator of block i. domPlus[entry] = {entry}
	// by convention (spec.md §4.2: "the entry block's dominator set is
	// empty", i.e. dominated only by itself); every other block starts
	// "undefined" and is only ever narrowed by intersection, so we seed it
	// with the full block set.
	domPlus := make([]*intsets.Sparse, n)
	full := &intsets.Sparse{}
	for i := 0; i < n; i++ {
		full.Insert(i)
	}
	for i, b := range fn.Blocks {
		domPlus[i] = &intsets.Sparse{}
		if b == entry {
			domPlus[i].Insert(i)
		} else {
			domPlus[i].Copy(full)
		}
	}

	reached := make([]bool, n)
	reached[entry.Index] = true
	changed := true
	for changed {
		changed = false
		for _, b := range fn.Blocks {
			if b == entry {
				continue
			}
			preds := b.Preds
			fromReached := false
			for _, p := range preds {
				fromReached = fromReached || reached[p.Index]
			}
			if !fromReached {
				continue // no reached predecessor yet: leave undefined
			}
			acc := &intsets.Sparse{}
			acc.Copy(domPlus[preds[0].Index])
			for _, p := range preds[1:] {
				acc.IntersectionWith(domPlus[p.Index])
			}
			acc.Insert(b.Index)
			if !reached[b.Index] || !acc.Equals(domPlus[b.Index]) {
				domPlus[b.Index] = acc
				reached[b.Index] = true
				changed = true
			}
		}
	}

	for _, b := range fn.Blocks {
		b.IDom = nil
		b.DomChild = nil
	}
	for _, b := range fn.Blocks {
		if b == entry || !reached[b.Index] {
			continue // unreachable: no immediate dominator
		}
		idom := findImmediateDominator(fn, domPlus, b.Index)
		if idom < 0 {
			continue // unreachable
		}
		b.IDom = fn.Blocks[idom]
	}
	for _, b := range fn.Blocks {
		if b.IDom != nil {
			b.IDom.DomChild = append(b.IDom.DomChild, b)
		}
	}
}

// findImmediateDominator picks the member of domPlus(b)\{b} nearest to b:
// the one that dominates no other member (spec.md §4.2).
func findImmediateDominator(fn *Function, domPlus []*intsets.Sparse, b int) int {
	cands := &intsets.Sparse{}
	cands.Copy(domPlus[b])
	cands.Remove(b)
	if cands.IsEmpty() {
		return -1
	}
	var result = -1
	cands.Do(func(d int) {
		dominatedByOther := false
		cands.Do(func(d2 int) {
			if d2 == d {
				return
			}
			if domPlus[d2].Has(d) {
				dominatedByOther = true
			}
		})
		if !dominatedByOther {
			result = d
		}
	})
	return result
}

// Dominates reports whether a dominates b (a == b counts as dominating),
// walking the immediate-dominator chain — cheap given dominator-tree depth
// is bounded by the block count.
func Dominates(a, b *Block) bool {
	for c := b; c != nil; c = c.IDom {
		if c == a {
			return true
		}
	}
	return false
}

// StrictlyDominates reports whether a dominates b and a != b.
func StrictlyDominates(a, b *Block) bool {
	return a != b && Dominates(a, b)
}

// ComputeNaturalLoops finds every back-edge u→v (v dominates u) and unions
// their loop bodies per header (spec.md §4.2).
func ComputeNaturalLoops(fn *Function) {
	fn.Loops = make(map[*Block]*LoopSet)
	headerMembers := make(map[*Block]map[*Block]bool)

	for _, u := range fn.Blocks {
		for _, v := range u.Successors() {
			if !Dominates(v, u) {
				continue
			}
			members, ok := headerMembers[v]
			if !ok {
				members = map[*Block]bool{v: true}
				headerMembers[v] = members
			}
			unionLoopBody(v, u, members)
		}
	}

	for header, members := range headerMembers {
		blocks := make([]*Block, 0, len(members))
		for b := range members {
			blocks = append(blocks, b)
		}
		sortBlocksByIndex(blocks)
		fn.Loops[header] = &LoopSet{Header: header, Members: blocks}
	}
}

// unionLoopBody walks backward from tail to header over predecessors,
// adding every block reached (stopping at the header) to members
// (spec.md §4.2).
func unionLoopBody(header, tail *Block, members map[*Block]bool) {
	if members[tail] {
		return
	}
	members[tail] = true
	worklist := []*Block{tail}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if b == header {
			continue
		}
		for _, p := range b.Preds {
			if !members[p] {
				members[p] = true
				worklist = append(worklist, p)
			}
		}
	}
}

func sortBlocksByIndex(blocks []*Block) {
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && blocks[j].Index < blocks[j-1].Index; j-- {
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
		}
	}
}

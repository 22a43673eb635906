package main

// ComputeDominanceFrontiers fills in DF for every block of fn, via
// post-order traversal of the dominator tree (spec.md §4.3).
func ComputeDominanceFrontiers(fn *Function) {
	for _, b := range fn.Blocks {
		b.DF = nil
	}
	if len(fn.Blocks) == 0 {
		return
	}
	visited := make(map[*Block]bool, len(fn.Blocks))
	dfPostOrder(fn.Blocks[0], visited)
}

// dfPostOrder recurses into domc first, then computes this block's DF from
// its CFG successors and its children's frontiers (spec.md §4.3).
func dfPostOrder(b *Block, visited map[*Block]bool) {
	if visited[b] {
		return
	}
	visited[b] = true
	for _, c := range b.DomChild {
		dfPostOrder(c, visited)
	}

	set := make(map[*Block]bool)
	for _, s := range b.Successors() {
		if s.IDom != b {
			set[s] = true
		}
	}
	for _, c := range b.DomChild {
		for _, y := range c.DF {
			if y.IDom != b {
				set[y] = true
			}
		}
	}

	df := make([]*Block, 0, len(set))
	for y := range set {
		df = append(df, y)
	}
	sortBlocksByIndex(df)
	b.DF = df
}

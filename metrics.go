package main

// Metrics summarizes one function's shape and how much the pipeline did to
// it, for the -backend=rep report and the persisted dump (SPEC_FULL.md §3
// expansion). Grounded on the teacher's ComputeMetrics/Metrics shape,
// generalized from Go-AST cyclomatic complexity to 3AC instruction/block
// counting.
type Metrics struct {
	FunctionName string
	Instructions int
	Blocks       int
	Loops        int
	Phis         int
	DSEInLoop    int
	DSEOutOfLoop int
	LICMHoisted  int
}

// ComputeMetrics calculates per-function shape counters over the current
// state of prog. DSE/LICM counts are supplied by the pipeline as those
// passes run, keyed by function name.
func ComputeMetrics(prog *Program, dse map[string]DCEReport, licmHoisted map[string]int) []*Metrics {
	out := make([]*Metrics, 0, len(prog.Functions))
	for _, fn := range prog.Functions {
		m := &Metrics{FunctionName: fn.Name, Blocks: len(fn.Blocks), Loops: len(fn.Loops)}
		for _, b := range fn.Blocks {
			for _, in := range b.Instrs {
				if !in.IsNop() {
					m.Instructions++
				}
			}
			m.Phis += len(b.Phis)
		}
		if r, ok := dse[fn.Name]; ok {
			m.DSEInLoop, m.DSEOutOfLoop = r.InLoop, r.OutOfLoop
		}
		m.LICMHoisted = licmHoisted[fn.Name]
		out = append(out, m)
	}
	return out
}

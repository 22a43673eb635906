package main

import (
	"fmt"
	"strings"
)

// PassTag identifies one optional pass token from -opt=, in command-line
// order (spec.md §9: "pass pipeline as a value").
type PassTag int

const (
	PassSCP  PassTag = iota // constant propagation: classical or SSA, depending on mode
	PassDSE                 // classical dead code elimination
	PassLICM                // SSA loop-invariant code motion
	PassSSA                 // enter SSA (SSA-prepare)
)

var passNames = map[string]PassTag{
	"scp":  PassSCP,
	"dse":  PassDSE,
	"licm": PassLICM,
	"ssa":  PassSSA,
}

// ParsePassList parses a comma-separated -opt= list into an ordered
// sequence of pass tags (spec.md §6).
func ParsePassList(s string) ([]PassTag, error) {
	if s == "" {
		return nil, nil
	}
	var out []PassTag
	for _, name := range strings.Split(s, ",") {
		tag, ok := passNames[name]
		if !ok {
			return nil, usageErrorf("unknown optimization %q", name)
		}
		out = append(out, tag)
	}
	return out, nil
}

// PrepareCFG computes dominators, natural loops, and dominance frontiers for
// every function — unconditional groundwork the driver performs right after
// parsing, on both the classical and SSA paths (spec.md §5: "parse → build
// dom → ...").
func PrepareCFG(prog *Program) {
	for _, fn := range prog.Functions {
		ComputeDominators(fn)
		ComputeNaturalLoops(fn)
		ComputeDominanceFrontiers(fn)
	}
}

// RunPipeline executes tags over prog in command-line order. scp is
// dispatched to its SSA or classical form depending on whether ssa has
// already run; licm requires SSA to be entered, dse requires it not to be
// — violating either is a pass-precondition programmer error (spec.md §5,
// §7). report, if non-nil, receives one human-readable line per completed
// pass.
func RunPipeline(prog *Program, tags []PassTag, report func(string)) (dse map[string]DCEReport, licmHoisted map[string]int) {
	dse = make(map[string]DCEReport)
	licmHoisted = make(map[string]int)
	for _, tag := range tags {
		switch tag {
		case PassSSA:
			assertPassPrecondition(!prog.InSSA, "SSA-prepare run more than once")
			for _, fn := range prog.Functions {
				BuildSSA(fn)
			}
			prog.InSSA = true
			if report != nil {
				report("ssa: built SSA form for " + pluralFns(len(prog.Functions)))
			}

		case PassSCP:
			if prog.InSSA {
				for _, fn := range prog.Functions {
					SSAConstantPropagate(fn)
				}
				if report != nil {
					report("scp: ran SSA constant propagation")
				}
			} else {
				for _, fn := range prog.Functions {
					ClassicalConstantPropagate(fn)
				}
				if report != nil {
					report("scp: ran classical constant propagation")
				}
			}

		case PassLICM:
			assertPassPrecondition(prog.InSSA, "LICM requires SSA-prepare to have run")
			for _, fn := range prog.Functions {
				licmHoisted[fn.Name] += SSALICM(fn)
			}
			if report != nil {
				report("licm: hoisted loop-invariant instructions")
			}

		case PassDSE:
			assertPassPrecondition(!prog.InSSA, "DSE requires SSA not to have been entered")
			for _, fn := range prog.Functions {
				rep := DeadCodeEliminate(fn)
				prior := dse[fn.Name]
				dse[fn.Name] = DCEReport{InLoop: prior.InLoop + rep.InLoop, OutOfLoop: prior.OutOfLoop + rep.OutOfLoop}
				if report != nil {
					report(fmt.Sprintf("dse: %s eliminated %d in-loop, %d out-of-loop",
						fn.Name, rep.InLoop, rep.OutOfLoop))
				}
			}
		}
	}
	return dse, licmHoisted
}

// FinishPipeline de-constructs SSA (if entered) and renumbers every live
// instruction, completing the emission boundary (spec.md §4.9, §4.10).
func FinishPipeline(prog *Program) {
	if prog.InSSA {
		for _, fn := range prog.Functions {
			SSADeconstruct(fn)
		}
		prog.InSSA = false
	}
	RenumberLive(prog, 2) // instr 1 is reserved for the emitter's leading nop
}

func pluralFns(n int) string {
	if n == 1 {
		return "1 function"
	}
	return fmt.Sprintf("%d functions", n)
}

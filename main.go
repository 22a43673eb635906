package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Using a separate function ensures all
// defers (including the persisted database's close) execute even on error
// paths, unlike os.Exit which skips deferred calls.
func run() error {
	opt := flag.String("opt", "", "comma-separated subset of scp,dse,licm,ssa, order is meaningful")
	backend := flag.String("backend", "3addr", "one of 3addr,c,cfg,rep,dom,ssa (synonyms tolerated)")
	dbPath := flag.String("db", "", "optional: write a SQLite dump of the final IR and per-pass metrics")
	validate := flag.Bool("validate", false, "requires -db: run invariant-checking queries after the dump is written")
	verbose := flag.Bool("verbose", false, "print detailed progress")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: 3ac-opt [flags] < input.3ac > output\n\n")
		fmt.Fprintf(os.Stderr, "Optimizing middle-end for a three-address-code IR.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	if err := checkDuplicateFlags(os.Args[1:], "opt", "backend"); err != nil {
		flag.Usage()
		return err
	}
	flag.Parse()

	if *validate && *dbPath == "" {
		flag.Usage()
		return usageErrorf("-validate requires -db")
	}

	tags, err := ParsePassList(*opt)
	if err != nil {
		flag.Usage()
		return err
	}
	be, err := normalizeBackend(*backend)
	if err != nil {
		flag.Usage()
		return err
	}

	prog := NewProgress(*verbose)
	runID := NewRunID()
	prog.Verbose("run %s starting, backend=%s opt=%s", runID, be, *opt)

	var warnings []string
	raws, err := ParseInstructions(os.Stdin, func(w string) { warnings = append(warnings, w) })
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}
	prog.Log("parsed %s instructions", Count(len(raws)))

	ir, err := BuildProgram(raws)
	if err != nil {
		return err
	}
	PrepareCFG(ir)
	prog.Log("built CFG for %s", pluralFns(len(ir.Functions)))

	dse, licmHoisted := RunPipeline(ir, tags, func(line string) { prog.Verbose("%s", line) })

	switch be {
	case backendCFG:
		return DumpCFG(os.Stdout, ir)
	case backendDom:
		return DumpDom(os.Stdout, ir)
	case backendRep:
		return writeReport(os.Stdout, ComputeMetrics(ir, dse, licmHoisted), prog.color)
	case backendSSA:
		return DumpDom(os.Stdout, ir) // same CFG/dominator/loop dump as dom; φs are not printed
	}

	FinishPipeline(ir)
	prog.Log("finished: %s live instructions", Count(totalLive(ir)))

	if *dbPath != "" {
		if err := WriteDB(*dbPath, ir, runID, ComputeMetrics(ir, dse, licmHoisted), *validate, prog); err != nil {
			return err
		}
	}

	switch be {
	case backendC:
		return EmitC(os.Stdout, ir)
	default:
		return Emit3AC(os.Stdout, ir)
	}
}

type backendKind int

const (
	backend3AC backendKind = iota
	backendC
	backendCFG
	backendRep
	backendDom
	backendSSA
)

func normalizeBackend(s string) (backendKind, error) {
	switch s {
	case "3addr", "3ac", "":
		return backend3AC, nil
	case "c":
		return backendC, nil
	case "cfg":
		return backendCFG, nil
	case "rep", "report":
		return backendRep, nil
	case "dom":
		return backendDom, nil
	case "ssa":
		return backendSSA, nil
	default:
		return 0, usageErrorf("unknown backend %q", s)
	}
}

// checkDuplicateFlags rejects a flag named in names appearing more than
// once on the command line (spec.md §7: duplicate -opt/-backend is a
// driver-misuse error, not last-one-wins).
func checkDuplicateFlags(args []string, names ...string) error {
	seen := make(map[string]bool, len(names))
	for _, arg := range args {
		for _, name := range names {
			if arg == "-"+name || arg == "--"+name ||
				hasPrefixEq(arg, "-"+name+"=") || hasPrefixEq(arg, "--"+name+"=") {
				if seen[name] {
					return usageErrorf("duplicate flag -%s", name)
				}
				seen[name] = true
			}
		}
	}
	return nil
}

func hasPrefixEq(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func totalLive(prog *Program) int {
	n := 0
	for _, fn := range prog.Functions {
		n += len(fn.LiveInstructions())
	}
	return n
}

func writeReport(w io.Writer, metrics []*Metrics, color bool) error {
	for _, m := range metrics {
		header := fmt.Sprintf("Function: %s", m.FunctionName)
		if color {
			header = "\x1b[1m" + header + "\x1b[0m"
		}
		fmt.Fprintln(w, header)
		fmt.Fprintf(w, "  instructions=%s blocks=%d loops=%d phis=%d\n",
			Count(m.Instructions), m.Blocks, m.Loops, m.Phis)
		fmt.Fprintf(w, "  dse: %d in-loop, %d out-of-loop; licm: %d hoisted\n",
			m.DSEInLoop, m.DSEOutOfLoop, m.LICMHoisted)
	}
	return nil
}

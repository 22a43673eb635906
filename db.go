package main

import (
	"fmt"
	"os"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const batchSize = 50000

// WriteDB persists the final IR — functions, blocks, CFG/dominator/DF edges,
// φs, natural loops, and this run's metrics — to a SQLite file (SPEC_FULL.md
// §4.11), adapted from the teacher's WriteDB shape: pragmas tuned for bulk
// load, tables created without indexes, one write transaction, indexes
// deferred to the end.
func WriteDB(path string, prog *Program, runID string, metrics []*Metrics, validate bool, progress *Progress) error {
	progress.Log("Writing SQLite to %s ...", path)

	_ = os.Remove(path) // ignore if doesn't exist

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA synchronous = NORMAL", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA temp_store = MEMORY", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA cache_size = -64000", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode = WAL", nil); err != nil {
		return err
	}

	if err := createTables(conn); err != nil {
		return err
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := insertRun(conn, runID, prog, progress); err != nil {
		endFn(&err)
		return err
	}
	if err := insertFunctions(conn, prog, progress); err != nil {
		endFn(&err)
		return err
	}
	if err := insertBlocks(conn, prog, progress); err != nil {
		endFn(&err)
		return err
	}
	if err := insertLoops(conn, prog, progress); err != nil {
		endFn(&err)
		return err
	}
	if err := insertInstructions(conn, prog, progress); err != nil {
		endFn(&err)
		return err
	}
	if err := insertPhis(conn, prog, progress); err != nil {
		endFn(&err)
		return err
	}
	if err := insertMetrics(conn, runID, metrics, progress); err != nil {
		endFn(&err)
		return err
	}

	endFn(&err)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := createIndexes(conn); err != nil {
		return err
	}

	if validate {
		if err := runValidation(conn, progress); err != nil {
			return err
		}
	}

	progress.Log("wrote %s in %s", path, Since(progress.start))
	return nil
}

func createTables(conn *sqlite.Conn) error {
	ddl := `
CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,
    function_count INTEGER,
    in_ssa INTEGER
);

CREATE TABLE functions (
    name TEXT PRIMARY KEY,
    is_main INTEGER NOT NULL,
    frame_size INTEGER,
    arg_count INTEGER,
    entry_block INTEGER
);

CREATE TABLE blocks (
    function_name TEXT NOT NULL,
    block_index INTEGER NOT NULL,
    idom_index INTEGER,
    PRIMARY KEY (function_name, block_index)
);

CREATE TABLE cfg_edges (
    function_name TEXT NOT NULL,
    source_index INTEGER NOT NULL,
    target_index INTEGER NOT NULL,
    kind TEXT NOT NULL -- 'seq' or 'br'
);

CREATE TABLE dom_edges (
    function_name TEXT NOT NULL,
    parent_index INTEGER NOT NULL,
    child_index INTEGER NOT NULL
);

CREATE TABLE df_edges (
    function_name TEXT NOT NULL,
    block_index INTEGER NOT NULL,
    frontier_index INTEGER NOT NULL
);

CREATE TABLE loops (
    function_name TEXT NOT NULL,
    header_index INTEGER NOT NULL,
    PRIMARY KEY (function_name, header_index)
);

CREATE TABLE loop_members (
    function_name TEXT NOT NULL,
    header_index INTEGER NOT NULL,
    member_index INTEGER NOT NULL
);

CREATE TABLE instructions (
    function_name TEXT NOT NULL,
    name INTEGER NOT NULL,
    block_index INTEGER NOT NULL,
    opcode TEXT NOT NULL,
    text TEXT NOT NULL,
    PRIMARY KEY (function_name, name)
);

CREATE TABLE phis (
    function_name TEXT NOT NULL,
    block_index INTEGER NOT NULL,
    var_offset INTEGER NOT NULL,
    var_name TEXT NOT NULL,
    ssa_index INTEGER NOT NULL,
    PRIMARY KEY (function_name, block_index, var_offset)
);

CREATE TABLE phi_operands (
    function_name TEXT NOT NULL,
    block_index INTEGER NOT NULL,
    var_offset INTEGER NOT NULL,
    slot INTEGER NOT NULL,
    pred_index INTEGER,
    operand_text TEXT NOT NULL
);

CREATE TABLE run_metrics (
    run_id TEXT NOT NULL,
    function_name TEXT NOT NULL,
    instructions INTEGER,
    blocks INTEGER,
    loops INTEGER,
    phis INTEGER,
    dse_in_loop INTEGER,
    dse_out_of_loop INTEGER,
    licm_hoisted INTEGER,
    PRIMARY KEY (run_id, function_name)
);
`
	return sqlitex.ExecuteScript(conn, ddl, nil)
}

func createIndexes(conn *sqlite.Conn) error {
	indexes := `
CREATE INDEX idx_blocks_fn ON blocks(function_name);
CREATE INDEX idx_cfg_source ON cfg_edges(function_name, source_index);
CREATE INDEX idx_cfg_target ON cfg_edges(function_name, target_index);
CREATE INDEX idx_dom_parent ON dom_edges(function_name, parent_index);
CREATE INDEX idx_dom_child ON dom_edges(function_name, child_index);
CREATE INDEX idx_instructions_block ON instructions(function_name, block_index);
CREATE INDEX idx_phi_operands_phi ON phi_operands(function_name, block_index, var_offset);
`
	return sqlitex.ExecuteScript(conn, indexes, nil)
}

func insertRun(conn *sqlite.Conn, runID string, prog *Program, progress *Progress) error {
	stmt, err := conn.Prepare(`INSERT INTO runs (run_id, function_count, in_ssa) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare run insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	stmt.BindText(1, runID)
	stmt.BindInt64(2, int64(len(prog.Functions)))
	stmt.BindInt64(3, boolToInt64(prog.InSSA))
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

func insertFunctions(conn *sqlite.Conn, prog *Program, progress *Progress) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO functions (name, is_main, frame_size, arg_count, entry_block) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare function insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, fn := range prog.Functions {
		stmt.BindText(1, fn.Name)
		stmt.BindInt64(2, boolToInt64(fn.IsMain))
		stmt.BindInt64(3, int64(fn.FrameSz))
		stmt.BindInt64(4, int64(fn.ArgCnt))
		if fn.Entry != nil {
			stmt.BindInt64(5, int64(fn.Entry.Index))
		} else {
			stmt.BindNull(5)
		}
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert function %s: %w", fn.Name, err)
		}
		_ = stmt.Reset()
	}
	progress.Log("inserted %s functions", Count(len(prog.Functions)))
	return nil
}

func insertBlocks(conn *sqlite.Conn, prog *Program, progress *Progress) error {
	blockStmt, err := conn.Prepare(`INSERT OR IGNORE INTO blocks (function_name, block_index, idom_index) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare block insert: %w", err)
	}
	defer func() { _ = blockStmt.Finalize() }()

	cfgStmt, err := conn.Prepare(`INSERT INTO cfg_edges (function_name, source_index, target_index, kind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cfg edge insert: %w", err)
	}
	defer func() { _ = cfgStmt.Finalize() }()

	domStmt, err := conn.Prepare(`INSERT INTO dom_edges (function_name, parent_index, child_index) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare dom edge insert: %w", err)
	}
	defer func() { _ = domStmt.Finalize() }()

	dfStmt, err := conn.Prepare(`INSERT INTO df_edges (function_name, block_index, frontier_index) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare df edge insert: %w", err)
	}
	defer func() { _ = dfStmt.Finalize() }()

	blocks := 0
	for _, fn := range prog.Functions {
		for _, b := range fn.Blocks {
			blockStmt.BindText(1, fn.Name)
			blockStmt.BindInt64(2, int64(b.Index))
			if b.IDom != nil {
				blockStmt.BindInt64(3, int64(b.IDom.Index))
			} else {
				blockStmt.BindNull(3)
			}
			if _, err := blockStmt.Step(); err != nil {
				return fmt.Errorf("insert block %s#%d: %w", fn.Name, b.Index, err)
			}
			_ = blockStmt.Reset()
			blocks++

			if b.SeqNext != nil {
				if err := bindAndStepCFG(cfgStmt, fn.Name, b.Index, b.SeqNext.Index, "seq"); err != nil {
					return err
				}
			}
			if b.BrNext != nil {
				if err := bindAndStepCFG(cfgStmt, fn.Name, b.Index, b.BrNext.Index, "br"); err != nil {
					return err
				}
			}
			for _, c := range b.DomChild {
				domStmt.BindText(1, fn.Name)
				domStmt.BindInt64(2, int64(b.Index))
				domStmt.BindInt64(3, int64(c.Index))
				if _, err := domStmt.Step(); err != nil {
					return fmt.Errorf("insert dom edge %s#%d->%d: %w", fn.Name, b.Index, c.Index, err)
				}
				_ = domStmt.Reset()
			}
			for _, y := range b.DF {
				dfStmt.BindText(1, fn.Name)
				dfStmt.BindInt64(2, int64(b.Index))
				dfStmt.BindInt64(3, int64(y.Index))
				if _, err := dfStmt.Step(); err != nil {
					return fmt.Errorf("insert df edge %s#%d->%d: %w", fn.Name, b.Index, y.Index, err)
				}
				_ = dfStmt.Reset()
			}
		}
	}
	progress.Log("inserted %s blocks", Count(blocks))
	return nil
}

func bindAndStepCFG(stmt *sqlite.Stmt, fnName string, source, target int, kind string) error {
	stmt.BindText(1, fnName)
	stmt.BindInt64(2, int64(source))
	stmt.BindInt64(3, int64(target))
	stmt.BindText(4, kind)
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("insert cfg edge %s#%d->%d: %w", fnName, source, target, err)
	}
	return stmt.Reset()
}

func insertLoops(conn *sqlite.Conn, prog *Program, progress *Progress) error {
	loopStmt, err := conn.Prepare(`INSERT OR IGNORE INTO loops (function_name, header_index) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare loop insert: %w", err)
	}
	defer func() { _ = loopStmt.Finalize() }()

	memberStmt, err := conn.Prepare(`INSERT INTO loop_members (function_name, header_index, member_index) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare loop member insert: %w", err)
	}
	defer func() { _ = memberStmt.Finalize() }()

	loops := 0
	for _, fn := range prog.Functions {
		for header, loop := range fn.Loops {
			loopStmt.BindText(1, fn.Name)
			loopStmt.BindInt64(2, int64(header.Index))
			if _, err := loopStmt.Step(); err != nil {
				return fmt.Errorf("insert loop %s#%d: %w", fn.Name, header.Index, err)
			}
			_ = loopStmt.Reset()
			loops++

			for _, m := range loop.Members {
				memberStmt.BindText(1, fn.Name)
				memberStmt.BindInt64(2, int64(header.Index))
				memberStmt.BindInt64(3, int64(m.Index))
				if _, err := memberStmt.Step(); err != nil {
					return fmt.Errorf("insert loop member %s#%d/%d: %w", fn.Name, header.Index, m.Index, err)
				}
				_ = memberStmt.Reset()
			}
		}
	}
	progress.Log("inserted %s loops", Count(loops))
	return nil
}

func insertInstructions(conn *sqlite.Conn, prog *Program, progress *Progress) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO instructions (function_name, name, block_index, opcode, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare instruction insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	n := 0
	for _, fn := range prog.Functions {
		for _, in := range fn.LiveInstructions() {
			stmt.BindText(1, fn.Name)
			stmt.BindInt64(2, int64(in.Name))
			stmt.BindInt64(3, int64(in.Block.Index))
			stmt.BindText(4, in.Op.String())
			stmt.BindText(5, in.String())
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert instruction %s#%d: %w", fn.Name, in.Name, err)
			}
			_ = stmt.Reset()
			n++

			if n%batchSize == 0 {
				progress.Verbose("  inserted %d instructions", n)
			}
		}
	}
	progress.Log("inserted %s instructions", Count(n))
	return nil
}

func insertPhis(conn *sqlite.Conn, prog *Program, progress *Progress) error {
	phiStmt, err := conn.Prepare(`INSERT OR IGNORE INTO phis (function_name, block_index, var_offset, var_name, ssa_index) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare phi insert: %w", err)
	}
	defer func() { _ = phiStmt.Finalize() }()

	operandStmt, err := conn.Prepare(`INSERT INTO phi_operands (function_name, block_index, var_offset, slot, pred_index, operand_text) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare phi operand insert: %w", err)
	}
	defer func() { _ = operandStmt.Finalize() }()

	phis := 0
	for _, fn := range prog.Functions {
		for _, b := range fn.Blocks {
			for _, p := range b.OrderedPhis() {
				if p.Cleared() {
					continue
				}
				phiStmt.BindText(1, fn.Name)
				phiStmt.BindInt64(2, int64(b.Index))
				phiStmt.BindInt64(3, int64(p.Var.Offset))
				phiStmt.BindText(4, p.Var.Name)
				phiStmt.BindInt64(5, int64(p.L))
				if _, err := phiStmt.Step(); err != nil {
					return fmt.Errorf("insert phi %s#%d/%s: %w", fn.Name, b.Index, p.Var.Name, err)
				}
				_ = phiStmt.Reset()
				phis++

				for slot, op := range p.R {
					operandStmt.BindText(1, fn.Name)
					operandStmt.BindInt64(2, int64(b.Index))
					operandStmt.BindInt64(3, int64(p.Var.Offset))
					operandStmt.BindInt64(4, int64(slot))
					if p.Pre[slot] != nil {
						operandStmt.BindInt64(5, int64(p.Pre[slot].Index))
					} else {
						operandStmt.BindNull(5)
					}
					operandStmt.BindText(6, op.String())
					if _, err := operandStmt.Step(); err != nil {
						return fmt.Errorf("insert phi operand %s#%d/%s[%d]: %w", fn.Name, b.Index, p.Var.Name, slot, err)
					}
					_ = operandStmt.Reset()
				}
			}
		}
	}
	progress.Log("inserted %s phis", Count(phis))
	return nil
}

func insertMetrics(conn *sqlite.Conn, runID string, metrics []*Metrics, progress *Progress) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO run_metrics (run_id, function_name, instructions, blocks, loops, phis, dse_in_loop, dse_out_of_loop, licm_hoisted) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare metrics insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, m := range metrics {
		stmt.BindText(1, runID)
		stmt.BindText(2, m.FunctionName)
		stmt.BindInt64(3, int64(m.Instructions))
		stmt.BindInt64(4, int64(m.Blocks))
		stmt.BindInt64(5, int64(m.Loops))
		stmt.BindInt64(6, int64(m.Phis))
		stmt.BindInt64(7, int64(m.DSEInLoop))
		stmt.BindInt64(8, int64(m.DSEOutOfLoop))
		stmt.BindInt64(9, int64(m.LICMHoisted))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert metrics %s: %w", m.FunctionName, err)
		}
		_ = stmt.Reset()
	}
	progress.Log("inserted %s function metrics", Count(len(metrics)))
	return nil
}

// runValidation checks structural invariants of spec.md §8 directly
// against the persisted tables: no block has more than one dominator-tree
// parent, every φ's operand count matches its block's predecessor count,
// and no block has more than two CFG successors. Failures are logged as
// warnings; they do not make it return an error.
func runValidation(conn *sqlite.Conn, progress *Progress) error {
	progress.Log("running validation queries...")

	var multiIdom int64
	if err := sqlitex.ExecuteTransient(conn,
		`SELECT COUNT(*) FROM (
		   SELECT function_name, child_index, COUNT(*) c FROM dom_edges
		   GROUP BY function_name, child_index HAVING c > 1
		 )`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				multiIdom = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
		return err
	}
	if multiIdom > 0 {
		progress.Log("  WARNING: %d blocks have more than one dominator-tree parent", multiIdom)
	} else {
		progress.Log("  OK: dominator tree has a single parent per block")
	}

	var misalignedPhis int64
	if err := sqlitex.ExecuteTransient(conn,
		`SELECT COUNT(*) FROM (
		   SELECT p.function_name, p.block_index, p.var_offset,
		          (SELECT COUNT(*) FROM phi_operands o
		             WHERE o.function_name = p.function_name
		               AND o.block_index = p.block_index
		               AND o.var_offset = p.var_offset) AS operand_count,
		          (SELECT COUNT(*) FROM cfg_edges e
		             WHERE e.function_name = p.function_name
		               AND e.target_index = p.block_index) AS pred_count
		   FROM phis p
		 ) WHERE operand_count != pred_count`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				misalignedPhis = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
		return err
	}
	if misalignedPhis > 0 {
		progress.Log("  WARNING: %d phis have an operand count mismatched with their block's predecessor count", misalignedPhis)
	} else {
		progress.Log("  OK: every phi's operand count matches its block's predecessor count")
	}

	var overwideBlocks int64
	if err := sqlitex.ExecuteTransient(conn,
		`SELECT COUNT(*) FROM (
		   SELECT function_name, source_index, COUNT(*) c FROM cfg_edges
		   GROUP BY function_name, source_index HAVING c > 2
		 )`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				overwideBlocks = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
		return err
	}
	if overwideBlocks > 0 {
		progress.Log("  WARNING: %d blocks have more than two CFG successors", overwideBlocks)
	} else {
		progress.Log("  OK: every block has at most two CFG successors")
	}

	return nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

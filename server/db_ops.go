package main

import (
	"database/sql"
)

// Functions lists every function's shape summary.
func (db *DB) Functions() ([]FunctionSummary, error) {
	rows, err := db.Query(queryFunctionSummaries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FunctionSummary{}
	for rows.Next() {
		var f FunctionSummary
		var isMain int
		var entry sql.NullInt64
		if err := rows.Scan(&f.Name, &isMain, &f.FrameSize, &f.ArgCount, &entry,
			&f.BlockCount, &f.InstructionCount, &f.LoopCount); err != nil {
			return nil, err
		}
		f.IsMain = isMain != 0
		if entry.Valid {
			f.EntryBlock = int(entry.Int64)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FunctionDetail returns the full CFG/dominator-tree/DF/φ shape for one
// function, or sql.ErrNoRows if name is unknown.
func (db *DB) FunctionDetail(name string) (*FunctionDetail, error) {
	var f FunctionSummary
	var isMain int
	var entry sql.NullInt64
	err := db.QueryRow(queryFunctionByName, name).Scan(&f.Name, &isMain, &f.FrameSize, &f.ArgCount, &entry)
	if err != nil {
		return nil, err
	}
	f.IsMain = isMain != 0
	if entry.Valid {
		f.EntryBlock = int(entry.Int64)
	}

	blocks, err := db.blocksFor(name)
	if err != nil {
		return nil, err
	}
	f.BlockCount = len(blocks)

	loops, err := db.loopsFor(name)
	if err != nil {
		return nil, err
	}
	f.LoopCount = len(loops)

	phis, err := db.phisFor(name)
	if err != nil {
		return nil, err
	}

	return &FunctionDetail{Function: f, Blocks: blocks, Loops: loops, Phis: phis}, nil
}

func (db *DB) blocksFor(name string) ([]BlockInfo, error) {
	rows, err := db.Query(queryBlocksForFunction, name)
	if err != nil {
		return nil, err
	}
	byIndex := map[int]*BlockInfo{}
	var order []int
	for rows.Next() {
		var idx int
		var idom sql.NullInt64
		if err := rows.Scan(&idx, &idom); err != nil {
			rows.Close()
			return nil, err
		}
		b := &BlockInfo{Index: idx}
		if idom.Valid {
			v := int(idom.Int64)
			b.IDomIndex = &v
		}
		byIndex[idx] = b
		order = append(order, idx)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	cfgRows, err := db.Query(queryCFGEdgesForFunction, name)
	if err != nil {
		return nil, err
	}
	for cfgRows.Next() {
		var source, target int
		var kind string
		if err := cfgRows.Scan(&source, &target, &kind); err != nil {
			cfgRows.Close()
			return nil, err
		}
		if b, ok := byIndex[source]; ok {
			b.Successors = append(b.Successors, Successor{Target: target, Kind: kind})
		}
	}
	if err := cfgRows.Err(); err != nil {
		cfgRows.Close()
		return nil, err
	}
	cfgRows.Close()

	domRows, err := db.Query(queryDomEdgesForFunction, name)
	if err != nil {
		return nil, err
	}
	for domRows.Next() {
		var parent, child int
		if err := domRows.Scan(&parent, &child); err != nil {
			domRows.Close()
			return nil, err
		}
		if b, ok := byIndex[parent]; ok {
			b.DomChildren = append(b.DomChildren, child)
		}
	}
	if err := domRows.Err(); err != nil {
		domRows.Close()
		return nil, err
	}
	domRows.Close()

	dfRows, err := db.Query(queryDFEdgesForFunction, name)
	if err != nil {
		return nil, err
	}
	for dfRows.Next() {
		var block, frontier int
		if err := dfRows.Scan(&block, &frontier); err != nil {
			dfRows.Close()
			return nil, err
		}
		if b, ok := byIndex[block]; ok {
			b.Frontier = append(b.Frontier, frontier)
		}
	}
	if err := dfRows.Err(); err != nil {
		dfRows.Close()
		return nil, err
	}
	dfRows.Close()

	out := make([]BlockInfo, 0, len(order))
	for _, idx := range order {
		out = append(out, *byIndex[idx])
	}
	return out, nil
}

func (db *DB) loopsFor(name string) ([]LoopInfo, error) {
	headerRows, err := db.Query(queryLoopsForFunction, name)
	if err != nil {
		return nil, err
	}
	byHeader := map[int]*LoopInfo{}
	var order []int
	for headerRows.Next() {
		var header int
		if err := headerRows.Scan(&header); err != nil {
			headerRows.Close()
			return nil, err
		}
		byHeader[header] = &LoopInfo{HeaderIndex: header}
		order = append(order, header)
	}
	if err := headerRows.Err(); err != nil {
		headerRows.Close()
		return nil, err
	}
	headerRows.Close()

	memberRows, err := db.Query(queryLoopMembersForFunction, name)
	if err != nil {
		return nil, err
	}
	for memberRows.Next() {
		var header, member int
		if err := memberRows.Scan(&header, &member); err != nil {
			memberRows.Close()
			return nil, err
		}
		if l, ok := byHeader[header]; ok {
			l.Members = append(l.Members, member)
		}
	}
	if err := memberRows.Err(); err != nil {
		memberRows.Close()
		return nil, err
	}
	memberRows.Close()

	out := make([]LoopInfo, 0, len(order))
	for _, header := range order {
		out = append(out, *byHeader[header])
	}
	return out, nil
}

func (db *DB) phisFor(name string) ([]PhiInfo, error) {
	type key struct {
		block  int
		offset int
	}
	phiRows, err := db.Query(queryPhisForFunction, name)
	if err != nil {
		return nil, err
	}
	byKey := map[key]*PhiInfo{}
	var order []key
	for phiRows.Next() {
		var block, offset, ssa int
		var varName string
		if err := phiRows.Scan(&block, &offset, &varName, &ssa); err != nil {
			phiRows.Close()
			return nil, err
		}
		k := key{block, offset}
		byKey[k] = &PhiInfo{BlockIndex: block, VarOffset: offset, VarName: varName, SSAIndex: ssa}
		order = append(order, k)
	}
	if err := phiRows.Err(); err != nil {
		phiRows.Close()
		return nil, err
	}
	phiRows.Close()

	operandRows, err := db.Query(queryPhiOperandsForFunction, name)
	if err != nil {
		return nil, err
	}
	for operandRows.Next() {
		var block, offset, slot int
		var pred sql.NullInt64
		var text string
		if err := operandRows.Scan(&block, &offset, &slot, &pred, &text); err != nil {
			operandRows.Close()
			return nil, err
		}
		op := PhiOperand{Slot: slot, Text: text}
		if pred.Valid {
			v := int(pred.Int64)
			op.PredIndex = &v
		}
		if p, ok := byKey[key{block, offset}]; ok {
			p.Operands = append(p.Operands, op)
		}
	}
	if err := operandRows.Err(); err != nil {
		operandRows.Close()
		return nil, err
	}
	operandRows.Close()

	out := make([]PhiInfo, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}

// Instructions returns every live instruction of one function, in address
// order.
func (db *DB) Instructions(name string) ([]InstructionInfo, error) {
	rows, err := db.Query(queryInstructionsForFunction, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []InstructionInfo{}
	for rows.Next() {
		var in InstructionInfo
		if err := rows.Scan(&in.Name, &in.BlockIndex, &in.Opcode, &in.Text); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Runs lists every persisted pipeline invocation.
func (db *DB) Runs() ([]RunSummary, error) {
	rows, err := db.Query(queryRuns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var inSSA int
		if err := rows.Scan(&r.RunID, &r.FunctionCount, &inSSA); err != nil {
			return nil, err
		}
		r.InSSA = inSSA != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunMetrics returns the per-function metrics recorded for one run.
func (db *DB) RunMetrics(runID string) ([]FunctionMetrics, error) {
	rows, err := db.Query(queryRunMetrics, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FunctionMetrics{}
	for rows.Next() {
		var m FunctionMetrics
		if err := rows.Scan(&m.FunctionName, &m.Instructions, &m.Blocks, &m.Loops,
			&m.Phis, &m.DSEInLoop, &m.DSEOutOfLoop, &m.LICMHoisted); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

package main

// SQL constants over the schema written by WriteDB (db.go in the root
// module): functions, blocks, cfg_edges, dom_edges, df_edges, loops,
// loop_members, instructions, phis, phi_operands, runs, run_metrics.

const queryFunctionSummaries = `
SELECT f.name, f.is_main, f.frame_size, f.arg_count, f.entry_block,
  (SELECT COUNT(*) FROM blocks b WHERE b.function_name = f.name) AS block_count,
  (SELECT COUNT(*) FROM instructions i WHERE i.function_name = f.name) AS instr_count,
  (SELECT COUNT(*) FROM loops l WHERE l.function_name = f.name) AS loop_count
FROM functions f
ORDER BY f.name
`

const queryFunctionByName = `
SELECT name, is_main, frame_size, arg_count, entry_block FROM functions WHERE name = ?
`

const queryBlocksForFunction = `
SELECT block_index, idom_index FROM blocks WHERE function_name = ? ORDER BY block_index
`

const queryCFGEdgesForFunction = `
SELECT source_index, target_index, kind FROM cfg_edges WHERE function_name = ? ORDER BY source_index
`

const queryDomEdgesForFunction = `
SELECT parent_index, child_index FROM dom_edges WHERE function_name = ? ORDER BY parent_index
`

const queryDFEdgesForFunction = `
SELECT block_index, frontier_index FROM df_edges WHERE function_name = ? ORDER BY block_index
`

const queryLoopsForFunction = `
SELECT header_index FROM loops WHERE function_name = ? ORDER BY header_index
`

const queryLoopMembersForFunction = `
SELECT header_index, member_index FROM loop_members WHERE function_name = ? ORDER BY header_index, member_index
`

const queryPhisForFunction = `
SELECT block_index, var_offset, var_name, ssa_index FROM phis WHERE function_name = ? ORDER BY block_index, var_offset
`

const queryPhiOperandsForFunction = `
SELECT block_index, var_offset, slot, pred_index, operand_text FROM phi_operands
WHERE function_name = ? ORDER BY block_index, var_offset, slot
`

const queryInstructionsForFunction = `
SELECT name, block_index, opcode, text FROM instructions WHERE function_name = ? ORDER BY name
`

const queryRuns = `SELECT run_id, function_count, in_ssa FROM runs ORDER BY run_id`

const queryRunMetrics = `
SELECT function_name, instructions, blocks, loops, phis, dse_in_loop, dse_out_of_loop, licm_hoisted
FROM run_metrics WHERE run_id = ? ORDER BY function_name
`

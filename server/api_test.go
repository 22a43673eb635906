package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory SQLite DB with the 3AC dump schema and a
// small two-function fixture: f (entry block 0, one natural loop header at
// block 1 with a φ for a loop counter) and main (a single straight-line
// block).
func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
	CREATE TABLE runs (run_id TEXT PRIMARY KEY, function_count INTEGER, in_ssa INTEGER);
	CREATE TABLE functions (name TEXT PRIMARY KEY, is_main INTEGER, frame_size INTEGER, arg_count INTEGER, entry_block INTEGER);
	CREATE TABLE blocks (function_name TEXT, block_index INTEGER, idom_index INTEGER);
	CREATE TABLE cfg_edges (function_name TEXT, source_index INTEGER, target_index INTEGER, kind TEXT);
	CREATE TABLE dom_edges (function_name TEXT, parent_index INTEGER, child_index INTEGER);
	CREATE TABLE df_edges (function_name TEXT, block_index INTEGER, frontier_index INTEGER);
	CREATE TABLE loops (function_name TEXT, header_index INTEGER);
	CREATE TABLE loop_members (function_name TEXT, header_index INTEGER, member_index INTEGER);
	CREATE TABLE instructions (function_name TEXT, name INTEGER, block_index INTEGER, opcode TEXT, text TEXT);
	CREATE TABLE phis (function_name TEXT, block_index INTEGER, var_offset INTEGER, var_name TEXT, ssa_index INTEGER);
	CREATE TABLE phi_operands (function_name TEXT, block_index INTEGER, var_offset INTEGER, slot INTEGER, pred_index INTEGER, operand_text TEXT);
	CREATE TABLE run_metrics (run_id TEXT, function_name TEXT, instructions INTEGER, blocks INTEGER, loops INTEGER, phis INTEGER, dse_in_loop INTEGER, dse_out_of_loop INTEGER, licm_hoisted INTEGER);
	`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}

	_, _ = db.Exec(`INSERT INTO runs VALUES ('run-1', 2, 0);`)

	_, _ = db.Exec(`INSERT INTO functions VALUES ('f', 0, 16, 1, 0);`)
	_, _ = db.Exec(`INSERT INTO blocks VALUES ('f', 0, NULL), ('f', 1, 0), ('f', 2, 1);`)
	_, _ = db.Exec(`INSERT INTO cfg_edges VALUES ('f', 0, 1, 'seq'), ('f', 1, 1, 'br'), ('f', 1, 2, 'seq');`)
	_, _ = db.Exec(`INSERT INTO dom_edges VALUES ('f', 0, 1), ('f', 1, 2);`)
	_, _ = db.Exec(`INSERT INTO df_edges VALUES ('f', 1, 1);`)
	_, _ = db.Exec(`INSERT INTO loops VALUES ('f', 1);`)
	_, _ = db.Exec(`INSERT INTO loop_members VALUES ('f', 1, 1);`)
	_, _ = db.Exec(`INSERT INTO instructions VALUES
		('f', 1, 0, 'move', 'move 0 (1)'),
		('f', 2, 1, 'cmplt', 'cmplt i#-8.1 n#-4.0'),
		('f', 3, 2, 'ret', 'ret 0');`)
	_, _ = db.Exec(`INSERT INTO phis VALUES ('f', 1, -8, 'i', 1);`)
	_, _ = db.Exec(`INSERT INTO phi_operands VALUES
		('f', 1, -8, 0, 0, '0'),
		('f', 1, -8, 1, 1, 'i#-8.2');`)

	_, _ = db.Exec(`INSERT INTO functions VALUES ('main', 1, 0, 0, 3);`)
	_, _ = db.Exec(`INSERT INTO blocks VALUES ('main', 3, NULL);`)
	_, _ = db.Exec(`INSERT INTO instructions VALUES ('main', 4, 3, 'ret', 'ret 0');`)

	_, _ = db.Exec(`INSERT INTO run_metrics VALUES
		('run-1', 'f', 3, 3, 1, 1, 0, 0, 0),
		('run-1', 'main', 1, 1, 0, 0, 0, 0, 0);`)

	return db
}

func TestAPI_Functions_Success(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/functions: want 200, got %d", rec.Code)
	}
	var list []FunctionSummary
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode functions response: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(list))
	}
	var f, main *FunctionSummary
	for i := range list {
		switch list[i].Name {
		case "f":
			f = &list[i]
		case "main":
			main = &list[i]
		}
	}
	if f == nil || f.BlockCount != 3 || f.LoopCount != 1 {
		t.Errorf("unexpected summary for f: %+v", f)
	}
	if main == nil || !main.IsMain {
		t.Errorf("unexpected summary for main: %+v", main)
	}
}

func TestAPI_Function_MissingParam(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/function", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/function without name: want 400, got %d", rec.Code)
	}
}

func TestAPI_Function_NotFound(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/function?name=nope", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/function?name=nope: want 404, got %d", rec.Code)
	}
}

func TestAPI_Function_Success(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/function?name=f", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/function?name=f: want 200, got %d", rec.Code)
	}
	var detail FunctionDetail
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatalf("decode function detail: %v", err)
	}
	if detail.Function.Name != "f" {
		t.Errorf("unexpected function name: %q", detail.Function.Name)
	}
	if len(detail.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(detail.Blocks))
	}
	header := detail.Blocks[1]
	if header.IDomIndex == nil || *header.IDomIndex != 0 {
		t.Errorf("block 1 idom: want 0, got %v", header.IDomIndex)
	}
	if len(header.Successors) != 2 {
		t.Errorf("block 1 successors: want 2, got %d", len(header.Successors))
	}
	if len(detail.Loops) != 1 || detail.Loops[0].HeaderIndex != 1 {
		t.Errorf("unexpected loops: %+v", detail.Loops)
	}
	if len(detail.Phis) != 1 || len(detail.Phis[0].Operands) != 2 {
		t.Fatalf("unexpected phis: %+v", detail.Phis)
	}
}

func TestAPI_Instructions_MissingParam(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/instructions", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/instructions without function: want 400, got %d", rec.Code)
	}
}

func TestAPI_Instructions_Success(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/instructions?function=f", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/instructions?function=f: want 200, got %d", rec.Code)
	}
	var list []InstructionInfo
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode instructions: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(list))
	}
	if list[0].Name != 1 || list[2].Name != 3 {
		t.Errorf("instructions not in address order: %+v", list)
	}
}

func TestAPI_Runs_List(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/runs: want 200, got %d", rec.Code)
	}
	var list []RunSummary
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(list) != 1 || list[0].RunID != "run-1" {
		t.Errorf("unexpected runs: %+v", list)
	}
}

func TestAPI_Runs_Metrics(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/runs?run_id=run-1", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/runs?run_id=run-1: want 200, got %d", rec.Code)
	}
	var metrics []FunctionMetrics
	if err := json.NewDecoder(rec.Body).Decode(&metrics); err != nil {
		t.Fatalf("decode run metrics: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("expected 2 function metrics, got %d", len(metrics))
	}
}

func TestAPI_CORS(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("CORS Access-Control-Allow-Origin: want *, got %q", origin)
	}
}

func TestAPI_ContentType(t *testing.T) {
	db := setupTestDB(t)
	app := NewApp(db, "")
	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	ct := rec.Header().Get("Content-Type")
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type: want application/json; charset=utf-8, got %q", ct)
	}
}

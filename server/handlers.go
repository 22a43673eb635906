package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
)

func (a *App) handleFunctions(w http.ResponseWriter, r *http.Request) {
	list, err := a.db.Functions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (a *App) handleFunction(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing query parameter name", http.StatusBadRequest)
		return
	}
	detail, err := a.db.FunctionDetail(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "function not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, detail)
}

func (a *App) handleInstructions(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("function")
	if name == "" {
		http.Error(w, "missing query parameter function", http.StatusBadRequest)
		return
	}
	list, err := a.db.Instructions(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID != "" {
		metrics, err := a.db.RunMetrics(runID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, metrics)
		return
	}
	list, err := a.db.Runs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

package main

import "github.com/google/uuid"

// NewRunID generates a fresh identifier for one pipeline invocation,
// persisted alongside its metrics when -db is given (SPEC_FULL.md §4.11).
func NewRunID() string {
	return uuid.NewString()
}

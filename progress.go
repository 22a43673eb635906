package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Progress reports pipeline progress to stderr with elapsed time, in the
// teacher's mm:ss-prefixed line style (adapted from the teacher's
// progress.go), using humanize for readable counts (SPEC_FULL.md §7).
type Progress struct {
	start   time.Time
	verbose bool
	color   bool
}

// NewProgress creates a progress reporter. Color is only ever enabled when
// stdout is a terminal (SPEC_FULL.md §7: isatty-gated ANSI).
func NewProgress(verbose bool) *Progress {
	return &Progress{
		start:   time.Now(),
		verbose: verbose,
		color:   isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// Log prints a progress message with an elapsed mm:ss prefix.
func (p *Progress) Log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "[%02d:%02d] %s\n", mins, secs, msg)
}

// Verbose prints only when verbose mode is enabled.
func (p *Progress) Verbose(format string, args ...any) {
	if p.verbose {
		p.Log(format, args...)
	}
}

// Count renders n with thousands separators for log lines (e.g. pass
// summaries over large programs), via humanize.Comma.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Since renders the time elapsed since start as a humanized relative
// duration (humanize.RelTime, e.g. "2 seconds"), not in mm:ss form, for a
// final "done in ..." summary line.
func Since(start time.Time) string {
	return humanize.RelTime(start, time.Now(), "", "")
}

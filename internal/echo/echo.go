// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package echo owns all user-facing terminal output for the shell: status
// messages, errors, raw payload printing and paginated output. Payload bytes
// always go out; status chatter is suppressed when the session is not verbose
// (batch and one-shot modes).
package echo

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pterm/pterm"
)

// Echo is the output sink for one session.
type Echo struct {
	// Verbose gates status messages (not errors, not payloads).
	Verbose bool
	// Colors toggles pterm styling for status messages.
	Colors bool

	Out io.Writer
	Err io.Writer

	// PagerCommand overrides $PAGER; used by tests.
	PagerCommand string
}

// New returns an Echo writing to stdout/stderr.
func New(verbose, colors bool) *Echo {
	return &Echo{Verbose: verbose, Colors: colors, Out: os.Stdout, Err: os.Stderr}
}

// Print writes a status line, suppressed unless verbose.
func (e *Echo) Print(msg string) {
	if !e.Verbose {
		return
	}
	fmt.Fprintln(e.Out, msg)
}

// Printf is Print with formatting.
func (e *Echo) Printf(format string, args ...any) {
	e.Print(fmt.Sprintf(format, args...))
}

// Success writes a green status line, suppressed unless verbose.
func (e *Echo) Success(msg string) {
	if !e.Verbose {
		return
	}
	fmt.Fprintln(e.Out, e.style(msg, pterm.FgGreen))
}

// SuccessInline writes a green status fragment without a trailing newline.
func (e *Echo) SuccessInline(msg string) {
	if !e.Verbose {
		return
	}
	fmt.Fprint(e.Out, e.style(msg, pterm.FgGreen))
}

// Warning writes a yellow status line, suppressed unless verbose.
func (e *Echo) Warning(msg string) {
	if !e.Verbose {
		return
	}
	fmt.Fprintln(e.Out, e.style(msg, pterm.FgYellow))
}

// Error writes a red line to stderr. Errors are never suppressed.
func (e *Echo) Error(msg string) {
	fmt.Fprintln(e.Err, e.style(msg, pterm.FgRed))
}

// Errorf is Error with formatting.
func (e *Echo) Errorf(format string, args ...any) {
	e.Error(fmt.Sprintf(format, args...))
}

// Data writes raw payload text. Payloads are printed regardless of verbosity.
func (e *Echo) Data(payload string) {
	fmt.Fprintln(e.Out, payload)
}

// Pager feeds the payload through the user's pager. Falls back to direct
// printing when no pager can be started.
func (e *Echo) Pager(payload string) {
	name, args := e.pagerCommand()
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(payload)
	cmd.Stdout = e.Out
	cmd.Stderr = e.Err
	if err := cmd.Run(); err != nil {
		e.Data(payload)
	}
}

func (e *Echo) pagerCommand() (string, []string) {
	raw := e.PagerCommand
	if raw == "" {
		raw = os.Getenv("PAGER")
	}
	if raw == "" {
		return "less", []string{"-RS"}
	}
	fields := strings.Fields(raw)
	return fields[0], fields[1:]
}

func (e *Echo) style(msg string, color pterm.Color) string {
	if !e.Colors {
		return msg
	}
	return pterm.NewStyle(color).Sprint(msg)
}

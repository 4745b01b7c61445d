// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"colsql/cli/internal/xdg"
)

const (
	prompt             = " :) "
	continuationPrompt = " :-] "
)

// runInteractive is the read-eval loop. Each line-editor read yields one
// input unit; interrupts during execution cancel the unit's tracked
// executions; end-of-input ends the session with a goodbye.
func (s *Session) runInteractive(ctx context.Context) error {
	signal.Notify(s.interrupts, os.Interrupt)
	defer signal.Stop(s.interrupts)

	rl, err := s.newReadline()
	if err != nil {
		return err
	}
	defer rl.Close()

	if s.meta != nil {
		s.meta.Refresh(ctx)
	}

	for {
		input, err := s.readUnit(rl)
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			s.echo.Success("Bye.")
			return nil
		case err != nil:
			return err
		}

		// Drop any interrupt that raced in while the prompt was idle, so it
		// cannot cancel the upcoming unit.
		select {
		case <-s.interrupts:
		default:
		}

		if err := s.runUnit(ctx, input, true, true); errors.Is(err, ErrExit) {
			s.echo.Success("Bye.")
			return nil
		}
	}
}

// readUnit reads one input unit. With multiline editing enabled, lines
// accumulate until a terminating semicolon, a pager-marker line or a shell
// command; single-line mode returns each line as its own unit.
func (s *Session) readUnit(rl *readline.Instance) (string, error) {
	rl.SetPrompt(prompt)
	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	if !s.cfg.Multiline || unitComplete(line) {
		return line, nil
	}

	var b strings.Builder
	b.WriteString(line)
	rl.SetPrompt(continuationPrompt)
	for {
		next, err := rl.Readline()
		if err != nil {
			// An interrupt mid-accumulation cancels the whole unit.
			return "", err
		}
		b.WriteString("\n")
		b.WriteString(next)
		if unitComplete(b.String()) {
			return b.String(), nil
		}
	}
}

// unitComplete reports whether accumulated multiline input forms a whole
// unit: it ends with a statement terminator or pager marker, is a backslash
// command, or is empty.
func unitComplete(input string) bool {
	t := strings.TrimSpace(input)
	if t == "" || strings.HasPrefix(t, `\`) {
		return true
	}
	if strings.HasSuffix(t, ";") || strings.HasSuffix(t, `\p`) || strings.HasSuffix(t, `\G`) || strings.HasSuffix(t, `\g`) {
		return true
	}
	return exitKeywords[strings.ToLower(t)]
}

// newReadline builds the line-editor instance: history in the XDG state dir,
// tab completion backed by the metadata collaborator.
func (s *Session) newReadline() (*readline.Instance, error) {
	cfg := &readline.Config{
		Prompt:            prompt,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}
	if dir, err := xdg.StateDir(); err == nil {
		cfg.HistoryFile = filepath.Join(dir, "history")
	}
	if s.meta != nil {
		cfg.AutoComplete = s.meta
	}
	return readline.NewEx(cfg)
}

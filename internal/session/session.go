// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session is the shell's orchestration engine. It owns the resolved
// configuration, the connection, the set of in-flight execution identifiers
// and the run-mode selection: interactive shell, piped batch queries, piped
// ingestion or a single one-shot query.
//
// Concurrency model: one logical thread of control. Each statement is
// dispatched in a helper goroutine only so the loop can select between
// statement completion and an interrupt; the tracked-identifier set is
// mutated exclusively by the loop body reacting to those two events.
package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"colsql/cli/internal/client"
	"colsql/cli/internal/config"
	"colsql/cli/internal/echo"
	"colsql/cli/internal/format"
	"colsql/cli/internal/metadata"
	"colsql/cli/internal/sqltext"
)

// ErrExit signals a clean, user-requested session termination. It is not an
// error condition; it propagates only to unwind the input loop.
var ErrExit = errors.New("session exit requested")

// errInterrupted aborts the remaining statements of the current input unit
// after a user interrupt.
var errInterrupted = errors.New("unit interrupted")

// Executor is the query-execution collaborator consumed by the session.
// *client.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, q client.Query) (*client.Response, error)
	KillQuery(ctx context.Context, id string) error
	ServerVersion(ctx context.Context) (client.Version, error)
}

// Input is one piped or file payload handed to the session.
type Input struct {
	// Name is the source name; a recognized compressed-file extension
	// selects the matching payload codec on ingestion.
	Name   string
	Reader io.Reader
}

// Session is the top-level controller for one shell invocation.
type Session struct {
	cfg  config.Resolved
	exec Executor
	echo *echo.Echo
	meta *metadata.Completer

	appVersion string
	version    client.Version
	dialect    sqltext.Dialect

	// activeFormat is the response format for the current run mode.
	activeFormat format.Format

	// queryIDs tracks the execution identifiers of the current input unit.
	// Only the unit loop mutates it; it is cleared unconditionally when the
	// unit ends, so cancellation stays best-effort.
	queryIDs []string

	// interrupts receives user-interrupt events while a unit is executing.
	interrupts chan os.Signal

	// out receives raw payload bytes; status chatter goes through echo.
	out io.Writer
}

// New creates a session over the given executor. The echo sink's verbosity is
// adjusted by Run once the run mode is known.
func New(cfg config.Resolved, exec Executor, e *echo.Echo, appVersion string) *Session {
	s := &Session{
		cfg:          cfg,
		exec:         exec,
		echo:         e,
		appVersion:   appVersion,
		dialect:      sqltext.DefaultDialect(),
		activeFormat: format.Resolve(cfg.Format),
		interrupts:   make(chan os.Signal, 1),
		out:          e.Out,
	}
	if c, ok := exec.(metadata.Fetcher); ok {
		s.meta = metadata.New(c)
	}
	return s
}

// Run resolves the run mode from its inputs, connects, and drives the session
// to completion. A failed connect is reported and ends the run without error
// escalation; the process exit code stays zero, as the failure was already
// shown to the user.
func (s *Session) Run(ctx context.Context, query string, inputs []Input) error {
	batch := len(inputs) > 0 || query != ""
	if batch {
		s.activeFormat = format.Resolve(s.cfg.FormatStdin)
		s.echo.Verbose = false
	}

	s.echo.Printf("colsql version: %s", s.appVersion)
	if !s.connect(ctx) {
		return nil
	}

	switch {
	case len(inputs) > 0 && query == "":
		return s.runBatch(ctx, inputs)
	case len(inputs) == 0 && query != "":
		return s.runOneShot(ctx, query)
	case len(inputs) > 0 && query != "":
		return s.runIngestion(ctx, query, inputs)
	default:
		return s.runInteractive(ctx)
	}
}

// connect issues the version probe and stores the server version triple.
// Any failure is reported specifically and leaves the session unconnected.
func (s *Session) connect(ctx context.Context) bool {
	s.echo.Printf("Connecting to %s:%d", s.cfg.Host, s.cfg.Port)

	version, err := s.exec.ServerVersion(ctx)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrTimeout):
			s.echo.Error("Error: Connection timeout.")
		case errors.Is(err, client.ErrBadVersionProbe):
			s.echo.Error("Error: Request failed: the version probe query failed.")
		case errors.Is(err, client.ErrConnection):
			s.echo.Error("Error: Failed to connect.")
		default:
			var serverErr *client.ServerError
			if errors.As(err, &serverErr) {
				s.echo.Error("Error:")
				s.echo.Error(serverErr.Message)
				if s.cfg.Stacktrace && serverErr.StackTrace != "" {
					s.echo.Print("Stack trace:")
					s.echo.Print(serverErr.StackTrace)
				}
			} else {
				s.echo.Errorf("Error: %v", err)
			}
		}
		return false
	}

	s.version = version
	s.echo.Success("Connected to server v" + version.String() + ".")
	s.echo.Print("")
	return true
}

// runBatch feeds each piped/file payload through the full statement pipeline
// non-interactively: verbosity off, metadata refresh off.
func (s *Session) runBatch(ctx context.Context, inputs []Input) error {
	for _, in := range inputs {
		data, err := io.ReadAll(in.Reader)
		if err != nil {
			s.echo.Errorf("Error: cannot read %s: %v", in.Name, err)
			continue
		}
		if err := s.runUnit(ctx, string(data), false, false); errors.Is(err, ErrExit) {
			return nil
		}
	}
	return nil
}

// runOneShot dispatches the single explicit query with streaming enabled.
func (s *Session) runOneShot(ctx context.Context, query string) error {
	st := sqltext.Statement{Text: query, ID: uuid.NewString()}
	s.queryIDs = []string{st.ID}
	defer func() { s.queryIDs = nil }()

	err := s.runStatement(ctx, st, dispatchOptions{stream: true})
	if errors.Is(err, ErrExit) || errors.Is(err, errInterrupted) {
		return nil
	}
	return err
}

// runIngestion dispatches the fixed query once per payload. Gzipped files
// (by extension) are forwarded with the matching codec flag.
func (s *Session) runIngestion(ctx context.Context, query string, inputs []Input) error {
	for _, in := range inputs {
		st := sqltext.Statement{Text: query, ID: uuid.NewString()}
		s.queryIDs = []string{st.ID}

		opts := dispatchOptions{stream: true, data: in.Reader}
		if filepath.Ext(in.Name) == ".gz" {
			opts.compression = "gzip"
		}
		err := s.runStatement(ctx, st, opts)
		s.queryIDs = nil
		if errors.Is(err, ErrExit) {
			return nil
		}
	}
	return nil
}

// runUnit processes one input unit: split, then run each statement in
// sequence. The tracked-identifier set holds every identifier assigned to
// the unit and is cleared unconditionally when the unit ends, interrupted
// or not.
func (s *Session) runUnit(ctx context.Context, input string, verbose, refreshMeta bool) error {
	unit := sqltext.Split(s.dialect, input)
	if len(unit.Statements) == 0 {
		return nil
	}

	s.queryIDs = s.queryIDs[:0]
	for _, st := range unit.Statements {
		s.queryIDs = append(s.queryIDs, st.ID)
	}
	defer func() { s.queryIDs = nil }()

	interrupted := false
	for _, st := range unit.Statements {
		err := s.runStatement(ctx, st, dispatchOptions{
			verbose:    verbose,
			forcePager: unit.ForcePager,
		})
		if errors.Is(err, ErrExit) {
			return err
		}
		if errors.Is(err, errInterrupted) {
			interrupted = true
			break
		}
	}

	if refreshMeta && !interrupted && s.meta != nil {
		s.meta.Refresh(ctx)
	}
	return nil
}

// runStatement rewrites one statement and either performs its local action or
// dispatches it. Dispatch runs in a helper goroutine so the loop can select
// between completion and interruption; on interrupt every identifier tracked
// for the current unit is cancelled best-effort and tracking is reset.
func (s *Session) runStatement(ctx context.Context, st sqltext.Statement, opts dispatchOptions) error {
	rw := RewriteCommand(st.Text, s.version, st.ID)
	switch rw.Action {
	case ActionNoop:
		return nil
	case ActionExit:
		return ErrExit
	case ActionHelp:
		s.printHelp()
		return nil
	case ActionKill:
		if err := s.exec.KillQuery(ctx, rw.KillTarget); err != nil {
			s.echo.Errorf("Error: failed to kill query %s.", rw.KillTarget)
		}
		return nil
	}

	s.echoRewrite(st.Text, rw.Statement, opts.verbose)

	qctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.dispatch(qctx, rw.Statement, st.ID, opts)
	}()

	select {
	case <-done:
		return nil
	case <-s.interrupts:
		cancel()
		<-done
		for _, id := range s.queryIDs {
			_ = s.exec.KillQuery(context.Background(), id)
		}
		s.queryIDs = nil
		s.echo.Error("\nQuery was terminated.")
		return errInterrupted
	}
}

// echoRewrite shows the server-bound query when a meta command was rewritten,
// so the user sees what actually ran.
func (s *Session) echoRewrite(original, rewritten string, verbose bool) {
	if !verbose || !s.cfg.ShowFormattedQuery || original == rewritten {
		return
	}
	if !strings.HasPrefix(strings.TrimSpace(original), `\`) {
		return
	}
	s.echo.Print(s.maybeHighlight(rewritten))
}

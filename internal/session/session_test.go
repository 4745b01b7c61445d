// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colsql/cli/internal/client"
	"colsql/cli/internal/config"
	"colsql/cli/internal/echo"
)

// fakeExec records every execution and cancellation it is asked for.
type fakeExec struct {
	mu       sync.Mutex
	executed []client.Query
	killed   []string

	// executeFn overrides the default empty-response behavior.
	executeFn func(ctx context.Context, q client.Query) (*client.Response, error)
}

func (f *fakeExec) Execute(ctx context.Context, q client.Query) (*client.Response, error) {
	f.mu.Lock()
	f.executed = append(f.executed, q)
	f.mu.Unlock()
	if f.executeFn != nil {
		return f.executeFn(ctx, q)
	}
	return &client.Response{}, nil
}

func (f *fakeExec) KillQuery(ctx context.Context, id string) error {
	f.mu.Lock()
	f.killed = append(f.killed, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeExec) ServerVersion(ctx context.Context) (client.Version, error) {
	return client.Version{Major: 23, Minor: 8, Patch: 54465}, nil
}

func (f *fakeExec) statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.executed))
	for i, q := range f.executed {
		out[i] = q.Statement
	}
	return out
}

type testHarness struct {
	session *Session
	exec    *fakeExec
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func newHarness(t *testing.T, mutate func(*config.Resolved)) *testHarness {
	t.Helper()

	cfg := config.Resolved{
		Host:               "127.0.0.1",
		Port:               8123,
		User:               "default",
		Database:           "default",
		Format:             "PrettyCompactMonoBlock",
		FormatStdin:        "TabSeparated",
		ShowFormattedQuery: true,
		Timing:             true,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	exec := &fakeExec{}
	e := &echo.Echo{Verbose: true, Out: &bytes.Buffer{}, Err: &bytes.Buffer{}}
	return &testHarness{
		session: New(cfg, exec, e, "test"),
		exec:    exec,
		stdout:  e.Out.(*bytes.Buffer),
		stderr:  e.Err.(*bytes.Buffer),
	}
}

func TestRunUnitExecutesStatementsInOrder(t *testing.T) {
	h := newHarness(t, nil)

	err := h.session.runUnit(context.Background(), "SELECT 1; SELECT 2;", false, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;"}, h.exec.statements())
	assert.NotEqual(t, h.exec.executed[0].ID, h.exec.executed[1].ID)
	assert.Nil(t, h.session.queryIDs, "tracking must be cleared when the unit ends")
}

func TestRunUnitFailureDoesNotAbortSiblings(t *testing.T) {
	h := newHarness(t, nil)
	h.exec.executeFn = func(ctx context.Context, q client.Query) (*client.Response, error) {
		if strings.HasPrefix(q.Statement, "SELECT 1") {
			return nil, client.ErrTimeout
		}
		return &client.Response{}, nil
	}

	err := h.session.runUnit(context.Background(), "SELECT 1; SELECT 2;", false, false)
	require.NoError(t, err)

	assert.Len(t, h.exec.executed, 2)
	assert.Contains(t, h.stderr.String(), "Error: Connection timeout.")
}

func TestRunUnitExitStopsUnit(t *testing.T) {
	h := newHarness(t, nil)

	err := h.session.runUnit(context.Background(), "exit; SELECT 1;", false, false)
	assert.ErrorIs(t, err, ErrExit)
	assert.Empty(t, h.exec.executed)
}

func TestRunUnitEmptyInputDispatchesNothing(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.session.runUnit(context.Background(), "   \n\t", false, false))
	assert.Empty(t, h.exec.executed)
	assert.Empty(t, h.exec.killed)
}

func TestKillCommandCancelsWithoutDispatch(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.session.runUnit(context.Background(), `\kill abc-123`, false, false))
	assert.Empty(t, h.exec.executed)
	assert.Equal(t, []string{"abc-123"}, h.exec.killed)
}

func TestHelpIsLocal(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.session.runUnit(context.Background(), `\?`, true, false))
	assert.Empty(t, h.exec.executed)
	assert.Contains(t, h.stdout.String(), `\kill`)
	assert.Contains(t, h.stdout.String(), "SET")
}

func TestInterruptCancelsEveryTrackedExecution(t *testing.T) {
	h := newHarness(t, nil)
	h.exec.executeFn = func(ctx context.Context, q client.Query) (*client.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	// The interrupt is already pending when the first statement starts, and
	// dispatch only returns once its context is cancelled, so the loop must
	// take the interrupt branch.
	h.session.interrupts <- os.Interrupt

	err := h.session.runUnit(context.Background(), "SELECT 1; SELECT 2; SELECT 3;", false, false)
	require.NoError(t, err)

	assert.Len(t, h.exec.executed, 1, "remaining statements are abandoned")
	assert.Len(t, h.exec.killed, 3, "every tracked identifier gets a cancel request")
	assert.Nil(t, h.session.queryIDs)
	// The cancelled round trip is not a fault: the termination notice is the
	// only thing the user sees.
	assert.Equal(t, "\nQuery was terminated.\n", h.stderr.String())
}

func TestInterruptSkipsMetadataRefresh(t *testing.T) {
	h := newHarness(t, nil)
	h.exec.executeFn = func(ctx context.Context, q client.Query) (*client.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	h.session.interrupts <- os.Interrupt

	require.NoError(t, h.session.runUnit(context.Background(), "SELECT 1;", false, true))

	for _, stmt := range h.exec.statements() {
		assert.NotContains(t, stmt, "SHOW DATABASES")
		assert.NotContains(t, stmt, "SHOW TABLES")
	}
}

func TestCompletedUnitRefreshesMetadata(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.session.runUnit(context.Background(), "SELECT 1;", false, true))

	stmts := h.exec.statements()
	assert.Contains(t, stmts, "SHOW DATABASES")
	assert.Contains(t, stmts, "SHOW TABLES")
}

func TestServerExceptionReport(t *testing.T) {
	serr := &client.ServerError{
		Code:       62,
		Message:    "Code: 62. Syntax error",
		StackTrace: "0. DB::Exception::Exception",
		Elapsed:    0.004,
	}

	tests := []struct {
		name       string
		stacktrace bool
	}{
		{name: "with stack trace", stacktrace: true},
		{name: "without stack trace", stacktrace: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(c *config.Resolved) { c.Stacktrace = tt.stacktrace })
			h.exec.executeFn = func(ctx context.Context, q client.Query) (*client.Response, error) {
				return nil, serr
			}

			require.NoError(t, h.session.runUnit(context.Background(), "SELECT bogus", false, false))

			errOut := h.stderr.String()
			assert.Contains(t, errOut, "Query:")
			assert.Contains(t, errOut, "SELECT bogus")
			assert.Contains(t, errOut, "Received exception from server:")
			assert.Contains(t, errOut, "Code: 62. Syntax error")
			assert.Less(t, strings.Index(errOut, "Query:"), strings.Index(errOut, "Received exception"))
			assert.Equal(t, tt.stacktrace, strings.Contains(h.stdout.String(), "Stack trace:"))
		})
	}
}

func TestRunOneShotStreams(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.session.Run(context.Background(), "SELECT 1", nil))

	assert.Len(t, h.exec.executed, 1)
	q := h.exec.executed[0]
	assert.True(t, q.Stream)
	assert.Equal(t, "TabSeparated", q.Format.Name)
	assert.NotEmpty(t, q.ID)
}

func TestRunIngestionCompression(t *testing.T) {
	h := newHarness(t, nil)

	inputs := []Input{
		{Name: "rows.gz", Reader: strings.NewReader("1\n2\n")},
		{Name: "rows.csv", Reader: strings.NewReader("3\n4\n")},
	}
	require.NoError(t, h.session.Run(context.Background(), "INSERT INTO t FORMAT CSV", inputs))

	assert.Len(t, h.exec.executed, 2)
	assert.Equal(t, "gzip", h.exec.executed[0].Compression)
	assert.Empty(t, h.exec.executed[1].Compression)
	assert.NotNil(t, h.exec.executed[0].Data)
	assert.NotEqual(t, h.exec.executed[0].ID, h.exec.executed[1].ID)
}

func TestRunBatchUsesStdinFormat(t *testing.T) {
	h := newHarness(t, nil)

	inputs := []Input{{Name: "stdin", Reader: strings.NewReader("SELECT 1; SELECT 2;")}}
	require.NoError(t, h.session.Run(context.Background(), "", inputs))

	require.Len(t, h.exec.executed, 2)
	for _, q := range h.exec.executed {
		assert.Equal(t, "TabSeparated", q.Format.Name)
	}
	assert.False(t, h.session.echo.Verbose, "batch mode silences status chatter")
}

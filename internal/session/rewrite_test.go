// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"colsql/cli/internal/client"
)

func TestRewriteCommandMappings(t *testing.T) {
	v := client.Version{Major: 1, Minor: 1, Patch: 54115}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "show tables short", in: `\d`, want: "SHOW TABLES"},
		{name: "show tables long", in: `\dt`, want: "SHOW TABLES"},
		{name: "describe table", in: `\d+ foo`, want: "DESCRIBE TABLE foo"},
		{name: "show databases", in: `\l`, want: "SHOW DATABASES"},
		{name: "use database", in: `\c bar`, want: "USE bar"},
		{name: "passthrough", in: "SELECT 1", want: "SELECT 1"},
		{name: "passthrough keeps semicolon", in: "SELECT 1;", want: "SELECT 1;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := RewriteCommand(tt.in, v, "qid")
			assert.Equal(t, ActionQuery, rw.Action)
			assert.Equal(t, tt.want, rw.Statement)
		})
	}
}

func TestRewriteProcessListColumnByPatchVersion(t *testing.T) {
	tests := []struct {
		name    string
		patch   int
		column  string
		missing string
	}{
		{name: "at threshold", patch: 54115, column: "read_rows", missing: "rows_read"},
		{name: "below threshold", patch: 54114, column: "rows_read", missing: "read_rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := RewriteCommand(`\ps`, client.Version{Major: 1, Minor: 1, Patch: tt.patch}, "self-id")
			assert.Equal(t, ActionQuery, rw.Action)
			assert.Contains(t, rw.Statement, tt.column)
			assert.False(t, strings.Contains(rw.Statement, tt.missing))
			// The process list filters out its own execution.
			assert.Contains(t, rw.Statement, "query_id != 'self-id'")
		})
	}
}

func TestRewriteLocalActions(t *testing.T) {
	v := client.Version{}

	tests := []struct {
		name string
		in   string
		want Action
	}{
		{name: "empty", in: "", want: ActionNoop},
		{name: "whitespace", in: "   \t", want: ActionNoop},
		{name: "bare semicolon", in: ";", want: ActionNoop},
		{name: "exit", in: "exit", want: ActionExit},
		{name: "exit uppercase", in: "QUIT", want: ActionExit},
		{name: "exit backslash", in: `\q`, want: ActionExit},
		{name: "help keyword", in: "help", want: ActionHelp},
		{name: "help command", in: `\?`, want: ActionHelp},
		{name: "kill", in: `\kill some-id`, want: ActionKill},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := RewriteCommand(tt.in, v, "qid")
			assert.Equal(t, tt.want, rw.Action)
		})
	}
}

func TestRewriteKillTarget(t *testing.T) {
	rw := RewriteCommand(`\kill abc-123`, client.Version{}, "qid")
	assert.Equal(t, ActionKill, rw.Action)
	assert.Equal(t, "abc-123", rw.KillTarget)
}

func TestRewriteIsPure(t *testing.T) {
	v := client.Version{Major: 1, Minor: 1, Patch: 54200}
	first := RewriteCommand(`\ps`, v, "id-1")
	second := RewriteCommand(`\ps`, v, "id-1")
	assert.Equal(t, first, second)
}

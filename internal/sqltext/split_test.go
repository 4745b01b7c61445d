// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	d := DefaultDialect()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "two statements",
			input: "SELECT 1; SELECT 2;",
			want:  []string{"SELECT 1;", "SELECT 2;"},
		},
		{
			name:  "no trailing semicolon",
			input: "SELECT 1",
			want:  []string{"SELECT 1"},
		},
		{
			name:  "semicolon inside string literal",
			input: "SELECT 'a;b'; SELECT 2",
			want:  []string{"SELECT 'a;b';", "SELECT 2"},
		},
		{
			name:  "escaped quote inside string",
			input: `SELECT 'it\'s; fine'; SELECT 2`,
			want:  []string{`SELECT 'it\'s; fine';`, "SELECT 2"},
		},
		{
			name:  "semicolon inside line comment",
			input: "SELECT 1 -- no; split\n; SELECT 2",
			want:  []string{"SELECT 1 -- no; split\n;", "SELECT 2"},
		},
		{
			name:  "semicolon inside block comment",
			input: "SELECT /* a;b */ 1; SELECT 2",
			want:  []string{"SELECT /* a;b */ 1;", "SELECT 2"},
		},
		{
			name:  "backquoted identifier",
			input: "SELECT `odd;name` FROM t",
			want:  []string{"SELECT `odd;name` FROM t"},
		},
		{
			name:  "backslash command",
			input: `\d`,
			want:  []string{`\d`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Split(d, tt.input)
			require.Len(t, u.Statements, len(tt.want))
			for i, s := range u.Statements {
				assert.Equal(t, tt.want[i], s.Text)
			}
		})
	}
}

func TestSplitEmptyInput(t *testing.T) {
	u := Split(DefaultDialect(), "")
	assert.Empty(t, u.Statements)
	assert.False(t, u.ForcePager)
}

func TestSplitAssignsDistinctIdentifiers(t *testing.T) {
	u := Split(DefaultDialect(), "SELECT 1; SELECT 2;")
	require.Len(t, u.Statements, 2)
	assert.NotEmpty(t, u.Statements[0].ID)
	assert.NotEmpty(t, u.Statements[1].ID)
	assert.NotEqual(t, u.Statements[0].ID, u.Statements[1].ID)
}

func TestSplitPagerMarker(t *testing.T) {
	u := Split(DefaultDialect(), `SELECT 1; SELECT 2 \p`)
	require.Len(t, u.Statements, 2)
	assert.True(t, u.ForcePager)
	assert.Equal(t, "SELECT 2", u.Statements[1].Text)

	// The marker only counts at the very end of the unit.
	u = Split(DefaultDialect(), `SELECT '\p' AS x`)
	require.Len(t, u.Statements, 1)
	assert.False(t, u.ForcePager)
}

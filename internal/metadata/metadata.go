// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package metadata maintains the word list behind the interactive shell's tab
// completion: SQL keywords, the shell's backslash commands and the live
// database/table names fetched from the server. The session refreshes it
// after each non-empty interactive input unit.
package metadata

import (
	"context"
	"strings"

	"colsql/cli/internal/client"
	"colsql/cli/internal/format"
)

// Fetcher is the query surface the refresher needs; *client.Client satisfies it.
type Fetcher interface {
	Execute(ctx context.Context, q client.Query) (*client.Response, error)
}

// keywords are the static completions: statement keywords, clause keywords
// and the shell's own commands.
var keywords = []string{
	// Shell commands
	`\?`, `\d`, `\d+`, `\dt`, `\l`, `\c`, `\ps`, `\kill`, `\p`,
	"help", "quit", "exit",
	// Statement keywords
	"SELECT", "INSERT", "CREATE", "DROP", "ALTER", "RENAME", "ATTACH", "DETACH",
	"OPTIMIZE", "DESCRIBE", "EXISTS", "SHOW", "USE", "SET", "KILL",
	// Clause keywords
	"FROM", "WHERE", "AND", "OR", "NOT", "IN", "LIKE", "ORDER", "BY", "ASC",
	"DESC", "LIMIT", "OFFSET", "GROUP", "HAVING", "DISTINCT", "UNION", "ALL",
	"JOIN", "LEFT", "INNER", "ON", "AS", "INTO", "VALUES", "FORMAT",
	"SAMPLE", "PREWHERE", "ARRAY", "GLOBAL", "TABLES", "DATABASES", "PROCESSLIST",
	// Common types
	"Int8", "Int16", "Int32", "Int64", "UInt8", "UInt16", "UInt32", "UInt64",
	"Float32", "Float64", "String", "FixedString", "Date", "DateTime", "Enum8",
	"Enum16", "Array", "Nullable",
}

// Completer implements readline's AutoCompleter over the merged word list.
type Completer struct {
	fetch Fetcher
	names []string
}

// New creates a completer backed by the given query surface.
func New(fetch Fetcher) *Completer {
	return &Completer{fetch: fetch}
}

// Refresh re-fetches database and table names. Failures leave the previous
// names in place: completion metadata is advisory.
func (c *Completer) Refresh(ctx context.Context) {
	var names []string
	for _, stmt := range []string{"SHOW DATABASES", "SHOW TABLES"} {
		resp, err := c.fetch.Execute(ctx, client.Query{
			Statement: stmt,
			Format:    format.TabSeparated,
		})
		if err != nil {
			return
		}
		for _, line := range strings.Split(resp.Data, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				names = append(names, line)
			}
		}
	}
	c.names = names
}

// Do completes the word under the cursor against keywords and live names.
// It satisfies the readline AutoCompleter contract: the returned candidates
// are the suffixes remaining after the current word prefix.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	prefix := currentWord(line, pos)
	if prefix == "" {
		return nil, 0
	}

	var out [][]rune
	lower := strings.ToLower(prefix)
	for _, w := range append(append([]string{}, keywords...), c.names...) {
		if len(w) > len(prefix) && strings.HasPrefix(strings.ToLower(w), lower) {
			out = append(out, []rune(w[len(prefix):]))
		}
	}
	return out, len(prefix)
}

func currentWord(line []rune, pos int) string {
	if pos > len(line) {
		pos = len(line)
	}
	start := pos
	for start > 0 && !isWordBreak(line[start-1]) {
		start--
	}
	return string(line[start:pos])
}

func isWordBreak(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '(', ')', ',', ';', '=', '<', '>':
		return true
	}
	return false
}

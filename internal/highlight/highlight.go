// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package highlight renders SQL text and pretty-format payloads with ANSI
// colors for terminal display.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/pterm/pterm"
)

// Query colorizes one SQL statement. On any lexing failure the statement is
// returned unmodified; highlighting is cosmetic and must never break output.
func Query(sql string) string {
	lexer := lexers.Get("sql")
	if lexer == nil {
		return sql
	}
	formatter := formatters.Get("terminal256")
	style := styles.Get("native")
	if formatter == nil || style == nil {
		return sql
	}

	it, err := lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, it); err != nil {
		return sql
	}
	return strings.TrimRight(b.String(), "\n")
}

// borderRunes are the box-drawing characters the server's pretty formats use.
const borderRunes = "┌┐└┘├┤┬┴┼─│╔╗╚╝╠╣╦╩╬═║+|-"

// Output colorizes a pretty-format payload: table borders are dimmed so the
// data stands out. The payload's cell text is left untouched.
func Output(payload string) string {
	dim := pterm.NewStyle(pterm.FgGray)
	var b strings.Builder
	var run []rune
	flushRun := func() {
		if len(run) > 0 {
			b.WriteString(dim.Sprint(string(run)))
			run = run[:0]
		}
	}
	for _, r := range payload {
		if strings.ContainsRune(borderRunes, r) {
			run = append(run, r)
			continue
		}
		flushRun()
		b.WriteRune(r)
	}
	flushRun()
	return b.String()
}

// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqltext splits raw shell input into individual SQL statements.
// A statement boundary is a semicolon outside of string and comment context.
// The dialect is an explicit immutable value so the splitter has no shared
// tokenizer state.
package sqltext

import (
	"strings"

	"github.com/google/uuid"
)

// PagerMarker is the trailing two-character sequence that requests
// pager-forced output for a whole input unit.
const PagerMarker = `\p`

// Dialect describes the lexical elements the splitter must not split inside.
type Dialect struct {
	// Quotes are the rune pairs opening and closing a literal. The server
	// dialect uses single quotes for strings, backticks and double quotes
	// for identifiers.
	Quotes []rune
	// StringEscape is the escape rune honored inside quoted literals.
	StringEscape rune
	// LineComment starts a comment running to end of line.
	LineComment string
	// BlockCommentOpen and BlockCommentClose delimit block comments.
	BlockCommentOpen  string
	BlockCommentClose string
}

// DefaultDialect returns the dialect of the columnar server's SQL flavor.
func DefaultDialect() Dialect {
	return Dialect{
		Quotes:            []rune{'\'', '`', '"'},
		StringEscape:      '\\',
		LineComment:       "--",
		BlockCommentOpen:  "/*",
		BlockCommentClose: "*/",
	}
}

// Statement is one split statement together with its execution identifier.
type Statement struct {
	// Text is the statement as typed, including any trailing semicolon.
	Text string
	// ID is a fresh globally unique token used for attribution and
	// cancellation of this statement's execution.
	ID string
}

// Unit is the result of splitting one input unit.
type Unit struct {
	Statements []Statement
	// ForcePager is set when the unit ended with the pager marker; it applies
	// uniformly to every statement in the unit.
	ForcePager bool
}

// Split breaks an input unit into statements. Empty input yields an empty
// unit. Each statement gets a fresh execution identifier.
func Split(d Dialect, input string) Unit {
	var u Unit

	input = strings.TrimRight(input, " \t\r\n")
	if strings.HasSuffix(input, PagerMarker) {
		input = input[:len(input)-len(PagerMarker)]
		u.ForcePager = true
	}

	for _, text := range splitStatements(d, input) {
		u.Statements = append(u.Statements, Statement{
			Text: text,
			ID:   uuid.NewString(),
		})
	}
	return u
}

// splitStatements scans the input once, tracking string and comment context.
func splitStatements(d Dialect, input string) []string {
	var (
		out     []string
		start   int
		quote   rune // active quote rune, 0 when outside literals
		escaped bool
	)

	runes := []rune(input)
	flush := func(end int) {
		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			out = append(out, text)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == d.StringEscape && quote == '\'':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}

		if hasPrefixAt(runes, i, d.LineComment) {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			continue
		}
		if hasPrefixAt(runes, i, d.BlockCommentOpen) {
			i += len(d.BlockCommentOpen)
			for i < len(runes) && !hasPrefixAt(runes, i, d.BlockCommentClose) {
				i++
			}
			i += len(d.BlockCommentClose) - 1
			continue
		}

		if isQuote(d, r) {
			quote = r
			continue
		}
		if r == ';' {
			flush(i + 1)
		}
	}
	flush(len(runes))
	return out
}

func hasPrefixAt(runes []rune, i int, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.HasPrefix(string(runes[i:]), marker)
}

func isQuote(d Dialect, r rune) bool {
	for _, q := range d.Quotes {
		if q == r {
			return true
		}
	}
	return false
}

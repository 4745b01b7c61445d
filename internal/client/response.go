// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"bufio"
	"io"
	"strings"

	"colsql/cli/internal/format"
)

// Response is the result of one successful statement execution. Exactly one of
// the payload fields is populated: Data for buffered responses, the line
// stream for streamed ones.
type Response struct {
	// Data is the full decoded payload for buffered responses.
	Data string
	// Format tags the payload's server format.
	Format format.Format
	// Rows is the number of result rows, nil for statements with no tabular
	// result or formats the shell cannot count.
	Rows *int64
	// Elapsed is the wall-clock execution time in seconds, nil when unknown.
	Elapsed *float64
	// Message is an optional human-readable status line.
	Message string

	body io.ReadCloser
}

// Streaming reports whether the payload must be consumed via Lines.
func (r *Response) Streaming() bool { return r.body != nil }

// Lines returns a scanner over the streamed payload, one result line at a
// time, or nil for buffered responses. The caller must Close the response
// once the scanner is drained.
func (r *Response) Lines() *bufio.Scanner {
	if r.body == nil {
		return nil
	}
	sc := bufio.NewScanner(r.body)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return sc
}

// Close releases the underlying stream. It is a no-op for buffered responses.
func (r *Response) Close() error {
	if r.body == nil {
		return nil
	}
	return r.body.Close()
}

// countRows derives the row count from a buffered payload. Only formats with
// newline-delimited rows can be counted; anything else yields nil.
func countRows(f format.Format, data string) *int64 {
	if !f.LineStream || data == "" {
		return nil
	}
	n := int64(strings.Count(strings.TrimRight(data, "\n"), "\n") + 1)
	n -= int64(f.Header)
	if n < 0 {
		n = 0
	}
	return &n
}

// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"colsql/cli/internal/client"
	"colsql/cli/internal/format"
	"colsql/cli/internal/highlight"
	"colsql/cli/internal/logging"
)

// dispatchOptions carries the per-call context flags for one execution.
type dispatchOptions struct {
	// stream renders the response incrementally instead of buffering it.
	stream bool
	// verbose gates the highlighting path and status chatter.
	verbose bool
	// forcePager routes buffered output through the pager for this unit.
	forcePager bool
	// data is the optional raw ingestion payload.
	data io.Reader
	// compression is the payload codec name ("gzip") or empty.
	compression string
	// format overrides the session's active format when non-empty.
	format format.Format
}

// dispatch executes one final statement and renders the outcome. Every error
// is converted to user-facing output here; dispatch never propagates
// failures, so one bad statement cannot abort its siblings.
func (s *Session) dispatch(ctx context.Context, stmt, executionID string, opts dispatchOptions) {
	f := opts.format
	if f.Name == "" {
		f = s.activeFormat
	}
	stmt, f = applyVerticalSuffix(stmt, f)

	resp, err := s.exec.Execute(ctx, client.Query{
		Statement:   stmt,
		Format:      f,
		Data:        opts.data,
		ID:          executionID,
		Stream:      opts.stream,
		Compression: opts.compression,
	})
	if err != nil {
		s.reportError(stmt, err)
		return
	}
	defer resp.Close()

	s.echo.Print("")

	switch {
	case resp.Streaming():
		sc := resp.Lines()
		for sc.Scan() {
			fmt.Fprintln(s.out, sc.Text())
		}
	case opts.stream && resp.Data != "":
		// The response came back buffered anyway; render it line by line.
		for _, line := range strings.Split(strings.TrimRight(resp.Data, "\n"), "\n") {
			fmt.Fprintln(s.out, line)
		}
	case resp.Data != "":
		s.printPayload(resp, opts)
	}

	if resp.Message != "" {
		s.echo.Print(resp.Message)
		s.echo.Print("")
	}

	s.echo.Success(resultSummary(resp.Rows, resp.Elapsed, s.cfg.Timing))
	s.echo.Print("")
}

// printPayload renders a buffered payload, highlighted and/or paginated
// according to the session configuration.
func (s *Session) printPayload(resp *client.Response, opts dispatchOptions) {
	payload := strings.TrimRight(resp.Data, "\n")

	if opts.verbose && s.cfg.Highlight && s.cfg.HighlightOutput && resp.Format.Pretty {
		payload = highlight.Output(payload)
	}

	if s.cfg.Pager || opts.forcePager {
		s.echo.Pager(payload)
		return
	}
	fmt.Fprintln(s.out, payload)
}

// reportError renders one failed execution per the error taxonomy. Timeouts
// and connection failures get one-line reports; server exceptions echo the
// offending statement and, when enabled and available, the stack trace.
func (s *Session) reportError(stmt string, err error) {
	var serverErr *client.ServerError
	switch {
	case errors.Is(err, context.Canceled):
		// The user interrupted the execution; the termination notice is
		// printed by the unit loop, there is no fault to report.

	case errors.Is(err, client.ErrTimeout):
		s.echo.Error("Error: Connection timeout.")

	case errors.As(err, &serverErr):
		s.echo.Error("\nQuery:")
		s.echo.Error(stmt)
		s.echo.Error("\nReceived exception from server:")
		s.echo.Error(serverErr.Message)
		if s.cfg.Stacktrace && serverErr.StackTrace != "" {
			s.echo.Print("\nStack trace:")
			s.echo.Print(serverErr.StackTrace)
		}
		s.echo.Printf("\nElapsed: %.3f sec.", serverErr.Elapsed)
		s.echo.Print("")

	case errors.Is(err, client.ErrConnection):
		s.echo.Error("Error: Failed to connect.")

	default:
		s.echo.Error(logging.PresentError("Error", err))
	}
}

// resultSummary builds the success marker line: "Ok." plus the pluralized
// row count and, when timing display is on, the elapsed seconds.
func resultSummary(rows *int64, elapsed *float64, timing bool) string {
	var b strings.Builder
	b.WriteString("Ok.")
	if rows != nil {
		plural := "s"
		if *rows == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, " %d row%s in set.", *rows, plural)
	}
	if timing && elapsed != nil {
		fmt.Fprintf(&b, " Elapsed: %.3f sec.", *elapsed)
	}
	return b.String()
}

// maybeHighlight colorizes SQL text when input highlighting is enabled.
func (s *Session) maybeHighlight(sql string) string {
	if s.cfg.Highlight {
		return highlight.Query(sql)
	}
	return sql
}

// applyVerticalSuffix recognizes the \G and \g statement suffixes and swaps
// the response format to Vertical for that one statement.
func applyVerticalSuffix(stmt string, f format.Format) (string, format.Format) {
	trimmed := strings.TrimRight(strings.TrimSpace(stmt), ";")
	trimmed = strings.TrimRight(trimmed, " \t")
	if strings.HasSuffix(trimmed, `\G`) || strings.HasSuffix(trimmed, `\g`) {
		return strings.TrimSpace(trimmed[:len(trimmed)-2]), format.Vertical
	}
	return stmt, f
}

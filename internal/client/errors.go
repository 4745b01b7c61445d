// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Sentinel errors for the transport-level failure modes the shell reacts to.
var (
	// ErrTimeout is returned when the server did not answer in time.
	ErrTimeout = errors.New("connection timeout")
	// ErrConnection is returned for any other failure to reach the server.
	ErrConnection = errors.New("failed to connect")
	// ErrBadVersionProbe is returned when the version probe response is not
	// terminated properly or does not parse as a version triple.
	ErrBadVersionProbe = errors.New("malformed version probe response")
)

// ServerError is a query failure reported by the server itself.
type ServerError struct {
	// Code is the server's numeric exception code, 0 when unknown.
	Code int
	// Message is the server's error text.
	Message string
	// StackTrace is the server-side trace, empty unless stacktrace reporting
	// was requested and the server supplied one.
	StackTrace string
	// Elapsed is the time spent on the failed request, in seconds.
	Elapsed float64
}

func (e *ServerError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("Code: %d. %s", e.Code, e.Message)
	}
	return e.Message
}

// classifyNetError maps a transport error onto the shell's taxonomy.
// Timeouts are distinguished from other connection failures so the caller can
// report them separately and drive the retry loop.
func classifyNetError(err error) error {
	if err == nil {
		return nil
	}
	// A cancelled round trip is a user action, not a transport fault; keep it
	// recognizable so the caller can stay silent about it.
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return ErrTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: connection refused", ErrConnection)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package client implements the HTTP transport to the columnar-database
// server. It exposes statement execution, best-effort query cancellation and
// the version probe used at connect time. One Client is created per session
// and shared by the dispatcher for its lifetime; it is never used from more
// than one goroutine at a time.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"colsql/cli/internal/format"
)

// Options carries the connection parameters resolved by the session.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Settings are sent with every query as URL parameters.
	Settings map[string]string
	// Stacktrace asks the server to include traces in exception bodies.
	Stacktrace bool

	ConnTimeout           time.Duration
	ConnTimeoutRetry      int
	ConnTimeoutRetryDelay time.Duration
}

// Query is one statement execution request.
type Query struct {
	// Statement is the final query text after any command rewriting.
	Statement string
	// Format is the requested response format.
	Format format.Format
	// Data is the optional raw payload for ingestion queries.
	Data io.Reader
	// ID is the execution identifier used for attribution and cancellation.
	ID string
	// Stream requests a line-stream response instead of a buffered one.
	Stream bool
	// Compression is the payload codec name ("gzip") or empty.
	Compression string
}

// Version is the server version triple reported by the version probe.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Client is the HTTP client for one server connection.
type Client struct {
	opts    Options
	baseURL string

	// database is the logical current database; the USE path mutates it
	// without touching the underlying connection.
	database string

	httpc   *http.Client // bounded by ConnTimeout, for buffered responses
	streamc *http.Client // header-bounded only, for streamed responses
}

// New creates a client for the given connection target.
func New(opts Options) *Client {
	transport := &http.Transport{
		ResponseHeaderTimeout: opts.ConnTimeout,
	}
	return &Client{
		opts:     opts,
		baseURL:  fmt.Sprintf("http://%s:%d/", opts.Host, opts.Port),
		database: opts.Database,
		httpc:    &http.Client{Timeout: opts.ConnTimeout},
		streamc:  &http.Client{Transport: transport},
	}
}

// Database returns the current logical database.
func (c *Client) Database() string { return c.database }

// Execute runs one statement and classifies the outcome. On success exactly
// one of the response's payload forms is populated; on failure the returned
// error is ErrTimeout, ErrConnection or a *ServerError.
func (c *Client) Execute(ctx context.Context, q Query) (*Response, error) {
	// Changing the database is a logical, client-side operation over HTTP:
	// there is no connection state on the server to mutate.
	if db, ok := useDatabase(q.Statement); ok {
		c.database = db
		return &Response{
			Format:  q.Format,
			Message: fmt.Sprintf("Changed the current database to %s.", db),
		}, nil
	}

	attempts := 1 + c.opts.ConnTimeoutRetry
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, classifyNetError(ctx.Err())
			case <-time.After(c.opts.ConnTimeoutRetryDelay):
			}
			// Ingestion payloads are single-shot readers; a timed-out upload
			// cannot be replayed.
			if q.Data != nil {
				break
			}
		}

		resp, err := c.once(ctx, q)
		if errors.Is(err, ErrTimeout) {
			lastErr = err
			continue
		}
		return resp, err
	}
	return nil, lastErr
}

// once performs a single HTTP round trip for q.
func (c *Client) once(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()

	req, err := c.newRequest(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	httpc := c.httpc
	if q.Stream {
		httpc = c.streamc
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, classifyNetError(err)
	}

	if serverErr := c.serverException(resp, time.Since(start)); serverErr != nil {
		resp.Body.Close()
		return nil, serverErr
	}

	if q.Stream {
		return &Response{Format: q.Format, body: resp.Body}, nil
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetError(err)
	}
	elapsed := time.Since(start).Seconds()
	return &Response{
		Data:    string(data),
		Format:  q.Format,
		Rows:    countRows(q.Format, string(data)),
		Elapsed: &elapsed,
	}, nil
}

// newRequest frames one execution request. The statement travels in the body
// unless a data payload is present, in which case the statement moves to the
// query string and the payload becomes the body.
func (c *Client) newRequest(ctx context.Context, q Query) (*http.Request, error) {
	params := url.Values{}
	if c.database != "" {
		params.Set("database", c.database)
	}
	if q.Format.Name != "" {
		params.Set("default_format", q.Format.Name)
	}
	if q.ID != "" {
		params.Set("query_id", q.ID)
	}
	if c.opts.Stacktrace {
		params.Set("stacktrace", "1")
	}
	for k, v := range c.opts.Settings {
		params.Set(k, v)
	}

	body := q.Data
	if body != nil {
		params.Set("query", q.Statement)
	} else {
		body = strings.NewReader(q.Statement)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?"+params.Encode(), body)
	if err != nil {
		return nil, err
	}
	if c.opts.User != "" {
		req.Header.Set("X-ClickHouse-User", c.opts.User)
	}
	if c.opts.Password != "" {
		req.Header.Set("X-ClickHouse-Key", c.opts.Password)
	}
	if q.Compression != "" {
		req.Header.Set("Content-Encoding", q.Compression)
	}
	return req, nil
}

// serverException extracts a server-reported query failure, when present.
func (c *Client) serverException(resp *http.Response, elapsed time.Duration) *ServerError {
	codeHeader := resp.Header.Get("X-ClickHouse-Exception-Code")
	if codeHeader == "" && resp.StatusCode == http.StatusOK {
		return nil
	}

	raw, _ := io.ReadAll(resp.Body)
	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = resp.Status
	}

	serverErr := &ServerError{Elapsed: elapsed.Seconds()}
	serverErr.Code, _ = strconv.Atoi(codeHeader)
	if msg, trace, ok := strings.Cut(message, "Stack trace:"); ok {
		serverErr.Message = strings.TrimSpace(msg)
		serverErr.StackTrace = strings.TrimSpace(trace)
	} else {
		serverErr.Message = message
	}
	return serverErr
}

// KillQuery asks the server to terminate the execution with the given
// identifier. Cancellation is best-effort: the result is not awaited beyond
// the request itself and failures are returned for logging only.
func (c *Client) KillQuery(ctx context.Context, id string) error {
	stmt := fmt.Sprintf("KILL QUERY WHERE query_id = '%s' ASYNC", strings.ReplaceAll(id, "'", ""))
	resp, err := c.Execute(ctx, Query{Statement: stmt, Format: format.TabSeparated})
	if err != nil {
		return err
	}
	return resp.Close()
}

// ServerVersion probes the server and parses its version triple. The probe
// response must be newline-terminated and carry at least three dot-separated
// integers, else ErrBadVersionProbe is returned.
func (c *Client) ServerVersion(ctx context.Context) (Version, error) {
	resp, err := c.Execute(ctx, Query{Statement: "SELECT version();", Format: format.TabSeparated})
	if err != nil {
		return Version{}, err
	}
	return parseVersion(resp.Data)
}

func parseVersion(data string) (Version, error) {
	if !strings.HasSuffix(data, "\n") {
		return Version{}, ErrBadVersionProbe
	}
	parts := strings.Split(strings.TrimSpace(data), ".")
	if len(parts) < 3 {
		return Version{}, ErrBadVersionProbe
	}
	var v Version
	for i, dst := range []*int{&v.Major, &v.Minor, &v.Patch} {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return Version{}, ErrBadVersionProbe
		}
		*dst = n
	}
	return v, nil
}

// useDatabase recognizes a USE statement and extracts the database name.
func useDatabase(stmt string) (string, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
	if len(s) < 4 || !strings.EqualFold(s[:4], "use ") {
		return "", false
	}
	db := strings.TrimSpace(s[4:])
	if db == "" || strings.ContainsAny(db, " \t") {
		return "", false
	}
	return strings.Trim(db, "`\""), true
}

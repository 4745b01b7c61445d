// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package format describes the closed set of response formats the server can
// produce. Each format is a tagged value carrying the properties the dispatcher
// cares about: whether it is a human-readable "pretty" format eligible for
// output highlighting, and whether its rows arrive one per line so a response
// can be consumed as a stream.
package format

import "strings"

// Format is one known server response format.
type Format struct {
	// Name is the canonical server-side spelling, e.g. "PrettyCompactMonoBlock".
	Name string
	// Pretty marks formats intended for terminal display.
	Pretty bool
	// LineStream marks formats whose rows are newline-delimited.
	LineStream bool
	// Header is the number of leading non-data lines (column names, types).
	Header int
}

// Defaults used when neither the CLI nor the configuration file picks a format.
var (
	// DefaultInteractive is used for queries typed into the shell.
	DefaultInteractive = mustLookup("PrettyCompactMonoBlock")
	// DefaultBatch is used for piped/file input and one-shot queries.
	DefaultBatch = mustLookup("TabSeparated")
	// Vertical renders one column per line; selected by the \G query suffix.
	Vertical = mustLookup("Vertical")
	// TabSeparated is the wire format for internal probes (version, metadata).
	TabSeparated = mustLookup("TabSeparated")
)

// known is the closed registry. The server accepts more exotic formats, but
// these are the ones the shell knows how to classify; anything else is treated
// as an opaque non-pretty, non-streamable payload.
var known = []Format{
	{Name: "TabSeparated", LineStream: true},
	{Name: "TabSeparatedRaw", LineStream: true},
	{Name: "TabSeparatedWithNames", LineStream: true, Header: 1},
	{Name: "TabSeparatedWithNamesAndTypes", LineStream: true, Header: 2},
	{Name: "CSV", LineStream: true},
	{Name: "CSVWithNames", LineStream: true, Header: 1},
	{Name: "TSKV", LineStream: true},
	{Name: "Values"},
	{Name: "JSON"},
	{Name: "JSONCompact"},
	{Name: "JSONEachRow", LineStream: true},
	{Name: "Pretty", Pretty: true},
	{Name: "PrettyCompact", Pretty: true},
	{Name: "PrettyCompactMonoBlock", Pretty: true},
	{Name: "PrettyNoEscapes", Pretty: true},
	{Name: "PrettySpace", Pretty: true},
	{Name: "Vertical"},
	{Name: "Native"},
	{Name: "Null"},
	{Name: "XML"},
}

var byName = func() map[string]Format {
	m := make(map[string]Format, len(known))
	for _, f := range known {
		m[strings.ToLower(f.Name)] = f
	}
	return m
}()

// Lookup resolves a format by name, case-insensitively.
func Lookup(name string) (Format, bool) {
	f, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Resolve returns the format for name, falling back to an opaque format value
// when the name is not in the registry. The server is the final authority on
// format names; an unknown name is still sent as-is.
func Resolve(name string) Format {
	if f, ok := Lookup(name); ok {
		return f
	}
	return Format{Name: strings.TrimSpace(name)}
}

func mustLookup(name string) Format {
	f, ok := Lookup(name)
	if !ok {
		panic("format: unknown builtin " + name)
	}
	return f
}

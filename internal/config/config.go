// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads the shell's configuration file and merges it with
// CLI-supplied overrides. Precedence is fixed: CLI flags win over the file,
// the file wins over hard-coded defaults.
package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"colsql/cli/internal/xdg"
)

// File mirrors the on-disk TOML layout.
type File struct {
	Main struct {
		Multiline          bool   `toml:"multiline"`
		Format             string `toml:"format"`
		FormatStdin        string `toml:"format_stdin"`
		ShowFormattedQuery bool   `toml:"show_formatted_query"`
		Highlight          bool   `toml:"highlight"`
		HighlightOutput    bool   `toml:"highlight_output"`
		Pager              bool   `toml:"pager"`
		Timing             bool   `toml:"timing"`
		Keyring            bool   `toml:"keyring"`
	} `toml:"main"`
	HTTP struct {
		ConnTimeout           float64 `toml:"conn_timeout"`
		ConnTimeoutRetry      int     `toml:"conn_timeout_retry"`
		ConnTimeoutRetryDelay float64 `toml:"conn_timeout_retry_delay"`
	} `toml:"http"`
	Defaults struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		DB       string `toml:"db"`
	} `toml:"defaults"`
	// Settings is an open section of arbitrary key/value pairs sent with
	// every query.
	Settings map[string]string `toml:"settings"`
}

// Path returns the location of the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration file; a missing file yields defaults.
func Load() (*File, error) {
	f := defaults()
	p, err := Path()
	if err != nil {
		return f, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return f, err
	}
	if err := toml.Unmarshal(data, f); err != nil {
		return f, err
	}
	return f, nil
}

func defaults() *File {
	var f File
	f.Main.Format = "PrettyCompactMonoBlock"
	f.Main.FormatStdin = "TabSeparated"
	f.Main.ShowFormattedQuery = true
	f.Main.Highlight = true
	f.Main.HighlightOutput = true
	f.Main.Timing = true
	f.HTTP.ConnTimeout = 10.0
	f.HTTP.ConnTimeoutRetry = 0
	f.HTTP.ConnTimeoutRetryDelay = 0.5
	f.Settings = map[string]string{}
	return &f
}

// Overrides carries the CLI-supplied values. Zero values mean "not given" for
// strings and ints; boolean flags carry an explicit Set marker because false
// is a meaningful flag state.
type Overrides struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	Format      string
	FormatStdin string
	// Settings is the raw query-string settings argument (-s "k=v&k2=v2").
	Settings string

	Multiline    bool
	MultilineSet bool
	Stacktrace   bool
}

// Resolved is the final merged session configuration.
type Resolved struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	Format             string
	FormatStdin        string
	Multiline          bool
	ShowFormattedQuery bool
	Highlight          bool
	HighlightOutput    bool
	Pager              bool
	Timing             bool
	Keyring            bool
	Stacktrace         bool

	ConnTimeout           time.Duration
	ConnTimeoutRetry      int
	ConnTimeoutRetryDelay time.Duration

	// Settings is the merged settings mapping; CLI-parsed settings overlay
	// the file's on key collision.
	Settings map[string]string
}

// Resolve merges CLI overrides onto the file configuration and hard defaults.
func Resolve(f *File, o Overrides) (Resolved, error) {
	r := Resolved{
		Host:     firstNonEmpty(o.Host, f.Defaults.Host, "127.0.0.1"),
		Port:     firstNonZero(o.Port, f.Defaults.Port, 8123),
		User:     firstNonEmpty(o.User, f.Defaults.User, "default"),
		Password: firstNonEmpty(o.Password, f.Defaults.Password, ""),
		Database: firstNonEmpty(o.Database, f.Defaults.DB, "default"),

		Format:             firstNonEmpty(o.Format, f.Main.Format, "PrettyCompactMonoBlock"),
		FormatStdin:        firstNonEmpty(o.FormatStdin, f.Main.FormatStdin, "TabSeparated"),
		Multiline:          f.Main.Multiline,
		ShowFormattedQuery: f.Main.ShowFormattedQuery,
		Highlight:          f.Main.Highlight,
		HighlightOutput:    f.Main.HighlightOutput,
		Pager:              f.Main.Pager,
		Timing:             f.Main.Timing,
		Keyring:            f.Main.Keyring,
		Stacktrace:         o.Stacktrace,

		ConnTimeout:           secondsToDuration(f.HTTP.ConnTimeout, 10.0),
		ConnTimeoutRetry:      f.HTTP.ConnTimeoutRetry,
		ConnTimeoutRetryDelay: secondsToDuration(f.HTTP.ConnTimeoutRetryDelay, 0.5),
	}
	if o.MultilineSet {
		r.Multiline = o.Multiline
	}

	r.Settings = make(map[string]string, len(f.Settings))
	for k, v := range f.Settings {
		r.Settings[k] = v
	}
	if o.Settings != "" {
		parsed, err := url.ParseQuery(o.Settings)
		if err != nil {
			return r, err
		}
		for k, vs := range parsed {
			if len(vs) > 0 {
				r.Settings[k] = vs[0]
			}
		}
	}
	return r, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func secondsToDuration(secs, fallback float64) time.Duration {
	if secs <= 0 {
		secs = fallback
	}
	return time.Duration(secs * float64(time.Second))
}

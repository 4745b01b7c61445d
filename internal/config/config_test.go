// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		fileHost string
		cliHost  string
		want     string
	}{
		{name: "CLI wins over file", fileHost: "y", cliHost: "x", want: "x"},
		{name: "file wins over default", fileHost: "y", want: "y"},
		{name: "hard default", want: "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaults()
			f.Defaults.Host = tt.fileHost

			r, err := Resolve(f, Overrides{Host: tt.cliHost})
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Host)
		})
	}
}

func TestResolveDefaults(t *testing.T) {
	r, err := Resolve(defaults(), Overrides{})
	require.NoError(t, err)

	assert.Equal(t, 8123, r.Port)
	assert.Equal(t, "default", r.User)
	assert.Equal(t, "default", r.Database)
	assert.Equal(t, "PrettyCompactMonoBlock", r.Format)
	assert.Equal(t, "TabSeparated", r.FormatStdin)
	assert.True(t, r.Timing)
	assert.False(t, r.Pager)
}

func TestResolveMultilineFlagWins(t *testing.T) {
	f := defaults()
	f.Main.Multiline = true

	r, err := Resolve(f, Overrides{Multiline: false, MultilineSet: true})
	require.NoError(t, err)
	assert.False(t, r.Multiline)

	r, err = Resolve(f, Overrides{})
	require.NoError(t, err)
	assert.True(t, r.Multiline)
}

func TestResolveSettingsMerge(t *testing.T) {
	f := defaults()
	f.Settings = map[string]string{
		"max_threads": "4",
		"max_memory":  "1000000",
	}

	r, err := Resolve(f, Overrides{Settings: "max_threads=8&readonly=1"})
	require.NoError(t, err)

	// CLI settings overlay the file's on collision; both sources survive.
	assert.Equal(t, "8", r.Settings["max_threads"])
	assert.Equal(t, "1000000", r.Settings["max_memory"])
	assert.Equal(t, "1", r.Settings["readonly"])
}

func TestResolveBadSettingsQueryString(t *testing.T) {
	_, err := Resolve(defaults(), Overrides{Settings: "a=%zz"})
	assert.Error(t, err)
}

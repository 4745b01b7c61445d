// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import "fmt"

// helpRows is the fixed two-column help table rendered locally for \? and
// help. An empty first column marks a section heading or spacer line.
var helpRows = [][2]string{
	{"", ""},
	{"colsql's custom commands:", ""},
	{"-------------------------", ""},
	{"USE", "Change the current database."},
	{"SET", "Set an option for the current session."},
	{"QUIT", "Exit colsql."},
	{"HELP", "Show this help message."},
	{"", ""},
	{"PostgreSQL-like custom commands:", ""},
	{"--------------------------------", ""},
	{`\l`, "Show databases."},
	{`\c`, "Change the current database."},
	{`\d, \dt`, "Show tables in the current database."},
	{`\d+`, "Show table's schema."},
	{`\ps`, "Show current queries."},
	{`\kill`, "Kill query by its ID."},
	{"", ""},
	{"Query suffixes:", ""},
	{"---------------", ""},
	{`\g, \G`, "Use the Vertical format."},
	{`\p`, "Enable the pager."},
}

// printHelp renders the help table. Nothing is dispatched to the server.
func (s *Session) printHelp() {
	for _, row := range helpRows {
		s.echo.SuccessInline(fmt.Sprintf("%-8s", row[0]))
		s.echo.Print(row[1])
	}
}

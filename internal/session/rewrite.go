// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"fmt"
	"strings"

	"colsql/cli/internal/client"
)

// Action describes what the rewriter decided for one statement.
type Action int

const (
	// ActionQuery forwards the (possibly rewritten) statement to dispatch.
	ActionQuery Action = iota
	// ActionNoop silently skips the statement.
	ActionNoop
	// ActionExit terminates the session cleanly.
	ActionExit
	// ActionHelp renders the local help table; nothing is dispatched.
	ActionHelp
	// ActionKill cancels the target execution out-of-band and short-circuits
	// dispatch for this statement.
	ActionKill
)

// Rewrite is the rewriter's verdict for one statement.
type Rewrite struct {
	Action Action
	// Statement is the final query text for ActionQuery.
	Statement string
	// KillTarget is the execution identifier to cancel for ActionKill.
	KillTarget string
}

// exitKeywords terminate the session, matched case-insensitively.
var exitKeywords = map[string]bool{
	"exit":   true,
	"quit":   true,
	"logout": true,
	"q":      true,
	":q":     true,
	`\q`:     true,
}

// readRowsPatchVersion is the server patch version at which the process list
// renamed its row-count column from rows_read to read_rows.
const readRowsPatchVersion = 54115

// RewriteCommand maps one trimmed statement to its action. It is a pure
// function of its inputs: the only network side effect in the whole command
// set, the \kill cancel call, is returned as an action for the caller to
// perform.
func RewriteCommand(stmt string, version client.Version, executionID string) Rewrite {
	trimmed := strings.TrimSpace(stmt)
	bare := strings.TrimSpace(strings.TrimRight(trimmed, ";"))

	switch {
	case bare == "":
		return Rewrite{Action: ActionNoop}

	case exitKeywords[strings.ToLower(bare)]:
		return Rewrite{Action: ActionExit}

	case strings.EqualFold(bare, `\?`) || strings.EqualFold(bare, "help"):
		return Rewrite{Action: ActionHelp}

	case bare == `\d` || bare == `\dt`:
		return Rewrite{Action: ActionQuery, Statement: "SHOW TABLES"}

	case strings.HasPrefix(bare, `\d+ `):
		return Rewrite{Action: ActionQuery, Statement: "DESCRIBE TABLE " + strings.TrimSpace(bare[4:])}

	case bare == `\l`:
		return Rewrite{Action: ActionQuery, Statement: "SHOW DATABASES"}

	case strings.HasPrefix(bare, `\c `):
		return Rewrite{Action: ActionQuery, Statement: "USE " + strings.TrimSpace(bare[3:])}

	case strings.HasPrefix(bare, `\ps`):
		return Rewrite{Action: ActionQuery, Statement: processListQuery(version, executionID)}

	case strings.HasPrefix(bare, `\kill `):
		return Rewrite{Action: ActionKill, KillTarget: strings.TrimSpace(bare[6:])}

	default:
		return Rewrite{Action: ActionQuery, Statement: stmt}
	}
}

// processListQuery builds the \ps query. The row-count column name depends on
// the server's patch version; the query also filters out its own execution.
func processListQuery(version client.Version, executionID string) string {
	column := "rows_read"
	if version.Patch >= readRowsPatchVersion {
		column = "read_rows"
	}
	return fmt.Sprintf(
		"SELECT query_id, user, address, elapsed, %s, memory_usage "+
			"FROM system.processes WHERE query_id != '%s'",
		column, executionID,
	)
}

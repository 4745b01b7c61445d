// Package main is the entry point for the colsql shell.
package main

import (
	"colsql/cli/cmd"
)

func main() {
	cmd.Execute()
}

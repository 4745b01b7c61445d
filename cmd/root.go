// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the colsql shell.
// It parses the flags, merges them with the configuration file, resolves the
// password, collects the input sources and hands everything to the session
// controller.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"colsql/cli/internal/client"
	"colsql/cli/internal/config"
	"colsql/cli/internal/echo"
	"colsql/cli/internal/keychain"
	"colsql/cli/internal/session"
)

var (
	flagHost        string
	flagPort        int
	flagUser        string
	flagPassword    bool
	flagDatabase    string
	flagSettings    string
	flagQuery       string
	flagFormat      string
	flagFormatStdin string
	flagMultiline   bool
	flagStacktrace  bool
	showVersion     bool
)

// rootCmd is the whole CLI: colsql has no subcommands, every invocation is a
// session run.
var rootCmd = &cobra.Command{
	Use:           "colsql [flags] [file ...]",
	Short:         "Interactive shell for ClickHouse over HTTP",
	Long:          `colsql is an interactive command-line shell for ClickHouse, speaking the HTTP interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("colsql %s\n", Version)
			return nil
		}

		file, err := config.Load()
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		cfg, err := config.Resolve(file, config.Overrides{
			Host:         flagHost,
			Port:         flagPort,
			User:         flagUser,
			Database:     flagDatabase,
			Format:       flagFormat,
			FormatStdin:  flagFormatStdin,
			Settings:     flagSettings,
			Multiline:    flagMultiline,
			MultilineSet: cmd.Flags().Changed("multiline"),
			Stacktrace:   flagStacktrace,
		})
		if err != nil {
			return err
		}

		if flagPassword {
			cfg.Password = resolvePassword(cfg)
		}

		inputs, closeInputs, err := collectInputs(args)
		if err != nil {
			return err
		}
		defer closeInputs()

		cli := client.New(client.Options{
			Host:                  cfg.Host,
			Port:                  cfg.Port,
			User:                  cfg.User,
			Password:              cfg.Password,
			Database:              cfg.Database,
			Settings:              cfg.Settings,
			Stacktrace:            cfg.Stacktrace,
			ConnTimeout:           cfg.ConnTimeout,
			ConnTimeoutRetry:      cfg.ConnTimeoutRetry,
			ConnTimeoutRetryDelay: cfg.ConnTimeoutRetryDelay,
		})

		e := echo.New(true, term.IsTerminal(int(os.Stdout.Fd())))
		sess := session.New(cfg, cli, e, Version)
		return sess.Run(cmd.Context(), flagQuery, inputs)
	},
}

// resolvePassword produces the session password for the -P flag: the keyring
// when the user opted in and a stored credential exists, an interactive hidden
// prompt otherwise. Every failure degrades to an empty password; the server
// rejects it with a proper exception.
func resolvePassword(cfg config.Resolved) string {
	var km *keychain.Manager
	if cfg.Keyring {
		if m, err := keychain.NewManager(); err == nil {
			km = m
			if stored, err := m.LoadPassword(cfg.User, cfg.Host, cfg.Port); err == nil && stored != "" {
				return stored
			}
		}
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return cfg.Password
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return cfg.Password
	}

	password := string(raw)
	if km != nil && password != "" {
		// Remembering the password is a convenience, not a requirement.
		_ = km.SavePassword(cfg.User, cfg.Host, cfg.Port, password)
	}
	return password
}

// collectInputs gathers the session's piped payloads: the positional files in
// order, then stdin when it is not a terminal.
func collectInputs(args []string) ([]session.Input, func(), error) {
	var inputs []session.Input
	var closers []io.Closer

	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	for _, name := range args {
		f, err := os.Open(name)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", name, err)
		}
		closers = append(closers, f)
		inputs = append(inputs, session.Input{Name: name, Reader: f})
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		inputs = append(inputs, session.Input{Name: "stdin", Reader: os.Stdin})
	}

	return inputs, closeAll, nil
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagHost, "host", "H", "", "Server host")
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Server HTTP port")
	rootCmd.Flags().StringVarP(&flagUser, "user", "u", "", "User")
	rootCmd.Flags().BoolVarP(&flagPassword, "password", "P", false, "Prompt for the password")
	rootCmd.Flags().StringVarP(&flagDatabase, "database", "d", "", "Database")
	rootCmd.Flags().StringVarP(&flagSettings, "settings", "s", "", "Query-string of session settings (e.g. \"max_rows=100&log_queries=1\")")
	rootCmd.Flags().StringVarP(&flagQuery, "query", "q", "", "Query to execute")
	rootCmd.Flags().StringVarP(&flagFormat, "format", "f", "", "Output format for the interactive mode")
	rootCmd.Flags().StringVarP(&flagFormatStdin, "format-stdin", "F", "", "Output format for piped and file input")
	rootCmd.Flags().BoolVarP(&flagMultiline, "multiline", "m", false, "Enable multiline shell")
	rootCmd.Flags().BoolVar(&flagStacktrace, "stacktrace", false, "Print server stack traces")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show the version and exit")
}

// Package cli implements the cobra-based CLI commands for spate.
//
// Each subcommand (inspect, validate, up, down, list, export, torrent) is
// defined in its own file within this package. This file defines the root
// command that serves as the parent for all subcommands and handles global
// flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/spate/internal/config"
	"github.com/mmr-tortoise/spate/internal/logging"
	"github.com/mmr-tortoise/spate/internal/model"
)

// Global flag variables shared across all subcommands. They are bound to
// cobra persistent flags on the root command, which makes them available
// to every subcommand automatically.
var (
	// jsonOutput switches command output to structured JSON for machine
	// consumption. Default is human-readable text.
	jsonOutput bool

	// verbose lowers the log level to debug.
	verbose bool

	// configFile overrides the settings file search path.
	configFile string
)

// Version, Commit, and Date are injected from the main package, which
// receives them from ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself performs no action; it provides help text,
// global flags, and logging setup via PersistentPreRun.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spate",
		Short: "Devcontainer workspace manager",
		Long: `spate manages development environments defined by devcontainer.json files.

It parses, validates, and normalizes devcontainer configurations, creates
and tears down the Docker containers behind them, and packages workspace
assets as BitTorrent metainfo files for distribution.`,

		// Errors are formatted by Execute (text or JSON per --json), so
		// cobra's own printing is disabled.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Settings are best-effort here; a broken settings file is
			// reported by the command that actually needs it.
			level := "info"
			if settings, err := loadSettings(); err == nil && settings.LogLevel != "" {
				level = settings.LogLevel
			}
			if verbose {
				level = "debug"
			}
			logging.Configure(logging.Config{Level: level})
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to spate settings file")

	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewUpCommand())
	rootCmd.AddCommand(NewDownCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewTorrentCommand())

	return rootCmd
}

// Execute runs the root command and translates errors into OS exit codes.
// CLIError values carry their own codes; anything else exits 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// loadSettings loads the spate settings file, honoring the --config flag.
func loadSettings() (*config.Settings, error) {
	return config.Load(configFile)
}

// printError outputs an error message in the format selected by --json.
// Errors always go to stderr; stdout is reserved for command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// IsJSONOutput returns whether the --json flag is set. Subcommands use
// this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

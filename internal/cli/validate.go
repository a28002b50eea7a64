// validate.go implements the "spate validate" command.
//
// Validate runs schema-conformance checks against a workspace's
// devcontainer.json and reports every problem found. With --watch, the
// file is re-validated whenever it changes on disk, which is useful while
// hand-editing a configuration.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/spate/internal/devcontainer"
	"github.com/mmr-tortoise/spate/internal/logging"
	"github.com/mmr-tortoise/spate/internal/model"
	"github.com/mmr-tortoise/spate/internal/workspace"
)

// validateFlags holds the flag values for the validate command.
type validateFlags struct {
	// watch re-validates whenever the configuration file changes.
	watch bool
}

// NewValidateCommand creates the "validate" cobra command.
func NewValidateCommand() *cobra.Command {
	flags := &validateFlags{}

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a workspace's devcontainer.json",
		Long: `Check a devcontainer.json against the schema and report every problem.

Exits with code 4 when validation fails, so the command can gate CI
pipelines.

Examples:
  spate validate
  spate validate ~/src/my-project
  spate validate --watch`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(path, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false,
		"Re-validate whenever the configuration file changes")

	return cmd
}

// runValidate is the main logic function for the validate command.
func runValidate(path string, flags *validateFlags) error {
	ws, err := workspace.Resolve(path)
	if err != nil {
		return err
	}
	configPath, err := ws.RequireConfig()
	if err != nil {
		return err
	}

	if flags.watch {
		return watchValidate(configPath)
	}

	errs, err := validateFile(configPath)
	if err != nil {
		return err
	}
	printValidateResult(configPath, errs)

	if len(errs) > 0 {
		return model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("devcontainer.json has %d validation error(s)", len(errs)))
	}
	return nil
}

// validateFile parses and validates a single devcontainer.json file.
// A parse failure is returned as an error; validation findings are
// returned as a list.
func validateFile(configPath string) ([]devcontainer.ValidationError, error) {
	raw, err := devcontainer.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return devcontainer.ValidateConfig(raw), nil
}

// watchValidate validates the file once, then re-validates on every write
// until interrupted.
//
// The watch is placed on the parent directory rather than the file itself
// because editors typically save via rename, which would detach a watch
// on the file path.
func watchValidate(configPath string) error {
	log := logging.WithComponent("validate")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(configPath), err)
	}

	runOnce := func() {
		errs, err := validateFile(configPath)
		if err != nil {
			printError(err.Error(), nil)
			return
		}
		printValidateResult(configPath, errs)
	}

	runOnce()
	log.Info().Str("path", configPath).Msg("watching for changes")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only react to the watched file; the directory watch also
			// reports sibling files.
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				log.Debug().Str("op", event.Op.String()).Msg("configuration changed")
				runOnce()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")

		case <-sigCh:
			log.Info().Msg("stopping watch")
			return nil
		}
	}
}

// printValidateResult outputs the validation findings in text or JSON.
func printValidateResult(configPath string, errs []devcontainer.ValidationError) {
	if IsJSONOutput() {
		type findingJSON struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		}
		result := struct {
			ConfigPath string        `json:"configPath"`
			Valid      bool          `json:"valid"`
			Errors     []findingJSON `json:"errors"`
		}{
			ConfigPath: configPath,
			Valid:      len(errs) == 0,
			Errors:     make([]findingJSON, 0, len(errs)),
		}
		for _, e := range errs {
			result.Errors = append(result.Errors, findingJSON{Field: e.Field, Message: e.Message})
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(errs) == 0 {
		fmt.Printf("%s: OK\n", configPath)
		return
	}

	fmt.Printf("%s: %d error(s)\n", configPath, len(errs))
	for _, e := range errs {
		fmt.Printf("  %s: %s\n", e.Field, e.Message)
	}
}

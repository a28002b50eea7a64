// down.go implements the "spate down" command.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/spate/internal/devcontainer"
	"github.com/mmr-tortoise/spate/internal/docker"
	"github.com/mmr-tortoise/spate/internal/logging"
	"github.com/mmr-tortoise/spate/internal/model"
	"github.com/mmr-tortoise/spate/internal/workspace"
)

// downFlags holds the flag values for the down command.
type downFlags struct {
	// keep stops the containers but leaves them in place for a later
	// restart instead of removing them.
	keep bool

	// force removes running containers without a graceful stop.
	force bool
}

// NewDownCommand creates the "down" cobra command.
func NewDownCommand() *cobra.Command {
	flags := &downFlags{}

	cmd := &cobra.Command{
		Use:   "down <name>",
		Short: "Stop and remove a workspace environment",
		Long: `Stop the containers of a named environment and remove them.

Pass --keep to stop without removing, so the environment can be
inspected or restarted manually with docker.

Examples:
  spate down my-project
  spate down my-project --keep`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDown(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.keep, "keep", false, "Stop containers but do not remove them")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Remove containers without graceful stop")

	return cmd
}

// runDown is the main logic function for the down command.
func runDown(ctx context.Context, name string, flags *downFlags) error {
	log := logging.WithComponent("down")

	// --force skips the graceful stop and --keep skips the removal;
	// together they would make the command a no-op.
	if flags.force && flags.keep {
		return model.NewCLIError(model.ExitGeneralError,
			"--force and --keep cannot be combined: --force skips the stop and --keep skips the removal")
	}

	// Step 1: Connect to Docker and verify the daemon responds.
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}

	// Step 2: Locate the environment by its label name.
	env, err := docker.FindEnvironment(ctx, cli, name)
	if err != nil {
		return err
	}

	// Step 3: Compose environments are torn down through docker compose
	// so that networks and anonymous volumes are handled consistently.
	// When the workspace config is gone, fall back to removing the labeled
	// containers directly.
	if env.ConfigPattern == model.PatternCompose {
		if projectDir, files, ferr := composeFilesFor(env); ferr == nil {
			if flags.keep {
				err = docker.ComposeStop(ctx, projectDir, files)
			} else {
				err = docker.ComposeDown(ctx, projectDir, files, false)
			}
			if err != nil {
				return err
			}
			log.Info().Str("env", name).Bool("kept", flags.keep).Msg("compose environment down")
			printDownResult(name, flags.keep)
			return nil
		}
		log.Warn().Str("env", name).Str("workspace", env.WorkspacePath).
			Msg("compose files unavailable, removing containers directly")
	}

	// Step 4: Stop, then optionally remove, each container.
	for _, c := range env.Containers {
		if !flags.force {
			if err := docker.StopContainer(ctx, cli, c.ContainerID); err != nil {
				return err
			}
		}
		if !flags.keep {
			if err := docker.RemoveContainer(ctx, cli, c.ContainerID, flags.force); err != nil {
				return err
			}
		}
	}

	log.Info().Str("env", name).Int("containers", len(env.Containers)).Msg("environment down")
	printDownResult(name, flags.keep)
	return nil
}

// composeFilesFor re-resolves a compose environment's compose file list
// from its workspace, including the generated label override when it
// still exists. The label schema stores only the workspace path, so the
// file list comes from re-reading devcontainer.json.
func composeFilesFor(env *model.Environment) (projectDir string, files []string, err error) {
	ws, err := workspace.Resolve(env.WorkspacePath)
	if err != nil {
		return "", nil, err
	}
	raw, err := ws.LoadConfig()
	if err != nil {
		return "", nil, err
	}

	files = devcontainer.GetComposeFiles(raw)
	if len(files) == 0 {
		return "", nil, model.NewCLIError(model.ExitConfigInvalid,
			"devcontainer.json no longer names compose files")
	}

	configDir := filepath.Dir(ws.ConfigPath)
	for i, f := range files {
		if !filepath.IsAbs(f) {
			files[i] = filepath.Join(configDir, f)
		}
	}
	if overridePath := filepath.Join(configDir, composeOverrideFile); fileExists(overridePath) {
		files = append(files, overridePath)
	}
	return configDir, files, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func printDownResult(name string, kept bool) {
	if IsJSONOutput() {
		fmt.Printf("{\"name\": %q, \"removed\": %t}\n", name, !kept)
		return
	}
	if kept {
		fmt.Printf("Environment %q stopped (containers kept).\n", name)
		return
	}
	fmt.Printf("Environment %q removed.\n", name)
}

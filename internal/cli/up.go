// up.go implements the "spate up" command.
//
// Up brings a workspace's environment online. For the image pattern it
// pulls the image if needed, resolves host ports, creates a labeled
// container with the configured mounts, and starts it. For the compose
// pattern it delegates to docker compose. The dockerfile pattern is
// rejected with a pointer to the image field.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/spate/internal/config"
	"github.com/mmr-tortoise/spate/internal/devcontainer"
	"github.com/mmr-tortoise/spate/internal/docker"
	"github.com/mmr-tortoise/spate/internal/logging"
	"github.com/mmr-tortoise/spate/internal/model"
	"github.com/mmr-tortoise/spate/internal/port"
	"github.com/mmr-tortoise/spate/internal/workspace"
)

// composeOverrideFile is the name of the generated label-injection
// override written next to devcontainer.json for compose environments.
const composeOverrideFile = "docker-compose.spate.yml"

// upFlags holds the flag values for the up command.
type upFlags struct {
	// name overrides the environment name derived from the directory.
	name string

	// pull forces an image pull even when the image exists locally.
	pull bool
}

// NewUpCommand creates the "up" cobra command.
func NewUpCommand() *cobra.Command {
	flags := &upFlags{}

	cmd := &cobra.Command{
		Use:   "up [path]",
		Short: "Create and start a workspace environment",
		Long: `Create the container(s) for a workspace's devcontainer.json and start them.

The environment name defaults to the sanitized directory name. All
environment metadata is stored in container labels; there is no state
file.

Examples:
  spate up
  spate up ~/src/my-project
  spate up --name backend-review`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runUp(cmd.Context(), path, flags)
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "Environment name (default: directory name)")
	cmd.Flags().BoolVar(&flags.pull, "pull", false, "Pull the image even if present locally")

	return cmd
}

// runUp is the main logic function for the up command.
func runUp(ctx context.Context, path string, flags *upFlags) error {
	log := logging.WithComponent("up")

	// Step 1: Resolve the workspace and parse its configuration.
	ws, err := workspace.Resolve(path)
	if err != nil {
		return err
	}
	raw, err := ws.LoadConfig()
	if err != nil {
		return err
	}

	// Step 2: Reject configurations that fail validation before touching
	// Docker at all.
	if errs := devcontainer.ValidateConfig(raw); len(errs) > 0 {
		printValidateResult(ws.ConfigPath, errs)
		return model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("devcontainer.json has %d validation error(s)", len(errs)))
	}

	envName := flags.name
	if envName == "" {
		envName = ws.Name
	}
	if err := model.ValidateName(envName); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid environment name", err)
	}

	// Step 3: Connect to Docker and verify the daemon responds.
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}

	// Step 4: Refuse to create a second environment with the same name.
	if existing, err := docker.FindEnvironment(ctx, cli, envName); err == nil {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("environment %q already exists (status: %s); run `spate down %s` first",
				envName, existing.Status, envName))
	}

	pattern := devcontainer.DetectPattern(raw)
	switch pattern {
	case model.PatternImage:
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return upImage(ctx, cli, ws, raw, settings, envName, flags.pull, log)

	case model.PatternCompose:
		return upCompose(ctx, ws, raw, envName, log)

	default:
		return model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("pattern %q is not supported by `spate up`; build the image first and reference it with the image field", pattern))
	}
}

// upImage creates and starts a single container for an image-pattern
// configuration.
func upImage(ctx context.Context, cli *docker.Client, ws *workspace.Workspace, raw *devcontainer.RawDevContainer, settings *config.Settings, envName string, forcePull bool, log zerolog.Logger) error {
	// Step 1: Normalize the mounts and ports from the configuration.
	mounts, err := raw.MountSpecs()
	if err != nil {
		return model.WrapCLIError(model.ExitConfigInvalid, "invalid mounts in devcontainer.json", err)
	}

	scanner := port.NewScanner()
	ports, err := scanner.ResolveHostPorts(devcontainer.ExtractPorts(raw))
	if err != nil {
		return err
	}

	// Step 2: Make sure the image is available locally.
	if forcePull {
		if err := docker.PullImage(ctx, cli, raw.Image); err != nil {
			return err
		}
	} else if err := docker.EnsureImage(ctx, cli, raw.Image); err != nil {
		return err
	}

	// Step 3: Assemble the environment metadata that becomes labels.
	env := &model.Environment{
		Name:          envName,
		ID:            uuid.NewString(),
		WorkspacePath: ws.Path,
		Image:         raw.Image,
		ConfigPattern: model.PatternImage,
		Ports:         ports,
		CreatedAt:     time.Now().UTC(),
	}

	envVars := make([]string, 0, len(raw.ContainerEnv))
	for k, v := range raw.ContainerEnv {
		envVars = append(envVars, k+"="+v)
	}

	// workspaceFolder from the config wins; otherwise the project mounts
	// under the configured workspace root.
	workspaceTarget := raw.WorkspaceFolder
	if workspaceTarget == "" {
		workspaceTarget = path.Join(settings.WorkspaceFolder, envName)
	}

	// Step 4: Create and start the container.
	containerID, err := docker.CreateContainer(ctx, cli, &docker.CreateSpec{
		Env:             env,
		Mounts:          mounts,
		EnvVars:         envVars,
		WorkspaceTarget: workspaceTarget,
		User:            raw.ContainerUser,
	})
	if err != nil {
		return err
	}

	if err := docker.StartContainer(ctx, cli, containerID); err != nil {
		return err
	}

	log.Info().
		Str("env", envName).
		Str("container", containerID[:12]).
		Msg("environment started")

	printUpResult(env, containerID)
	return nil
}

// upCompose starts a compose-pattern environment by delegating to docker
// compose. A generated override file stamps every service with the spate
// labels so the environment is discoverable by list and down.
func upCompose(ctx context.Context, ws *workspace.Workspace, raw *devcontainer.RawDevContainer, envName string, log zerolog.Logger) error {
	composeFiles := devcontainer.GetComposeFiles(raw)
	if len(composeFiles) == 0 {
		return model.NewCLIError(model.ExitConfigInvalid, "dockerComposeFile must name at least one file")
	}

	// Compose file paths in devcontainer.json are relative to the
	// directory containing devcontainer.json.
	configDir := filepath.Dir(ws.ConfigPath)
	for i, f := range composeFiles {
		if !filepath.IsAbs(f) {
			composeFiles[i] = filepath.Join(configDir, f)
		}
	}

	// Step 1: Assemble labels and render the override file next to the
	// config so relative paths in the user's compose files still resolve.
	env := &model.Environment{
		Name:          envName,
		ID:            uuid.NewString(),
		WorkspacePath: ws.Path,
		ConfigPattern: model.PatternCompose,
		CreatedAt:     time.Now().UTC(),
	}

	services := raw.RunServices
	if len(services) == 0 {
		services = []string{raw.Service}
	}

	override, err := devcontainer.GenerateComposeOverride(envName, services, docker.BuildLabels(env))
	if err != nil {
		return model.WrapCLIError(model.ExitConfigInvalid, "failed to generate compose override", err)
	}
	overridePath := filepath.Join(configDir, composeOverrideFile)
	if err := devcontainer.WriteNormalized(overridePath, override); err != nil {
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to write %s", overridePath), err)
	}

	// Step 2: Bring the project up with the override merged last.
	composeFiles = append(composeFiles, overridePath)
	if err := docker.ComposeUp(ctx, configDir, composeFiles, raw.RunServices); err != nil {
		return err
	}

	log.Info().Str("env", envName).Strs("services", services).Msg("compose environment started")
	if !IsJSONOutput() {
		fmt.Printf("Started compose environment %q (services: %s)\n", envName, strings.Join(services, ", "))
	}
	return nil
}

// printUpResult outputs the created environment in text or JSON format.
func printUpResult(env *model.Environment, containerID string) {
	if IsJSONOutput() {
		result := struct {
			*model.Environment
			ContainerID string `json:"containerId"`
		}{env, containerID}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Environment %q is running.\n", env.Name)
	fmt.Printf("  Image:     %s\n", env.Image)
	fmt.Printf("  Container: %s\n", containerID[:12])
	for _, p := range env.Ports {
		fmt.Printf("  Port:      localhost:%d -> %d/%s\n", p.HostPort, p.ContainerPort, p.Protocol)
	}
}

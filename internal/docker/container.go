// container.go implements container lifecycle operations for spate
// environments: creation from a parsed devcontainer.json, listing by
// label, starting, stopping, and removal.
//
// Only the image pattern is managed through the SDK directly. Compose
// patterns are delegated to the docker compose CLI, which owns the
// multi-container lifecycle.
package docker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"

	"github.com/mmr-tortoise/spate/internal/model"
)

// CreateSpec bundles everything needed to create an environment's
// container. The caller resolves ports and derives the environment
// metadata before handing off to CreateContainer.
type CreateSpec struct {
	// Env carries the environment metadata that becomes labels.
	Env *model.Environment

	// Mounts are the normalized devcontainer.json mounts.
	Mounts []model.MountSpec

	// EnvVars are containerEnv entries in KEY=VALUE form.
	EnvVars []string

	// WorkspaceTarget is the path inside the container where the project
	// directory is bind-mounted. Defaults to /workspaces/<name> when empty.
	WorkspaceTarget string

	// User is the containerUser from devcontainer.json, if any.
	User string
}

// CreateContainer creates (but does not start) a container for an
// image-pattern environment and returns the container ID.
//
// The container runs `sleep infinity` so it stays alive for exec sessions,
// matching how devcontainer tooling keeps containers running. The project
// directory is always bind-mounted at the workspace target in addition to
// any mounts declared in devcontainer.json.
func CreateContainer(ctx context.Context, cli *Client, spec *CreateSpec) (string, error) {
	env := spec.Env

	exposedPorts, portBindings, err := buildPortMaps(env.Ports)
	if err != nil {
		return "", model.WrapCLIError(model.ExitConfigInvalid, "invalid port specification", err)
	}

	workspaceTarget := spec.WorkspaceTarget
	if workspaceTarget == "" {
		workspaceTarget = "/workspaces/" + env.Name
	}

	mounts := buildMounts(env.WorkspacePath, workspaceTarget, spec.Mounts)

	config := &container.Config{
		Image:        env.Image,
		Labels:       BuildLabels(env),
		Env:          spec.EnvVars,
		ExposedPorts: exposedPorts,
		WorkingDir:   workspaceTarget,
		User:         spec.User,
		Cmd:          []string{"sleep", "infinity"},
	}

	hostConfig := &container.HostConfig{
		PortBindings: portBindings,
		Mounts:       mounts,
	}

	containerName := ContainerName(env)
	cli.log.Debug().
		Str("name", containerName).
		Str("image", env.Image).
		Int("ports", len(env.Ports)).
		Msg("creating container")

	resp, err := cli.Inner().ContainerCreate(ctx, config, hostConfig, nil, nil, containerName)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create container %q", containerName),
			err,
		)
	}

	return resp.ID, nil
}

// ContainerName derives the Docker container name for an environment.
// The short env ID suffix keeps names unique when an environment name is
// reused after `spate down`.
func ContainerName(env *model.Environment) string {
	id := env.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("spate-%s-%s", env.Name, id)
}

// buildPortMaps translates resolved PortSpecs into the Docker API's
// exposed-port set and host binding map.
func buildPortMaps(ports []model.PortSpec) (nat.PortSet, nat.PortMap, error) {
	exposedPorts := nat.PortSet{}
	portBindings := nat.PortMap{}

	for _, p := range ports {
		// nat.NewPort accepts any protocol string, so guard the set here.
		proto := p.Protocol
		switch proto {
		case "tcp", "udp":
		case "":
			proto = "tcp"
		default:
			return nil, nil, fmt.Errorf("container port %d: unsupported protocol %q", p.ContainerPort, p.Protocol)
		}

		port, err := nat.NewPort(proto, strconv.Itoa(p.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("container port %d/%s: %w", p.ContainerPort, proto, err)
		}

		hostPort := p.HostPort
		if hostPort == 0 {
			hostPort = p.ContainerPort
		}

		exposedPorts[port] = struct{}{}
		portBindings[port] = []nat.PortBinding{
			{
				// Bind on all interfaces, matching Docker's default
				// publish behavior.
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(hostPort),
			},
		}
	}

	return exposedPorts, portBindings, nil
}

// buildMounts translates normalized MountSpecs into Docker API mounts and
// prepends the workspace bind mount.
func buildMounts(workspacePath, workspaceTarget string, specs []model.MountSpec) []mount.Mount {
	mounts := make([]mount.Mount, 0, len(specs)+1)

	mounts = append(mounts, mount.Mount{
		Type:   mount.TypeBind,
		Source: workspacePath,
		Target: workspaceTarget,
	})

	for _, m := range specs {
		mounts = append(mounts, mount.Mount{
			Type:     mount.Type(m.Type),
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	return mounts
}

// ListManagedContainers queries the daemon for all containers carrying the
// "spate.managed-by=spate" label, including stopped ones. This is the sole
// discovery mechanism for existing environments.
func ListManagedContainers(ctx context.Context, cli *Client) ([]model.ContainerInfo, error) {
	// Filtering server-side avoids transferring unrelated containers.
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, summaryToInfo(c))
	}

	return result, nil
}

// summaryToInfo converts a Docker API container summary into the domain
// ContainerInfo, decoupling the rest of the application from SDK types.
func summaryToInfo(c container.Summary) model.ContainerInfo {
	// API names carry a leading "/" that means nothing to users.
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}

	return model.ContainerInfo{
		ContainerID:   c.ID,
		ContainerName: name,
		Status:        c.State,
		Labels:        c.Labels,
	}
}

// GroupByEnvironment groups containers by their "spate.name" label.
// Containers without the label cannot be attributed to an environment and
// are skipped.
func GroupByEnvironment(containers []model.ContainerInfo) map[string][]model.ContainerInfo {
	groups := make(map[string][]model.ContainerInfo)

	for _, c := range containers {
		envName, ok := c.Labels[LabelName]
		if !ok || envName == "" {
			continue
		}
		groups[envName] = append(groups[envName], c)
	}

	return groups
}

// BuildEnvironment reconstructs an Environment domain object from a group
// of containers sharing the same "spate.name" label. Metadata comes from
// the first container's labels (all containers of one environment carry
// identical spate labels); status is derived from container states.
func BuildEnvironment(envName string, containers []model.ContainerInfo) (*model.Environment, error) {
	if len(containers) == 0 {
		return nil, fmt.Errorf("cannot build environment %q: no containers provided", envName)
	}

	env, err := ParseLabels(containers[0].Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to parse labels for environment %q: %w", envName, err)
	}

	env.Containers = containers
	env.Status = determineStatus(containers)

	return env, nil
}

// determineStatus derives the aggregate environment status: a single
// running container makes the environment running, otherwise it is stopped.
func determineStatus(containers []model.ContainerInfo) model.EnvStatus {
	for _, c := range containers {
		if c.Status == "running" {
			return model.StatusRunning
		}
	}
	return model.StatusStopped
}

// FindEnvironment locates a managed environment by name. Returns a
// CLIError with ExitEnvNotFound when no containers carry the name.
func FindEnvironment(ctx context.Context, cli *Client, name string) (*model.Environment, error) {
	containers, err := ListManagedContainers(ctx, cli)
	if err != nil {
		return nil, err
	}

	group, ok := GroupByEnvironment(containers)[name]
	if !ok {
		return nil, model.NewCLIError(
			model.ExitEnvNotFound,
			fmt.Sprintf("environment %q not found", name),
		)
	}

	return BuildEnvironment(name, group)
}

// StartContainer starts a stopped container by ID.
func StartContainer(ctx context.Context, cli *Client, containerID string) error {
	err := cli.Inner().ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %q", containerID),
			err,
		)
	}
	return nil
}

// StopContainer stops a running container by ID. Docker sends SIGTERM and
// escalates to SIGKILL after its default timeout.
func StopContainer(ctx context.Context, cli *Client, containerID string) error {
	err := cli.Inner().ContainerStop(ctx, containerID, container.StopOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to stop container %q", containerID),
			err,
		)
	}
	return nil
}

// RemoveContainer removes a container by ID. With force, a running
// container is killed first.
func RemoveContainer(ctx context.Context, cli *Client, containerID string, force bool) error {
	err := cli.Inner().ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force: force,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %q", containerID),
			err,
		)
	}
	return nil
}

// ComposeUp starts a Compose-pattern environment by shelling out to
// `docker compose -f ... up -d` in the project directory. The compose
// plugin owns multi-container lifecycle; reimplementing it over the SDK
// would duplicate its merge and dependency logic.
func ComposeUp(ctx context.Context, projectDir string, composeFiles []string, services []string) error {
	args := buildComposeArgs(composeFiles)
	args = append(args, "up", "-d")
	args = append(args, services...)

	return runCompose(ctx, projectDir, args)
}

// ComposeStop stops a Compose-pattern environment's containers without
// removing them.
func ComposeStop(ctx context.Context, projectDir string, composeFiles []string) error {
	args := buildComposeArgs(composeFiles)
	args = append(args, "stop")

	return runCompose(ctx, projectDir, args)
}

// ComposeDown stops and removes a Compose-pattern environment's
// containers and networks, plus volumes when removeVolumes is set.
func ComposeDown(ctx context.Context, projectDir string, composeFiles []string, removeVolumes bool) error {
	args := buildComposeArgs(composeFiles)
	args = append(args, "down")
	if removeVolumes {
		args = append(args, "-v")
	}

	return runCompose(ctx, projectDir, args)
}

// buildComposeArgs constructs the shared prefix for docker compose
// invocations. Compose merges -f files in order, later ones winning.
func buildComposeArgs(composeFiles []string) []string {
	args := make([]string, 0, len(composeFiles)*2+2)
	args = append(args, "compose")
	for _, f := range composeFiles {
		args = append(args, "-f", f)
	}
	return args
}

// runCompose executes a docker compose command in the project directory.
// Relative paths inside the YAML resolve against cmd.Dir, so it must be
// the directory containing the compose files.
func runCompose(ctx context.Context, projectDir string, args []string) error {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = projectDir
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("docker compose failed: %s", strings.TrimSpace(string(output))),
			err,
		)
	}

	return nil
}

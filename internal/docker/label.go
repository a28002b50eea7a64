package docker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmr-tortoise/spate/internal/model"
)

// Label key constants define the Docker label keys used to persist
// environment metadata on containers. These labels are the sole
// persistence mechanism; spate keeps no state file.
//
// All keys share the "spate." prefix to avoid collisions with labels set
// by other tools (Docker Compose, VS Code, etc.).
const (
	// LabelPrefix is the common prefix for all spate labels.
	LabelPrefix = "spate."

	// LabelManagedBy identifies containers managed by spate. This is the
	// primary label used for filtering and discovery.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelName stores the environment name (e.g. "rust-workspace").
	LabelName = LabelPrefix + "name"

	// LabelEnvID stores the random identifier assigned when the
	// environment was created, disambiguating reused names.
	LabelEnvID = LabelPrefix + "env-id"

	// LabelWorkspacePath stores the absolute path to the project directory.
	LabelWorkspacePath = LabelPrefix + "workspace-path"

	// LabelImage stores the container image the environment was created from.
	LabelImage = LabelPrefix + "image"

	// LabelConfigPattern stores the detected devcontainer.json pattern:
	// "image", "dockerfile", or "compose".
	LabelConfigPattern = LabelPrefix + "config-pattern"

	// LabelCreatedAt stores the creation timestamp in RFC3339 format.
	LabelCreatedAt = LabelPrefix + "created-at"

	// LabelPortPrefix is the prefix for per-port labels. Each published
	// port gets its own label with the container port appended:
	//
	//	"spate.port.8000" = "8000"
	//
	// so the full port table can be rebuilt from labels alone.
	LabelPortPrefix = LabelPrefix + "port."
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "spate"

// BuildLabels constructs a Docker label map from an Environment. Applied
// at container creation, these labels allow full reconstruction of the
// Environment from container inspection alone.
//
// Each published port is encoded as an individual label rather than a
// packed structure, keeping `docker inspect` output human-readable.
func BuildLabels(env *model.Environment) map[string]string {
	labels := map[string]string{
		LabelManagedBy:     ManagedByValue,
		LabelName:          env.Name,
		LabelEnvID:         env.ID,
		LabelWorkspacePath: env.WorkspacePath,
		LabelImage:         env.Image,
		LabelConfigPattern: env.ConfigPattern.String(),
		// UTC keeps the timestamp consistent regardless of host timezone.
		LabelCreatedAt: env.CreatedAt.UTC().Format(time.RFC3339),
	}

	for _, p := range env.Ports {
		labels[PortLabel(p.ContainerPort)] = strconv.Itoa(p.HostPort)
	}

	return labels
}

// ParseLabels reconstructs an Environment from Docker container labels.
// This is the inverse of BuildLabels, used when listing or inspecting
// containers.
//
// Status and Containers are NOT reconstructed here; they come from runtime
// container state, not labels.
func ParseLabels(labels map[string]string) (*model.Environment, error) {
	// Collect all missing labels up front so the error can name every one.
	requiredKeys := []string{
		LabelManagedBy,
		LabelName,
		LabelEnvID,
		LabelWorkspacePath,
		LabelConfigPattern,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	pattern, err := model.ParseConfigPattern(labels[LabelConfigPattern])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelConfigPattern, err)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	ports, err := ParsePortLabels(labels)
	if err != nil {
		return nil, fmt.Errorf("failed to parse port labels: %w", err)
	}

	return &model.Environment{
		Name:          labels[LabelName],
		ID:            labels[LabelEnvID],
		WorkspacePath: labels[LabelWorkspacePath],
		Image:         labels[LabelImage],
		ConfigPattern: pattern,
		Ports:         ports,
		CreatedAt:     createdAt,
	}, nil
}

// PortLabel generates the label key for a specific container port:
//
//	PortLabel(8000) → "spate.port.8000"
func PortLabel(containerPort int) string {
	return fmt.Sprintf("%s%d", LabelPortPrefix, containerPort)
}

// ParsePortLabels extracts all published port entries from a label map,
// sorted by container port so reconstructed environments render the same
// way on every run. Returns an empty slice when no port labels are
// present, and an error for malformed keys or values.
func ParsePortLabels(labels map[string]string) ([]model.PortSpec, error) {
	ports := make([]model.PortSpec, 0, 4)

	for key, value := range labels {
		if !strings.HasPrefix(key, LabelPortPrefix) {
			continue
		}

		containerPort, err := strconv.Atoi(strings.TrimPrefix(key, LabelPortPrefix))
		if err != nil {
			return nil, fmt.Errorf("invalid container port in label key %q: %w", key, err)
		}

		hostPort, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid host port in label %q=%q: %w", key, value, err)
		}

		ports = append(ports, model.PortSpec{
			ContainerPort: containerPort,
			HostPort:      hostPort,
			// Only TCP ports are recorded in labels. UDP would need its
			// own label scheme if it ever becomes necessary.
			Protocol: "tcp",
		})
	}

	// Map iteration order is random; sort so Ports is stable.
	sort.Slice(ports, func(i, j int) bool {
		return ports[i].ContainerPort < ports[j].ContainerPort
	})

	return ports, nil
}

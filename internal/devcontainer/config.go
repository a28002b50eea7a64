package devcontainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/spate/internal/model"
)

// RawDevContainer represents the raw JSON structure of a devcontainer.json
// file. Fields not modeled here are silently ignored during typed parsing;
// round-trip operations go through Normalize instead, which preserves them.
//
// Several fields use interface{} types because the devcontainer.json spec
// allows multiple value types for the same field (e.g., mounts entries can
// be strings or objects, dockerComposeFile can be a string or an array).
type RawDevContainer struct {
	// Name is the display name for the dev container.
	Name string `json:"name"`

	// Image is the container image to use when the container is created
	// directly from an image.
	Image string `json:"image,omitempty"`

	// Build specifies how to build the image from a Dockerfile.
	Build *BuildConfig `json:"build,omitempty"`

	// DockerComposeFile is the path(s) to Docker Compose file(s).
	// Can be a single string or an array of strings in devcontainer.json.
	DockerComposeFile interface{} `json:"dockerComposeFile,omitempty"`

	// Service is the name of the primary service in the Docker Compose
	// file that the dev container attaches to.
	Service string `json:"service,omitempty"`

	// RunServices lists which Compose services to start. If omitted, all
	// services in the Compose file are started.
	RunServices []string `json:"runServices,omitempty"`

	// WorkspaceFolder is the path inside the container where the project
	// source will be mounted.
	WorkspaceFolder string `json:"workspaceFolder,omitempty"`

	// Mounts lists additional volume bindings. Each entry is either a
	// comma-separated key=value string or an object with source/target/type
	// keys. Use MountSpecs() on the parsed config for the normalized form.
	Mounts []interface{} `json:"mounts,omitempty"`

	// Features maps feature identifiers to their option values. The value
	// is usually an options object, but the schema also allows a bare
	// version string or boolean. Use FeatureRefs() for the normalized form.
	Features map[string]interface{} `json:"features,omitempty"`

	// Customizations holds tool-specific configuration blocks. Only the
	// "vscode" block is modeled; other tools' blocks survive round trips
	// via Normalize but are not interpreted.
	Customizations *Customizations `json:"customizations,omitempty"`

	// ForwardPorts lists ports to forward from the container to the host.
	// Each element can be an integer or a "host:port" string.
	ForwardPorts []interface{} `json:"forwardPorts,omitempty"`

	// AppPort defines ports to publish from the container. Can be a single
	// string ("hostPort:containerPort"), a single integer, or an array of
	// strings/integers.
	AppPort interface{} `json:"appPort,omitempty"`

	// PortsAttributes provides metadata (labels, auto-forward behavior)
	// for specific ports. The map key is the port number as a string.
	PortsAttributes map[string]PortAttribute `json:"portsAttributes,omitempty"`

	// ContainerEnv sets environment variables inside the container.
	ContainerEnv map[string]string `json:"containerEnv,omitempty"`

	// RemoteUser is the user tools should run as inside the container.
	RemoteUser string `json:"remoteUser,omitempty"`

	// ContainerUser is the user the container itself runs as.
	ContainerUser string `json:"containerUser,omitempty"`

	// RunArgs provides additional arguments to pass to `docker run`.
	// Only applicable for non-Compose patterns.
	RunArgs []string `json:"runArgs,omitempty"`

	// ShutdownAction controls what happens when the dev container is
	// stopped. Common values: "none", "stopContainer", "stopCompose".
	ShutdownAction string `json:"shutdownAction,omitempty"`
}

// BuildConfig holds the Dockerfile build configuration.
// This corresponds to the "build" object in devcontainer.json.
type BuildConfig struct {
	// Dockerfile is the relative path to the Dockerfile.
	Dockerfile string `json:"dockerfile,omitempty"`

	// Context is the build context path, relative to devcontainer.json.
	Context string `json:"context,omitempty"`

	// Args are build-time variables passed to the Dockerfile.
	Args map[string]string `json:"args,omitempty"`

	// Target is the Dockerfile build stage to use.
	Target string `json:"target,omitempty"`
}

// Customizations is the "customizations" block. Tool vendors each get a
// sub-object keyed by tool name.
type Customizations struct {
	// VSCode holds VS Code-specific settings and extension recommendations.
	VSCode *VSCodeCustomizations `json:"vscode,omitempty"`
}

// VSCodeCustomizations is the customizations.vscode block: editor setting
// overrides and recommended extension identifiers.
type VSCodeCustomizations struct {
	// Settings maps VS Code setting keys to their override values.
	Settings map[string]interface{} `json:"settings,omitempty"`

	// Extensions lists recommended extension identifiers
	// (e.g. "rust-lang.rust-analyzer").
	Extensions []string `json:"extensions,omitempty"`
}

// PortAttribute holds metadata about a port, sourced from the
// "portsAttributes" field in devcontainer.json.
type PortAttribute struct {
	// Label is a human-readable description for the port.
	Label string `json:"label,omitempty"`

	// OnAutoForward controls the IDE's behavior when the port is detected.
	// Common values: "notify", "openBrowser", "silent", "ignore".
	OnAutoForward string `json:"onAutoForward,omitempty"`
}

// LoadConfig reads a devcontainer.json file, strips JSONC comments, and
// parses it into a RawDevContainer struct.
//
// Returns a CLIError with ExitConfigNotFound if the file does not exist.
// The source file is never modified.
func LoadConfig(devcontainerPath string) (*RawDevContainer, error) {
	data, err := os.ReadFile(devcontainerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigNotFound,
				fmt.Sprintf("devcontainer.json not found: %s", devcontainerPath),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read devcontainer.json: %w", err)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing. The devcontainer.json spec officially supports JSONC, so
	// real-world files frequently contain comments.
	cleanJSON := jsonc.ToJSON(data)

	// encoding/json silently ignores fields not defined in the struct,
	// which is the desired behavior for typed parsing.
	var raw RawDevContainer
	if err := json.Unmarshal(cleanJSON, &raw); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigInvalid,
			fmt.Sprintf("failed to parse devcontainer.json at %s", devcontainerPath),
			err,
		)
	}

	return &raw, nil
}

// FindDevContainerJSON searches for devcontainer.json in the standard
// locations within a project directory.
//
// The search order follows the official devcontainer.json spec:
//  1. <projectPath>/.devcontainer/devcontainer.json
//  2. <projectPath>/.devcontainer.json
//
// Returns the path to the first found file, or a CLIError with
// ExitConfigNotFound if neither location contains the file.
func FindDevContainerJSON(projectPath string) (string, error) {
	candidates := []string{
		filepath.Join(projectPath, ".devcontainer", "devcontainer.json"),
		filepath.Join(projectPath, ".devcontainer.json"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", model.NewCLIError(
		model.ExitConfigNotFound,
		fmt.Sprintf("devcontainer.json not found in %s (searched .devcontainer/devcontainer.json and .devcontainer.json)", projectPath),
	)
}

// DetectPattern determines the devcontainer configuration pattern based on
// the parsed configuration fields.
//
// The detection logic follows a priority-based approach:
//  1. If dockerComposeFile is present, the pattern is compose. A
//     devcontainer.json with both dockerComposeFile and image is still
//     treated as compose.
//  2. If the build field is present, the pattern is dockerfile.
//  3. Otherwise, the pattern is image.
func DetectPattern(raw *RawDevContainer) model.ConfigPattern {
	if raw.DockerComposeFile != nil {
		return model.PatternCompose
	}
	if raw.Build != nil {
		return model.PatternDockerfile
	}
	return model.PatternImage
}

// ExtractPorts collects port specifications from the port-related fields
// in devcontainer.json and returns a normalized list of PortSpec values.
//
// Port sources:
//   - forwardPorts: array of int or "host:port" strings
//   - appPort: string "host:container", int, or array of these
//   - portsAttributes: only provides metadata (labels), not definitions
func ExtractPorts(raw *RawDevContainer) []model.PortSpec {
	var ports []model.PortSpec

	// forwardPorts entries: a bare number forwards the container port to
	// the same host port; a "host:container" string maps them explicitly.
	for _, fp := range raw.ForwardPorts {
		switch v := fp.(type) {
		case float64:
			// JSON numbers are always parsed as float64 in Go's
			// encoding/json when the target type is interface{}.
			ports = append(ports, model.PortSpec{
				ContainerPort: int(v),
				Protocol:      "tcp",
			})
		case string:
			if ps := parsePortString(v); ps != nil {
				ports = append(ports, *ps)
			}
		}
	}

	ports = append(ports, parseAppPort(raw.AppPort)...)

	// Enrich ports with labels from portsAttributes, which is keyed by
	// container port number as a string.
	if raw.PortsAttributes != nil {
		for i := range ports {
			portKey := strconv.Itoa(ports[i].ContainerPort)
			if attr, ok := raw.PortsAttributes[portKey]; ok {
				ports[i].Label = attr.Label
			}
		}
	}

	return ports
}

// parsePortString parses a forwardPorts/appPort string entry.
// Format: "hostPort:containerPort" or just "containerPort".
// Returns nil if the string is not a valid port specification.
func parsePortString(s string) *model.PortSpec {
	parts := strings.SplitN(s, ":", 2)

	if len(parts) == 2 {
		hostPort, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil
		}
		containerPort, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil
		}
		return &model.PortSpec{
			ContainerPort: containerPort,
			HostPort:      hostPort,
			Protocol:      "tcp",
		}
	}

	port, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &model.PortSpec{
		ContainerPort: port,
		Protocol:      "tcp",
	}
}

// parseAppPort handles the various formats of the appPort field.
// appPort can be:
//   - nil: no ports defined
//   - float64: a single container port number
//   - string: "hostPort:containerPort" mapping
//   - []interface{}: an array of the above types
func parseAppPort(appPort interface{}) []model.PortSpec {
	if appPort == nil {
		return nil
	}

	var ports []model.PortSpec

	switch v := appPort.(type) {
	case float64:
		ports = append(ports, model.PortSpec{
			ContainerPort: int(v),
			Protocol:      "tcp",
		})
	case string:
		if ps := parsePortString(v); ps != nil {
			ports = append(ports, *ps)
		}
	case []interface{}:
		for _, item := range v {
			switch iv := item.(type) {
			case float64:
				ports = append(ports, model.PortSpec{
					ContainerPort: int(iv),
					Protocol:      "tcp",
				})
			case string:
				if ps := parsePortString(iv); ps != nil {
					ports = append(ports, *ps)
				}
			}
		}
	}

	return ports
}

// GetComposeFiles extracts and normalizes the dockerComposeFile field
// into a string slice. The spec allows the field to be either a single
// string or an array of strings.
//
// Returns nil if dockerComposeFile is not set.
func GetComposeFiles(raw *RawDevContainer) []string {
	if raw.DockerComposeFile == nil {
		return nil
	}

	switch v := raw.DockerComposeFile.(type) {
	case string:
		return []string{v}
	case []interface{}:
		files := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				files = append(files, s)
			}
		}
		return files
	default:
		return nil
	}
}

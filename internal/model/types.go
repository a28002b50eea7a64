package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// EnvStatus represents the lifecycle state of a managed environment.
// The state transitions are:
//
//	[Created] → Running → Stopped ⇄ Running → [Removed]
type EnvStatus string

const (
	// StatusRunning indicates the environment's container is running.
	StatusRunning EnvStatus = "running"

	// StatusStopped indicates the container exists but is not running.
	// Configuration and volume data are preserved.
	StatusStopped EnvStatus = "stopped"
)

// String returns the string representation of EnvStatus.
// This satisfies fmt.Stringer for CLI output and logging.
func (s EnvStatus) String() string {
	return string(s)
}

// IsValid checks whether the EnvStatus value is one of the
// predefined valid states.
func (s EnvStatus) IsValid() bool {
	switch s {
	case StatusRunning, StatusStopped:
		return true
	default:
		return false
	}
}

// ParseEnvStatus converts a string to an EnvStatus.
// Returns an error if the string does not match any valid status.
func ParseEnvStatus(s string) (EnvStatus, error) {
	status := EnvStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid environment status: %q (valid: running, stopped)", s)
	}
	return status, nil
}

// ConfigPattern represents the type of devcontainer.json configuration.
//
// Pattern detection logic:
//   - dockerComposeFile present → PatternCompose
//   - build present, no dockerComposeFile → PatternDockerfile
//   - otherwise → PatternImage
type ConfigPattern string

const (
	// PatternImage uses a pre-built container image directly.
	// Example: {"image": "mcr.microsoft.com/devcontainers/rust:1-1-bullseye"}
	PatternImage ConfigPattern = "image"

	// PatternDockerfile builds an image from a Dockerfile.
	// Example: {"build": {"dockerfile": "Dockerfile", "context": ".."}}
	PatternDockerfile ConfigPattern = "dockerfile"

	// PatternCompose attaches to a service defined in Docker Compose file(s).
	// Example: {"dockerComposeFile": "docker-compose.yml", "service": "app"}
	PatternCompose ConfigPattern = "compose"
)

// String returns the string representation of ConfigPattern.
func (p ConfigPattern) String() string {
	return string(p)
}

// IsValid checks whether the ConfigPattern value is one of the
// predefined valid patterns.
func (p ConfigPattern) IsValid() bool {
	switch p {
	case PatternImage, PatternDockerfile, PatternCompose:
		return true
	default:
		return false
	}
}

// ParseConfigPattern converts a string to a ConfigPattern.
// Returns an error if the string does not match any valid pattern.
func ParseConfigPattern(s string) (ConfigPattern, error) {
	pattern := ConfigPattern(strings.ToLower(s))
	if !pattern.IsValid() {
		return "", fmt.Errorf("invalid config pattern: %q (valid: image, dockerfile, compose)", s)
	}
	return pattern, nil
}

// MountSpec is the normalized form of a devcontainer mount declaration.
// The devcontainer.json schema allows mounts to be written either as
// comma-separated key=value strings ("source=x,target=/y,type=volume")
// or as JSON objects with the same keys. Both forms normalize to this type.
type MountSpec struct {
	// Source identifies the host path or named volume to mount.
	// May contain devcontainer variables such as ${localWorkspaceFolder}.
	Source string `json:"source"`

	// Target is the absolute path inside the container.
	Target string `json:"target"`

	// Type is the mount type: "bind", "volume", or "tmpfs".
	Type string `json:"type"`

	// ReadOnly marks the mount as read-only. Only expressible in the
	// string form via a "readonly" token, and in the object form via
	// a boolean field.
	ReadOnly bool `json:"readOnly,omitempty"`
}

// Validate checks that the mount declaration is complete enough to be
// handed to a container runtime.
func (m *MountSpec) Validate() error {
	if m.Target == "" {
		return fmt.Errorf("mount: target must not be empty")
	}
	switch m.Type {
	case "bind", "volume", "tmpfs":
	case "":
		return fmt.Errorf("mount: type must not be empty (valid: bind, volume, tmpfs)")
	default:
		return fmt.Errorf("mount: invalid type %q (valid: bind, volume, tmpfs)", m.Type)
	}
	if m.Type != "tmpfs" && m.Source == "" {
		return fmt.Errorf("mount: source must not be empty for type %q", m.Type)
	}
	return nil
}

// String renders the mount in the devcontainer string form, which is also
// the form Docker's --mount flag accepts.
func (m *MountSpec) String() string {
	parts := make([]string, 0, 4)
	if m.Source != "" {
		parts = append(parts, "source="+m.Source)
	}
	parts = append(parts, "target="+m.Target, "type="+m.Type)
	if m.ReadOnly {
		parts = append(parts, "readonly")
	}
	return strings.Join(parts, ",")
}

// FeatureRef identifies a devcontainer feature together with its options.
// Features are referenced by OCI registry identifier with an optional
// version tag, e.g. "ghcr.io/devcontainers/features/git:1".
//
// spate never resolves or installs features; it only surfaces them as
// parsed identifiers with their option mappings.
type FeatureRef struct {
	// ID is the full feature identifier as written in devcontainer.json,
	// including any version tag.
	ID string `json:"id"`

	// Registry is the identifier with the version tag stripped.
	Registry string `json:"registry"`

	// Version is the pinned version tag, or "latest" when untagged.
	Version string `json:"version"`

	// Options holds the feature-specific option mapping verbatim.
	Options map[string]interface{} `json:"options,omitempty"`
}

// ParseFeatureRef splits a feature identifier into registry and version
// parts. The version is the segment after the last ":" unless that segment
// contains a "/", which would indicate the colon belongs to a port in the
// registry host (e.g. "localhost:5000/features/foo").
func ParseFeatureRef(id string, options map[string]interface{}) FeatureRef {
	ref := FeatureRef{ID: id, Registry: id, Version: "latest", Options: options}

	idx := strings.LastIndex(id, ":")
	if idx > 0 && !strings.Contains(id[idx+1:], "/") {
		ref.Registry = id[:idx]
		ref.Version = id[idx+1:]
	}
	return ref
}

// PortSpec represents a port definition extracted from devcontainer.json.
// This is a normalized representation that abstracts over the different
// port specification formats (forwardPorts, appPort).
type PortSpec struct {
	// ContainerPort is the port number inside the container.
	ContainerPort int `json:"containerPort"`

	// HostPort is the requested host port. May be 0 when only a container
	// port was specified (e.g. integer forwardPorts entries), in which case
	// the host port defaults to the container port at publish time.
	HostPort int `json:"hostPort"`

	// Protocol is the network protocol (tcp/udp). Defaults to "tcp".
	Protocol string `json:"protocol"`

	// Label is an optional description from portsAttributes.
	Label string `json:"label,omitempty"`
}

// Validate checks whether the PortSpec has valid field values.
func (p *PortSpec) Validate() error {
	if p.ContainerPort < 1 || p.ContainerPort > 65535 {
		return fmt.Errorf("port: container port %d out of range (1-65535)", p.ContainerPort)
	}
	if p.HostPort != 0 && (p.HostPort < 1 || p.HostPort > 65535) {
		return fmt.Errorf("port: host port %d out of range (1-65535)", p.HostPort)
	}
	if p.Protocol == "" {
		p.Protocol = "tcp"
	}
	if p.Protocol != "tcp" && p.Protocol != "udp" {
		return fmt.Errorf("port: invalid protocol %q (valid: tcp, udp)", p.Protocol)
	}
	return nil
}

// Environment represents a spate-managed development environment: a project
// directory paired with the container created from its devcontainer.json.
// This is the primary aggregate entity in the domain.
//
// All fields are reconstructed at runtime from Docker container labels.
// There is no persistent state file on disk.
type Environment struct {
	// Name is the unique identifier for this environment.
	// Must contain only alphanumeric characters and hyphens.
	Name string `json:"name"`

	// ID is a random identifier assigned at creation time, used to
	// disambiguate environments whose names were reused.
	ID string `json:"id"`

	// WorkspacePath is the absolute filesystem path to the project directory.
	WorkspacePath string `json:"workspacePath"`

	// Image is the container image the environment was created from.
	Image string `json:"image"`

	// Status is the current lifecycle state of the environment.
	Status EnvStatus `json:"status"`

	// ConfigPattern indicates which devcontainer.json pattern is in use.
	ConfigPattern ConfigPattern `json:"configPattern"`

	// Containers holds information about the Docker containers belonging
	// to this environment.
	Containers []ContainerInfo `json:"containers,omitempty"`

	// Ports holds the published port mappings for this environment.
	Ports []PortSpec `json:"ports,omitempty"`

	// CreatedAt is the timestamp when this environment was created.
	CreatedAt time.Time `json:"createdAt"`
}

// nameRegex validates environment names: alphanumeric + hyphens only,
// must start and end with alphanumeric.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateName checks if the given name is a valid environment name.
// Valid names contain only alphanumeric characters and hyphens,
// and must start/end with an alphanumeric character.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("environment name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid environment name %q: must contain only alphanumeric characters and hyphens, and start/end with alphanumeric", name)
	}
	return nil
}

// ContainerInfo holds runtime information about a Docker container.
// This data is fetched dynamically from the Docker API, not persisted.
type ContainerInfo struct {
	// ContainerID is the unique Docker container identifier.
	ContainerID string `json:"containerId"`

	// ContainerName is the human-readable Docker container name.
	ContainerName string `json:"containerName"`

	// Status is the Docker container status (e.g. "running", "exited").
	Status string `json:"status"`

	// Labels is the full set of Docker labels on the container,
	// including spate management labels (spate.* prefix).
	Labels map[string]string `json:"labels,omitempty"`
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// CI systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigNotFound indicates devcontainer.json was not found
	// in the expected location.
	ExitConfigNotFound ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitConfigInvalid indicates the devcontainer.json failed validation.
	ExitConfigInvalid ExitCode = 4

	// ExitEnvNotFound indicates the specified environment does not exist.
	ExitEnvNotFound ExitCode = 5

	// ExitTorrentError indicates a bencode or metainfo operation failed.
	ExitTorrentError ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

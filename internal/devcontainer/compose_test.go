package devcontainer

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/spate/internal/model"
)

// parsedCompose mirrors the exported YAML structure for test assertions.
type parsedCompose struct {
	Name     string `yaml:"name"`
	Services map[string]struct {
		Image       string            `yaml:"image"`
		Volumes     []string          `yaml:"volumes"`
		Ports       []string          `yaml:"ports"`
		Environment map[string]string `yaml:"environment"`
		Command     []string          `yaml:"command"`
	} `yaml:"services"`
	Volumes map[string]interface{} `yaml:"volumes"`
}

// TestExportCompose_RustWorkspace verifies the full export of the canonical
// image-pattern fixture: image, named volume mount, forwarded port, and
// environment all translate to Compose fields.
func TestExportCompose_RustWorkspace(t *testing.T) {
	path := filepath.Join(testdataPath(t, "rust-workspace"), ".devcontainer", "devcontainer.json")
	raw, err := LoadConfig(path)
	require.NoError(t, err)

	data, err := ExportCompose(raw, "rust-workspace")
	require.NoError(t, err)

	// The output carries a generated-file header comment.
	assert.Contains(t, string(data), "# Generated by spate")

	var project parsedCompose
	require.NoError(t, yaml.Unmarshal(data, &project))

	assert.Equal(t, "rust-workspace", project.Name)
	require.Contains(t, project.Services, "devcontainer")

	svc := project.Services["devcontainer"]
	assert.Equal(t, "mcr.microsoft.com/devcontainers/rust:1-1-bullseye", svc.Image)
	assert.Equal(t, []string{"cargo-cache:/usr/local/cargo"}, svc.Volumes)
	assert.Equal(t, []string{"8000:8000"}, svc.Ports)
	assert.Equal(t, "1", svc.Environment["CARGO_INCREMENTAL"])
	assert.Equal(t, []string{"sleep", "infinity"}, svc.Command)

	// The named volume gets a top-level declaration.
	assert.Contains(t, project.Volumes, "cargo-cache")
}

// TestExportCompose_ReadOnlyBind verifies short-syntax rendering of a
// read-only bind mount and that bind sources are not declared as volumes.
func TestExportCompose_ReadOnlyBind(t *testing.T) {
	raw := &RawDevContainer{
		Name:  "bind-app",
		Image: "node:20",
		Mounts: []interface{}{
			"source=/host/certs,target=/etc/certs,type=bind,readonly",
		},
	}

	data, err := ExportCompose(raw, "bind-app")
	require.NoError(t, err)

	var project parsedCompose
	require.NoError(t, yaml.Unmarshal(data, &project))

	svc := project.Services["devcontainer"]
	assert.Equal(t, []string{"/host/certs:/etc/certs:ro"}, svc.Volumes)
	assert.Empty(t, project.Volumes)
}

// TestExportCompose_PortsSorted verifies deterministic port ordering by
// container port.
func TestExportCompose_PortsSorted(t *testing.T) {
	raw := &RawDevContainer{
		Name:         "ports-app",
		Image:        "node:20",
		ForwardPorts: []interface{}{float64(8080), "9000:3000", float64(80)},
	}

	data, err := ExportCompose(raw, "ports-app")
	require.NoError(t, err)

	var project parsedCompose
	require.NoError(t, yaml.Unmarshal(data, &project))

	svc := project.Services["devcontainer"]
	assert.Equal(t, []string{"80:80", "9000:3000", "8080:8080"}, svc.Ports)
}

// TestComposePortEntry verifies short-syntax rendering, including the
// protocol suffix for non-TCP ports and the host-port fallback.
func TestComposePortEntry(t *testing.T) {
	tests := []struct {
		name string
		spec model.PortSpec
		want string
	}{
		{
			name: "tcp with explicit host port",
			spec: model.PortSpec{ContainerPort: 3000, HostPort: 9000, Protocol: "tcp"},
			want: "9000:3000",
		},
		{
			name: "zero host port falls back to container port",
			spec: model.PortSpec{ContainerPort: 8080, Protocol: "tcp"},
			want: "8080:8080",
		},
		{
			name: "udp keeps its protocol suffix",
			spec: model.PortSpec{ContainerPort: 5353, HostPort: 5353, Protocol: "udp"},
			want: "5353:5353/udp",
		},
		{
			name: "empty protocol treated as tcp",
			spec: model.PortSpec{ContainerPort: 80, HostPort: 80},
			want: "80:80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, composePortEntry(tt.spec))
		})
	}
}

// TestGenerateComposeOverride verifies that every service is stamped with
// the full label set and that the output carries the generated-file header.
func TestGenerateComposeOverride(t *testing.T) {
	labels := map[string]string{
		"spate.managed-by": "spate",
		"spate.name":       "compose-app",
	}

	data, err := GenerateComposeOverride("compose-app", []string{"db", "app"}, labels)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Generated by spate")

	var override struct {
		Name     string `yaml:"name"`
		Services map[string]struct {
			Labels map[string]string `yaml:"labels"`
		} `yaml:"services"`
	}
	require.NoError(t, yaml.Unmarshal(data, &override))

	assert.Equal(t, "compose-app", override.Name)
	require.Len(t, override.Services, 2)
	for _, svc := range []string{"app", "db"} {
		require.Contains(t, override.Services, svc)
		assert.Equal(t, labels, override.Services[svc].Labels)
	}
}

// TestGenerateComposeOverride_NoServices verifies the empty-service error.
func TestGenerateComposeOverride_NoServices(t *testing.T) {
	_, err := GenerateComposeOverride("x", nil, map[string]string{"spate.name": "x"})
	require.Error(t, err)
}

// TestExportCompose_RejectsNonImagePatterns verifies that dockerfile and
// compose patterns are refused with ExitConfigInvalid.
func TestExportCompose_RejectsNonImagePatterns(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawDevContainer
	}{
		{
			name: "dockerfile pattern",
			raw:  &RawDevContainer{Name: "b", Build: &BuildConfig{Dockerfile: "Dockerfile"}},
		},
		{
			name: "compose pattern",
			raw:  &RawDevContainer{Name: "c", DockerComposeFile: "docker-compose.yml", Service: "app"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExportCompose(tt.raw, "x")
			require.Error(t, err)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitConfigInvalid, cliErr.Code)
		})
	}
}

package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/spate/internal/model"
)

// writeFixtureConfig creates a minimal devcontainer.json inside a temp
// project directory and returns the project path.
func writeFixtureConfig(t *testing.T, dirName string) string {
	t.Helper()

	projectDir := filepath.Join(t.TempDir(), dirName)
	configDir := filepath.Join(projectDir, ".devcontainer")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	config := []byte(`{"name": "test", "image": "node:20"}`)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "devcontainer.json"), config, 0o644))

	return projectDir
}

// TestResolve verifies path resolution, name derivation, and config
// discovery for a project with a .devcontainer directory.
func TestResolve(t *testing.T) {
	projectDir := writeFixtureConfig(t, "My Rust_Project")

	ws, err := Resolve(projectDir)
	require.NoError(t, err)

	assert.Equal(t, projectDir, ws.Path)
	assert.Equal(t, "my-rust-project", ws.Name)
	assert.Equal(t, filepath.Join(projectDir, ".devcontainer", "devcontainer.json"), ws.ConfigPath)

	// The derived name must satisfy environment name validation.
	assert.NoError(t, model.ValidateName(ws.Name))
}

// TestResolve_NoConfig verifies that a directory without devcontainer.json
// still resolves, with ConfigPath left empty, and that RequireConfig then
// returns ExitConfigNotFound.
func TestResolve_NoConfig(t *testing.T) {
	projectDir := t.TempDir()

	ws, err := Resolve(projectDir)
	require.NoError(t, err)
	assert.Empty(t, ws.ConfigPath)

	_, err = ws.RequireConfig()
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigNotFound, cliErr.Code)
}

// TestResolve_Missing verifies the error for a nonexistent directory.
func TestResolve_Missing(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
}

// TestResolve_NotADirectory verifies that a file path is rejected.
func TestResolve_NotADirectory(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))

	_, err := Resolve(filePath)
	assert.Error(t, err)
}

// TestLoadConfig verifies the parse-through-workspace convenience path.
func TestLoadConfig(t *testing.T) {
	projectDir := writeFixtureConfig(t, "app")

	ws, err := Resolve(projectDir)
	require.NoError(t, err)

	raw, err := ws.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "node:20", raw.Image)
}

// TestDeriveName covers sanitization edge cases.
func TestDeriveName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/home/dev/my-project", want: "my-project"},
		{path: "/home/dev/My Project", want: "my-project"},
		{path: "/home/dev/api_v2", want: "api-v2"},
		{path: "/home/dev/--weird--", want: "weird"},
		{path: "/home/dev/データ", want: "workspace"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := DeriveName(tt.path)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, model.ValidateName(got))
		})
	}
}

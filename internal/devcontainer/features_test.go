package devcontainer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFeatureRefs_RustWorkspace verifies feature normalization against the
// rust-workspace fixture: exactly two features, sorted by identifier, with
// options preserved verbatim.
func TestFeatureRefs_RustWorkspace(t *testing.T) {
	path := filepath.Join(testdataPath(t, "rust-workspace"), ".devcontainer", "devcontainer.json")
	raw, err := LoadConfig(path)
	require.NoError(t, err)

	refs, err := raw.FeatureRefs()
	require.NoError(t, err)
	require.Len(t, refs, 2)

	// Sorted by ID: git before github-cli.
	assert.Equal(t, "ghcr.io/devcontainers/features/git:1", refs[0].ID)
	assert.Equal(t, "ghcr.io/devcontainers/features/git", refs[0].Registry)
	assert.Equal(t, "1", refs[0].Version)
	assert.Equal(t, "latest", refs[0].Options["version"])
	assert.Equal(t, false, refs[0].Options["ppa"])

	assert.Equal(t, "ghcr.io/devcontainers/features/github-cli:1", refs[1].ID)
	assert.Nil(t, refs[1].Options, "empty options object should normalize to nil")
}

// TestFeatureRefs_ValueShapes covers the three value shapes the schema
// allows: options object, bare version string, and boolean true.
func TestFeatureRefs_ValueShapes(t *testing.T) {
	raw := &RawDevContainer{
		Features: map[string]interface{}{
			"ghcr.io/devcontainers/features/node:1": map[string]interface{}{
				"version": "20",
			},
			"ghcr.io/devcontainers/features/go": "1.22",
			"ghcr.io/devcontainers/features/docker-in-docker:2": true,
		},
	}

	refs, err := raw.FeatureRefs()
	require.NoError(t, err)
	require.Len(t, refs, 3)

	// Sorted: docker-in-docker, go, node.
	assert.Equal(t, "ghcr.io/devcontainers/features/docker-in-docker:2", refs[0].ID)
	assert.Nil(t, refs[0].Options)

	assert.Equal(t, "ghcr.io/devcontainers/features/go", refs[1].ID)
	assert.Equal(t, "latest", refs[1].Version, "untagged ID defaults to latest")
	assert.Equal(t, map[string]interface{}{"version": "1.22"}, refs[1].Options)

	assert.Equal(t, "20", refs[2].Options["version"])
	assert.Equal(t, "1", refs[2].Version)
}

// TestFeatureRefs_RegistryWithPort verifies that a colon belonging to a
// registry host port is not mistaken for a version tag.
func TestFeatureRefs_RegistryWithPort(t *testing.T) {
	raw := &RawDevContainer{
		Features: map[string]interface{}{
			"localhost:5000/features/custom": true,
		},
	}

	refs, err := raw.FeatureRefs()
	require.NoError(t, err)
	require.Len(t, refs, 1)

	assert.Equal(t, "localhost:5000/features/custom", refs[0].Registry)
	assert.Equal(t, "latest", refs[0].Version)
}

// TestFeatureRefs_RejectsFalse verifies that a false feature value is an
// error, since the schema gives it no meaning.
func TestFeatureRefs_RejectsFalse(t *testing.T) {
	raw := &RawDevContainer{
		Features: map[string]interface{}{
			"ghcr.io/devcontainers/features/git:1": false,
		},
	}

	_, err := raw.FeatureRefs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghcr.io/devcontainers/features/git:1")
}

// TestVSCodeCustomizations verifies the customizations.vscode accessors on
// the fixture and their nil-safety on an empty config.
func TestVSCodeCustomizations(t *testing.T) {
	path := filepath.Join(testdataPath(t, "rust-workspace"), ".devcontainer", "devcontainer.json")
	raw, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"rust-lang.rust-analyzer", "tamasfe.even-better-toml"}, raw.VSCodeExtensions())

	settings := raw.VSCodeSettings()
	require.NotNil(t, settings)
	assert.Equal(t, "clippy", settings["rust-analyzer.check.command"])

	empty := &RawDevContainer{}
	assert.Nil(t, empty.VSCodeExtensions())
	assert.Nil(t, empty.VSCodeSettings())
}

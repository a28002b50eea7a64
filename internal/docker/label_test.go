package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/spate/internal/model"
)

// testEnv returns a fully populated Environment for label round-trip tests.
func testEnv() *model.Environment {
	return &model.Environment{
		Name:          "rust-workspace",
		ID:            "4f9d2a1c-7e35-4b6f-9a0e-1c2d3e4f5a6b",
		WorkspacePath: "/home/dev/rust-workspace",
		Image:         "mcr.microsoft.com/devcontainers/rust:1-1-bullseye",
		ConfigPattern: model.PatternImage,
		Ports: []model.PortSpec{
			{ContainerPort: 8000, HostPort: 8000, Protocol: "tcp"},
		},
		CreatedAt: time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
	}
}

// TestBuildLabels verifies that every metadata field of an Environment is
// encoded into the label map.
func TestBuildLabels(t *testing.T) {
	labels := BuildLabels(testEnv())

	assert.Equal(t, "spate", labels[LabelManagedBy])
	assert.Equal(t, "rust-workspace", labels[LabelName])
	assert.Equal(t, "4f9d2a1c-7e35-4b6f-9a0e-1c2d3e4f5a6b", labels[LabelEnvID])
	assert.Equal(t, "/home/dev/rust-workspace", labels[LabelWorkspacePath])
	assert.Equal(t, "mcr.microsoft.com/devcontainers/rust:1-1-bullseye", labels[LabelImage])
	assert.Equal(t, "image", labels[LabelConfigPattern])
	assert.Equal(t, "2026-08-01T10:30:00Z", labels[LabelCreatedAt])
	assert.Equal(t, "8000", labels["spate.port.8000"])
}

// TestParseLabels_RoundTrip verifies that ParseLabels is the exact inverse
// of BuildLabels for all persisted fields.
func TestParseLabels_RoundTrip(t *testing.T) {
	original := testEnv()

	parsed, err := ParseLabels(BuildLabels(original))
	require.NoError(t, err)

	assert.Equal(t, original.Name, parsed.Name)
	assert.Equal(t, original.ID, parsed.ID)
	assert.Equal(t, original.WorkspacePath, parsed.WorkspacePath)
	assert.Equal(t, original.Image, parsed.Image)
	assert.Equal(t, original.ConfigPattern, parsed.ConfigPattern)
	assert.Equal(t, original.Ports, parsed.Ports)
	assert.True(t, original.CreatedAt.Equal(parsed.CreatedAt))
}

// TestParseLabels_MissingRequired verifies that all missing labels are
// named in the error, not just the first one.
func TestParseLabels_MissingRequired(t *testing.T) {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelName:      "incomplete",
	}

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LabelEnvID)
	assert.Contains(t, err.Error(), LabelWorkspacePath)
	assert.Contains(t, err.Error(), LabelConfigPattern)
	assert.Contains(t, err.Error(), LabelCreatedAt)
}

// TestParseLabels_WrongManagedBy verifies rejection of containers managed
// by another tool that happens to carry our label keys.
func TestParseLabels_WrongManagedBy(t *testing.T) {
	labels := BuildLabels(testEnv())
	labels[LabelManagedBy] = "other-tool"

	_, err := ParseLabels(labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "other-tool")
}

// TestParseLabels_BadTimestamp verifies the created-at parse error path.
func TestParseLabels_BadTimestamp(t *testing.T) {
	labels := BuildLabels(testEnv())
	labels[LabelCreatedAt] = "yesterday"

	_, err := ParseLabels(labels)
	assert.Error(t, err)
}

// TestParseLabels_BadPattern verifies the config-pattern parse error path.
func TestParseLabels_BadPattern(t *testing.T) {
	labels := BuildLabels(testEnv())
	labels[LabelConfigPattern] = "kubernetes"

	_, err := ParseLabels(labels)
	assert.Error(t, err)
}

// TestPortLabel verifies the per-port key format.
func TestPortLabel(t *testing.T) {
	assert.Equal(t, "spate.port.8000", PortLabel(8000))
}

// TestParsePortLabels verifies extraction of multiple port labels mixed
// with unrelated labels.
func TestParsePortLabels(t *testing.T) {
	labels := map[string]string{
		"spate.port.3000":            "13000",
		"spate.port.8080":            "8080",
		"com.docker.compose.service": "app",
		LabelName:                    "x",
	}

	ports, err := ParsePortLabels(labels)
	require.NoError(t, err)
	require.Len(t, ports, 2)

	byContainer := map[int]int{}
	for _, p := range ports {
		byContainer[p.ContainerPort] = p.HostPort
		assert.Equal(t, "tcp", p.Protocol)
	}
	assert.Equal(t, 13000, byContainer[3000])
	assert.Equal(t, 8080, byContainer[8080])
}

// TestParsePortLabels_SortedByContainerPort verifies that the result is
// ordered by container port regardless of map iteration order.
func TestParsePortLabels_SortedByContainerPort(t *testing.T) {
	labels := map[string]string{
		"spate.port.9090": "19090",
		"spate.port.80":   "8080",
		"spate.port.3000": "3000",
	}

	ports, err := ParsePortLabels(labels)
	require.NoError(t, err)
	require.Len(t, ports, 3)

	assert.Equal(t, 80, ports[0].ContainerPort)
	assert.Equal(t, 3000, ports[1].ContainerPort)
	assert.Equal(t, 9090, ports[2].ContainerPort)
}

// TestParsePortLabels_Malformed covers bad key suffixes and bad values.
func TestParsePortLabels_Malformed(t *testing.T) {
	_, err := ParsePortLabels(map[string]string{"spate.port.web": "8080"})
	assert.Error(t, err, "non-numeric container port should fail")

	_, err = ParsePortLabels(map[string]string{"spate.port.8080": "many"})
	assert.Error(t, err, "non-numeric host port should fail")
}

// TestParsePortLabels_Empty verifies that a label map without port entries
// yields an empty (non-nil) slice.
func TestParsePortLabels_Empty(t *testing.T) {
	ports, err := ParsePortLabels(map[string]string{LabelName: "x"})
	require.NoError(t, err)
	assert.NotNil(t, ports)
	assert.Empty(t, ports)
}

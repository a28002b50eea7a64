package docker

import (
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/spate/internal/model"
)

// TestContainerName verifies the name format and env ID truncation.
func TestContainerName(t *testing.T) {
	env := &model.Environment{
		Name: "rust-workspace",
		ID:   "4f9d2a1c-7e35-4b6f-9a0e-1c2d3e4f5a6b",
	}
	assert.Equal(t, "spate-rust-workspace-4f9d2a1c", ContainerName(env))

	short := &model.Environment{Name: "api", ID: "ab12"}
	assert.Equal(t, "spate-api-ab12", ContainerName(short))
}

// TestBuildPortMaps verifies translation of PortSpecs into the Docker
// API's exposed-port set and host binding map.
func TestBuildPortMaps(t *testing.T) {
	ports := []model.PortSpec{
		{ContainerPort: 8000, HostPort: 18000, Protocol: "tcp"},
		{ContainerPort: 5353, Protocol: "udp"},
	}

	exposed, bindings, err := buildPortMaps(ports)
	require.NoError(t, err)

	tcpPort := nat.Port("8000/tcp")
	udpPort := nat.Port("5353/udp")

	assert.Contains(t, exposed, tcpPort)
	assert.Contains(t, exposed, udpPort)

	require.Len(t, bindings[tcpPort], 1)
	assert.Equal(t, "0.0.0.0", bindings[tcpPort][0].HostIP)
	assert.Equal(t, "18000", bindings[tcpPort][0].HostPort)

	// Zero host port falls back to the container port.
	require.Len(t, bindings[udpPort], 1)
	assert.Equal(t, "5353", bindings[udpPort][0].HostPort)
}

// TestBuildPortMaps_InvalidProtocol verifies the error path for an
// unsupported protocol.
func TestBuildPortMaps_InvalidProtocol(t *testing.T) {
	_, _, err := buildPortMaps([]model.PortSpec{
		{ContainerPort: 80, Protocol: "icmp"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "icmp")
}

// TestBuildPortMaps_EmptyProtocolDefaultsToTCP verifies that a spec with
// no protocol publishes as TCP.
func TestBuildPortMaps_EmptyProtocolDefaultsToTCP(t *testing.T) {
	exposed, bindings, err := buildPortMaps([]model.PortSpec{
		{ContainerPort: 9000, HostPort: 9000},
	})
	require.NoError(t, err)

	tcpPort := nat.Port("9000/tcp")
	assert.Contains(t, exposed, tcpPort)
	require.Len(t, bindings[tcpPort], 1)
	assert.Equal(t, "9000", bindings[tcpPort][0].HostPort)
}

// TestBuildMounts verifies that the workspace bind mount comes first and
// devcontainer.json mounts follow with their attributes intact.
func TestBuildMounts(t *testing.T) {
	specs := []model.MountSpec{
		{Source: "cargo-cache", Target: "/usr/local/cargo", Type: "volume"},
		{Source: "/host/certs", Target: "/etc/certs", Type: "bind", ReadOnly: true},
	}

	mounts := buildMounts("/home/dev/project", "/workspaces/project", specs)
	require.Len(t, mounts, 3)

	assert.Equal(t, "bind", string(mounts[0].Type))
	assert.Equal(t, "/home/dev/project", mounts[0].Source)
	assert.Equal(t, "/workspaces/project", mounts[0].Target)

	assert.Equal(t, "volume", string(mounts[1].Type))
	assert.Equal(t, "cargo-cache", mounts[1].Source)

	assert.True(t, mounts[2].ReadOnly)
}

// TestGroupByEnvironment verifies grouping by the spate.name label and
// skipping of unlabeled containers.
func TestGroupByEnvironment(t *testing.T) {
	containers := []model.ContainerInfo{
		{ContainerID: "a", Labels: map[string]string{LabelName: "env-one"}},
		{ContainerID: "b", Labels: map[string]string{LabelName: "env-two"}},
		{ContainerID: "c", Labels: map[string]string{LabelName: "env-one"}},
		{ContainerID: "d", Labels: map[string]string{}},
	}

	groups := GroupByEnvironment(containers)

	require.Len(t, groups, 2)
	assert.Len(t, groups["env-one"], 2)
	assert.Len(t, groups["env-two"], 1)
}

// TestBuildEnvironment verifies reconstruction of an Environment from a
// labeled container group, including status derivation.
func TestBuildEnvironment(t *testing.T) {
	labels := BuildLabels(&model.Environment{
		Name:          "api",
		ID:            "abc123",
		WorkspacePath: "/home/dev/api",
		Image:         "node:20",
		ConfigPattern: model.PatternImage,
		CreatedAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})

	containers := []model.ContainerInfo{
		{ContainerID: "c1", Status: "exited", Labels: labels},
		{ContainerID: "c2", Status: "running", Labels: labels},
	}

	env, err := BuildEnvironment("api", containers)
	require.NoError(t, err)

	assert.Equal(t, "api", env.Name)
	assert.Equal(t, model.StatusRunning, env.Status, "one running container makes the environment running")
	assert.Len(t, env.Containers, 2)
}

// TestBuildEnvironment_AllStopped verifies the stopped aggregate status.
func TestBuildEnvironment_AllStopped(t *testing.T) {
	labels := BuildLabels(&model.Environment{
		Name:          "api",
		ID:            "abc123",
		WorkspacePath: "/home/dev/api",
		Image:         "node:20",
		ConfigPattern: model.PatternImage,
		CreatedAt:     time.Now(),
	})

	env, err := BuildEnvironment("api", []model.ContainerInfo{
		{ContainerID: "c1", Status: "exited", Labels: labels},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusStopped, env.Status)
}

// TestBuildEnvironment_Empty verifies the guard against an empty group.
func TestBuildEnvironment_Empty(t *testing.T) {
	_, err := BuildEnvironment("ghost", nil)
	assert.Error(t, err)
}

// TestBuildEnvironment_BadLabels verifies that incomplete labels surface
// as an error naming the environment.
func TestBuildEnvironment_BadLabels(t *testing.T) {
	_, err := BuildEnvironment("broken", []model.ContainerInfo{
		{ContainerID: "c1", Labels: map[string]string{LabelName: "broken"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

// TestBuildComposeArgs verifies -f flag ordering, which determines Compose
// override precedence.
func TestBuildComposeArgs(t *testing.T) {
	args := buildComposeArgs([]string{"docker-compose.yml", "docker-compose.dev.yml"})
	assert.Equal(t, []string{
		"compose",
		"-f", "docker-compose.yml",
		"-f", "docker-compose.dev.yml",
	}, args)
}

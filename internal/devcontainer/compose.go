// compose.go handles the Compose YAML spate generates: full exports of
// image-based devcontainer configurations, and label-injection overrides
// for compose-pattern environments.
//
// The export covers the image pattern only: a devcontainer.json that names a
// prebuilt image, plus its mounts, ports, and environment variables, maps
// cleanly onto a single Compose service. Dockerfile and Compose patterns are
// rejected: the former has no stable image reference to export, and the
// latter already IS a Compose project.
package devcontainer

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/spate/internal/model"
)

// composeProject represents the structure of the exported docker-compose
// YAML file. This struct is used for YAML serialization via the yaml.v3
// library.
type composeProject struct {
	// Name sets the Compose project name. Docker Compose uses this to
	// prefix container names, network names, and volume names.
	Name string `yaml:"name"`

	// Services maps service names to their configurations. An exported
	// devcontainer always produces exactly one service.
	Services map[string]composeService `yaml:"services"`

	// Volumes declares the named volumes referenced by the service's
	// volume mounts. Compose requires top-level declarations for them.
	Volumes map[string]struct{} `yaml:"volumes,omitempty"`
}

// composeService represents a single exported Compose service.
type composeService struct {
	// Image is the container image reference from the devcontainer.json
	// image field.
	Image string `yaml:"image"`

	// Volumes lists mounts in Compose short syntax
	// ("source:target" or "source:target:ro").
	Volumes []string `yaml:"volumes,omitempty"`

	// Ports lists port mappings in "hostPort:containerPort" format.
	Ports []string `yaml:"ports,omitempty"`

	// Environment contains the containerEnv variables.
	Environment map[string]string `yaml:"environment,omitempty"`

	// Command keeps the container alive, matching the behavior of
	// devcontainer tooling which overrides the image entrypoint.
	Command []string `yaml:"command,omitempty"`
}

// ExportCompose converts an image-pattern devcontainer configuration into
// docker-compose YAML.
//
// The service name defaults to "devcontainer" unless the configuration has
// a name, in which case the (unsanitized) name becomes the Compose project
// name while the service stays "devcontainer" for predictable
// `docker compose exec` usage.
//
// Returns the YAML bytes with a header comment, or an error if the
// configuration does not use the image pattern or fails to normalize.
func ExportCompose(raw *RawDevContainer, projectName string) ([]byte, error) {
	if pattern := DetectPattern(raw); pattern != model.PatternImage {
		return nil, model.NewCLIError(model.ExitConfigInvalid,
			fmt.Sprintf("compose export requires an image-based configuration, got pattern %q", pattern))
	}

	mounts, err := raw.MountSpecs()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigInvalid, "invalid mounts in devcontainer.json", err)
	}

	svc := composeService{
		Image: raw.Image,
		// Keep the container running the same way devcontainer tooling
		// does when no explicit command is given.
		Command: []string{"sleep", "infinity"},
	}

	// Translate mounts to Compose short syntax. Named volumes are also
	// collected for the top-level volumes declaration.
	namedVolumes := make(map[string]struct{})
	for _, m := range mounts {
		entry := fmt.Sprintf("%s:%s", m.Source, m.Target)
		if m.Type == "tmpfs" {
			// tmpfs has no source in short syntax; it needs the long
			// form, which we approximate with a target-only entry.
			entry = m.Target
		}
		if m.ReadOnly {
			entry += ":ro"
		}
		svc.Volumes = append(svc.Volumes, entry)
		if m.Type == "volume" {
			namedVolumes[m.Source] = struct{}{}
		}
	}

	// Translate port specifications. Sorted for deterministic output.
	ports := ExtractPorts(raw)
	sort.Slice(ports, func(i, j int) bool { return ports[i].ContainerPort < ports[j].ContainerPort })
	for _, p := range ports {
		svc.Ports = append(svc.Ports, composePortEntry(p))
	}

	if len(raw.ContainerEnv) > 0 {
		svc.Environment = raw.ContainerEnv
	}

	project := composeProject{
		Name:     projectName,
		Services: map[string]composeService{"devcontainer": svc},
	}
	if len(namedVolumes) > 0 {
		project.Volumes = namedVolumes
	}

	yamlBytes, err := yaml.Marshal(&project)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize compose YAML: %w", err)
	}

	// Prepend a header comment marking the file as generated so a later
	// export can safely overwrite it.
	header := fmt.Sprintf(
		"# Generated by spate from devcontainer.json for project %q\n# Re-run `spate export compose` to regenerate\n",
		projectName,
	)

	return []byte(header + string(yamlBytes)), nil
}

// composePortEntry renders one port spec in Compose short syntax. A zero
// host port falls back to the container port, and non-TCP protocols get
// the "/proto" suffix; without it Compose would publish the port as TCP.
func composePortEntry(p model.PortSpec) string {
	host := p.HostPort
	if host == 0 {
		host = p.ContainerPort
	}
	entry := fmt.Sprintf("%d:%d", host, p.ContainerPort)
	if p.Protocol != "" && p.Protocol != "tcp" {
		entry += "/" + p.Protocol
	}
	return entry
}

// composeOverride is the structure of the label-injection override file
// merged on top of the user's compose files when a compose-pattern
// environment is started.
type composeOverride struct {
	Name     string                            `yaml:"name"`
	Services map[string]composeServiceOverride `yaml:"services"`
}

// composeServiceOverride carries only the fields the override adds.
type composeServiceOverride struct {
	Labels map[string]string `yaml:"labels"`
}

// GenerateComposeOverride renders an override YAML document that stamps
// every listed service with the given labels. Compose merges it after the
// user's own files, so the running containers become discoverable through
// the same label queries as image-pattern environments.
func GenerateComposeOverride(envName string, services []string, labels map[string]string) ([]byte, error) {
	if len(services) == 0 {
		return nil, fmt.Errorf("compose override needs at least one service")
	}

	override := composeOverride{
		Name:     envName,
		Services: make(map[string]composeServiceOverride, len(services)),
	}

	// Sorted for reproducible output.
	sorted := make([]string, len(services))
	copy(sorted, services)
	sort.Strings(sorted)

	for _, svc := range sorted {
		override.Services[svc] = composeServiceOverride{Labels: labels}
	}

	yamlBytes, err := yaml.Marshal(&override)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize compose override YAML: %w", err)
	}

	header := fmt.Sprintf(
		"# Generated by spate for environment %q\n# DO NOT EDIT: regenerated on every `spate up`\n",
		envName,
	)
	return []byte(header + string(yamlBytes)), nil
}

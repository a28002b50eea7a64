package devcontainer

import (
	"fmt"
	"strings"

	"github.com/mmr-tortoise/spate/internal/model"
)

// MountSpecs normalizes the "mounts" field into MountSpec values.
//
// The devcontainer.json schema allows each entry to be written two ways:
//
//	"source=cargo-cache,target=/usr/local/cargo,type=volume"
//
//	{"source": "cargo-cache", "target": "/usr/local/cargo", "type": "volume"}
//
// Both forms normalize to the same MountSpec. Entries of any other JSON
// type are rejected.
func (r *RawDevContainer) MountSpecs() ([]model.MountSpec, error) {
	if len(r.Mounts) == 0 {
		return nil, nil
	}

	mounts := make([]model.MountSpec, 0, len(r.Mounts))
	for i, entry := range r.Mounts {
		var (
			spec *model.MountSpec
			err  error
		)
		switch v := entry.(type) {
		case string:
			spec, err = ParseMountString(v)
		case map[string]interface{}:
			spec, err = parseMountObject(v)
		default:
			err = fmt.Errorf("mount must be a string or object, got %T", entry)
		}
		if err != nil {
			return nil, fmt.Errorf("mounts[%d]: %w", i, err)
		}
		mounts = append(mounts, *spec)
	}
	return mounts, nil
}

// ParseMountString parses the comma-separated key=value mount form.
// Recognized keys: source (alias: src), target (alias: dst, destination),
// type, readonly/ro (valueless or boolean). Unknown keys are rejected so
// typos surface during validation instead of at container creation.
func ParseMountString(s string) (*model.MountSpec, error) {
	spec := &model.MountSpec{}

	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		key, value, hasValue := strings.Cut(token, "=")
		switch strings.ToLower(key) {
		case "source", "src":
			spec.Source = value
		case "target", "dst", "destination":
			spec.Target = value
		case "type":
			spec.Type = value
		case "readonly", "ro":
			// Valueless "readonly" and "readonly=true" both enable it.
			spec.ReadOnly = !hasValue || strings.EqualFold(value, "true")
		default:
			return nil, fmt.Errorf("unknown mount key %q in %q", key, s)
		}
	}

	// Docker treats untyped --mount flags as volumes; the devcontainer
	// string form inherits that default.
	if spec.Type == "" {
		spec.Type = "volume"
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseMountObject parses the JSON object mount form.
func parseMountObject(obj map[string]interface{}) (*model.MountSpec, error) {
	spec := &model.MountSpec{}

	if v, ok := obj["source"].(string); ok {
		spec.Source = v
	}
	if v, ok := obj["target"].(string); ok {
		spec.Target = v
	}
	if v, ok := obj["type"].(string); ok {
		spec.Type = v
	}
	if v, ok := obj["readOnly"].(bool); ok {
		spec.ReadOnly = v
	}

	if spec.Type == "" {
		spec.Type = "volume"
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

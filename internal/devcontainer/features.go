package devcontainer

import (
	"fmt"
	"sort"

	"github.com/mmr-tortoise/spate/internal/model"
)

// FeatureRefs normalizes the "features" mapping into FeatureRef values,
// sorted by feature identifier for deterministic output.
//
// The schema allows each feature's value to be:
//   - an options object: {"version": "latest", "profile": "default"}
//   - a bare version string: "1.2.0" (shorthand for {"version": "1.2.0"})
//   - a boolean: true (enable with default options)
//
// spate never resolves or installs features; this is a parse-only view.
func (r *RawDevContainer) FeatureRefs() ([]model.FeatureRef, error) {
	if len(r.Features) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(r.Features))
	for id := range r.Features {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	refs := make([]model.FeatureRef, 0, len(ids))
	for _, id := range ids {
		options, err := featureOptions(r.Features[id])
		if err != nil {
			return nil, fmt.Errorf("features[%q]: %w", id, err)
		}
		refs = append(refs, model.ParseFeatureRef(id, options))
	}
	return refs, nil
}

// featureOptions coerces the three allowed value shapes into an options map.
func featureOptions(value interface{}) (map[string]interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	case string:
		return map[string]interface{}{"version": v}, nil
	case bool:
		if !v {
			return nil, fmt.Errorf("feature value false has no defined meaning")
		}
		return nil, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("feature value must be an object, string, or boolean, got %T", value)
	}
}

// VSCodeExtensions returns the recommended extension identifiers from
// customizations.vscode, or nil when absent.
func (r *RawDevContainer) VSCodeExtensions() []string {
	if r.Customizations == nil || r.Customizations.VSCode == nil {
		return nil
	}
	return r.Customizations.VSCode.Extensions
}

// VSCodeSettings returns the editor setting overrides from
// customizations.vscode, or nil when absent.
func (r *RawDevContainer) VSCodeSettings() map[string]interface{} {
	if r.Customizations == nil || r.Customizations.VSCode == nil {
		return nil
	}
	return r.Customizations.VSCode.Settings
}

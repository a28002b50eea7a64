// validate.go provides validation functions that check a devcontainer.json
// document against the published schema before spate acts on it.
//
// Validation is structural: it catches conflicts and omissions that would
// make the document unusable by any consuming tool (VS Code, the Dev
// Container CLI, spate itself). It never rejects unknown fields, because
// the schema is open-ended by design.
package devcontainer

import (
	"fmt"
	"path/filepath"
)

// ValidationError represents a specific validation failure in a
// devcontainer.json file.
type ValidationError struct {
	// Field is the JSON field path that failed validation
	// (e.g., "build.dockerfile").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("devcontainer.json validation error: %s: %s", e.Field, e.Message)
}

// ValidateConfig performs schema-conformance checks on a parsed
// devcontainer.json configuration. It returns a list of validation errors
// (empty list = valid configuration).
//
// Checks performed:
//   - name should be present for container identification
//   - image/build/dockerComposeFile pattern consistency
//   - service must be set when dockerComposeFile is present
//   - build dockerfile/context paths must be relative
//   - mounts entries must normalize (string or object form)
//   - features values must be objects, version strings, or true
//   - forwardPorts/appPort entries must be valid port specifications
func ValidateConfig(raw *RawDevContainer) []ValidationError {
	var errs []ValidationError

	// Check 1: Name should be present for container identification.
	if raw.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name field is recommended for container identification",
		})
	}

	// Check 2: Pattern consistency. Having both image and build is allowed
	// by the schema (build takes precedence), but dockerComposeFile with
	// either image or build is a conflict.
	hasImage := raw.Image != ""
	hasBuild := raw.Build != nil
	hasCompose := raw.DockerComposeFile != nil

	if hasCompose && (hasImage || hasBuild) {
		errs = append(errs, ValidationError{
			Field:   "dockerComposeFile",
			Message: "dockerComposeFile should not be combined with image or build fields",
		})
	}
	if !hasImage && !hasBuild && !hasCompose {
		errs = append(errs, ValidationError{
			Field:   "image",
			Message: "one of image, build, or dockerComposeFile must be specified",
		})
	}

	// Check 3: When dockerComposeFile is present, service must be specified.
	if hasCompose && raw.Service == "" {
		errs = append(errs, ValidationError{
			Field:   "service",
			Message: "service field is required when dockerComposeFile is specified",
		})
	}

	// Check 4: Build path validation. Paths are resolved relative to the
	// .devcontainer directory, so absolute paths are not portable.
	if raw.Build != nil {
		if raw.Build.Dockerfile != "" && filepath.IsAbs(raw.Build.Dockerfile) {
			errs = append(errs, ValidationError{
				Field:   "build.dockerfile",
				Message: "dockerfile path should be relative to the .devcontainer directory",
			})
		}
		if raw.Build.Context != "" && filepath.IsAbs(raw.Build.Context) {
			errs = append(errs, ValidationError{
				Field:   "build.context",
				Message: "context path should be relative to the .devcontainer directory",
			})
		}
	}

	// Check 5: Every mounts entry must normalize.
	if _, err := raw.MountSpecs(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "mounts",
			Message: err.Error(),
		})
	}

	// Check 6: Every features value must normalize.
	if _, err := raw.FeatureRefs(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "features",
			Message: err.Error(),
		})
	}

	// Check 7: Port specifications must be in range and well-formed.
	for _, ps := range ExtractPorts(raw) {
		p := ps
		if err := p.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Field:   "forwardPorts",
				Message: err.Error(),
			})
		}
	}

	return errs
}

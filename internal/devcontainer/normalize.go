// normalize.go converts devcontainer.json documents from their authored
// JSONC form into canonical JSON suitable for machine consumption.
//
// Normalization works on a generic map[string]interface{} (instead of the
// typed RawDevContainer struct) so that unknown fields from the original
// document are preserved in the output. The RawDevContainer struct only
// captures fields spate cares about, so marshaling it back would lose
// everything else.
package devcontainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Normalize takes the raw bytes of a devcontainer.json file (with JSONC
// comments and trailing commas), strips the JSONC extensions, and returns
// the document re-serialized as formatted standard JSON.
//
// The function works in three phases:
//  1. Strip JSONC comments and trailing commas
//  2. Parse into a generic map, preserving every field of the original
//  3. Re-serialize with 2-space indentation and a trailing newline
//
// The returned bytes parse identically to the input: normalization changes
// representation (comments removed, whitespace canonicalized, object keys
// sorted), never content.
func Normalize(rawJSON []byte) ([]byte, error) {
	// Phase 1: Strip JSONC comments and trailing commas.
	cleanJSON := jsonc.ToJSON(rawJSON)

	// Phase 2: Parse into a generic map. Using map[string]interface{}
	// preserves ALL fields from the original JSON, not just the ones
	// defined in RawDevContainer.
	var configMap map[string]interface{}
	if err := json.Unmarshal(cleanJSON, &configMap); err != nil {
		return nil, fmt.Errorf("failed to parse devcontainer.json for normalization: %w", err)
	}

	// Phase 3: Re-serialize with 2-space indentation. encoding/json sorts
	// map keys, which gives deterministic output regardless of the key
	// order in the source document.
	result, err := json.MarshalIndent(configMap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize normalized devcontainer.json: %w", err)
	}

	// Append a trailing newline for POSIX compliance (many editors and
	// linters expect text files to end with a newline).
	result = append(result, '\n')

	return result, nil
}

// NormalizeFile reads a devcontainer.json file from disk and returns its
// normalized form. It is a convenience wrapper around Normalize for CLI
// usage.
func NormalizeFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Normalize(data)
}

// WriteNormalized writes generated configuration bytes (normalized JSON
// or a compose override) to the specified output path, creating parent
// directories if they don't exist.
//
// The file is written with 0644 permissions (owner read/write, group/others
// read-only), which is the standard permission for non-executable config
// files.
func WriteNormalized(outputPath string, data []byte) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	return nil
}

// Package devcontainer handles parsing and analysis of devcontainer.json files.
//
// The devcontainer.json specification supports JSONC (JSON with Comments),
// so this package uses github.com/tidwall/jsonc to strip comments before
// parsing with the standard encoding/json library.
//
// Key responsibilities:
//   - Load and parse devcontainer.json (with JSONC support)
//   - Locate devcontainer.json in standard paths
//   - Normalize mounts (string and object forms), features, and
//     customizations.vscode into the typed domain model
//   - Detect the configuration pattern (image / dockerfile / compose)
//   - Extract port specifications from the port-related fields
//   - Validate the document against the published schema
//   - Round-trip the document through a generic map, preserving fields
//     this package does not explicitly model
//   - Export an image-pattern configuration as a Docker Compose document
//
// The source document is read-only input: no function in this package
// ever writes back to the loaded file.
package devcontainer

// Package model defines the domain types for the spate CLI.
//
// The types here are shared across all other internal packages: the
// normalized devcontainer entities (mounts, features, ports), the managed
// environment aggregate, and the CLIError type that carries process exit
// codes from domain code up to the command layer.
//
// Managed environment state is persisted exclusively via Docker container
// labels, so Environment values are transient representations reconstructed
// from Docker API queries at runtime.
package model

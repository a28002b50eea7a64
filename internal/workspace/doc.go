// Package workspace resolves project directories into the named workspaces
// that spate manages.
//
// A workspace is simply a project directory that contains (or will contain)
// a devcontainer.json. This package handles path resolution, environment
// name derivation, and locating the configuration file, keeping filesystem
// concerns out of the CLI and Docker layers.
package workspace

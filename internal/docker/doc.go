// Package docker wraps the Docker Engine SDK for managing the containers
// behind spate environments.
//
// It handles automatic socket detection across platforms, translates
// devcontainer.json mounts and ports into Docker API structures, and
// persists environment metadata entirely in container labels under the
// "spate." prefix. There is no state file; every environment can be
// reconstructed from a `docker inspect`.
package docker

package port

import (
	"fmt"
	"net"

	"github.com/mmr-tortoise/spate/internal/model"
)

// maxProbeSpan bounds how far above a requested port the resolver will
// scan for a free alternative.
const maxProbeSpan = 100

// Scanner checks whether specific ports are available on the host machine.
//
// It asks the operating system directly via net.Listen / net.ListenPacket,
// which is more reliable than parsing /proc/net/* and needs no elevated
// permissions. The struct is stateless; it exists as a receiver so that a
// bind address or timeout can be added later without breaking callers.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsAvailable checks whether a single port is free on the host machine.
//
// We bind to all interfaces (":port" rather than "127.0.0.1:port") because
// Docker publishes ports on 0.0.0.0 by default, so the check must cover the
// same address space. An unknown protocol is treated as unavailable.
func (s *Scanner) IsAvailable(port int, protocol string) bool {
	addr := fmt.Sprintf(":%d", port)

	switch protocol {
	case "tcp", "":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		return false
	}
}

// FirstAvailable scans [startPort, endPort] inclusive and returns the first
// free port for the given protocol. The scan is sequential from startPort
// upward, so the same free port is selected consistently across runs.
func (s *Scanner) FirstAvailable(startPort, endPort int, protocol string) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsAvailable(port, protocol) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available %s port found in range %d-%d", protocol, startPort, endPort)
}

// ResolveHostPorts fills in the host port for every PortSpec before the
// container is created.
//
// Resolution rules:
//   - HostPort set and free: kept as-is.
//   - HostPort set but taken: error. An explicit mapping is a contract the
//     resolver must not silently rewrite.
//   - HostPort zero: the container port is used when free, otherwise the
//     next free port above it (within maxProbeSpan).
//
// The input slice is not modified; a resolved copy is returned.
func (s *Scanner) ResolveHostPorts(specs []model.PortSpec) ([]model.PortSpec, error) {
	resolved := make([]model.PortSpec, len(specs))

	// Ports claimed earlier in this call are unavailable to later specs
	// even though nothing is listening on them yet.
	claimed := make(map[int]bool)
	free := func(port int, protocol string) bool {
		return !claimed[port] && s.IsAvailable(port, protocol)
	}

	for i, spec := range specs {
		resolved[i] = spec

		if spec.HostPort != 0 {
			if !free(spec.HostPort, spec.Protocol) {
				return nil, model.NewCLIError(model.ExitGeneralError,
					fmt.Sprintf("host port %d requested for container port %d is already in use", spec.HostPort, spec.ContainerPort))
			}
			claimed[spec.HostPort] = true
			continue
		}

		hostPort := spec.ContainerPort
		if !free(hostPort, spec.Protocol) {
			next, err := s.nextFree(spec.ContainerPort+1, spec.Protocol, claimed)
			if err != nil {
				return nil, model.WrapCLIError(model.ExitGeneralError,
					fmt.Sprintf("cannot publish container port %d", spec.ContainerPort), err)
			}
			hostPort = next
		}

		resolved[i].HostPort = hostPort
		claimed[hostPort] = true
	}

	return resolved, nil
}

// nextFree finds the first unclaimed free port at or above start, scanning
// at most maxProbeSpan ports and never past 65535.
func (s *Scanner) nextFree(start int, protocol string, claimed map[int]bool) (int, error) {
	end := start + maxProbeSpan
	if end > 65535 {
		end = 65535
	}
	cursor := start
	for cursor <= end {
		port, err := s.FirstAvailable(cursor, end, protocol)
		if err != nil {
			break
		}
		if !claimed[port] {
			return port, nil
		}
		cursor = port + 1
	}
	return 0, fmt.Errorf("no available %s port found in range %d-%d", protocol, start, end)
}

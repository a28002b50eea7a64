// Package port checks host port availability before spate publishes
// container ports.
//
// A devcontainer.json can request host ports that are already taken by
// other processes or environments. Rather than letting `docker start` fail
// with a bind error, spate probes ports up front with net.Listen /
// net.ListenPacket and resolves conflicts by scanning upward from the
// requested port.
package port

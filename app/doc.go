// Package app wires configuration, logging, telemetry and components into
// the streamgate service and runs it until a shutdown signal arrives.
//
// Startup happens in two phases. Infrastructure components (database and
// object store) start first; the core services and HTTP routes are then
// built on top of them, and the HTTP server is started last so it never
// accepts traffic before its routes exist.
package app

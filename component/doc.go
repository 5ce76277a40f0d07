// Package component defines the lifecycle contract shared by streamgate's
// infrastructure pieces (database, object store, HTTP server) and a registry
// that starts them in order and stops them in reverse.
package component

// Package server runs the gin HTTP server behind a ServeMux with h2c, so
// HTTP/2 clients can stream ranges without TLS. Middleware from
// server/middleware wraps the whole mux; endpoint registers the probe
// routes; the response helpers write the JSON envelopes every handler uses.
package server

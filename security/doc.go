// Package security builds the TLS configuration the HTTP server listens
// with.
//
//	cfg := security.TLSConfig{
//	    CertFile:     "/etc/streamgate/tls/cert.pem",
//	    KeyFile:      "/etc/streamgate/tls/key.pem",
//	    ClientCAFile: "/etc/streamgate/tls/clients.pem", // optional, enables mTLS
//	}
//	tlsConfig, err := cfg.Build()
package security

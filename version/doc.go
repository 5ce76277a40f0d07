// Package version exposes streamgate build information.
//
// Values are set at compile time via -ldflags and fall back to the VCS
// stamps the Go toolchain embeds:
//
//	go build -ldflags "-X github.com/kbukum/streamgate/version.Version=1.2.0"
package version

// Package config loads streamgate configuration from a YAML file, an
// optional .env file and the process environment.
//
// Environment variables override file values. Keys are matched by
// generating nested variants, so OBJECTSTORE_S3_BUCKET sets
// objectstore.s3.bucket. Extra names can be mapped onto config keys with
// WithEnvAliases.
//
// # Usage
//
//	var cfg app.Config
//	err := config.LoadConfig("streamgate", &cfg, config.WithConfigFile(path))
package config

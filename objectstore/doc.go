// Package objectstore defines the object storage backend streamgate writes
// videos to and streams them from.
//
// A Client supports multipart sessions (create, upload part, complete,
// abort), metadata probes and ranged reads. Providers register a factory
// in an init function and are selected by Config.Provider:
//
//	import _ "github.com/kbukum/streamgate/objectstore/s3"
//
//	client, err := objectstore.New(ctx, cfg, log)
//
// Supported providers: s3 (AWS S3 and S3-compatible services), local
// (filesystem) and memory (process-local, for development and tests).
package objectstore

package objectstore

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors providers translate backend-specific failures into.
var (
	ErrNotFound     = errors.New("objectstore: object not found")
	ErrNoSuchUpload = errors.New("objectstore: no such upload")
	ErrInvalidRange = errors.New("objectstore: invalid range")
	ErrInvalidKey   = errors.New("objectstore: invalid key")
	ErrInvalidPart  = errors.New("objectstore: invalid part list")
)

// Part identifies one uploaded part of a multipart session.
type Part struct {
	Number int32
	ETag   string
}

// ObjectInfo is the metadata returned by a head probe.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// Client is the object storage backend contract.
type Client interface {
	// CreateMultipartUpload opens a session for key and returns its id.
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)

	// UploadPart stores body as part number of the session and returns its ETag.
	UploadPart(ctx context.Context, key, uploadID string, number int32, body []byte) (string, error)

	// CompleteMultipartUpload assembles the listed parts, in the given order,
	// into the final object and returns its location.
	CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []Part) (string, error)

	// AbortMultipartUpload discards the session and any stored parts.
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error

	// HeadObject returns size and content type of a stored object.
	HeadObject(ctx context.Context, key string) (ObjectInfo, error)

	// GetObjectRange returns a reader over bytes start..end inclusive.
	// The caller must close it.
	GetObjectRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
}

// Pinger is optionally implemented by clients that can probe connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

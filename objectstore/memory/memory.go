// Package memory is a process-local objectstore.Client. It behaves like S3
// for multipart sessions and ranged reads, counts calls per operation and
// can be told to fail specific operations, which makes it the backend
// double in tests.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/objectstore"
)

// Operation names used by Calls and FailOn.
const (
	OpCreate   = "CreateMultipartUpload"
	OpPart     = "UploadPart"
	OpComplete = "CompleteMultipartUpload"
	OpAbort    = "AbortMultipartUpload"
	OpHead     = "HeadObject"
	OpGet      = "GetObjectRange"
)

func init() {
	objectstore.RegisterFactory(objectstore.ProviderMemory, func(_ context.Context, _ objectstore.Config, _ *logger.Logger) (objectstore.Client, error) {
		return New(), nil
	})
}

type object struct {
	data        []byte
	contentType string
}

type session struct {
	key         string
	contentType string
	parts       map[int32][]byte
	etags       map[int32]string
}

// Store is an in-memory objectstore.Client.
type Store struct {
	mu       sync.Mutex
	objects  map[string]*object
	sessions map[string]*session
	calls    map[string]int
	failures map[string]error
}

var _ objectstore.Client = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		objects:  make(map[string]*object),
		sessions: make(map[string]*session),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

// Put stores an object directly, bypassing multipart sessions.
func (s *Store) Put(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = &object{data: bytes.Clone(data), contentType: contentType}
}

// Object returns a copy of a stored object's bytes.
func (s *Store) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// OpenSessions returns the number of sessions neither completed nor aborted.
func (s *Store) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Calls returns how many times op was invoked, including failed calls.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// FailOn makes every later call to op return err. A nil err clears it.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// enter records a call and returns the injected failure, if any. The
// caller must hold s.mu.
func (s *Store) enter(ctx context.Context, op string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failures[op]
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// CreateMultipartUpload opens an upload session for key and returns its id.
func (s *Store) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpCreate); err != nil {
		return "", err
	}
	if key == "" {
		return "", objectstore.ErrInvalidKey
	}
	id := uuid.NewString()
	s.sessions[id] = &session{
		key:         key,
		contentType: contentType,
		parts:       make(map[int32][]byte),
		etags:       make(map[int32]string),
	}
	return id, nil
}

// UploadPart stores body as part number of the session and returns its ETag.
// Re-sending a part number replaces the earlier bytes.
func (s *Store) UploadPart(ctx context.Context, key, uploadID string, number int32, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpPart); err != nil {
		return "", err
	}
	sess, ok := s.sessions[uploadID]
	if !ok || sess.key != key {
		return "", objectstore.ErrNoSuchUpload
	}
	if number < 1 || number > 10000 {
		return "", fmt.Errorf("%w: part number %d out of range", objectstore.ErrInvalidPart, number)
	}
	etag := etagOf(body)
	sess.parts[number] = bytes.Clone(body)
	sess.etags[number] = etag
	return etag, nil
}

// CompleteMultipartUpload concatenates parts in order into the object at key
// and closes the session.
func (s *Store) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []objectstore.Part) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpComplete); err != nil {
		return "", err
	}
	sess, ok := s.sessions[uploadID]
	if !ok || sess.key != key {
		return "", objectstore.ErrNoSuchUpload
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no parts", objectstore.ErrInvalidPart)
	}

	var buf bytes.Buffer
	prev := int32(0)
	for _, p := range parts {
		if p.Number <= prev {
			return "", fmt.Errorf("%w: parts must be in ascending order", objectstore.ErrInvalidPart)
		}
		prev = p.Number
		data, ok := sess.parts[p.Number]
		if !ok || sess.etags[p.Number] != p.ETag {
			return "", fmt.Errorf("%w: part %d not found or etag mismatch", objectstore.ErrInvalidPart, p.Number)
		}
		buf.Write(data)
	}

	s.objects[key] = &object{data: buf.Bytes(), contentType: sess.contentType}
	delete(s.sessions, uploadID)
	return "memory://" + key, nil
}

// AbortMultipartUpload discards the session and its parts.
func (s *Store) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpAbort); err != nil {
		return err
	}
	sess, ok := s.sessions[uploadID]
	if !ok || sess.key != key {
		return objectstore.ErrNoSuchUpload
	}
	delete(s.sessions, uploadID)
	return nil
}

// HeadObject returns the size and content type of the object at key.
func (s *Store) HeadObject(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpHead); err != nil {
		return objectstore.ObjectInfo{}, err
	}
	obj, ok := s.objects[key]
	if !ok {
		return objectstore.ObjectInfo{}, objectstore.ErrNotFound
	}
	return objectstore.ObjectInfo{Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

// GetObjectRange returns bytes start through end inclusive, clamping end to
// the object size.
func (s *Store) GetObjectRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, OpGet); err != nil {
		return nil, err
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	size := int64(len(obj.data))
	if start < 0 || start >= size || end < start {
		return nil, objectstore.ErrInvalidRange
	}
	if end >= size {
		end = size - 1
	}
	return io.NopCloser(bytes.NewReader(obj.data[start : end+1])), nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

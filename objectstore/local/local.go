// Package local stores objects on the local filesystem. Multipart parts are
// staged under a hidden uploads directory and concatenated on completion.
package local

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/objectstore"
)

const (
	uploadsDir         = ".uploads"
	metaSuffix         = ".content-type"
	defaultContentType = "application/octet-stream"
)

func init() {
	objectstore.RegisterFactory(objectstore.ProviderLocal, func(_ context.Context, cfg objectstore.Config, log *logger.Logger) (objectstore.Client, error) {
		return NewStore(cfg.Local, log)
	})
}

// Store implements objectstore.Client on a directory tree.
type Store struct {
	basePath string
	baseURL  string
	log      *logger.Logger
}

var _ objectstore.Client = (*Store)(nil)

// NewStore creates the base directory if needed.
func NewStore(cfg objectstore.LocalConfig, log *logger.Logger) (*Store, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = objectstore.DefaultBasePath
	}
	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("objectstore: local resolve base path: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, uploadsDir), 0o750); err != nil {
		return nil, fmt.Errorf("objectstore: local create base directory: %w", err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Store{basePath: abs, baseURL: strings.TrimSuffix(cfg.BaseURL, "/"), log: log}, nil
}

// objectPath resolves key under the base path and rejects keys that escape
// it or collide with the staging area.
func (s *Store) objectPath(key string) (string, error) {
	if key == "" {
		return "", objectstore.ErrInvalidKey
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", objectstore.ErrInvalidKey, key)
	}
	if rel == uploadsDir || strings.HasPrefix(rel, uploadsDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", objectstore.ErrInvalidKey, key)
	}
	return full, nil
}

func (s *Store) sessionDir(uploadID string) (string, error) {
	if _, err := uuid.Parse(uploadID); err != nil {
		return "", objectstore.ErrNoSuchUpload
	}
	dir := filepath.Join(s.basePath, uploadsDir, uploadID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return "", objectstore.ErrNoSuchUpload
		}
		return "", fmt.Errorf("objectstore: local stat session: %w", err)
	}
	return dir, nil
}

func partPath(dir string, number int32) string {
	return filepath.Join(dir, fmt.Sprintf("%05d.part", number))
}

// CreateMultipartUpload stages a new session directory.
func (s *Store) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := s.objectPath(key); err != nil {
		return "", err
	}
	id := uuid.NewString()
	dir := filepath.Join(s.basePath, uploadsDir, id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("objectstore: local create session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "key"), []byte(key), 0o640); err != nil {
		return "", fmt.Errorf("objectstore: local write session key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "content-type"), []byte(contentType), 0o640); err != nil {
		return "", fmt.Errorf("objectstore: local write session type: %w", err)
	}
	return id, nil
}

func (s *Store) checkSessionKey(dir, key string) error {
	b, err := os.ReadFile(filepath.Join(dir, "key"))
	if err != nil {
		return fmt.Errorf("objectstore: local read session key: %w", err)
	}
	if string(b) != key {
		return objectstore.ErrNoSuchUpload
	}
	return nil
}

// UploadPart writes body as one part file and returns its quoted md5 ETag.
func (s *Store) UploadPart(ctx context.Context, key, uploadID string, number int32, body []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if number < 1 {
		return "", fmt.Errorf("%w: part number %d", objectstore.ErrInvalidPart, number)
	}
	dir, err := s.sessionDir(uploadID)
	if err != nil {
		return "", err
	}
	if err := s.checkSessionKey(dir, key); err != nil {
		return "", err
	}
	if err := os.WriteFile(partPath(dir, number), body, 0o640); err != nil {
		return "", fmt.Errorf("objectstore: local write part: %w", err)
	}
	return etag(body), nil
}

func etag(b []byte) string {
	sum := md5.Sum(b)
	return strconv.Quote(hex.EncodeToString(sum[:]))
}

// CompleteMultipartUpload concatenates the listed parts into the object.
func (s *Store) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []objectstore.Part) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := s.objectPath(key)
	if err != nil {
		return "", err
	}
	dir, err := s.sessionDir(uploadID)
	if err != nil {
		return "", err
	}
	if err := s.checkSessionKey(dir, key); err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no parts", objectstore.ErrInvalidPart)
	}

	var prev int32
	contents := make([][]byte, 0, len(parts))
	for _, p := range parts {
		if p.Number <= prev {
			return "", fmt.Errorf("%w: part %d out of order", objectstore.ErrInvalidPart, p.Number)
		}
		prev = p.Number
		data, err := os.ReadFile(partPath(dir, p.Number))
		if err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: part %d missing", objectstore.ErrInvalidPart, p.Number)
			}
			return "", fmt.Errorf("objectstore: local read part: %w", err)
		}
		if etag(data) != p.ETag {
			return "", fmt.Errorf("%w: part %d etag mismatch", objectstore.ErrInvalidPart, p.Number)
		}
		contents = append(contents, data)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("objectstore: local create directory: %w", err)
	}
	tmp := target + ".tmp-" + uploadID
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("objectstore: local create file: %w", err)
	}
	for _, data := range contents {
		if _, err := f.Write(data); err != nil {
			f.Close() //nolint:errcheck // already failing
			os.Remove(tmp)
			return "", fmt.Errorf("objectstore: local write file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("objectstore: local close file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("objectstore: local rename file: %w", err)
	}

	if ct, err := os.ReadFile(filepath.Join(dir, "content-type")); err == nil && len(ct) > 0 {
		if err := os.WriteFile(target+metaSuffix, ct, 0o640); err != nil {
			s.log.Warn("failed to write content type sidecar", logger.ErrorFields("write_sidecar", err))
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		s.log.Warn("failed to remove upload staging directory", map[string]interface{}{
			logger.FieldUploadID: uploadID,
			logger.FieldError:    err.Error(),
		})
	}
	return s.location(key, target), nil
}

func (s *Store) location(key, full string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String()
}

// AbortMultipartUpload removes the session directory.
func (s *Store) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.sessionDir(uploadID)
	if err != nil {
		return err
	}
	if err := s.checkSessionKey(dir, key); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("objectstore: local remove session: %w", err)
	}
	return nil
}

// HeadObject stats the object file.
func (s *Store) HeadObject(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return objectstore.ObjectInfo{}, err
	}
	full, err := s.objectPath(key)
	if err != nil {
		return objectstore.ObjectInfo{}, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return objectstore.ObjectInfo{}, objectstore.ErrNotFound
		}
		return objectstore.ObjectInfo{}, fmt.Errorf("objectstore: local stat file: %w", err)
	}
	if fi.IsDir() {
		return objectstore.ObjectInfo{}, objectstore.ErrNotFound
	}
	return objectstore.ObjectInfo{Size: fi.Size(), ContentType: contentType(full)}, nil
}

func contentType(full string) string {
	if b, err := os.ReadFile(full + metaSuffix); err == nil && len(b) > 0 {
		return string(b)
	}
	if ct := mime.TypeByExtension(filepath.Ext(full)); ct != "" {
		return ct
	}
	return defaultContentType
}

// GetObjectRange opens the file positioned at start and limited to end.
func (s *Store) GetObjectRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, objectstore.ErrNotFound
		}
		return nil, fmt.Errorf("objectstore: local open file: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("objectstore: local stat file: %w", err)
	}
	size := fi.Size()
	if start < 0 || start >= size || end < start {
		f.Close() //nolint:errcheck // already failing
		return nil, objectstore.ErrInvalidRange
	}
	if end >= size {
		end = size - 1
	}
	return &rangeReader{Reader: io.NewSectionReader(f, start, end-start+1), f: f}, nil
}

type rangeReader struct {
	io.Reader
	f *os.File
}

func (r *rangeReader) Close() error { return r.f.Close() }

// Ping checks the base directory is still reachable.
func (s *Store) Ping(_ context.Context) error {
	fi, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("objectstore: local stat base path: %w", err)
	}
	if !fi.IsDir() {
		return errors.New("objectstore: local base path is not a directory")
	}
	return nil
}

// Package stream serves stored videos as bounded HTTP byte ranges. Each
// request gets at most one window, starting where the client asked.
package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/streamgate/catalog"
	apperrors "github.com/kbukum/streamgate/errors"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/objectstore"
	"github.com/kbukum/streamgate/observability"
)

const (
	// DefaultWindowSize is the largest span served per request.
	DefaultWindowSize int64 = 20 << 20

	// DefaultContentType is used when the stored object has none.
	DefaultContentType = "application/octet-stream"

	copyBufferSize = 32 << 10
)

// Options tunes the gateway.
type Options struct {
	// WindowSize caps bytes per response. Zero means DefaultWindowSize.
	WindowSize int64

	Metrics *observability.Metrics
}

// Window is an inclusive byte span within an object of Total bytes.
type Window struct {
	Start  int64
	End    int64
	Total  int64
	Length int64
}

// ParseRangeStart extracts the start offset from "bytes=<start>-...".
// Anything after the dash is ignored.
func ParseRangeStart(header string) (int64, error) {
	h := strings.TrimSpace(header)
	if h == "" {
		return 0, apperrors.Validation("Range header is required")
	}
	unit, spec, ok := strings.Cut(h, "=")
	if !ok || strings.TrimSpace(unit) != "bytes" {
		return 0, apperrors.InvalidInput("Range", "range unit must be bytes")
	}
	if strings.Contains(spec, ",") {
		return 0, apperrors.InvalidInput("Range", "multiple ranges are not supported")
	}
	startStr, _, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return 0, apperrors.InvalidInput("Range", "malformed range")
	}
	if startStr == "" {
		return 0, apperrors.InvalidInput("Range", "suffix ranges are not supported")
	}
	for _, r := range startStr {
		if r < '0' || r > '9' {
			return 0, apperrors.InvalidInput("Range", "range start must be a non-negative integer")
		}
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("Range", "range start out of bounds")
	}
	return start, nil
}

// ComputeWindow bounds a read starting at start to window bytes and to the
// end of the object.
func ComputeWindow(start, total, window int64) (Window, error) {
	if window <= 0 {
		window = DefaultWindowSize
	}
	if start < 0 || start >= total {
		return Window{}, apperrors.RangeNotSatisfiable(start, total)
	}
	end := min(start+window-1, total-1)
	return Window{Start: start, End: end, Total: total, Length: end - start + 1}, nil
}

// Stream is an opened window ready to be written to a client.
type Stream struct {
	Window
	ContentType string
	Body        io.ReadCloser

	ctx     context.Context
	metrics *observability.Metrics
}

// Headers returns the response headers for a 206.
func (s *Stream) Headers() http.Header {
	h := make(http.Header, 4)
	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", s.Start, s.End, s.Total))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(s.Length, 10))
	h.Set("Content-Type", s.ContentType)
	return h
}

// WriteTo copies the window to w through a fixed buffer and closes the body.
func (s *Stream) WriteTo(w io.Writer) (n int64, err error) {
	defer s.Body.Close()
	ctx, span := observability.StartSpan(s.ctx, observability.SpanStreamCopy,
		attribute.Int64(observability.AttrRangeStart, s.Start),
		attribute.Int64(observability.AttrRangeEnd, s.End),
	)
	defer func() {
		s.metrics.RecordStream(ctx, n, err)
		observability.EndSpan(span, err)
	}()

	buf := make([]byte, copyBufferSize)
	n, err = io.CopyBuffer(w, io.LimitReader(s.Body, s.Length), buf)
	if err == nil && n < s.Length {
		err = fmt.Errorf("stream: short read, %d of %d bytes", n, s.Length)
	}
	return n, err
}

// Close releases the body without writing it.
func (s *Stream) Close() error {
	return s.Body.Close()
}

// Gateway resolves videos and opens ranged reads.
type Gateway struct {
	store   objectstore.Client
	records catalog.Store
	opts    Options
	log     *logger.Logger
}

// New creates a gateway.
func New(store objectstore.Client, records catalog.Store, opts Options, log *logger.Logger) *Gateway {
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Gateway{store: store, records: records, opts: opts, log: log.WithComponent("stream")}
}

// WindowSize returns the configured window.
func (g *Gateway) WindowSize() int64 { return g.opts.WindowSize }

// Open resolves videoID and opens the window requested by rangeHeader. The
// read is opened before any header is sent so failures stay reportable.
// ctx should be the request context so a disconnect cancels the read.
func (g *Gateway) Open(ctx context.Context, videoID, rangeHeader string) (_ *Stream, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanStreamOpen,
		attribute.String(observability.AttrVideoID, videoID),
	)
	defer func() { observability.EndSpan(span, err) }()

	rec, err := catalog.Lookup(ctx, g.records, videoID)
	if err != nil {
		return nil, err
	}
	start, err := ParseRangeStart(rangeHeader)
	if err != nil {
		return nil, err
	}

	log := g.log.WithContext(ctx).WithFields(map[string]interface{}{
		logger.FieldVideoID:   videoID,
		logger.FieldObjectKey: rec.Key,
	})

	info, err := g.store.HeadObject(ctx, rec.Key)
	if err != nil {
		log.Error("failed to probe object", logger.ErrorFields("head_object", err))
		return nil, apperrors.Upstream("read the video metadata", err)
	}

	win, err := ComputeWindow(start, info.Size, g.opts.WindowSize)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64(observability.AttrRangeStart, win.Start),
		attribute.Int64(observability.AttrRangeEnd, win.End),
	)

	body, err := g.store.GetObjectRange(ctx, rec.Key, win.Start, win.End)
	if err != nil {
		log.Error("failed to open ranged read", logger.MergeWithError(map[string]interface{}{
			logger.FieldRangeStart: win.Start,
			logger.FieldRangeEnd:   win.End,
		}, err))
		return nil, apperrors.Upstream("read the video", err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	log.Debug("window opened", map[string]interface{}{
		logger.FieldRangeStart: win.Start,
		logger.FieldRangeEnd:   win.End,
		logger.FieldTotalSize:  win.Total,
	})
	return &Stream{Window: win, ContentType: contentType, Body: body, ctx: ctx, metrics: g.opts.Metrics}, nil
}

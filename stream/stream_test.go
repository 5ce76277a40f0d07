package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/streamgate/catalog"
	apperrors "github.com/kbukum/streamgate/errors"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/objectstore/memory"
)

func TestParseRangeStart(t *testing.T) {
	tests := []struct {
		header  string
		want    int64
		wantErr bool
	}{
		{"bytes=0-", 0, false},
		{"bytes=100-200", 100, false},
		{"  bytes=42-  ", 42, false},
		{"bytes=7-garbage", 7, false},
		{"", 0, true},
		{"bytes=-500", 0, true},
		{"bytes=0-1,5-9", 0, true},
		{"items=0-", 0, true},
		{"bytes=abc-", 0, true},
		{"bytes=+5-", 0, true},
		{"bytes=5", 0, true},
		{"bytes=99999999999999999999-", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			got, err := ParseRangeStart(tc.header)
			if tc.wantErr {
				if !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
					t.Errorf("expected INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestComputeWindow(t *testing.T) {
	const w = DefaultWindowSize
	tests := []struct {
		name              string
		start, total      int64
		wantEnd, wantLen  int64
		wantUnsatisfiable bool
	}{
		{"small object", 0, 1000, 999, 1000, false},
		{"exact window", 0, w, w - 1, w, false},
		{"large object", 0, 3 * w, w - 1, w, false},
		{"tail clamp", 3*w - 10, 3 * w, 3*w - 1, 10, false},
		{"last byte", 999, 1000, 999, 1, false},
		{"start at size", 1000, 1000, 0, 0, true},
		{"past size", 5000, 1000, 0, 0, true},
		{"empty object", 0, 0, 0, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeWindow(tc.start, tc.total, w)
			if tc.wantUnsatisfiable {
				if !apperrors.HasCode(err, apperrors.ErrCodeRangeNotSatisfiable) {
					t.Errorf("expected RANGE_NOT_SATISFIABLE, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.End != tc.wantEnd || got.Length != tc.wantLen || got.Total != tc.total {
				t.Errorf("got %+v, want end=%d len=%d", got, tc.wantEnd, tc.wantLen)
			}
		})
	}
}

type records struct {
	byID map[string]*catalog.VideoRecord
	err  error
}

func (r *records) Create(context.Context, *catalog.VideoRecord) error { return nil }
func (r *records) FindByID(_ context.Context, id string) (*catalog.VideoRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	rec, ok := r.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return rec, nil
}
func (r *records) Find(context.Context, catalog.Filter) ([]catalog.VideoRecord, error) {
	return nil, nil
}

func setup(t *testing.T, data []byte, contentType string, window int64) (*Gateway, *memory.Store, string) {
	t.Helper()
	store := memory.New()
	store.Put("clip.mp4", data, contentType)
	id := uuid.New()
	recs := &records{byID: map[string]*catalog.VideoRecord{
		id.String(): {ID: id, Key: "clip.mp4", Location: "memory://clip.mp4"},
	}}
	return New(store, recs, Options{WindowSize: window}, logger.NewNop()), store, id.String()
}

func TestOpenAndWrite(t *testing.T) {
	data := []byte("0123456789abcdefghij")
	g, _, id := setup(t, data, "video/mp4", 8)

	s, err := g.Open(context.Background(), id, "bytes=4-")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h := s.Headers()
	want := http.Header{
		"Content-Range":  {"bytes 4-11/20"},
		"Accept-Ranges":  {"bytes"},
		"Content-Length": {"8"},
		"Content-Type":   {"video/mp4"},
	}
	for k, v := range want {
		if h.Get(k) != v[0] {
			t.Errorf("%s = %q, want %q", k, h.Get(k), v[0])
		}
	}

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != 8 || buf.String() != "456789ab" {
		t.Errorf("wrote %d bytes %q", n, buf.String())
	}
}

func TestOpenDefaultsContentType(t *testing.T) {
	g, _, id := setup(t, []byte("abc"), "", 0)
	s, err := g.Open(context.Background(), id, "bytes=0-")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if s.ContentType != DefaultContentType {
		t.Errorf("expected default content type, got %q", s.ContentType)
	}
	if g.WindowSize() != DefaultWindowSize {
		t.Errorf("expected default window, got %d", g.WindowSize())
	}
}

func TestOpenWithoutRangeNeverTouchesBackend(t *testing.T) {
	g, store, id := setup(t, []byte("abc"), "", 0)
	for _, header := range []string{"", "bytes=-5", "junk"} {
		_, err := g.Open(context.Background(), id, header)
		appErr, ok := apperrors.AsAppError(err)
		if !ok || appErr.HTTPStatus != http.StatusBadRequest {
			t.Errorf("header %q: expected 400, got %v", header, err)
		}
	}
	if store.Calls(memory.OpHead) != 0 || store.Calls(memory.OpGet) != 0 {
		t.Errorf("expected no backend calls, got head=%d get=%d", store.Calls(memory.OpHead), store.Calls(memory.OpGet))
	}
}

func TestOpenErrors(t *testing.T) {
	g, store, id := setup(t, []byte("abc"), "", 0)
	ctx := context.Background()

	if _, err := g.Open(ctx, uuid.NewString(), "bytes=0-"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("unknown id: expected NOT_FOUND, got %v", err)
	}
	if _, err := g.Open(ctx, "not-a-uuid", "bytes=0-"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("bad id: expected NOT_FOUND, got %v", err)
	}
	if _, err := g.Open(ctx, id, "bytes=3-"); !apperrors.HasCode(err, apperrors.ErrCodeRangeNotSatisfiable) {
		t.Errorf("start at size: expected RANGE_NOT_SATISFIABLE, got %v", err)
	}
	if store.Calls(memory.OpGet) != 0 {
		t.Error("unsatisfiable range should not open a read")
	}

	store.FailOn(memory.OpGet, errors.New("timeout"))
	if _, err := g.Open(ctx, id, "bytes=0-"); !apperrors.HasCode(err, apperrors.ErrCodeUpstream) {
		t.Errorf("get failure: expected UPSTREAM_ERROR, got %v", err)
	}
	store.FailOn(memory.OpHead, errors.New("timeout"))
	if _, err := g.Open(ctx, id, "bytes=0-"); !apperrors.HasCode(err, apperrors.ErrCodeUpstream) {
		t.Errorf("head failure: expected UPSTREAM_ERROR, got %v", err)
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("client gone")
	}
	n := min(len(p), w.after)
	w.after -= n
	return n, nil
}

func TestWriteToReportsTruncation(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 100<<10)
	g, _, id := setup(t, data, "", 0)
	s, err := g.Open(context.Background(), id, "bytes=0-")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	n, err := s.WriteTo(&failingWriter{after: 40 << 10})
	if err == nil {
		t.Fatal("expected write error")
	}
	if n >= int64(len(data)) {
		t.Errorf("expected partial write, got %d", n)
	}
}

func TestWriteToShortBody(t *testing.T) {
	s := &Stream{
		Window: Window{Start: 0, End: 9, Total: 10, Length: 10},
		Body:   io.NopCloser(strings.NewReader("abc")),
		ctx:    context.Background(),
	}
	if _, err := s.WriteTo(io.Discard); err == nil {
		t.Error("expected short read error")
	}
}

package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/streamgate/catalog"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/objectstore/memory"
	"github.com/kbukum/streamgate/server"
	"github.com/kbukum/streamgate/stream"
	"github.com/kbukum/streamgate/upload"
)

const mb = 1 << 20

type fixture struct {
	store   *memory.Store
	records *catalog.GormStore
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	records := catalog.NewGormStore(db)
	if err := records.Migrate(t.Context()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := memory.New()
	h := New(
		upload.New(store, records, upload.Options{}, log),
		stream.New(store, records, stream.Options{}, log),
		catalog.NewQuery(records, log),
		log,
	)
	srv := server.New(server.Config{}, nil, log)
	h.Register(srv.GinEngine())
	return &fixture{store: store, records: records, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return f.do(t, req)
}

func (f *fixture) postChunk(t *testing.T, fields map[string]string, chunk []byte) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, chunkRequest(t, fields, chunk))
}

func chunkRequest(t *testing.T, fields map[string]string, chunk []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if chunk != nil {
		fw, err := w.CreateFormFile("chunk", "blob")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(chunk); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload-chunk", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestUploadAndStreamEndToEnd(t *testing.T) {
	f := newFixture(t)

	rr := f.postJSON(t, "/start-upload", map[string]string{"fileName": "movie.mp4", "fileType": "video/mp4"})
	if rr.Code != http.StatusOK {
		t.Fatalf("start-upload: %d %s", rr.Code, rr.Body.String())
	}
	started := decode(t, rr)
	uploadID, _ := started["uploadId"].(string)
	if started["success"] != true || uploadID == "" || started["fileKey"] != "movie.mp4" {
		t.Fatalf("unexpected start response %v", started)
	}

	sizes := []int{5 * mb, 5 * mb, 2 * mb}
	var content []byte
	parts := make([]map[string]any, 0, len(sizes))
	for i, size := range sizes {
		chunk := bytes.Repeat([]byte{byte('a' + i)}, size)
		content = append(content, chunk...)
		rr := f.postChunk(t, map[string]string{
			"uploadId":   uploadID,
			"fileKey":    "movie.mp4",
			"chunkIndex": strconv.Itoa(i),
		}, chunk)
		if rr.Code != http.StatusOK {
			t.Fatalf("upload-chunk %d: %d %s", i, rr.Code, rr.Body.String())
		}
		parts = append(parts, map[string]any{"PartNumber": i + 1, "ETag": decode(t, rr)["ETag"]})
	}

	// Parts may arrive out of order; the coordinator sorts them.
	parts[0], parts[2] = parts[2], parts[0]
	rr = f.postJSON(t, "/complete-upload", map[string]any{
		"uploadId": uploadID,
		"fileKey":  "movie.mp4",
		"parts":    parts,
		"fileName": "movie.mp4",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("complete-upload: %d %s", rr.Code, rr.Body.String())
	}
	if loc := decode(t, rr)["location"]; loc != "memory://movie.mp4" {
		t.Errorf("unexpected location %v", loc)
	}

	recs, err := f.records.Find(t.Context(), catalog.Filter{})
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected one record, got %d (%v)", len(recs), err)
	}
	id := recs[0].ID.String()

	req := httptest.NewRequest(http.MethodGet, "/stream/"+id, http.NoBody)
	req.Header.Set("Range", "bytes=0-")
	rr = f.do(t, req)
	if rr.Code != http.StatusPartialContent {
		t.Fatalf("stream: %d %s", rr.Code, rr.Body.String())
	}
	total := 12 * mb
	if got := rr.Header().Get("Content-Length"); got != strconv.Itoa(total) {
		t.Errorf("expected Content-Length %d, got %s", total, got)
	}
	if got := rr.Header().Get("Content-Range"); got != fmt.Sprintf("bytes 0-%d/%d", total-1, total) {
		t.Errorf("unexpected Content-Range %s", got)
	}
	if rr.Header().Get("Accept-Ranges") != "bytes" || rr.Header().Get("Content-Type") != "video/mp4" {
		t.Errorf("unexpected headers %v", rr.Header())
	}
	if !bytes.Equal(rr.Body.Bytes(), content) {
		t.Error("streamed body does not match the uploaded content")
	}

	req = httptest.NewRequest(http.MethodGet, "/stream/"+id, http.NoBody)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", total))
	rr = f.do(t, req)
	if rr.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("expected 416, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Range"); got != fmt.Sprintf("bytes */%d", total) {
		t.Errorf("unexpected 416 Content-Range %q", got)
	}

	rr = f.do(t, httptest.NewRequest(http.MethodGet, "/get-all-videos?name=MOVIE", http.NoBody))
	listed := decode(t, rr)
	data, _ := listed["data"].([]any)
	if rr.Code != http.StatusOK || listed["message"] != "All Data Fetched Successfully" || len(data) != 1 {
		t.Errorf("unexpected list response %d %v", rr.Code, listed)
	}
}

func TestConcurrentChunksOutOfOrderWithReupload(t *testing.T) {
	f := newFixture(t)

	rr := f.postJSON(t, "/start-upload", map[string]string{"fileName": "clip.mp4", "fileType": "video/mp4"})
	if rr.Code != http.StatusOK {
		t.Fatalf("start-upload: %d %s", rr.Code, rr.Body.String())
	}
	uploadID, _ := decode(t, rr)["uploadId"].(string)
	fields := func(i int) map[string]string {
		return map[string]string{"uploadId": uploadID, "fileKey": "clip.mp4", "chunkIndex": strconv.Itoa(i)}
	}

	order := []int{2, 0, 1}
	reqs := make([]*http.Request, len(order))
	for n, i := range order {
		reqs[n] = chunkRequest(t, fields(i), bytes.Repeat([]byte{byte('a' + i)}, 4))
	}
	recorders := make([]*httptest.ResponseRecorder, len(reqs))
	var wg sync.WaitGroup
	for n := range reqs {
		recorders[n] = httptest.NewRecorder()
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			f.handler.ServeHTTP(recorders[n], reqs[n])
		}(n)
	}
	wg.Wait()

	etags := make(map[int]any, len(order))
	for n, i := range order {
		if recorders[n].Code != http.StatusOK {
			t.Fatalf("chunk %d: %d %s", i, recorders[n].Code, recorders[n].Body.String())
		}
		etags[i] = decode(t, recorders[n])["ETag"]
	}

	// The second send of index 0 replaces the first.
	rr = f.postChunk(t, fields(0), []byte("ZZ"))
	if rr.Code != http.StatusOK {
		t.Fatalf("re-upload: %d %s", rr.Code, rr.Body.String())
	}
	etags[0] = decode(t, rr)["ETag"]

	parts := []map[string]any{
		{"PartNumber": 3, "ETag": etags[2]},
		{"PartNumber": 1, "ETag": etags[0]},
		{"PartNumber": 2, "ETag": etags[1]},
	}
	rr = f.postJSON(t, "/complete-upload", map[string]any{
		"uploadId": uploadID,
		"fileKey":  "clip.mp4",
		"parts":    parts,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("complete-upload: %d %s", rr.Code, rr.Body.String())
	}
	data, _ := f.store.Object("clip.mp4")
	if want := "ZZbbbbcccc"; string(data) != want {
		t.Errorf("expected object %q, got %q", want, data)
	}
}

func TestUploadChunkValidation(t *testing.T) {
	f := newFixture(t)
	session := map[string]string{"uploadId": "u", "fileKey": "k", "chunkIndex": "0"}

	tests := []struct {
		name    string
		fields  map[string]string
		chunk   []byte
		wantMsg string
	}{
		{"missing chunk", session, nil, upload.EmptyChunkMessage},
		{"empty chunk", session, []byte{}, upload.EmptyChunkMessage},
		{"bad index", map[string]string{"uploadId": "u", "fileKey": "k", "chunkIndex": "one"}, []byte("x"), "chunkIndex"},
		{"negative index", map[string]string{"uploadId": "u", "fileKey": "k", "chunkIndex": "-1"}, []byte("x"), "chunkIndex must be >= 0"},
		{"index beyond part numbers", map[string]string{"uploadId": "u", "fileKey": "k", "chunkIndex": "2147483647"}, []byte("x"), "chunkIndex must be < 2147483647"},
		{"missing session", map[string]string{"chunkIndex": "0"}, []byte("x"), "uploadId"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.postChunk(t, tc.fields, tc.chunk)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %s", rr.Code, rr.Body.String())
			}
			if !bytes.Contains(rr.Body.Bytes(), []byte(tc.wantMsg)) {
				t.Errorf("expected %q in %s", tc.wantMsg, rr.Body.String())
			}
		})
	}
	if n := f.store.TotalCalls(); n != 0 {
		t.Errorf("expected no backend calls, got %d", n)
	}
}

func TestJSONValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"start without name", "/start-upload", `{"fileType":"video/mp4"}`, http.StatusBadRequest},
		{"start malformed", "/start-upload", `{"fileName":`, http.StatusBadRequest},
		{"complete without ids", "/complete-upload", `{"parts":[]}`, http.StatusBadRequest},
		{"abort without ids", "/abort-upload", `{}`, http.StatusBadRequest},
		{"abort unknown session", "/abort-upload", `{"uploadId":"nope","fileKey":"k"}`, http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rr := f.do(t, req)
			if rr.Code != tc.wantCode {
				t.Errorf("expected %d, got %d %s", tc.wantCode, rr.Code, rr.Body.String())
			}
			if decode(t, rr)["success"] != false {
				t.Error("expected failure envelope")
			}
		})
	}
}

func TestAbortUpload(t *testing.T) {
	f := newFixture(t)
	started := decode(t, f.postJSON(t, "/start-upload", map[string]string{"fileName": "clip.mov"}))

	rr := f.postJSON(t, "/abort-upload", map[string]any{"uploadId": started["uploadId"], "fileKey": started["fileKey"]})
	if rr.Code != http.StatusOK || decode(t, rr)["success"] != true {
		t.Fatalf("abort: %d %s", rr.Code, rr.Body.String())
	}
	if f.store.OpenSessions() != 0 {
		t.Error("expected the session to be discarded")
	}
}

func TestStreamErrors(t *testing.T) {
	f := newFixture(t)
	f.store.Put("movie.mp4", []byte("0123456789"), "")
	rec := catalog.VideoRecord{Key: "movie.mp4", Location: "memory://movie.mp4", OriginalName: "movie.mp4"}
	if err := f.records.Create(t.Context(), &rec); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		id       string
		rng      string
		wantCode int
	}{
		{"unknown id", uuid.NewString(), "bytes=0-", http.StatusNotFound},
		{"malformed id", "not-a-uuid", "bytes=0-", http.StatusNotFound},
		{"missing range", rec.ID.String(), "", http.StatusBadRequest},
		{"suffix range", rec.ID.String(), "bytes=-5", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/stream/"+tc.id, http.NoBody)
			if tc.rng != "" {
				req.Header.Set("Range", tc.rng)
			}
			rr := f.do(t, req)
			if rr.Code != tc.wantCode {
				t.Errorf("expected %d, got %d %s", tc.wantCode, rr.Code, rr.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/stream/"+rec.ID.String(), http.NoBody)
	req.Header.Set("Range", "bytes=4-")
	rr := f.do(t, req)
	body, _ := io.ReadAll(rr.Body)
	if rr.Code != http.StatusPartialContent || string(body) != "456789" {
		t.Errorf("unexpected partial response %d %q", rr.Code, body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != stream.DefaultContentType {
		t.Errorf("expected default content type, got %q", ct)
	}
}

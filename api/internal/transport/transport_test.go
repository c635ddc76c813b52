package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/you-humble/sttqueue/api/internal/usecase"
	"github.com/you-humble/sttqueue/core/domain"
	"github.com/you-humble/sttqueue/core/filestore"
	"github.com/you-humble/sttqueue/core/jobstore"
)

type memQueue struct {
	ids []string
}

func (q *memQueue) Enqueue(_ context.Context, jobID string) error {
	q.ids = append(q.ids, jobID)
	return nil
}

type noFetch struct{}

func (noFetch) Fetch(context.Context, string) (io.ReadCloser, error) {
	return nil, &domain.UpstreamError{URL: "x", Status: http.StatusNotFound}
}

type testServer struct {
	*httptest.Server
	root    string
	queue   *memQueue
	handler http.Handler
}

type localStore interface {
	usecase.MediaStore
	usecase.TextStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()

	store := func(name string) localStore {
		s, err := filestore.NewLocalStore(filepath.Join(root, name))
		if err != nil {
			t.Fatalf("store %s: %v", name, err)
		}
		return s
	}
	jobs, err := jobstore.NewSQLiteJobStore(filepath.Join(root, "jobs.db"))
	if err != nil {
		t.Fatalf("job store: %v", err)
	}
	t.Cleanup(func() { jobs.Close() })

	q := &memQueue{}
	uc := usecase.New(store("media"), store("transcripts"), store("logs"), jobs, q, noFetch{})

	mux := NewRouter(NewHandler(1, uc)).MountRoutes(http.NewServeMux())
	h := WithRecover(LogMiddleware(mux))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, root: root, queue: q, handler: h}
}

func (ts *testServer) put(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(ts.root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "ignored")
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = io.WriteString(fw, content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, url, field, filename, content string) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, content)
	resp, err := http.Post(url+"/jobs", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func get(t *testing.T, url string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return resp
}

func TestUploadThenStatus(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts.URL, "file", "lecture one.mp4", "media bytes")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id")
	}
	sub := decode[domain.SubmitResponse](t, resp)
	if sub.Filename != "lecture_one.mp4" || sub.JobID == "" {
		t.Fatalf("submit = %+v", sub)
	}
	if len(ts.queue.ids) != 1 || ts.queue.ids[0] != sub.JobID {
		t.Fatalf("queue = %v", ts.queue.ids)
	}

	resp = get(t, ts.URL+"/jobs/status?id="+sub.JobID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	st := decode[domain.StatusResponse](t, resp)
	if st.JobID != sub.JobID || st.Status != domain.StatusPending {
		t.Fatalf("status = %+v", st)
	}

	resp = get(t, ts.URL+"/media", nil)
	tree := decode[map[string][]string](t, resp)
	today := time.Now().Format("20060102")
	if files := tree[today]; len(files) != 1 || files[0] != "lecture_one.mp4" {
		t.Fatalf("media tree = %v", tree)
	}
}

func TestUploadErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := upload(t, ts.URL, "other", "a.mp4", "x")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing field status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = upload(t, ts.URL, "file", "a.mp4", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty body status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, contentType := multipartBody(t, "file", "big.mp4", strings.Repeat("x", 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversize status = %d", rec.Code)
	}

	resp, err := http.Post(ts.URL+"/jobs", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-multipart status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = get(t, ts.URL+"/jobs", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /jobs status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	if len(ts.queue.ids) != 0 {
		t.Fatalf("queue = %v", ts.queue.ids)
	}
}

func TestSubmitURLErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		body string
		want int
	}{
		{body: `{}`, want: http.StatusBadRequest},
		{body: `not json`, want: http.StatusBadRequest},
		{body: `{"url":"ftp://example.com/a.mp4"}`, want: http.StatusBadRequest},
		{body: `{"url":"https://example.com/a.mp4"}`, want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		resp, err := http.Post(ts.URL+"/jobs/from-url", "application/json", strings.NewReader(tt.body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		e := decode[domain.ErrorResponse](t, resp)
		if resp.StatusCode != tt.want || e.Message == "" {
			t.Errorf("%s: status = %d body = %+v, want %d", tt.body, resp.StatusCode, e, tt.want)
		}
	}
}

func TestStatusErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := get(t, ts.URL+"/jobs/status", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing id status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = get(t, ts.URL+"/jobs/status?id=nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id status = %d", resp.StatusCode)
	}
	st := decode[domain.StatusResponse](t, resp)
	if st.Status != domain.StatusUnknown || st.JobID != "nope" {
		t.Fatalf("unknown id body = %+v", st)
	}
}

func TestFilesAndLogs(t *testing.T) {
	ts := newTestServer(t)
	ts.put(t, "transcripts/20250730/a.txt", "[0.00s -> 1.00s] hi\n")
	ts.put(t, "logs/worker1_20250730_100000.log", "started")

	tree := decode[map[string][]string](t, get(t, ts.URL+"/files", nil))
	if files := tree["20250730"]; len(files) != 1 || files[0] != "a.txt" {
		t.Fatalf("files = %v", tree)
	}

	resp := get(t, ts.URL+"/files/content?date=20250730&filename=a.txt", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("content status = %d", resp.StatusCode)
	}
	if c := decode[domain.ContentResponse](t, resp); c.Content != "[0.00s -> 1.00s] hi\n" {
		t.Fatalf("content = %q", c.Content)
	}

	for url, want := range map[string]int{
		"/files/content?date=20250730":                      http.StatusBadRequest,
		"/files/content?date=20250730&filename=missing.txt": http.StatusNotFound,
		"/files/content?date=20250730&filename=..%2Fa.txt":  http.StatusBadRequest,
		"/logs/content":                                      http.StatusBadRequest,
		"/logs/content?filename=missing.log":                 http.StatusNotFound,
		"/logs/content?filename=worker1_20250730_100000.log": http.StatusOK,
	} {
		resp := get(t, ts.URL+url, nil)
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("%s status = %d, want %d", url, resp.StatusCode, want)
		}
	}

	logs := decode[[]string](t, get(t, ts.URL+"/logs", nil))
	if len(logs) != 1 || logs[0] != "worker1_20250730_100000.log" {
		t.Fatalf("logs = %v", logs)
	}
}

func TestWithRecover(t *testing.T) {
	h := WithRecover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var e domain.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil || e.Error == "" {
		t.Fatalf("body = %+v, %v", e, err)
	}
}

func TestLogMiddlewareKeepsRequestID(t *testing.T) {
	var seen string
	h := LogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-42" || rec.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("request id = %q, header = %q", seen, rec.Header().Get("X-Request-Id"))
	}
}

func TestWriteUsecaseErrorStatuses(t *testing.T) {
	tooLarge := errors.New("remote file exceeds size limit")
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid", err: domain.Invalid("bad"), want: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("open: %w", domain.ErrNotFound), want: http.StatusNotFound},
		{name: "upload over limit", err: fmt.Errorf("save media: %w", &http.MaxBytesError{Limit: 1}), want: http.StatusRequestEntityTooLarge},
		{name: "announced oversize", err: &domain.UpstreamError{URL: "u", Err: tooLarge}, want: http.StatusBadGateway},
		{
			name: "streamed oversize",
			err:  fmt.Errorf("save media: write file: %w", &domain.UpstreamError{URL: "u", Err: tooLarge}),
			want: http.StatusBadGateway,
		},
		{name: "internal", err: errors.New("disk full"), want: http.StatusInternalServerError},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeUsecaseError(rec, logger, "op", tt.err, "internal error")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

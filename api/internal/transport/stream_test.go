package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"testing"
)

func mediaFixture(t *testing.T) (*testServer, []byte) {
	t.Helper()
	ts := newTestServer(t)

	content := make([]byte, 1000)
	for i := range content {
		content[i] = byte(i % 251)
	}
	ts.put(t, "media/20250730/clip.mp4", string(content))
	return ts, content
}

func rangeHeader(v string) http.Header {
	return http.Header{"Range": {v}}
}

func TestStreamFullFile(t *testing.T) {
	ts, content := mediaFixture(t)

	resp := get(t, ts.URL+"/media/stream?date=20250730&filename=clip.mp4", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("content type = %q", got)
	}
	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("accept ranges = %q", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, content) {
		t.Fatalf("body length = %d", len(body))
	}
}

func TestStreamRanges(t *testing.T) {
	ts, content := mediaFixture(t)
	url := ts.URL + "/media/stream?date=20250730&filename=clip.mp4"

	tests := []struct {
		header     string
		start, end int
	}{
		{header: "bytes=0-99", start: 0, end: 99},
		{header: "bytes=990-", start: 990, end: 999},
		{header: "bytes=900-5000", start: 900, end: 999},
		{header: "bytes=10-10", start: 10, end: 10},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			resp := get(t, url, rangeHeader(tt.header))
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusPartialContent {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			wantRange := fmt.Sprintf("bytes %d-%d/%d", tt.start, tt.end, len(content))
			if got := resp.Header.Get("Content-Range"); got != wantRange {
				t.Fatalf("content range = %q, want %q", got, wantRange)
			}
			if got := resp.Header.Get("Content-Length"); got != strconv.Itoa(tt.end-tt.start+1) {
				t.Fatalf("content length = %q", got)
			}
			body, _ := io.ReadAll(resp.Body)
			if !bytes.Equal(body, content[tt.start:tt.end+1]) {
				t.Fatalf("body mismatch for %s", tt.header)
			}
		})
	}
}

func TestStreamSequentialRangesRebuildFile(t *testing.T) {
	ts, content := mediaFixture(t)
	url := ts.URL + "/media/stream?date=20250730&filename=clip.mp4"

	var got []byte
	const chunk = 300
	for start := 0; start < len(content); start += chunk {
		resp := get(t, url, rangeHeader(fmt.Sprintf("bytes=%d-%d", start, start+chunk-1)))
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusPartialContent {
			t.Fatalf("status = %d at %d", resp.StatusCode, start)
		}
		got = append(got, body...)
	}

	if !bytes.Equal(got, content) {
		t.Fatalf("rebuilt %d bytes, want %d", len(got), len(content))
	}
}

func TestStreamRangeErrors(t *testing.T) {
	ts, _ := mediaFixture(t)
	url := ts.URL + "/media/stream?date=20250730&filename=clip.mp4"

	for _, h := range []string{"bytes=1000-", "bytes=0-1,5-6"} {
		resp := get(t, url, rangeHeader(h))
		resp.Body.Close()
		if resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
			t.Errorf("%s status = %d, want 416", h, resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Range"); got != "bytes */1000" {
			t.Errorf("%s content range = %q", h, got)
		}
	}

	for _, h := range []string{"items=0-1", "bytes=abc-", "bytes", "bytes=500-100"} {
		resp := get(t, url, rangeHeader(h))
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", h, resp.StatusCode)
		}
	}
}

func TestStreamLookupErrors(t *testing.T) {
	ts, _ := mediaFixture(t)

	for url, want := range map[string]int{
		"/media/stream":                                   http.StatusBadRequest,
		"/media/stream?date=20250730":                     http.StatusBadRequest,
		"/media/stream?date=20250730&filename=nope.mp4":   http.StatusNotFound,
		"/media/stream?date=..&filename=clip.mp4":         http.StatusBadRequest,
		"/media/stream?date=20250730&filename=..%2Fx.mp4": http.StatusBadRequest,
	} {
		resp := get(t, ts.URL+url, nil)
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("%s status = %d, want %d", url, resp.StatusCode, want)
		}
	}
}

func TestMediaType(t *testing.T) {
	for name, want := range map[string]string{
		"a.mp4":     "video/mp4",
		"a.unknown": "video/mp4",
		"a":         "video/mp4",
	} {
		if got := mediaType(name); got != want {
			t.Errorf("mediaType(%q) = %q, want %q", name, got, want)
		}
	}
}

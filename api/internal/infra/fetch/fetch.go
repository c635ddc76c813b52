package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
)

// ErrTooLarge is returned while reading a body that exceeds the size limit.
var ErrTooLarge = errors.New("remote file exceeds size limit")

type client struct {
	hc       *http.Client
	maxBytes int64
}

// New returns a streaming downloader. connectTimeout bounds dialing, the TLS
// handshake and the wait for response headers; downloadTimeout bounds the
// whole transfer. maxBytes <= 0 disables the size limit.
func New(connectTimeout, downloadTimeout time.Duration, maxBytes int64) *client {
	return &client{
		hc: &http.Client{
			Timeout: downloadTimeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout:   connectTimeout,
				ResponseHeaderTimeout: connectTimeout,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		maxBytes: maxBytes,
	}
}

// Fetch issues a GET and returns the response body for streaming. Transport
// failures and non-2xx answers come back as *domain.UpstreamError.
func (c *client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.Invalid("build request: %v", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{URL: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &domain.UpstreamError{
			URL:    rawURL,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
		resp.Body.Close()
		return nil, &domain.UpstreamError{URL: rawURL, Err: ErrTooLarge}
	}

	if c.maxBytes <= 0 {
		return resp.Body, nil
	}
	return &limitedBody{rc: resp.Body, url: rawURL, remaining: c.maxBytes}, nil
}

// limitedBody fails with the same *domain.UpstreamError as an oversized
// Content-Length once more than remaining bytes arrive.
type limitedBody struct {
	rc        io.ReadCloser
	url       string
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, &domain.UpstreamError{URL: b.url, Err: ErrTooLarge}
	}
	// read one byte past the limit to tell "exactly at limit" from "over"
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n + int(b.remaining), &domain.UpstreamError{URL: b.url, Err: ErrTooLarge}
	}
	return n, err
}

func (b *limitedBody) Close() error {
	return b.rc.Close()
}

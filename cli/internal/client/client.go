// Package client talks to the transcription API over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SubmitFile uploads the file at path without buffering it in memory.
func (c *Client) SubmitFile(ctx context.Context, path string) (domain.SubmitResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.SubmitResponse{}, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", pr)
	if err != nil {
		pr.Close()
		return domain.SubmitResponse{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp domain.SubmitResponse
	err = c.do(req, &resp)
	pr.Close()
	return resp, err
}

func (c *Client) SubmitURL(ctx context.Context, rawURL string) (domain.SubmitResponse, error) {
	body, err := json.Marshal(map[string]string{"url": rawURL})
	if err != nil {
		return domain.SubmitResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs/from-url", strings.NewReader(string(body)))
	if err != nil {
		return domain.SubmitResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp domain.SubmitResponse
	return resp, c.do(req, &resp)
}

func (c *Client) Status(ctx context.Context, jobID string) (domain.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/jobs/status?id="+url.QueryEscape(jobID), nil)
	if err != nil {
		return domain.StatusResponse{}, err
	}

	var resp domain.StatusResponse
	return resp, c.do(req, &resp)
}

// Wait polls the job every interval until it reaches a terminal status.
func (c *Client) Wait(ctx context.Context, jobID string, interval time.Duration) (domain.StatusResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := c.Status(ctx, jobID)
		if err != nil {
			return st, err
		}
		if st.Status.Terminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e domain.ErrorResponse
		msg := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Message != "" {
			msg = e.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

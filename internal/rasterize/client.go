// Package rasterize talks to the slide rasterizer service, which converts an
// uploaded presentation into per-slide page images.
package rasterize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lecturesync/internal/config"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 2 * time.Second
)

// Client uploads presentations and downloads rendered page images.
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	retryAttempts int
	retryBackoff  time.Duration
}

// Option customizes the rasterizer client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides the retry policy. Attempts below one disable retries.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.retryAttempts = attempts
		c.retryBackoff = backoff
	}
}

// New constructs a rasterizer client from configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	timeout := time.Duration(cfg.Rasterizer.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client := &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.Rasterizer.URL), "/"),
		apiKey:        strings.TrimSpace(cfg.Rasterizer.APIKey),
		httpClient:    &http.Client{Timeout: timeout},
		retryAttempts: defaultRetryAttempts,
		retryBackoff:  defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type renderResponse struct {
	Pages []renderedPage `json:"pages"`
	Error string         `json:"error"`
}

type renderedPage struct {
	Index int    `json:"index"`
	Image string `json:"image"`
}

// Render uploads the presentation at presentationPath and writes one PNG per
// page into destDir. It returns the written image paths in page order.
func (c *Client) Render(ctx context.Context, presentationPath, destDir string) ([]string, error) {
	if c.baseURL == "" {
		return nil, errors.New("rasterize: service url not configured")
	}
	if strings.TrimSpace(presentationPath) == "" {
		return nil, errors.New("rasterize: presentation path required")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("rasterize: create %s: %w", destDir, err)
	}

	var pages []renderedPage
	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(1<<(attempt-2))):
			}
		}
		var retryable bool
		pages, retryable, lastErr = c.render(ctx, presentationPath)
		if lastErr == nil {
			break
		}
		if !retryable {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	paths := make([]string, 0, len(pages))
	for i, page := range pages {
		if page.Index != i {
			return nil, fmt.Errorf("rasterize: non-contiguous page indices, missing page %d", i)
		}
		data, err := base64.StdEncoding.DecodeString(page.Image)
		if err != nil {
			return nil, fmt.Errorf("rasterize: decode page %d: %w", page.Index, err)
		}
		target := filepath.Join(destDir, fmt.Sprintf("slide-%03d.png", page.Index))
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return nil, fmt.Errorf("rasterize: write page %d: %w", page.Index, err)
		}
		paths = append(paths, target)
	}
	if len(paths) == 0 {
		return nil, errors.New("rasterize: service returned no pages")
	}
	return paths, nil
}

// render performs one upload attempt. The second return value reports whether
// the failure is worth retrying.
func (c *Client) render(ctx context.Context, presentationPath string) ([]renderedPage, bool, error) {
	file, err := os.Open(presentationPath)
	if err != nil {
		return nil, false, fmt.Errorf("rasterize: open presentation: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("presentation", filepath.Base(presentationPath))
	if err != nil {
		return nil, false, fmt.Errorf("rasterize: build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, false, fmt.Errorf("rasterize: read presentation: %w", err)
	}
	if err := writer.WriteField("format", "png"); err != nil {
		return nil, false, fmt.Errorf("rasterize: build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, false, fmt.Errorf("rasterize: build upload: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/render")
	if err != nil {
		return nil, false, fmt.Errorf("rasterize: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, false, fmt.Errorf("rasterize: request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("rasterize: request failed: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("rasterize: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("rasterize: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("rasterize: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	var decoded renderResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, false, fmt.Errorf("rasterize: decode response: %w", err)
	}
	if decoded.Error != "" {
		return nil, false, fmt.Errorf("rasterize: service error: %s", decoded.Error)
	}
	return decoded.Pages, false, nil
}

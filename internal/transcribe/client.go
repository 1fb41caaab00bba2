// Package transcribe talks to the speech-to-text provider. The provider
// accepts a mono 16kHz WAV upload and returns timed transcript segments.
package transcribe

import (
	"bytes"
	"context"
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

// Segment is one timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the provider response after normalization.
type Result struct {
	Language string
	Segments []Segment
}

// Client uploads audio and retrieves transcripts.
type Client struct {
	baseURL       string
	apiKey        string
	language      string
	httpClient    *http.Client
	retryAttempts int
	retryBackoff  time.Duration
}

// Option customizes the transcription client.
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

// New constructs a transcription client from configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	timeout := time.Duration(cfg.Transcription.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	attempts := cfg.Transcription.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(cfg.Transcription.RetryBackoff) * time.Second
	if backoff < 0 {
		backoff = 0
	}
	client := &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.Transcription.URL), "/"),
		apiKey:        strings.TrimSpace(cfg.Transcription.APIKey),
		language:      strings.TrimSpace(cfg.Transcription.Language),
		httpClient:    &http.Client{Timeout: timeout},
		retryAttempts: attempts,
		retryBackoff:  backoff,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type transcribeResponse struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
	Error    string    `json:"error"`
}

// Transcribe uploads the audio file at audioPath and returns the transcript
// segments ordered by start time. Language overrides the configured default
// when non-empty.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (Result, error) {
	var empty Result
	if c.baseURL == "" {
		return empty, errors.New("transcribe: service url not configured")
	}
	if strings.TrimSpace(audioPath) == "" {
		return empty, errors.New("transcribe: audio path required")
	}
	if language = strings.TrimSpace(language); language == "" {
		language = c.language
	}

	var decoded transcribeResponse
	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return empty, ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(1<<(attempt-2))):
			}
		}
		var retryable bool
		decoded, retryable, lastErr = c.request(ctx, audioPath, language)
		if lastErr == nil {
			break
		}
		if !retryable {
			return empty, lastErr
		}
	}
	if lastErr != nil {
		return empty, lastErr
	}

	segments := make([]Segment, 0, len(decoded.Segments))
	for i, seg := range decoded.Segments {
		if seg.End < seg.Start {
			return empty, fmt.Errorf("transcribe: segment %d ends before it starts (%.3f < %.3f)", i, seg.End, seg.Start)
		}
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		segments = append(segments, seg)
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
	return Result{Language: decoded.Language, Segments: segments}, nil
}

func (c *Client) request(ctx context.Context, audioPath, language string) (transcribeResponse, bool, error) {
	var empty transcribeResponse
	file, err := os.Open(audioPath)
	if err != nil {
		return empty, false, fmt.Errorf("transcribe: open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return empty, false, fmt.Errorf("transcribe: build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return empty, false, fmt.Errorf("transcribe: read audio: %w", err)
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return empty, false, fmt.Errorf("transcribe: build upload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return empty, false, fmt.Errorf("transcribe: build upload: %w", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/transcribe")
	if err != nil {
		return empty, false, fmt.Errorf("transcribe: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return empty, false, fmt.Errorf("transcribe: request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, true, fmt.Errorf("transcribe: request failed: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, true, fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return empty, true, fmt.Errorf("transcribe: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if resp.StatusCode != http.StatusOK {
		return empty, false, fmt.Errorf("transcribe: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	var decoded transcribeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return empty, false, fmt.Errorf("transcribe: decode response: %w", err)
	}
	if decoded.Error != "" {
		return empty, false, fmt.Errorf("transcribe: service error: %s", decoded.Error)
	}
	return decoded, false, nil
}

package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"lecturesync/internal/testsupport"
)

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	testsupport.WriteFile(t, path, 4096)
	return path
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Transcription.URL = server.URL
	cfg.Transcription.APIKey = "stt-key"
	cfg.Transcription.Language = "en"
	return New(cfg, opts...)
}

func TestTranscribeReturnsOrderedSegments(t *testing.T) {
	var gotAuth, gotLanguage string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("missing audio part: %v", err)
		}
		gotLanguage = r.FormValue("language")
		json.NewEncoder(w).Encode(map[string]any{
			"language": "en",
			"segments": []map[string]any{
				// Out of order and with noise the client must clean up.
				{"start": 5.0, "end": 9.5, "text": "second thought"},
				{"start": 0.0, "end": 4.5, "text": "  first thought "},
				{"start": 9.5, "end": 9.5, "text": "   "},
			},
		})
	}))

	result, err := client.Transcribe(context.Background(), audioFixture(t), "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if gotAuth != "Bearer stt-key" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotLanguage != "en" {
		t.Fatalf("expected configured language en, got %q", gotLanguage)
	}
	if result.Language != "en" {
		t.Fatalf("expected detected language en, got %q", result.Language)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments after dropping blank text, got %d", len(result.Segments))
	}
	if result.Segments[0].Text != "first thought" || result.Segments[0].Start != 0 {
		t.Fatalf("expected trimmed first segment at t=0, got %+v", result.Segments[0])
	}
	if result.Segments[1].Start != 5.0 {
		t.Fatalf("expected second segment at t=5, got %+v", result.Segments[1])
	}
}

func TestTranscribeLanguageOverride(t *testing.T) {
	var gotLanguage string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(16 << 20)
		gotLanguage = r.FormValue("language")
		json.NewEncoder(w).Encode(map[string]any{"segments": []any{}})
	}))

	if _, err := client.Transcribe(context.Background(), audioFixture(t), "de"); err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if gotLanguage != "de" {
		t.Fatalf("expected language override de, got %q", gotLanguage)
	}
}

func TestTranscribeRetriesTransientFailures(t *testing.T) {
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		switch attempts {
		case 1:
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		case 2:
			http.Error(w, "slow down", http.StatusTooManyRequests)
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"segments": []map[string]any{{"start": 0.0, "end": 1.0, "text": "ok"}},
			})
		}
	}), WithRetry(3, 0))

	result, err := client.Transcribe(context.Background(), audioFixture(t), "")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(result.Segments))
	}
}

func TestTranscribeDoesNotRetryBadRequests(t *testing.T) {
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "unsupported sample rate", http.StatusBadRequest)
	}), WithRetry(3, 0))

	if _, err := client.Transcribe(context.Background(), audioFixture(t), ""); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestTranscribeRejectsInvertedSegment(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"segments": []map[string]any{{"start": 4.0, "end": 2.0, "text": "backwards"}},
		})
	}))
	if _, err := client.Transcribe(context.Background(), audioFixture(t), ""); err == nil {
		t.Fatal("expected error for segment ending before it starts")
	}
}

func TestTranscribeReportsServicePayloadError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "audio too long"})
	}))
	if _, err := client.Transcribe(context.Background(), audioFixture(t), ""); err == nil {
		t.Fatal("expected error from service payload")
	}
}

func TestTranscribeRequiresConfiguredURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.URL = ""
	client := New(cfg)
	if _, err := client.Transcribe(context.Background(), audioFixture(t), ""); err == nil {
		t.Fatal("expected error when service url missing")
	}
}

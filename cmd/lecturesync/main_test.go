package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lecturesync/internal/config"
)

func writeConfigFile(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Transcription.URL = "https://stt.test.invalid/v1"
	cfg.Transcription.APIKey = "secret-token"
	cfg.Rasterizer.URL = "https://raster.test.invalid"

	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	output, err := runCommand(t, "config", "init", "--output", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("expected output to name %s, got %q", target, output)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--output", target); err == nil {
		t.Fatal("expected error when target already exists without --overwrite")
	}
	if _, err := runCommand(t, "config", "init", "--output", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestAddAndListLecture(t *testing.T) {
	configPath := writeConfigFile(t)
	presentation := filepath.Join(t.TempDir(), "algorithms.pdf")
	if err := os.WriteFile(presentation, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write presentation: %v", err)
	}

	output, err := runCommand(t, "--config", configPath,
		"add", "https://videos.test.invalid/algo", presentation)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(output, "Queued lecture 1: algorithms") {
		t.Fatalf("unexpected add output %q", output)
	}

	output, err = runCommand(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(output, "algorithms") || !strings.Contains(output, "pending") {
		t.Fatalf("expected queued lecture in list output, got %q", output)
	}

	output, err = runCommand(t, "--config", configPath, "queue", "stats")
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	if !strings.Contains(output, "pending") || !strings.Contains(output, "1") {
		t.Fatalf("expected pending count in stats output, got %q", output)
	}
}

func TestAddRejectsMissingPresentation(t *testing.T) {
	configPath := writeConfigFile(t)
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	if _, err := runCommand(t, "--config", configPath,
		"add", "https://videos.test.invalid/algo", missing); err == nil {
		t.Fatal("expected error for missing presentation file")
	}
}

func TestStatusCommandEmptyQueue(t *testing.T) {
	configPath := writeConfigFile(t)
	output, err := runCommand(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(output, "Queue is empty") {
		t.Fatalf("expected empty queue message, got %q", output)
	}
}

func TestStatusCommandUnknownLecture(t *testing.T) {
	configPath := writeConfigFile(t)
	if _, err := runCommand(t, "--config", configPath, "status", "42"); err == nil {
		t.Fatal("expected error for unknown lecture id")
	}
}

func TestQueueClearAndRetry(t *testing.T) {
	configPath := writeConfigFile(t)
	presentation := filepath.Join(t.TempDir(), "deck.pdf")
	if err := os.WriteFile(presentation, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write presentation: %v", err)
	}
	if _, err := runCommand(t, "--config", configPath,
		"add", "https://videos.test.invalid/deck", presentation); err != nil {
		t.Fatalf("add: %v", err)
	}

	output, err := runCommand(t, "--config", configPath, "queue", "retry")
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	if !strings.Contains(output, "Requeued 0") {
		t.Fatalf("expected no failed lectures to requeue, got %q", output)
	}

	output, err = runCommand(t, "--config", configPath, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(output, "Cleared 1") {
		t.Fatalf("expected one cleared lecture, got %q", output)
	}
}

func TestLanguageName(t *testing.T) {
	if got := languageName("en"); got != "English (en)" {
		t.Fatalf("expected English (en), got %q", got)
	}
	if got := languageName("not-a-code-???"); got != "not-a-code-???" {
		t.Fatalf("expected passthrough for invalid code, got %q", got)
	}
}

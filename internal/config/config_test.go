package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lecturesync/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	t.Setenv("LECTURESYNC_TRANSCRIPTION_URL", "https://stt.example.com/v1")
	t.Setenv("LECTURESYNC_TRANSCRIPTION_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "lecturesync")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7523" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Transcription.URL != "https://stt.example.com/v1" {
		t.Fatalf("expected transcription url from env, got %q", cfg.Transcription.URL)
	}
	if cfg.Transcription.APIKey != "test-key" {
		t.Fatalf("expected transcription key from env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Matching.Detector != "orb" {
		t.Fatalf("unexpected default detector: %q", cfg.Matching.Detector)
	}
	if cfg.Matching.RatioThreshold != 0.75 {
		t.Fatalf("unexpected ratio threshold: %v", cfg.Matching.RatioThreshold)
	}
	if cfg.Matching.DebounceVotes != config.Default().Matching.DebounceVotes {
		t.Fatalf("unexpected debounce votes: %d", cfg.Matching.DebounceVotes)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.WorkDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "lecturesync.toml")

	type payload struct {
		Transcription struct {
			URL      string `toml:"url"`
			Language string `toml:"language"`
		} `toml:"transcription"`
		Matching struct {
			Detector       string  `toml:"detector"`
			SampleInterval float64 `toml:"sample_interval"`
			DebounceVotes  int     `toml:"debounce_votes"`
		} `toml:"matching"`
	}
	custom := payload{}
	custom.Transcription.URL = "https://stt.example.com/v2"
	custom.Transcription.Language = "HE"
	custom.Matching.Detector = "SIFT"
	custom.Matching.SampleInterval = 5
	custom.Matching.DebounceVotes = 2
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Transcription.URL != "https://stt.example.com/v2" {
		t.Fatalf("expected transcription url from file, got %q", cfg.Transcription.URL)
	}
	if cfg.Transcription.Language != "he" {
		t.Fatalf("expected language lowercased, got %q", cfg.Transcription.Language)
	}
	if cfg.Matching.Detector != "sift" {
		t.Fatalf("expected detector lowercased, got %q", cfg.Matching.Detector)
	}
	if cfg.Matching.SampleInterval != 5 {
		t.Fatalf("expected sample interval 5, got %v", cfg.Matching.SampleInterval)
	}
	if cfg.Matching.DebounceVotes != 2 {
		t.Fatalf("expected debounce votes 2, got %d", cfg.Matching.DebounceVotes)
	}
	if cfg.Matching.MaxFeatures != config.Default().Matching.MaxFeatures {
		t.Fatalf("expected default max features, got %d", cfg.Matching.MaxFeatures)
	}
}

func TestEnvVarFillsMissingAPIKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "lecturesync.toml")

	type payload struct {
		Transcription struct {
			URL string `toml:"url"`
		} `toml:"transcription"`
		Rasterizer struct {
			URL string `toml:"url"`
		} `toml:"rasterizer"`
	}
	custom := payload{}
	custom.Transcription.URL = "https://stt.example.com/v1"
	custom.Rasterizer.URL = "https://raster.example.com"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("LECTURESYNC_TRANSCRIPTION_API_KEY", "env-stt")
	t.Setenv("LECTURESYNC_RASTERIZER_API_KEY", "env-raster")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Transcription.APIKey != "env-stt" {
		t.Errorf("expected transcription key from env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Rasterizer.APIKey != "env-raster" {
		t.Errorf("expected rasterizer key from env, got %q", cfg.Rasterizer.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[transcription]") {
		t.Fatalf("sample config missing transcription section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Matching.Detector != "orb" {
		t.Fatalf("expected sample detector orb, got %q", cfg.Matching.Detector)
	}
	if cfg.Matching.RatioThreshold != 0.75 {
		t.Fatalf("expected sample ratio 0.75, got %v", cfg.Matching.RatioThreshold)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Transcription.URL = "https://stt.example.com/v1"
		return cfg
	}

	cfg := base()
	cfg.Matching.Detector = "akaze"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown detector")
	}

	cfg = base()
	cfg.Matching.RatioThreshold = 1.2
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ratio threshold out of range")
	}

	cfg = base()
	cfg.Matching.SampleInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive sample interval")
	}

	cfg = base()
	cfg.Matching.DebounceVotes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for debounce votes below one")
	}

	cfg = base()
	cfg.Transcription.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when transcription url missing")
	}

	cfg = base()
	cfg.Workflow.QueuePollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive poll interval")
	}
}

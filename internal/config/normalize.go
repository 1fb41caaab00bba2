package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeRasterizer()
	c.normalizeTranscription()
	c.normalizeMatching()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	if strings.TrimSpace(c.Acquisition.FFmpegBinary) == "" {
		c.Acquisition.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(c.Acquisition.FFprobeBinary) == "" {
		c.Acquisition.FFprobeBinary = "ffprobe"
	}
	if strings.TrimSpace(c.Acquisition.YtDlpBinary) == "" {
		c.Acquisition.YtDlpBinary = "yt-dlp"
	}
	if c.Acquisition.DownloadTimeout <= 0 {
		c.Acquisition.DownloadTimeout = defaultDownloadTimeout
	}
}

func (c *Config) normalizeRasterizer() {
	c.Rasterizer.URL = strings.TrimSpace(c.Rasterizer.URL)
	c.Rasterizer.APIKey = strings.TrimSpace(c.Rasterizer.APIKey)
	if c.Rasterizer.APIKey == "" {
		if value, ok := os.LookupEnv("LECTURESYNC_RASTERIZER_API_KEY"); ok {
			c.Rasterizer.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Rasterizer.RequestTimeout <= 0 {
		c.Rasterizer.RequestTimeout = defaultRasterizerTimeout
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.URL = strings.TrimSpace(c.Transcription.URL)
	if c.Transcription.URL == "" {
		if value, ok := os.LookupEnv("LECTURESYNC_TRANSCRIPTION_URL"); ok {
			c.Transcription.URL = strings.TrimSpace(value)
		}
	}
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.APIKey == "" {
		if value, ok := os.LookupEnv("LECTURESYNC_TRANSCRIPTION_API_KEY"); ok {
			c.Transcription.APIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultTranscribeLanguage
	}
	if c.Transcription.RequestTimeout <= 0 {
		c.Transcription.RequestTimeout = defaultTranscribeTimeout
	}
	if c.Transcription.RetryAttempts < 0 {
		c.Transcription.RetryAttempts = 0
	}
	if c.Transcription.RetryBackoff <= 0 {
		c.Transcription.RetryBackoff = defaultRetryBackoff
	}
}

func (c *Config) normalizeMatching() {
	c.Matching.Detector = strings.ToLower(strings.TrimSpace(c.Matching.Detector))
	if c.Matching.Detector == "" {
		c.Matching.Detector = defaultDetector
	}
	if c.Matching.MaxFeatures <= 0 {
		c.Matching.MaxFeatures = defaultMaxFeatures
	}
	if c.Matching.RatioThreshold <= 0 {
		c.Matching.RatioThreshold = defaultRatioThreshold
	}
	if c.Matching.MinMatchCount <= 0 {
		c.Matching.MinMatchCount = defaultMinMatchCount
	}
	if c.Matching.MinMargin < 0 {
		c.Matching.MinMargin = defaultMinMargin
	}
	if c.Matching.SampleInterval <= 0 {
		c.Matching.SampleInterval = defaultSampleInterval
	}
	if c.Matching.DebounceVotes <= 0 {
		c.Matching.DebounceVotes = defaultDebounceVotes
	}
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = defaultMatchWorkers
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

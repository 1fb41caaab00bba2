package config

import (
	"errors"
	"fmt"
)

var knownDetectors = map[string]struct{}{
	"orb":      {},
	"brisk":    {},
	"sift":     {},
	"template": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if _, ok := knownDetectors[c.Matching.Detector]; !ok {
		return fmt.Errorf("matching.detector: unknown detector %q (expected orb, brisk, sift, or template)", c.Matching.Detector)
	}
	if c.Matching.RatioThreshold <= 0 || c.Matching.RatioThreshold >= 1 {
		return errors.New("matching.ratio_threshold must be between 0 and 1 exclusive")
	}
	if c.Matching.SampleInterval <= 0 {
		return errors.New("matching.sample_interval must be positive")
	}
	if c.Matching.DebounceVotes < 1 {
		return errors.New("matching.debounce_votes must be at least 1")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/lecturesync/config.toml"
		}
		return fmt.Errorf("transcription.url is required. Edit %s (create with 'lecturesync config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}

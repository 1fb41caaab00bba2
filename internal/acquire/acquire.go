// Package acquire fetches lecture videos and extracts audio tracks for
// transcription. Remote sources go through yt-dlp; local files are used in
// place.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"lecturesync/internal/config"
)

// commandContext is swapped in tests so command construction can be observed
// without real binaries on PATH.
var commandContext = exec.CommandContext

const downloadStem = "video"

// Client downloads videos and extracts audio using external tools.
type Client struct {
	ffmpeg          string
	ytdlp           string
	downloadTimeout time.Duration
}

// New constructs a Client from the acquisition configuration.
func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Acquisition.DownloadTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		ffmpeg:          cfg.Acquisition.FFmpegBinary,
		ytdlp:           cfg.Acquisition.YtDlpBinary,
		downloadTimeout: timeout,
	}
}

// IsLocal reports whether source names an existing file on disk rather than
// a URL to download.
func IsLocal(source string) bool {
	if strings.Contains(source, "://") {
		return false
	}
	info, err := os.Stat(source)
	return err == nil && info.Mode().IsRegular()
}

// Fetch resolves source into a playable video file under destDir. Local
// files are returned as absolute paths without copying; everything else is
// downloaded with yt-dlp.
func (c *Client) Fetch(ctx context.Context, source, destDir string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", errors.New("fetch video: source required")
	}
	if IsLocal(source) {
		absolute, err := filepath.Abs(source)
		if err != nil {
			return "", fmt.Errorf("fetch video: resolve %s: %w", source, err)
		}
		return absolute, nil
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("fetch video: create %s: %w", destDir, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	template := filepath.Join(destDir, downloadStem+".%(ext)s")
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b",
		"-o", template,
		source,
	}
	cmd := commandContext(ctx, c.ytdlp, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return "", fmt.Errorf("download %s: %w: %s", source, err, detail)
		}
		return "", fmt.Errorf("download %s: %w", source, err)
	}
	return findDownloaded(destDir, source)
}

func findDownloaded(destDir, source string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(destDir, downloadStem+".*"))
	if err != nil {
		return "", fmt.Errorf("download %s: locate output: %w", source, err)
	}
	for _, match := range matches {
		// yt-dlp leaves .part files behind on interrupted downloads.
		if filepath.Ext(match) == ".part" {
			continue
		}
		return match, nil
	}
	return "", fmt.Errorf("download %s: yt-dlp produced no output file", source)
}

// ExtractAudio writes the audio track of videoPath to dest as a mono 16kHz
// WAV file suitable for the transcription service.
func (c *Client) ExtractAudio(ctx context.Context, videoPath, dest string) error {
	if strings.TrimSpace(videoPath) == "" {
		return errors.New("extract audio: video path required")
	}
	if strings.TrimSpace(dest) == "" {
		return errors.New("extract audio: destination required")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := commandContext(ctx, c.ffmpeg, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

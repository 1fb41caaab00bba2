package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/services"
	"lecturesync/internal/stage"
)

// Fetcher is the slice of the acquisition client the download stage needs.
type Fetcher interface {
	Fetch(ctx context.Context, source, destDir string) (string, error)
	ExtractAudio(ctx context.Context, videoPath, dest string) error
}

// DurationProber reports a video's container duration in seconds.
type DurationProber interface {
	Duration(ctx context.Context, videoPath string) (float64, error)
}

// DownloadStage resolves the lecture video, extracts its audio track, and
// records the video duration.
type DownloadStage struct {
	cfg     *config.Config
	fetcher Fetcher
	prober  DurationProber
	logger  *slog.Logger
}

// NewDownloadStage builds the acquisition stage handler.
func NewDownloadStage(cfg *config.Config, fetcher Fetcher, prober DurationProber, logger *slog.Logger) *DownloadStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DownloadStage{cfg: cfg, fetcher: fetcher, prober: prober, logger: logger}
}

func (s *DownloadStage) Prepare(ctx context.Context, lec *lecture.Lecture) error {
	if strings.TrimSpace(lec.SourceURL) == "" {
		return services.Wrap(services.ErrValidation, "download", "validate source",
			"Lecture has no video source", nil)
	}
	if strings.TrimSpace(lec.PresentationPath) == "" {
		return services.Wrap(services.ErrValidation, "download", "validate presentation",
			"Lecture has no presentation file", nil)
	}
	if _, err := os.Stat(lec.PresentationPath); err != nil {
		return services.Wrap(services.ErrValidation, "download", "validate presentation",
			fmt.Sprintf("Presentation file %s is not readable", lec.PresentationPath), err)
	}
	lec.InitProgress("Downloading", "Fetching lecture video")
	return nil
}

func (s *DownloadStage) Execute(ctx context.Context, lec *lecture.Lecture) error {
	workDir := LectureWorkDir(s.cfg, lec.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrAcquisition, "download", "create work directory",
			"Could not create lecture work directory", err)
	}

	videoPath, err := s.fetcher.Fetch(ctx, lec.SourceURL, workDir)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, "download", "fetch video",
			"Video download failed; check the source URL", err)
	}
	lec.VideoPath = videoPath
	lec.SetProgress("Downloading", "Extracting audio track", 50)

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := s.fetcher.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return services.Wrap(services.ErrAcquisition, "download", "extract audio",
			"Audio extraction failed; the video may have no audio track", err)
	}
	lec.AudioPath = audioPath

	duration, err := s.prober.Duration(ctx, videoPath)
	if err != nil {
		return services.Wrap(services.ErrAcquisition, "download", "probe duration",
			"Could not determine video duration", err)
	}
	lec.Duration = duration

	logging.WithContext(ctx, s.logger).Info("video acquired",
		logging.String("video", videoPath),
		logging.Float64("duration_seconds", duration))
	lec.SetProgress("Downloading", "Video ready", 100)
	return nil
}

func (s *DownloadStage) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range []string{s.cfg.Acquisition.FFmpegBinary, s.cfg.Acquisition.FFprobeBinary, s.cfg.Acquisition.YtDlpBinary} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy("download", fmt.Sprintf("%s not found on PATH", binary))
		}
	}
	return stage.Healthy("download")
}

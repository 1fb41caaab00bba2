package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/match"
	"lecturesync/internal/sampler"
	"lecturesync/internal/services"
	"lecturesync/internal/smooth"
	"lecturesync/internal/stage"
	"lecturesync/internal/vision"
)

// FrameSampler is the slice of the sampler the match stage needs.
type FrameSampler interface {
	Interval() float64
	Duration(ctx context.Context, videoPath string) (float64, error)
	Sample(ctx context.Context, videoPath, dir string) (*sampler.Sequence, error)
}

// MatchStage samples video frames, votes each against the rendered slides,
// and smooths the votes into a slide timeline.
type MatchStage struct {
	cfg    *config.Config
	store  *lecture.Store
	frames FrameSampler
	logger *slog.Logger
}

// NewMatchStage builds the slide matching stage handler.
func NewMatchStage(cfg *config.Config, store *lecture.Store, frames FrameSampler, logger *slog.Logger) *MatchStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MatchStage{cfg: cfg, store: store, frames: frames, logger: logger}
}

func (s *MatchStage) Prepare(ctx context.Context, lec *lecture.Lecture) error {
	if strings.TrimSpace(lec.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, "match", "validate video",
			"Lecture has no video file; rerun the download stage", nil)
	}
	if _, err := os.Stat(lec.VideoPath); err != nil {
		return services.Wrap(services.ErrValidation, "match", "validate video",
			fmt.Sprintf("Video file %s is not readable", lec.VideoPath), err)
	}
	if _, err := vision.NewDetector(s.cfg.Matching.Detector, s.cfg.Matching.MaxFeatures); err != nil {
		return services.Wrap(services.ErrConfiguration, "match", "build detector",
			"Unknown slide detector configured", err)
	}
	lec.InitProgress("Matching slides", "Sampling video frames")
	return nil
}

func (s *MatchStage) Execute(ctx context.Context, lec *lecture.Lecture) error {
	logger := logging.WithContext(ctx, s.logger)

	slides, err := s.store.SlidesForLecture(ctx, lec.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "match", "load slides",
			"Could not load rendered slides", err)
	}
	if len(slides) == 0 {
		return services.Wrap(services.ErrValidation, "match", "load slides",
			"No slides rendered for this lecture; rerun the slides stage", nil)
	}

	detector, err := vision.NewDetector(s.cfg.Matching.Detector, s.cfg.Matching.MaxFeatures)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "match", "build detector",
			"Unknown slide detector configured", err)
	}

	duration := lec.Duration
	if duration <= 0 {
		duration, err = s.frames.Duration(ctx, lec.VideoPath)
		if err != nil {
			return services.Wrap(services.ErrMatching, "match", "probe duration",
				"Could not determine video duration", err)
		}
		lec.Duration = duration
	}

	signatures := make([]vision.Signature, len(slides))
	for i, slide := range slides {
		sig, err := vision.ExtractFile(detector, slide.ImagePath)
		if err != nil {
			return services.Wrap(services.ErrMatching, "match", "extract slide features",
				fmt.Sprintf("Could not read slide image %s", slide.ImagePath), err)
		}
		signatures[i] = sig
	}
	lec.SetProgress("Matching slides", "Extracting frame features", 20)

	frameDir := filepath.Join(LectureWorkDir(s.cfg, lec.ID), "frames")
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return services.Wrap(services.ErrMatching, "match", "create frame directory",
			"Could not create frame directory", err)
	}
	sequence, err := s.frames.Sample(ctx, lec.VideoPath, frameDir)
	if err != nil {
		return services.Wrap(services.ErrMatching, "match", "sample frames",
			"Frame extraction failed", err)
	}

	frames := make([]match.Frame, 0, sequence.Len())
	for {
		sampled, ok := sequence.Next()
		if !ok {
			break
		}
		sig, err := vision.ExtractFile(detector, sampled.Path)
		if err != nil {
			return services.Wrap(services.ErrMatching, "match", "extract frame features",
				fmt.Sprintf("Could not read frame image %s", sampled.Path), err)
		}
		frames = append(frames, match.Frame{Timestamp: sampled.Timestamp, Signature: sig})
	}
	lec.SetProgress("Matching slides", "Voting frames against slides", 50)

	matcher := match.NewMatcher(signatures, match.Options{
		RatioThreshold: s.cfg.Matching.RatioThreshold,
		MinMatchCount:  s.cfg.Matching.MinMatchCount,
		MinMargin:      s.cfg.Matching.MinMargin,
		NormalizeScore: s.cfg.Matching.NormalizeScore,
	})
	series, err := matcher.VoteSeries(ctx, frames, s.cfg.Matching.Workers)
	if err != nil {
		return services.Wrap(services.ErrMatching, "match", "vote frames",
			"Frame voting did not finish", err)
	}

	intervals := smooth.New(s.cfg.Matching.DebounceVotes).Intervals(series.Votes, duration)
	timeline := lecture.Timeline{
		Intervals:      intervals,
		SampledFrames:  len(frames),
		AbstainedVotes: series.Abstained,
	}
	if err := s.store.SaveTimeline(ctx, lec.ID, timeline); err != nil {
		return services.Wrap(services.ErrPersistence, "match", "save timeline",
			"Could not persist slide timeline", err)
	}
	encoded, err := timeline.Encode()
	if err != nil {
		return services.Wrap(services.ErrPersistence, "match", "encode timeline",
			"Could not encode slide timeline", err)
	}
	lec.TimelineData = encoded

	logger.Info("timeline computed",
		logging.Int("interval_count", len(intervals)),
		logging.Int("sampled_frames", len(frames)),
		logging.Int("abstained_votes", series.Abstained),
		logging.String("detector", detector.Name()))
	lec.SetProgress("Matching slides", fmt.Sprintf("%d timeline intervals", len(intervals)), 100)
	return nil
}

func (s *MatchStage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := vision.NewDetector(s.cfg.Matching.Detector, s.cfg.Matching.MaxFeatures); err != nil {
		return stage.Unhealthy("match", fmt.Sprintf("detector %q not available", s.cfg.Matching.Detector))
	}
	return stage.Healthy("match")
}

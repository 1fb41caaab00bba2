// Package sampler extracts evenly spaced video frames with ffmpeg and
// probes container duration with ffprobe.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"lecturesync/internal/config"
)

// commandContext is swapped in tests so command construction can be observed
// without real ffmpeg/ffprobe binaries.
var commandContext = exec.CommandContext

const framePattern = "frame-%06d.png"

// Sampler produces one frame every interval seconds from a video file.
type Sampler struct {
	ffmpeg   string
	ffprobe  string
	interval float64
}

// Option customizes a Sampler.
type Option func(*Sampler)

// WithInterval overrides the sampling interval in seconds.
func WithInterval(seconds float64) Option {
	return func(s *Sampler) {
		if seconds > 0 {
			s.interval = seconds
		}
	}
}

// New constructs a Sampler from the acquisition and matching configuration.
func New(cfg *config.Config, opts ...Option) *Sampler {
	s := &Sampler{
		ffmpeg:   cfg.Acquisition.FFmpegBinary,
		ffprobe:  cfg.Acquisition.FFprobeBinary,
		interval: cfg.Matching.SampleInterval,
	}
	if s.interval <= 0 {
		s.interval = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval reports the sampling interval in seconds.
func (s *Sampler) Interval() float64 {
	return s.interval
}

// Duration probes the container duration of videoPath in seconds.
func (s *Sampler) Duration(ctx context.Context, videoPath string) (float64, error) {
	if strings.TrimSpace(videoPath) == "" {
		return 0, errors.New("probe duration: video path required")
	}
	cmd := commandContext(ctx, s.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe duration for %s: %w", videoPath, err)
	}
	text := strings.TrimSpace(string(output))
	seconds, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration for %s: parse %q: %w", videoPath, text, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("probe duration for %s: non-positive duration %g", videoPath, seconds)
	}
	return seconds, nil
}

// Sample extracts frames from videoPath into dir and returns an ordered
// sequence of them. Frame i carries timestamp i*interval. The extraction is
// eager; decoding the images is left to the consumer.
func (s *Sampler) Sample(ctx context.Context, videoPath, dir string) (*Sequence, error) {
	if strings.TrimSpace(videoPath) == "" {
		return nil, errors.New("sample frames: video path required")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("sample frames: output directory required")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%g", s.interval),
		"-fps_mode", "vfr",
		filepath.Join(dir, framePattern),
	}
	cmd := commandContext(ctx, s.ffmpeg, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return nil, fmt.Errorf("sample frames from %s: %w: %s", videoPath, err, detail)
		}
		return nil, fmt.Errorf("sample frames from %s: %w", videoPath, err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "frame-*.png"))
	if err != nil {
		return nil, fmt.Errorf("sample frames from %s: list output: %w", videoPath, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("sample frames from %s: ffmpeg produced no frames", videoPath)
	}
	sort.Strings(paths)
	return &Sequence{interval: s.interval, paths: paths}, nil
}

// NewSequence builds a Sequence over already extracted frame files, in the
// order given. Frame i carries timestamp i*interval.
func NewSequence(interval float64, paths []string) *Sequence {
	if interval <= 0 {
		interval = 1
	}
	return &Sequence{interval: interval, paths: paths}
}

// Frame is one sampled video frame on disk.
type Frame struct {
	Timestamp float64
	Path      string
}

// Sequence iterates sampled frames in timestamp order. It is consumed by
// Next and cannot be rewound; resample the video to iterate again.
type Sequence struct {
	interval float64
	paths    []string
	pos      int
}

// Len reports the total number of sampled frames.
func (q *Sequence) Len() int {
	return len(q.paths)
}

// Next returns the next frame in order, or false once the sequence is
// exhausted.
func (q *Sequence) Next() (Frame, bool) {
	if q.pos >= len(q.paths) {
		return Frame{}, false
	}
	frame := Frame{
		Timestamp: float64(q.pos) * q.interval,
		Path:      q.paths[q.pos],
	}
	q.pos++
	return frame, true
}

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/sampler"
	"lecturesync/internal/testsupport"
	"lecturesync/internal/transcribe"
)

// slidePattern renders deterministic pseudo-noise unique to each slide so the
// template detector sees distinct content everywhere.
func slidePattern(slide int) func(x, y int) uint8 {
	return func(x, y int) uint8 {
		v := (x+7*slide+1)*(y+5*slide+3) + x*31 + y*17
		return uint8(30 + v%200)
	}
}

// frameSchedule maps each sampled frame index (2s apart over a 30s video) to
// the slide shown at that moment. Frame 7 (t=14) is a single glitched frame.
var frameSchedule = []int{0, 0, 0, 0, 0, 1, 1, 2, 1, 1, 2, 2, 2, 2, 2}

type e2eFetcher struct{}

func (e2eFetcher) Fetch(ctx context.Context, source, destDir string) (string, error) {
	path := filepath.Join(destDir, "video.mp4")
	return path, os.WriteFile(path, []byte("video"), 0o644)
}

func (e2eFetcher) ExtractAudio(ctx context.Context, videoPath, dest string) error {
	return os.WriteFile(dest, []byte("audio"), 0o644)
}

type e2eProber struct{ duration float64 }

func (p e2eProber) Duration(ctx context.Context, videoPath string) (float64, error) {
	return p.duration, nil
}

type e2eRenderer struct{ t *testing.T }

func (r e2eRenderer) Render(ctx context.Context, presentationPath, destDir string) ([]string, error) {
	paths := make([]string, 3)
	for i := range paths {
		paths[i] = filepath.Join(destDir, fmt.Sprintf("slide-%03d.png", i))
		testsupport.WritePNG(r.t, paths[i], 64, 64, slidePattern(i))
	}
	return paths, nil
}

type e2eTranscriber struct{}

func (e2eTranscriber) Transcribe(ctx context.Context, audioPath, language string) (transcribe.Result, error) {
	return transcribe.Result{
		Language: "en",
		Segments: []transcribe.Segment{
			{Start: 1, End: 3, Text: "welcome to the course"},
			{Start: 12, End: 13, Text: "now the second topic"},
			{Start: 25, End: 29, Text: "closing remarks"},
		},
	}, nil
}

type e2eSampler struct {
	t        *testing.T
	duration float64
}

func (s e2eSampler) Interval() float64 { return 2 }

func (s e2eSampler) Duration(ctx context.Context, videoPath string) (float64, error) {
	return s.duration, nil
}

func (s e2eSampler) Sample(ctx context.Context, videoPath, dir string) (*sampler.Sequence, error) {
	paths := make([]string, len(frameSchedule))
	for i, slide := range frameSchedule {
		paths[i] = filepath.Join(dir, fmt.Sprintf("frame-%06d.png", i+1))
		testsupport.WritePNG(s.t, paths[i], 64, 64, slidePattern(slide))
	}
	return sampler.NewSequence(2, paths), nil
}

func e2eConfig(t *testing.T) *config.Config {
	return testsupport.NewConfig(t,
		testsupport.WithDetector("template"),
		testsupport.WithMatching(func(m *config.Matching) {
			m.MinMatchCount = 5
			m.MinMargin = 3
			m.DebounceVotes = 2
			m.Workers = 2
			m.SampleInterval = 2
		}))
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := e2eConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	stages := StageSet{
		Download:   NewDownloadStage(cfg, e2eFetcher{}, e2eProber{duration: 30}, logger),
		Slides:     NewSlidesStage(cfg, store, e2eRenderer{t: t}, logger),
		Transcribe: NewTranscribeStage(cfg, store, e2eTranscriber{}, logger),
		Match:      NewMatchStage(cfg, store, e2eSampler{t: t, duration: 30}, logger),
		Save:       NewSaveStage(cfg, store, logger),
	}
	mgr, err := New(cfg, store, logger, stages)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	presentation := filepath.Join(t.TempDir(), "deck.pdf")
	testsupport.WriteFile(t, presentation, 2048)
	lec, err := store.NewLecture(context.Background(), "distributed systems 101",
		"https://videos.test.invalid/ds101", presentation, "en")
	if err != nil {
		t.Fatalf("NewLecture: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	final := waitForStatus(t, store, lec.ID, lecture.StatusCompleted)
	if final.Duration != 30 {
		t.Fatalf("expected duration 30, got %g", final.Duration)
	}
	if final.SlideCount != 3 {
		t.Fatalf("expected 3 slides, got %d", final.SlideCount)
	}

	timeline, err := lecture.DecodeTimeline(final.TimelineData)
	if err != nil {
		t.Fatalf("DecodeTimeline: %v", err)
	}
	if timeline.SampledFrames != len(frameSchedule) {
		t.Fatalf("expected %d sampled frames, got %d", len(frameSchedule), timeline.SampledFrames)
	}

	// The glitched frame at t=14 must be absorbed by the debounce, leaving
	// one interval per slide.
	want := []lecture.SlideInterval{
		{SlideIndex: 0, Start: 0, End: 10},
		{SlideIndex: 1, Start: 10, End: 20},
		{SlideIndex: 2, Start: 20, End: 30},
	}
	if len(timeline.Intervals) != len(want) {
		t.Fatalf("expected %d intervals, got %+v", len(want), timeline.Intervals)
	}
	for i, interval := range timeline.Intervals {
		if interval != want[i] {
			t.Fatalf("interval %d: expected %+v, got %+v", i, want[i], interval)
		}
	}

	segments, err := store.SegmentsForLecture(context.Background(), lec.ID)
	if err != nil {
		t.Fatalf("SegmentsForLecture: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	wantSlides := []int{0, 1, 2}
	for i, seg := range segments {
		if seg.SlideIndex == nil {
			t.Fatalf("segment %d has no slide assignment", i)
		}
		if *seg.SlideIndex != wantSlides[i] {
			t.Fatalf("segment %d: expected slide %d, got %d", i, wantSlides[i], *seg.SlideIndex)
		}
	}
}

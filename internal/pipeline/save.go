package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"lecturesync/internal/align"
	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/services"
	"lecturesync/internal/stage"
)

// SaveStage assigns each transcript segment to the slide showing at its start
// time and persists the assignments.
type SaveStage struct {
	cfg    *config.Config
	store  *lecture.Store
	logger *slog.Logger
}

// NewSaveStage builds the segment alignment stage handler.
func NewSaveStage(cfg *config.Config, store *lecture.Store, logger *slog.Logger) *SaveStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SaveStage{cfg: cfg, store: store, logger: logger}
}

func (s *SaveStage) Prepare(ctx context.Context, lec *lecture.Lecture) error {
	if strings.TrimSpace(lec.TimelineData) == "" {
		return services.Wrap(services.ErrValidation, "save", "validate timeline",
			"Lecture has no slide timeline; rerun the matching stage", nil)
	}
	lec.InitProgress("Saving segments", "Aligning transcript to timeline")
	return nil
}

func (s *SaveStage) Execute(ctx context.Context, lec *lecture.Lecture) error {
	timeline, err := stage.ParseTimeline(lec.TimelineData)
	if err != nil {
		return err
	}
	intervals := timeline.Intervals
	if len(intervals) == 0 {
		// The envelope may predate interval rows; fall back to the table.
		intervals, err = s.store.IntervalsForLecture(ctx, lec.ID)
		if err != nil {
			return services.Wrap(services.ErrPersistence, "save", "load timeline",
				"Could not load slide timeline", err)
		}
	}
	if len(intervals) == 0 {
		return services.Wrap(services.ErrValidation, "save", "load timeline",
			"Slide timeline is empty; rerun the matching stage", nil)
	}

	segments, err := s.store.SegmentsForLecture(ctx, lec.ID)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "save", "load segments",
			"Could not load transcript segments", err)
	}

	distribution := align.Assign(segments, intervals)
	assignments := make(map[int64]*int, len(segments))
	for i := range segments {
		assignments[segments[i].ID] = segments[i].SlideIndex
	}
	if err := s.store.AssignSegmentSlides(ctx, lec.ID, assignments); err != nil {
		return services.Wrap(services.ErrPersistence, "save", "save assignments",
			"Could not persist segment assignments", err)
	}

	logging.WithContext(ctx, s.logger).Info("segments aligned",
		logging.Int("segment_count", len(segments)),
		logging.Int("slide_count", len(distribution)),
		logging.String("distribution", formatDistribution(distribution)))
	lec.SetProgress("Saving segments", fmt.Sprintf("%d segments aligned", len(segments)), 100)
	return nil
}

func (s *SaveStage) HealthCheck(ctx context.Context) stage.Health {
	if _, err := s.store.Stats(ctx); err != nil {
		return stage.Unhealthy("save", "database not reachable")
	}
	return stage.Healthy("save")
}

func formatDistribution(distribution map[int]int) string {
	if len(distribution) == 0 {
		return "none"
	}
	indices := make([]int, 0, len(distribution))
	for idx := range distribution {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	parts := make([]string, 0, len(indices))
	for _, idx := range indices {
		parts = append(parts, fmt.Sprintf("slide %d: %d", idx, distribution[idx]))
	}
	return strings.Join(parts, ", ")
}

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
	"lecturesync/internal/services"
	"lecturesync/internal/stage"
)

// Renderer is the slice of the rasterizer client the slides stage needs.
type Renderer interface {
	Render(ctx context.Context, presentationPath, destDir string) ([]string, error)
}

// SlidesStage rasterizes the presentation into ordered page images and
// persists them.
type SlidesStage struct {
	cfg      *config.Config
	store    *lecture.Store
	renderer Renderer
	logger   *slog.Logger
}

// NewSlidesStage builds the rasterization stage handler.
func NewSlidesStage(cfg *config.Config, store *lecture.Store, renderer Renderer, logger *slog.Logger) *SlidesStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SlidesStage{cfg: cfg, store: store, renderer: renderer, logger: logger}
}

func (s *SlidesStage) Prepare(ctx context.Context, lec *lecture.Lecture) error {
	if _, err := os.Stat(lec.PresentationPath); err != nil {
		return services.Wrap(services.ErrValidation, "slides", "validate presentation",
			fmt.Sprintf("Presentation file %s is not readable", lec.PresentationPath), err)
	}
	lec.InitProgress("Rendering slides", "Uploading presentation")
	return nil
}

func (s *SlidesStage) Execute(ctx context.Context, lec *lecture.Lecture) error {
	destDir := slideImageDir(s.cfg, lec.ID)
	paths, err := s.renderer.Render(ctx, lec.PresentationPath, destDir)
	if err != nil {
		return services.Wrap(services.ErrRasterization, "slides", "render presentation",
			"Slide rendering failed; check the rasterizer service", err)
	}

	slides := make([]lecture.Slide, 0, len(paths))
	for i, path := range paths {
		slides = append(slides, lecture.Slide{LectureID: lec.ID, Index: i, ImagePath: path})
	}
	if err := s.store.SaveSlides(ctx, lec.ID, slides); err != nil {
		return services.Wrap(services.ErrPersistence, "slides", "save slides",
			"Could not persist rendered slides", err)
	}
	lec.SlideCount = len(slides)

	logging.WithContext(ctx, s.logger).Info("slides rendered",
		logging.Int("slide_count", len(slides)),
		logging.String("dir", destDir))
	lec.SetProgress("Rendering slides", fmt.Sprintf("%d slides ready", len(slides)), 100)
	return nil
}

func (s *SlidesStage) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(s.cfg.Rasterizer.URL) == "" {
		return stage.Unhealthy("slides", "rasterizer url not configured")
	}
	return stage.Healthy("slides")
}

func slideImageDir(cfg *config.Config, lectureID int64) string {
	return filepath.Join(cfg.SlideDir(), fmt.Sprintf("lecture-%d", lectureID))
}

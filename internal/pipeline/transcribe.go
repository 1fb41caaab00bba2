package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/services"
	"lecturesync/internal/stage"
	"lecturesync/internal/transcribe"
)

// Transcriber is the slice of the speech-to-text client the transcribe stage
// needs.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (transcribe.Result, error)
}

// TranscribeStage sends the extracted audio to the transcription provider and
// stores the returned segments without slide assignments.
type TranscribeStage struct {
	cfg    *config.Config
	store  *lecture.Store
	client Transcriber
	logger *slog.Logger
}

// NewTranscribeStage builds the transcription stage handler.
func NewTranscribeStage(cfg *config.Config, store *lecture.Store, client Transcriber, logger *slog.Logger) *TranscribeStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TranscribeStage{cfg: cfg, store: store, client: client, logger: logger}
}

func (s *TranscribeStage) Prepare(ctx context.Context, lec *lecture.Lecture) error {
	if strings.TrimSpace(lec.AudioPath) == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "validate audio",
			"Lecture has no extracted audio; rerun the download stage", nil)
	}
	if _, err := os.Stat(lec.AudioPath); err != nil {
		return services.Wrap(services.ErrValidation, "transcribe", "validate audio",
			fmt.Sprintf("Audio file %s is not readable", lec.AudioPath), err)
	}
	lec.InitProgress("Transcribing", "Uploading audio")
	return nil
}

func (s *TranscribeStage) Execute(ctx context.Context, lec *lecture.Lecture) error {
	result, err := s.client.Transcribe(ctx, lec.AudioPath, lec.Language)
	if err != nil {
		return services.Wrap(services.ErrTranscription, "transcribe", "transcribe audio",
			"Transcription failed; check the transcription service", err)
	}

	segments := make([]lecture.Segment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		segments = append(segments, lecture.Segment{
			LectureID: lec.ID,
			Start:     seg.Start,
			End:       seg.End,
			Text:      seg.Text,
		})
	}
	if err := s.store.ReplaceSegments(ctx, lec.ID, segments); err != nil {
		return services.Wrap(services.ErrPersistence, "transcribe", "save segments",
			"Could not persist transcript segments", err)
	}
	if lec.Language == "" && result.Language != "" {
		lec.Language = result.Language
	}

	logging.WithContext(ctx, s.logger).Info("transcript stored",
		logging.Int("segment_count", len(segments)),
		logging.String("language", lec.Language))
	lec.SetProgress("Transcribing", fmt.Sprintf("%d segments transcribed", len(segments)), 100)
	return nil
}

func (s *TranscribeStage) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(s.cfg.Transcription.URL) == "" {
		return stage.Unhealthy("transcribe", "transcription url not configured")
	}
	return stage.Healthy("transcribe")
}

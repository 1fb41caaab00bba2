package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/services"
)

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		lec, err := m.store.NextForStatuses(ctx, m.pickupOrder...)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next lecture",
				logging.Error(err),
				logging.String("hint", "check database access"))
			if !m.sleep(ctx, m.errorInterval) {
				return
			}
			continue
		}
		if lec == nil {
			if !m.sleep(ctx, m.pollInterval) {
				return
			}
			continue
		}

		if err := m.processLecture(ctx, lec); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// processLecture runs exactly one stage for the claimed lecture. Queued
// lectures are first moved to the initial processing status so the stage they
// run under is always named by their status.
func (m *Manager) processLecture(ctx context.Context, lec *lecture.Lecture) error {
	requestID := uuid.NewString()
	ctx = services.WithRequestID(services.WithLectureID(ctx, lec.ID), requestID)

	if lec.Status == lecture.StatusPending {
		next, _ := lecture.NextStatus(lec.Status)
		if err := m.store.Transition(ctx, lec, next); err != nil {
			m.setLastError(err)
			m.logger.Error("failed to claim pending lecture",
				logging.Int64("lecture_id", lec.ID),
				logging.Error(err))
			return err
		}
	}

	stg, ok := m.stageByStatus[lec.Status]
	if !ok {
		m.logger.Warn("no stage configured for status",
			logging.Int64("lecture_id", lec.ID),
			logging.String("status", string(lec.Status)))
		m.sleep(ctx, m.pollInterval)
		return nil
	}

	ctx = services.WithStage(ctx, stg.name)
	stageLogger := logging.WithContext(ctx, m.logger)

	return m.executeStage(ctx, stageLogger, stg, lec)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, lec *lecture.Lecture) error {
	start := time.Now()
	stageLogger.Info("stage started",
		logging.String("title", lec.Title),
		logging.String("status", string(lec.Status)))

	if err := stg.handler.Prepare(ctx, lec); err != nil {
		m.handleStageFailure(ctx, stageLogger, stg, lec, err)
		return err
	}
	if err := m.store.Update(ctx, lec); err != nil {
		m.setLastError(err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(err))
		return err
	}

	if err := stg.handler.Execute(ctx, lec); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return err
		}
		m.handleStageFailure(ctx, stageLogger, stg, lec, err)
		return err
	}
	if err := m.store.Update(ctx, lec); err != nil {
		m.setLastError(err)
		stageLogger.Error("failed to persist stage result", logging.Error(err))
		return err
	}

	next, ok := lecture.NextStatus(lec.Status)
	if !ok {
		err := errors.New("pipeline: stage finished with no next status")
		m.handleStageFailure(ctx, stageLogger, stg, lec, err)
		return err
	}
	if next == lecture.StatusCompleted {
		lec.SetProgress("Completed", "Processing finished", 100)
	}
	if err := m.store.Transition(ctx, lec, next); err != nil {
		m.setLastError(err)
		stageLogger.Error("failed to advance lecture status",
			logging.String("next_status", string(next)),
			logging.Error(err))
		return err
	}
	if next == lecture.StatusCompleted {
		m.cleanupWorkspace(lec)
	}

	stageLogger.Info("stage completed",
		logging.String("next_status", string(next)),
		logging.Duration("stage_duration", time.Since(start)))
	return nil
}

func (m *Manager) handleStageFailure(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, lec *lecture.Lecture, stageErr error) {
	m.setLastError(stageErr)

	kind := services.Kind(stageErr)
	message := services.Message(stageErr)
	if message == "" {
		message = stg.name + " stage failed"
	}
	lec.SetFailed(kind, message)

	stageLogger.Error("stage failed",
		logging.String("error_kind", kind),
		logging.String("error_message", message),
		logging.Error(stageErr))

	if err := m.store.Update(ctx, lec); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("shutdown interrupted failure persistence")
		} else {
			stageLogger.Error("failed to persist stage failure", logging.Error(err))
		}
		return
	}
	m.cleanupWorkspace(lec)
}

// Package pipeline drives lectures through the processing stages. A single
// polling loop claims the next eligible lecture, runs the stage named by its
// status, and advances the status one step at a time with durable writes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/stage"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Download   stage.Handler
	Slides     stage.Handler
	Transcribe stage.Handler
	Match      stage.Handler
	Save       stage.Handler
}

type pipelineStage struct {
	name      string
	handler   stage.Handler
	runStatus lecture.Status
}

// Manager owns the polling loop and the stage table.
type Manager struct {
	cfg           *config.Config
	store         *lecture.Store
	logger        *slog.Logger
	pollInterval  time.Duration
	errorInterval time.Duration

	stages        []pipelineStage
	stageByStatus map[lecture.Status]pipelineStage
	pickupOrder   []lecture.Status

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// New builds a Manager and validates the stage table. Every processing
// status must carry exactly one handler; a nil handler is a construction
// error, not a runtime surprise.
func New(cfg *config.Config, store *lecture.Store, logger *slog.Logger, stages StageSet) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config required")
	}
	if store == nil {
		return nil, errors.New("pipeline: store required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	table := []pipelineStage{
		{name: "download", handler: stages.Download, runStatus: lecture.StatusDownloading},
		{name: "slides", handler: stages.Slides, runStatus: lecture.StatusProcessingSlides},
		{name: "transcribe", handler: stages.Transcribe, runStatus: lecture.StatusTranscribing},
		{name: "match", handler: stages.Match, runStatus: lecture.StatusMatching},
		{name: "save", handler: stages.Save, runStatus: lecture.StatusSavingSegments},
	}
	byStatus := make(map[lecture.Status]pipelineStage, len(table))
	pickup := []lecture.Status{lecture.StatusPending}
	for _, stg := range table {
		if stg.handler == nil {
			return nil, fmt.Errorf("pipeline: stage %s has no handler", stg.name)
		}
		if !lecture.IsProcessingStatus(stg.runStatus) {
			return nil, fmt.Errorf("pipeline: stage %s bound to non-processing status %s", stg.name, stg.runStatus)
		}
		if _, dup := byStatus[stg.runStatus]; dup {
			return nil, fmt.Errorf("pipeline: duplicate stage for status %s", stg.runStatus)
		}
		byStatus[stg.runStatus] = stg
		pickup = append(pickup, stg.runStatus)
	}

	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	errorInterval := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if errorInterval <= 0 {
		errorInterval = pollInterval
	}

	return &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "pipeline"),
		pollInterval:  pollInterval,
		errorInterval: errorInterval,
		stages:        table,
		stageByStatus: byStatus,
		pickupOrder:   pickup,
	}, nil
}

// Start begins background processing. Lectures left in a processing status by
// a previous run are reset to pending before the loop starts.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	reset, err := m.store.ResetStuckProcessing(runCtx)
	if err != nil {
		m.logger.Warn("reset of stuck lectures failed",
			logging.Error(err),
			logging.String("hint", "check database access"))
	} else if reset > 0 {
		m.logger.Info("reset stuck lectures to pending", logging.Int64("count", reset))
	}

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the loop to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the polling loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LastError returns the most recent stage or queue error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// Health runs every stage health check and returns the results in stage
// order.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	results := make([]stage.Health, 0, len(m.stages))
	for _, stg := range m.stages {
		results = append(results, stg.handler.HealthCheck(ctx))
	}
	return results
}

// LectureWorkDir returns the scratch directory used for one lecture's
// intermediate files.
func LectureWorkDir(cfg *config.Config, lectureID int64) string {
	return filepath.Join(cfg.WorkDir(), fmt.Sprintf("lecture-%d", lectureID))
}

func (m *Manager) cleanupWorkspace(lec *lecture.Lecture) {
	dir := LectureWorkDir(m.cfg, lec.ID)
	if err := os.RemoveAll(dir); err != nil {
		m.logger.Warn("failed to remove lecture work directory",
			logging.Int64("lecture_id", lec.ID),
			logging.String("dir", dir),
			logging.Error(err))
	}
}

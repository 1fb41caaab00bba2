package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"lecturesync/internal/acquire"
	"lecturesync/internal/api"
	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/pipeline"
	"lecturesync/internal/rasterize"
	"lecturesync/internal/sampler"
	"lecturesync/internal/transcribe"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the processing daemon and status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(ctx)
		},
	}
}

func runServe(ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lockPath := filepath.Join(cfg.Paths.LogDir, "lecturesync.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another lecturesync daemon is already running")
	}
	defer lock.Unlock()

	pruneWorkDir(cfg.WorkDir())

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("lecturesync-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := lecture.Open(cfg)
	if err != nil {
		logger.Error("open lecture store", logging.Error(err))
		return err
	}
	defer store.Close()

	fetcher := acquire.New(cfg)
	frames := sampler.New(cfg)
	stages := pipeline.StageSet{
		Download:   pipeline.NewDownloadStage(cfg, fetcher, frames, logger),
		Slides:     pipeline.NewSlidesStage(cfg, store, rasterize.New(cfg), logger),
		Transcribe: pipeline.NewTranscribeStage(cfg, store, transcribe.New(cfg), logger),
		Match:      pipeline.NewMatchStage(cfg, store, frames, logger),
		Save:       pipeline.NewSaveStage(cfg, store, logger),
	}
	manager, err := pipeline.New(cfg, store, logger, stages)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	if err := manager.Start(signalCtx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer manager.Stop()

	server := api.NewServer(cfg, store, manager, logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Listen()
	}()

	logger.Info("lecturesync daemon started",
		logging.String("bind", cfg.Paths.APIBind),
		logging.String("lock", lockPath))

	select {
	case <-signalCtx.Done():
		logger.Info("lecturesync daemon shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Warn("api shutdown failed", logging.Error(err))
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if err != nil {
			logger.Error("api server stopped", logging.Error(err))
		}
		return err
	}
}

// keep the work area tidy across daemon restarts
func pruneWorkDir(path string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	for _, entry := range entries {
		os.RemoveAll(filepath.Join(path, entry.Name()))
	}
}

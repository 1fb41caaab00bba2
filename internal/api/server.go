// Package api exposes the read-only HTTP status surface: lecture status
// polling, completed lecture details, and a health endpoint.
package api

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/stage"
)

// HealthSource reports per-stage readiness. The pipeline manager satisfies
// it.
type HealthSource interface {
	Health(ctx context.Context) []stage.Health
}

// Server wires the fiber app to the lecture store.
type Server struct {
	cfg    *config.Config
	store  *lecture.Store
	health HealthSource
	logger *slog.Logger
	app    *fiber.App
}

// NewServer constructs the HTTP server and registers all routes.
func NewServer(cfg *config.Config, store *lecture.Store, health HealthSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               "lecturesync",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	s := &Server{
		cfg:    cfg,
		store:  store,
		health: health,
		logger: logging.NewComponentLogger(logger, "api"),
		app:    app,
	}

	app.Get("/healthz", s.handleHealth)
	app.Get("/api/lectures", s.handleList)
	app.Get("/api/lectures/:id", s.handleDetail)
	app.Get("/api/lectures/:id/status", s.handleStatus)
	return s
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on the configured bind address.
func (s *Server) Listen() error {
	s.logger.Info("api listening", logging.String("bind", s.cfg.Paths.APIBind))
	return s.app.Listen(s.cfg.Paths.APIBind)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) lectureFromParam(c *fiber.Ctx) (*lecture.Lecture, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid lecture id"})
	}
	lec, err := s.store.GetByID(c.Context(), id)
	if err != nil {
		s.logger.Error("lecture lookup failed", logging.Int64("lecture_id", id), logging.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "lecture lookup failed"})
	}
	if lec == nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "lecture not found"})
	}
	return lec, nil
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	lec, err := s.lectureFromParam(c)
	if lec == nil {
		return err
	}
	return c.JSON(toLectureStatus(lec))
}

func (s *Server) handleList(c *fiber.Ctx) error {
	var statuses []lecture.Status
	if raw := c.Query("status"); raw != "" {
		status, ok := lecture.ParseStatus(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown status filter"})
		}
		statuses = append(statuses, status)
	}
	lectures, err := s.store.List(c.Context(), statuses...)
	if err != nil {
		s.logger.Error("lecture list failed", logging.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "lecture list failed"})
	}
	payload := make([]LectureStatus, 0, len(lectures))
	for _, lec := range lectures {
		payload = append(payload, toLectureStatus(lec))
	}
	return c.JSON(payload)
}

// handleDetail serves slides, segments, and the timeline. The payload is only
// meaningful once processing finished, so earlier statuses get a conflict
// response carrying the current status.
func (s *Server) handleDetail(c *fiber.Ctx) error {
	lec, err := s.lectureFromParam(c)
	if lec == nil {
		return err
	}
	if lec.Status != lecture.StatusCompleted {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:  "lecture not completed",
			Status: string(lec.Status),
		})
	}

	slides, err := s.store.SlidesForLecture(c.Context(), lec.ID)
	if err != nil {
		s.logger.Error("slide lookup failed", logging.Int64("lecture_id", lec.ID), logging.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "slide lookup failed"})
	}
	segments, err := s.store.SegmentsForLecture(c.Context(), lec.ID)
	if err != nil {
		s.logger.Error("segment lookup failed", logging.Int64("lecture_id", lec.ID), logging.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "segment lookup failed"})
	}
	intervals, err := s.store.IntervalsForLecture(c.Context(), lec.ID)
	if err != nil {
		s.logger.Error("timeline lookup failed", logging.Int64("lecture_id", lec.ID), logging.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "timeline lookup failed"})
	}
	return c.JSON(toLectureDetail(lec, slides, segments, intervals))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	dbHealth, err := s.store.CheckHealth(c.Context())
	if err != nil {
		dbHealth.Error = err.Error()
	}
	database := toDatabaseStatus(dbHealth)

	var stages []StageHealth
	if s.health != nil {
		stages = toStageHealth(s.health.Health(c.Context()))
	}

	status := "ok"
	code := fiber.StatusOK
	if !database.Healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	for _, stg := range stages {
		if !stg.Ready {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
			break
		}
	}
	return c.Status(code).JSON(HealthResponse{
		Status:   status,
		Database: database,
		Stages:   stages,
	})
}

package pipeline

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"lecturesync/internal/lecture"
	"lecturesync/internal/logging"
	"lecturesync/internal/services"
	"lecturesync/internal/stage"
	"lecturesync/internal/testsupport"
)

type fakeHandler struct {
	name      string
	onExecute func(context.Context, *lecture.Lecture) error

	mu       sync.Mutex
	statuses []lecture.Status
}

func (h *fakeHandler) Prepare(ctx context.Context, lec *lecture.Lecture) error {
	return nil
}

func (h *fakeHandler) Execute(ctx context.Context, lec *lecture.Lecture) error {
	h.mu.Lock()
	h.statuses = append(h.statuses, lec.Status)
	h.mu.Unlock()
	if h.onExecute != nil {
		return h.onExecute(ctx, lec)
	}
	return nil
}

func (h *fakeHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(h.name)
}

func (h *fakeHandler) executions() []lecture.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]lecture.Status(nil), h.statuses...)
}

func fakeStageSet() (StageSet, map[string]*fakeHandler) {
	handlers := map[string]*fakeHandler{
		"download":   {name: "download"},
		"slides":     {name: "slides"},
		"transcribe": {name: "transcribe"},
		"match":      {name: "match"},
		"save":       {name: "save"},
	}
	return StageSet{
		Download:   handlers["download"],
		Slides:     handlers["slides"],
		Transcribe: handlers["transcribe"],
		Match:      handlers["match"],
		Save:       handlers["save"],
	}, handlers
}

func waitForStatus(t *testing.T, store *lecture.Store, id int64, want lecture.Status) *lecture.Lecture {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		lec, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if lec != nil && lec.Status == want {
			return lec
		}
		time.Sleep(10 * time.Millisecond)
	}
	lec, _ := store.GetByID(context.Background(), id)
	t.Fatalf("lecture %d never reached %s; last seen %+v", id, want, lec)
	return nil
}

func TestNewRejectsMissingHandler(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	stages, _ := fakeStageSet()
	stages.Match = nil
	if _, err := New(cfg, store, logging.NewNop(), stages); err == nil {
		t.Fatal("expected construction error for missing match handler")
	}
}

func TestManagerRunsStagesInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, handlers := fakeStageSet()

	mgr, err := New(cfg, store, logging.NewNop(), stages)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	lec := testsupport.NewLecture(t, store, "ordered-run")
	workDir := LectureWorkDir(cfg, lec.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work dir: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	final := waitForStatus(t, store, lec.ID, lecture.StatusCompleted)
	if final.ErrorMessage != "" {
		t.Fatalf("expected clean completion, got error %q", final.ErrorMessage)
	}
	if final.ProgressPercent != 100 {
		t.Fatalf("expected progress 100 on completion, got %g", final.ProgressPercent)
	}

	// Each handler must have run exactly once, under the status that names it.
	expected := map[string]lecture.Status{
		"download":   lecture.StatusDownloading,
		"slides":     lecture.StatusProcessingSlides,
		"transcribe": lecture.StatusTranscribing,
		"match":      lecture.StatusMatching,
		"save":       lecture.StatusSavingSegments,
	}
	for name, want := range expected {
		got := handlers[name].executions()
		if len(got) != 1 {
			t.Fatalf("handler %s ran %d times, expected once", name, len(got))
		}
		if got[0] != want {
			t.Fatalf("handler %s ran under status %s, expected %s", name, got[0], want)
		}
	}

	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("expected work dir %s to be removed after completion", workDir)
	}
}

func TestManagerClassifiedFailureIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, handlers := fakeStageSet()
	handlers["transcribe"].onExecute = func(ctx context.Context, lec *lecture.Lecture) error {
		return services.Wrap(services.ErrTranscription, "transcribe", "transcribe audio",
			"Transcription failed; check the transcription service", nil)
	}

	mgr, err := New(cfg, store, logging.NewNop(), stages)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	lec := testsupport.NewLecture(t, store, "failing-run")
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	final := waitForStatus(t, store, lec.ID, lecture.StatusFailed)
	if final.ErrorKind != "transcription" {
		t.Fatalf("expected error kind transcription, got %q", final.ErrorKind)
	}
	if final.ErrorMessage == "" {
		t.Fatal("expected an error message on failure")
	}

	// Later stages never run, and the failed lecture is not picked up again.
	time.Sleep(50 * time.Millisecond)
	for _, name := range []string{"match", "save"} {
		if got := handlers[name].executions(); len(got) != 0 {
			t.Fatalf("handler %s ran %d times after failure", name, len(got))
		}
	}
	if got := handlers["transcribe"].executions(); len(got) != 1 {
		t.Fatalf("failed stage re-ran: %d executions", len(got))
	}
}

func TestManagerResetsStuckLecturesOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, handlers := fakeStageSet()

	lec := testsupport.NewLecture(t, store, "stuck-run")
	if err := store.Transition(context.Background(), lec, lecture.StatusDownloading); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	mgr, err := New(cfg, store, logging.NewNop(), stages)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	waitForStatus(t, store, lec.ID, lecture.StatusCompleted)
	// The reset sent the lecture back through the full ladder.
	if got := handlers["download"].executions(); len(got) != 1 {
		t.Fatalf("expected download to run once after reset, got %d", len(got))
	}
}

func TestManagerHealthCollectsAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, _ := fakeStageSet()

	mgr, err := New(cfg, store, logging.NewNop(), stages)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results := mgr.Health(context.Background())
	if len(results) != 5 {
		t.Fatalf("expected 5 health results, got %d", len(results))
	}
	wantOrder := []string{"download", "slides", "transcribe", "match", "save"}
	for i, health := range results {
		if health.Name != wantOrder[i] {
			t.Fatalf("health %d: expected %s, got %s", i, wantOrder[i], health.Name)
		}
		if !health.Ready {
			t.Fatalf("expected stage %s to be ready", health.Name)
		}
	}
}

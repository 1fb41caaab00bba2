package lecture_test

import (
	"context"
	"testing"

	"lecturesync/internal/lecture"
	"lecturesync/internal/testsupport"
)

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lec, err := store.NewLecture(ctx, "Intro to Compilers", "https://videos.test.invalid/compilers", "/tmp/compilers.pdf", "en")
	if err != nil {
		t.Fatalf("NewLecture failed: %v", err)
	}
	if lec.ID == 0 {
		t.Fatal("expected lecture ID to be assigned")
	}
	if lec.Status != lecture.StatusPending {
		t.Fatalf("expected pending status, got %s", lec.Status)
	}

	fetched, err := store.GetByID(ctx, lec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Intro to Compilers" {
		t.Fatalf("unexpected fetched lecture: %#v", fetched)
	}
	if fetched.PresentationPath != "/tmp/compilers.pdf" {
		t.Fatalf("unexpected presentation path: %q", fetched.PresentationPath)
	}

	missing, err := store.GetByID(ctx, lec.ID+100)
	if err != nil {
		t.Fatalf("GetByID for missing row failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing lecture, got %#v", missing)
	}
}

func TestTransitionEnforcesForwardOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lec := testsupport.NewLecture(t, store, "Transitions")

	forward := []lecture.Status{
		lecture.StatusDownloading,
		lecture.StatusProcessingSlides,
		lecture.StatusTranscribing,
		lecture.StatusMatching,
		lecture.StatusSavingSegments,
		lecture.StatusCompleted,
	}
	for _, next := range forward {
		if err := store.Transition(ctx, lec, next); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
		fetched, err := store.GetByID(ctx, lec.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.Status != next {
			t.Fatalf("expected persisted status %s, got %s", next, fetched.Status)
		}
	}

	if err := store.Transition(ctx, lec, lecture.StatusFailed); err == nil {
		t.Fatal("expected transition out of completed to fail")
	}

	skipper := testsupport.NewLecture(t, store, "Skipper")
	if err := store.Transition(ctx, skipper, lecture.StatusMatching); err == nil {
		t.Fatal("expected skipping transition to fail")
	}
	if err := store.Transition(ctx, skipper, lecture.StatusFailed); err != nil {
		t.Fatalf("expected failed to be reachable from pending: %v", err)
	}
	if err := store.Transition(ctx, skipper, lecture.StatusDownloading); err == nil {
		t.Fatal("expected transition out of failed to fail")
	}
}

func TestSlidesRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lec := testsupport.NewLecture(t, store, "Slides")

	slides := []lecture.Slide{
		{Index: 0, ImagePath: "/slides/0.png"},
		{Index: 1, ImagePath: "/slides/1.png", Summary: "agenda"},
		{Index: 2, ImagePath: "/slides/2.png"},
	}
	if err := store.SaveSlides(ctx, lec.ID, slides); err != nil {
		t.Fatalf("SaveSlides failed: %v", err)
	}

	fetched, err := store.SlidesForLecture(ctx, lec.ID)
	if err != nil {
		t.Fatalf("SlidesForLecture failed: %v", err)
	}
	if len(fetched) != 3 {
		t.Fatalf("expected 3 slides, got %d", len(fetched))
	}
	if fetched[1].Summary != "agenda" {
		t.Fatalf("unexpected summary: %q", fetched[1].Summary)
	}

	updated, err := store.GetByID(ctx, lec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.SlideCount != 3 {
		t.Fatalf("expected slide count 3, got %d", updated.SlideCount)
	}

	// Re-running the stage replaces the prior set.
	if err := store.SaveSlides(ctx, lec.ID, slides[:2]); err != nil {
		t.Fatalf("SaveSlides rerun failed: %v", err)
	}
	fetched, err = store.SlidesForLecture(ctx, lec.ID)
	if err != nil {
		t.Fatalf("SlidesForLecture failed: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("expected 2 slides after rerun, got %d", len(fetched))
	}
}

func TestSegmentsAndAssignments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lec := testsupport.NewLecture(t, store, "Segments")

	segments := []lecture.Segment{
		{Start: 0, End: 4.5, Text: "welcome everyone"},
		{Start: 4.5, End: 9.2, Text: "today we cover parsing"},
		{Start: 9.2, End: 15, Text: "first the lexer"},
	}
	if err := store.ReplaceSegments(ctx, lec.ID, segments); err != nil {
		t.Fatalf("ReplaceSegments failed: %v", err)
	}

	fetched, err := store.SegmentsForLecture(ctx, lec.ID)
	if err != nil {
		t.Fatalf("SegmentsForLecture failed: %v", err)
	}
	if len(fetched) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(fetched))
	}
	for i, seg := range fetched {
		if seg.SlideIndex != nil {
			t.Fatalf("segment %d should be unassigned, got %v", i, *seg.SlideIndex)
		}
	}

	zero, one := 0, 1
	assignments := map[int64]*int{
		fetched[0].ID: &zero,
		fetched[1].ID: &zero,
		fetched[2].ID: &one,
	}
	if err := store.AssignSegmentSlides(ctx, lec.ID, assignments); err != nil {
		t.Fatalf("AssignSegmentSlides failed: %v", err)
	}

	fetched, err = store.SegmentsForLecture(ctx, lec.ID)
	if err != nil {
		t.Fatalf("SegmentsForLecture failed: %v", err)
	}
	if fetched[0].SlideIndex == nil || *fetched[0].SlideIndex != 0 {
		t.Fatalf("unexpected assignment for segment 0: %v", fetched[0].SlideIndex)
	}
	if fetched[2].SlideIndex == nil || *fetched[2].SlideIndex != 1 {
		t.Fatalf("unexpected assignment for segment 2: %v", fetched[2].SlideIndex)
	}
}

func TestTimelineRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	lec := testsupport.NewLecture(t, store, "Timeline")

	timeline := lecture.Timeline{
		Intervals: []lecture.SlideInterval{
			{SlideIndex: 0, Start: 0, End: 12},
			{SlideIndex: 1, Start: 12, End: 21},
			{SlideIndex: 2, Start: 21, End: 30},
		},
		SampledFrames:  15,
		AbstainedVotes: 2,
	}
	if err := store.SaveTimeline(ctx, lec.ID, timeline); err != nil {
		t.Fatalf("SaveTimeline failed: %v", err)
	}

	intervals, err := store.IntervalsForLecture(ctx, lec.ID)
	if err != nil {
		t.Fatalf("IntervalsForLecture failed: %v", err)
	}
	if len(intervals) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(intervals))
	}
	if intervals[1].SlideIndex != 1 || intervals[1].Start != 12 || intervals[1].End != 21 {
		t.Fatalf("unexpected middle interval: %#v", intervals[1])
	}

	fetched, err := store.GetByID(ctx, lec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	decoded, err := lecture.DecodeTimeline(fetched.TimelineData)
	if err != nil {
		t.Fatalf("DecodeTimeline failed: %v", err)
	}
	if len(decoded.Intervals) != 3 || decoded.AbstainedVotes != 2 {
		t.Fatalf("unexpected decoded timeline: %#v", decoded)
	}
}

func TestRetryFailedAndClears(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	failed := testsupport.NewLecture(t, store, "Failed")
	failed.SetFailed("transcription", "provider unavailable")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	done := testsupport.NewLecture(t, store, "Done")
	done.Status = lecture.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retried, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried lecture, got %d", retried)
	}
	fetched, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != lecture.StatusPending {
		t.Fatalf("expected retried lecture pending, got %s", fetched.Status)
	}
	if fetched.ErrorMessage != "" || fetched.ErrorKind != "" {
		t.Fatalf("expected error fields cleared, got %q/%q", fetched.ErrorKind, fetched.ErrorMessage)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared lecture, got %d", cleared)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[lecture.StatusPending] != 1 || stats[lecture.StatusCompleted] != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stuck := testsupport.NewLecture(t, store, "Stuck")
	stuck.Status = lecture.StatusMatching
	if err := store.Update(ctx, stuck); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	untouched := testsupport.NewLecture(t, store, "Untouched")

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset lecture, got %d", reset)
	}

	fetched, err := store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != lecture.StatusPending {
		t.Fatalf("expected pending after reset, got %s", fetched.Status)
	}
	fetched, err = store.GetByID(ctx, untouched.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != lecture.StatusPending {
		t.Fatalf("expected untouched lecture to stay pending, got %s", fetched.Status)
	}
}

func TestHealthSummaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewLecture(t, store, "A")
	busy := testsupport.NewLecture(t, store, "B")
	busy.Status = lecture.StatusTranscribing
	if err := store.Update(ctx, busy); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Processing != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}

	dbHealth, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.DatabaseReadable || !dbHealth.TableExists {
		t.Fatalf("unexpected database health: %#v", dbHealth)
	}
	if !dbHealth.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if dbHealth.TotalLectures != 2 {
		t.Fatalf("expected 2 lectures, got %d", dbHealth.TotalLectures)
	}
}

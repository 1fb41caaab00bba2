package testsupport

import (
	"context"
	"testing"

	"lecturesync/internal/config"
	"lecturesync/internal/lecture"
)

// MustOpenStore opens a lecture.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *lecture.Store {
	t.Helper()

	store, err := lecture.Open(cfg)
	if err != nil {
		t.Fatalf("lecture.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewLecture creates a pending lecture for tests using the provided store.
func NewLecture(t testing.TB, store *lecture.Store, title string) *lecture.Lecture {
	t.Helper()

	lec, err := store.NewLecture(context.Background(), title, "https://videos.test.invalid/"+title, "", "en")
	if err != nil {
		t.Fatalf("store.NewLecture: %v", err)
	}
	return lec
}

package lecture

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a lecture as it moves through the
// pipeline. The order of the processing statuses is the stage order.
type Status string

const (
	StatusPending          Status = "pending"
	StatusDownloading      Status = "downloading"
	StatusProcessingSlides Status = "processing_slides"
	StatusTranscribing     Status = "transcribing"
	StatusMatching         Status = "matching"
	StatusSavingSegments   Status = "saving_segments"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// DaemonStopReason is the error message set when lectures are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusProcessingSlides,
	StatusTranscribing,
	StatusMatching,
	StatusSavingSegments,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:      {},
	StatusProcessingSlides: {},
	StatusTranscribing:     {},
	StatusMatching:         {},
	StatusSavingSegments:   {},
}

// statusRank orders the forward path. Terminal statuses are not ranked.
var statusRank = map[Status]int{
	StatusPending:          0,
	StatusDownloading:      1,
	StatusProcessingSlides: 2,
	StatusTranscribing:     3,
	StatusMatching:         4,
	StatusSavingSegments:   5,
	StatusCompleted:        6,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status absorbs: no transitions leave it.
func IsTerminal(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}

// NextStatus returns the status that follows s on the forward path.
// Terminal statuses have no successor.
func NextStatus(s Status) (Status, bool) {
	rank, ok := statusRank[s]
	if !ok || s == StatusCompleted {
		return "", false
	}
	for _, candidate := range allStatuses {
		if statusRank[candidate] == rank+1 {
			return candidate, true
		}
	}
	return "", false
}

// CanTransition reports whether moving from one status to another is legal.
// The forward path advances one step at a time; failed is reachable from any
// non-terminal status; terminal statuses absorb.
func CanTransition(from, to Status) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusFailed {
		return true
	}
	next, ok := NextStatus(from)
	return ok && next == to
}

// Lecture represents a pipeline job persisted in SQLite.
type Lecture struct {
	ID               int64
	Title            string
	SourceURL        string
	PresentationPath string
	VideoPath        string
	AudioPath        string
	Status           Status
	ErrorKind        string
	ErrorMessage     string
	ProgressStage    string
	ProgressPercent  float64
	ProgressMessage  string
	TimelineData     string
	Duration         float64
	SlideCount       int
	Language         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Slide is one rendered presentation page.
type Slide struct {
	ID        int64
	LectureID int64
	Index     int
	ImagePath string
	Summary   string
}

// Segment is one transcription segment. SlideIndex is nil until the
// alignment stage assigns it.
type Segment struct {
	ID         int64
	LectureID  int64
	Start      float64
	End        float64
	Text       string
	SlideIndex *int
}

// SlideInterval is one half-open [Start, End) span of the synchronized
// timeline during which a single slide is showing.
type SlideInterval struct {
	SlideIndex int     `json:"slide_index"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
}

// IsProcessing returns true when the lecture is in an in-flight stage.
func (l Lecture) IsProcessing() bool {
	return IsProcessingStatus(l.Status)
}

// InitProgress resets progress fields at the start of a stage.
func (l *Lecture) InitProgress(stage, message string) {
	l.ProgressStage = stage
	l.ProgressMessage = message
	l.ProgressPercent = 0
	l.ErrorKind = ""
	l.ErrorMessage = ""
}

// SetProgress updates all three progress fields together.
func (l *Lecture) SetProgress(stage, message string, percent float64) {
	l.ProgressStage = stage
	l.ProgressMessage = message
	l.ProgressPercent = percent
}

// SetFailed marks the lecture as failed with a classified kind and message.
func (l *Lecture) SetFailed(kind, message string) {
	l.Status = StatusFailed
	l.ErrorKind = kind
	l.ErrorMessage = message
	l.ProgressStage = "Failed"
	l.ProgressPercent = 0
	l.ProgressMessage = message
}

// HealthSummary describes aggregated lecture counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the lecture database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	IntegrityCheck   bool
	TotalLectures    int
	Error            string
}

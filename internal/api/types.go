package api

import "lecturesync/internal/lecture"

// Progress mirrors the lecture progress fields on the wire.
type Progress struct {
	Stage   string  `json:"stage"`
	Message string  `json:"message"`
	Percent float64 `json:"percent"`
}

// LectureStatus is the polling payload for one lecture.
type LectureStatus struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	ErrorKind    string   `json:"error_kind,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Progress     Progress `json:"progress"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// Slide is one rendered page in the detail payload.
type Slide struct {
	Index     int    `json:"index"`
	ImagePath string `json:"image_path"`
	Summary   string `json:"summary,omitempty"`
}

// Segment is one transcript span with its slide assignment.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	SlideIndex *int    `json:"slide_index"`
}

// LectureDetail is the full payload for a completed lecture.
type LectureDetail struct {
	LectureStatus
	Duration   float64                 `json:"duration_seconds"`
	SlideCount int                     `json:"slide_count"`
	Language   string                  `json:"language,omitempty"`
	Slides     []Slide                 `json:"slides"`
	Segments   []Segment               `json:"segments"`
	Timeline   []lecture.SlideInterval `json:"timeline"`
}

// StageHealth is one stage readiness record in the health payload.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DatabaseStatus summarizes the store health check.
type DatabaseStatus struct {
	Healthy       bool   `json:"healthy"`
	SchemaVersion string `json:"schema_version,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status   string         `json:"status"`
	Database DatabaseStatus `json:"database"`
	Stages   []StageHealth  `json:"stages"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

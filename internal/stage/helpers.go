package stage

import (
	"lecturesync/internal/lecture"
	"lecturesync/internal/services"
)

// ParseTimeline decodes a stored timeline envelope.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func ParseTimeline(raw string) (lecture.Timeline, error) {
	timeline, err := lecture.DecodeTimeline(raw)
	if err != nil {
		return lecture.Timeline{}, services.Wrap(
			services.ErrValidation, "stage", "parse timeline",
			"Timeline data missing or invalid; rerun matching", err)
	}
	return timeline, nil
}

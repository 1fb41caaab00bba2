package lecture

import (
	"encoding/json"
	"fmt"
)

// Timeline is the JSON envelope stored on the lecture row after matching. It
// mirrors the slide_intervals rows so the status surface can render the
// synchronized timeline without a join, and carries matching diagnostics.
type Timeline struct {
	Intervals      []SlideInterval `json:"intervals"`
	SampledFrames  int             `json:"sampled_frames,omitempty"`
	AbstainedVotes int             `json:"abstained_votes,omitempty"`
}

// Encode serializes the timeline for storage on the lecture row.
func (t Timeline) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode timeline: %w", err)
	}
	return string(data), nil
}

// DecodeTimeline parses a stored timeline envelope. An empty value decodes to
// an empty timeline.
func DecodeTimeline(value string) (Timeline, error) {
	if value == "" {
		return Timeline{}, nil
	}
	var t Timeline
	if err := json.Unmarshal([]byte(value), &t); err != nil {
		return Timeline{}, fmt.Errorf("decode timeline: %w", err)
	}
	return t, nil
}

package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classify stage failures. Each stage wraps only failures of
// its own concern with the matching marker; the pipeline persists the kind on
// the lecture row when it transitions to failed.
var (
	ErrAcquisition   = errors.New("acquisition error")
	ErrRasterization = errors.New("rasterization error")
	ErrTranscription = errors.New("transcription service error")
	ErrMatching      = errors.New("matching error")
	ErrPersistence   = errors.New("persistence error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

var errorKinds = map[error]string{
	ErrAcquisition:   "acquisition",
	ErrRasterization: "rasterization",
	ErrTranscription: "transcription",
	ErrMatching:      "matching",
	ErrPersistence:   "persistence",
	ErrValidation:    "validation",
	ErrConfiguration: "configuration",
	ErrTimeout:       "timeout",
	ErrTransient:     "transient",
}

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the short classification label for an error, or "unknown" when
// the error carries no recognized marker.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for marker, kind := range errorKinds {
		if errors.Is(err, marker) {
			return kind
		}
	}
	return "unknown"
}

// Message extracts a human-readable message, stripping the marker prefix when
// present so status surfaces do not repeat the classification.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	for marker := range errorKinds {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(msg, prefix))
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

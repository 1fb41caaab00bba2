package stage

import (
	"context"

	"lecturesync/internal/lecture"
)

// Handler describes the contract the pipeline manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *lecture.Lecture) error
	Execute(context.Context, *lecture.Lecture) error
	HealthCheck(context.Context) Health
}

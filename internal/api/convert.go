package api

import (
	"time"

	"lecturesync/internal/lecture"
	"lecturesync/internal/stage"
)

func toLectureStatus(lec *lecture.Lecture) LectureStatus {
	return LectureStatus{
		ID:           lec.ID,
		Title:        lec.Title,
		Status:       string(lec.Status),
		ErrorKind:    lec.ErrorKind,
		ErrorMessage: lec.ErrorMessage,
		Progress: Progress{
			Stage:   lec.ProgressStage,
			Message: lec.ProgressMessage,
			Percent: lec.ProgressPercent,
		},
		CreatedAt: lec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: lec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toLectureDetail(lec *lecture.Lecture, slides []lecture.Slide, segments []lecture.Segment, intervals []lecture.SlideInterval) LectureDetail {
	detail := LectureDetail{
		LectureStatus: toLectureStatus(lec),
		Duration:      lec.Duration,
		SlideCount:    lec.SlideCount,
		Language:      lec.Language,
		Slides:        make([]Slide, 0, len(slides)),
		Segments:      make([]Segment, 0, len(segments)),
		Timeline:      intervals,
	}
	if detail.Timeline == nil {
		detail.Timeline = []lecture.SlideInterval{}
	}
	for _, slide := range slides {
		detail.Slides = append(detail.Slides, Slide{
			Index:     slide.Index,
			ImagePath: slide.ImagePath,
			Summary:   slide.Summary,
		})
	}
	for _, seg := range segments {
		detail.Segments = append(detail.Segments, Segment{
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			SlideIndex: seg.SlideIndex,
		})
	}
	return detail
}

func toStageHealth(results []stage.Health) []StageHealth {
	out := make([]StageHealth, 0, len(results))
	for _, health := range results {
		out = append(out, StageHealth{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	return out
}

func toDatabaseStatus(health lecture.DatabaseHealth) DatabaseStatus {
	healthy := health.DatabaseExists && health.DatabaseReadable && health.TableExists && health.IntegrityCheck && health.Error == ""
	return DatabaseStatus{
		Healthy:       healthy,
		SchemaVersion: health.SchemaVersion,
		Detail:        health.Error,
	}
}

package lecture

import (
	"context"
	"fmt"
	"time"
)

// SaveSlides replaces the slide set for a lecture and updates its slide
// count. Re-runs discard prior rows so the index space stays dense.
func (s *Store) SaveSlides(ctx context.Context, lectureID int64, slides []Slide) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin slides tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE lecture_id = ?`, lectureID); err != nil {
			return fmt.Errorf("clear prior slides: %w", err)
		}
		for _, slide := range slides {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO slides (lecture_id, slide_index, image_path, summary) VALUES (?, ?, ?, ?)`,
				lectureID,
				slide.Index,
				slide.ImagePath,
				nullableString(slide.Summary),
			); err != nil {
				return fmt.Errorf("insert slide %d: %w", slide.Index, err)
			}
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE lectures SET slide_count = ?, updated_at = ? WHERE id = ?`,
			len(slides),
			time.Now().UTC().Format(time.RFC3339Nano),
			lectureID,
		); err != nil {
			return fmt.Errorf("update slide count: %w", err)
		}
		return tx.Commit()
	})
}

// SlidesForLecture returns the slide set ordered by slide index.
func (s *Store) SlidesForLecture(ctx context.Context, lectureID int64) ([]Slide, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, lecture_id, slide_index, image_path, COALESCE(summary, '')
         FROM slides WHERE lecture_id = ? ORDER BY slide_index`,
		lectureID,
	)
	if err != nil {
		return nil, fmt.Errorf("query slides: %w", err)
	}
	defer rows.Close()

	var slides []Slide
	for rows.Next() {
		var slide Slide
		if err := rows.Scan(&slide.ID, &slide.LectureID, &slide.Index, &slide.ImagePath, &slide.Summary); err != nil {
			return nil, err
		}
		slides = append(slides, slide)
	}
	return slides, rows.Err()
}

// ReplaceSegments discards any prior transcription segments for a lecture and
// inserts the new set. Slide assignments on the incoming segments are
// preserved; fresh transcriptions arrive unassigned.
func (s *Store) ReplaceSegments(ctx context.Context, lectureID int64, segments []Segment) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin segments tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE lecture_id = ?`, lectureID); err != nil {
			return fmt.Errorf("clear prior segments: %w", err)
		}
		for i, seg := range segments {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO segments (lecture_id, start_seconds, end_seconds, text, slide_index)
                 VALUES (?, ?, ?, ?, ?)`,
				lectureID,
				seg.Start,
				seg.End,
				seg.Text,
				nullableInt(seg.SlideIndex),
			); err != nil {
				return fmt.Errorf("insert segment %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// SegmentsForLecture returns transcription segments ordered by start time.
func (s *Store) SegmentsForLecture(ctx context.Context, lectureID int64) ([]Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, lecture_id, start_seconds, end_seconds, text, slide_index
         FROM segments WHERE lecture_id = ? ORDER BY start_seconds, id`,
		lectureID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var (
			seg        Segment
			slideIndex *int
		)
		if err := rows.Scan(&seg.ID, &seg.LectureID, &seg.Start, &seg.End, &seg.Text, &slideIndex); err != nil {
			return nil, err
		}
		seg.SlideIndex = slideIndex
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// SaveTimeline replaces the slide intervals for a lecture and stores the
// matching envelope on the lecture row in the same transaction, so the
// timeline is either fully visible or absent.
func (s *Store) SaveTimeline(ctx context.Context, lectureID int64, timeline Timeline) error {
	encoded, err := timeline.Encode()
	if err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin timeline tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM slide_intervals WHERE lecture_id = ?`, lectureID); err != nil {
			return fmt.Errorf("clear prior intervals: %w", err)
		}
		for i, interval := range timeline.Intervals {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO slide_intervals (lecture_id, slide_index, start_seconds, end_seconds)
                 VALUES (?, ?, ?, ?)`,
				lectureID,
				interval.SlideIndex,
				interval.Start,
				interval.End,
			); err != nil {
				return fmt.Errorf("insert interval %d: %w", i, err)
			}
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE lectures SET timeline_data = ?, updated_at = ? WHERE id = ?`,
			encoded,
			time.Now().UTC().Format(time.RFC3339Nano),
			lectureID,
		); err != nil {
			return fmt.Errorf("update timeline data: %w", err)
		}
		return tx.Commit()
	})
}

// IntervalsForLecture returns the synchronized timeline ordered by start time.
func (s *Store) IntervalsForLecture(ctx context.Context, lectureID int64) ([]SlideInterval, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT slide_index, start_seconds, end_seconds
         FROM slide_intervals WHERE lecture_id = ? ORDER BY start_seconds`,
		lectureID,
	)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()

	var intervals []SlideInterval
	for rows.Next() {
		var interval SlideInterval
		if err := rows.Scan(&interval.SlideIndex, &interval.Start, &interval.End); err != nil {
			return nil, err
		}
		intervals = append(intervals, interval)
	}
	return intervals, rows.Err()
}

// AssignSegmentSlides batch-updates slide assignments keyed by segment id.
// The assignments map may carry nil values for segments that fall outside
// every interval; those are written as NULL.
func (s *Store) AssignSegmentSlides(ctx context.Context, lectureID int64, assignments map[int64]*int) error {
	if len(assignments) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin assignment tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `UPDATE segments SET slide_index = ? WHERE id = ? AND lecture_id = ?`)
		if err != nil {
			return fmt.Errorf("prepare assignment: %w", err)
		}
		defer stmt.Close()

		for segmentID, slideIndex := range assignments {
			if _, err := stmt.ExecContext(ctx, nullableInt(slideIndex), segmentID, lectureID); err != nil {
				return fmt.Errorf("assign segment %d: %w", segmentID, err)
			}
		}
		return tx.Commit()
	})
}

package lecture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const lectureColumns = "id, title, source_url, presentation_path, video_path, audio_path, status, error_kind, error_message, progress_stage, progress_percent, progress_message, timeline_data, duration_seconds, slide_count, language, created_at, updated_at"

// NewLecture inserts a pending lecture for a video source and presentation file.
func (s *Store) NewLecture(ctx context.Context, title, sourceURL, presentationPath, language string) (*Lecture, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO lectures (
            title, source_url, presentation_path, status, language, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullableString(title),
		nullableString(sourceURL),
		nullableString(presentationPath),
		StatusPending,
		nullableString(language),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert lecture: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a lecture by identifier. Returns nil when no row matches.
func (s *Store) GetByID(ctx context.Context, id int64) (*Lecture, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+lectureColumns+` FROM lectures WHERE id = ?`, id)
	lec, err := scanLecture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lecture: %w", err)
	}
	return lec, nil
}

// Update persists changes to an existing lecture. The status field is written
// as-is; use Transition for lifecycle moves so the transition rules apply.
func (s *Store) Update(ctx context.Context, lec *Lecture) error {
	if lec == nil {
		return errors.New("lecture is nil")
	}
	lec.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE lectures
         SET title = ?, source_url = ?, presentation_path = ?, video_path = ?,
             audio_path = ?, status = ?, error_kind = ?, error_message = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             timeline_data = ?, duration_seconds = ?, slide_count = ?,
             language = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(lec.Title),
		nullableString(lec.SourceURL),
		nullableString(lec.PresentationPath),
		nullableString(lec.VideoPath),
		nullableString(lec.AudioPath),
		lec.Status,
		nullableString(lec.ErrorKind),
		nullableString(lec.ErrorMessage),
		nullableString(lec.ProgressStage),
		lec.ProgressPercent,
		nullableString(lec.ProgressMessage),
		nullableString(lec.TimelineData),
		lec.Duration,
		lec.SlideCount,
		nullableString(lec.Language),
		lec.UpdatedAt.Format(time.RFC3339Nano),
		lec.ID,
	)
	if err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	return nil
}

// Transition moves a lecture to a new status after validating the move
// against the lifecycle rules, then persists all fields durably.
func (s *Store) Transition(ctx context.Context, lec *Lecture, to Status) error {
	if lec == nil {
		return errors.New("lecture is nil")
	}
	if !CanTransition(lec.Status, to) {
		return fmt.Errorf("illegal transition %s -> %s for lecture %d", lec.Status, to, lec.ID)
	}
	lec.Status = to
	return s.Update(ctx, lec)
}

// List returns lectures filtered by status set (or all lectures when no
// status is provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Lecture, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + lectureColumns + ` FROM lectures`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list lectures: %w", err)
	}
	defer rows.Close()

	var lectures []*Lecture
	for rows.Next() {
		lec, err := scanLecture(rows)
		if err != nil {
			return nil, err
		}
		lectures = append(lectures, lec)
	}
	return lectures, rows.Err()
}

// NextForStatuses returns the oldest lecture matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Lecture, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + lectureColumns + ` FROM lectures WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	lec, err := scanLecture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lec, nil
}

func scanLecture(scanner interface{ Scan(dest ...any) error }) (*Lecture, error) {
	var (
		id               int64
		title            sql.NullString
		sourceURL        sql.NullString
		presentationPath sql.NullString
		videoPath        sql.NullString
		audioPath        sql.NullString
		statusStr        string
		errorKind        sql.NullString
		errorMessage     sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		timelineData     sql.NullString
		duration         sql.NullFloat64
		slideCount       sql.NullInt64
		language         sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&sourceURL,
		&presentationPath,
		&videoPath,
		&audioPath,
		&statusStr,
		&errorKind,
		&errorMessage,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&timelineData,
		&duration,
		&slideCount,
		&language,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	lec := &Lecture{
		ID:               id,
		Title:            title.String,
		SourceURL:        sourceURL.String,
		PresentationPath: presentationPath.String,
		VideoPath:        videoPath.String,
		AudioPath:        audioPath.String,
		Status:           Status(statusStr),
		ErrorKind:        errorKind.String,
		ErrorMessage:     errorMessage.String,
		ProgressStage:    progressStage.String,
		ProgressPercent:  progressPercent.Float64,
		ProgressMessage:  progressMessage.String,
		TimelineData:     timelineData.String,
		Duration:         duration.Float64,
		SlideCount:       int(slideCount.Int64),
		Language:         language.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		lec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		lec.UpdatedAt = updated
	}
	return lec, nil
}

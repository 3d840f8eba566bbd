package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

const summaryColumns = `s.id, s.course_id, s.content, s.created_at, s.updated_at`

func scanSummary(row interface{ Scan(...any) error }) (*model.Summary, error) {
	var sm model.Summary
	var updated sql.NullTime
	if err := row.Scan(&sm.ID, &sm.CourseID, &sm.Content, &sm.CreatedAt, &updated); err != nil {
		return nil, err
	}
	if updated.Valid {
		t := updated.Time
		sm.UpdatedAt = &t
	}
	return &sm, nil
}

// UpsertSummary stores the summary of a course, replacing the content of
// an existing one.
func (s *Store) UpsertSummary(ctx context.Context, courseID int64, content string) (*model.Summary, error) {
	now := time.Now().UTC()
	id, err := s.insertID(ctx,
		`INSERT INTO summaries (course_id, content, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(course_id) DO UPDATE SET content = excluded.content, updated_at = excluded.created_at
		 RETURNING id`,
		courseID, content, now,
	)
	if err != nil {
		slog.Error("failed to store summary", "course_id", courseID, "error", err)
		return nil, err
	}
	slog.Info("stored summary", "id", id, "course_id", courseID)
	return s.GetSummary(ctx, id)
}

// GetSummary returns a summary by ID, or nil if none exists.
func (s *Store) GetSummary(ctx context.Context, id int64) (*model.Summary, error) {
	sm, err := scanSummary(s.queryRow(ctx,
		`SELECT `+summaryColumns+` FROM summaries s WHERE s.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sm, err
}

// GetSummaryByCourse returns the summary of a course, or nil if none exists.
func (s *Store) GetSummaryByCourse(ctx context.Context, courseID int64) (*model.Summary, error) {
	sm, err := scanSummary(s.queryRow(ctx,
		`SELECT `+summaryColumns+` FROM summaries s WHERE s.course_id = ?`, courseID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sm, err
}

// ListSummaries returns summaries ordered by ID. With publishedOnly set,
// summaries of draft courses are excluded.
func (s *Store) ListSummaries(ctx context.Context, publishedOnly bool, skip, limit int) ([]model.Summary, error) {
	skip, limit = paging(skip, limit)
	query := `SELECT ` + summaryColumns + ` FROM summaries s`
	var args []any
	if publishedOnly {
		query += ` JOIN courses c ON c.id = s.course_id WHERE c.status = ?`
		args = append(args, model.CoursePublished)
	}
	query += ` ORDER BY s.id LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Summary{}
	for rows.Next() {
		sm, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sm)
	}
	return out, rows.Err()
}

// UpdateSummary replaces the content of a summary.
func (s *Store) UpdateSummary(ctx context.Context, id int64, content string) (bool, error) {
	res, err := s.exec(ctx,
		`UPDATE summaries SET content = ?, updated_at = ? WHERE id = ?`,
		content, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// DeleteSummary removes a summary.
func (s *Store) DeleteSummary(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM summaries WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

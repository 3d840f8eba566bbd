package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

const testColumns = `t.id, t.course_id, t.questions, t.created_at`

func scanTest(row interface{ Scan(...any) error }) (*model.Test, error) {
	var t model.Test
	var raw string
	if err := row.Scan(&t.ID, &t.CourseID, &raw, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &t.Questions); err != nil {
		return nil, fmt.Errorf("decode questions of test %d: %w", t.ID, err)
	}
	return &t, nil
}

// UpsertTest stores the test of a course, replacing the questions of an
// existing one. Callers validate the questions first.
func (s *Store) UpsertTest(ctx context.Context, courseID int64, questions []model.Question) (*model.Test, error) {
	raw, err := marshalJSON(questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	id, err := s.insertID(ctx,
		`INSERT INTO tests (course_id, questions, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(course_id) DO UPDATE SET questions = excluded.questions
		 RETURNING id`,
		courseID, raw, time.Now().UTC(),
	)
	if err != nil {
		slog.Error("failed to store test", "course_id", courseID, "error", err)
		return nil, err
	}
	slog.Info("stored test", "id", id, "course_id", courseID, "questions", len(questions))
	return s.GetTest(ctx, id)
}

// GetTest returns a test by ID, or nil if none exists.
func (s *Store) GetTest(ctx context.Context, id int64) (*model.Test, error) {
	t, err := scanTest(s.queryRow(ctx,
		`SELECT `+testColumns+` FROM tests t WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// GetTestByCourse returns the test of a course, or nil if none exists.
func (s *Store) GetTestByCourse(ctx context.Context, courseID int64) (*model.Test, error) {
	t, err := scanTest(s.queryRow(ctx,
		`SELECT `+testColumns+` FROM tests t WHERE t.course_id = ?`, courseID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListTests returns tests ordered by ID. With publishedOnly set, tests of
// draft courses are excluded.
func (s *Store) ListTests(ctx context.Context, publishedOnly bool, skip, limit int) ([]model.Test, error) {
	skip, limit = paging(skip, limit)
	query := `SELECT ` + testColumns + ` FROM tests t`
	var args []any
	if publishedOnly {
		query += ` JOIN courses c ON c.id = t.course_id WHERE c.status = ?`
		args = append(args, model.CoursePublished)
	}
	query += ` ORDER BY t.id LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tests := []model.Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// UpdateTestQuestions replaces the questions of a test.
func (s *Store) UpdateTestQuestions(ctx context.Context, id int64, questions []model.Question) (bool, error) {
	raw, err := marshalJSON(questions)
	if err != nil {
		return false, fmt.Errorf("encode questions: %w", err)
	}
	res, err := s.exec(ctx, `UPDATE tests SET questions = ? WHERE id = ?`, raw, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// DeleteTest removes a test and its results.
func (s *Store) DeleteTest(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM tests WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	ok, err := affected(res)
	if ok {
		slog.Info("deleted test", "id", id)
	}
	return ok, err
}

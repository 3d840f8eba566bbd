package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/academy/internal/model"
)

// UpsertResult records a student's result for a test in one statement.
// A later submission overwrites the earlier one in place, so concurrent
// submissions for the same (test, student) pair leave exactly one row.
func (s *Store) UpsertResult(ctx context.Context, r model.Result) (model.Result, error) {
	raw, err := marshalJSON(r.Answers)
	if err != nil {
		return model.Result{}, fmt.Errorf("encode answers: %w", err)
	}
	id, err := s.insertID(ctx,
		`INSERT INTO results (test_id, student_id, answers, score, total_questions, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(test_id, student_id) DO UPDATE SET
			answers = excluded.answers,
			score = excluded.score,
			total_questions = excluded.total_questions,
			submitted_at = excluded.submitted_at
		 RETURNING id`,
		r.TestID, r.StudentID, raw, r.Score, r.TotalQuestions, r.SubmittedAt,
	)
	if err != nil {
		slog.Error("failed to upsert result", "test_id", r.TestID, "student_id", r.StudentID, "error", err)
		return model.Result{}, err
	}
	r.ID = id
	slog.Info("upserted result", "id", id, "test_id", r.TestID, "student_id", r.StudentID, "score", r.Score)
	return r, nil
}

const resultViewQuery = `
	SELECT r.id, r.test_id, r.student_id, r.answers, r.score, r.total_questions, r.submitted_at,
		t.course_id, c.title, u.email, u.full_name
	FROM results r
	JOIN tests t ON t.id = r.test_id
	JOIN courses c ON c.id = t.course_id
	JOIN users u ON u.id = r.student_id`

func scanResultView(row interface{ Scan(...any) error }) (*model.ResultView, error) {
	var v model.ResultView
	var raw string
	err := row.Scan(&v.ID, &v.TestID, &v.StudentID, &raw, &v.Score, &v.TotalQuestions, &v.SubmittedAt,
		&v.Test.CourseID, &v.Test.CourseTitle, &v.Student.Email, &v.Student.FullName)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &v.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of result %d: %w", v.ID, err)
	}
	v.Test.ID = v.TestID
	v.Student.ID = v.StudentID
	return &v, nil
}

// ResultFilter narrows a result listing. Zero fields are ignored.
type ResultFilter struct {
	CourseID  int64
	StudentID int64
	TestID    int64
	Skip      int
	Limit     int
}

// ListResults returns results joined with their test, course and student.
// Percentage and Passed are left for the caller to fill in.
func (s *Store) ListResults(ctx context.Context, f ResultFilter) ([]model.ResultView, error) {
	skip, limit := paging(f.Skip, f.Limit)
	query := resultViewQuery + ` WHERE 1=1`
	var args []any
	if f.CourseID != 0 {
		query += ` AND t.course_id = ?`
		args = append(args, f.CourseID)
	}
	if f.StudentID != 0 {
		query += ` AND r.student_id = ?`
		args = append(args, f.StudentID)
	}
	if f.TestID != 0 {
		query += ` AND r.test_id = ?`
		args = append(args, f.TestID)
	}
	query += ` ORDER BY r.id LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ResultView{}
	for rows.Next() {
		v, err := scanResultView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// GetResult returns the joined view of a result, or nil if none exists.
func (s *Store) GetResult(ctx context.Context, id int64) (*model.ResultView, error) {
	v, err := scanResultView(s.queryRow(ctx, resultViewQuery+` WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// GetStudentResult returns a student's result for a test, or nil if the
// student has not submitted it.
func (s *Store) GetStudentResult(ctx context.Context, studentID, testID int64) (*model.ResultView, error) {
	v, err := scanResultView(s.queryRow(ctx,
		resultViewQuery+` WHERE r.student_id = ? AND r.test_id = ?`, studentID, testID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// ResultCount returns the number of stored results for a test.
func (s *Store) ResultCount(ctx context.Context, testID int64) (int, error) {
	var count int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM results WHERE test_id = ?`, testID).Scan(&count)
	return count, err
}

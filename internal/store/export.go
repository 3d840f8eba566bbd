package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/academy/internal/model"
)

// ExportResults builds report rows for every result, optionally limited
// to one course. Rows are ordered by result ID.
func (s *Store) ExportResults(ctx context.Context, courseID int64) ([]model.ExportRow, error) {
	query := `
	SELECT r.id, u.full_name, u.email, c.id, c.title, t.id, r.score, r.total_questions,
		r.submitted_at, t.questions, r.answers
	FROM results r
	JOIN tests t ON t.id = r.test_id
	JOIN courses c ON c.id = t.course_id
	JOIN users u ON u.id = r.student_id`
	var args []any
	if courseID != 0 {
		query += ` WHERE c.id = ?`
		args = append(args, courseID)
	}
	query += ` ORDER BY r.id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []model.ExportRow
	for rows.Next() {
		var row model.ExportRow
		var questions, answers string
		if err := rows.Scan(&row.ResultID, &row.StudentName, &row.StudentEmail, &row.CourseID, &row.CourseTitle,
			&row.TestID, &row.Score, &row.TotalQuestions, &row.SubmittedAt, &questions, &answers); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(questions), &row.Questions); err != nil {
			return nil, fmt.Errorf("decode questions of test %d: %w", row.TestID, err)
		}
		if err := json.Unmarshal([]byte(answers), &row.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of result %d: %w", row.ResultID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

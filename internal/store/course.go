package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

const courseColumns = `id, title, description, original_text, file_url, created_by, status, created_at`

func scanCourse(row interface{ Scan(...any) error }) (*model.Course, error) {
	var c model.Course
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.OriginalText, &c.FileURL, &c.CreatedBy, &c.Status, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourse stores a course in draft state.
func (s *Store) CreateCourse(ctx context.Context, c model.Course) (*model.Course, error) {
	c.Status = model.CourseDraft
	c.CreatedAt = time.Now().UTC()
	id, err := s.insertID(ctx,
		`INSERT INTO courses (title, description, original_text, file_url, created_by, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		c.Title, c.Description, c.OriginalText, c.FileURL, c.CreatedBy, c.Status, c.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to create course", "title", c.Title, "error", err)
		return nil, err
	}
	c.ID = id
	slog.Info("created course", "id", id, "title", c.Title, "created_by", c.CreatedBy)
	return &c, nil
}

// GetCourse returns a course by ID, or nil if none exists.
func (s *Store) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	c, err := scanCourse(s.queryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListCourses returns courses ordered by ID. With publishedOnly set,
// drafts are excluded.
func (s *Store) ListCourses(ctx context.Context, publishedOnly bool, skip, limit int) ([]model.Course, error) {
	skip, limit = paging(skip, limit)
	query := `SELECT ` + courseColumns + ` FROM courses`
	var args []any
	if publishedOnly {
		query += ` WHERE status = ?`
		args = append(args, model.CoursePublished)
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	courses := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// UpdateCourse applies the non-nil fields of upd. It reports whether the
// course exists.
func (s *Store) UpdateCourse(ctx context.Context, id int64, upd model.CourseUpdate) (bool, error) {
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("title", upd.Title)
	add("description", upd.Description)
	add("original_text", upd.OriginalText)
	add("file_url", upd.FileURL)
	if len(sets) == 0 {
		c, err := s.GetCourse(ctx, id)
		return c != nil, err
	}

	args = append(args, id)
	res, err := s.exec(ctx, `UPDATE courses SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// SetCourseStatus changes the publication state of a course.
func (s *Store) SetCourseStatus(ctx context.Context, id int64, status model.CourseStatus) (bool, error) {
	res, err := s.exec(ctx, `UPDATE courses SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return false, err
	}
	ok, err := affected(res)
	if ok {
		slog.Info("changed course status", "id", id, "status", status)
	}
	return ok, err
}

// DeleteCourse removes a course together with its summary, test and results.
func (s *Store) DeleteCourse(ctx context.Context, id int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	ok, err := affected(res)
	if ok {
		slog.Info("deleted course", "id", id)
	}
	return ok, err
}

package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleMethodist authors courses, tests and reads every result.
	UserRoleMethodist UserRole = "methodist"
	// UserRoleStudent reads published courses and takes tests.
	UserRoleStudent UserRole = "student"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == UserRoleMethodist || r == UserRoleStudent
}

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// CourseStatus is the publication state of a course.
type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
)

// Course is a unit of study material.
type Course struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	OriginalText string       `json:"original_text,omitempty"`
	FileURL      string       `json:"file_url,omitempty"`
	CreatedBy    int64        `json:"created_by"`
	Status       CourseStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Published reports whether students may see the course.
func (c Course) Published() bool {
	return c.Status == CoursePublished
}

// CourseUpdate carries the fields of a partial course update. Nil means unchanged.
type CourseUpdate struct {
	Title        *string
	Description  *string
	OriginalText *string
	FileURL      *string
}

// Summary is the condensed text of a course. A course has at most one.
type Summary struct {
	ID        int64      `json:"id"`
	CourseID  int64      `json:"course_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Question is a multiple-choice item. CorrectAnswer is one of Options.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Test is the question set attached to a course. A course has at most one.
type Test struct {
	ID        int64      `json:"id"`
	CourseID  int64      `json:"course_id"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
}

// StudentQuestion is a question as a student sees it. ID is the
// zero-based position of the question in its test.
type StudentQuestion struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// StudentTest is a test with every correct answer removed.
type StudentTest struct {
	ID        int64             `json:"id"`
	CourseID  int64             `json:"course_id"`
	Questions []StudentQuestion `json:"questions"`
	CreatedAt time.Time         `json:"created_at"`
}

// SubmittedAnswer is one answer in a student's submission.
type SubmittedAnswer struct {
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
}

// GradedAnswer is a submitted answer with its verdict.
type GradedAnswer struct {
	QuestionID     int    `json:"question_id"`
	SelectedAnswer string `json:"selected_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

// Result is the single stored outcome of a student's latest submission for a test.
type Result struct {
	ID             int64          `json:"id"`
	TestID         int64          `json:"test_id"`
	StudentID      int64          `json:"student_id"`
	Answers        []GradedAnswer `json:"answers"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"total_questions"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	NumQuestions         int
	MaxUploadBytes       int64
	AllowMethodistSignup bool
	AIRatePerMinute      int
	Version              string
}

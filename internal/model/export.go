package model

import "time"

// UserRef is the part of a user embedded in result listings.
type UserRef struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// TestRef is the part of a test embedded in result listings.
type TestRef struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	CourseTitle string `json:"course_title"`
}

// ResultView is a result joined with its test and student.
type ResultView struct {
	Result
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
	Test       TestRef `json:"test"`
	Student    UserRef `json:"student"`
}

// Submission is what a student receives after submitting a test.
type Submission struct {
	ResultID       int64          `json:"result_id"`
	TestID         int64          `json:"test_id"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"total_questions"`
	Percentage     float64        `json:"percentage"`
	Passed         bool           `json:"passed"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	Answers        []GradedAnswer `json:"answers"`
}

// DetailedAnswer pairs a graded answer with its question. Only shown to
// the student who owns the result, after submission.
type DetailedAnswer struct {
	QuestionID     int      `json:"question_id"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	SelectedAnswer string   `json:"selected_answer"`
	CorrectAnswer  string   `json:"correct_answer"`
	IsCorrect      bool     `json:"is_correct"`
}

// DetailedResult is a student's own result with per-question detail.
type DetailedResult struct {
	ResultID       int64            `json:"result_id"`
	TestID         int64            `json:"test_id"`
	CourseID       int64            `json:"course_id"`
	CourseTitle    string           `json:"course_title"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"total_questions"`
	Percentage     float64          `json:"percentage"`
	Passed         bool             `json:"passed"`
	SubmittedAt    time.Time        `json:"submitted_at"`
	Answers        []DetailedAnswer `json:"answers"`
}

// ExportRow holds everything the CSV report needs about one result.
type ExportRow struct {
	ResultID       int64
	StudentName    string
	StudentEmail   string
	CourseID       int64
	CourseTitle    string
	TestID         int64
	Score          int
	TotalQuestions int
	SubmittedAt    time.Time
	Questions      []Question
	Answers        []GradedAnswer
}

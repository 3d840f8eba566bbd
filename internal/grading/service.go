package grading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

// Repository is the storage the submission flow depends on. Getters
// return nil, nil when the row does not exist.
type Repository interface {
	GetTest(ctx context.Context, id int64) (*model.Test, error)
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	UpsertResult(ctx context.Context, r model.Result) (model.Result, error)
}

// Service grades submissions and stores them.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a submission service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Submit grades a student's answers for a test and overwrites any earlier
// result the student holds for it. Tests of unpublished courses are
// reported as not found.
func (s *Service) Submit(ctx context.Context, studentID, testID int64, answers []model.SubmittedAnswer) (*model.Submission, error) {
	test, err := s.repo.GetTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("load test %d: %w", testID, err)
	}
	if test == nil {
		return nil, fmt.Errorf("test %d: %w", testID, model.ErrNotFound)
	}
	course, err := s.repo.GetCourse(ctx, test.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", test.CourseID, err)
	}
	if course == nil || !course.Published() {
		return nil, fmt.Errorf("test %d: %w", testID, model.ErrNotFound)
	}

	out, err := Grade(test.Questions, answers)
	if err != nil {
		return nil, err
	}

	res, err := s.repo.UpsertResult(ctx, model.Result{
		TestID:         testID,
		StudentID:      studentID,
		Answers:        out.Answers,
		Score:          out.Score,
		TotalQuestions: out.Total,
		SubmittedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}
	slog.Info("graded submission",
		"result_id", res.ID, "test_id", testID, "student_id", studentID,
		"score", out.Score, "total", out.Total, "passed", out.Passed)

	return &model.Submission{
		ResultID:       res.ID,
		TestID:         testID,
		Score:          out.Score,
		TotalQuestions: out.Total,
		Percentage:     out.Percentage,
		Passed:         out.Passed,
		SubmittedAt:    res.SubmittedAt,
		Answers:        out.Answers,
	}, nil
}

// Package grading scores multiple-choice submissions and records the
// outcome as the single result a student holds for a test.
package grading

import (
	"fmt"

	"github.com/pavelanni/academy/internal/model"
)

// PassThreshold is the percentage at or above which a result passes.
const PassThreshold = 60.0

// Outcome is the scored form of a submission.
type Outcome struct {
	Score      int
	Total      int
	Percentage float64
	Passed     bool
	Answers    []model.GradedAnswer
}

// Grade scores answers against the questions of a test. A question_id is
// the zero-based position of the question. Unanswered questions count as
// wrong; an unknown or repeated question_id rejects the whole submission.
func Grade(questions []model.Question, answers []model.SubmittedAnswer) (Outcome, error) {
	if len(answers) == 0 {
		return Outcome{}, model.Invalid("EmptySubmission", "submission contains no answers", nil)
	}

	seen := make(map[int]bool, len(answers))
	graded := make([]model.GradedAnswer, 0, len(answers))
	score := 0
	for _, a := range answers {
		if a.QuestionID < 0 || a.QuestionID >= len(questions) {
			return Outcome{}, model.Invalid("UnknownQuestion",
				fmt.Sprintf("question_id %d does not exist in this test", a.QuestionID),
				map[string]any{"ID": a.QuestionID})
		}
		if seen[a.QuestionID] {
			return Outcome{}, model.Invalid("DuplicateAnswer",
				fmt.Sprintf("question_id %d is answered more than once", a.QuestionID),
				map[string]any{"ID": a.QuestionID})
		}
		seen[a.QuestionID] = true

		correct := a.SelectedAnswer == questions[a.QuestionID].CorrectAnswer
		if correct {
			score++
		}
		graded = append(graded, model.GradedAnswer{
			QuestionID:     a.QuestionID,
			SelectedAnswer: a.SelectedAnswer,
			IsCorrect:      correct,
		})
	}

	total := len(questions)
	pct := Percentage(score, total)
	return Outcome{
		Score:      score,
		Total:      total,
		Percentage: pct,
		Passed:     Passed(pct),
		Answers:    graded,
	}, nil
}

// Percentage returns 100*score/total, or 0 for an empty test.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(score) / float64(total)
}

// Passed reports whether pct meets PassThreshold.
func Passed(pct float64) bool {
	return pct >= PassThreshold
}

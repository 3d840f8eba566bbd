package grading

import (
	"slices"

	"github.com/pavelanni/academy/internal/model"
)

// Detail joins a stored result with the questions of its test. Answers
// that no longer match a question are left out.
func Detail(v model.ResultView, questions []model.Question) model.DetailedResult {
	pct := Percentage(v.Score, v.TotalQuestions)
	out := model.DetailedResult{
		ResultID:       v.ID,
		TestID:         v.TestID,
		CourseID:       v.Test.CourseID,
		CourseTitle:    v.Test.CourseTitle,
		Score:          v.Score,
		TotalQuestions: v.TotalQuestions,
		Percentage:     pct,
		Passed:         Passed(pct),
		SubmittedAt:    v.SubmittedAt,
		Answers:        make([]model.DetailedAnswer, 0, len(v.Answers)),
	}
	for _, a := range v.Answers {
		if a.QuestionID < 0 || a.QuestionID >= len(questions) {
			continue
		}
		q := questions[a.QuestionID]
		out.Answers = append(out.Answers, model.DetailedAnswer{
			QuestionID:     a.QuestionID,
			Question:       q.Question,
			Options:        slices.Clone(q.Options),
			SelectedAnswer: a.SelectedAnswer,
			CorrectAnswer:  q.CorrectAnswer,
			IsCorrect:      a.IsCorrect,
		})
	}
	return out
}

// Annotate fills in Percentage and Passed on stored result views.
func Annotate(views []model.ResultView) {
	for i := range views {
		views[i].Percentage = Percentage(views[i].Score, views[i].TotalQuestions)
		views[i].Passed = Passed(views[i].Percentage)
	}
}

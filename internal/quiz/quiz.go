// Package quiz holds the rules a question set must satisfy and the
// projections of a test shown to methodists and students.
package quiz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pavelanni/academy/internal/model"
)

// MinOptions is the smallest number of options a question may carry.
const MinOptions = 2

// Validate checks that every question is well-formed and that its correct
// answer is one of its options. Nothing with an invalid question set is stored.
func Validate(questions []model.Question) error {
	if len(questions) == 0 {
		return model.Invalid("NoQuestions", "test must contain at least one question", nil)
	}
	for i, q := range questions {
		data := map[string]any{"Number": i + 1}
		if strings.TrimSpace(q.Question) == "" {
			return model.Invalid("QuestionTextEmpty",
				fmt.Sprintf("question %d has no text", i+1), data)
		}
		if len(q.Options) < MinOptions {
			data["Min"] = MinOptions
			return model.Invalid("QuestionTooFewOptions",
				fmt.Sprintf("question %d must have at least %d options", i+1, MinOptions), data)
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return model.Invalid("QuestionOptionEmpty",
					fmt.Sprintf("question %d has an empty option", i+1), data)
			}
		}
		if !slices.Contains(q.Options, q.CorrectAnswer) {
			return model.Invalid("CorrectAnswerNotInOptions",
				fmt.Sprintf("question %d: correct answer is not one of the options", i+1), data)
		}
	}
	return nil
}

// Redact returns the student view of a test: positional IDs, text and
// options only.
func Redact(t model.Test) model.StudentTest {
	out := model.StudentTest{
		ID:        t.ID,
		CourseID:  t.CourseID,
		CreatedAt: t.CreatedAt,
		Questions: make([]model.StudentQuestion, len(t.Questions)),
	}
	for i, q := range t.Questions {
		out.Questions[i] = model.StudentQuestion{
			ID:       i,
			Question: q.Question,
			Options:  slices.Clone(q.Options),
		}
	}
	return out
}

// RedactAll applies Redact to each test.
func RedactAll(tests []model.Test) []model.StudentTest {
	out := make([]model.StudentTest, 0, len(tests))
	for _, t := range tests {
		out = append(out, Redact(t))
	}
	return out
}

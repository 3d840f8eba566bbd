// Package report renders test results as spreadsheet-friendly CSV.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pavelanni/academy/internal/grading"
	"github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/model"
)

// Granularity selects whether the export has one row per result or one
// row per answered question.
type Granularity string

const (
	PerResult Granularity = "result"
	PerAnswer Granularity = "answer"
)

// TimeLayout formats submission times in exports.
const TimeLayout = "2006-01-02 15:04:05"

var bom = []byte{0xEF, 0xBB, 0xBF}

// Options controls the CSV layout.
type Options struct {
	Delimiter   rune
	Granularity Granularity
}

// ParseDelimiter accepts ";" and ",". Empty selects ";".
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "", ";":
		return ';', nil
	case ",":
		return ',', nil
	}
	return 0, model.Invalid("InvalidDelimiter", fmt.Sprintf("unsupported delimiter %q", s), nil)
}

// ParseGranularity accepts "result" and "answer". Empty selects "result".
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", PerResult:
		return PerResult, nil
	case PerAnswer:
		return PerAnswer, nil
	}
	return "", model.Invalid("InvalidGranularity", fmt.Sprintf("unsupported granularity %q", s), nil)
}

// WriteCSV writes rows as UTF-8 CSV with a byte order mark. Headers and
// yes/no values are localized through the localizer in ctx.
func WriteCSV(ctx context.Context, w io.Writer, rows []model.ExportRow, opts Options) error {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	if opts.Granularity == "" {
		opts.Granularity = PerResult
	}

	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.Comma = opts.Delimiter

	var err error
	switch opts.Granularity {
	case PerResult:
		err = writeResults(ctx, cw, rows)
	case PerAnswer:
		err = writeAnswers(ctx, cw, rows)
	default:
		return model.Invalid("InvalidGranularity", fmt.Sprintf("unsupported granularity %q", opts.Granularity), nil)
	}
	if err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func headers(ctx context.Context, ids ...string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = i18n.T(ctx, id)
	}
	return out
}

func yesNo(ctx context.Context, v bool) string {
	if v {
		return i18n.T(ctx, "Yes")
	}
	return i18n.T(ctx, "No")
}

func writeResults(ctx context.Context, cw *csv.Writer, rows []model.ExportRow) error {
	if err := cw.Write(headers(ctx,
		"CSVResultID", "CSVStudentName", "CSVStudentEmail", "CSVCourseTitle", "CSVTestID",
		"CSVScore", "CSVTotalQuestions", "CSVPercentage", "CSVPassed", "CSVSubmittedAt",
	)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		pct := grading.Percentage(r.Score, r.TotalQuestions)
		record := []string{
			strconv.FormatInt(r.ResultID, 10),
			r.StudentName,
			r.StudentEmail,
			r.CourseTitle,
			strconv.FormatInt(r.TestID, 10),
			strconv.Itoa(r.Score),
			strconv.Itoa(r.TotalQuestions),
			strconv.FormatFloat(pct, 'f', 2, 64),
			yesNo(ctx, grading.Passed(pct)),
			r.SubmittedAt.Format(TimeLayout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write result %d: %w", r.ResultID, err)
		}
	}
	return nil
}

// writeAnswers emits one row per question of each result's test.
// Questions the student skipped have an empty selected answer.
func writeAnswers(ctx context.Context, cw *csv.Writer, rows []model.ExportRow) error {
	if err := cw.Write(headers(ctx,
		"CSVResultID", "CSVStudentName", "CSVStudentEmail", "CSVCourseTitle", "CSVTestID",
		"CSVQuestionNumber", "CSVQuestion", "CSVSelectedAnswer", "CSVCorrectAnswer", "CSVIsCorrect",
		"CSVSubmittedAt",
	)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		byQuestion := make(map[int]model.GradedAnswer, len(r.Answers))
		for _, a := range r.Answers {
			byQuestion[a.QuestionID] = a
		}
		for i, q := range r.Questions {
			a, answered := byQuestion[i]
			record := []string{
				strconv.FormatInt(r.ResultID, 10),
				r.StudentName,
				r.StudentEmail,
				r.CourseTitle,
				strconv.FormatInt(r.TestID, 10),
				strconv.Itoa(i + 1),
				q.Question,
				a.SelectedAnswer,
				q.CorrectAnswer,
				yesNo(ctx, answered && a.IsCorrect),
				r.SubmittedAt.Format(TimeLayout),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write result %d question %d: %w", r.ResultID, i+1, err)
			}
		}
	}
	return nil
}

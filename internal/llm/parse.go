package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/quiz"
)

var (
	// Plain-text fallback: "Ситуация N" / "Situation N" blocks with a
	// question, options A) to D) and a "correct answer" line.
	situationSplitRegex = regexp.MustCompile(`(?m)^\s*(?:Ситуация|Situation)\s+\d+\s*[.:)]?`)
	situationQuestion   = regexp.MustCompile(`(?is)(?:Вопрос|Question)\s*:\s*(.+?)\s*(?:Варианты ответов|Options|Answer options)\s*:`)
	situationOptions    = regexp.MustCompile(`(?is)(?:Варианты ответов|Options|Answer options)\s*:\s*A\)\s*(.+?)\s*B\)\s*(.+?)\s*C\)\s*(.+?)\s*D\)\s*(.+?)\s*(?:Правильный ответ|Correct answer)\s*:`)
	situationCorrect    = regexp.MustCompile(`(?i)(?:Правильный ответ|Correct answer)\s*:\s*([A-DА-Г])`)

	optionPrefixRegex = regexp.MustCompile(`^\s*[A-DА-Гa-dа-г]\s*[).:]\s+`)
	letterRegex       = regexp.MustCompile(`^\s*([A-DА-Гa-dа-г])\s*[).:]?\s*$`)
)

type rawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// ParseQuestions decodes the model's answer into exactly n valid
// questions. JSON is preferred; the plain-text situation format is
// accepted as a fallback.
func ParseQuestions(raw string, n int) ([]model.Question, error) {
	parsed, err := decodeJSONQuestions(raw)
	if err != nil {
		parsed = parseSituations(raw)
		if len(parsed) == 0 {
			return nil, fmt.Errorf("parse questions: %w (raw: %.200s)", err, raw)
		}
	}

	questions := make([]model.Question, 0, len(parsed))
	for _, rq := range parsed {
		questions = append(questions, normalize(rq))
	}
	if len(questions) != n {
		return nil, fmt.Errorf("expected %d questions, got %d", n, len(questions))
	}
	for i, q := range questions {
		if len(q.Options) != OptionsPerQuestion {
			return nil, fmt.Errorf("question %d has %d options, want %d", i+1, len(q.Options), OptionsPerQuestion)
		}
	}
	if err := quiz.Validate(questions); err != nil {
		return nil, fmt.Errorf("generated questions rejected: %v", err)
	}
	return questions, nil
}

func decodeJSONQuestions(raw string) ([]rawQuestion, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var wrapped struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Questions) > 0 {
		return wrapped.Questions, nil
	}
	var list []rawQuestion
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func parseSituations(raw string) []rawQuestion {
	var out []rawQuestion
	for _, block := range situationSplitRegex.Split(raw, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		qm := situationQuestion.FindStringSubmatchIndex(block)
		om := situationOptions.FindStringSubmatch(block)
		cm := situationCorrect.FindStringSubmatch(block)
		if qm == nil || om == nil || cm == nil {
			continue
		}
		situation := strings.TrimSpace(block[:qm[0]])
		question := strings.TrimSpace(block[qm[2]:qm[3]])
		if situation != "" {
			question = situation + "\n\n" + question
		}
		out = append(out, rawQuestion{
			Question:      question,
			Options:       []string{strings.TrimSpace(om[1]), strings.TrimSpace(om[2]), strings.TrimSpace(om[3]), strings.TrimSpace(om[4])},
			CorrectAnswer: cm[1],
		})
	}
	return out
}

// normalize trims text, strips "A) " style prefixes from options and
// resolves a letter answer to the text of the matching option.
func normalize(rq rawQuestion) model.Question {
	q := model.Question{Question: strings.TrimSpace(rq.Question)}
	for _, opt := range rq.Options {
		q.Options = append(q.Options, strings.TrimSpace(optionPrefixRegex.ReplaceAllString(opt, "")))
	}

	answer := strings.TrimSpace(rq.CorrectAnswer)
	if m := letterRegex.FindStringSubmatch(answer); m != nil {
		if idx := letterIndex(m[1]); idx >= 0 && idx < len(q.Options) {
			q.CorrectAnswer = q.Options[idx]
			return q
		}
	}
	q.CorrectAnswer = strings.TrimSpace(optionPrefixRegex.ReplaceAllString(answer, ""))
	return q
}

func letterIndex(letter string) int {
	switch strings.ToUpper(letter) {
	case "A", "А":
		return 0
	case "B", "Б":
		return 1
	case "C", "В":
		return 2
	case "D", "Г":
		return 3
	}
	return -1
}

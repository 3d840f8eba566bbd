package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var FS embed.FS

var (
	materialTagRegex        = regexp.MustCompile(`(?i)</?\s*course-material\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// Language selects the language prompts are written in, and so the
// language of the generated content.
type Language string

const (
	LanguageRussian Language = "ru"
	LanguageEnglish Language = "en"
)

var languages = []Language{LanguageRussian, LanguageEnglish}

// DefaultMaxSourceRunes bounds the course text placed into a prompt.
const DefaultMaxSourceRunes = 12000

var (
	loadOnce          sync.Once
	loadErr           error
	summaryTemplates  map[Language]*template.Template
	questionTemplates map[Language]*template.Template
)

// IsValidLanguage checks if a prompt language is supported.
func IsValidLanguage(lang string) bool {
	for _, l := range languages {
		if string(l) == lang {
			return true
		}
	}
	return false
}

// SummaryData holds template data for summary prompts.
type SummaryData struct {
	Text string
}

// QuestionsData holds template data for question generation prompts.
type QuestionsData struct {
	Text         string
	NumQuestions int
	NumOptions   int
}

// Load parses the prompt templates from fsys. It uses sync.Once so
// templates are parsed only once per process.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		summaryTemplates = make(map[Language]*template.Template)
		questionTemplates = make(map[Language]*template.Template)

		for _, l := range languages {
			for name, dst := range map[string]map[Language]*template.Template{
				"summary":   summaryTemplates,
				"questions": questionTemplates,
			} {
				file := "templates/" + name + "_" + string(l) + ".txt"
				content, err := fs.ReadFile(fsys, file)
				if err != nil {
					loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
					return
				}
				tmpl, err := template.New(name).Parse(string(content))
				if err != nil {
					loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
					return
				}
				dst[l] = tmpl
			}
		}
	})
	return loadErr
}

func lookup(set map[Language]*template.Template, lang Language) (*template.Template, error) {
	if set == nil {
		return nil, errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := set[lang]
	if !ok {
		if loadErr != nil {
			return nil, fmt.Errorf("templates load failed: %w", loadErr)
		}
		return nil, errors.New("unsupported prompt language: " + string(lang))
	}
	return tmpl, nil
}

// BuildSummaryPrompt builds the system prompt that asks for a course summary.
func BuildSummaryPrompt(lang Language, text string, maxRunes int) (string, error) {
	tmpl, err := lookup(summaryTemplates, lang)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, SummaryData{Text: SanitizeSource(text, maxRunes)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildQuestionsPrompt builds the system prompt that asks for n
// multiple-choice questions with numOptions options each.
func BuildQuestionsPrompt(lang Language, text string, n, numOptions, maxRunes int) (string, error) {
	tmpl, err := lookup(questionTemplates, lang)
	if err != nil {
		return "", err
	}
	data := QuestionsData{
		Text:         SanitizeSource(text, maxRunes),
		NumQuestions: n,
		NumOptions:   numOptions,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SanitizeSource strips delimiter tags from course text and truncates it
// to maxRunes runes.
func SanitizeSource(text string, maxRunes int) string {
	text = materialTagRegex.ReplaceAllString(text, "")
	text = systemInstructionsRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if maxRunes <= 0 {
		maxRunes = DefaultMaxSourceRunes
	}
	if utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		text = string(runes[:maxRunes])
	}
	return text
}

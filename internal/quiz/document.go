package quiz

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// QuestionCount is the number of questions every quiz carries.
	QuestionCount = 10
	// OptionCount is the number of answer options per question.
	OptionCount = 4
	// MaxDescriptionLength caps the description in Unicode code points.
	MaxDescriptionLength = 150
)

// ErrInvalidContent marks generated output that is not a usable quiz.
var ErrInvalidContent = errors.New("invalid generated content")

// Document is the structured quiz returned by a successful conversion.
type Document struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Question is one multiple-choice item.
type Question struct {
	Title   string   `json:"question_title"`
	Options []string `json:"question_options"`
	Answer  string   `json:"answer"`
}

// ValidationError lists every rule a document broke.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "quiz document failed validation: " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidContent }

// Validate checks the structural rules of a quiz document.
func (d *Document) Validate() error {
	if d == nil {
		return &ValidationError{Violations: []string{"document is empty"}}
	}
	var violations []string
	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if isBlank(d.Title) {
		add("title is blank")
	}
	if n := utf8.RuneCountInString(d.Description); n > MaxDescriptionLength {
		add("description has %d characters, limit is %d", n, MaxDescriptionLength)
	}
	if len(d.Questions) != QuestionCount {
		add("expected %d questions, got %d", QuestionCount, len(d.Questions))
	}

	for i, q := range d.Questions {
		label := fmt.Sprintf("question %d", i+1)
		if isBlank(q.Title) {
			add("%s: question_title is blank", label)
		}
		if len(q.Options) != OptionCount {
			add("%s: expected %d options, got %d", label, OptionCount, len(q.Options))
		}
		seen := make(map[string]struct{}, len(q.Options))
		for j, opt := range q.Options {
			if isBlank(opt) {
				add("%s: option %d is blank", label, j+1)
				continue
			}
			if _, dup := seen[opt]; dup {
				add("%s: option %q is repeated", label, opt)
			}
			seen[opt] = struct{}{}
		}
		switch {
		case isBlank(q.Answer):
			add("%s: answer is blank", label)
		case !contains(q.Options, q.Answer):
			add("%s: answer %q is not one of the options", label, q.Answer)
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

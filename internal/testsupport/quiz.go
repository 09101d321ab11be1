package testsupport

import (
	"encoding/json"
	"fmt"
	"testing"

	"clipquiz/internal/quiz"
)

// ValidQuiz returns a document that passes validation.
func ValidQuiz() quiz.Document {
	doc := quiz.Document{
		Title:       "Binary Search Trees",
		Description: "Ordering, lookup and balancing of binary search trees.",
	}
	for i := range quiz.QuestionCount {
		options := []string{
			fmt.Sprintf("Option A%d", i),
			fmt.Sprintf("Option B%d", i),
			fmt.Sprintf("Option C%d", i),
			fmt.Sprintf("Option D%d", i),
		}
		doc.Questions = append(doc.Questions, quiz.Question{
			Title:   fmt.Sprintf("Question %d?", i+1),
			Options: options,
			Answer:  options[i%len(options)],
		})
	}
	return doc
}

// QuizJSON marshals doc, failing the test on error.
func QuizJSON(t testing.TB, doc quiz.Document) string {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	return string(data)
}

// FencedQuizJSON wraps a valid quiz in a ```json fence the way models often
// reply.
func FencedQuizJSON(t testing.TB) string {
	t.Helper()
	return "```json\n" + QuizJSON(t, ValidQuiz()) + "\n```"
}

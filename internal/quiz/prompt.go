package quiz

import (
	"fmt"
	"strings"
)

const promptTemplate = `Based on the following transcript, generate a quiz in valid JSON format.

Transcript:
"""
%s
"""

The quiz must follow this exact structure:

{
  "title": "A concise quiz title based on the topic of the transcript.",
  "description": "A summary of the topic in no more than %d characters. Do not include any quiz questions or answers.",
  "questions": [
    {
      "question_title": "The question goes here.",
      "question_options": ["Option A", "Option B", "Option C", "Option D"],
      "answer": "The correct answer, copied exactly from question_options"
    }
  ]
}

Requirements:
- Generate exactly %d questions.
- Each question must have exactly %d distinct answer options.
- Exactly one answer per question, and it must be literally equal to one of its question_options.
- The description must describe the topic only and stay within %d characters.
- The output must be valid JSON that parses as-is.
- Do not include explanations, comments, Markdown, or any text outside the JSON object.`

// BuildPrompt returns the generation instruction for a transcript.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate,
		strings.TrimSpace(transcript),
		MaxDescriptionLength,
		QuestionCount,
		OptionCount,
		MaxDescriptionLength,
	)
}

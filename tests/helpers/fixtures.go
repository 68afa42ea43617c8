package helpers

import (
	"fmt"
	"strings"
)

// TestUser represents a test learner fixture
type TestUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

var DefaultTestUser = TestUser{
	Name:     "Test Learner",
	Email:    "learner@example.com",
	Password: "test-password-123",
}

// Canned model answers, one per generation task. They carry the quirks real
// models produce: code fences, trailing prose and letter-coded answers.
const (
	RoadmapReply = "```json\n" + `{
  "topic": "Go",
  "phases": [
    {"name": "Foundations", "lessons": [
      {"title": "Variables and Types", "summary": "Declaring values"},
      {"title": "Control Flow", "summary": "if, for and switch"}
    ]},
    {"name": "Concurrency", "lessons": [
      {"title": "Goroutines", "summary": "Lightweight threads"}
    ]}
  ]
}` + "\n```"

	SourcesReply = `Here are the sources: {"sources": [
  {"title": "A Tour of Go", "url": "https://go.dev/tour", "type": "course", "relevance": 0.95},
  {"title": "Effective Go", "url": "https://go.dev/doc/effective_go", "type": "documentation"}
]}`

	LessonReply = `{"title": "Variables and Types", "content": "Go is statically typed. Declare with var or :=.", "estimated_time_min": 20, "video_links": []}`

	ValidationReply = `{"valid": true, "confidence_score": 0.9, "issues": []}`

	QuizReply = `{"questions": [
  {"question": "Which keyword declares a variable?", "options": ["var", "let", "dim", "def"], "correct_answer": "A", "explanation": "var declares."},
  {"question": "What does := do?", "options": ["Compare", "Short declaration", "Assign pointer", "Nothing"], "correct_answer": 1},
  {"question": "Is Go statically typed?", "options": ["No", "Only at runtime", "Yes", "Sometimes"], "correct_answer": "Yes"}
], "pass_score": 70}`
)

// QuizAnswers are the correct answer indexes for QuizReply.
var QuizAnswers = []int{0, 1, 2}

// LessonModel answers every generation task with its canned reply, keyed on
// the prompt's purpose line.
func LessonModel(prompt string, _ int) (string, error) {
	purpose := prompt
	if i := strings.Index(prompt, "\n\n"); i >= 0 {
		purpose = prompt[:i]
	}
	switch {
	case strings.Contains(purpose, "learning resources"):
		return SourcesReply, nil
	case strings.Contains(purpose, "learning roadmap"):
		return RoadmapReply, nil
	case strings.Contains(purpose, "Write one self-contained lesson"):
		return LessonReply, nil
	case strings.Contains(purpose, "Review a lesson"):
		return ValidationReply, nil
	case strings.Contains(purpose, "multiple-choice quiz"):
		return QuizReply, nil
	}
	return "", fmt.Errorf("no canned reply for prompt %q", purpose)
}

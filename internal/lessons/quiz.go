package lessons

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

const optionsPerQuestion = 4

var quizSchema = schema.Schema{
	Name: "quiz",
	Fields: []schema.Field{
		// Optional: an empty quiz is reported by the pipeline as QUIZ_INVALID.
		{Name: "questions", Type: schema.TypeArray, Items: &schema.Field{Type: schema.TypeObject, Fields: []schema.Field{
			{Name: "question", Type: schema.TypeString, Required: true},
			{Name: "options", Type: schema.TypeArray, Required: true, Items: &schema.Field{Type: schema.TypeString}},
			{Name: "correct_answer", Type: schema.TypeString, Required: true},
			{Name: "explanation", Type: schema.TypeString},
		}}},
		{Name: "pass_score", Type: schema.TypeInteger, Default: 70, Min: schema.Bound(0), Max: schema.Bound(100)},
	},
}

type quizInput struct {
	LessonID string `json:"lesson_id"`
	Content  string `json:"lesson_content"`
}

type rawQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// GenerateQuiz builds multiple-choice questions for a lesson. Questions that
// do not have exactly four options or whose answer cannot be resolved to one
// of them are dropped.
func (g *Author) GenerateQuiz(ctx context.Context, lessonID, content string) (pipeline.Quiz, error) {
	tmpl := promptTemplate{
		Purpose:    "Write a multiple-choice quiz that checks understanding of a lesson.",
		Background: "Learners pass the lesson when their score reaches pass_score percent.",
		Input:      quizInput{LessonID: lessonID, Content: content},
		Output:     quizSchema,
		Rules: []string{
			"Write 5 questions.",
			"Each question has exactly 4 options.",
			"correct_answer is the zero-based index (0-3) of the right option.",
			"Questions must be answerable from the lesson content alone.",
		},
	}

	payload, err := g.generate(ctx, "generate quiz", tmpl, true)
	if err != nil {
		return pipeline.Quiz{}, err
	}

	var raw struct {
		Questions []rawQuestion `json:"questions"`
		PassScore int           `json:"pass_score"`
	}
	if err := payload.Decode(&raw); err != nil {
		return pipeline.Quiz{}, err
	}

	quiz := pipeline.Quiz{LessonID: lessonID, PassScore: raw.PassScore, Questions: make([]pipeline.Question, 0, len(raw.Questions))}
	for i, rq := range raw.Questions {
		q, ok := normalizeQuestion(rq)
		if !ok {
			g.log.Warn("quiz question dropped",
				zap.String("lesson_id", lessonID),
				zap.Int("index", i),
				zap.Int("options", len(rq.Options)),
				zap.String("correct_answer", rq.CorrectAnswer),
			)
			continue
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz, nil
}

func normalizeQuestion(rq rawQuestion) (pipeline.Question, bool) {
	if len(rq.Options) != optionsPerQuestion || strings.TrimSpace(rq.Question) == "" {
		return pipeline.Question{}, false
	}
	options := make([]string, len(rq.Options))
	for i, o := range rq.Options {
		options[i] = strings.TrimSpace(o)
	}
	idx, ok := answerIndex(rq.CorrectAnswer, options)
	if !ok {
		return pipeline.Question{}, false
	}
	return pipeline.Question{
		Question:      strings.TrimSpace(rq.Question),
		Options:       options,
		CorrectAnswer: idx,
		Explanation:   strings.TrimSpace(rq.Explanation),
	}, true
}

// answerIndex accepts a zero-based index, a letter A-D (optionally followed
// by ")" or ".") or the exact text of an option.
func answerIndex(answer string, options []string) (int, bool) {
	a := strings.TrimSpace(answer)
	if n, err := strconv.Atoi(a); err == nil {
		return n, n >= 0 && n < len(options)
	}
	letter := strings.TrimRight(a, ").:")
	if len(letter) == 1 {
		c := letter[0] | 0x20
		if c >= 'a' && c < 'a'+byte(len(options)) {
			return int(c - 'a'), true
		}
	}
	for i, o := range options {
		if strings.EqualFold(o, a) {
			return i, true
		}
	}
	return 0, false
}

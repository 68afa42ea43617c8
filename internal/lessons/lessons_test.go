package lessons

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/model"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/repair"
)

func newTestAuthor(t *testing.T, reply string) (*Author, *model.ScriptedGenerator) {
	t.Helper()
	gen := &model.ScriptedGenerator{Reply: func(string, int) (string, error) { return reply, nil }}
	log := zap.NewNop()
	client := model.NewClient(gen, repair.New(log), nil, log)
	return NewAuthor(client, nil, log), gen
}

func TestPromptRendersSchema(t *testing.T) {
	tmpl := promptTemplate{
		Purpose: "Write a quiz.",
		Input:   quizInput{LessonID: "intro", Content: "Go has goroutines."},
		Output:  quizSchema,
		Rules:   []string{"Write 5 questions.", "  "},
	}
	prompt, err := tmpl.render()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt, "[PURPOSE]\nWrite a quiz."))
	assert.Contains(t, prompt, `"lesson_id": "intro"`)
	assert.Contains(t, prompt, "- questions (array of object, optional)")
	assert.Contains(t, prompt, "  - correct_answer (string, required)")
	assert.Contains(t, prompt, "- pass_score (integer, optional) between 0 and 100")
	assert.Contains(t, prompt, "- Write 5 questions.\n")
	assert.NotContains(t, prompt, "[BACKGROUND]")
	assert.NotContains(t, prompt, "[LANGUAGE]")
}

func TestFindSources(t *testing.T) {
	a, gen := newTestAuthor(t, "```json\n"+`{"sources":[
		{"title":"Tour of Go","url":"https://go.dev/tour","type":"Documentation","relevance":"0.9"},
		{"title":"Effective Go","url":"https://www.go.dev/doc/effective_go","relevance":3},
		{"title":"No link","url":"not a url"},
		{"url":"https://example.com/untitled"}
	]}`+"\n```")

	sources, err := a.FindSources(context.Background(), "Go", "Basics")
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, pipeline.Source{Title: "Tour of Go", URL: "https://go.dev/tour", Domain: "go.dev", Type: "documentation", Relevance: 0.9}, sources[0])
	assert.Equal(t, "go.dev", sources[1].Domain)
	assert.Equal(t, 1.0, sources[1].Relevance)

	_, err = a.FindSources(context.Background(), "Go", "Basics")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.Calls(), "source discovery is cached")
}

func TestFindSourcesMissingArray(t *testing.T) {
	a, _ := newTestAuthor(t, `{"results":[]}`)

	sources, err := a.FindSources(context.Background(), "Go", "Basics")
	require.NoError(t, err)
	assert.Empty(t, sources)
}

// A reply that parses but lacks the step's payload must surface the step's
// own failure code, not a schema error.
func TestPipelineMissingPayloadCodes(t *testing.T) {
	const (
		sources    = `{"sources":[{"title":"Tour of Go","url":"https://go.dev/tour","type":"documentation"}]}`
		lesson     = `{"title":"Variables","content":"A variable names a value."}`
		validation = `{"valid":true,"confidence_score":0.9,"issues":[]}`
		quiz       = `{"questions":[{"question":"Q?","options":["a","b","c","d"],"correct_answer":0}],"pass_score":70}`
		bare       = `{"title":"Variables","pass_score":70}`
	)

	tests := []struct {
		name     string
		replies  []string
		wantStep pipeline.Step
		wantCode pipeline.Code
	}{
		{"sources missing", []string{bare}, pipeline.StepSearchSources, pipeline.CodeNoSources},
		{"synthesis without content", []string{sources, bare}, pipeline.StepSynthesize, pipeline.CodeSynthesisInvalid},
		{"quiz without questions", []string{sources, lesson, validation, bare}, pipeline.StepGenerateQuiz, pipeline.CodeQuizInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &model.ScriptedGenerator{Reply: func(_ string, call int) (string, error) {
				if call >= len(tt.replies) {
					return "", errors.New("unexpected call")
				}
				return tt.replies[call], nil
			}}
			log := zap.NewNop()
			engine := repair.New(log)
			a := NewAuthor(model.NewClient(gen, engine, nil, log), engine, log)
			p := pipeline.New(pipeline.Collaborators{Sources: a, Synthesizer: a, Validator: a, Quizzes: a}, log)

			res := p.Run(context.Background(), "Go", "Basics", "variables")
			require.False(t, res.Success)
			assert.Equal(t, tt.wantStep, res.Error.Step)
			assert.Equal(t, tt.wantCode, res.Error.Code)
			assert.Equal(t, len(tt.replies), gen.Calls())
		})
	}
}

func TestSynthesize(t *testing.T) {
	a, gen := newTestAuthor(t, `{"title":"Goroutines","content":"# Goroutines\nLightweight threads.","estimated_time_min":12.6}`)
	input := []pipeline.Source{{Title: "Tour", URL: "https://go.dev/tour"}}

	draft, err := a.Synthesize(context.Background(), "Go", "Concurrency", input)
	require.NoError(t, err)
	assert.Equal(t, "Goroutines", draft.Title)
	assert.Equal(t, 13, draft.EstimatedTimeMin)
	assert.Equal(t, input, draft.Sources)
	assert.Equal(t, []string{}, draft.VideoLinks)

	_, err = a.Synthesize(context.Background(), "Go", "Concurrency", input)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.Calls(), "synthesis is not cached")
}

func TestValidateLesson(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		valid  *bool
		issues []pipeline.Issue
	}{
		{
			name:   "accepted",
			reply:  `{"valid":true,"confidence_score":0.8}`,
			valid:  boolPtr(true),
			issues: []pipeline.Issue{},
		},
		{
			name:   "rejected with issues",
			reply:  `{"valid":"false","issues":[{"type":"Factual","detail":"X"},{"type":"Clarity"}]}`,
			valid:  boolPtr(false),
			issues: []pipeline.Issue{{Type: "Factual", Detail: "X"}},
		},
		{
			name:   "missing verdict",
			reply:  `{"confidence_score":0.4,"issues":[]}`,
			issues: []pipeline.Issue{},
		},
		{
			name:   "unreadable verdict",
			reply:  `{"valid":"maybe"}`,
			issues: []pipeline.Issue{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAuthor(t, tt.reply)
			verdict, err := a.ValidateLesson(context.Background(), pipeline.LessonDraft{Title: "T", Content: "C"})
			require.NoError(t, err)
			assert.Equal(t, tt.valid, verdict.Valid)
			assert.Equal(t, tt.issues, verdict.Issues)
		})
	}
}

func TestGenerateQuiz(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)
	gen := &model.ScriptedGenerator{Reply: func(string, int) (string, error) {
		return `{"lesson_id":"other","pass_score":150,"questions":[
			{"question":"Q1","options":["a","b","c","d"],"correct_answer":2,"explanation":"because"},
			{"question":"Q2","options":["a","b","c","d"],"correct_answer":"B)"},
			{"question":"Q3","options":["yes","no","maybe","never"],"correct_answer":"Maybe"},
			{"question":"Q4","options":["a","b","c"],"correct_answer":0},
			{"question":"Q5","options":["a","b","c","d"],"correct_answer":7}
		]}`, nil
	}}
	a := NewAuthor(model.NewClient(gen, repair.New(log), nil, log), nil, log)

	quiz, err := a.GenerateQuiz(context.Background(), "intro", "content")
	require.NoError(t, err)

	assert.Equal(t, "intro", quiz.LessonID)
	assert.Equal(t, 100, quiz.PassScore)
	require.Len(t, quiz.Questions, 3)
	assert.Equal(t, 2, quiz.Questions[0].CorrectAnswer)
	assert.Equal(t, "because", quiz.Questions[0].Explanation)
	assert.Equal(t, 1, quiz.Questions[1].CorrectAnswer)
	assert.Equal(t, 2, quiz.Questions[2].CorrectAnswer)
	assert.Equal(t, 2, logs.FilterMessage("quiz question dropped").Len())
}

func TestAnswerIndex(t *testing.T) {
	options := []string{"red", "green", "blue", "black"}
	tests := []struct {
		answer string
		want   int
		ok     bool
	}{
		{"0", 0, true},
		{"3", 3, true},
		{"4", 0, false},
		{"-1", 0, false},
		{"a", 0, true},
		{"D.", 3, true},
		{"E", 0, false},
		{" Blue ", 2, true},
		{"purple", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, ok := answerIndex(tt.answer, options)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPlanRoadmap(t *testing.T) {
	a, _ := newTestAuthor(t, `{"phases":[
		{"name":"Basics","lessons":[{"title":"Variables & Types","summary":"s"},{"title":"Variables: types"}]},
		{"name":"Empty","lessons":[]},
		{"name":"Concurrency","lessons":[{"id":"Goroutines 101","title":"Goroutines"},{"summary":"untitled"}]}
	]}`)

	plan, err := a.PlanRoadmap(context.Background(), "Go", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "Go", plan.Topic)
	require.Len(t, plan.Phases, 2)
	assert.Equal(t, "Basics", plan.Phases[0].Name)
	require.Len(t, plan.Phases[0].Lessons, 2)
	assert.Equal(t, "variables-types", plan.Phases[0].Lessons[0].ID)
	assert.Equal(t, "variables-types-2", plan.Phases[0].Lessons[1].ID)
	assert.Equal(t, models.LessonStatusPending, plan.Phases[0].Lessons[0].Status)
	require.Len(t, plan.Phases[1].Lessons, 1)
	assert.Equal(t, "goroutines-101", plan.Phases[1].Lessons[0].ID)
}

func TestPlanRoadmapEmpty(t *testing.T) {
	a, _ := newTestAuthor(t, `{"phases":[{"name":"Only","lessons":[]}]}`)

	_, err := a.PlanRoadmap(context.Background(), "Go", "beginner", nil)
	assert.ErrorIs(t, err, ErrEmptyRoadmap)
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":        "hello-world",
		"  Go   Concurrency  ": "go-concurrency",
		"Tiếng Việt":           "tieng-viet",
		"Đồ thị":               "do-thi",
		"Café au lait":         "cafe-au-lait",
		"!!!":                  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestModelErrorsPassThrough(t *testing.T) {
	gen := &model.ScriptedGenerator{Reply: func(string, int) (string, error) {
		return "", &model.Error{Category: model.CategorySafety, Message: "blocked"}
	}}
	log := zap.NewNop()
	a := NewAuthor(model.NewClient(gen, repair.New(log), nil, log), nil, log)

	_, err := a.FindSources(context.Background(), "Go", "Basics")
	assert.True(t, model.IsCategory(err, model.CategorySafety))
}

func TestUnparseableReply(t *testing.T) {
	a, _ := newTestAuthor(t, "I cannot help with that.")

	_, err := a.Synthesize(context.Background(), "Go", "Basics", nil)
	var pe *repair.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestUnparseableReplyCountsOneFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)
	fallbacks := 0
	engine := repair.New(log, repair.WithFallbackHook(func() { fallbacks++ }))
	gen := &model.ScriptedGenerator{Reply: func(string, int) (string, error) { return "I cannot help with that.", nil }}
	a := NewAuthor(model.NewClient(gen, engine, nil, log), engine, log)

	_, err := a.Synthesize(context.Background(), "Go", "Basics", nil)
	var pe *repair.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, gen.Calls(), "original call plus one retry")
	assert.Equal(t, 1, fallbacks)
	assert.Equal(t, 1, logs.FilterMessage("json repair failed, returning empty object").Len())
}

func boolPtr(b bool) *bool { return &b }

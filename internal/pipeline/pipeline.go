// Package pipeline runs the four lesson-generation steps in order and stops
// at the first failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/model"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/repair"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

type SourceFinder interface {
	FindSources(ctx context.Context, topic, phase string) ([]Source, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, topic, phase string, sources []Source) (LessonDraft, error)
}

type LessonValidator interface {
	ValidateLesson(ctx context.Context, draft LessonDraft) (Verdict, error)
}

type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, lessonID, content string) (Quiz, error)
}

// Collaborators groups the step implementations.
type Collaborators struct {
	Sources     SourceFinder
	Synthesizer Synthesizer
	Validator   LessonValidator
	Quizzes     QuizGenerator
}

// Pipeline is safe for concurrent runs; it holds no per-run state.
type Pipeline struct {
	c   Collaborators
	log *zap.Logger
	now func() time.Time
}

func New(c Collaborators, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{c: c, log: log, now: time.Now}
}

type RunOption func(*run)

// WithObserver attaches o to a single run.
func WithObserver(o Observer) RunOption {
	return func(r *run) { r.observers = append(r.observers, o) }
}

type run struct {
	p         *Pipeline
	log       *zap.Logger
	state     State
	observers []Observer
}

func (r *run) enter(ctx context.Context, to State, step Step, serr *StepError) {
	t := Transition{From: r.state, To: to, Step: step, Err: serr, At: r.p.now()}
	r.state = to
	for _, o := range r.observers {
		o.OnTransition(ctx, t)
	}
}

// Run executes searchSources, synthesize, validate and generateQuiz for one
// lesson. It never panics and never returns partial data: a failed step ends
// the run and only its StepError is returned.
func (p *Pipeline) Run(ctx context.Context, topic, phase, lessonID string, opts ...RunOption) Result {
	r := &run{
		p:   p,
		log: p.log.With(zap.String("lesson_id", lessonID), zap.String("topic", topic), zap.String("phase", phase)),
	}
	for _, opt := range opts {
		opt(r)
	}
	start := p.now()

	sources, serr := step(ctx, r, StateSearchingSources, StepSearchSources, func(ctx context.Context) ([]Source, *StepError) {
		sources, err := p.c.Sources.FindSources(ctx, topic, phase)
		if err != nil {
			return nil, fromError(StepSearchSources, err)
		}
		if len(sources) == 0 {
			return nil, &StepError{Step: StepSearchSources, Code: CodeNoSources, Message: fmt.Sprintf("no sources found for %q (%s)", topic, phase)}
		}
		return sources, nil
	})
	if serr != nil {
		return r.fail(ctx, serr)
	}

	draft, serr := step(ctx, r, StateSynthesizing, StepSynthesize, func(ctx context.Context) (LessonDraft, *StepError) {
		draft, err := p.c.Synthesizer.Synthesize(ctx, topic, phase, sources)
		if err != nil {
			return draft, fromError(StepSynthesize, err)
		}
		if strings.TrimSpace(draft.Content) == "" {
			return draft, &StepError{Step: StepSynthesize, Code: CodeSynthesisInvalid, Message: "synthesized lesson has no content"}
		}
		return draft, nil
	})
	if serr != nil {
		return r.fail(ctx, serr)
	}

	verdict, serr := step(ctx, r, StateValidating, StepValidate, func(ctx context.Context) (Verdict, *StepError) {
		verdict, err := p.c.Validator.ValidateLesson(ctx, draft)
		if err != nil {
			return verdict, fromError(StepValidate, err)
		}
		if verdict.Valid == nil {
			return verdict, &StepError{Step: StepValidate, Code: CodeValidationInvalid, Message: "validation response has no boolean verdict"}
		}
		if !*verdict.Valid {
			issues := verdict.Issues
			if issues == nil {
				issues = []Issue{}
			}
			return verdict, &StepError{
				Step:    StepValidate,
				Code:    CodeValidationFailed,
				Message: fmt.Sprintf("lesson rejected with %d issue(s)", len(issues)),
				Details: issues,
			}
		}
		return verdict, nil
	})
	if serr != nil {
		return r.fail(ctx, serr)
	}

	quiz, serr := step(ctx, r, StateGeneratingQuiz, StepGenerateQuiz, func(ctx context.Context) (Quiz, *StepError) {
		quiz, err := p.c.Quizzes.GenerateQuiz(ctx, lessonID, draft.Content)
		if err != nil {
			return quiz, fromError(StepGenerateQuiz, err)
		}
		if len(quiz.Questions) == 0 {
			return quiz, &StepError{Step: StepGenerateQuiz, Code: CodeQuizInvalid, Message: "quiz has no questions"}
		}
		return quiz, nil
	})
	if serr != nil {
		return r.fail(ctx, serr)
	}

	r.enter(ctx, StateDone, "", nil)
	r.log.Info("lesson pipeline completed",
		zap.Int("sources", len(sources)),
		zap.Int("questions", len(quiz.Questions)),
		zap.Duration("duration", p.now().Sub(start)),
	)
	return succeeded(&Output{Lesson: draft, Validation: verdict, Quiz: quiz})
}

func (r *run) fail(ctx context.Context, serr *StepError) Result {
	r.log.Error("lesson pipeline step failed",
		zap.String("step", string(serr.Step)),
		zap.String("code", string(serr.Code)),
		zap.String("message", serr.Message),
		zap.Error(serr.Err),
	)
	r.enter(ctx, StateFailed, serr.Step, serr)
	return failed(serr)
}

const tracerName = "lesson-pipeline"

// step enters state and runs fn in its own span, turning a panic into a
// StepError.
func step[T any](ctx context.Context, r *run, state State, name Step, fn func(context.Context) (T, *StepError)) (out T, serr *StepError) {
	r.enter(ctx, state, name, nil)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline."+string(name),
		trace.WithAttributes(attribute.String("pipeline.step", string(name))),
	)
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			out = zero
			serr = &StepError{Step: name, Code: CodeInternalError, Message: fmt.Sprintf("panic: %v", rec)}
		}
		if serr != nil {
			span.SetAttributes(attribute.String("pipeline.error_code", string(serr.Code)))
			span.SetStatus(codes.Error, serr.Message)
		}
		span.End()
	}()
	return fn(ctx)
}

// fromError maps a collaborator error to a StepError by its class.
func fromError(name Step, err error) *StepError {
	serr := &StepError{Step: name, Code: CodeStepError, Message: err.Error(), Err: err}

	var (
		me *model.Error
		pe *repair.ParseError
		ve *schema.ValidationError
	)
	switch {
	case errors.As(err, &me):
		serr.Code = CodeModelError
		serr.Details = map[string]any{"category": me.Category, "status": me.StatusCode}
	case errors.As(err, &pe):
		serr.Code = CodeParseError
		serr.Details = map[string]any{"length": pe.Length}
	case errors.As(err, &ve):
		serr.Code = CodeSchemaInvalid
		serr.Details = map[string]any{"schema": ve.Schema, "missing": ve.Missing}
	}
	return serr
}

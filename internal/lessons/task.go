// Package lessons implements the lesson pipeline collaborators and the
// roadmap planner on top of the model client.
package lessons

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/model"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/repair"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

// Invoker is the part of model.Client the collaborators use.
type Invoker interface {
	Invoke(ctx context.Context, req model.Request) (string, error)
}

// Parser recovers an object from model text or reports a *repair.ParseError.
type Parser interface {
	Parse(text string) (map[string]any, error)
}

// Author implements every lesson pipeline collaborator and the roadmap
// planner. Each task renders a prompt, invokes the model, repairs the reply
// and coerces it to the task's schema.
type Author struct {
	client   Invoker
	parser   Parser
	language string
	log      *zap.Logger
}

type Option func(*Author)

// WithLanguage sets the language lessons are written in.
func WithLanguage(lang string) Option {
	return func(g *Author) { g.language = lang }
}

func NewAuthor(client Invoker, parser Parser, log *zap.Logger, opts ...Option) *Author {
	if log == nil {
		log = zap.NewNop()
	}
	if parser == nil {
		parser = repair.New(log)
	}
	g := &Author{client: client, parser: parser, language: "English", log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// object renders tmpl, invokes the model and recovers a JSON object.
func (g *Author) object(ctx context.Context, task string, tmpl promptTemplate, useCache bool) (map[string]any, error) {
	if tmpl.Language == "" {
		tmpl.Language = g.language
	}
	prompt, err := tmpl.render()
	if err != nil {
		return nil, err
	}

	text, err := g.client.Invoke(ctx, model.Request{Prompt: prompt, UseCache: useCache})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", task, err)
	}

	obj, err := g.parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", task, err)
	}
	return obj, nil
}

// generate returns the object coerced to tmpl.Output. A
// *schema.ValidationError is returned together with the best-effort payload.
func (g *Author) generate(ctx context.Context, task string, tmpl promptTemplate, useCache bool) (schema.Payload, error) {
	obj, err := g.object(ctx, task, tmpl, useCache)
	if err != nil {
		return schema.Payload{}, err
	}

	payload, err := schema.Validate(obj, tmpl.Output)
	g.logWarnings(task, payload.Warnings)
	if err != nil {
		return payload, fmt.Errorf("%s: %w", task, err)
	}
	return payload, nil
}

func (g *Author) logWarnings(task string, warnings []schema.Warning) {
	for _, w := range warnings {
		g.log.Warn("model output coerced",
			zap.String("task", task),
			zap.String("path", w.Path),
			zap.String("message", w.Message),
		)
	}
}

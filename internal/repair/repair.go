// Package repair turns near-valid JSON emitted by generative models into
// structured objects.
package repair

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/platform/logger"
)

const previewLen = 400

// ParseError reports text that no repair stage could turn into an object.
type ParseError struct {
	Length int
	Head   string
	Tail   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecoverable JSON (%d bytes)", e.Length)
}

// Engine runs the repair chain.
type Engine struct {
	log        *zap.Logger
	stages     []Stage
	onFallback func()
}

type Option func(*Engine)

// WithStages replaces the default chain.
func WithStages(stages ...Stage) Option {
	return func(e *Engine) { e.stages = stages }
}

// WithFallbackHook registers fn to be called every time the chain is exhausted.
func WithFallbackHook(fn func()) Option {
	return func(e *Engine) { e.onFallback = fn }
}

func New(log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{log: log, stages: DefaultStages}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Repair returns the object recovered from text, or an empty object when
// every stage fails. It never panics.
func (e *Engine) Repair(text string) map[string]any {
	obj, err := e.Parse(text)
	if err != nil {
		return map[string]any{}
	}
	return obj
}

// Parse runs the chain and returns the first object a stage produces. A
// top-level array is returned under the "items" key. When the chain is
// exhausted the error is a *ParseError and a bounded preview is logged.
func (e *Engine) Parse(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{}
	}

	obj, normalized, ok := e.parse(text)
	if ok {
		return obj, nil
	}

	if normalized == "" {
		normalized = safeNormalize(text)
	}
	head, tail := logger.Preview(normalized, previewLen)
	e.log.Warn("json repair failed, returning empty object",
		zap.Int("length", len(text)),
		zap.String("head", head),
		zap.String("tail", tail),
	)
	if e.onFallback != nil {
		e.onFallback()
	}
	return nil, &ParseError{Length: len(text), Head: head, Tail: tail}
}

// Recovers reports whether text repairs to a non-empty object. Unlike Parse it
// neither logs nor fires the fallback hook.
func (e *Engine) Recovers(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	obj, _, ok := e.parse(text)
	return ok && len(obj) > 0
}

func (e *Engine) parse(text string) (map[string]any, string, bool) {
	var normalized string
	for _, st := range e.stages {
		in := text
		if st.Normalized {
			if normalized == "" {
				normalized = safeNormalize(text)
			}
			in = normalized
		}
		v, err := runStage(st, in)
		if err != nil {
			continue
		}
		if obj, ok := asObject(v); ok {
			if st.Name != "direct" {
				e.log.Debug("json repaired", zap.String("stage", st.Name), zap.Int("length", len(text)))
			}
			return obj, normalized, true
		}
	}
	return nil, normalized, false
}

func runStage(st Stage, text string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("stage %s panicked: %v", st.Name, r)
		}
	}()
	return st.Fn(text)
}

func safeNormalize(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()
	return Normalize(text)
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		return map[string]any{"items": t}, true
	default:
		return nil, false
	}
}

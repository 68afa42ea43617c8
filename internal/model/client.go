// Package model invokes the generative model behind a response cache and a
// single repair retry.
package model

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/cache"
)

// Call outcomes reported to the Recorder.
const (
	OutcomeCacheHit       = "cache_hit"
	OutcomeSuccess        = "success"
	OutcomeRetried        = "retried"
	OutcomeRetryRecovered = "retry_recovered"
	OutcomeError          = "error"
)

const pureJSONInstruction = "IMPORTANT: your previous answer could not be parsed as JSON. " +
	"The output must be pure JSON: exactly one JSON object, with no markdown code fences, " +
	"no explanations and nothing before or after the object.\n\n" +
	"Original request:\n"

// Request is one generation request.
type Request struct {
	Prompt   string
	UseCache bool
}

// Repairer reports whether model text recovers to a non-empty JSON object.
type Repairer interface {
	Recovers(text string) bool
}

// Recorder receives one outcome per endpoint call or cache hit.
type Recorder interface {
	RecordModelCall(ctx context.Context, model, outcome string)
}

// Client invokes a Generator with caching and one retry.
type Client struct {
	gen      Generator
	repairer Repairer
	cache    cache.Cache
	recorder Recorder
	log      *zap.Logger
	flight   singleflight.Group
}

type ClientOption func(*Client)

func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) { c.recorder = r }
}

// NewClient builds a client. A nil cache means a fresh unbounded cache.
func NewClient(gen Generator, repairer Repairer, c cache.Cache, log *zap.Logger, opts ...ClientOption) *Client {
	if c == nil {
		c = cache.NewUnbounded()
	}
	if log == nil {
		log = zap.NewNop()
	}
	cl := &Client{gen: gen, repairer: repairer, cache: c, log: log}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

func (c *Client) Model() string { return c.gen.Model() }

// Invoke returns raw model text for req. It makes at most two endpoint
// calls: the original prompt and, when that answer repairs to an empty
// object, one retry with a pure-JSON instruction. If the retry does not
// help, the original text is returned unchanged. Only text that repairs to
// a non-empty object is cached.
func (c *Client) Invoke(ctx context.Context, req Request) (string, error) {
	key := cache.Key{Prompt: req.Prompt, Model: c.gen.Model()}

	if req.UseCache {
		if text, ok := c.cache.Get(ctx, key); ok {
			c.record(ctx, OutcomeCacheHit)
			return text, nil
		}
	}

	if !req.UseCache {
		return c.invoke(ctx, req, key)
	}
	// Concurrent cached requests for one prompt share a single call.
	v, err, _ := c.flight.Do(key.Digest(), func() (any, error) {
		return c.invoke(ctx, req, key)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) invoke(ctx context.Context, req Request, key cache.Key) (string, error) {
	text, err := c.generate(ctx, req.Prompt)
	if err != nil {
		c.record(ctx, OutcomeError)
		return "", err
	}

	if c.repairer.Recovers(text) {
		c.record(ctx, OutcomeSuccess)
		if req.UseCache {
			c.cache.Set(ctx, key, text)
		}
		return text, nil
	}

	c.record(ctx, OutcomeRetried)
	c.log.Warn("model output not parseable, retrying with pure JSON instruction",
		zap.String("model", c.gen.Model()),
		zap.Int("response_length", len(text)),
	)

	retryText, err := c.generate(ctx, pureJSONInstruction+req.Prompt)
	if err != nil {
		c.log.Warn("model retry failed, returning original output", zap.Error(err))
		return text, nil
	}
	if !c.repairer.Recovers(retryText) {
		c.log.Warn("model retry output not parseable, returning original output",
			zap.Int("response_length", len(retryText)),
		)
		return text, nil
	}

	c.record(ctx, OutcomeRetryRecovered)
	if req.UseCache {
		c.cache.Set(ctx, key, retryText)
	}
	return retryText, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	text, err := c.gen.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}
	var me *Error
	if errors.As(err, &me) {
		return "", err
	}
	return "", classifyTransportError(err)
}

func (c *Client) record(ctx context.Context, outcome string) {
	if c.recorder != nil {
		c.recorder.RecordModelCall(ctx, c.gen.Model(), outcome)
	}
}

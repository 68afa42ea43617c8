package model

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/cache"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/repair"
)

type recorded struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recorded) RecordModelCall(_ context.Context, _ string, outcome string) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, outcome)
	r.mu.Unlock()
}

func replies(texts ...string) func(string, int) (string, error) {
	return func(_ string, call int) (string, error) {
		if call >= len(texts) {
			return "", errors.New("unexpected call")
		}
		return texts[call], nil
	}
}

func newTestClient(gen Generator, c cache.Cache, opts ...ClientOption) *Client {
	return NewClient(gen, repair.New(zap.NewNop()), c, zap.NewNop(), opts...)
}

func TestInvoke(t *testing.T) {
	tests := []struct {
		name      string
		replies   []string
		want      string
		wantCalls int
		outcomes  []string
	}{
		{
			name:      "parseable first answer",
			replies:   []string{`{"title":"Go"}`},
			want:      `{"title":"Go"}`,
			wantCalls: 1,
			outcomes:  []string{OutcomeSuccess},
		},
		{
			name:      "fenced first answer needs no retry",
			replies:   []string{"```json\n{\"title\":\"Go\"}\n```"},
			want:      "```json\n{\"title\":\"Go\"}\n```",
			wantCalls: 1,
			outcomes:  []string{OutcomeSuccess},
		},
		{
			name:      "retry recovers",
			replies:   []string{"I cannot answer in JSON", `{"title":"Go"}`},
			want:      `{"title":"Go"}`,
			wantCalls: 2,
			outcomes:  []string{OutcomeRetried, OutcomeRetryRecovered},
		},
		{
			name:      "retry also unparseable returns original",
			replies:   []string{"first prose", "second prose"},
			want:      "first prose",
			wantCalls: 2,
			outcomes:  []string{OutcomeRetried},
		},
		{
			name:      "empty object triggers retry",
			replies:   []string{`{}`, `{"ok":true}`},
			want:      `{"ok":true}`,
			wantCalls: 2,
			outcomes:  []string{OutcomeRetried, OutcomeRetryRecovered},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &ScriptedGenerator{Reply: replies(tt.replies...)}
			rec := &recorded{}
			client := newTestClient(gen, nil, WithRecorder(rec))

			got, err := client.Invoke(context.Background(), Request{Prompt: "lesson on Go"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, gen.Calls())
			assert.Equal(t, tt.outcomes, rec.outcomes)
		})
	}
}

func TestInvokeRetryPromptWrapsOriginal(t *testing.T) {
	gen := &ScriptedGenerator{Reply: replies("nope", `{"a":1}`)}
	client := newTestClient(gen, nil)

	_, err := client.Invoke(context.Background(), Request{Prompt: "ORIGINAL PROMPT"})
	require.NoError(t, err)

	prompts := gen.Prompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, "ORIGINAL PROMPT", prompts[0])
	assert.True(t, strings.HasPrefix(prompts[1], pureJSONInstruction))
	assert.True(t, strings.HasSuffix(prompts[1], "ORIGINAL PROMPT"))
}

func TestInvokeNeverMoreThanTwoCalls(t *testing.T) {
	gen := &ScriptedGenerator{Reply: func(string, int) (string, error) { return "never json", nil }}
	client := newTestClient(gen, nil)

	for i := 0; i < 3; i++ {
		_, err := client.Invoke(context.Background(), Request{Prompt: "p", UseCache: true})
		require.NoError(t, err)
	}
	assert.Equal(t, 6, gen.Calls())
}

func TestInvokeCache(t *testing.T) {
	gen := &ScriptedGenerator{Reply: replies(`{"title":"Go"}`)}
	rec := &recorded{}
	client := newTestClient(gen, cache.NewUnbounded(), WithRecorder(rec))
	ctx := context.Background()

	first, err := client.Invoke(ctx, Request{Prompt: "p", UseCache: true})
	require.NoError(t, err)
	second, err := client.Invoke(ctx, Request{Prompt: "p", UseCache: true})
	require.NoError(t, err)

	assert.Equal(t, 1, gen.Calls())
	assert.Equal(t, first, second)
	assert.Equal(t, []string{OutcomeSuccess, OutcomeCacheHit}, rec.outcomes)
}

func TestInvokeSharesConcurrentCachedCalls(t *testing.T) {
	release := make(chan struct{})
	gen := &ScriptedGenerator{Reply: func(string, int) (string, error) {
		<-release
		return `{"title":"Go"}`, nil
	}}
	client := newTestClient(gen, cache.NewUnbounded())

	var wg sync.WaitGroup
	results := make([]string, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, err := client.Invoke(context.Background(), Request{Prompt: "p", UseCache: true})
			assert.NoError(t, err)
			results[i] = text
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, gen.Calls())
	for _, text := range results {
		assert.Equal(t, `{"title":"Go"}`, text)
	}
}

func TestInvokeCacheDisabled(t *testing.T) {
	gen := &ScriptedGenerator{Reply: func(string, int) (string, error) { return `{"a":1}`, nil }}
	c := cache.NewUnbounded()
	client := newTestClient(gen, c)
	ctx := context.Background()

	_, err := client.Invoke(ctx, Request{Prompt: "p"})
	require.NoError(t, err)
	_, err = client.Invoke(ctx, Request{Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, 2, gen.Calls())
	assert.Equal(t, 0, c.Len())
}

func TestInvokeCachesOnlyParseableText(t *testing.T) {
	ctx := context.Background()

	t.Run("unparseable original is not cached", func(t *testing.T) {
		c := cache.NewUnbounded()
		gen := &ScriptedGenerator{Reply: replies("prose", "more prose")}
		client := newTestClient(gen, c)

		got, err := client.Invoke(ctx, Request{Prompt: "p", UseCache: true})
		require.NoError(t, err)
		assert.Equal(t, "prose", got)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("recovered retry is cached under the original prompt", func(t *testing.T) {
		c := cache.NewUnbounded()
		gen := &ScriptedGenerator{ModelID: "m", Reply: replies("prose", `{"a":1}`)}
		client := newTestClient(gen, c)

		_, err := client.Invoke(ctx, Request{Prompt: "p", UseCache: true})
		require.NoError(t, err)
		v, ok := c.Get(ctx, cache.Key{Prompt: "p", Model: "m"})
		require.True(t, ok)
		assert.Equal(t, `{"a":1}`, v)
	})
}

func TestInvokeErrors(t *testing.T) {
	t.Run("first call failure is a model error", func(t *testing.T) {
		gen := &ScriptedGenerator{Reply: func(string, int) (string, error) {
			return "", &Error{Category: CategorySafety, Message: "blocked"}
		}}
		client := newTestClient(gen, nil)

		_, err := client.Invoke(context.Background(), Request{Prompt: "p"})
		require.Error(t, err)
		assert.True(t, IsCategory(err, CategorySafety))
		assert.Equal(t, 1, gen.Calls())
	})

	t.Run("plain errors are classified as transport", func(t *testing.T) {
		gen := &ScriptedGenerator{Reply: func(string, int) (string, error) {
			return "", errors.New("connection reset")
		}}
		client := newTestClient(gen, nil)

		_, err := client.Invoke(context.Background(), Request{Prompt: "p"})
		assert.True(t, IsCategory(err, CategoryTransport))
	})

	t.Run("deadline is classified as timeout", func(t *testing.T) {
		gen := &ScriptedGenerator{Reply: func(string, int) (string, error) {
			return "", context.DeadlineExceeded
		}}
		client := newTestClient(gen, nil)

		_, err := client.Invoke(context.Background(), Request{Prompt: "p"})
		assert.True(t, IsCategory(err, CategoryTimeout))
	})

	t.Run("retry failure returns original text", func(t *testing.T) {
		gen := &ScriptedGenerator{Reply: func(_ string, call int) (string, error) {
			if call == 0 {
				return "prose", nil
			}
			return "", &Error{Category: CategoryStatus, StatusCode: 503}
		}}
		client := newTestClient(gen, nil)

		got, err := client.Invoke(context.Background(), Request{Prompt: "p"})
		require.NoError(t, err)
		assert.Equal(t, "prose", got)
		assert.Equal(t, 2, gen.Calls())
	})
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Category: CategoryStatus, StatusCode: 429, Message: "quota exceeded"}
	assert.Equal(t, "model status error (status 429): quota exceeded", err.Error())

	wrapped := &Error{Category: CategoryTimeout, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}

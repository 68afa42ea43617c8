package model

import (
	"context"
	"sync"
)

// ScriptedGenerator is a deterministic Generator for offline runs and tests.
// Reply receives the prompt and the zero-based call number.
type ScriptedGenerator struct {
	ModelID string
	Reply   func(prompt string, call int) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (g *ScriptedGenerator) Model() string {
	if g.ModelID == "" {
		return "scripted"
	}
	return g.ModelID
}

func (g *ScriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	call := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.Reply(prompt, call)
}

// Calls returns the number of Generate calls so far.
func (g *ScriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns a copy of the prompts received so far.
func (g *ScriptedGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

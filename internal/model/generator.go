package model

import "context"

// Generator sends one prompt to a model endpoint and returns the completion
// text. Failures are returned as *Error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

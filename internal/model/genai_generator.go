package model

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GenAIConfig configures the SDK-backed generator.
type GenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// GenAIGenerator calls Gemini through the official Go SDK.
type GenAIGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	log         *zap.Logger
}

func NewGenAIGenerator(ctx context.Context, cfg GenAIConfig, log *zap.Logger) (*GenAIGenerator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.APIKey == "" {
		return nil, &Error{Category: CategoryCredentials, Message: "GEMINI_API_KEY is not set"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout + 5*time.Second},
	})
	if err != nil {
		return nil, &Error{Category: CategoryCredentials, Message: "failed to create genai client", Err: err}
	}

	return &GenAIGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		log:         log,
	}, nil
}

func (g *GenAIGenerator) Model() string { return g.model }

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.temperature),
	})
	if err != nil {
		return "", classifyGenAIError(err)
	}
	return textFromGenAI(resp)
}

func textFromGenAI(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", &Error{Category: CategoryEmpty, Message: "nil response"}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" &&
		resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return "", &Error{Category: CategorySafety, Message: "prompt blocked: " + string(resp.PromptFeedback.BlockReason)}
	}
	if len(resp.Candidates) == 0 {
		return "", &Error{Category: CategoryEmpty, Message: "no candidates returned"}
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist, genai.FinishReasonSPII:
		return "", &Error{Category: CategorySafety, Message: "response blocked: " + string(resp.Candidates[0].FinishReason)}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &Error{Category: CategoryEmpty, Message: "empty completion"}
	}
	return text, nil
}

func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		category := CategoryStatus
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			category = CategoryCredentials
		}
		return &Error{Category: category, StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	return classifyTransportError(err)
}

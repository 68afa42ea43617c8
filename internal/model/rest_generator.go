package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RESTConfig configures the Gemini REST generator.
type RESTConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// RESTGenerator calls the Gemini generateContent endpoint over HTTP.
type RESTGenerator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float32
	timeout     time.Duration
	httpClient  *http.Client
	tracer      trace.Tracer
	breaker     *gobreaker.CircuitBreaker
	log         *zap.Logger
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func NewRESTGenerator(cfg RESTConfig, log *zap.Logger) *RESTGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "gemini-rest",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// Only endpoint health trips the breaker; blocked or empty answers do not.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var me *Error
			if errors.As(err, &me) {
				switch me.Category {
				case CategorySafety, CategoryEmpty, CategoryCredentials:
					return true
				case CategoryStatus:
					return me.StatusCode < 500 && me.StatusCode != http.StatusTooManyRequests
				}
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &RESTGenerator{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		httpClient:  &http.Client{Timeout: cfg.Timeout + 5*time.Second},
		tracer:      otel.Tracer("gemini-rest-generator"),
		breaker:     gobreaker.NewCircuitBreaker(settings),
		log:         log,
	}
}

func (g *RESTGenerator) Model() string { return g.model }

// Generate sends prompt to the model and returns the text of the first candidate.
func (g *RESTGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := g.tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("model", g.model),
		attribute.Int("prompt_length", len(prompt)),
	)

	if g.apiKey == "" {
		err := &Error{Category: CategoryCredentials, Message: "GEMINI_API_KEY is not set"}
		span.RecordError(err)
		return "", err
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.generateInternal(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &Error{Category: CategoryUnavailable, Err: err}
		}
		span.RecordError(err)
		return "", err
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("response_length", len(text)))
	return text, nil
}

func (g *RESTGenerator) generateInternal(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      g.temperature,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		var apiErr apiErrorBody
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		category := CategoryStatus
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			category = CategoryCredentials
		}
		return "", &Error{Category: category, StatusCode: resp.StatusCode, Message: msg}
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &Error{Category: CategoryTransport, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", &Error{Category: CategorySafety, Message: "prompt blocked: " + out.PromptFeedback.BlockReason}
	}
	if len(out.Candidates) == 0 {
		return "", &Error{Category: CategoryEmpty, Message: "no candidates returned"}
	}

	cand := out.Candidates[0]
	switch cand.FinishReason {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "SPII":
		return "", &Error{Category: CategorySafety, Message: "response blocked: " + cand.FinishReason}
	}

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", &Error{Category: CategoryEmpty, Message: "empty completion"}
	}
	return text, nil
}

func classifyTransportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Category: CategoryTimeout, Err: err}
	}
	return &Error{Category: CategoryTransport, Err: err}
}

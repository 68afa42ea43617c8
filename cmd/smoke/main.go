// Command smoke drives a running lesson orchestrator end to end: login,
// roadmap planning, one lesson run followed over WebSocket, and a final
// lesson fetch.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/platform/logger"
)

type StepResult struct {
	Name    string
	Success bool
	Error   error
	Details string
}

type smokeClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Orchestrator base URL")
	email := flag.String("email", os.Getenv("SMOKE_EMAIL"), "Learner email")
	password := flag.String("password", os.Getenv("SMOKE_PASSWORD"), "Learner password")
	topic := flag.String("topic", "Go concurrency", "Roadmap topic")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall time limit")
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Encoding: "console", Service: "smoke"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := &smokeClient{
		baseURL: strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: *timeout},
		log:     log,
	}
	results := c.run(ctx, *email, *password, *topic)
	if !printResults(log, results) {
		os.Exit(1)
	}
}

// run stops at the first failed step; later steps depend on earlier ones.
func (c *smokeClient) run(ctx context.Context, email, password, topic string) []StepResult {
	var (
		results  []StepResult
		roadmap  models.Roadmap
		started  models.StartRunResponse
		lessonID string
	)

	steps := []struct {
		name string
		fn   func() (string, error)
	}{
		{"Service ready", func() (string, error) {
			return "", c.do(ctx, http.MethodGet, "/ready", nil, nil)
		}},
		{"Login", func() (string, error) {
			var resp models.LoginResponse
			if err := c.do(ctx, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: email, Password: password}, &resp); err != nil {
				return "", err
			}
			c.token = resp.Token
			return "logged in as " + resp.User.Email, nil
		}},
		{"Create roadmap", func() (string, error) {
			req := models.RoadmapRequest{Topic: topic, Level: "beginner"}
			if err := c.do(ctx, http.MethodPost, "/api/roadmaps", req, &roadmap); err != nil {
				return "", err
			}
			if len(roadmap.Phases) == 0 || len(roadmap.Phases[0].Lessons) == 0 {
				return "", errors.New("roadmap has no lessons")
			}
			lessonID = roadmap.Phases[0].Lessons[0].ID
			return fmt.Sprintf("roadmap %s with %d phases, first lesson %s", roadmap.ID, len(roadmap.Phases), lessonID), nil
		}},
		{"Start lesson run", func() (string, error) {
			path := fmt.Sprintf("/api/roadmaps/%s/lessons/%s/runs", roadmap.ID, lessonID)
			if err := c.do(ctx, http.MethodPost, path, nil, &started); err != nil {
				return "", err
			}
			return "run " + started.RunID, nil
		}},
		{"Follow progress stream", func() (string, error) {
			return c.follow(ctx, started.StreamURL)
		}},
		{"Fetch lesson", func() (string, error) {
			var lesson models.Lesson
			path := fmt.Sprintf("/api/roadmaps/%s/lessons/%s", roadmap.ID, lessonID)
			if err := c.do(ctx, http.MethodGet, path, nil, &lesson); err != nil {
				return "", err
			}
			return fmt.Sprintf("%q with %d quiz questions", lesson.Content.Title, len(lesson.Quiz.Questions)), nil
		}},
	}

	for _, step := range steps {
		c.log.Info("running step", zap.String("step", step.name))
		details, err := step.fn()
		results = append(results, StepResult{Name: step.name, Success: err == nil, Error: err, Details: details})
		if err != nil {
			break
		}
	}
	return results
}

// follow reads run events until the terminal one and reports the outcome.
func (c *smokeClient) follow(ctx context.Context, streamURL string) (string, error) {
	u, err := url.Parse(c.baseURL + streamURL)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.RawQuery = url.Values{"token": {c.token}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to connect to progress stream: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	var states []string
	for {
		var event models.RunEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return "", fmt.Errorf("stream closed without a terminal event after %v", states)
			}
			return "", fmt.Errorf("failed to read event: %w", err)
		}
		states = append(states, string(event.State))
		c.log.Info("run event",
			zap.String("type", event.EventType),
			zap.String("state", string(event.State)),
			zap.String("step", string(event.Step)),
		)

		switch event.EventType {
		case models.EventTypeCompleted:
			return "states " + strings.Join(states, " -> "), nil
		case models.EventTypeFailed:
			if event.Error != nil {
				return "", fmt.Errorf("run failed at %s: %s (%s)", event.Error.Step, event.Error.Message, event.Error.Code)
			}
			return "", errors.New("run failed")
		}
	}
}

func (c *smokeClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s %s: status %d: %s %s", method, path, resp.StatusCode, apiErr.Code, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printResults(log *zap.Logger, results []StepResult) bool {
	passed := 0
	for _, r := range results {
		if r.Success {
			passed++
			log.Info("PASSED", zap.String("step", r.Name), zap.String("details", r.Details))
			continue
		}
		log.Error("FAILED", zap.String("step", r.Name), zap.Error(r.Error))
	}
	log.Info("smoke summary", zap.Int("passed", passed), zap.Int("steps", len(results)))
	return passed == len(results)
}

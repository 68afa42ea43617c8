package models

import (
	"time"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
)

// Run event types sent over the progress stream.
const (
	EventTypeProgress  = "progress"
	EventTypeCompleted = "completed"
	EventTypeFailed    = "failed"
)

// RunEvent is one message on a run's progress stream.
type RunEvent struct {
	RunID     string              `json:"run_id"`
	EventType string              `json:"event_type"`
	State     pipeline.State      `json:"state"`
	Step      pipeline.Step       `json:"step,omitempty"`
	Error     *pipeline.StepError `json:"error,omitempty"`
	Result    *pipeline.Result    `json:"result,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// RunStatus is the snapshot returned by GET /api/runs/:run_id.
type RunStatus struct {
	RunID     string           `json:"run_id"`
	UserID    string           `json:"-"`
	RoadmapID string           `json:"roadmap_id"`
	LessonID  string           `json:"lesson_id"`
	State     pipeline.State   `json:"state"`
	Result    *pipeline.Result `json:"result,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   *time.Time       `json:"ended_at,omitempty"`
}

// StartRunResponse is returned when a run is accepted.
type StartRunResponse struct {
	RunID     string `json:"run_id"`
	StreamURL string `json:"stream_url"`
}

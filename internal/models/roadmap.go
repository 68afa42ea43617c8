package models

import (
	"time"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
)

// LessonStatus tracks a lesson from planning to completion.
type LessonStatus string

const (
	LessonStatusPending    LessonStatus = "pending"
	LessonStatusGenerating LessonStatus = "generating"
	LessonStatusReady      LessonStatus = "ready"
	LessonStatusFailed     LessonStatus = "failed"
	LessonStatusCompleted  LessonStatus = "completed"
)

// RoadmapRequest is the body of POST /api/roadmaps.
type RoadmapRequest struct {
	Topic string   `json:"topic" binding:"required"`
	Level string   `json:"level"`
	Goals []string `json:"goals"`
}

type RoadmapLesson struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Summary   string       `json:"summary"`
	Status    LessonStatus `json:"status"`
	BestScore int          `json:"best_score"`
	Attempts  int          `json:"attempts"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type RoadmapPhase struct {
	Name    string          `json:"name"`
	Lessons []RoadmapLesson `json:"lessons"`
}

// Roadmap is stored under users/{uid}/roadmaps/{id}.
type Roadmap struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Topic     string         `json:"topic"`
	Level     string         `json:"level"`
	Goals     []string       `json:"goals"`
	Phases    []RoadmapPhase `json:"phases"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FindLesson returns the phase name and a pointer to the lesson with id.
func (r *Roadmap) FindLesson(id string) (string, *RoadmapLesson) {
	for i := range r.Phases {
		for j := range r.Phases[i].Lessons {
			if r.Phases[i].Lessons[j].ID == id {
				return r.Phases[i].Name, &r.Phases[i].Lessons[j]
			}
		}
	}
	return "", nil
}

// Lesson is a generated lesson stored under
// users/{uid}/roadmaps/{rid}/lessons/{lid}. Only successful runs are stored.
type Lesson struct {
	ID          string               `json:"id"`
	RoadmapID   string               `json:"roadmap_id"`
	Topic       string               `json:"topic"`
	Phase       string               `json:"phase"`
	RunID       string               `json:"run_id"`
	Content     pipeline.LessonDraft `json:"content"`
	Validation  pipeline.Verdict     `json:"validation"`
	Quiz        pipeline.Quiz        `json:"quiz"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// QuizAttemptRequest is the body of a quiz submission.
type QuizAttemptRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

type QuizAttempt struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RoadmapID   string    `json:"roadmap_id"`
	LessonID    string    `json:"lesson_id"`
	Answers     []int     `json:"answers"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type LessonProgress struct {
	LessonID  string       `json:"lesson_id"`
	Title     string       `json:"title"`
	Phase     string       `json:"phase"`
	Status    LessonStatus `json:"status"`
	BestScore int          `json:"best_score"`
	Attempts  int          `json:"attempts"`
}

type Progress struct {
	RoadmapID string           `json:"roadmap_id"`
	Topic     string           `json:"topic"`
	Lessons   []LessonProgress `json:"lessons"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Percent   int              `json:"percent"`
}

package orchestration

import (
	"fmt"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
)

var lessonTransitions = map[models.LessonStatus][]models.LessonStatus{
	models.LessonStatusPending:    {models.LessonStatusGenerating},
	models.LessonStatusGenerating: {models.LessonStatusReady, models.LessonStatusFailed},
	models.LessonStatusFailed:     {models.LessonStatusGenerating},
	models.LessonStatusReady:      {models.LessonStatusCompleted},
	models.LessonStatusCompleted:  {}, // Terminal state
}

// validateLessonTransition reports whether a lesson may move from current to next.
func validateLessonTransition(current, next models.LessonStatus) error {
	allowedNext, exists := lessonTransitions[current]
	if !exists {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
	}

	for _, allowed := range allowedNext {
		if allowed == next {
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}

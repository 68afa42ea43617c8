package orchestration

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("belongs to another learner")
	ErrInvalidTransition  = errors.New("invalid lesson status transition")
	ErrLessonNotReady     = errors.New("lesson is not ready")
	ErrInvalidAnswers     = errors.New("answers do not match the quiz")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

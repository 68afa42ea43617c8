package pipeline

import "fmt"

// Code classifies a step failure.
type Code string

const (
	CodeNoSources         Code = "NO_SOURCES"
	CodeSynthesisInvalid  Code = "SYNTHESIS_INVALID"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeValidationInvalid Code = "VALIDATION_INVALID"
	CodeQuizInvalid       Code = "QUIZ_INVALID"
	CodeModelError        Code = "MODEL_ERROR"
	CodeParseError        Code = "PARSE_ERROR"
	CodeSchemaInvalid     Code = "SCHEMA_INVALID"
	CodeStepError         Code = "STEP_ERROR"
	CodeInternalError     Code = "INTERNAL_ERROR"
)

// StepError describes the step that ended a run.
type StepError struct {
	Step    Step   `json:"step"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline step %s failed (%s): %s", e.Step, e.Code, e.Message)
}

func (e *StepError) Unwrap() error { return e.Err }

// Output aggregates the outputs of a successful run.
type Output struct {
	Lesson     LessonDraft `json:"lesson"`
	Validation Verdict     `json:"validation"`
	Quiz       Quiz        `json:"quiz"`
}

// Result is either a successful Output or the StepError that ended the run.
type Result struct {
	Success bool       `json:"success"`
	Data    *Output    `json:"data,omitempty"`
	Error   *StepError `json:"error,omitempty"`
}

func succeeded(out *Output) Result { return Result{Success: true, Data: out} }

func failed(err *StepError) Result { return Result{Success: false, Error: err} }

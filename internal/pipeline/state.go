package pipeline

import (
	"context"
	"time"
)

// State is a pipeline run state.
type State string

const (
	StateSearchingSources State = "SearchingSources"
	StateSynthesizing     State = "Synthesizing"
	StateValidating       State = "Validating"
	StateGeneratingQuiz   State = "GeneratingQuiz"
	StateDone             State = "Done"
	StateFailed           State = "Failed"
)

// Step names a collaborator call.
type Step string

const (
	StepSearchSources Step = "searchSources"
	StepSynthesize    Step = "synthesize"
	StepValidate      Step = "validate"
	StepGenerateQuiz  Step = "generateQuiz"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition is emitted every time a run changes state. Err is set when To
// is StateFailed.
type Transition struct {
	From State      `json:"from"`
	To   State      `json:"to"`
	Step Step       `json:"step,omitempty"`
	Err  *StepError `json:"error,omitempty"`
	At   time.Time  `json:"at"`
}

// Observer receives the transitions of one run, in order, on the run's goroutine.
type Observer interface {
	OnTransition(ctx context.Context, t Transition)
}

type ObserverFunc func(ctx context.Context, t Transition)

func (f ObserverFunc) OnTransition(ctx context.Context, t Transition) { f(ctx, t) }

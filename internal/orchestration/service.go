// Package orchestration is the application layer between the HTTP gateway and
// the lesson pipeline. It owns roadmaps, lesson runs, quiz attempts and users.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/lessons"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/store"
)

// StepPersist names the bookkeeping that follows a successful pipeline run.
const StepPersist pipeline.Step = "persist"

// persistTimeout bounds the writes that record a run's outcome. They run
// detached from the caller's context.
const persistTimeout = 15 * time.Second

type RoadmapPlanner interface {
	PlanRoadmap(ctx context.Context, topic, level string, goals []string) (lessons.Plan, error)
}

type LessonRunner interface {
	Run(ctx context.Context, topic, phase, lessonID string, opts ...pipeline.RunOption) pipeline.Result
}

// RunRecorder receives run metrics. *metrics.PipelineMetrics implements it.
type RunRecorder interface {
	RecordRunStarted(ctx context.Context)
	RecordRunFinished(ctx context.Context, res pipeline.Result, duration time.Duration)
	Observer() pipeline.Observer
}

// Service handles roadmap and lesson orchestration logic
type Service struct {
	store    store.DocumentStore
	planner  RoadmapPlanner
	runner   LessonRunner
	tracker  *RunTracker
	recorder RunRecorder
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string

	// Roadmap documents are read-modify-written; writers of one roadmap are
	// serialized in process.
	locks sync.Map

	runs sync.WaitGroup
}

type Option func(*Service)

func WithRecorder(r RunRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithTracker(t *RunTracker) Option {
	return func(s *Service) { s.tracker = t }
}

// NewService creates a new orchestration service
func NewService(st store.DocumentStore, planner RoadmapPlanner, runner LessonRunner, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:   st,
		planner: planner,
		runner:  runner,
		tracker: NewRunTracker(time.Hour),
		log:     log,
		tracer:  otel.Tracer("learning-service"),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func roadmapPath(userID, roadmapID string) string {
	return store.Path("users", userID, "roadmaps", roadmapID)
}

func lessonPath(userID, roadmapID, lessonID string) string {
	return store.Path("users", userID, "roadmaps", roadmapID, "lessons", lessonID)
}

func attemptsPath(userID, roadmapID string) string {
	return store.Path("users", userID, "roadmaps", roadmapID, "attempts")
}

func (s *Service) lockRoadmap(userID, roadmapID string) func() {
	v, _ := s.locks.LoadOrStore(roadmapPath(userID, roadmapID), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateRoadmap plans a roadmap with the model and stores it with every
// lesson pending.
func (s *Service) CreateRoadmap(ctx context.Context, userID string, req models.RoadmapRequest) (*models.Roadmap, error) {
	ctx, span := s.tracer.Start(ctx, "learning.create_roadmap")
	defer span.End()
	span.SetAttributes(attribute.String("topic", req.Topic))

	plan, err := s.planner.PlanRoadmap(ctx, req.Topic, req.Level, req.Goals)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to plan roadmap: %w", err)
	}

	now := s.now()
	roadmap := &models.Roadmap{
		ID:        s.newID(),
		UserID:    userID,
		Topic:     req.Topic,
		Level:     req.Level,
		Goals:     req.Goals,
		Phases:    plan.Phases,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if roadmap.Goals == nil {
		roadmap.Goals = []string{}
	}
	for i := range roadmap.Phases {
		for j := range roadmap.Phases[i].Lessons {
			roadmap.Phases[i].Lessons[j].Status = models.LessonStatusPending
			roadmap.Phases[i].Lessons[j].UpdatedAt = now
		}
	}

	if err := s.store.Set(ctx, roadmapPath(userID, roadmap.ID), roadmap); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to save roadmap: %w", err)
	}

	span.SetAttributes(attribute.String("roadmap_id", roadmap.ID))
	s.log.Info("roadmap created",
		zap.String("user_id", userID),
		zap.String("roadmap_id", roadmap.ID),
		zap.Int("phases", len(roadmap.Phases)),
	)
	return roadmap, nil
}

// ListRoadmaps returns the user's roadmaps, newest first.
func (s *Service) ListRoadmaps(ctx context.Context, userID string) ([]models.Roadmap, error) {
	snaps, err := s.store.List(ctx, store.Path("users", userID, "roadmaps"))
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}

	roadmaps := make([]models.Roadmap, 0, len(snaps))
	for _, snap := range snaps {
		var r models.Roadmap
		if err := snap.Decode(&r); err != nil {
			return nil, err
		}
		roadmaps = append(roadmaps, r)
	}
	sort.SliceStable(roadmaps, func(i, j int) bool { return roadmaps[i].CreatedAt.After(roadmaps[j].CreatedAt) })
	return roadmaps, nil
}

func (s *Service) GetRoadmap(ctx context.Context, userID, roadmapID string) (*models.Roadmap, error) {
	var r models.Roadmap
	if err := s.store.Get(ctx, roadmapPath(userID, roadmapID), &r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("roadmap %s: %w", roadmapID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}
	return &r, nil
}

// setLessonStatus applies a validated transition and saves the roadmap. The
// caller holds the roadmap lock.
func (s *Service) setLessonStatus(ctx context.Context, roadmap *models.Roadmap, lessonID string, next models.LessonStatus, update func(*models.RoadmapLesson)) error {
	_, lesson := roadmap.FindLesson(lessonID)
	if lesson == nil {
		return fmt.Errorf("lesson %s: %w", lessonID, ErrNotFound)
	}
	if lesson.Status != next {
		if err := validateLessonTransition(lesson.Status, next); err != nil {
			return err
		}
	}

	now := s.now()
	lesson.Status = next
	lesson.UpdatedAt = now
	if update != nil {
		update(lesson)
	}
	roadmap.UpdatedAt = now
	if err := s.store.Set(ctx, roadmapPath(roadmap.UserID, roadmap.ID), roadmap); err != nil {
		return fmt.Errorf("failed to save roadmap: %w", err)
	}
	return nil
}

type lessonRun struct {
	status models.RunStatus
	topic  string
	phase  string
}

// begin moves the lesson to generating and registers the run.
func (s *Service) begin(ctx context.Context, userID, roadmapID, lessonID string) (*lessonRun, error) {
	unlock := s.lockRoadmap(userID, roadmapID)
	defer unlock()

	roadmap, err := s.GetRoadmap(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}
	phase, lesson := roadmap.FindLesson(lessonID)
	if lesson == nil {
		return nil, fmt.Errorf("lesson %s: %w", lessonID, ErrNotFound)
	}
	if err := validateLessonTransition(lesson.Status, models.LessonStatusGenerating); err != nil {
		return nil, err
	}
	if err := s.setLessonStatus(ctx, roadmap, lessonID, models.LessonStatusGenerating, nil); err != nil {
		return nil, err
	}

	run := &lessonRun{
		status: models.RunStatus{
			RunID:     s.newID(),
			UserID:    userID,
			RoadmapID: roadmapID,
			LessonID:  lessonID,
			State:     pipeline.StateSearchingSources,
			StartedAt: s.now(),
		},
		topic: roadmap.Topic,
		phase: phase,
	}
	s.tracker.Register(run.status)
	return run, nil
}

// StartLessonRun starts generating a lesson in the background and returns
// the registered run. The run outlives ctx.
func (s *Service) StartLessonRun(ctx context.Context, userID, roadmapID, lessonID string) (*models.RunStatus, error) {
	run, err := s.begin(ctx, userID, roadmapID, lessonID)
	if err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.execute(runCtx, run)
	}()

	status := run.status
	return &status, nil
}

// RunLesson generates a lesson and waits for the result.
func (s *Service) RunLesson(ctx context.Context, userID, roadmapID, lessonID string) (*models.RunStatus, pipeline.Result, error) {
	run, err := s.begin(ctx, userID, roadmapID, lessonID)
	if err != nil {
		return nil, pipeline.Result{}, err
	}
	res := s.execute(ctx, run)
	status, _, _ := s.tracker.Get(run.status.RunID)
	return &status, res, nil
}

// Wait blocks until every background run has finished.
func (s *Service) Wait() {
	s.runs.Wait()
}

func (s *Service) execute(ctx context.Context, run *lessonRun) pipeline.Result {
	ctx, span := s.tracer.Start(ctx, "learning.run_lesson")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", run.status.RunID),
		attribute.String("lesson_id", run.status.LessonID),
	)

	log := s.log.With(
		zap.String("run_id", run.status.RunID),
		zap.String("roadmap_id", run.status.RoadmapID),
		zap.String("lesson_id", run.status.LessonID),
	)

	start := time.Now()
	if s.recorder != nil {
		s.recorder.RecordRunStarted(ctx)
	}

	opts := []pipeline.RunOption{pipeline.WithObserver(s.progressObserver(run.status.RunID))}
	if s.recorder != nil {
		opts = append(opts, pipeline.WithObserver(s.recorder.Observer()))
	}

	res := s.runner.Run(ctx, run.topic, run.phase, run.status.LessonID, opts...)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if res.Success {
		if err := s.saveLesson(persistCtx, run, res.Data); err != nil {
			log.Error("failed to persist generated lesson", zap.Error(err))
			res = pipeline.Result{Error: &pipeline.StepError{Step: StepPersist, Code: pipeline.CodeStepError, Message: err.Error(), Err: err}}
		}
	}
	if !res.Success {
		span.SetAttributes(attribute.String("error.code", string(res.Error.Code)))
		if err := s.markFailed(persistCtx, run); err != nil {
			log.Error("failed to mark lesson failed", zap.Error(err))
		}
	}

	if s.recorder != nil {
		s.recorder.RecordRunFinished(ctx, res, time.Since(start))
	}
	s.tracker.Finish(run.status.RunID, res)
	log.Info("lesson run finished", zap.Bool("success", res.Success), zap.Duration("duration", time.Since(start)))
	return res
}

// progressObserver forwards non-terminal transitions to the tracker. The
// terminal event is published by Finish once the outcome is stored.
func (s *Service) progressObserver(runID string) pipeline.Observer {
	return pipeline.ObserverFunc(func(_ context.Context, t pipeline.Transition) {
		if t.To.Terminal() {
			return
		}
		s.tracker.Publish(models.RunEvent{
			RunID:     runID,
			EventType: models.EventTypeProgress,
			State:     t.To,
			Step:      t.Step,
			Timestamp: t.At,
		})
	})
}

func (s *Service) saveLesson(ctx context.Context, run *lessonRun, out *pipeline.Output) error {
	st := run.status
	lesson := models.Lesson{
		ID:          st.LessonID,
		RoadmapID:   st.RoadmapID,
		Topic:       run.topic,
		Phase:       run.phase,
		RunID:       st.RunID,
		Content:     out.Lesson,
		Validation:  out.Validation,
		Quiz:        out.Quiz,
		GeneratedAt: s.now(),
	}
	if err := s.store.Set(ctx, lessonPath(st.UserID, st.RoadmapID, st.LessonID), lesson); err != nil {
		return fmt.Errorf("failed to save lesson: %w", err)
	}

	unlock := s.lockRoadmap(st.UserID, st.RoadmapID)
	defer unlock()
	roadmap, err := s.GetRoadmap(ctx, st.UserID, st.RoadmapID)
	if err != nil {
		return err
	}
	return s.setLessonStatus(ctx, roadmap, st.LessonID, models.LessonStatusReady, nil)
}

func (s *Service) markFailed(ctx context.Context, run *lessonRun) error {
	st := run.status
	unlock := s.lockRoadmap(st.UserID, st.RoadmapID)
	defer unlock()

	roadmap, err := s.GetRoadmap(ctx, st.UserID, st.RoadmapID)
	if err != nil {
		return err
	}
	return s.setLessonStatus(ctx, roadmap, st.LessonID, models.LessonStatusFailed, nil)
}

// GetRun returns the run snapshot and its events.
func (s *Service) GetRun(userID, runID string) (*models.RunStatus, []models.RunEvent, error) {
	status, events, ok := s.tracker.Get(runID)
	if err := checkRunOwner(runID, userID, status, ok); err != nil {
		return nil, nil, err
	}
	return &status, events, nil
}

// Subscribe streams the events of one of the user's runs.
func (s *Service) Subscribe(userID, runID string) ([]models.RunEvent, <-chan models.RunEvent, func(), error) {
	status, _, ok := s.tracker.Get(runID)
	if err := checkRunOwner(runID, userID, status, ok); err != nil {
		return nil, nil, nil, err
	}
	history, events, cancel, ok := s.tracker.Subscribe(runID)
	if !ok {
		return nil, nil, nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return history, events, cancel, nil
}

func checkRunOwner(runID, userID string, status models.RunStatus, found bool) error {
	if !found {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if status.UserID != userID {
		return fmt.Errorf("run %s: %w", runID, ErrForbidden)
	}
	return nil
}

// GetLesson returns a generated lesson.
func (s *Service) GetLesson(ctx context.Context, userID, roadmapID, lessonID string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := s.store.Get(ctx, lessonPath(userID, roadmapID, lessonID), &lesson); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lesson %s: %w", lessonID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return &lesson, nil
}

// SubmitQuizAttempt grades answers against the lesson quiz. A passing score
// completes the lesson.
func (s *Service) SubmitQuizAttempt(ctx context.Context, userID, roadmapID, lessonID string, answers []int) (*models.QuizAttempt, error) {
	ctx, span := s.tracer.Start(ctx, "learning.submit_quiz_attempt")
	defer span.End()

	unlock := s.lockRoadmap(userID, roadmapID)
	defer unlock()

	roadmap, err := s.GetRoadmap(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}
	_, entry := roadmap.FindLesson(lessonID)
	if entry == nil {
		return nil, fmt.Errorf("lesson %s: %w", lessonID, ErrNotFound)
	}
	if entry.Status != models.LessonStatusReady && entry.Status != models.LessonStatusCompleted {
		return nil, fmt.Errorf("%w: lesson %s is %s", ErrLessonNotReady, lessonID, entry.Status)
	}

	lesson, err := s.GetLesson(ctx, userID, roadmapID, lessonID)
	if err != nil {
		return nil, err
	}
	questions := lesson.Quiz.Questions
	if len(questions) == 0 || len(answers) != len(questions) {
		return nil, fmt.Errorf("%w: got %d answers for %d questions", ErrInvalidAnswers, len(answers), len(questions))
	}

	correct := 0
	for i, q := range questions {
		if answers[i] == q.CorrectAnswer {
			correct++
		}
	}
	score := int(math.Round(float64(correct) / float64(len(questions)) * 100))

	attempt := &models.QuizAttempt{
		ID:          s.newID(),
		UserID:      userID,
		RoadmapID:   roadmapID,
		LessonID:    lessonID,
		Answers:     answers,
		Correct:     correct,
		Total:       len(questions),
		Score:       score,
		Passed:      score >= lesson.Quiz.PassScore,
		SubmittedAt: s.now(),
	}
	if err := s.store.Set(ctx, store.Path(attemptsPath(userID, roadmapID), attempt.ID), attempt); err != nil {
		return nil, fmt.Errorf("failed to save attempt: %w", err)
	}

	next := entry.Status
	if attempt.Passed {
		next = models.LessonStatusCompleted
	}
	err = s.setLessonStatus(ctx, roadmap, lessonID, next, func(l *models.RoadmapLesson) {
		l.Attempts++
		if score > l.BestScore {
			l.BestScore = score
		}
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("score", score), attribute.Bool("passed", attempt.Passed))
	s.log.Info("quiz attempt graded",
		zap.String("user_id", userID),
		zap.String("roadmap_id", roadmapID),
		zap.String("lesson_id", lessonID),
		zap.Int("score", score),
		zap.Bool("passed", attempt.Passed),
	)
	return attempt, nil
}

// GetProgress summarizes lesson status and scores for a roadmap.
func (s *Service) GetProgress(ctx context.Context, userID, roadmapID string) (*models.Progress, error) {
	roadmap, err := s.GetRoadmap(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}

	p := &models.Progress{RoadmapID: roadmap.ID, Topic: roadmap.Topic, Lessons: []models.LessonProgress{}}
	for _, phase := range roadmap.Phases {
		for _, l := range phase.Lessons {
			p.Lessons = append(p.Lessons, models.LessonProgress{
				LessonID:  l.ID,
				Title:     l.Title,
				Phase:     phase.Name,
				Status:    l.Status,
				BestScore: l.BestScore,
				Attempts:  l.Attempts,
			})
			if l.Status == models.LessonStatusCompleted {
				p.Completed++
			}
		}
	}
	p.Total = len(p.Lessons)
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
	}
	return p, nil
}

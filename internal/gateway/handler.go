package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/auth"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/lessons"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/model"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/orchestration"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/repair"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

const tokenTTL = 24 * time.Hour

// LearningService is the part of orchestration.Service the gateway calls.
type LearningService interface {
	CreateRoadmap(ctx context.Context, userID string, req models.RoadmapRequest) (*models.Roadmap, error)
	ListRoadmaps(ctx context.Context, userID string) ([]models.Roadmap, error)
	GetRoadmap(ctx context.Context, userID, roadmapID string) (*models.Roadmap, error)
	GetProgress(ctx context.Context, userID, roadmapID string) (*models.Progress, error)
	StartLessonRun(ctx context.Context, userID, roadmapID, lessonID string) (*models.RunStatus, error)
	RunLesson(ctx context.Context, userID, roadmapID, lessonID string) (*models.RunStatus, pipeline.Result, error)
	GetRun(userID, runID string) (*models.RunStatus, []models.RunEvent, error)
	Subscribe(userID, runID string) ([]models.RunEvent, <-chan models.RunEvent, func(), error)
	GetLesson(ctx context.Context, userID, roadmapID, lessonID string) (*models.Lesson, error)
	SubmitQuizAttempt(ctx context.Context, userID, roadmapID, lessonID string, answers []int) (*models.QuizAttempt, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	svc        LearningService
	users      Authenticator
	jwtManager *auth.JWTManager
	store      Pinger
	log        *zap.Logger
}

// NewHandler creates a new gateway handler
func NewHandler(svc LearningService, users Authenticator, jwtManager *auth.JWTManager, store Pinger, log *zap.Logger) *Handler {
	return &Handler{svc: svc, users: users, jwtManager: jwtManager, store: store, log: log}
}

// RunResponse is returned by a synchronous run.
type RunResponse struct {
	Run    *models.RunStatus `json:"run"`
	Result pipeline.Result   `json:"result"`
}

// RunDetail is the run snapshot plus its event history.
type RunDetail struct {
	Run    *models.RunStatus `json:"run"`
	Events []models.RunEvent `json:"events"`
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready godoc
// @Summary Readiness probe
// @Description Reports ready once the document store answers.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /ready [get]
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": "document store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, orchestration.ErrInvalidCredentials) {
			h.log.Warn("login rejected", zap.String("email", req.Email))
			respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid email or password")
			return
		}
		h.fail(c, err)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(c.Request.Context(), user.ID, user.Email, []string{auth.RoleLearner}, tokenTTL)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: user.ToUserInfo()})
}

// Refresh godoc
// @Summary Refresh token
// @Description Exchange a valid token for a new one with a fresh expiry
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.RefreshResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	token, expiresAt, err := h.jwtManager.RefreshToken(c.Request.Context(), c.GetString(auth.TokenKey), tokenTTL)
	if err != nil {
		h.log.Warn("token refresh rejected", zap.Error(err), zap.String("user_id", auth.UserID(c)))
		respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid or expired token")
		return
	}
	c.JSON(http.StatusOK, models.RefreshResponse{Token: token, ExpiresAt: expiresAt})
}

// CreateRoadmap godoc
// @Summary Create roadmap
// @Description Plan a personalized learning roadmap for a topic
// @Tags roadmaps
// @Accept json
// @Produce json
// @Param request body models.RoadmapRequest true "Topic, level and goals"
// @Success 201 {object} models.Roadmap
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /roadmaps [post]
func (h *Handler) CreateRoadmap(c *gin.Context) {
	var req models.RoadmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request")
		return
	}

	roadmap, err := h.svc.CreateRoadmap(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, roadmap)
}

// ListRoadmaps godoc
// @Summary List roadmaps
// @Tags roadmaps
// @Produce json
// @Success 200 {array} models.Roadmap
// @Security BearerAuth
// @Router /roadmaps [get]
func (h *Handler) ListRoadmaps(c *gin.Context) {
	roadmaps, err := h.svc.ListRoadmaps(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roadmaps)
}

// GetRoadmap godoc
// @Summary Get roadmap
// @Tags roadmaps
// @Produce json
// @Param roadmap_id path string true "Roadmap ID"
// @Success 200 {object} models.Roadmap
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /roadmaps/{roadmap_id} [get]
func (h *Handler) GetRoadmap(c *gin.Context) {
	roadmap, err := h.svc.GetRoadmap(c.Request.Context(), auth.UserID(c), c.Param("roadmap_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roadmap)
}

// GetProgress godoc
// @Summary Roadmap progress
// @Tags roadmaps
// @Produce json
// @Param roadmap_id path string true "Roadmap ID"
// @Success 200 {object} models.Progress
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /roadmaps/{roadmap_id}/progress [get]
func (h *Handler) GetProgress(c *gin.Context) {
	progress, err := h.svc.GetProgress(c.Request.Context(), auth.UserID(c), c.Param("roadmap_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// StartRun godoc
// @Summary Generate a lesson
// @Description Starts the lesson pipeline. With wait=true the call blocks and returns the result.
// @Tags lessons
// @Produce json
// @Param roadmap_id path string true "Roadmap ID"
// @Param lesson_id path string true "Lesson ID"
// @Param wait query bool false "Wait for the run to finish"
// @Success 202 {object} models.StartRunResponse
// @Success 200 {object} RunResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /roadmaps/{roadmap_id}/lessons/{lesson_id}/runs [post]
func (h *Handler) StartRun(c *gin.Context) {
	userID := auth.UserID(c)
	roadmapID, lessonID := c.Param("roadmap_id"), c.Param("lesson_id")

	if c.Query("wait") == "true" {
		run, res, err := h.svc.RunLesson(c.Request.Context(), userID, roadmapID, lessonID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, RunResponse{Run: run, Result: res})
		return
	}

	run, err := h.svc.StartLessonRun(c.Request.Context(), userID, roadmapID, lessonID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.StartRunResponse{
		RunID:     run.RunID,
		StreamURL: "/api/ws/runs/" + run.RunID,
	})
}

// GetRun godoc
// @Summary Get run
// @Tags lessons
// @Produce json
// @Param run_id path string true "Run ID"
// @Success 200 {object} RunDetail
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /runs/{run_id} [get]
func (h *Handler) GetRun(c *gin.Context) {
	run, events, err := h.svc.GetRun(auth.UserID(c), c.Param("run_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if events == nil {
		events = []models.RunEvent{}
	}
	c.JSON(http.StatusOK, RunDetail{Run: run, Events: events})
}

// GetLesson godoc
// @Summary Get lesson
// @Tags lessons
// @Produce json
// @Param roadmap_id path string true "Roadmap ID"
// @Param lesson_id path string true "Lesson ID"
// @Success 200 {object} models.Lesson
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /roadmaps/{roadmap_id}/lessons/{lesson_id} [get]
func (h *Handler) GetLesson(c *gin.Context) {
	lesson, err := h.svc.GetLesson(c.Request.Context(), auth.UserID(c), c.Param("roadmap_id"), c.Param("lesson_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

// SubmitQuizAttempt godoc
// @Summary Submit quiz answers
// @Tags lessons
// @Accept json
// @Produce json
// @Param roadmap_id path string true "Roadmap ID"
// @Param lesson_id path string true "Lesson ID"
// @Param request body models.QuizAttemptRequest true "Answer indexes in question order"
// @Success 201 {object} models.QuizAttempt
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /roadmaps/{roadmap_id}/lessons/{lesson_id}/quiz/attempts [post]
func (h *Handler) SubmitQuizAttempt(c *gin.Context) {
	var req models.QuizAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request")
		return
	}

	attempt, err := h.svc.SubmitQuizAttempt(c.Request.Context(), auth.UserID(c), c.Param("roadmap_id"), c.Param("lesson_id"), req.Answers)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

// fail maps service errors to API responses.
func (h *Handler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	_ = c.Error(err)
	respondError(c, status, code, message)
}

func classify(err error) (int, string) {
	var (
		me *model.Error
		pe *repair.ParseError
		ve *schema.ValidationError
	)
	switch {
	case errors.Is(err, orchestration.ErrNotFound):
		return http.StatusNotFound, models.ErrCodeNotFound
	case errors.Is(err, orchestration.ErrForbidden):
		return http.StatusForbidden, models.ErrCodeForbidden
	case errors.Is(err, orchestration.ErrInvalidTransition):
		return http.StatusConflict, models.ErrCodeInvalidTransition
	case errors.Is(err, orchestration.ErrLessonNotReady):
		return http.StatusConflict, models.ErrCodeLessonNotReady
	case errors.Is(err, orchestration.ErrInvalidAnswers):
		return http.StatusBadRequest, models.ErrCodeInvalidRequest
	case errors.Is(err, orchestration.ErrEmailTaken):
		return http.StatusConflict, models.ErrCodeAlreadyExists
	case errors.Is(err, lessons.ErrEmptyRoadmap),
		errors.As(err, &me), errors.As(err, &pe), errors.As(err, &ve):
		return http.StatusBadGateway, models.ErrCodeGenerationFailed
	}
	return http.StatusInternalServerError, models.ErrCodeInternalError
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message, Code: code})
}

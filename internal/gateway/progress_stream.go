package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/auth"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
)

const writeWait = 10 * time.Second

// ProgressStream pushes lesson run events to WebSocket clients.
type ProgressStream struct {
	svc      LearningService
	log      *zap.Logger
	tracer   trace.Tracer
	upgrader websocket.Upgrader
}

// NewProgressStream creates the WebSocket endpoint for run progress.
func NewProgressStream(svc LearningService, log *zap.Logger) *ProgressStream {
	return &ProgressStream{
		svc:    svc,
		log:    log,
		tracer: otel.Tracer("lesson-progress-stream"),
		upgrader: websocket.Upgrader{
			// Browsers on other origins authenticate with the token query parameter.
			CheckOrigin:      func(r *http.Request) bool { return true },
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// StreamRun handles WebSocket /api/ws/runs/:run_id
// @Summary Stream lesson run progress
// @Description Replays the run's events, then streams live ones until the run completes or fails.
// @Tags lessons
// @Param run_id path string true "Run ID"
// @Param token query string false "JWT when the Authorization header cannot be set"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/runs/{run_id} [get]
func (p *ProgressStream) StreamRun(c *gin.Context) {
	ctx, span := p.tracer.Start(c.Request.Context(), "progress_stream.stream_run")
	defer span.End()

	runID := c.Param("run_id")
	userID := auth.UserID(c)
	span.SetAttributes(attribute.String("run_id", runID), attribute.String("user_id", userID))

	// Subscribe before upgrading so refusals are still plain HTTP responses.
	history, events, cancel, err := p.svc.Subscribe(userID, runID)
	if err != nil {
		span.RecordError(err)
		status, code := classify(err)
		respondError(c, status, code, err.Error())
		return
	}
	defer cancel()

	conn, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		p.log.Warn("websocket upgrade failed", zap.String("run_id", runID), zap.Error(err))
		return
	}
	defer conn.Close()

	log := p.log.With(zap.String("run_id", runID), zap.String("user_id", userID))
	log.Info("progress stream opened")

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, event := range history {
		if err := p.send(conn, event); err != nil {
			log.Warn("failed to replay event", zap.Error(err))
			return
		}
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				p.close(conn, "run finished")
				log.Info("progress stream closed")
				return
			}
			if err := p.send(conn, event); err != nil {
				log.Warn("failed to send event", zap.Error(err))
				return
			}
		case <-gone:
			log.Info("client disconnected")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *ProgressStream) send(conn *websocket.Conn, event models.RunEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}

func (p *ProgressStream) close(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

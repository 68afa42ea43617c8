package gateway

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/auth"
)

// MetricsCollector instruments HTTP traffic.
type MetricsCollector interface {
	Middleware() gin.HandlerFunc
	Handler() http.Handler
}

// RouterConfig holds everything the router needs.
type RouterConfig struct {
	Handler    *Handler
	Stream     *ProgressStream
	JWTManager *auth.JWTManager
	Metrics    MetricsCollector
	Log        *zap.Logger

	// AllowedOrigins defaults to the local frontend.
	AllowedOrigins []string
}

const serviceName = "lesson-orchestrator"

// NewRouter builds the gin engine with every API route.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(requestLogger(cfg.Log))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Health checks stay at the root for the platform probes
	router.GET("/health", cfg.Handler.Health)
	router.GET("/ready", cfg.Handler.Ready)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")
	api.POST("/auth/login", cfg.Handler.Login)

	protected := api.Group("")
	protected.Use(auth.RequireAuth(cfg.JWTManager, cfg.Log), auth.RequireRole(auth.RoleLearner))
	protected.POST("/auth/refresh", cfg.Handler.Refresh)

	protected.POST("/roadmaps", cfg.Handler.CreateRoadmap)
	protected.GET("/roadmaps", cfg.Handler.ListRoadmaps)
	protected.GET("/roadmaps/:roadmap_id", cfg.Handler.GetRoadmap)
	protected.GET("/roadmaps/:roadmap_id/progress", cfg.Handler.GetProgress)

	protected.POST("/roadmaps/:roadmap_id/lessons/:lesson_id/runs", cfg.Handler.StartRun)
	protected.GET("/roadmaps/:roadmap_id/lessons/:lesson_id", cfg.Handler.GetLesson)
	protected.POST("/roadmaps/:roadmap_id/lessons/:lesson_id/quiz/attempts", cfg.Handler.SubmitQuizAttempt)

	protected.GET("/runs/:run_id", cfg.Handler.GetRun)
	protected.GET("/ws/runs/:run_id", cfg.Stream.StreamRun)

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	if len(origins) > 0 {
		config.AllowOrigins = origins
	} else {
		config.AllowOrigins = []string{"http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour
	return config
}

// requestLogger writes one structured line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		if userID := auth.UserID(c); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

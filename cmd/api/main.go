package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/auth"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/cache"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/config"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/gateway"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/lessons"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/metrics"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/model"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/orchestration"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/platform/logger"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/repair"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/store"

	_ "github.com/bizmatters/learnpath/lesson-orchestrator/docs" // swagger docs
)

// @title Lesson Orchestrator API
// @version 1.0
// @description Personalized learning roadmaps with AI-generated lessons and quizzes.
// @description
// @description A lesson is produced by a four step pipeline: source search, synthesis, validation and quiz generation.
// @description Run progress is streamed over WebSocket.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		Service:  "lesson-orchestrator",
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("lesson orchestrator stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	tp, err := initTracer()
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer shutdown(log, "tracer", tp.Shutdown)

	httpMetrics := metrics.NewHTTPMetrics()
	mp, err := metrics.NewMeterProvider(httpMetrics.Registerer())
	if err != nil {
		return err
	}
	otel.SetMeterProvider(mp)
	defer shutdown(log, "meter provider", mp.Shutdown)

	pipelineMetrics, err := metrics.NewPipelineMetrics(mp)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	docs, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer docs.Close()

	responses, err := openCache(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}

	gen, err := newGenerator(ctx, cfg.Gemini, log)
	if err != nil {
		return err
	}

	engine := repair.New(log, repair.WithFallbackHook(pipelineMetrics.RecordRepairFallback))
	client := model.NewClient(gen, engine, responses, log, model.WithRecorder(pipelineMetrics))
	author := lessons.NewAuthor(client, engine, log)

	lessonPipeline := pipeline.New(pipeline.Collaborators{
		Sources:     author,
		Synthesizer: author,
		Validator:   author,
		Quizzes:     author,
	}, log)

	svc := orchestration.NewService(docs, author, lessonPipeline, log, orchestration.WithRecorder(pipelineMetrics))
	users := orchestration.NewUsers(docs)

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT manager: %w", err)
	}

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gateway.NewRouter(gateway.RouterConfig{
		Handler:    gateway.NewHandler(svc, users, jwtManager, docs, log),
		Stream:     gateway.NewProgressStream(svc, log),
		JWTManager: jwtManager,
		Metrics:    httpMetrics,
		Log:        log,

		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // ?wait=true runs the whole pipeline inside the request
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting lesson orchestrator API",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.Store.Backend),
			zap.String("cache", cfg.Cache.Backend),
			zap.String("model", client.Model()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	waitForRuns(shutdownCtx, svc, log)
	log.Info("server exited")
	return nil
}

func openCache(ctx context.Context, cfg config.CacheConfig, log *zap.Logger) (cache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedis(rdb, cfg.RedisPrefix, cfg.TTL, log), nil
	case "lru":
		return cache.NewLRU(cfg.Size, cfg.TTL)
	default:
		return cache.NewUnbounded(), nil
	}
}

func newGenerator(ctx context.Context, cfg config.GeminiConfig, log *zap.Logger) (model.Generator, error) {
	if cfg.Backend == "sdk" {
		return model.NewGenAIGenerator(ctx, model.GenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, log)
	}
	return model.NewRESTGenerator(model.RESTConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}, log), nil
}

// waitForRuns lets background lesson runs persist their results.
func waitForRuns(ctx context.Context, svc *orchestration.Service, log *zap.Logger) {
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("lesson runs still in flight at shutdown")
	}
}

// initTracer initializes OpenTelemetry tracing
func initTracer() (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("shutdown failed", zap.String("component", name), zap.Error(err))
	}
}

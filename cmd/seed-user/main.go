package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/config"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/orchestration"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/platform/logger"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/store"
)

// MinPasswordLength is the minimum password length requirement
const MinPasswordLength = 8

var (
	emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	hasLetter  = regexp.MustCompile(`[a-zA-Z]`)
	hasNumber  = regexp.MustCompile(`[0-9]`)
)

func main() {
	name := flag.String("name", "", "Full name of the learner (required)")
	email := flag.String("email", "", "Email address (required)")
	password := flag.String("password", "", "Password (required, min 8 chars)")
	flag.Parse()

	if err := validateInputs(*name, *email, *password); err != nil {
		log.Fatalf("Validation error: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: "console", Service: "seed-user"})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	tp, err := initTracer()
	if err != nil {
		zlog.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx := context.Background()
	docs, err := store.Open(ctx, cfg.Store, zlog)
	if err != nil {
		zlog.Fatal("failed to open document store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer docs.Close()

	user, err := createUser(ctx, orchestration.NewUsers(docs), *name, *email, *password)
	if err != nil {
		zlog.Fatal("failed to create user", zap.Error(err))
	}

	zlog.Info("created learner account",
		zap.String("id", user.ID),
		zap.String("name", user.Name),
		zap.String("email", user.Email),
		zap.String("store", cfg.Store.Backend),
	)
}

// validateInputs validates user input according to security requirements
func validateInputs(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required and cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if !hasLetter.MatchString(password) || !hasNumber.MatchString(password) {
		return errors.New("password must contain at least one letter and one number")
	}
	return nil
}

type userCreator interface {
	Create(ctx context.Context, name, email, password string) (*models.User, error)
}

func createUser(ctx context.Context, users userCreator, name, email, password string) (*models.User, error) {
	ctx, span := otel.Tracer("seed-user").Start(ctx, "create_user")
	defer span.End()

	user, err := users.Create(ctx, strings.TrimSpace(name), email, password)
	if errors.Is(err, orchestration.ErrEmailTaken) {
		return nil, fmt.Errorf("user with email %s already exists", email)
	}
	return user, err
}

// initTracer initializes OpenTelemetry tracing
func initTracer() (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}
	tp := trace.NewTracerProvider(trace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}

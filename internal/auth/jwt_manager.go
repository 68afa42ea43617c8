package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const issuer = "learnpath-lesson-orchestrator"

var tracer = otel.Tracer("jwt-manager")

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("jwt signing secret is required")

// JWTManager manages JWT token creation and validation
type JWTManager struct {
	mu         sync.RWMutex
	signingKey []byte
	algorithm  string
	keyID      string
	tracer     trace.Tracer
}

// Claims identifies the learner a token was issued to.
type Claims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewJWTManager creates an HS256 manager signing with secret.
func NewJWTManager(secret string) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	return &JWTManager{
		signingKey: []byte(secret),
		algorithm:  jwt.SigningMethodHS256.Alg(),
		keyID:      "default",
		tracer:     tracer,
	}, nil
}

func (jm *JWTManager) key() []byte {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	return jm.signingKey
}

// GenerateToken generates a new JWT token
func (jm *JWTManager) GenerateToken(ctx context.Context, userID, email string, roles []string, duration time.Duration) (string, time.Time, error) {
	_, span := jm.tracer.Start(ctx, "jwt.generate_token")
	defer span.End()

	span.SetAttributes(attribute.String("user.id", userID))

	now := time.Now()
	expiresAt := now.Add(duration)
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(jm.algorithm), claims)

	// Set key ID header for key rotation support
	token.Header["kid"] = jm.keyID

	tokenString, err := token.SignedString(jm.key())
	if err != nil {
		span.RecordError(err)
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	span.SetAttributes(attribute.String("jwt.id", claims.ID))
	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token
func (jm *JWTManager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	_, span := jm.tracer.Start(ctx, "jwt.validate_token")
	defer span.End()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jm.algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if kid, ok := token.Header["kid"].(string); ok && kid != jm.keyID {
			span.SetAttributes(attribute.String("jwt.kid_mismatch", kid))
		}
		return jm.key(), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	span.SetAttributes(
		attribute.String("user.id", claims.UserID),
		attribute.String("jwt.id", claims.ID),
	)

	return claims, nil
}

// RefreshToken generates a new token from an existing valid token
func (jm *JWTManager) RefreshToken(ctx context.Context, tokenString string, duration time.Duration) (string, time.Time, error) {
	ctx, span := jm.tracer.Start(ctx, "jwt.refresh_token")
	defer span.End()

	claims, err := jm.ValidateToken(ctx, tokenString)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("cannot refresh invalid token: %w", err)
	}

	return jm.GenerateToken(ctx, claims.UserID, claims.Email, claims.Roles, duration)
}

// RotateSigningKey replaces the signing secret. Tokens signed with the old
// secret stop validating.
func (jm *JWTManager) RotateSigningKey(ctx context.Context, secret string) error {
	_, span := jm.tracer.Start(ctx, "jwt.rotate_signing_key")
	defer span.End()

	if secret == "" {
		return ErrMissingSecret
	}

	jm.mu.Lock()
	jm.signingKey = []byte(secret)
	jm.mu.Unlock()

	span.SetAttributes(
		attribute.String("jwt.algorithm", jm.algorithm),
		attribute.String("jwt.key_id", jm.keyID),
	)
	return nil
}

package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
)

var middlewareTracer = otel.Tracer("auth-middleware")

// Gin context keys set by RequireAuth.
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRolesKey = "user_roles"
	ClaimsKey    = "claims"
	TokenKey     = "token"
)

// RoleLearner is granted to every account created through the learner flow.
const RoleLearner = "learner"

// RequireAuth is a Gin middleware that validates JWT tokens. The token comes
// from the Authorization header or, for browser WebSocket clients, from the
// token query parameter.
func RequireAuth(jwtManager *JWTManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.require_auth")
		defer span.End()

		token := extractToken(c)
		if token == "" {
			span.SetAttributes(attribute.Bool("auth.token_present", false))
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Missing or invalid authorization header")
			return
		}
		span.SetAttributes(attribute.Bool("auth.token_present", true))

		claims, err := jwtManager.ValidateToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.token_valid", false))
			log.Warn("invalid token", zap.Error(err), zap.String("path", c.Request.URL.Path))
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid or expired token")
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.token_valid", true),
			attribute.String("user.id", claims.UserID),
		)

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRolesKey, claims.Roles)
		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, token)

		log.Debug("user authenticated",
			zap.String("user_id", claims.UserID),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.Next()
	}
}

// RequireRole is a Gin middleware that checks if authenticated user has required role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := middlewareTracer.Start(c.Request.Context(), "auth.require_role")
		defer span.End()
		span.SetAttributes(attribute.String("required.role", role))

		roles, _ := c.Get(UserRolesKey)
		list, _ := roles.([]string)
		for _, r := range list {
			if r == role {
				span.SetAttributes(attribute.Bool("auth.role_authorized", true))
				c.Next()
				return
			}
		}

		span.SetAttributes(attribute.Bool("auth.role_authorized", false))
		abort(c, http.StatusForbidden, models.ErrCodeForbidden, "Insufficient permissions")
	}
}

// UserID returns the authenticated user's ID, or "" outside RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func extractToken(c *gin.Context) string {
	const prefix = "Bearer "
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, prefix) {
			return ""
		}
		return strings.TrimSpace(header[len(prefix):])
	}
	return c.Query("token")
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message, Code: code})
}

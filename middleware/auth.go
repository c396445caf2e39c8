package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Templasan/MarketPlacer/common/auth"
	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	UserContextKey   = "userID"
	RoleContextKey   = "role"
	callerContextKey = "caller"
	tokenCookie      = "token"
)

// TokenParser validates an access token.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// AuthMiddleware accepts a Bearer token, or the token cookie set at login.
func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if raw == "" {
			raw, _ = c.Cookie(tokenCookie)
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			zap.L().Debug("Rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		role, ok := models.ParseRole(claims.Role)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token role"})
			return
		}

		c.Set(UserContextKey, claims.UserID.String())
		c.Set(RoleContextKey, string(role))
		c.Set(callerContextKey, models.Caller{ID: claims.UserID, Role: role})
		c.Next()
	}
}

// ActiveUserChecker confirms the account behind a token can still act.
type ActiveUserChecker interface {
	EnsureActive(ctx context.Context, userID uuid.UUID) error
}

// RequireActiveUser rejects tokens of deactivated accounts. It runs after AuthMiddleware.
func RequireActiveUser(users ActiveUserChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := GetUserID(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if err := users.EnsureActive(c.Request.Context(), userID); err != nil {
			apperrors.Respond(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (uuid.UUID, error) {
	caller, err := GetCaller(c)
	if err != nil {
		return uuid.Nil, err
	}
	return caller.ID, nil
}

func GetCaller(c *gin.Context) (models.Caller, error) {
	if val, ok := c.Get(callerContextKey); ok {
		if caller, ok := val.(models.Caller); ok && caller.ID != uuid.Nil {
			return caller, nil
		}
	}
	return models.Caller{}, errors.New("caller not found in context")
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := GetCaller(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, r := range roles {
			if caller.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

package utils

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tablebook/model"
)

const (
	userKey      = "user"
	userIDKey    = "user_id"
	requestIDKey = "request_id"

	RequestIDHeader = "X-Request-ID"
)

// AuthMiddleware requires a valid access token and loads its user, so a
// deleted account or changed role takes effect on the next request.
func AuthMiddleware(tokens *TokenManager, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			RespondError(c, http.StatusUnauthorized, "invalid token format")
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			RespondError(c, http.StatusUnauthorized, err.Error())
			return
		}

		var user model.User
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				RespondError(c, http.StatusUnauthorized, "account no longer exists")
				return
			}
			RespondError(c, http.StatusInternalServerError, "Failed to load account")
			return
		}

		c.Set(userKey, user)
		c.Set(userIDKey, user.UserID)
		c.Next()
	}
}

// RequireRoles must run after AuthMiddleware.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			RespondError(c, http.StatusUnauthorized, "Unauthorized access")
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		RespondError(c, http.StatusForbidden, "Forbidden: insufficient role")
	}
}

func CurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestTimeout bounds every downstream call that honours the request
// context. A zero duration disables it.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

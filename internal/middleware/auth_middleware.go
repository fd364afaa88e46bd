package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/app/models/dto"
	"github.com/yigit/submity/internal/pkg/auth"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "userID"
	ContextEmail     = "email"
	ContextSessionID = "sessionID"
	ContextSession   = "session"
)

// SessionAuthenticator resolves a bearer token to an open session
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// AuthMiddleware for authentication
type AuthMiddleware struct {
	authenticator SessionAuthenticator
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authenticator SessionAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// JWTAuth rejects requests without a valid token bound to an open session
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := requestToken(c)
		if authHeader == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
				WithDetails("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIResponse{Error: errorDetail})
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
				WithDetails("Invalid token format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIResponse{Error: errorDetail})
			return
		}

		session, err := m.authenticator.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			AbortWithAPIError(c, err)
			return
		}

		setSession(c, session)
		c.Next()
	}
}

// OptionalAuth attaches the session when a valid token is present and
// otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := requestToken(c)
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err == nil {
			if session, err := m.authenticator.Authenticate(c.Request.Context(), tokenString); err == nil {
				setSession(c, session)
			}
		}
		c.Next()
	}
}

// requestToken reads the Authorization header, falling back to the token
// query parameter some clients (Swagger UI) use.
func requestToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return h
	}
	return c.Query("token")
}

func setSession(c *gin.Context, session *models.Session) {
	c.Set(ContextUserID, session.UserID)
	c.Set(ContextEmail, session.Email)
	c.Set(ContextSessionID, session.ID)
	c.Set(ContextSession, session)
}

// CurrentUserID returns the authenticated user id, or "" for anonymous requests
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CurrentSessionID returns the session of the authenticated request
func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

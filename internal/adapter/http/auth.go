package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// requireAuth rejects requests without a valid bearer token. It is a no-op
// when no verifier is configured.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Verifier == nil {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			abortMessage(c, http.StatusUnauthorized, "authentication required")
			return
		}
		userID, err := s.deps.Verifier.Verify(token)
		if err != nil {
			s.logger.Debug("token rejected", "error", err)
			abortMessage(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// optionalAuth attaches the caller's id when a valid token is present and
// lets anonymous requests through. A token that fails verification is still
// rejected.
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Verifier == nil {
			c.Next()
			return
		}
		if _, ok := bearerToken(c); !ok {
			c.Next()
			return
		}
		s.requireAuth()(c)
	}
}

// ownsReport reports whether the caller may modify a report owned by owner.
// Unowned reports and unauthenticated deployments allow anyone.
func (s *Server) ownsReport(c *gin.Context, owner string) bool {
	if s.deps.Verifier == nil || owner == "" {
		return true
	}
	return c.GetString(userIDKey) == owner
}
